package mockstore

import (
	"context"

	"github.com/stretchr/testify/mock"

	"stream-analytics-service/internal/model"
	"stream-analytics-service/internal/store"
)

type Store struct {
	mock.Mock
}

// Interface compliance check
var _ store.Client = &Store{}

func (m *Store) Query(ctx context.Context, flux string) ([]map[string]any, error) {
	args := m.Called(ctx, flux)
	rows, _ := args.Get(0).([]map[string]any)
	return rows, args.Error(1)
}

func (m *Store) WritePoints(ctx context.Context, points []model.Point) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *Store) Close() {
	m.Called()
}
