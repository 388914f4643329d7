package mockrepository

import (
	"context"

	"github.com/stretchr/testify/mock"

	"stream-analytics-service/internal/model"
	"stream-analytics-service/internal/repository"
)

type Repository struct {
	mock.Mock
}

// Interface compliance check
var _ repository.EventRepository = &Repository{}

func (m *Repository) Save(ctx context.Context, event model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *Repository) SaveBatch(ctx context.Context, events []model.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *Repository) FindByTimeRange(ctx context.Context, start, stop string, filters map[string]string) ([]map[string]any, error) {
	args := m.Called(ctx, start, stop, filters)
	rows, _ := args.Get(0).([]map[string]any)
	return rows, args.Error(1)
}

func (m *Repository) FindTips(ctx context.Context, broadcaster, start, stop string, minTokens, limit int) ([]map[string]any, error) {
	args := m.Called(ctx, broadcaster, start, stop, minTokens, limit)
	rows, _ := args.Get(0).([]map[string]any)
	return rows, args.Error(1)
}

func (m *Repository) FindMessages(ctx context.Context, broadcaster, start, stop, username string, limit int) ([]map[string]any, error) {
	args := m.Called(ctx, broadcaster, start, stop, username, limit)
	rows, _ := args.Get(0).([]map[string]any)
	return rows, args.Error(1)
}

func (m *Repository) CountByTimeRange(ctx context.Context, start, stop string, filters map[string]string) (int64, error) {
	args := m.Called(ctx, start, stop, filters)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Repository) EventCountsByKind(ctx context.Context, broadcaster, start, stop string) (map[string]int64, error) {
	args := m.Called(ctx, broadcaster, start, stop)
	counts, _ := args.Get(0).(map[string]int64)
	return counts, args.Error(1)
}
