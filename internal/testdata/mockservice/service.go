package mockservice

import (
	"context"

	"github.com/stretchr/testify/mock"

	"stream-analytics-service/internal/model"
)

// Service mocks service.EventService.
type Service struct {
	mock.Mock
}

func (m *Service) BuildEvent(req model.EventRequest) (model.Event, error) {
	args := m.Called(req)
	event, _ := args.Get(0).(model.Event)
	return event, args.Error(1)
}

func (m *Service) ProcessEvent(ctx context.Context, event model.Event) {
	m.Called(ctx, event)
}

func (m *Service) Stats() map[string]int64 {
	args := m.Called()
	stats, _ := args.Get(0).(map[string]int64)
	return stats
}

// Analytics mocks service.AnalyticsService.
type Analytics struct {
	mock.Mock
}

func (m *Analytics) GetTotalTips(ctx context.Context, days int) (model.TotalTipsResponse, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(model.TotalTipsResponse), args.Error(1)
}

func (m *Analytics) GetTopChatters(ctx context.Context, days, limit int) (model.TopChattersResponse, error) {
	args := m.Called(ctx, days, limit)
	return args.Get(0).(model.TopChattersResponse), args.Error(1)
}

func (m *Analytics) GetTopTippers(ctx context.Context, days, limit int) (model.TopTippersResponse, error) {
	args := m.Called(ctx, days, limit)
	return args.Get(0).(model.TopTippersResponse), args.Error(1)
}

func (m *Analytics) ExecuteSearch(ctx context.Context, req model.SearchRequest) (model.SearchResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.SearchResponse), args.Error(1)
}
