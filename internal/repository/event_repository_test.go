package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"stream-analytics-service/internal/model"
	"stream-analytics-service/internal/testdata/mockstore"
)

type EventRepositoryTestSuite struct {
	suite.Suite
	mockStore *mockstore.Store
	repo      EventRepository
}

func TestEventRepositorySuite(t *testing.T) {
	suite.Run(t, new(EventRepositoryTestSuite))
}

func (s *EventRepositoryTestSuite) SetupTest() {
	s.mockStore = new(mockstore.Store)
	s.repo = NewEventRepository(s.mockStore, "test-bucket")
}

func (s *EventRepositoryTestSuite) TearDownTest() {
	s.mockStore.AssertExpectations(s.T())
}

func (s *EventRepositoryTestSuite) tipEvent(username string, tokens int) model.Event {
	return model.TipEvent{
		EventBase: model.EventBase{
			Time:        time.Unix(1000, 0).UTC(),
			Room:        "lobby",
			Broadcaster: "star",
		},
		User:   model.User{Username: username},
		Tokens: tokens,
	}
}

func (s *EventRepositoryTestSuite) TestSave_WritesConvertedPoint() {
	event := s.tipEvent("alice", 25)
	expected, err := event.ToPoint()
	s.Require().NoError(err)

	s.mockStore.On("WritePoints", mock.Anything, []model.Point{expected}).Return(nil)

	s.NoError(s.repo.Save(context.Background(), event))
}

func (s *EventRepositoryTestSuite) TestSave_ConversionErrorSkipsWrite() {
	// Missing username makes the tip unconvertible; the store must never
	// be touched.
	event := model.TipEvent{
		EventBase: model.EventBase{Time: time.Unix(1000, 0).UTC(), Room: "lobby"},
		Tokens:    25,
	}

	err := s.repo.Save(context.Background(), event)

	s.Error(err)
	s.IsType(&model.ConversionError{}, err)
	s.mockStore.AssertNotCalled(s.T(), "WritePoints", mock.Anything, mock.Anything)
}

func (s *EventRepositoryTestSuite) TestSaveBatch_AllOrNothing() {
	events := []model.Event{
		s.tipEvent("alice", 25),
		s.tipEvent("bob", 50),
	}

	s.mockStore.On("WritePoints", mock.Anything, mock.MatchedBy(func(points []model.Point) bool {
		return len(points) == 2
	})).Return(nil)

	s.NoError(s.repo.SaveBatch(context.Background(), events))
}

func (s *EventRepositoryTestSuite) TestSaveBatch_ConversionErrorAbortsBeforeWrite() {
	events := []model.Event{
		s.tipEvent("alice", 25),
		model.TipEvent{EventBase: model.EventBase{Time: time.Unix(1000, 0).UTC(), Room: "lobby"}},
	}

	err := s.repo.SaveBatch(context.Background(), events)

	s.Error(err)
	s.mockStore.AssertNotCalled(s.T(), "WritePoints", mock.Anything, mock.Anything)
}

func (s *EventRepositoryTestSuite) TestSaveBatch_EmptyIsNoop() {
	s.NoError(s.repo.SaveBatch(context.Background(), nil))
	s.mockStore.AssertNotCalled(s.T(), "WritePoints", mock.Anything, mock.Anything)
}

func (s *EventRepositoryTestSuite) TestFindByTimeRange_SortsFilterKeys() {
	expected := strings.Join([]string{
		`from(bucket: "test-bucket")`,
		`|> range(start: -24h, stop: now())`,
		`|> filter(fn: (r) => r._measurement == "stream_events")`,
		`|> filter(fn: (r) => r.broadcaster == "star")`,
		`|> filter(fn: (r) => r.username == "alice")`,
	}, "\n    ")

	s.mockStore.On("Query", mock.Anything, expected).Return([]map[string]any{}, nil)

	// Map iteration order must not leak into the rendered query.
	_, err := s.repo.FindByTimeRange(context.Background(), "-24h", "", map[string]string{
		"username":    "alice",
		"broadcaster": "star",
	})
	s.NoError(err)
}

func (s *EventRepositoryTestSuite) TestFindTips_QueryShape() {
	expected := strings.Join([]string{
		`from(bucket: "test-bucket")`,
		`|> range(start: -7d, stop: now())`,
		`|> filter(fn: (r) => r._measurement == "stream_events")`,
		`|> filter(fn: (r) => r.broadcaster == "star")`,
		`|> filter(fn: (r) => r.method == "tip")`,
		`|> filter(fn: (r) => r._field == "object.tip.tokens" and r._value >= 50)`,
		`|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		`|> sort(columns: ["_time"], desc: true)`,
		`|> limit(n: 10)`,
	}, "\n    ")

	rows := []map[string]any{{"object.tip.tokens": int64(100)}}
	s.mockStore.On("Query", mock.Anything, expected).Return(rows, nil)

	got, err := s.repo.FindTips(context.Background(), "star", "-7d", "", 50, 10)

	s.NoError(err)
	s.Equal(rows, got)
}

func (s *EventRepositoryTestSuite) TestFindTips_NoMinTokensNoLimit() {
	expected := strings.Join([]string{
		`from(bucket: "test-bucket")`,
		`|> range(start: -7d, stop: now())`,
		`|> filter(fn: (r) => r._measurement == "stream_events")`,
		`|> filter(fn: (r) => r.broadcaster == "star")`,
		`|> filter(fn: (r) => r.method == "tip")`,
		`|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		`|> sort(columns: ["_time"], desc: true)`,
	}, "\n    ")

	s.mockStore.On("Query", mock.Anything, expected).Return([]map[string]any{}, nil)

	_, err := s.repo.FindTips(context.Background(), "star", "-7d", "", 0, 0)
	s.NoError(err)
}

func (s *EventRepositoryTestSuite) TestFindMessages_WithUsername() {
	expected := strings.Join([]string{
		`from(bucket: "test-bucket")`,
		`|> range(start: -7d, stop: now())`,
		`|> filter(fn: (r) => r._measurement == "stream_events")`,
		`|> filter(fn: (r) => r.broadcaster == "star")`,
		`|> filter(fn: (r) => r.method == "chatMessage")`,
		`|> filter(fn: (r) => r.username == "bob")`,
		`|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		`|> sort(columns: ["_time"], desc: true)`,
		`|> limit(n: 20)`,
	}, "\n    ")

	s.mockStore.On("Query", mock.Anything, expected).Return([]map[string]any{}, nil)

	_, err := s.repo.FindMessages(context.Background(), "star", "-7d", "", "bob", 20)
	s.NoError(err)
}

func (s *EventRepositoryTestSuite) TestCountByTimeRange_SumsPerSeriesCounts() {
	expected := strings.Join([]string{
		`from(bucket: "test-bucket")`,
		`|> range(start: -24h, stop: now())`,
		`|> filter(fn: (r) => r._measurement == "stream_events")`,
		`|> filter(fn: (r) => r.method == "tip")`,
		`|> count()`,
	}, "\n    ")

	// count returns one row per series; the repository sums them.
	rows := []map[string]any{
		{"_value": int64(3)},
		{"_value": int64(4)},
		{"_value": "bad"},
	}
	s.mockStore.On("Query", mock.Anything, expected).Return(rows, nil)

	total, err := s.repo.CountByTimeRange(context.Background(), "-24h", "", map[string]string{"method": "tip"})

	s.NoError(err)
	s.Equal(int64(7), total)
}

func (s *EventRepositoryTestSuite) TestEventCountsByKind() {
	expected := strings.Join([]string{
		`from(bucket: "test-bucket")`,
		`|> range(start: -7d, stop: now())`,
		`|> filter(fn: (r) => r._measurement == "stream_events")`,
		`|> filter(fn: (r) => r.broadcaster == "star")`,
		`|> group(columns: ["method"])`,
		`|> count()`,
	}, "\n    ")

	rows := []map[string]any{
		{"method": "tip", "_value": int64(5)},
		{"method": "chatMessage", "_value": int64(12)},
		{"method": "tip", "_value": int64(2)},
		{"_value": int64(9)}, // no method tag, skipped
	}
	s.mockStore.On("Query", mock.Anything, expected).Return(rows, nil)

	counts, err := s.repo.EventCountsByKind(context.Background(), "star", "-7d", "")

	s.NoError(err)
	s.Equal(map[string]int64{"tip": int64(7), "chatMessage": int64(12)}, counts)
}
