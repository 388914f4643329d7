package repository

import (
	"context"
	"fmt"
	"sort"

	"stream-analytics-service/internal/flux"
	"stream-analytics-service/internal/model"
	"stream-analytics-service/internal/store"
)

// pivotStage reshapes field rows into one row per timestamp, used by the
// read paths that return whole events rather than single series.
const pivotStage = `pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")`

// EventRepository persists events as points and exposes time-ranged,
// tag-filtered reads. Time bounds are given in Flux notation: durations
// like "-7d" or RFC3339 instants. An empty stop means now.
type EventRepository interface {
	// Save converts one event and writes its point.
	Save(ctx context.Context, event model.Event) error

	// SaveBatch converts and writes events as one batch. A conversion
	// failure aborts before any write; the batch itself commits or fails
	// as a whole.
	SaveBatch(ctx context.Context, events []model.Event) error

	// FindByTimeRange returns raw rows matching the tag filters within
	// the window.
	FindByTimeRange(ctx context.Context, start, stop string, filters map[string]string) ([]map[string]any, error)

	// FindTips returns tips for a broadcaster, newest first, optionally
	// bounded below by token amount.
	FindTips(ctx context.Context, broadcaster, start, stop string, minTokens, limit int) ([]map[string]any, error)

	// FindMessages returns chat messages for a broadcaster, newest first,
	// optionally restricted to one username.
	FindMessages(ctx context.Context, broadcaster, start, stop, username string, limit int) ([]map[string]any, error)

	// CountByTimeRange counts rows matching the tag filters.
	CountByTimeRange(ctx context.Context, start, stop string, filters map[string]string) (int64, error)

	// EventCountsByKind returns per-method event counts for a broadcaster.
	EventCountsByKind(ctx context.Context, broadcaster, start, stop string) (map[string]int64, error)
}

type eventRepository struct {
	store  store.Client
	bucket string
}

// NewEventRepository creates an EventRepository backed by the time-series
// store.
func NewEventRepository(st store.Client, bucket string) EventRepository {
	return &eventRepository{store: st, bucket: bucket}
}

func (r *eventRepository) Save(ctx context.Context, event model.Event) error {
	point, err := event.ToPoint()
	if err != nil {
		return err
	}
	return r.store.WritePoints(ctx, []model.Point{point})
}

func (r *eventRepository) SaveBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	points := make([]model.Point, 0, len(events))
	for _, event := range events {
		point, err := event.ToPoint()
		if err != nil {
			return err
		}
		points = append(points, point)
	}
	return r.store.WritePoints(ctx, points)
}

func (r *eventRepository) FindByTimeRange(ctx context.Context, start, stop string, filters map[string]string) ([]map[string]any, error) {
	query, err := r.baseQuery(start, stop, filters).Build()
	if err != nil {
		return nil, err
	}
	return r.store.Query(ctx, query)
}

func (r *eventRepository) FindTips(ctx context.Context, broadcaster, start, stop string, minTokens, limit int) ([]map[string]any, error) {
	builder := r.baseQuery(start, stop, map[string]string{
		"broadcaster": broadcaster,
		"method":      string(model.KindTip),
	})
	if minTokens > 0 {
		builder.Custom(fmt.Sprintf(`filter(fn: (r) => r._field == "object.tip.tokens" and r._value >= %d)`, minTokens))
	}
	builder.Custom(pivotStage)
	builder.Sort([]string{"_time"}, true)
	if limit > 0 {
		builder.Limit(limit)
	}

	query, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return r.store.Query(ctx, query)
}

func (r *eventRepository) FindMessages(ctx context.Context, broadcaster, start, stop, username string, limit int) ([]map[string]any, error) {
	filters := map[string]string{
		"broadcaster": broadcaster,
		"method":      string(model.KindChatMessage),
	}
	if username != "" {
		filters["username"] = username
	}

	builder := r.baseQuery(start, stop, filters)
	builder.Custom(pivotStage)
	builder.Sort([]string{"_time"}, true)
	if limit > 0 {
		builder.Limit(limit)
	}

	query, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return r.store.Query(ctx, query)
}

func (r *eventRepository) CountByTimeRange(ctx context.Context, start, stop string, filters map[string]string) (int64, error) {
	query, err := r.baseQuery(start, stop, filters).
		Aggregate(flux.AggCount, "").
		Build()
	if err != nil {
		return 0, err
	}

	rows, err := r.store.Query(ctx, query)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, row := range rows {
		if v, ok := asInt64(row["_value"]); ok {
			total += v
		}
	}
	return total, nil
}

func (r *eventRepository) EventCountsByKind(ctx context.Context, broadcaster, start, stop string) (map[string]int64, error) {
	query, err := r.baseQuery(start, stop, map[string]string{"broadcaster": broadcaster}).
		GroupBy([]string{"method"}).
		Aggregate(flux.AggCount, "").
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := r.store.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		method, ok := row["method"].(string)
		if !ok || method == "" {
			continue
		}
		if v, ok := asInt64(row["_value"]); ok {
			counts[method] += v
		}
	}
	return counts, nil
}

// baseQuery starts a builder with bucket, window and measurement, then adds
// the tag filters in name order so the rendered text is deterministic.
func (r *eventRepository) baseQuery(start, stop string, filters map[string]string) *flux.Builder {
	builder := flux.NewBuilder().
		FromBucket(r.bucket).
		Range(start, stop).
		Measurement(model.MeasurementEvents)

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		builder.Filter(key, flux.OpEq, filters[key])
	}
	return builder
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
