package service

import (
	"context"
	"fmt"
	"strings"

	"stream-analytics-service/internal/flux"
	"stream-analytics-service/internal/model"
	"stream-analytics-service/internal/store"
)

const (
	minDays  = 1
	maxDays  = 365
	minLimit = 1
	maxLimit = 100

	defaultSearchLimit = 100
	defaultSearchStart = "-7d"
)

// tokensField is the tip amount field written by the event model.
const tokensField = "object.tip.tokens"

// AnalyticsService answers bounded, validated analytical questions against
// the time-series store. Validation failures are returned as errors
// (*ValidationError); backend failures are captured into the response with
// Success=false and are never returned as errors.
type AnalyticsService interface {
	GetTotalTips(ctx context.Context, days int) (model.TotalTipsResponse, error)
	GetTopChatters(ctx context.Context, days, limit int) (model.TopChattersResponse, error)
	GetTopTippers(ctx context.Context, days, limit int) (model.TopTippersResponse, error)
	ExecuteSearch(ctx context.Context, req model.SearchRequest) (model.SearchResponse, error)
}

type analyticsService struct {
	store  store.Client
	bucket string
}

// NewAnalyticsService constructs an AnalyticsService over a shared store
// client. Each method call allocates its own query builder; there is no
// shared mutable query state between calls.
func NewAnalyticsService(st store.Client, bucket string) AnalyticsService {
	return &analyticsService{store: st, bucket: bucket}
}

// GetTotalTips sums tipped tokens over the last days. Rows with
// non-positive or non-numeric values are excluded from the sum.
func (s *analyticsService) GetTotalTips(ctx context.Context, days int) (model.TotalTipsResponse, error) {
	if err := validateDays(days); err != nil {
		return model.TotalTipsResponse{}, err
	}

	query, err := flux.NewBuilder().
		FromBucket(s.bucket).
		Range(trailingWindow(days), "").
		Measurement(model.MeasurementEvents).
		Filter("method", flux.OpEq, string(model.KindTip)).
		Field(tokensField).
		Aggregate(flux.AggSum, "").
		Build()
	if err != nil {
		return model.TotalTipsResponse{}, err
	}

	rows, err := s.store.Query(ctx, query)
	if err != nil {
		return model.TotalTipsResponse{Days: days, Error: err.Error()}, nil
	}

	var total int64
	for _, row := range rows {
		value, ok := rowInt64(row, "_value")
		if !ok || value <= 0 {
			continue
		}
		total += value
	}
	return model.TotalTipsResponse{TotalTokens: total, Days: days, Success: true}, nil
}

// GetTopChatters ranks users by chat message count over the last days,
// descending, truncated to limit. Empty usernames are excluded. Ties are
// backend-defined.
func (s *analyticsService) GetTopChatters(ctx context.Context, days, limit int) (model.TopChattersResponse, error) {
	if err := validateDays(days); err != nil {
		return model.TopChattersResponse{}, err
	}
	if err := validateLimit(limit); err != nil {
		return model.TopChattersResponse{}, err
	}

	query, err := flux.NewBuilder().
		FromBucket(s.bucket).
		Range(trailingWindow(days), "").
		Measurement(model.MeasurementEvents).
		Filter("method", flux.OpEq, string(model.KindChatMessage)).
		Filter("username", flux.OpNe, "").
		Field("object.message.message").
		Build()
	if err != nil {
		return model.TopChattersResponse{}, err
	}
	query += rankingTail("username", flux.AggCount, limit)

	rows, err := s.store.Query(ctx, query)
	if err != nil {
		return model.TopChattersResponse{Chatters: []model.ChatterCount{}, Days: days, Error: err.Error()}, nil
	}

	chatters := make([]model.ChatterCount, 0, len(rows))
	for _, row := range rows {
		username, _ := row["username"].(string)
		if username == "" {
			continue
		}
		count, ok := rowInt64(row, "_value")
		if !ok {
			continue
		}
		chatters = append(chatters, model.ChatterCount{Username: username, Count: count})
	}
	return model.TopChattersResponse{Chatters: chatters, Days: days, Success: true}, nil
}

// GetTopTippers ranks users by total tipped tokens over the last days,
// descending, truncated to limit. Ties are backend-defined.
func (s *analyticsService) GetTopTippers(ctx context.Context, days, limit int) (model.TopTippersResponse, error) {
	if err := validateDays(days); err != nil {
		return model.TopTippersResponse{}, err
	}
	if err := validateLimit(limit); err != nil {
		return model.TopTippersResponse{}, err
	}

	query, err := flux.NewBuilder().
		FromBucket(s.bucket).
		Range(trailingWindow(days), "").
		Measurement(model.MeasurementEvents).
		Filter("method", flux.OpEq, string(model.KindTip)).
		Filter("username", flux.OpNe, "").
		Field(tokensField).
		Build()
	if err != nil {
		return model.TopTippersResponse{}, err
	}
	query += rankingTail("username", flux.AggSum, limit)

	rows, err := s.store.Query(ctx, query)
	if err != nil {
		return model.TopTippersResponse{Tippers: []model.TipperTotal{}, Days: days, Error: err.Error()}, nil
	}

	tippers := make([]model.TipperTotal, 0, len(rows))
	for _, row := range rows {
		username, _ := row["username"].(string)
		if username == "" {
			continue
		}
		total, ok := rowInt64(row, "_value")
		if !ok {
			continue
		}
		tippers = append(tippers, model.TipperTotal{Username: username, TotalTokens: total})
	}
	return model.TopTippersResponse{Tippers: tippers, Days: days, Success: true}, nil
}

// ExecuteSearch compiles a generic parameterized search. Unknown operator
// text in a filter is forwarded into the query verbatim rather than
// rejected; the backend reports it if it is meaningless.
func (s *analyticsService) ExecuteSearch(ctx context.Context, req model.SearchRequest) (model.SearchResponse, error) {
	measurement := req.Measurement
	if measurement == "" {
		measurement = model.MeasurementEvents
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if err := validateLimit(limit); err != nil {
		return model.SearchResponse{}, err
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "_time"
	}
	sortDesc := true
	if req.SortDescending != nil {
		sortDesc = *req.SortDescending
	}
	start, stop := defaultSearchStart, ""
	if req.Range != nil {
		if req.Range.Start != "" {
			start = req.Range.Start
		}
		stop = req.Range.Stop
	}

	builder := flux.NewBuilder().
		FromBucket(s.bucket).
		Range(start, stop).
		Measurement(measurement)

	for _, filter := range req.Filters {
		op := flux.Operator(filter.Operator)
		if filter.Operator == "" {
			op = flux.OpEq
		}
		builder.Filter(filter.Field, op, filter.Value)
	}

	if len(req.Fields) > 0 {
		builder.Keep(req.Fields)
	}
	builder.Sort([]string{sortBy}, sortDesc)
	builder.Limit(limit)

	query, err := builder.Build()
	if err != nil {
		return model.SearchResponse{}, err
	}

	rows, err := s.store.Query(ctx, query)
	if err != nil {
		return model.SearchResponse{Data: []map[string]any{}, Error: err.Error()}, nil
	}

	data := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		cleaned := make(map[string]any, len(row))
		for key, value := range row {
			if strings.HasPrefix(key, "_") && !allowedInternalColumn(key) {
				continue
			}
			cleaned[key] = value
		}
		data = append(data, cleaned)
	}
	return model.SearchResponse{Data: data, Count: len(data), Success: true}, nil
}

// rankingTail renders the group/aggregate/ungroup/sort/limit tail shared by
// the top-N questions. The ungroup between aggregate and sort merges the
// per-key tables so the sort and limit apply globally, which the builder's
// fixed stage order cannot express.
func rankingTail(groupColumn string, fn flux.AggregateFunction, limit int) string {
	var tail strings.Builder
	tail.WriteString(flux.StageSeparator + fmt.Sprintf(`|> group(columns: ["%s"])`, groupColumn))
	tail.WriteString(flux.StageSeparator + fmt.Sprintf("|> %s()", fn))
	tail.WriteString(flux.StageSeparator + "|> group()")
	tail.WriteString(flux.StageSeparator + `|> sort(columns: ["_value"], desc: true)`)
	tail.WriteString(flux.StageSeparator + fmt.Sprintf("|> limit(n: %d)", limit))
	return tail.String()
}

func trailingWindow(days int) string {
	return fmt.Sprintf("-%dd", days)
}

func validateDays(days int) error {
	if days < minDays || days > maxDays {
		return &ValidationError{Message: fmt.Sprintf("days must be between %d and %d", minDays, maxDays)}
	}
	return nil
}

func validateLimit(limit int) error {
	if limit < minLimit || limit > maxLimit {
		return &ValidationError{Message: fmt.Sprintf("limit must be between %d and %d", minLimit, maxLimit)}
	}
	return nil
}

func allowedInternalColumn(key string) bool {
	switch key {
	case "_time", "_value", "_field", "_measurement":
		return true
	default:
		return false
	}
}

func rowInt64(row map[string]any, key string) (int64, bool) {
	switch v := row[key].(type) {
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
