package model

import (
	"encoding/json"
	"sort"
)

// ChatterCount is one entry of a top-chatters ranking.
type ChatterCount struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
}

// TipperTotal is one entry of a top-tippers ranking.
type TipperTotal struct {
	Username    string `json:"username"`
	TotalTokens int64  `json:"total_tokens"`
}

// TotalTipsResponse reports the token sum over a trailing window. Backend
// failures are captured into the response (Success=false, Error set) rather
// than returned as errors.
type TotalTipsResponse struct {
	TotalTokens int64  `json:"total_tokens"`
	Days        int    `json:"days"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// TopChattersResponse ranks users by message count over a trailing window.
type TopChattersResponse struct {
	Chatters []ChatterCount `json:"chatters"`
	Days     int            `json:"days"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
}

// TopTippersResponse ranks users by tipped tokens over a trailing window.
type TopTippersResponse struct {
	Tippers []TipperTotal `json:"tippers"`
	Days    int           `json:"days"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

// SearchResponse carries the rows of a generic search. Internal columns are
// stripped except _time, _value, _field and _measurement.
type SearchResponse struct {
	Data    []map[string]any `json:"data"`
	Count   int              `json:"count"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
}

// SearchFilter is one predicate of a search request. An empty Operator means
// simple equality. Operator text the builder does not recognize is forwarded
// into the query verbatim; the backend rejects it if it is meaningless.
type SearchFilter struct {
	Field    string
	Operator string
	Value    any
}

// SearchFilters decodes the wire shape of search filters: an object whose
// values are either a bare value ({"method": "tip"}) or an operator envelope
// ({"user": {"operator": "!=", "value": ""}}). JSON objects carry no order,
// so fields are sorted by name to keep query compilation deterministic.
type SearchFilters []SearchFilter

func (f *SearchFilters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(SearchFilters, 0, len(raw))
	for _, key := range keys {
		filter, err := decodeFilter(key, raw[key])
		if err != nil {
			return err
		}
		out = append(out, filter)
	}
	*f = out
	return nil
}

func decodeFilter(field string, raw json.RawMessage) (SearchFilter, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		opRaw, hasOp := envelope["operator"]
		valRaw, hasVal := envelope["value"]
		if hasOp && hasVal {
			var op string
			if err := json.Unmarshal(opRaw, &op); err != nil {
				return SearchFilter{}, err
			}
			var val any
			if err := json.Unmarshal(valRaw, &val); err != nil {
				return SearchFilter{}, err
			}
			return SearchFilter{Field: field, Operator: op, Value: val}, nil
		}
	}

	var val any
	if err := json.Unmarshal(raw, &val); err != nil {
		return SearchFilter{}, err
	}
	return SearchFilter{Field: field, Value: val}, nil
}

// RangeConfig is the time window of a search, in Flux notation (durations
// like "-7d" or RFC3339 instants).
type RangeConfig struct {
	Start string `json:"start"`
	Stop  string `json:"stop"`
}

// SearchRequest is the generic parameterized query path. Zero values take
// defaults at the service boundary: measurement stream_events, range -7d to
// now, sort by _time descending, limit 100.
type SearchRequest struct {
	Measurement    string        `json:"measurement"`
	Filters        SearchFilters `json:"filters"`
	Range          *RangeConfig  `json:"range"`
	Fields         []string      `json:"fields"`
	SortBy         string        `json:"sort_by"`
	SortDescending *bool         `json:"sort_desc"`
	Limit          int           `json:"limit"`
}
