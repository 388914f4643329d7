package model

import (
	"errors"
	"fmt"
	"time"
)

// Point is the storable projection of an event: one measurement, one
// timestamp, string-valued tags for identity dimensions and typed fields
// for payload values.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// Validate checks the structural invariants of a point before it is handed
// to the backend: non-empty measurement, a timestamp, at least one field,
// and disjoint tag/field key sets.
func (p Point) Validate() error {
	if p.Measurement == "" {
		return errors.New("point measurement cannot be empty")
	}
	if p.Time.IsZero() {
		return errors.New("point timestamp cannot be zero")
	}
	if len(p.Fields) == 0 {
		return errors.New("point must carry at least one field")
	}
	for key := range p.Tags {
		if _, clash := p.Fields[key]; clash {
			return fmt.Errorf("point key %q used as both tag and field", key)
		}
	}
	return nil
}
