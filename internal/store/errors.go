package store

import "fmt"

// BackendError wraps a communication or execution failure against the
// time-series backend. The analytics service catches it and converts it
// into a failure-shaped response; it never crosses that boundary as an
// error.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("influx %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
