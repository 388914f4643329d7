// Package flux compiles analytical questions into Flux pipeline queries.
//
// The Builder is a single-use, fluent compiler: mutating methods accumulate
// pipeline stages and return the receiver, Build renders them into one query
// string. Stage order in the rendered text is fixed regardless of call
// order: source, range, filters (call order), custom stages (call order),
// keep, drop, group, aggregate, sort, offset, limit. Stages whose inputs
// were never set are omitted, never reordered. Downstream consumers match on
// the generated text, so the rendering templates here are contract.
package flux

import (
	"fmt"
	"strings"
)

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq       Operator = "=="
	OpNe       Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpRegex    Operator = "=~"
)

// AggregateFunction names a supported aggregate stage.
type AggregateFunction string

const (
	AggSum   AggregateFunction = "sum"
	AggCount AggregateFunction = "count"
	AggMean  AggregateFunction = "mean"
	AggMin   AggregateFunction = "min"
	AggMax   AggregateFunction = "max"
	AggFirst AggregateFunction = "first"
	AggLast  AggregateFunction = "last"
)

// ConfigurationError reports builder misuse: a missing bucket, an invalid
// bound, or an empty field or column list. It is a programmer error and is
// never captured into an analytics response.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

const defaultAggregateColumn = "_value"

// Builder accumulates pipeline stages for one query. The zero value is not
// ready to build; at minimum FromBucket must be called. A Builder is owned
// by a single call and is not safe for concurrent use. Build is pure and
// repeatable: it renders the same text every time for the same state.
type Builder struct {
	bucket          string
	rangeStart      string
	rangeStop       string
	filters         []string
	custom          []string
	keepColumns     []string
	dropColumns     []string
	groupColumns    []string
	aggregateFn     AggregateFunction
	aggregateColumn string
	sortColumns     []string
	sortDesc        bool
	limitCount      *int
	offsetCount     *int
	err             error
}

// NewBuilder returns an empty query builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// fail records the first misuse; later Build calls report it.
func (b *Builder) fail(msg string) *Builder {
	if b.err == nil {
		b.err = &ConfigurationError{Message: msg}
	}
	return b
}

// FromBucket sets the source bucket. Required before Build.
func (b *Builder) FromBucket(bucket string) *Builder {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return b.fail("bucket name cannot be empty")
	}
	b.bucket = bucket
	return b
}

// Range sets the query time window. Start is required; an empty stop
// defaults to now().
func (b *Builder) Range(start, stop string) *Builder {
	start = strings.TrimSpace(start)
	if start == "" {
		return b.fail("range start cannot be empty")
	}
	stop = strings.TrimSpace(stop)
	if stop == "" {
		stop = "now()"
	}
	b.rangeStart = start
	b.rangeStop = stop
	return b
}

// Filter appends one predicate stage. Predicates render in call order.
// String values are quoted, booleans render as true/false, nil renders as
// null, numbers render bare. Contains and regex use dedicated templates.
func (b *Builder) Filter(field string, op Operator, value any) *Builder {
	field = strings.TrimSpace(field)
	if field == "" {
		return b.fail("filter field cannot be empty")
	}

	var expr string
	switch op {
	case OpContains:
		expr = fmt.Sprintf("contains(value: %s, set: r.%s)", renderValue(value), field)
	case OpRegex:
		expr = fmt.Sprintf("r.%s =~ /%v/", field, value)
	default:
		expr = fmt.Sprintf("r.%s %s %s", field, op, renderValue(value))
	}

	b.filters = append(b.filters, fmt.Sprintf("|> filter(fn: (r) => %s)", expr))
	return b
}

// Measurement filters on the reserved _measurement column.
func (b *Builder) Measurement(name string) *Builder {
	return b.Filter("_measurement", OpEq, name)
}

// Field filters on the reserved _field column.
func (b *Builder) Field(name string) *Builder {
	return b.Filter("_field", OpEq, name)
}

// Keep restricts result columns to the given list.
func (b *Builder) Keep(columns []string) *Builder {
	if len(columns) == 0 {
		return b.fail("keep columns cannot be empty")
	}
	b.keepColumns = cleanColumns(columns)
	return b
}

// Drop removes the given columns from the result.
func (b *Builder) Drop(columns []string) *Builder {
	if len(columns) == 0 {
		return b.fail("drop columns cannot be empty")
	}
	b.dropColumns = cleanColumns(columns)
	return b
}

// GroupBy groups rows by the given columns.
func (b *Builder) GroupBy(columns []string) *Builder {
	if len(columns) == 0 {
		return b.fail("group columns cannot be empty")
	}
	b.groupColumns = cleanColumns(columns)
	return b
}

// Aggregate applies fn over column. An empty column means the default
// _value, in which case the rendered stage omits the column clause. At most
// one aggregate is active; a later call replaces the earlier one.
func (b *Builder) Aggregate(fn AggregateFunction, column string) *Builder {
	if column == "" {
		column = defaultAggregateColumn
	}
	b.aggregateFn = fn
	b.aggregateColumn = column
	return b
}

// Sort orders rows by the given columns. Ties are backend-defined; no
// secondary key is implied.
func (b *Builder) Sort(columns []string, desc bool) *Builder {
	if len(columns) == 0 {
		return b.fail("sort columns cannot be empty")
	}
	b.sortColumns = cleanColumns(columns)
	b.sortDesc = desc
	return b
}

// Limit bounds the number of rows returned. Must be positive.
func (b *Builder) Limit(n int) *Builder {
	if n <= 0 {
		return b.fail("limit must be positive")
	}
	b.limitCount = &n
	return b
}

// Offset skips the first n rows. Must not be negative.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		return b.fail("offset cannot be negative")
	}
	b.offsetCount = &n
	return b
}

// Custom appends one raw, already-rendered stage (without the pipe marker).
// Custom stages render after filters in call order.
func (b *Builder) Custom(operation string) *Builder {
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return b.fail("custom operation cannot be empty")
	}
	b.custom = append(b.custom, operation)
	return b
}

// Build renders the accumulated stages into one Flux query. It reports any
// misuse recorded by earlier calls and requires a bucket.
func (b *Builder) Build() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.bucket == "" {
		return "", &ConfigurationError{Message: "bucket must be set with FromBucket before build"}
	}

	parts := []string{fmt.Sprintf("from(bucket: \"%s\")", b.bucket)}

	if b.rangeStart != "" {
		parts = append(parts, fmt.Sprintf("|> range(start: %s, stop: %s)", b.rangeStart, b.rangeStop))
	}

	parts = append(parts, b.filters...)

	for _, op := range b.custom {
		parts = append(parts, "|> "+op)
	}

	if len(b.keepColumns) > 0 {
		parts = append(parts, fmt.Sprintf("|> keep(columns: [%s])", quoteColumns(b.keepColumns)))
	}
	if len(b.dropColumns) > 0 {
		parts = append(parts, fmt.Sprintf("|> drop(columns: [%s])", quoteColumns(b.dropColumns)))
	}
	if len(b.groupColumns) > 0 {
		parts = append(parts, fmt.Sprintf("|> group(columns: [%s])", quoteColumns(b.groupColumns)))
	}

	if b.aggregateFn != "" {
		if b.aggregateColumn != defaultAggregateColumn {
			parts = append(parts, fmt.Sprintf("|> %s(column: \"%s\")", b.aggregateFn, b.aggregateColumn))
		} else {
			parts = append(parts, fmt.Sprintf("|> %s()", b.aggregateFn))
		}
	}

	if len(b.sortColumns) > 0 {
		parts = append(parts, fmt.Sprintf("|> sort(columns: [%s], desc: %t)", quoteColumns(b.sortColumns), b.sortDesc))
	}

	if b.offsetCount != nil {
		parts = append(parts, fmt.Sprintf("|> tail(n: -%d)", *b.offsetCount))
	}
	if b.limitCount != nil {
		parts = append(parts, fmt.Sprintf("|> limit(n: %d)", *b.limitCount))
	}

	return strings.Join(parts, StageSeparator), nil
}

// StageSeparator joins rendered stages; exported so callers appending raw
// tail stages keep the query layout consistent.
const StageSeparator = "\n    "

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("\"%s\"", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

func cleanColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		col = strings.TrimSpace(col)
		if col != "" {
			out = append(out, col)
		}
	}
	return out
}

func quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("\"%s\"", col)
	}
	return strings.Join(quoted, ", ")
}
