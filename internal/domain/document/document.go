package document

import (
	"encoding/json"
	"errors"
	"time"
)

// TimeLayout is the canonical timestamp encoding inside documents. All
// times are stored in UTC with millisecond precision so that string
// comparison orders them chronologically.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Domain errors
var (
	ErrNotFound        = errors.New("document not found")
	ErrEmptyCollection = errors.New("collection name cannot be empty")
	ErrInvalidField    = errors.New("invalid field name")
)

// Fields is a plain record of field name to value written to a collection.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value replaced by the store's own
// clock when the write is applied.
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// FormatTime renders t in the canonical stored form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Op is a filter comparison operator.
type Op string

const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

// Filter restricts a query to documents whose field compares true against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a filtered, ordered, limited read of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int // 0 means no limit
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Document is one stored record and its identifier.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
// PRE: v is a non-nil pointer
// POST: v holds the decoded fields; the ID is not part of the body
func (d Document) Decode(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	return json.Unmarshal(d.Data, v)
}

// Fields decodes the document body into a generic map.
func (d Document) Fields() (Fields, error) {
	f := Fields{}
	if err := d.Decode(&f); err != nil {
		return nil, err
	}
	return f, nil
}
