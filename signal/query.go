package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// ErrNoResult is returned when a query yields no value.
var ErrNoResult = errors.New("query returned no result")

// Query extracts a comparable value from a decoded JSON document.
type Query struct {
	src  string
	code *gojq.Code
}

// ParseQuery compiles a jq expression.
func ParseQuery(src string) (*Query, error) {
	q, err := gojq.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", src, err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", src, err)
	}
	return &Query{src: src, code: code}, nil
}

// String returns the source of the query.
func (q *Query) String() string {
	return q.src
}

// Extract runs the query on v and returns the first result as a string.
func (q *Query) Extract(ctx context.Context, v any) (string, error) {
	iter := q.code.RunWithContext(ctx, v)
	x, ok := iter.Next()
	if !ok {
		return "", ErrNoResult
	}
	if err, ok := x.(error); ok {
		return "", err
	}
	return Stringify(x)
}

// Stringify returns strings as is and encodes any other value as JSON.
func Stringify(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
