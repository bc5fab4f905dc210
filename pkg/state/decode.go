package state

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-rtbind"
	"github.com/goliatone/go-rtbind/internal/hydrate"
)

var (
	// ErrFieldNotFound reports a field the host does not hold.
	ErrFieldNotFound = errors.New("state: field not found")
	// ErrNotBound reports a field whose value is not a bound record or array.
	ErrNotBound = errors.New("state: field is not bound")
)

// Decode hydrates the record held by an object-bound field into T. The
// record's key is available to T through a `json:".key"` tag.
func Decode[T any](h *Host, field string) (T, error) {
	var zero T
	value, ok := h.Get(field)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrFieldNotFound, field)
	}
	record, ok := value.(rtbind.Record)
	if !ok {
		return zero, fmt.Errorf("%w: %q holds %T", ErrNotBound, field, value)
	}
	key, _ := record.Key()
	return hydrate.NewDecoder[T]().Decode(hydrate.Context{Field: field, Key: key}, record)
}

// DecodeAll hydrates every record of an array-bound field into T, in order.
func DecodeAll[T any](h *Host, field string) ([]T, error) {
	array, ok := h.Array(field)
	if !ok {
		if _, exists := h.Get(field); !exists {
			return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, field)
		}
		return nil, fmt.Errorf("%w: %q is not an array", ErrNotBound, field)
	}
	h.mu.RLock()
	records := array.Records()
	h.mu.RUnlock()

	payloads := make([]map[string]any, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, record)
	}
	return hydrate.NewDecoder[T]().DecodeEach(field, payloads, func(payload map[string]any) string {
		key, _ := rtbind.Record(payload).Key()
		return key
	})
}
