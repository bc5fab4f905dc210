package rtbind

import "encoding/json"

// Array is the ordered sequence of Records owned by an array binding. Its order
// mirrors the remote collection's sibling order.
//
// Array is not safe for concurrent mutation; bindings mutate it only from
// source callbacks, which are serialized.
type Array struct {
	records []Record
}

// NewArray returns an empty Array.
func NewArray() *Array {
	return &Array{records: []Record{}}
}

// Len returns the number of records.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.records)
}

// At returns the record at index, or nil when out of range.
func (a *Array) At(index int) Record {
	if a == nil || index < 0 || index >= len(a.records) {
		return nil
	}
	return a.records[index]
}

// Records returns a copy of the current sequence.
func (a *Array) Records() []Record {
	if a == nil {
		return []Record{}
	}
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Keys returns the identifying keys in order.
func (a *Array) Keys() []string {
	if a == nil {
		return []string{}
	}
	keys := make([]string, 0, len(a.records))
	for _, record := range a.records {
		key, _ := record.Key()
		keys = append(keys, key)
	}
	return keys
}

// IndexOf is IndexForKey over the array's current records.
func (a *Array) IndexOf(key string) int {
	if a == nil {
		return -1
	}
	return IndexForKey(a.records, key)
}

// Insert places record at index, shifting later records right. An index past
// the end appends; a negative index prepends.
func (a *Array) Insert(index int, record Record) {
	if index < 0 {
		index = 0
	}
	if index >= len(a.records) {
		a.records = append(a.records, record)
		return
	}
	a.records = append(a.records, nil)
	copy(a.records[index+1:], a.records[index:])
	a.records[index] = record
}

// RemoveAt removes and returns the record at index. It reports false when the
// index is out of range.
func (a *Array) RemoveAt(index int) (Record, bool) {
	if index < 0 || index >= len(a.records) {
		return nil, false
	}
	removed := a.records[index]
	copy(a.records[index:], a.records[index+1:])
	a.records[len(a.records)-1] = nil
	a.records = a.records[:len(a.records)-1]
	return removed, true
}

// Replace overwrites the record at index. It reports false when the index is
// out of range.
func (a *Array) Replace(index int, record Record) bool {
	if index < 0 || index >= len(a.records) {
		return false
	}
	a.records[index] = record
	return true
}

// MarshalJSON encodes the array as a JSON array of records.
func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Records())
}
