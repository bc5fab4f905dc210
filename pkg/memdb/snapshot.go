package memdb

import "github.com/goliatone/go-rtbind/layering"

// Snapshot is an immutable view of a location. Val returns a deep copy, so
// callers may keep or modify it freely.
type Snapshot struct {
	key   string
	node  any
	query query
}

// Key returns the last path segment of the location, or "" for the root.
func (s Snapshot) Key() string {
	return s.key
}

// Val returns the location's value as plain Go data: nil, bool, float64,
// string or map[string]any.
func (s Snapshot) Val() any {
	return layering.Clone(s.node)
}

// Exists reports whether the location holds data.
func (s Snapshot) Exists() bool {
	return s.node != nil
}

// Child returns a snapshot of the relative path below s.
func (s Snapshot) Child(path string) Snapshot {
	segments, err := splitPath(path)
	if err != nil || len(segments) == 0 {
		return Snapshot{key: s.key}
	}
	return Snapshot{key: segments[len(segments)-1], node: lookup(s.node, segments)}
}

// HasChild reports whether path exists below s.
func (s Snapshot) HasChild(path string) bool {
	return s.Child(path).Exists()
}

// NumChildren returns the number of direct children.
func (s Snapshot) NumChildren() int {
	fields, _ := s.node.(map[string]any)
	return len(fields)
}

// Keys returns the child keys in query order.
func (s Snapshot) Keys() []string {
	entries := s.query.children(s.node)
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.key)
	}
	return keys
}

// ForEach visits children in query order until fn returns true. It reports
// whether iteration was stopped early.
func (s Snapshot) ForEach(fn func(Snapshot) bool) bool {
	for _, e := range s.query.children(s.node) {
		if fn(Snapshot{key: e.key, node: e.value}) {
			return true
		}
	}
	return false
}
