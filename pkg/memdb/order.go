package memdb

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

type orderBy int

const (
	orderByKey orderBy = iota
	orderByChild
	orderByValue
)

// query describes how a location's children are ordered and windowed.
type query struct {
	order   orderBy
	child   []string
	limit   int
	fromEnd bool
}

func (q query) equal(other query) bool {
	return q.order == other.order &&
		slices.Equal(q.child, other.child) &&
		q.limit == other.limit &&
		q.fromEnd == other.fromEnd
}

type entry struct {
	key   string
	value any
}

// children returns node's children in query order, limited to the window.
func (q query) children(node any) []entry {
	fields, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	entries := make([]entry, 0, len(fields))
	for key, value := range fields {
		entries = append(entries, entry{key: key, value: value})
	}
	slices.SortFunc(entries, q.compare)
	if q.limit > 0 && len(entries) > q.limit {
		if q.fromEnd {
			entries = entries[len(entries)-q.limit:]
		} else {
			entries = entries[:q.limit]
		}
	}
	return entries
}

// view returns node restricted to the query window.
func (q query) view(node any) any {
	if q.limit == 0 {
		return node
	}
	entries := q.children(node)
	if entries == nil {
		return node
	}
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		out[e.key] = e.value
	}
	return out
}

func (q query) compare(a, b entry) int {
	switch q.order {
	case orderByChild:
		if c := compareValues(lookup(a.value, q.child), lookup(b.value, q.child)); c != 0 {
			return c
		}
	case orderByValue:
		if c := compareValues(a.value, b.value); c != 0 {
			return c
		}
	}
	return compareKeys(a.key, b.key)
}

// compareKeys orders 32-bit integer keys numerically ahead of all other keys,
// which compare lexicographically.
func compareKeys(a, b string) int {
	ai, aInt := intKey(a)
	bi, bInt := intKey(b)
	switch {
	case aInt && bInt:
		return cmp.Compare(ai, bi)
	case aInt:
		return -1
	case bInt:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func intKey(key string) (int64, bool) {
	n, err := strconv.ParseInt(key, 10, 32)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != key {
		return 0, false
	}
	return n, true
}

// valueRank orders value kinds: null, booleans, numbers, strings, objects.
func valueRank(value any) int {
	switch value.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func compareValues(a, b any) int {
	if c := cmp.Compare(valueRank(a), valueRank(b)); c != 0 {
		return c
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

// lookup walks path below node, returning nil when any segment is missing.
func lookup(node any, path []string) any {
	for _, segment := range path {
		fields, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = fields[segment]
	}
	return node
}
