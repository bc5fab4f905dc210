package memdb

import (
	"reflect"
	"slices"

	"github.com/goliatone/go-rtbind"
)

type delivery struct {
	listener *listener
	snapshot Snapshot
	prevKey  string
}

// change is one step of the event sequence a write causes at a location.
type change struct {
	event   rtbind.EventType
	key     string
	node    any
	prevKey string
}

func (l *listener) key() string {
	if len(l.path) == 0 {
		return ""
	}
	return l.path[len(l.path)-1]
}

func (l *listener) snapshot(c change) Snapshot {
	if c.event == rtbind.EventValue {
		return Snapshot{key: l.key(), node: c.node, query: l.query}
	}
	return Snapshot{key: c.key, node: c.node}
}

// initial returns the events a listener receives on registration: the
// current value, or one child_added per existing child in order.
func initial(l *listener, root any) []delivery {
	node := lookup(root, l.path)
	switch l.event {
	case rtbind.EventValue:
		return []delivery{{listener: l, snapshot: l.snapshot(change{event: rtbind.EventValue, node: l.query.view(node)})}}
	case rtbind.EventChildAdded:
		var out []delivery
		prev := ""
		for _, e := range l.query.children(node) {
			c := change{event: rtbind.EventChildAdded, key: e.key, node: e.value, prevKey: prev}
			out = append(out, delivery{listener: l, snapshot: l.snapshot(c), prevKey: prev})
			prev = e.key
		}
		return out
	}
	return nil
}

type listenerGroup struct {
	path    []string
	query   query
	members []*listener
}

// groupListeners buckets active listeners by location and query, keeping
// registration order within and across groups.
func groupListeners(listeners []*listener) []*listenerGroup {
	var groups []*listenerGroup
	for _, l := range listeners {
		if !l.active {
			continue
		}
		var group *listenerGroup
		for _, g := range groups {
			if slices.Equal(g.path, l.path) && g.query.equal(l.query) {
				group = g
				break
			}
		}
		if group == nil {
			group = &listenerGroup{path: l.path, query: l.query}
			groups = append(groups, group)
		}
		group.members = append(group.members, l)
	}
	return groups
}

// diff returns the deliveries a write from before to after causes, in the
// order a consumer must apply them to mirror the location's children.
func diff(listeners []*listener, before, after any) []delivery {
	var out []delivery
	for _, group := range groupListeners(listeners) {
		for _, c := range locationChanges(group.query, lookup(before, group.path), lookup(after, group.path)) {
			for _, l := range group.members {
				if l.event != c.event {
					continue
				}
				out = append(out, delivery{listener: l, snapshot: l.snapshot(c), prevKey: c.prevKey})
			}
		}
	}
	return out
}

// locationChanges computes removals first, then additions and moves in final
// order, then in-place changes, then the value change.
//
// Children kept in relative order form the longest increasing run of final
// positions and never move. Every other child is placed right after its final
// predecessor, so each prevKey names a child the consumer already holds.
func locationChanges(q query, before, after any) []change {
	if reflect.DeepEqual(before, after) {
		return nil
	}
	var out []change
	previous := q.children(before)
	next := q.children(after)

	position := make(map[string]int, len(next))
	for i, e := range next {
		position[e.key] = i
	}
	previousValues := make(map[string]any, len(previous))
	current := make([]string, 0, len(previous)+len(next))
	for _, e := range previous {
		previousValues[e.key] = e.value
		if _, kept := position[e.key]; !kept {
			out = append(out, change{event: rtbind.EventChildRemoved, key: e.key, node: e.value})
			continue
		}
		current = append(current, e.key)
	}
	stable := stableKeys(current, position)

	for i, e := range next {
		prev := ""
		if i > 0 {
			prev = next[i-1].key
		}
		if _, existed := previousValues[e.key]; !existed {
			current = slices.Insert(current, insertAfter(current, prev), e.key)
			out = append(out, change{event: rtbind.EventChildAdded, key: e.key, node: e.value, prevKey: prev})
			continue
		}
		if _, ok := stable[e.key]; ok {
			continue
		}
		from := slices.Index(current, e.key)
		current = slices.Delete(current, from, from+1)
		to := insertAfter(current, prev)
		current = slices.Insert(current, to, e.key)
		if to == from {
			continue
		}
		out = append(out, change{event: rtbind.EventChildMoved, key: e.key, node: e.value, prevKey: prev})
	}

	for i, e := range next {
		old, existed := previousValues[e.key]
		if !existed || reflect.DeepEqual(old, e.value) {
			continue
		}
		prev := ""
		if i > 0 {
			prev = next[i-1].key
		}
		out = append(out, change{event: rtbind.EventChildChanged, key: e.key, node: e.value, prevKey: prev})
	}

	oldView, newView := q.view(before), q.view(after)
	if !reflect.DeepEqual(oldView, newView) {
		out = append(out, change{event: rtbind.EventValue, node: newView})
	}
	return out
}

func insertAfter(keys []string, prev string) int {
	if prev == "" {
		return 0
	}
	return slices.Index(keys, prev) + 1
}

// stableKeys returns the keys of current that form a longest run whose final
// positions increase.
func stableKeys(current []string, position map[string]int) map[string]struct{} {
	// tails[k] is the index in current ending the best run of length k+1.
	tails := make([]int, 0, len(current))
	parent := make([]int, len(current))
	for i, key := range current {
		pos := position[key]
		k, _ := slices.BinarySearchFunc(tails, pos, func(tail int, target int) int {
			return position[current[tail]] - target
		})
		parent[i] = -1
		if k > 0 {
			parent[i] = tails[k-1]
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}
	stable := make(map[string]struct{}, len(tails))
	if len(tails) == 0 {
		return stable
	}
	for i := tails[len(tails)-1]; i >= 0; i = parent[i] {
		stable[current[i]] = struct{}{}
	}
	return stable
}
