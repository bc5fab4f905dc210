package memdb

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-rtbind"
)

// Ref points at a location in the tree, optionally with an ordering and a
// limit. Refs are cheap values; ordering methods return new Refs.
type Ref struct {
	db    *DB
	path  []string
	query query
}

var _ rtbind.Source = (*Ref)(nil)

// Key returns the last path segment, or "" at the root.
func (r *Ref) Key() string {
	if len(r.path) == 0 {
		return ""
	}
	return r.path[len(r.path)-1]
}

// Path returns the slash separated absolute path.
func (r *Ref) Path() string {
	return "/" + strings.Join(r.path, "/")
}

func (r *Ref) String() string {
	return r.Path()
}

// Parent returns the parent location, or nil at the root.
func (r *Ref) Parent() *Ref {
	if len(r.path) == 0 {
		return nil
	}
	return &Ref{db: r.db, path: r.path[: len(r.path)-1 : len(r.path)-1]}
}

// Child returns the location at the relative path below r.
func (r *Ref) Child(path string) (*Ref, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	joined := make([]string, 0, len(r.path)+len(segments))
	joined = append(joined, r.path...)
	joined = append(joined, segments...)
	return &Ref{db: r.db, path: joined}, nil
}

// OrderByKey orders children by key; integer keys come first.
func (r *Ref) OrderByKey() *Ref {
	return r.withQuery(func(q *query) {
		q.order = orderByKey
		q.child = nil
	})
}

// OrderByChild orders children by the value at path inside each child.
func (r *Ref) OrderByChild(path string) (*Ref, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: order by child needs a path", ErrInvalidKey)
	}
	return r.withQuery(func(q *query) {
		q.order = orderByChild
		q.child = segments
	}), nil
}

// OrderByValue orders children by their own value.
func (r *Ref) OrderByValue() *Ref {
	return r.withQuery(func(q *query) {
		q.order = orderByValue
		q.child = nil
	})
}

// LimitToFirst keeps the first n children in query order.
func (r *Ref) LimitToFirst(n int) *Ref {
	return r.withQuery(func(q *query) {
		q.limit = max(n, 0)
		q.fromEnd = false
	})
}

// LimitToLast keeps the last n children in query order.
func (r *Ref) LimitToLast(n int) *Ref {
	return r.withQuery(func(q *query) {
		q.limit = max(n, 0)
		q.fromEnd = true
	})
}

func (r *Ref) withQuery(apply func(*query)) *Ref {
	next := &Ref{db: r.db, path: r.path, query: r.query}
	apply(&next.query)
	return next
}

// Get returns the current value of the location.
func (r *Ref) Get() Snapshot {
	r.db.mu.Lock()
	node := lookup(r.db.root, r.path)
	r.db.mu.Unlock()
	return Snapshot{key: r.Key(), node: r.query.view(node), query: r.query}
}

// Set replaces the location's value. A nil value removes it.
func (r *Ref) Set(value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("memdb: set %s: %w", r.Path(), err)
	}
	r.db.write(map[string]writeOp{r.Path(): {path: r.path, value: normalized}})
	return nil
}

// Update writes several relative paths below the location in one atomic
// step. Nil values remove their path.
func (r *Ref) Update(values map[string]any) error {
	changes := make(map[string]writeOp, len(values))
	for relative, value := range values {
		child, err := r.Child(relative)
		if err != nil {
			return fmt.Errorf("memdb: update %s: %w", r.Path(), err)
		}
		normalized, err := normalize(value)
		if err != nil {
			return fmt.Errorf("memdb: update %s: %w", child.Path(), err)
		}
		changes[child.Path()] = writeOp{path: child.path, value: normalized}
	}
	if len(changes) == 0 {
		return nil
	}
	r.db.write(changes)
	return nil
}

// Remove deletes the location.
func (r *Ref) Remove() error {
	return r.Set(nil)
}

// Push creates a child with a generated, time-ordered key and stores value
// in it. A nil value only reserves the key.
func (r *Ref) Push(value any) (*Ref, error) {
	child, err := r.Child(r.db.newKey())
	if err != nil {
		return nil, err
	}
	if value == nil {
		return child, nil
	}
	if err := child.Set(value); err != nil {
		return nil, err
	}
	return child, nil
}

// On registers callback for event and delivers the initial events: the
// current value, or a child_added per existing child.
func (r *Ref) On(event rtbind.EventType, callback rtbind.EventCallback, cancel rtbind.CancelCallback) rtbind.Handle {
	if callback == nil {
		return nil
	}
	return r.db.subscribe(&listener{
		path:     r.path,
		query:    r.query,
		event:    event,
		callback: callback,
		cancel:   cancel,
	})
}

// Off removes the listener identified by handle. A nil handle removes every
// listener for event registered at this location and query.
func (r *Ref) Off(event rtbind.EventType, handle rtbind.Handle) {
	if handle == nil {
		r.db.unsubscribe(func(l *listener) bool {
			return l.event == event && hasPrefix(l.path, r.path) && len(l.path) == len(r.path) && l.query.equal(r.query)
		})
		return
	}
	id, ok := handle.(uint64)
	if !ok {
		return
	}
	r.db.unsubscribe(func(l *listener) bool {
		return l.id == id && l.event == event
	})
}

// Once delivers the next event of the given type a single time. For value
// that is the current value.
func (r *Ref) Once(event rtbind.EventType, callback func(rtbind.Snapshot)) {
	if callback == nil {
		return
	}
	r.db.subscribe(&listener{
		path:  r.path,
		query: r.query,
		event: event,
		once:  true,
		callback: func(snapshot rtbind.Snapshot, _ string) {
			callback(snapshot)
		},
	})
}
