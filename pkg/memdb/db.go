// Package memdb is an in-memory realtime tree. References expose the ordered
// keyed event streams (value, child_added, child_removed, child_changed,
// child_moved) that rtbind binders consume.
//
// Every write computes the events it causes for each registered listener and
// delivers them through a single queue, so callbacks never overlap even when
// they write back into the tree.
package memdb

import (
	"sort"
	"sync"

	"github.com/goliatone/go-rtbind"
	"github.com/google/uuid"
)

// DB holds the tree and its listeners. The zero value is not usable; call New.
type DB struct {
	mu        sync.Mutex
	root      any
	nextID    uint64
	listeners []*listener
	queue     []func()
	draining  bool
	newKey    func() string
}

// Option configures a DB.
type Option func(*DB)

// WithKeyGenerator replaces the push key generator. Keys must sort in
// creation order for pushed children to keep chronological order.
func WithKeyGenerator(fn func() string) Option {
	return func(db *DB) {
		if fn != nil {
			db.newKey = fn
		}
	}
}

// New returns an empty tree.
func New(opts ...Option) *DB {
	db := &DB{newKey: newPushKey}
	for _, opt := range opts {
		if opt != nil {
			opt(db)
		}
	}
	return db
}

// newPushKey returns a time-ordered key. Version 7 UUIDs sort
// lexicographically by creation time.
func newPushKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Ref returns a reference to path. An empty path or "/" is the root.
func (db *DB) Ref(path string) (*Ref, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	return &Ref{db: db, path: segments}, nil
}

// Root returns a reference to the root of the tree.
func (db *DB) Root() *Ref {
	return &Ref{db: db}
}

type listener struct {
	id       uint64
	path     []string
	query    query
	event    rtbind.EventType
	callback rtbind.EventCallback
	cancel   rtbind.CancelCallback
	once     bool
	active   bool
}

// write replaces the subtree at each path with its value in one atomic step
// and queues the resulting events.
func (db *DB) write(changes map[string]writeOp) {
	paths := make([]string, 0, len(changes))
	for path := range changes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	db.mu.Lock()
	before := db.root
	after := before
	for _, path := range paths {
		change := changes[path]
		after = setAt(after, change.path, change.value)
	}
	db.root = after
	for _, d := range diff(db.listeners, before, after) {
		db.queue = append(db.queue, db.deliver(d))
	}
	db.mu.Unlock()
	db.drain()
}

type writeOp struct {
	path  []string
	value any
}

// setAt returns a copy of node with value stored at path. Only the maps along
// path are copied; the previous tree stays intact for diffing.
func setAt(node any, path []string, value any) any {
	if len(path) == 0 {
		return value
	}
	fields, _ := node.(map[string]any)
	next := make(map[string]any, len(fields)+1)
	for key, child := range fields {
		next[key] = child
	}
	child := setAt(fields[path[0]], path[1:], value)
	if child == nil {
		delete(next, path[0])
	} else {
		next[path[0]] = child
	}
	if len(next) == 0 {
		return nil
	}
	return next
}

// subscribe registers l and queues its initial events.
func (db *DB) subscribe(l *listener) uint64 {
	db.mu.Lock()
	db.nextID++
	l.id = db.nextID
	l.active = true
	db.listeners = append(db.listeners, l)
	for _, d := range initial(l, db.root) {
		db.queue = append(db.queue, db.deliver(d))
	}
	db.mu.Unlock()
	db.drain()
	return l.id
}

// unsubscribe deactivates and drops every listener match returns true for.
func (db *DB) unsubscribe(match func(*listener) bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	kept := db.listeners[:0]
	for _, l := range db.listeners {
		if match(l) {
			l.active = false
			continue
		}
		kept = append(kept, l)
	}
	for i := len(kept); i < len(db.listeners); i++ {
		db.listeners[i] = nil
	}
	db.listeners = kept
}

// Fail cancels every listener at or below path, passing err to its cancel
// callback. It simulates a revoked permission on the server side.
func (db *DB) Fail(path string, err error) error {
	segments, splitErr := splitPath(path)
	if splitErr != nil {
		return splitErr
	}
	var cancelled []*listener
	db.unsubscribe(func(l *listener) bool {
		if hasPrefix(l.path, segments) {
			cancelled = append(cancelled, l)
			return true
		}
		return false
	})
	db.mu.Lock()
	for _, l := range cancelled {
		if l.cancel == nil {
			continue
		}
		cancel := l.cancel
		db.queue = append(db.queue, func() { cancel(err) })
	}
	db.mu.Unlock()
	db.drain()
	return nil
}

// Listeners returns the number of active listeners.
func (db *DB) Listeners() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.listeners)
}

func (db *DB) deliver(d delivery) func() {
	return func() {
		db.mu.Lock()
		active := d.listener.active
		if active && d.listener.once {
			d.listener.active = false
			db.removeLocked(d.listener)
		}
		db.mu.Unlock()
		if !active {
			return
		}
		d.listener.callback(d.snapshot, d.prevKey)
	}
}

func (db *DB) removeLocked(target *listener) {
	for i, l := range db.listeners {
		if l == target {
			db.listeners = append(db.listeners[:i], db.listeners[i+1:]...)
			return
		}
	}
}

// drain runs queued callbacks in order. A callback that writes only appends
// to the queue; the outermost drain delivers it.
func (db *DB) drain() {
	db.mu.Lock()
	if db.draining {
		db.mu.Unlock()
		return
	}
	db.draining = true
	completed := false
	defer func() {
		if !completed {
			db.mu.Lock()
			db.draining = false
			db.mu.Unlock()
		}
	}()
	for len(db.queue) > 0 {
		next := db.queue[0]
		db.queue[0] = nil
		db.queue = db.queue[1:]
		db.mu.Unlock()
		next()
		db.mu.Lock()
	}
	db.draining = false
	completed = true
	db.mu.Unlock()
}

func hasPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, segment := range prefix {
		if path[i] != segment {
			return false
		}
	}
	return true
}
