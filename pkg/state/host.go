package state

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/goliatone/go-rtbind"
	"github.com/goliatone/go-rtbind/layering"
)

// WatchFunc receives the field that changed and its current value.
type WatchFunc func(field string, value any)

// Host is a set of named fields safe for concurrent reads. Mutations made
// through Ops or SetField notify the field's watchers after the lock is
// released.
type Host struct {
	mu       sync.RWMutex
	fields   map[string]any
	owners   map[*rtbind.Array]string
	watchers map[string]map[uint64]WatchFunc
	nextID   uint64
}

var _ rtbind.FieldSetter = (*Host)(nil)

// NewHost returns a host seeded with initial fields.
func NewHost(initial map[string]any) *Host {
	h := &Host{
		fields:   map[string]any{},
		owners:   map[*rtbind.Array]string{},
		watchers: map[string]map[uint64]WatchFunc{},
	}
	for name, value := range initial {
		h.fields[name] = value
		if array, ok := value.(*rtbind.Array); ok {
			h.owners[array] = name
		}
	}
	return h
}

// Get returns the field's current value.
func (h *Host) Get(field string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	value, ok := h.fields[field]
	return value, ok
}

// Array returns the field's value when it is a bound array.
func (h *Host) Array(field string) (*rtbind.Array, bool) {
	value, _ := h.Get(field)
	array, ok := value.(*rtbind.Array)
	return array, ok
}

// Fields returns the field names in sorted order.
func (h *Host) Fields() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.fields))
	for name := range h.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetField replaces the field's value and notifies its watchers.
func (h *Host) SetField(name string, value any) {
	h.mu.Lock()
	if previous, ok := h.fields[name].(*rtbind.Array); ok {
		delete(h.owners, previous)
	}
	h.fields[name] = value
	if array, ok := value.(*rtbind.Array); ok {
		h.owners[array] = name
	}
	watchers := h.watchersLocked(name)
	h.mu.Unlock()
	notify(watchers, name, value)
}

// Watch calls fn after every change to field. The returned function stops
// the watch.
func (h *Host) Watch(field string, fn WatchFunc) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.watchers[field] == nil {
		h.watchers[field] = map[uint64]WatchFunc{}
	}
	h.watchers[field][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers[field], id)
			if len(h.watchers[field]) == 0 {
				delete(h.watchers, field)
			}
			h.mu.Unlock()
		})
	}
}

// Snapshot returns a deep copy of every field. Bound arrays are copied as
// []rtbind.Record.
func (h *Host) Snapshot() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]any, len(h.fields))
	for name, value := range h.fields {
		if array, ok := value.(*rtbind.Array); ok {
			out[name] = layering.Clone(array.Records())
			continue
		}
		out[name] = layering.Clone(value)
	}
	return out
}

// MarshalJSON encodes Snapshot.
func (h *Host) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Snapshot())
}

// Ops returns mutation operations that keep the host consistent for readers
// and notify watchers of the owning field.
func (h *Host) Ops() rtbind.Ops {
	return hostOps{host: h}
}

func (h *Host) watchersLocked(field string) []WatchFunc {
	registered := h.watchers[field]
	if len(registered) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]WatchFunc, 0, len(ids))
	for _, id := range ids {
		out = append(out, registered[id])
	}
	return out
}

// mutateArray runs fn on array under the host lock and notifies the owning
// field's watchers.
func (h *Host) mutateArray(array *rtbind.Array, fn func()) {
	h.mu.Lock()
	fn()
	field, owned := h.owners[array]
	var watchers []WatchFunc
	if owned {
		watchers = h.watchersLocked(field)
	}
	h.mu.Unlock()
	if owned {
		notify(watchers, field, array)
	}
}

func notify(watchers []WatchFunc, field string, value any) {
	for _, fn := range watchers {
		fn(field, value)
	}
}

type hostOps struct {
	host *Host
}

func (o hostOps) Set(target any, key any, value any) {
	switch t := target.(type) {
	case *rtbind.Array:
		o.host.mutateArray(t, func() {
			rtbind.DefaultOps.Set(t, key, value)
		})
	case *Host:
		if name, ok := key.(string); ok {
			t.SetField(name, value)
		}
	default:
		rtbind.DefaultOps.Set(target, key, value)
	}
}

func (o hostOps) Add(array *rtbind.Array, index int, record rtbind.Record) {
	o.host.mutateArray(array, func() {
		rtbind.DefaultOps.Add(array, index, record)
	})
}

func (o hostOps) Remove(array *rtbind.Array, index int) []rtbind.Record {
	var removed []rtbind.Record
	o.host.mutateArray(array, func() {
		removed = rtbind.DefaultOps.Remove(array, index)
	})
	return removed
}
