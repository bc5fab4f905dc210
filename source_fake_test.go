package rtbind

import "testing"

type fakeSnapshot struct {
	key string
	val any
}

func (s fakeSnapshot) Key() string { return s.key }
func (s fakeSnapshot) Val() any    { return s.val }

type fakeListener struct {
	callback EventCallback
	cancel   CancelCallback
}

// fakeSource records listeners and lets tests drive events by hand.
type fakeSource struct {
	nextID    int
	listeners map[EventType]map[int]fakeListener
	once      map[EventType][]func(Snapshot)
	offCalls  []EventType
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		listeners: map[EventType]map[int]fakeListener{},
		once:      map[EventType][]func(Snapshot){},
	}
}

func (s *fakeSource) On(event EventType, callback EventCallback, cancel CancelCallback) Handle {
	s.nextID++
	if s.listeners[event] == nil {
		s.listeners[event] = map[int]fakeListener{}
	}
	s.listeners[event][s.nextID] = fakeListener{callback: callback, cancel: cancel}
	return s.nextID
}

func (s *fakeSource) Off(event EventType, handle Handle) {
	id, _ := handle.(int)
	delete(s.listeners[event], id)
	s.offCalls = append(s.offCalls, event)
}

func (s *fakeSource) Once(event EventType, callback func(Snapshot)) {
	s.once[event] = append(s.once[event], callback)
}

func (s *fakeSource) emit(event EventType, key string, val any, prevKey string) {
	for _, listener := range s.listeners[event] {
		listener.callback(fakeSnapshot{key: key, val: val}, prevKey)
	}
}

func (s *fakeSource) resolve(key string, val any) {
	pending := s.once[EventValue]
	s.once[EventValue] = nil
	for _, callback := range pending {
		callback(fakeSnapshot{key: key, val: val})
	}
}

func (s *fakeSource) fail(err error) {
	for _, byID := range s.listeners {
		for _, listener := range byID {
			if listener.cancel != nil {
				listener.cancel(err)
			}
		}
	}
}

// failEvent cancels and drops only the listeners of event.
func (s *fakeSource) failEvent(event EventType, err error) {
	byID := s.listeners[event]
	delete(s.listeners, event)
	for _, listener := range byID {
		if listener.cancel != nil {
			listener.cancel(err)
		}
	}
}

func (s *fakeSource) listenerCount() int {
	total := 0
	for _, byID := range s.listeners {
		total += len(byID)
	}
	return total
}

func arrayField(t *testing.T, target map[string]any, field string) *Array {
	t.Helper()
	array, ok := target[field].(*Array)
	if !ok {
		t.Fatalf("expected *Array in %q, got %T", field, target[field])
	}
	return array
}
