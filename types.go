package rtbind

// EventType names a notification stream exposed by a Source.
type EventType string

const (
	// EventValue fires with the full value of the watched location.
	EventValue EventType = "value"
	// EventChildAdded fires once per child entering the location.
	EventChildAdded EventType = "child_added"
	// EventChildRemoved fires once per child leaving the location.
	EventChildRemoved EventType = "child_removed"
	// EventChildChanged fires when a child's value changes in place.
	EventChildChanged EventType = "child_changed"
	// EventChildMoved fires when a child changes its sibling position.
	EventChildMoved EventType = "child_moved"
)

// ChildEvents lists the four ordered child streams in registration order.
var ChildEvents = []EventType{EventChildAdded, EventChildRemoved, EventChildChanged, EventChildMoved}

// Snapshot is an immutable view of a location at a point in time.
type Snapshot interface {
	Key() string
	Val() any
}

// Handle identifies a registered listener. It is opaque to the binder and only
// handed back to Source.Off.
type Handle any

// EventCallback receives a snapshot and, for child events, the key of the
// preceding sibling in authoritative order. An empty prevKey means the child is
// first.
type EventCallback func(snapshot Snapshot, prevKey string)

// CancelCallback receives listener errors raised by the source.
type CancelCallback func(err error)

// Source is the narrow capability surface required from a reference or query.
// Implementations must deliver callbacks strictly serialized.
type Source interface {
	On(event EventType, callback EventCallback, cancel CancelCallback) Handle
	Off(event EventType, handle Handle)
	Once(event EventType, callback func(Snapshot))
}

// Record is the host-visible mapping produced by serializing a snapshot.
type Record map[string]any

// Key returns the identifying key carried by the record.
func (r Record) Key() (string, bool) {
	if r == nil {
		return "", false
	}
	key, ok := r[KeyField].(string)
	return key, ok
}

// Serializer converts a snapshot into a Record.
type Serializer func(Snapshot) Record

// Teardown unregisters every listener of a binding and optionally resets the
// bound field. Calling it more than once is not supported.
type Teardown func()

// Kind distinguishes object from array bindings in logs, metrics and events.
type Kind string

const (
	KindObject Kind = "object"
	KindArray  Kind = "array"
)

// BindObjectParams bundles the collaborators of an object binding.
type BindObjectParams struct {
	// Target is the host-owned object holding Field.
	Target any
	// Field names the slot inside Target that mirrors the node.
	Field string
	// Document is the reference or query being mirrored.
	Document Source
	// Resolve is called once the initial read completes.
	Resolve func(Snapshot)
	// Reject receives listener errors verbatim.
	Reject func(error)
	// Ops applies every state mutation. DefaultOps is used when nil.
	Ops Ops
}

// BindArrayParams bundles the collaborators of an array binding.
type BindArrayParams struct {
	Target     any
	Field      string
	Collection Source
	Resolve    func(Snapshot)
	Reject     func(error)
	Ops        Ops
}
