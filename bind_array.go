package rtbind

// BindAsArray mirrors the children of params.Collection, in their authoritative
// order, into an *Array installed in params.Field at bind time.
//
// Child events whose key is missing from the array are dropped and reported
// through the logger and metrics as a *MissError; a child_added whose prevKey
// is missing is inserted first. Reject receives listener errors from the
// source verbatim. A nil Collection rejects with ErrNilSource, installs
// nothing and returns a no-op Teardown.
//
// The returned Teardown unregisters all four listeners and, unless reset is
// disabled, writes the reset producer's result or a fresh empty *Array.
func BindAsArray(params BindArrayParams, opts ...Option) Teardown {
	b := newBinding(KindArray, params.Field, opts)
	if params.Collection == nil {
		b.rejecter(params.Reject)(ErrNilSource)
		return func() {}
	}

	ops := opsOrDefault(params.Ops)
	collection := params.Collection
	serialize := b.options.Serialize
	cancel := b.rejecter(params.Reject)

	array := NewArray()
	ops.Set(params.Target, params.Field, array)
	b.opened()

	childAdded := collection.On(EventChildAdded, func(snapshot Snapshot, prevKey string) {
		index := b.insertionIndex(array, EventChildAdded, prevKey)
		ops.Add(array, index, serialize(snapshot))
		b.applied(EventChildAdded, snapshot.Key(), index)
	}, cancel)

	childRemoved := collection.On(EventChildRemoved, func(snapshot Snapshot, _ string) {
		index := array.IndexOf(snapshot.Key())
		if index < 0 {
			b.missed(EventChildRemoved, snapshot.Key())
			return
		}
		ops.Remove(array, index)
		b.applied(EventChildRemoved, snapshot.Key(), index)
	}, cancel)

	childChanged := collection.On(EventChildChanged, func(snapshot Snapshot, _ string) {
		index := array.IndexOf(snapshot.Key())
		if index < 0 {
			b.missed(EventChildChanged, snapshot.Key())
			return
		}
		ops.Set(array, index, serialize(snapshot))
		b.applied(EventChildChanged, snapshot.Key(), index)
	}, cancel)

	childMoved := collection.On(EventChildMoved, func(snapshot Snapshot, prevKey string) {
		index := array.IndexOf(snapshot.Key())
		if index < 0 {
			b.missed(EventChildMoved, snapshot.Key())
			return
		}
		removed := ops.Remove(array, index)
		if len(removed) == 0 {
			b.missed(EventChildMoved, snapshot.Key())
			return
		}
		// the target index is computed after the removal
		newIndex := b.insertionIndex(array, EventChildMoved, prevKey)
		ops.Add(array, newIndex, removed[0])
		b.applied(EventChildMoved, snapshot.Key(), newIndex)
	}, cancel)

	collection.Once(EventValue, b.resolver(params.Resolve))

	return func() {
		collection.Off(EventChildAdded, childAdded)
		collection.Off(EventChildChanged, childChanged)
		collection.Off(EventChildRemoved, childRemoved)
		collection.Off(EventChildMoved, childMoved)
		if value, ok := b.options.resetValue(func() any { return NewArray() }); ok {
			ops.Set(params.Target, params.Field, value)
		}
		b.closed()
	}
}

// insertionIndex places a child right after prevKey, or first when prevKey is
// empty or unknown.
func (b *binding) insertionIndex(array *Array, event EventType, prevKey string) int {
	if prevKey == "" {
		return 0
	}
	index := array.IndexOf(prevKey)
	if index < 0 {
		b.missed(event, prevKey)
		return 0
	}
	return index + 1
}
