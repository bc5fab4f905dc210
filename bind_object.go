package rtbind

// BindAsObject mirrors the value of params.Document into params.Field of
// params.Target. Every value notification overwrites the field with a freshly
// serialized Record. Resolve is called by an independent one-time read.
// Listener errors reach Reject verbatim. A nil Document rejects with
// ErrNilSource and returns a no-op Teardown.
//
// The returned Teardown unregisters the listener and, unless reset is
// disabled, writes the reset producer's result or nil into the field.
func BindAsObject(params BindObjectParams, opts ...Option) Teardown {
	b := newBinding(KindObject, params.Field, opts)
	if params.Document == nil {
		b.rejecter(params.Reject)(ErrNilSource)
		return func() {}
	}

	ops := opsOrDefault(params.Ops)
	document := params.Document
	serialize := b.options.Serialize

	b.opened()
	listener := document.On(EventValue, func(snapshot Snapshot, _ string) {
		ops.Set(params.Target, params.Field, serialize(snapshot))
		b.applied(EventValue, snapshot.Key(), -1)
	}, b.rejecter(params.Reject))
	document.Once(EventValue, b.resolver(params.Resolve))

	return func() {
		document.Off(EventValue, listener)
		if value, ok := b.options.resetValue(func() any { return nil }); ok {
			ops.Set(params.Target, params.Field, value)
		}
		b.closed()
	}
}
