package rtbind

import (
	"errors"
	"reflect"
	"testing"
)

type hostObject struct {
	fields map[string]any
}

func (h *hostObject) SetField(name string, value any) {
	if h.fields == nil {
		h.fields = map[string]any{}
	}
	h.fields[name] = value
}

func TestBindAsObjectOverwritesWithoutMerge(t *testing.T) {
	source := newFakeSource()
	target := map[string]any{}
	BindAsObject(BindObjectParams{Target: target, Field: "item", Document: source})

	source.emit(EventValue, "doc", map[string]any{"n": 1, "extra": true}, "")
	want := Record{"n": 1, "extra": true, KeyField: "doc"}
	if got := target["item"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	source.emit(EventValue, "doc", map[string]any{"n": 2}, "")
	want = Record{"n": 2, KeyField: "doc"}
	if got := target["item"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBindAsObjectPrimitiveValue(t *testing.T) {
	source := newFakeSource()
	target := map[string]any{}
	BindAsObject(BindObjectParams{Target: target, Field: "count", Document: source})

	source.emit(EventValue, "count", 5, "")

	want := Record{KeyField: "count", ValueField: 5}
	if got := target["count"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBindAsObjectFieldSetterTarget(t *testing.T) {
	source := newFakeSource()
	host := &hostObject{}
	BindAsObject(BindObjectParams{Target: host, Field: "item", Document: source})

	source.emit(EventValue, "doc", map[string]any{"n": 1}, "")

	if _, ok := host.fields["item"].(Record); !ok {
		t.Fatalf("expected record set through SetField, got %T", host.fields["item"])
	}
}

func TestBindAsObjectTeardownReset(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
		want any
		keep bool
	}{
		{name: "default", want: nil},
		{name: "disabled", opts: []Option{WithReset(false)}, keep: true},
		{name: "producer", opts: []Option{WithResetFunc(func() any { return "X" })}, want: "X"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source := newFakeSource()
			target := map[string]any{}
			teardown := BindAsObject(BindObjectParams{Target: target, Field: "item", Document: source}, tc.opts...)
			source.emit(EventValue, "doc", map[string]any{"n": 1}, "")
			last := target["item"]

			teardown()

			if source.listenerCount() != 0 {
				t.Fatalf("expected listener removed")
			}
			if tc.keep {
				if !reflect.DeepEqual(target["item"], last) {
					t.Fatalf("expected last value kept, got %v", target["item"])
				}
				return
			}
			if got := target["item"]; !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBindAsObjectResolveAndReject(t *testing.T) {
	source := newFakeSource()
	boom := errors.New("denied")
	var resolved Snapshot
	var rejected error
	BindAsObject(BindObjectParams{
		Target:   map[string]any{},
		Field:    "item",
		Document: source,
		Resolve:  func(snapshot Snapshot) { resolved = snapshot },
		Reject:   func(err error) { rejected = err },
	})

	source.resolve("doc", 1)
	source.fail(boom)

	if resolved == nil || resolved.Key() != "doc" {
		t.Fatalf("expected resolve with doc snapshot, got %v", resolved)
	}
	if rejected != boom {
		t.Fatalf("expected verbatim error, got %v", rejected)
	}
}

func TestBindAsObjectNilDocument(t *testing.T) {
	var rejected error
	BindAsObject(BindObjectParams{
		Target: map[string]any{},
		Field:  "item",
		Reject: func(err error) { rejected = err },
	})
	if !errors.Is(rejected, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", rejected)
	}
}
