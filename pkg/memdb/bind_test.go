package memdb

import (
	"reflect"
	"testing"

	"github.com/goliatone/go-rtbind"
)

func boundArray(t *testing.T, target map[string]any) *rtbind.Array {
	t.Helper()
	array, ok := target["items"].(*rtbind.Array)
	if !ok {
		t.Fatalf("expected *rtbind.Array, got %T", target["items"])
	}
	return array
}

func TestBindAsArrayFollowsTree(t *testing.T) {
	db := New()
	list := mustRef(t, db, "todos")
	mustSet(t, list, map[string]any{
		"a": map[string]any{"title": "first", "rank": 1},
		"b": map[string]any{"title": "second", "rank": 2},
	})
	ordered, err := list.OrderByChild("rank")
	if err != nil {
		t.Fatalf("order: %v", err)
	}

	target := map[string]any{}
	resolved := false
	teardown := rtbind.BindAsArray(rtbind.BindArrayParams{
		Target:     target,
		Field:      "items",
		Collection: ordered,
		Resolve:    func(rtbind.Snapshot) { resolved = true },
	})
	array := boundArray(t, target)
	if !resolved {
		t.Fatalf("expected resolve after initial read")
	}
	if got := array.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected initial keys, got %v", got)
	}

	steps := []map[string]any{
		{"c": map[string]any{"title": "third", "rank": 0}},
		{"a/rank": 5},
		{"b": nil, "d": map[string]any{"title": "fourth", "rank": 3}},
		{"c/rank": 4, "d/title": "renamed"},
	}
	for _, step := range steps {
		if err := list.Update(step); err != nil {
			t.Fatalf("update %v: %v", step, err)
		}
		if got, want := array.Keys(), ordered.Get().Keys(); !reflect.DeepEqual(got, want) {
			t.Fatalf("after %v expected %v, got %v", step, want, got)
		}
	}
	record := array.At(array.IndexOf("d"))
	if record["title"] != "renamed" {
		t.Fatalf("expected changed record, got %v", record)
	}

	teardown()
	if db.Listeners() != 0 {
		t.Fatalf("expected all listeners removed, got %d", db.Listeners())
	}
	if boundArray(t, target).Len() != 0 {
		t.Fatalf("expected reset to an empty array")
	}
}

func TestBindAsArrayShuffle(t *testing.T) {
	db := New()
	list := mustRef(t, db, "cards")
	initial := map[string]any{}
	for i, key := range []string{"a", "b", "c", "d", "e", "f"} {
		initial[key] = i
	}
	mustSet(t, list, initial)
	ordered := list.OrderByValue()

	target := map[string]any{}
	rtbind.BindAsArray(rtbind.BindArrayParams{Target: target, Field: "items", Collection: ordered})
	array := boundArray(t, target)

	shuffled := map[string]any{"a": 5, "b": 3, "c": 0, "d": 4, "e": 1, "f": 2, "g": 2.5}
	if err := list.Update(shuffled); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []string{"c", "e", "f", "g", "b", "d", "a"}
	if got := array.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBindAsObjectFollowsTree(t *testing.T) {
	db := New()
	doc := mustRef(t, db, "settings")
	mustSet(t, doc, map[string]any{"theme": "dark"})

	target := map[string]any{}
	teardown := rtbind.BindAsObject(rtbind.BindObjectParams{Target: target, Field: "settings", Document: doc})

	want := rtbind.Record{"theme": "dark", rtbind.KeyField: "settings"}
	if got := target["settings"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	mustSet(t, doc, map[string]any{"lang": "en"})
	want = rtbind.Record{"lang": "en", rtbind.KeyField: "settings"}
	if got := target["settings"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected overwrite %v, got %v", want, got)
	}

	teardown()
	if target["settings"] != nil {
		t.Fatalf("expected reset to nil, got %v", target["settings"])
	}
}

func TestBindAsArrayRejectOnFail(t *testing.T) {
	db := New()
	list := mustRef(t, db, "secret")
	var rejected []error
	rtbind.BindAsArray(rtbind.BindArrayParams{
		Target:     map[string]any{},
		Field:      "items",
		Collection: list,
		Reject:     func(err error) { rejected = append(rejected, err) },
	})

	if err := db.Fail("secret", errDenied); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if len(rejected) != 4 {
		t.Fatalf("expected each listener to cancel, got %d", len(rejected))
	}
	if db.Listeners() != 0 {
		t.Fatalf("expected listeners dropped, got %d", db.Listeners())
	}
}

var errDenied = &permissionError{path: "secret"}

type permissionError struct {
	path string
}

func (e *permissionError) Error() string {
	return "permission denied: " + e.path
}
