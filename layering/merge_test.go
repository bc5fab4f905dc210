package layering

import (
	"reflect"
	"testing"
)

type mergeSettings struct {
	Enabled   *bool
	Limits    map[string]int
	Tags      []string
	Threshold *int
	Metadata  map[string]any
	Hook      func() string
	Named     interface{ Name() string }
}

type namer string

func (n namer) Name() string { return string(n) }

func TestMergeLayersStrongWins(t *testing.T) {
	yes := true
	no := false
	strong := mergeSettings{
		Enabled:  &no,
		Limits:   map[string]int{"a": 1},
		Metadata: map[string]any{"nested": map[string]any{"x": 1}},
	}
	weak := mergeSettings{
		Enabled:  &yes,
		Limits:   map[string]int{"a": 9, "b": 2},
		Tags:     []string{"weak"},
		Metadata: map[string]any{"nested": map[string]any{"y": 2}, "other": "v"},
	}

	got := MergeLayers(strong, weak)

	if got.Enabled == nil || *got.Enabled {
		t.Fatalf("expected strong Enabled=false, got %v", got.Enabled)
	}
	if !reflect.DeepEqual(got.Limits, map[string]int{"a": 1, "b": 2}) {
		t.Fatalf("unexpected limits: %#v", got.Limits)
	}
	if !reflect.DeepEqual(got.Tags, []string{"weak"}) {
		t.Fatalf("expected weak tags to fill gap, got %#v", got.Tags)
	}
	want := map[string]any{"nested": map[string]any{"x": 1, "y": 2}, "other": "v"}
	if !reflect.DeepEqual(got.Metadata, want) {
		t.Fatalf("metadata mismatch:\nwant: %#v\n got: %#v", want, got.Metadata)
	}
}

func TestMergeLayersFuncsAndInterfacesFallBack(t *testing.T) {
	weak := mergeSettings{
		Hook:  func() string { return "weak" },
		Named: namer("weak"),
	}

	got := MergeLayers(mergeSettings{}, weak)
	if got.Hook == nil || got.Hook() != "weak" {
		t.Fatalf("expected weak hook to fill nil func")
	}
	if got.Named == nil || got.Named.Name() != "weak" {
		t.Fatalf("expected weak interface to fill nil interface")
	}

	strong := mergeSettings{
		Hook:  func() string { return "strong" },
		Named: namer("strong"),
	}
	got = MergeLayers(strong, weak)
	if got.Hook() != "strong" || got.Named.Name() != "strong" {
		t.Fatalf("expected strong func and interface to win")
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func TestCloneDetachesNestedData(t *testing.T) {
	original := map[string]any{
		"todo": map[string]any{"title": "a", "tags": []any{"x"}},
	}
	cloned := Clone(original)

	cloned["todo"].(map[string]any)["title"] = "b"
	cloned["todo"].(map[string]any)["tags"].([]any)[0] = "y"

	if original["todo"].(map[string]any)["title"] != "a" {
		t.Fatalf("expected original map untouched, got %#v", original)
	}
	if original["todo"].(map[string]any)["tags"].([]any)[0] != "x" {
		t.Fatalf("expected original slice untouched, got %#v", original)
	}
}

func TestCloneSharesPointers(t *testing.T) {
	type holder struct {
		Ptr *int
	}
	n := 1
	cloned := Clone(holder{Ptr: &n})
	if cloned.Ptr != &n {
		t.Fatalf("expected pointer to be shared")
	}
	if Clone[any](nil) != nil {
		t.Fatalf("expected nil clone to stay nil")
	}
}
