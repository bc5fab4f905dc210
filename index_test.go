package rtbind

import "testing"

func TestIndexForKeyEmpty(t *testing.T) {
	for _, key := range []string{"", "a", "missing"} {
		if got := IndexForKey(nil, key); got != -1 {
			t.Fatalf("expected -1 for %q on nil, got %d", key, got)
		}
		if got := IndexForKey([]Record{}, key); got != -1 {
			t.Fatalf("expected -1 for %q on empty, got %d", key, got)
		}
	}
}

func TestIndexForKeyFindsFirstMatch(t *testing.T) {
	records := []Record{
		{KeyField: "a"},
		{KeyField: "b", ValueField: 1},
		{"title": "no key"},
		{KeyField: "b", ValueField: 2},
	}
	if got := IndexForKey(records, "b"); got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
	if got := IndexForKey(records, "z"); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}
