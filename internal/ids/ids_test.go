package ids

import "testing"

func TestNewUniqueAndSorted(t *testing.T) {
	prev := ""
	seen := make(map[string]bool)
	for range 1000 {
		id := New()
		if len(id) != 26 {
			t.Fatalf("expected 26-char ULID, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		if id <= prev {
			t.Fatalf("ids not increasing: %q after %q", id, prev)
		}
		seen[id] = true
		prev = id
	}
}
