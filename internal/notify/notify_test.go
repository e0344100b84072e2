package notify

import (
	"fmt"
	"testing"
)

func TestFailureRingBounded(t *testing.T) {
	r := NewFailureRing(4)

	for i := 0; i < 10; i++ {
		r.Record("services", fmt.Sprintf("failure %d", i))
	}

	if r.Len() != 4 {
		t.Fatalf("expected ring capped at 4, got %d", r.Len())
	}

	recent := r.Recent(4)
	if len(recent) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(recent))
	}
	// Newest first.
	if recent[0].Message != "failure 9" {
		t.Errorf("newest entry = %q, want %q", recent[0].Message, "failure 9")
	}
	if recent[3].Message != "failure 6" {
		t.Errorf("oldest kept entry = %q, want %q", recent[3].Message, "failure 6")
	}
}

func TestFailureRingRecentPartial(t *testing.T) {
	r := NewFailureRing(8)
	r.Record("jobs", "one")
	r.Record("jobs", "two")

	recent := r.Recent(5)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Message != "two" || recent[1].Message != "one" {
		t.Errorf("unexpected order: %q, %q", recent[0].Message, recent[1].Message)
	}
}
