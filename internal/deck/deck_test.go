package deck

import (
	"testing"

	"poker-core/pkg/rng"
)

func newSeededSystem(t *testing.T, seed byte) *rng.System {
	t.Helper()
	sys, err := rng.NewSystemWithSeed([]byte{seed})
	if err != nil {
		t.Fatalf("NewSystemWithSeed failed: %v", err)
	}
	return sys
}

func TestNew_FullDeckNoDuplicates(t *testing.T) {
	d := New(newSeededSystem(t, 1))
	if d.Remaining() != 52 {
		t.Fatalf("expected 52 cards, got %d", d.Remaining())
	}

	seen := make(map[int]bool)
	cards, err := d.DealBoard(52)
	if err != nil {
		t.Fatalf("deal failed: %v", err)
	}
	for _, c := range cards {
		id := c.ToID()
		if seen[id] {
			t.Fatalf("duplicate card dealt: %v", c)
		}
		seen[id] = true
	}
	if len(seen) != 52 {
		t.Fatalf("expected 52 distinct cards, got %d", len(seen))
	}
}

func TestDeal_ExhaustsAndErrors(t *testing.T) {
	d := New(newSeededSystem(t, 2))
	if _, err := d.DealHole(50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Remaining() != 2 {
		t.Fatalf("expected 2 remaining, got %d", d.Remaining())
	}
	if _, err := d.DealBoard(3); err == nil {
		t.Fatal("expected error dealing more cards than remain")
	}
}

func TestBurn_AdvancesCursorWithoutExposing(t *testing.T) {
	d := New(newSeededSystem(t, 3))
	if err := d.Burn(1); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	if d.Remaining() != 51 {
		t.Fatalf("expected 51 remaining after burn, got %d", d.Remaining())
	}
}
