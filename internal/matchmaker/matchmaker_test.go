package matchmaker

import (
	"fmt"
	"sync"
	"testing"
)

func TestJoinQueue_MintsOnceTargetReached(t *testing.T) {
	var mu sync.Mutex
	var minted [][]string
	factory := func(variant string, userIDs []string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		minted = append(minted, append([]string{}, userIDs...))
		return fmt.Sprintf("table-%d", len(minted)), nil
	}

	m := New([]Variant{{Slug: "six_max", QueueTarget: 6}}, nil, factory)

	for _, u := range []string{"A", "B", "C", "D", "E"} {
		if err := m.JoinQueue(u, "six_max"); err != nil {
			t.Fatalf("JoinQueue(%s): %v", u, err)
		}
	}
	mu.Lock()
	if len(minted) != 0 {
		t.Fatalf("expected no table minted before 6th join, got %d", len(minted))
	}
	mu.Unlock()

	if err := m.JoinQueue("F", "six_max"); err != nil {
		t.Fatalf("JoinQueue(F): %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(minted) != 1 {
		t.Fatalf("expected exactly one table minted, got %d", len(minted))
	}
	want := []string{"A", "B", "C", "D", "E", "F"}
	for i, u := range want {
		if minted[0][i] != u {
			t.Errorf("seat order mismatch at %d: want %s got %s", i, u, minted[0][i])
		}
	}
}

func TestJoinQueue_RejectsDuplicateUser(t *testing.T) {
	factory := func(variant string, userIDs []string) (string, error) { return "x", nil }
	m := New([]Variant{{Slug: "heads_up", QueueTarget: 2}}, nil, factory)

	if err := m.JoinQueue("A", "heads_up"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.JoinQueue("A", "heads_up"); err != ErrAlreadyQueued {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestLeaveQueue_RemovesEntry(t *testing.T) {
	var minted int
	factory := func(variant string, userIDs []string) (string, error) {
		minted++
		return "x", nil
	}
	m := New([]Variant{{Slug: "heads_up", QueueTarget: 2}}, nil, factory)

	_ = m.JoinQueue("A", "heads_up")
	_ = m.LeaveQueue("A", "heads_up")
	_ = m.JoinQueue("B", "heads_up")

	if minted != 0 {
		t.Fatalf("expected no match after leave, got %d mints", minted)
	}
	status := m.CheckStatus("A")
	if status.InQueue {
		t.Fatal("expected A to no longer be queued")
	}
}
