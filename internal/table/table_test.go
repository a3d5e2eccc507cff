package table

import (
	"testing"
	"time"

	"poker-core/internal/broadcast"
	"poker-core/internal/clock"
	"poker-core/internal/events"
	"poker-core/internal/registry"
	"poker-core/pkg/rng"
)

type fakeConn struct {
	sent []interface{}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.sent = append(f.sent, v)
	return nil
}
func (f *fakeConn) Close() error { return nil }

func newTestSystem(t *testing.T) *rng.System {
	t.Helper()
	sys, err := rng.NewSystemWithSeed([]byte{42})
	if err != nil {
		t.Fatalf("NewSystemWithSeed: %v", err)
	}
	return sys
}

func newTestTable(t *testing.T, clk clock.Clock, reg *registry.Registry) *Table {
	t.Helper()
	cfg := Config{
		TableID:         "t1",
		Variant:         "texas_holdem",
		MaxSeats:        6,
		SmallBlind:      1,
		BigBlind:        2,
		TurnTimeout:     10 * time.Second,
		DisconnectGrace: 30 * time.Second,
		Clock:           clk,
		RNG:             newTestSystem(t),
		Broadcaster:     broadcast.New(),
		Registry:        reg,
	}
	tb := New(cfg)
	tb.Start()
	t.Cleanup(tb.Stop)
	return tb
}

func settle(t *testing.T, fn func() error) {
	t.Helper()
	if err := fn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJoin_StartsHandOnceTwoPlayersSeated(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	reg := registry.New()
	tb := newTestTable(t, clk, reg)

	settle(t, func() error { return tb.Join("p1") })
	settle(t, func() error { return tb.Join("p2") })

	// allow the mailbox to drain the join commands
	time.Sleep(10 * time.Millisecond)

	state := tb.buildGameState("p1")
	if state.CurrentPhase != "preflop" {
		t.Fatalf("expected a hand to have started, got phase %q", state.CurrentPhase)
	}
}

func TestTurnTimer_AutoFoldsOnExpiry(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	reg := registry.New()
	tb := newTestTable(t, clk, reg)

	settle(t, func() error { return tb.Join("p1") })
	settle(t, func() error { return tb.Join("p2") })
	time.Sleep(10 * time.Millisecond)

	clk.Advance(11 * time.Second)
	time.Sleep(10 * time.Millisecond)

	state := tb.buildGameState("")
	foldedCount := 0
	for _, p := range state.Players {
		if p.Folded {
			foldedCount++
		}
	}
	if foldedCount == 0 {
		t.Fatal("expected the timed-out actor to be auto-folded")
	}
}

func TestAdminAction_RejectsNonHost(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	reg := registry.New()
	cfg := Config{
		TableID:         "t2",
		Variant:         "texas_holdem",
		MaxSeats:        6,
		HostID:          "host",
		SmallBlind:      1,
		BigBlind:        2,
		TurnTimeout:     10 * time.Second,
		DisconnectGrace: 30 * time.Second,
		Clock:           clk,
		RNG:             newTestSystem(t),
		Broadcaster:     broadcast.New(),
		Registry:        reg,
	}
	tb := New(cfg)
	tb.Start()
	t.Cleanup(tb.Stop)

	err := tb.AdminAction("not-the-host", events.AdminAction{Type: events.AdminPause})
	if err != ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestDisconnectGhost_VacatesSeatAtHandBoundaryAfterGrace(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	reg := registry.New()
	tb := newTestTable(t, clk, reg)

	settle(t, func() error { return tb.Join("p1") })
	settle(t, func() error { return tb.Join("p2") })
	time.Sleep(10 * time.Millisecond)

	tb.NotifyDisconnected("p1")
	time.Sleep(10 * time.Millisecond)

	clk.Advance(31 * time.Second)
	time.Sleep(10 * time.Millisecond)

	state := tb.buildGameState("")
	for _, p := range state.Players {
		if p.UserID == "p1" && p.Status != "LEFT" {
			t.Fatalf("expected p1 status LEFT after grace period, got %s", p.Status)
		}
	}
}
