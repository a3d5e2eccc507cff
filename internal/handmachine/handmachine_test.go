package handmachine

import (
	"testing"

	"poker-core/internal/potengine"
	"poker-core/internal/seatring"
	"poker-core/pkg/card"
	"poker-core/pkg/rng"
)

type recordingObserver struct {
	turns    []int
	streets  []Phase
	settled  bool
	awards   []potengine.Award
	fatal    error
}

func (r *recordingObserver) OnDealStreet(phase Phase, dealt []card.Card, board []card.Card) {
	r.streets = append(r.streets, phase)
}
func (r *recordingObserver) OnTurnChanged(seat int) { r.turns = append(r.turns, seat) }
func (r *recordingObserver) OnHandSettled(awards []potengine.Award, board []card.Card, primaryWinner string) {
	r.settled = true
	r.awards = awards
}
func (r *recordingObserver) OnFatalError(err error) { r.fatal = err }

func newSeededSystem(t *testing.T, seed byte) *rng.System {
	t.Helper()
	sys, err := rng.NewSystemWithSeed([]byte{seed})
	if err != nil {
		t.Fatalf("NewSystemWithSeed failed: %v", err)
	}
	return sys
}

func headsUpSetup(t *testing.T, stacks [2]int64) (*Machine, *seatring.Ring, *recordingObserver) {
	t.Helper()
	ring := seatring.New(6)
	ring.Seat("P1", 1)
	ring.Seat("P2", 4)

	players := map[int]*Player{
		1: {UserID: "P1", Seat: 1, Chips: stacks[0]},
		4: {UserID: "P2", Seat: 4, Chips: stacks[1]},
	}
	obs := &recordingObserver{}
	m := New(ring, players, 1, 2, newSeededSystem(t, 7), obs)
	return m, ring, obs
}

func TestStartHand_HeadsUpButtonIsSBAndActsFirst(t *testing.T) {
	m, _, _ := headsUpSetup(t, [2]int64{100, 100})
	if err := m.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}

	state := m.State()
	if state.Phase != PhasePreflop {
		t.Fatalf("expected preflop, got %s", state.Phase)
	}
	if state.ButtonSeat != state.SBSeat {
		t.Errorf("heads-up: button should be SB, button=%d sb=%d", state.ButtonSeat, state.SBSeat)
	}
	if state.CurrentActor != state.SBSeat {
		t.Errorf("heads-up: SB/button should act first preflop, got actor %d", state.CurrentActor)
	}
	for _, p := range m.players {
		if len(p.HoleCards) != 2 {
			t.Errorf("expected 2 hole cards for %s, got %d", p.UserID, len(p.HoleCards))
		}
	}
}

func TestHeadsUpAllInPreflop_MainPotAndSettlement(t *testing.T) {
	m, _, obs := headsUpSetup(t, [2]int64{100, 100})
	if err := m.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	button := m.State().ButtonSeat // SB, acts first
	other := m.State().BBSeat

	if err := m.SubmitAction(Action{Seat: button, Type: ActionRaise, Amount: 10}); err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if err := m.SubmitAction(Action{Seat: other, Type: ActionRaise, Amount: 30}); err != nil {
		t.Fatalf("re-raise failed: %v", err)
	}
	if err := m.SubmitAction(Action{Seat: button, Type: ActionAllIn}); err != nil {
		t.Fatalf("all-in failed: %v", err)
	}
	if err := m.SubmitAction(Action{Seat: other, Type: ActionCall}); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if !obs.settled {
		t.Fatal("expected hand to be settled after preflop all-in runout")
	}
	var total int64
	for _, a := range obs.awards {
		total += a.Amount
	}
	if total != 200 {
		t.Fatalf("expected total pot 200 distributed, got %d", total)
	}
	if m.State().Phase != PhaseSettled {
		t.Fatalf("expected settled phase, got %s", m.State().Phase)
	}

	totalChips := int64(0)
	for _, p := range m.players {
		totalChips += p.Chips
	}
	if totalChips != 200 {
		t.Fatalf("chip conservation violated: total=%d", totalChips)
	}
}

func TestFoldOut_AwardsRemainingPlayerImmediately(t *testing.T) {
	m, _, obs := headsUpSetup(t, [2]int64{100, 100})
	if err := m.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	button := m.State().ButtonSeat

	if err := m.SubmitAction(Action{Seat: button, Type: ActionFold}); err != nil {
		t.Fatalf("fold failed: %v", err)
	}

	if !obs.settled {
		t.Fatal("expected immediate settlement on fold-out")
	}
	if len(obs.awards) != 1 {
		t.Fatalf("expected 1 award, got %d", len(obs.awards))
	}
	if obs.awards[0].Amount != 3 { // SB(1) + BB(2)
		t.Errorf("expected winner to collect the blinds (3), got %d", obs.awards[0].Amount)
	}
}

func TestOutOfTurnAction_Rejected(t *testing.T) {
	m, _, _ := headsUpSetup(t, [2]int64{100, 100})
	if err := m.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	wrongSeat := m.State().BBSeat // SB/button acts first in heads-up preflop
	if m.State().CurrentActor == wrongSeat {
		t.Fatal("test setup invalid: expected BB not to be first actor")
	}

	if err := m.SubmitAction(Action{Seat: wrongSeat, Type: ActionCheck}); err == nil {
		t.Fatal("expected out-of-turn action to be rejected")
	}
}

func TestStreetAdvance_DealsFlopTurnRiverInOrder(t *testing.T) {
	m, _, obs := headsUpSetup(t, [2]int64{100, 100})
	if err := m.StartHand(1); err != nil {
		t.Fatalf("StartHand failed: %v", err)
	}
	button := m.State().ButtonSeat
	other := m.State().BBSeat

	// Preflop: button calls, BB checks -> round closes -> flop dealt.
	if err := m.SubmitAction(Action{Seat: button, Type: ActionCall}); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if err := m.SubmitAction(Action{Seat: other, Type: ActionCheck}); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if len(obs.streets) != 1 || obs.streets[0] != PhaseFlop {
		t.Fatalf("expected flop dealt once, got %v", obs.streets)
	}
	if len(m.State().Board) != 3 {
		t.Fatalf("expected 3 board cards after flop, got %d", len(m.State().Board))
	}
}
