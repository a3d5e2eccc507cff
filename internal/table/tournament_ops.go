package table

import (
	"poker-core/internal/handmachine"
)

// SeatSnapshot is a read-only view of one occupied seat, exported for the
// tournament supervisor's balancing and merging calculations. It never
// aliases Table's internal state.
type SeatSnapshot struct {
	UserID string
	Seat   int
	Chips  int64
}

// Snapshot returns every occupied seat's userId, seat number, and chip
// count. Used by the tournament supervisor to decide which player to move
// when rebalancing and to compute payouts on elimination/completion.
func (t *Table) Snapshot() []SeatSnapshot {
	var out []SeatSnapshot
	_ = t.call(func() error {
		for seat, p := range t.players {
			if p == nil {
				continue
			}
			out = append(out, SeatSnapshot{UserID: p.UserID, Seat: seat, Chips: p.Chips})
		}
		return nil
	})
	return out
}

// SeatWithStack seats userId with an explicit starting stack, bypassing the
// host-approval pending-request flow. The tournament supervisor uses this
// for initial registration and for landing a transferred player on a new
// table with their carried-over chip count.
func (t *Table) SeatWithStack(userID string, chips int64) (int, error) {
	var seat int
	err := t.call(func() error {
		if t.ring.SeatOf(userID) != 0 {
			return ErrAlreadySeated
		}
		seat = t.firstFreeSeat()
		if seat == 0 {
			return ErrTableFull
		}
		if err := t.ring.Seat(userID, seat); err != nil {
			return ErrTableFull
		}
		t.players[seat] = &handmachine.Player{UserID: userID, Seat: seat, Chips: chips, Status: handmachine.StatusActive}
		t.tryStartHand()
		t.emitState()
		return nil
	})
	return seat, err
}

// ForceVacateForTransfer removes a seated player and returns their chip
// count, for the supervisor to carry over onto a balancing/merge
// destination table. It is only legal at a hand boundary; moving a player
// mid-hand would disturb pot accounting that has already been committed.
func (t *Table) ForceVacateForTransfer(userID string) (int64, error) {
	var chips int64
	err := t.call(func() error {
		seat := t.ring.SeatOf(userID)
		if seat == 0 {
			return ErrPlayerNotFound
		}
		phase := t.machine.State().Phase
		if phase != handmachine.PhaseWaiting && phase != handmachine.PhaseSettled {
			return ErrHandInProgress
		}
		if p := t.players[seat]; p != nil {
			chips = p.Chips
		}
		t.vacateSeat(seat)
		t.emitState()
		return nil
	})
	return chips, err
}

// ApplyBlindLevel updates the table's blinds in place, for the tournament
// supervisor's blind clock. Unlike AdminSetBlinds this is not host-gated:
// the supervisor, not a human host, drives tournament blind levels.
func (t *Table) ApplyBlindLevel(small, big int64) {
	t.enqueue(func() {
		t.smallBlind, t.bigBlind = small, big
		t.machine.SetBlinds(small, big)
		t.emitState()
	})
}

// SetPaused pauses or resumes the table under tournament control (blind
// clock pause, table consolidation in progress), mirroring AdminPause /
// AdminResume without the host check.
func (t *Table) SetPaused(paused bool) {
	t.enqueue(func() {
		t.isPaused = paused
		if paused {
			if t.turnTimer != nil {
				t.turnTimer.Cancel()
			}
			return
		}
		t.tryStartHand()
		t.restartTurnTimerIfActing()
	})
}

// MaxSeats returns the table's seat count. Immutable after construction, so
// an unsynchronized read is safe.
func (t *Table) MaxSeats() int { return t.maxSeats }

// TournamentID returns the tournament this table belongs to, or nil for a
// standalone cash/casual table. Immutable after construction.
func (t *Table) TournamentID() *string { return t.tournamentID }

// OccupiedSeats returns the number of seats currently occupied, used by the
// supervisor's balancing pass without needing a full Snapshot.
func (t *Table) OccupiedSeats() int {
	var n int
	_ = t.call(func() error {
		n = len(t.players)
		return nil
	})
	return n
}

// Ban removes userId under tournament control: auto-fold if it is currently
// their turn, then LEFT at the next hand boundary. Unlike
// ForceVacateForTransfer this is legal mid-hand, because a ban forfeits
// whatever the player already committed to the pot instead of preserving it
// for a transfer.
func (t *Table) Ban(userID string) error {
	return t.call(func() error {
		seat := t.ring.SeatOf(userID)
		if seat == 0 {
			return ErrPlayerNotFound
		}
		if p := t.players[seat]; p != nil {
			p.Status = handmachine.StatusLeft
		}
		t.leavingAtBoundary[userID] = true
		phase := t.machine.State().Phase
		if phase == handmachine.PhaseWaiting || phase == handmachine.PhaseSettled {
			t.vacateSeat(seat)
		} else if t.machine.State().CurrentActor == seat {
			_ = t.machine.SubmitAction(handmachine.Action{Seat: seat, Type: handmachine.ActionFold})
		}
		t.emitState()
		return nil
	})
}

// ButtonSeat returns the current hand's button seat (0 if no hand has
// started yet), used by the supervisor to pick the seat farthest clockwise
// from the button when choosing who to move during balancing.
func (t *Table) ButtonSeat() int {
	var seat int
	_ = t.call(func() error {
		seat = t.machine.State().ButtonSeat
		return nil
	})
	return seat
}
