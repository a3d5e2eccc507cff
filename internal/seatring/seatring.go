// Package seatring implements the fixed-size ring of seats a Table uses for
// turn order, button rotation, and small/big blind assignment. It is a pure
// data structure: no timers, no I/O, no locking — Table serializes all
// access from its single game-loop goroutine.
package seatring

import "fmt"

// Filter decides whether a seat's occupant counts for nextActive purposes.
type Filter func(userID string) bool

// Ring is a fixed-size seat ring indexed 1..N. Empty seats are retained as
// zero-value entries rather than compacted, so seat numbers stay stable
// across joins/leaves.
type Ring struct {
	seats []string // seats[i] holds seat i+1's occupant userId, "" if empty
}

// New creates a ring with n seats, all empty.
func New(n int) *Ring {
	return &Ring{seats: make([]string, n)}
}

// Size returns the number of seats.
func (r *Ring) Size() int { return len(r.seats) }

// Seat occupies seatNumber (1-indexed) with userId. Returns an error if the
// seat is out of range or already occupied.
func (r *Ring) Seat(userID string, seatNumber int) error {
	idx, err := r.index(seatNumber)
	if err != nil {
		return err
	}
	if r.seats[idx] != "" {
		return fmt.Errorf("seatring: seat %d already occupied", seatNumber)
	}
	r.seats[idx] = userID
	return nil
}

// Vacate empties seatNumber.
func (r *Ring) Vacate(seatNumber int) error {
	idx, err := r.index(seatNumber)
	if err != nil {
		return err
	}
	r.seats[idx] = ""
	return nil
}

// Occupant returns the userId in seatNumber, or "" if empty.
func (r *Ring) Occupant(seatNumber int) string {
	idx, err := r.index(seatNumber)
	if err != nil {
		return ""
	}
	return r.seats[idx]
}

// SeatOf returns the seat number occupied by userId, or 0 if not seated.
func (r *Ring) SeatOf(userID string) int {
	for i, occ := range r.seats {
		if occ == userID && occ != "" {
			return i + 1
		}
	}
	return 0
}

// Occupants returns seat numbers in ascending order that are currently
// occupied.
func (r *Ring) Occupants() []int {
	var out []int
	for i, occ := range r.seats {
		if occ != "" {
			out = append(out, i+1)
		}
	}
	return out
}

// Count returns the number of occupied seats.
func (r *Ring) Count() int {
	n := 0
	for _, occ := range r.seats {
		if occ != "" {
			n++
		}
	}
	return n
}

// NextActive returns the first occupied seat, strictly after `from`,
// advancing modulo the ring size in increasing seat-number order, whose
// occupant satisfies filter. It wraps past seat N back to seat 1. Returns 0
// if no seat qualifies (including when from is the only qualifying seat and
// wraps back to itself — callers that want to include `from` should pass
// from-1).
func (r *Ring) NextActive(from int, filter Filter) int {
	n := len(r.seats)
	if n == 0 {
		return 0
	}
	for i := 1; i <= n; i++ {
		seatNum := ((from-1+i)%n + n) % n
		seatNum++ // back to 1-indexed
		occ := r.seats[seatNum-1]
		if occ != "" && (filter == nil || filter(occ)) {
			return seatNum
		}
	}
	return 0
}

// AssignPositions computes small-blind and big-blind seats given the button
// seat, following the heads-up special case: with exactly two active seats
// the button is also the small blind.
func (r *Ring) AssignPositions(buttonSeat int, filter Filter) (sb, bb int, err error) {
	active := r.activeSeats(filter)
	if len(active) < 2 {
		return 0, 0, fmt.Errorf("seatring: need at least 2 active seats to assign positions, got %d", len(active))
	}

	if len(active) == 2 {
		// Heads-up: button is SB, the other active seat is BB.
		sb = buttonSeat
		bb = r.NextActive(buttonSeat, filter)
		return sb, bb, nil
	}

	sb = r.NextActive(buttonSeat, filter)
	bb = r.NextActive(sb, filter)
	return sb, bb, nil
}

func (r *Ring) activeSeats(filter Filter) []int {
	var out []int
	for i, occ := range r.seats {
		if occ != "" && (filter == nil || filter(occ)) {
			out = append(out, i+1)
		}
	}
	return out
}

func (r *Ring) index(seatNumber int) (int, error) {
	if seatNumber < 1 || seatNumber > len(r.seats) {
		return 0, fmt.Errorf("seatring: seat %d out of range [1,%d]", seatNumber, len(r.seats))
	}
	return seatNumber - 1, nil
}
