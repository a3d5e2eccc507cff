// Package handmachine implements the per-table hand state machine: dealing,
// betting rounds, street advances, showdown, and settlement. It knows
// nothing about timers, transport, or persistence — Table drives it by
// calling its methods and receives callbacks through the Observer interface,
// mirroring how the teacher's RulesEngine interface keeps table.go decoupled
// from rule specifics.
package handmachine

import (
	"fmt"

	"poker-core/internal/deck"
	"poker-core/internal/potengine"
	"poker-core/internal/seatring"
	"poker-core/pkg/card"
	"poker-core/pkg/handeval"
	"poker-core/pkg/rng"
)

// Phase is one of the hand's states. Transitions are the only way phase
// changes; only StartHand, submitted actions and ResetForNextHand set it.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseSettled
)

func (p Phase) String() string {
	names := []string{"waiting", "preflop", "flop", "turn", "river", "showdown", "settled"}
	if p >= 0 && int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// PlayerStatus tracks a seated player's standing for hand accounting. It is
// a superset of what handmachine needs on its own; Table sets DISCONNECTED /
// LEFT / REMOVED / ELIMINATED based on connection and admin events.
// handmachine treats LEFT, REMOVED and ELIMINATED players as unable to act;
// a DISCONNECTED (ghost) seat still takes its turns, and Table acts for it
// (check if legal, else fold) when the turn reaches it.
type PlayerStatus int

const (
	StatusActive PlayerStatus = iota
	StatusWaitingForNextHand
	StatusDisconnected
	StatusLeft
	StatusRemoved
	StatusEliminated
)

// Player is the authoritative per-seat participant record for the duration
// the user occupies a seat. Table owns the slice of these; HandMachine
// mutates the hand-scoped fields (CurrentBet, TotalBetThisHand, HoleCards,
// Folded, AllIn) during a hand.
type Player struct {
	UserID            string
	Seat              int
	Chips             int64
	CurrentBet        int64
	TotalBetThisHand  int64
	HoleCards         []card.Card
	Folded            bool
	AllIn             bool
	Status            PlayerStatus
	RevealedIndices   map[int]bool
	EliminatedThisHand bool // set by Settle when AllIn and chips hit 0
}

// canAct reports whether the player can be dealt into / act in a hand:
// present at the table and not left/removed/eliminated. Disconnected
// players still act via Table's ghost auto-fold path, so they count here.
func (p *Player) canAct() bool {
	switch p.Status {
	case StatusLeft, StatusRemoved, StatusEliminated:
		return false
	default:
		return true
	}
}

// HandState is the hand-scoped state for one hand's lifetime.
type HandState struct {
	HandNumber      int
	Phase           Phase
	ButtonSeat      int
	SBSeat          int
	BBSeat          int
	CurrentActor    int // 0 means no current actor
	MinRaise        int64
	HighBet         int64
	LastRaiseAmount int64
	Board           []card.Card
}

// Observer receives HandMachine's side effects so Table can schedule
// timers, broadcast events, and dispatch persistence without HandMachine
// importing any of those concerns.
type Observer interface {
	OnDealStreet(phase Phase, dealt []card.Card, board []card.Card)
	OnTurnChanged(seat int)
	OnHandSettled(awards []potengine.Award, board []card.Card, primaryWinner string)
	OnFatalError(err error)
}

// ActionType is one betting-round action.
type ActionType int

const (
	ActionFold ActionType = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

// Action is a submitted player action for the current actor's seat.
type Action struct {
	Seat   int
	Type   ActionType
	Amount int64 // bet/raise target; ignored otherwise
}

// Machine runs one table's hands. It is not safe for concurrent use; Table's
// single-writer actor serializes every call.
type Machine struct {
	smallBlind int64
	bigBlind   int64
	ring       *seatring.Ring
	players    map[int]*Player // by seat
	evaluator  *handeval.Evaluator
	rngSystem  *rng.System
	observer   Observer

	state *HandState
	d     *deck.Deck
}

// New creates a Machine bound to a seat ring and its players. rngSystem
// backs every hand's deck shuffle; callers pass a deterministic System in
// tests.
func New(ring *seatring.Ring, players map[int]*Player, smallBlind, bigBlind int64, rngSystem *rng.System, observer Observer) *Machine {
	return &Machine{
		smallBlind: smallBlind,
		bigBlind:   bigBlind,
		ring:       ring,
		players:    players,
		evaluator:  handeval.New(),
		rngSystem:  rngSystem,
		observer:   observer,
		state:      &HandState{Phase: PhaseWaiting},
	}
}

// SetBlinds updates the blind levels applied to the next hand that starts
// (tournament blind-clock advances take effect at the next hand boundary).
func (m *Machine) SetBlinds(small, big int64) {
	m.smallBlind = small
	m.bigBlind = big
}

// State returns the current hand state. Callers must not mutate Board in
// place; treat it as a read-only snapshot.
func (m *Machine) State() *HandState {
	return m.state
}

func (m *Machine) activeForHand(userID string) bool {
	p := m.playerByID(userID)
	return p != nil && p.canAct() && p.Chips > 0
}

func (m *Machine) playerByID(userID string) *Player {
	for _, p := range m.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// ShouldStartHand reports whether enough players with chips are seated to
// begin a new hand.
func (m *Machine) ShouldStartHand() bool {
	count := 0
	for _, p := range m.players {
		if p.canAct() && p.Chips > 0 {
			count++
		}
	}
	return count >= 2
}

// StartHand advances the button, posts blinds, deals hole cards, and sets up
// the preflop betting round. handNumber is supplied by Table and recorded on
// the new HandState; the button carries over through the ButtonSeat that
// ResetForNextHand keeps.
func (m *Machine) StartHand(handNumber int) error {
	occupiedFilter := func(userID string) bool { return m.activeForHand(userID) }

	var prevButton int
	if m.state != nil {
		prevButton = m.state.ButtonSeat
	}
	button := m.ring.NextActive(prevButton, occupiedFilter)
	if button == 0 {
		return fmt.Errorf("handmachine: cannot start hand, no eligible seats")
	}

	sb, bb, err := m.ring.AssignPositions(button, occupiedFilter)
	if err != nil {
		return fmt.Errorf("handmachine: %w", err)
	}

	m.d = deck.New(m.rngSystem)

	for _, p := range m.players {
		p.HoleCards = nil
		p.CurrentBet = 0
		p.TotalBetThisHand = 0
		p.Folded = false
		p.AllIn = false
		p.EliminatedThisHand = false
	}

	m.state = &HandState{
		HandNumber: handNumber,
		Phase:      PhasePreflop,
		ButtonSeat: button,
		SBSeat:     sb,
		BBSeat:     bb,
		MinRaise:   m.bigBlind,
		HighBet:    m.bigBlind,
		LastRaiseAmount: m.bigBlind,
	}

	m.postBlind(sb, m.smallBlind)
	m.postBlind(bb, m.bigBlind)

	for _, seat := range m.ring.Occupants() {
		p := m.players[seat]
		if p == nil || !p.canAct() || p.Chips == 0 {
			continue
		}
		hole, err := m.d.DealHole(2)
		if err != nil {
			m.observer.OnFatalError(fmt.Errorf("handmachine: deal hole cards: %w", err))
			return err
		}
		p.HoleCards = hole
	}

	// Heads-up: button (SB) acts first preflop. Otherwise first active seat
	// after BB.
	if len(m.activeSeats()) == 2 {
		m.setActor(sb)
	} else {
		m.setActor(m.ring.NextActive(bb, m.canActFilter))
	}

	return nil
}

func (m *Machine) postBlind(seat int, amount int64) {
	p := m.players[seat]
	if p == nil {
		return
	}
	post := amount
	if p.Chips < post {
		post = p.Chips
	}
	p.Chips -= post
	p.CurrentBet = post
	p.TotalBetThisHand += post
	if p.Chips == 0 {
		p.AllIn = true
	}
}

func (m *Machine) activeSeats() []int {
	var out []int
	for _, seat := range m.ring.Occupants() {
		p := m.players[seat]
		if p != nil && p.canAct() && p.Chips+p.CurrentBet > 0 {
			out = append(out, seat)
		}
	}
	return out
}

func (m *Machine) canActFilter(userID string) bool {
	p := m.playerByID(userID)
	return p != nil && p.canAct() && !p.Folded && !p.AllIn
}

func (m *Machine) setActor(seat int) {
	m.state.CurrentActor = seat
	if seat != 0 && m.observer != nil {
		m.observer.OnTurnChanged(seat)
	}
}

// notFoldedSeats returns seats of players still in the hand (not folded).
func (m *Machine) notFoldedSeats() []int {
	var out []int
	for _, seat := range m.ring.Occupants() {
		p := m.players[seat]
		if p != nil && !p.Folded && p.canAct() {
			out = append(out, seat)
		}
	}
	return out
}

// SubmitAction processes one action from the current actor. Returns an
// error for out-of-turn or illegal actions; the caller (Table) surfaces
// those as validation errors without mutating anything (no mutation has
// occurred since the error is returned before any state change).
func (m *Machine) SubmitAction(action Action) error {
	if m.state.Phase != PhasePreflop && m.state.Phase != PhaseFlop &&
		m.state.Phase != PhaseTurn && m.state.Phase != PhaseRiver {
		return fmt.Errorf("handmachine: no betting action accepted in phase %s", m.state.Phase)
	}
	if action.Seat != m.state.CurrentActor {
		return fmt.Errorf("handmachine: out of turn")
	}
	p := m.players[action.Seat]
	if p == nil || p.Folded || p.AllIn {
		return fmt.Errorf("handmachine: player not eligible to act")
	}

	switch action.Type {
	case ActionFold:
		p.Folded = true
	case ActionCheck:
		if p.CurrentBet != m.state.HighBet {
			return fmt.Errorf("handmachine: cannot check, facing a bet")
		}
	case ActionCall:
		m.applyCall(p)
	case ActionBet:
		if m.state.HighBet != 0 {
			return fmt.Errorf("handmachine: cannot bet, action already opened")
		}
		if action.Amount < m.bigBlind {
			return fmt.Errorf("handmachine: bet below minimum")
		}
		if err := m.applyBet(p, action.Amount); err != nil {
			return err
		}
	case ActionRaise:
		if m.state.HighBet == 0 {
			return fmt.Errorf("handmachine: cannot raise, no bet to raise")
		}
		if err := m.applyRaise(p, action.Amount); err != nil {
			return err
		}
	case ActionAllIn:
		m.applyAllIn(p)
	default:
		return fmt.Errorf("handmachine: unknown action type")
	}

	if len(m.notFoldedSeats()) == 1 {
		return m.settleFoldedOut()
	}

	m.advanceActor()
	return nil
}

func (m *Machine) applyCall(p *Player) {
	owed := m.state.HighBet - p.CurrentBet
	if owed > p.Chips {
		owed = p.Chips
	}
	p.Chips -= owed
	p.CurrentBet += owed
	p.TotalBetThisHand += owed
	if p.Chips == 0 {
		p.AllIn = true
	}
}

func (m *Machine) applyBet(p *Player, amount int64) error {
	if amount > p.Chips {
		return fmt.Errorf("handmachine: bet exceeds chip stack")
	}
	p.Chips -= amount
	p.CurrentBet = amount
	p.TotalBetThisHand += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
	m.state.HighBet = amount
	m.state.MinRaise = amount
	m.state.LastRaiseAmount = amount
	return nil
}

func (m *Machine) applyRaise(p *Player, target int64) error {
	maxTarget := p.Chips + p.CurrentBet
	fullRaise := target >= m.state.HighBet+m.state.LastRaiseAmount
	allInShort := target == maxTarget && target < m.state.HighBet+m.state.LastRaiseAmount

	if target < m.state.HighBet {
		return fmt.Errorf("handmachine: raise below current high bet")
	}
	if !fullRaise && !allInShort {
		return fmt.Errorf("handmachine: raise below minimum raise size")
	}
	if target > maxTarget {
		return fmt.Errorf("handmachine: raise exceeds available chips")
	}

	delta := target - p.CurrentBet
	p.Chips -= delta
	p.CurrentBet = target
	p.TotalBetThisHand += delta
	if p.Chips == 0 {
		p.AllIn = true
	}

	if fullRaise {
		m.state.LastRaiseAmount = target - m.state.HighBet
	}
	m.state.HighBet = target
	return nil
}

func (m *Machine) applyAllIn(p *Player) {
	target := p.Chips + p.CurrentBet
	if target <= m.state.HighBet {
		// equivalent to a short call
		p.CurrentBet = target
		p.TotalBetThisHand += p.Chips
		p.Chips = 0
		p.AllIn = true
		return
	}
	_ = m.applyRaise(p, target)
}

// advanceActor moves to the next player who must act, or closes the round
// if none remain.
func (m *Machine) advanceActor() {
	next := m.ring.NextActive(m.state.CurrentActor, m.canActFilter)
	if next == 0 || m.roundClosed() {
		m.closeRound()
		return
	}
	m.setActor(next)
}

// roundClosed reports whether every non-folded, non-all-in player has
// matched HighBet since the last raise (or checked around with no bet).
func (m *Machine) roundClosed() bool {
	for _, seat := range m.ring.Occupants() {
		p := m.players[seat]
		if p == nil || p.Folded || p.AllIn || !p.canAct() {
			continue
		}
		if p.CurrentBet != m.state.HighBet {
			return false
		}
	}
	return true
}

func (m *Machine) closeRound() {
	m.state.CurrentActor = 0

	for _, seat := range m.ring.Occupants() {
		if p := m.players[seat]; p != nil {
			p.CurrentBet = 0
		}
	}
	m.state.HighBet = 0
	m.state.MinRaise = m.bigBlind
	m.state.LastRaiseAmount = m.bigBlind

	runoutOnly := m.countCanStillAct() <= 1

	switch m.state.Phase {
	case PhasePreflop:
		m.dealStreet(PhaseFlop, 3)
	case PhaseFlop:
		m.dealStreet(PhaseTurn, 1)
	case PhaseTurn:
		m.dealStreet(PhaseRiver, 1)
	case PhaseRiver:
		m.enterShowdown()
		return
	}

	if runoutOnly && m.state.Phase != PhaseShowdown {
		m.closeRound()
		return
	}

	if m.state.Phase != PhaseShowdown {
		first := m.ring.NextActive(m.state.ButtonSeat, m.canActFilter)
		m.setActor(first)
	}
}

func (m *Machine) countCanStillAct() int {
	n := 0
	for _, seat := range m.ring.Occupants() {
		p := m.players[seat]
		if p != nil && p.canAct() && !p.Folded && !p.AllIn {
			n++
		}
	}
	return n
}

func (m *Machine) dealStreet(phase Phase, n int) {
	_ = m.d.Burn(1)
	dealt, err := m.d.DealBoard(n)
	if err != nil {
		m.observer.OnFatalError(fmt.Errorf("handmachine: deal street: %w", err))
		return
	}
	m.state.Board = append(m.state.Board, dealt...)
	m.state.Phase = phase
	if m.observer != nil {
		m.observer.OnDealStreet(phase, dealt, m.state.Board)
	}
}

func (m *Machine) enterShowdown() {
	m.state.Phase = PhaseShowdown
	m.settle()
}

// settleFoldedOut awards all pots to the single remaining player when
// everyone else has folded, without running the board out or evaluating
// hands.
func (m *Machine) settleFoldedOut() error {
	remaining := m.notFoldedSeats()
	if len(remaining) != 1 {
		return fmt.Errorf("handmachine: settleFoldedOut called with %d remaining players", len(remaining))
	}
	winner := m.players[remaining[0]]

	total := int64(0)
	for _, p := range m.players {
		total += p.TotalBetThisHand
	}
	winner.Chips += total

	m.state.Phase = PhaseSettled
	m.checkEliminations()
	if m.observer != nil {
		m.observer.OnHandSettled([]potengine.Award{{UserID: winner.UserID, Amount: total}}, m.state.Board, winner.UserID)
	}
	return nil
}

func (m *Machine) settle() {
	var contributions []potengine.Contribution
	for _, p := range m.players {
		if p.TotalBetThisHand == 0 {
			continue
		}
		contributions = append(contributions, potengine.Contribution{
			UserID:     p.UserID,
			Amount:     p.TotalBetThisHand,
			Folded:     p.Folded,
			SeatNumber: p.Seat,
		})
	}

	pots := potengine.BuildPots(contributions)

	rank := func(userID string) *handeval.EvaluatedHand {
		p := m.playerByID(userID)
		if p == nil || len(p.HoleCards) == 0 {
			return nil
		}
		combined := append(append([]card.Card{}, p.HoleCards...), m.state.Board...)
		hand, err := m.evaluator.Evaluate(combined)
		if err != nil {
			return nil
		}
		return hand
	}
	seatOf := func(userID string) int {
		p := m.playerByID(userID)
		if p == nil {
			return 0
		}
		return p.Seat
	}

	awards := potengine.Settle(pots, rank, seatOf, m.state.ButtonSeat, m.ring.Size())
	var primary string
	var primaryAmount int64 = -1
	for _, a := range awards {
		p := m.players[seatOf(a.UserID)]
		if p != nil {
			p.Chips += a.Amount
		}
		if a.Amount > primaryAmount {
			primaryAmount = a.Amount
			primary = a.UserID
		}
	}

	m.state.Phase = PhaseSettled
	m.checkEliminations()
	if m.observer != nil {
		m.observer.OnHandSettled(awards, m.state.Board, primary)
	}
}

// checkEliminations marks players whose chips hit zero by way of an all-in
// this hand, per the tournament elimination hook contract: EliminatedThisHand
// is the signal TournamentSupervisor reads after settlement.
func (m *Machine) checkEliminations() {
	for _, p := range m.players {
		if p.AllIn && p.Chips == 0 {
			p.EliminatedThisHand = true
		}
	}
}

// ResetForNextHand returns the machine to the waiting phase between hands.
func (m *Machine) ResetForNextHand() {
	m.state = &HandState{Phase: PhaseWaiting, ButtonSeat: m.state.ButtonSeat}
}

// CurrentPots computes the live pot layering from this hand's contributions
// so far, for the gameState snapshot — the same BuildPots algorithm used at
// settlement, run against in-progress TotalBetThisHand figures.
func (m *Machine) CurrentPots() []potengine.Pot {
	var contributions []potengine.Contribution
	for _, p := range m.players {
		if p.TotalBetThisHand == 0 {
			continue
		}
		contributions = append(contributions, potengine.Contribution{
			UserID:     p.UserID,
			Amount:     p.TotalBetThisHand,
			Folded:     p.Folded,
			SeatNumber: p.Seat,
		})
	}
	return potengine.BuildPots(contributions)
}
