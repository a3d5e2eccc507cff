// Package table implements Table: the single-writer actor that owns one
// HandMachine plus seating, pause/resume, private-host admin actions,
// join/leave, the disconnect "ghost" model, and the turn timer. It mirrors
// the teacher's gameLoop/actions-channel/stopChan/WaitGroup actor shape,
// generalized so commands (player actions, admin actions, joins, leaves,
// connection events, and timer callbacks) all flow through one mailbox
// instead of a fixed menu of channels.
package table

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"poker-core/internal/broadcast"
	"poker-core/internal/clock"
	"poker-core/internal/events"
	"poker-core/internal/handmachine"
	"poker-core/internal/potengine"
	"poker-core/internal/registry"
	"poker-core/internal/seatring"
	"poker-core/pkg/card"
	"poker-core/pkg/rng"
)

// Errors surfaced to callers as validation/authorization/not-found events.
var (
	ErrTableFull       = fmt.Errorf("table: no seats available")
	ErrAlreadySeated   = fmt.Errorf("table: already seated")
	ErrPlayerNotFound  = fmt.Errorf("table: not a player in this game")
	ErrNotHost         = fmt.Errorf("table: host-only action")
	ErrPaused          = fmt.Errorf("table: table is paused")
	ErrStopped         = fmt.Errorf("table: table is shutting down")
	ErrHandInProgress  = fmt.Errorf("table: cannot transfer seat mid-hand")
)

// HandSummary is handed to the HandHistory hook after every settlement. The
// hook runs on its own goroutine; a failure there never blocks the next
// hand, per the non-blocking persistence-dispatch rule.
type HandSummary struct {
	TableID    string
	HandNumber int
	Awards     []AwardView
	Board      []card.Card
}

// AwardView is a settlement award paired with the chip delta for HandStats.
type AwardView struct {
	UserID string
	Amount int64
}

// Config seeds a new Table. HostID is empty for cash/matchmade tables;
// non-empty marks the table private and host-administered.
type Config struct {
	TableID          string
	Variant          string
	MaxSeats         int
	HostID           string
	JoinCode         string
	TournamentID     *string
	SmallBlind       int64
	BigBlind         int64
	TurnTimeout      time.Duration
	DisconnectGrace  time.Duration
	Clock            clock.Clock
	RNG              *rng.System
	Broadcaster      *broadcast.Broadcaster
	Registry         *registry.Registry
	HandHistoryHook  func(HandSummary)
	FraudHook        func(userID string, action events.PlayerAction, decisionTime time.Duration)
	EliminationHook  func(userID string)
	// PostHandHook fires after every settlement, dispatched on its own
	// goroutine like the other hooks. The tournament supervisor uses it as
	// the "after every hand settlement" trigger for its balancing/merging
	// pass (the alternative trigger is its own idle tick).
	PostHandHook func()
}

// Table owns one HandMachine and everything needed to seat players, drive
// betting rounds, and keep clients synchronized.
type Table struct {
	id              string
	variant         string
	maxSeats        int
	hostID          string
	joinCode        string
	tournamentID    *string
	smallBlind      int64
	bigBlind        int64
	turnTimeout     time.Duration
	disconnectGrace time.Duration

	clk         clock.Clock
	broadcaster *broadcast.Broadcaster
	reg         *registry.Registry
	historyHook  func(HandSummary)
	fraudHook    func(userID string, action events.PlayerAction, decisionTime time.Duration)
	elimHook     func(userID string)
	postHandHook func()

	ring    *seatring.Ring
	players map[int]*handmachine.Player
	machine *handmachine.Machine

	isPaused            bool
	spectators          map[string]bool
	pendingSeatRequests []string
	leavingAtBoundary   map[string]bool
	disconnectTimers    map[string]clock.Timer
	turnTimer           clock.Timer
	handNumber          int
	handStartedAt       time.Time
	actorSince          time.Time

	cmds     chan func()
	stopChan chan struct{}
	wg       sync.WaitGroup

	snapMu   sync.RWMutex
	lastSnap events.GameState
}

// New constructs a Table. Call Start to begin processing its mailbox.
func New(cfg Config) *Table {
	ring := seatring.New(cfg.MaxSeats)
	players := make(map[int]*handmachine.Player)

	t := &Table{
		id:                  cfg.TableID,
		variant:             cfg.Variant,
		maxSeats:            cfg.MaxSeats,
		hostID:              cfg.HostID,
		joinCode:            cfg.JoinCode,
		tournamentID:        cfg.TournamentID,
		smallBlind:          cfg.SmallBlind,
		bigBlind:            cfg.BigBlind,
		turnTimeout:         cfg.TurnTimeout,
		disconnectGrace:     cfg.DisconnectGrace,
		clk:                 cfg.Clock,
		broadcaster:         cfg.Broadcaster,
		reg:                 cfg.Registry,
		historyHook:         cfg.HandHistoryHook,
		fraudHook:           cfg.FraudHook,
		elimHook:            cfg.EliminationHook,
		postHandHook:        cfg.PostHandHook,
		ring:                ring,
		players:             players,
		spectators:          make(map[string]bool),
		leavingAtBoundary:   make(map[string]bool),
		disconnectTimers:    make(map[string]clock.Timer),
		cmds:                make(chan func(), 64),
		stopChan:            make(chan struct{}),
	}
	t.machine = handmachine.New(ring, players, cfg.SmallBlind, cfg.BigBlind, cfg.RNG, t)
	return t
}

// ID returns the table's identifier, used as its broadcast room name.
func (t *Table) ID() string { return t.id }

// Start begins the table's mailbox loop in a goroutine.
func (t *Table) Start() {
	t.wg.Add(1)
	go t.loop()
}

// Stop gracefully shuts the table down and waits for the loop to exit.
func (t *Table) Stop() {
	close(t.stopChan)
	t.wg.Wait()
}

func (t *Table) loop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopChan:
			return
		case c := <-t.cmds:
			c()
		}
	}
}

// enqueue submits a closure to the mailbox; it never blocks the caller past
// the table shutting down.
func (t *Table) enqueue(c func()) {
	select {
	case t.cmds <- c:
	case <-t.stopChan:
	}
}

// call submits a closure and blocks for its error result, the same
// synchronous-over-async shape the teacher uses for SubmitAction.
func (t *Table) call(f func() error) error {
	errCh := make(chan error, 1)
	t.enqueue(func() { errCh <- f() })
	select {
	case err := <-errCh:
		return err
	case <-t.stopChan:
		return ErrStopped
	}
}

// Join seats userId at the next free seat (cash tables) or queues the
// request for host approval (private tables without a pre-approved seat).
func (t *Table) Join(userID string) error {
	return t.call(func() error { return t.handleJoin(userID, nil) })
}

// HostSelfSeat lets the host immediately claim a seat, optionally at a
// specific index, bypassing the pending-request queue.
func (t *Table) HostSelfSeat(userID string, seatIndex *int) error {
	return t.call(func() error {
		if userID != t.hostID {
			return ErrNotHost
		}
		return t.handleJoin(userID, seatIndex)
	})
}

func (t *Table) handleJoin(userID string, seatIndex *int) error {
	if t.ring.SeatOf(userID) != 0 {
		return ErrAlreadySeated
	}

	if t.hostID != "" && userID != t.hostID && seatIndex == nil {
		t.pendingSeatRequests = append(t.pendingSeatRequests, userID)
		t.emitState()
		return nil
	}

	seat := 0
	if seatIndex != nil {
		seat = *seatIndex
	} else {
		seat = t.firstFreeSeat()
	}
	if seat == 0 {
		return ErrTableFull
	}
	if err := t.ring.Seat(userID, seat); err != nil {
		return ErrTableFull
	}
	t.players[seat] = &handmachine.Player{UserID: userID, Seat: seat, Status: handmachine.StatusActive}
	t.tryStartHand()
	t.emitState()
	return nil
}

func (t *Table) firstFreeSeat() int {
	for i := 1; i <= t.ring.Size(); i++ {
		if t.ring.Occupant(i) == "" {
			return i
		}
	}
	return 0
}

// Leave removes userId: immediately if no hand is live, otherwise at the
// next hand boundary so pot accounting is never disturbed mid-hand.
func (t *Table) Leave(userID string) error {
	return t.call(func() error {
		seat := t.ring.SeatOf(userID)
		if seat == 0 {
			delete(t.spectators, userID)
			return nil
		}
		if t.machine.State().Phase == handmachine.PhaseWaiting || t.machine.State().Phase == handmachine.PhaseSettled {
			t.vacateSeat(seat)
		} else {
			t.leavingAtBoundary[userID] = true
			if p := t.players[seat]; p != nil {
				p.Status = handmachine.StatusLeft
			}
		}
		t.emitState()
		return nil
	})
}

func (t *Table) vacateSeat(seat int) {
	p := t.players[seat]
	if p == nil {
		return
	}
	delete(t.leavingAtBoundary, p.UserID)
	delete(t.players, seat)
	_ = t.ring.Vacate(seat)
}

// SubmitAction processes a betting action from userId for the current hand.
func (t *Table) SubmitAction(userID string, action events.PlayerAction) error {
	return t.call(func() error {
		seat := t.ring.SeatOf(userID)
		if seat == 0 {
			return ErrPlayerNotFound
		}
		if t.isPaused {
			return ErrPaused
		}
		if t.fraudHook != nil {
			decisionTime := t.clk.Now().Sub(t.actorSince)
			go t.fraudHook(userID, action, decisionTime)
		}
		act := handmachine.Action{Seat: seat, Type: toMachineAction(action.Type), Amount: action.Amount}
		if err := t.machine.SubmitAction(act); err != nil {
			return err
		}
		t.emitState()
		return nil
	})
}

func toMachineAction(a events.ActionType) handmachine.ActionType {
	switch a {
	case events.ActionFold:
		return handmachine.ActionFold
	case events.ActionCheck:
		return handmachine.ActionCheck
	case events.ActionCall:
		return handmachine.ActionCall
	case events.ActionBet:
		return handmachine.ActionBet
	case events.ActionRaise:
		return handmachine.ActionRaise
	case events.ActionAllIn:
		return handmachine.ActionAllIn
	default:
		return handmachine.ActionFold
	}
}

// AdminAction applies a host-only administrative command.
func (t *Table) AdminAction(userID string, action events.AdminAction) error {
	return t.call(func() error {
		if userID != t.hostID {
			return ErrNotHost
		}
		switch action.Type {
		case events.AdminPause:
			t.isPaused = true
			if t.turnTimer != nil {
				t.turnTimer.Cancel()
			}
		case events.AdminResume:
			t.isPaused = false
			t.tryStartHand()
			t.restartTurnTimerIfActing()
		case events.AdminStartGame:
			t.tryStartHand()
		case events.AdminKick:
			target, _ := action.Payload["userId"].(string)
			if seat := t.ring.SeatOf(target); seat != 0 {
				if p := t.players[seat]; p != nil {
					p.Status = handmachine.StatusRemoved
				}
				t.leavingAtBoundary[target] = true
				if t.machine.State().Phase == handmachine.PhaseWaiting {
					t.vacateSeat(seat)
				}
			}
		case events.AdminApprove:
			target, _ := action.Payload["userId"].(string)
			t.approvePending(target)
		case events.AdminReject:
			target, _ := action.Payload["userId"].(string)
			t.removePending(target)
		case events.AdminSetStack:
			target, _ := action.Payload["userId"].(string)
			amount, _ := action.Payload["chips"].(float64)
			if seat := t.ring.SeatOf(target); seat != 0 {
				if p := t.players[seat]; p != nil {
					p.Chips = int64(amount)
				}
			}
		case events.AdminSetBlinds:
			small, _ := action.Payload["smallBlind"].(float64)
			big, _ := action.Payload["bigBlind"].(float64)
			t.smallBlind, t.bigBlind = int64(small), int64(big)
			t.machine.SetBlinds(t.smallBlind, t.bigBlind)
		default:
			return fmt.Errorf("table: unknown admin action %q", action.Type)
		}
		t.emitState()
		return nil
	})
}

func (t *Table) approvePending(userID string) {
	for i, u := range t.pendingSeatRequests {
		if u == userID {
			t.pendingSeatRequests = append(t.pendingSeatRequests[:i], t.pendingSeatRequests[i+1:]...)
			seat := t.firstFreeSeat()
			if seat != 0 && t.ring.Seat(userID, seat) == nil {
				t.players[seat] = &handmachine.Player{UserID: userID, Seat: seat, Status: handmachine.StatusActive}
				t.tryStartHand()
			}
			return
		}
	}
}

func (t *Table) removePending(userID string) {
	for i, u := range t.pendingSeatRequests {
		if u == userID {
			t.pendingSeatRequests = append(t.pendingSeatRequests[:i], t.pendingSeatRequests[i+1:]...)
			return
		}
	}
}

// NotifyDisconnected is invoked by the transport layer (via SessionRouter)
// when ConnectionRegistry reports a seated player's last socket closed.
func (t *Table) NotifyDisconnected(userID string) {
	t.enqueue(func() {
		seat := t.ring.SeatOf(userID)
		if seat == 0 {
			return
		}
		p := t.players[seat]
		if p == nil || p.Status == handmachine.StatusLeft || p.Status == handmachine.StatusRemoved {
			return
		}
		p.Status = handmachine.StatusDisconnected
		deadline := t.clk.Now().Add(t.disconnectGrace)
		timer := t.clk.AfterFunc(t.disconnectGrace, func() {
			t.enqueue(func() { t.expireDisconnect(userID) })
		})
		t.disconnectTimers[userID] = timer
		t.publish(events.PlayerStatusUpdate{PlayerID: userID, Status: "DISCONNECTED", Timestamp: deadline.UnixMilli()})
	})
}

// NotifyReconnected is invoked when a disconnected player's socket comes
// back before the grace deadline elapses.
func (t *Table) NotifyReconnected(userID string) {
	t.enqueue(func() {
		seat := t.ring.SeatOf(userID)
		if seat == 0 {
			return
		}
		p := t.players[seat]
		if p == nil || p.Status != handmachine.StatusDisconnected {
			return
		}
		if timer, ok := t.disconnectTimers[userID]; ok {
			timer.Cancel()
			delete(t.disconnectTimers, userID)
		}
		p.Status = handmachine.StatusActive
		if t.reg != nil {
			t.reg.Send(userID, events.SyncGame{GameState: t.buildGameState(userID)})
		}
		t.publish(events.PlayerStatusUpdate{PlayerID: userID, Status: "ACTIVE"})
	})
}

func (t *Table) expireDisconnect(userID string) {
	delete(t.disconnectTimers, userID)
	seat := t.ring.SeatOf(userID)
	if seat == 0 {
		return
	}
	p := t.players[seat]
	if p == nil || p.Status != handmachine.StatusDisconnected {
		return
	}
	p.Status = handmachine.StatusLeft
	t.leavingAtBoundary[userID] = true
	t.publish(events.PlayerStatusUpdate{PlayerID: userID, Status: "LEFT"})
	if t.machine.State().Phase == handmachine.PhaseWaiting {
		t.vacateSeat(seat)
	}
}

// tryStartHand begins a new hand if enough eligible players are seated, the
// table isn't paused, and no hand is currently live.
func (t *Table) tryStartHand() {
	if t.isPaused {
		return
	}
	phase := t.machine.State().Phase
	if phase != handmachine.PhaseWaiting && phase != handmachine.PhaseSettled {
		return
	}
	if !t.machine.ShouldStartHand() {
		return
	}
	t.handNumber++
	if err := t.machine.StartHand(t.handNumber); err != nil {
		t.handNumber--
		return
	}
	t.handStartedAt = t.clk.Now()
	t.restartTurnTimerIfActing()
	t.emitState()
}

func (t *Table) restartTurnTimerIfActing() {
	if t.isPaused {
		return
	}
	seat := t.machine.State().CurrentActor
	if seat == 0 {
		return
	}
	t.scheduleTurnTimer(seat)
}

func (t *Table) scheduleTurnTimer(seat int) {
	if t.turnTimer != nil {
		t.turnTimer.Cancel()
	}
	t.actorSince = t.clk.Now()
	deadline := t.actorSince.Add(t.turnTimeout)
	t.turnTimer = t.clk.AfterFunc(t.turnTimeout, func() {
		t.enqueue(func() { t.autoAct(seat) })
	})
	t.publish(events.TurnTimerStarted{
		Deadline:   deadline.UnixMilli(),
		Duration:   t.turnTimeout.Milliseconds(),
		ActiveSeat: seat,
	})
}

// autoAct fires on turn-timer expiry (or immediately for a ghost seat):
// check if legal, else fold.
func (t *Table) autoAct(seat int) {
	if t.machine.State().CurrentActor != seat {
		return
	}
	turnTimerFiresTotal.WithLabelValues(t.variant).Inc()
	act := handmachine.Action{Seat: seat, Type: handmachine.ActionCheck}
	if err := t.machine.SubmitAction(act); err != nil {
		_ = t.machine.SubmitAction(handmachine.Action{Seat: seat, Type: handmachine.ActionFold})
	}
	t.emitState()
}

// OnTurnChanged implements handmachine.Observer.
func (t *Table) OnTurnChanged(seat int) {
	p := t.players[seat]
	if p != nil && p.Status == handmachine.StatusDisconnected {
		// Ghost seats act at once without a turn timer: autoAct checks if
		// that is legal and folds otherwise.
		t.enqueue(func() { t.autoAct(seat) })
		return
	}
	t.scheduleTurnTimer(seat)
}

// OnDealStreet implements handmachine.Observer.
func (t *Table) OnDealStreet(phase handmachine.Phase, dealt []card.Card, board []card.Card) {
	t.publish(events.DealStreet{
		Round:          phase.String(),
		Cards:          toCardViews(dealt),
		CommunityCards: toCardViews(board),
	})
}

// OnHandSettled implements handmachine.Observer. It broadcasts the runout
// and finish events, dispatches the hand-history hook on its own goroutine
// so persistence never blocks the next hand, vacates players who left
// mid-hand, checks tournament eliminations, and schedules the next hand
// after a short delay.
func (t *Table) OnHandSettled(awards []potengine.Award, board []card.Card, primaryWinner string) {
	if t.turnTimer != nil {
		t.turnTimer.Cancel()
		t.turnTimer = nil
	}

	if !t.handStartedAt.IsZero() {
		handDurationSeconds.WithLabelValues(t.variant).Observe(t.clk.Now().Sub(t.handStartedAt).Seconds())
	}

	t.publish(events.HandRunout{WinnerID: primaryWinner, Board: toCardViews(board)})

	chipChanges := make(map[string]int64, len(awards))
	for _, a := range awards {
		chipChanges[a.UserID] = a.Amount
	}
	t.publish(events.GameFinished{
		Reason:    "hand_complete",
		WinnerID:  primaryWinner,
		Timestamp: t.clk.Now().UnixMilli(),
		Stats:     &events.HandStats{TotalHands: t.handNumber, ChipChanges: chipChanges},
	})

	if t.historyHook != nil {
		summary := HandSummary{TableID: t.id, HandNumber: t.handNumber, Board: board}
		for _, a := range awards {
			summary.Awards = append(summary.Awards, AwardView{UserID: a.UserID, Amount: a.Amount})
		}
		go t.historyHook(summary)
	}

	if t.elimHook != nil {
		for _, p := range t.players {
			if p.EliminatedThisHand {
				go t.elimHook(p.UserID)
			}
		}
	}

	for userID := range t.leavingAtBoundary {
		if seat := t.ring.SeatOf(userID); seat != 0 {
			t.vacateSeat(seat)
		}
	}

	t.machine.ResetForNextHand()
	t.emitState()

	if t.postHandHook != nil {
		go t.postHandHook()
	}

	t.clk.AfterFunc(interHandDelay, func() {
		t.enqueue(t.tryStartHand)
	})
}

// OnFatalError implements handmachine.Observer. A hand-machine invariant
// violation is contained to this one table: every player is refunded their
// contribution for the hand and the table shuts down.
func (t *Table) OnFatalError(err error) {
	for _, p := range t.players {
		p.Chips += p.TotalBetThisHand
		p.TotalBetThisHand = 0
	}
	t.publish(events.GameFinished{
		Reason:    "internal",
		Timestamp: t.clk.Now().UnixMilli(),
	})
	go t.Stop()
}

const interHandDelay = 2 * time.Second

func toCardViews(cards []card.Card) []events.CardView {
	out := make([]events.CardView, len(cards))
	for i, c := range cards {
		out[i] = events.CardView{Rank: c.Rank.String(), Suit: c.Suit.String()}
	}
	return out
}

func (t *Table) publish(event interface{}) {
	if t.broadcaster != nil {
		t.broadcaster.Publish(t.id, event)
	}
}

func (t *Table) emitState() {
	t.publish(events.SyncGame{GameState: t.buildGameState("")})
	if t.reg == nil {
		return
	}
	for _, seat := range t.ring.Occupants() {
		p := t.players[seat]
		if p == nil {
			continue
		}
		t.reg.Send(p.UserID, events.SyncGame{GameState: t.buildGameState(p.UserID)})
	}
}

// buildGameState renders the authoritative snapshot. viewerID's own hole
// cards are shown; every other seat's are masked to nil unless revealed.
func (t *Table) buildGameState(viewerID string) events.GameState {
	state := t.machine.State()
	players := make([]events.PlayerView, 0, len(t.players))
	for _, seat := range t.ring.Occupants() {
		p := t.players[seat]
		if p == nil {
			continue
		}
		view := events.PlayerView{
			UserID:     p.UserID,
			Seat:       p.Seat,
			Chips:      p.Chips,
			CurrentBet: p.CurrentBet,
			Folded:     p.Folded,
			AllIn:      p.AllIn,
			Status:     statusString(p.Status),
		}
		if p.UserID == viewerID || (state.Phase == handmachine.PhaseShowdown || state.Phase == handmachine.PhaseSettled) && revealed(p) {
			view.HoleCards = toCardViews(p.HoleCards)
		}
		players = append(players, view)
	}

	t.snapMu.Lock()
	defer t.snapMu.Unlock()
	t.lastSnap = events.GameState{
		GameID:           t.id,
		Players:          players,
		CommunityCards:   toCardViews(state.Board),
		Pots:             toPotViews(t.machine.CurrentPots()),
		ButtonSeat:       state.ButtonSeat,
		SBSeat:           state.SBSeat,
		BBSeat:           state.BBSeat,
		CurrentPhase:     state.Phase.String(),
		CurrentActorSeat: state.CurrentActor,
		MinRaise:         state.MinRaise,
		LastRaiseAmount:  state.LastRaiseAmount,
		HandNumber:       state.HandNumber,
		SmallBlind:       t.smallBlind,
		BigBlind:         t.bigBlind,
		HighBet:          state.HighBet,
	}
	return t.lastSnap
}

func toPotViews(pots []potengine.Pot) []events.PotView {
	out := make([]events.PotView, len(pots))
	for i, pot := range pots {
		eligible := make([]string, 0, len(pot.EligibleSet))
		for userID := range pot.EligibleSet {
			eligible = append(eligible, userID)
		}
		sort.Strings(eligible)
		out[i] = events.PotView{Amount: pot.Amount, EligibleSet: eligible}
	}
	return out
}

func revealed(p *handmachine.Player) bool {
	return len(p.RevealedIndices) > 0
}

func statusString(s handmachine.PlayerStatus) string {
	switch s {
	case handmachine.StatusActive:
		return "ACTIVE"
	case handmachine.StatusWaitingForNextHand:
		return "WAITING_FOR_NEXT_HAND"
	case handmachine.StatusDisconnected:
		return "DISCONNECTED"
	case handmachine.StatusLeft:
		return "LEFT"
	case handmachine.StatusRemoved:
		return "REMOVED"
	case handmachine.StatusEliminated:
		return "ELIMINATED"
	default:
		return "ACTIVE"
	}
}
