// Package session implements SessionRouter: the per-socket command
// dispatcher. It validates the sender is authorized for the action it is
// requesting, rate-limits each socket, and forwards to Table, Matchmaker or
// TournamentSupervisor — it never mutates game state itself, mirroring the
// teacher's handleMessage switch but over the closed event types instead of
// a raw map[string]interface{}.
package session

import (
	"fmt"
	"sync"

	"poker-core/internal/broadcast"
	"poker-core/internal/clock"
	"poker-core/internal/events"
	"poker-core/internal/matchmaker"
	"poker-core/internal/registry"
	"poker-core/internal/table"
	"poker-core/internal/tournament"
)

// DefaultRateLimit is the default commands/second/socket ceiling.
const DefaultRateLimit = 20

var (
	ErrRateLimited = fmt.Errorf("session: rate limit exceeded")
	ErrNotFound    = fmt.Errorf("session: unknown target")
	ErrUnknownCmd  = fmt.Errorf("session: unrecognized command")
)

// TableLookup resolves a tableId to its live Table, the directory
// cmd/gameserver owns across cash tables, private tables and tournament
// tables alike.
type TableLookup func(tableID string) (*table.Table, bool)

// TournamentLookup resolves a tournamentId to its live Tournament.
type TournamentLookup func(tournamentID string) (*tournament.Tournament, bool)

// Router is the SessionRouter. One instance serves every socket; per-socket
// state is keyed by the caller-supplied socketID.
type Router struct {
	clk         clock.Clock
	tables      TableLookup
	tournaments TournamentLookup
	matchmaker  *matchmaker.Matchmaker
	reg         *registry.Registry
	bcast       *broadcast.Broadcaster
	rateLimit   int

	mu          sync.Mutex
	buckets     map[string]*bucket
	activeGame  map[string]string // userId -> last joined tableId
	activeTrn   map[string]string // userId -> last joined tournamentId
}

// New constructs a Router. rateLimit <= 0 uses DefaultRateLimit.
func New(clk clock.Clock, tables TableLookup, tournaments TournamentLookup, mm *matchmaker.Matchmaker, reg *registry.Registry, bcast *broadcast.Broadcaster, rateLimit int) *Router {
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	return &Router{
		clk:         clk,
		tables:      tables,
		tournaments: tournaments,
		matchmaker:  mm,
		reg:         reg,
		bcast:       bcast,
		rateLimit:   rateLimit,
		buckets:     make(map[string]*bucket),
		activeGame:  make(map[string]string),
		activeTrn:   make(map[string]string),
	}
}

func roomForUser(userID string) string { return "user:" + userID }

// registrySubscriber adapts ConnectionRegistry to broadcast.Subscriber so a
// room publish reaches every live socket for a user.
type registrySubscriber struct {
	reg    *registry.Registry
	userID string
}

func (s registrySubscriber) Deliver(event interface{}) { s.reg.Send(s.userID, event) }

// OnConnect subscribes a newly registered socket to its personal
// notification room and, if it is mid-game, resubscribes it to the table
// room and notifies the table the player reconnected.
func (r *Router) OnConnect(userID string) {
	sub := registrySubscriber{reg: r.reg, userID: userID}
	r.bcast.Subscribe(roomForUser(userID), userID, sub)

	r.mu.Lock()
	tableID, inGame := r.activeGame[userID]
	r.mu.Unlock()
	if !inGame {
		return
	}
	r.bcast.Subscribe(tableID, userID, sub)
	if tbl, ok := r.tables(tableID); ok {
		tbl.NotifyReconnected(userID)
	}
}

// OnDisconnect notifies the active table (if any) that userId's last socket
// closed. Caller is responsible for only invoking this once
// ConnectionRegistry reports no sockets remain for userId.
func (r *Router) OnDisconnect(userID string) {
	r.bcast.Unsubscribe(roomForUser(userID), userID)
	r.mu.Lock()
	tableID, inGame := r.activeGame[userID]
	r.mu.Unlock()
	if !inGame {
		return
	}
	if tbl, ok := r.tables(tableID); ok {
		tbl.NotifyDisconnected(userID)
	}
}

func (r *Router) rememberGame(userID, tableID string) {
	r.mu.Lock()
	r.activeGame[userID] = tableID
	r.mu.Unlock()
}

func (r *Router) rememberTournament(userID, tournamentID string) {
	r.mu.Lock()
	r.activeTrn[userID] = tournamentID
	r.mu.Unlock()
}

// Dispatch handles one inbound command from socketID/userID. msg must be
// one of the concrete types in package events; anything else is a bug, not
// a degrade path, and returns ErrUnknownCmd.
func (r *Router) Dispatch(socketID, userID string, msg interface{}) error {
	if !r.allow(socketID) {
		return ErrRateLimited
	}

	switch m := msg.(type) {
	case events.JoinGame:
		return r.joinTable(userID, m.GameID)
	case events.RequestSeat:
		return r.joinTable(userID, m.GameID)
	case events.JoinTable:
		if _, ok := r.tables(m.TableID); !ok {
			return ErrNotFound
		}
		r.bcast.Subscribe(m.TableID, userID, registrySubscriber{reg: r.reg, userID: userID})
		r.rememberGame(userID, m.TableID)
		return nil
	case events.HostSelfSeat:
		tbl, ok := r.tables(m.GameID)
		if !ok {
			return ErrNotFound
		}
		return tbl.HostSelfSeat(userID, m.SeatIndex)
	case events.PlayerAction:
		tbl, ok := r.tables(m.GameID)
		if !ok {
			return ErrNotFound
		}
		return tbl.SubmitAction(userID, m)
	case events.AdminAction:
		tbl, ok := r.tables(m.GameID)
		if !ok {
			return ErrNotFound
		}
		return tbl.AdminAction(userID, m)

	case events.JoinQueue:
		if err := r.matchmaker.JoinQueue(userID, m.QueueType); err != nil {
			return err
		}
		r.bcast.Subscribe("queue:"+m.QueueType, userID, registrySubscriber{reg: r.reg, userID: userID})
		return nil
	case events.LeaveQueue:
		return r.matchmaker.LeaveQueue(userID, m.QueueType)
	case events.CheckQueueStatus:
		r.reg.Send(userID, r.matchmaker.CheckStatus(userID))
		return nil

	case events.CheckActiveSession:
		r.mu.Lock()
		tableID, inGame := r.activeGame[userID]
		r.mu.Unlock()
		status := events.SessionStatus{InGame: inGame}
		if inGame {
			status.GameID = &tableID
		}
		r.reg.Send(userID, status)
		return nil
	case events.CheckActiveStatus:
		r.reg.Send(userID, r.buildActiveStatus(userID))
		return nil

	case events.RegisterTournament:
		trn, ok := r.tournaments(m.TournamentID)
		if !ok {
			return ErrNotFound
		}
		if err := trn.Register(userID); err != nil {
			return err
		}
		r.rememberTournament(userID, m.TournamentID)
		r.bcast.Subscribe(m.TournamentID, userID, registrySubscriber{reg: r.reg, userID: userID})
		return nil
	case events.UnregisterTournament:
		r.mu.Lock()
		tournamentID, ok := r.activeTrn[userID]
		r.mu.Unlock()
		if !ok {
			return ErrNotFound
		}
		trn, ok := r.tournaments(tournamentID)
		if !ok {
			return ErrNotFound
		}
		return trn.Unregister(userID)
	case events.JoinTournamentRoom:
		if _, ok := r.tournaments(m.TournamentID); !ok {
			return ErrNotFound
		}
		r.bcast.Subscribe(m.TournamentID, userID, registrySubscriber{reg: r.reg, userID: userID})
		r.rememberTournament(userID, m.TournamentID)
		return nil
	case events.GetTournamentState:
		trn, ok := r.tournaments(m.TournamentID)
		if !ok {
			return ErrNotFound
		}
		r.reg.Send(userID, buildTournamentStateView(trn.State()))
		return nil
	case events.TournamentAdminAction:
		return r.dispatchTournamentAdmin(userID, m)

	default:
		return ErrUnknownCmd
	}
}

func (r *Router) joinTable(userID, tableID string) error {
	tbl, ok := r.tables(tableID)
	if !ok {
		return ErrNotFound
	}
	r.bcast.Subscribe(tableID, userID, registrySubscriber{reg: r.reg, userID: userID})
	if err := tbl.Join(userID); err != nil {
		return err
	}
	r.rememberGame(userID, tableID)
	return nil
}

func (r *Router) buildActiveStatus(userID string) events.ActiveStatus {
	r.mu.Lock()
	tableID, inGame := r.activeGame[userID]
	tournamentID, inTrn := r.activeTrn[userID]
	r.mu.Unlock()

	var status events.ActiveStatus
	if inGame {
		status.Game = &tableID
	}
	if inTrn {
		status.Tournament = &tournamentID
	}
	if qs := r.matchmaker.CheckStatus(userID); qs.InQueue {
		qt := qs.QueueType
		status.Queue = &qt
	}
	return status
}

func buildTournamentStateView(st tournament.State) events.TournamentStateView {
	view := events.TournamentStateView{
		TournamentID: st.TournamentID,
		Status:       string(st.Status),
		CurrentLevel: st.CurrentLevel,
	}
	for _, p := range st.Participants {
		view.Participants = append(view.Participants, events.TournamentParticipantView{
			UserID:         p.UserID,
			Status:         string(p.Status),
			CurrentStack:   p.CurrentStack,
			CurrentTableID: p.CurrentTableID,
			FinishPosition: p.FinishPosition,
		})
	}
	return view
}
