// Package tournament implements TournamentSupervisor: registration, table
// allocation, the blind clock, elimination tracking, table balancing and
// merging, and prize-position assignment. It mirrors Table's single-writer
// actor shape (own mailbox, serialized command processing) so tournament
// state mutates exactly as safely as table state does, without needing its
// own lock.
package tournament

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"poker-core/internal/broadcast"
	"poker-core/internal/clock"
	"poker-core/internal/events"
	"poker-core/internal/table"
	"poker-core/pkg/rng"
)

// Status is the tournament's lifecycle state.
type Status string

const (
	StatusSetup        Status = "setup"
	StatusRegistration Status = "registration"
	StatusActive       Status = "active"
	StatusPaused       Status = "paused"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
)

// ParticipantStatus tracks one registrant's standing.
type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantActive     ParticipantStatus = "active"
	ParticipantEliminated ParticipantStatus = "eliminated"
	ParticipantBanned     ParticipantStatus = "banned"
)

// BlindLevel is one entry in a tournament's blind structure.
type BlindLevel struct {
	Small int64
	Big   int64
}

// Participant is one registrant's tournament-scoped state.
type Participant struct {
	UserID         string
	Status         ParticipantStatus
	CurrentStack   int64
	CurrentTableID string
	CurrentSeat    int
	EliminatedAt   *time.Time
	FinishPosition int // 0 means not yet finished
}

// Settings is host-configured tournament setup, validated by UpdateSettings.
type Settings struct {
	MaxPlayers               *int // nil means unlimited
	MaxPlayersPerTable       int
	StartingStack            int64
	BlindStructure           []BlindLevel
	BlindLevelDurationMillis int64
}

func (s Settings) validate() error {
	if s.MaxPlayersPerTable < 2 || s.MaxPlayersPerTable > 10 {
		return fmt.Errorf("tournament: maxPlayersPerTable must be 2..10, got %d", s.MaxPlayersPerTable)
	}
	if s.StartingStack <= 0 {
		return fmt.Errorf("tournament: startingStack must be positive")
	}
	if len(s.BlindStructure) == 0 {
		return fmt.Errorf("tournament: blind structure must be non-empty")
	}
	var prevBig int64
	for i, lvl := range s.BlindStructure {
		if lvl.Small <= 0 || lvl.Big <= lvl.Small {
			return fmt.Errorf("tournament: blind level %d invalid (%d/%d)", i, lvl.Small, lvl.Big)
		}
		if lvl.Big < prevBig {
			return fmt.Errorf("tournament: blind level %d must not decrease from the previous level", i)
		}
		prevBig = lvl.Big
	}
	if s.BlindLevelDurationMillis <= 0 {
		return fmt.Errorf("tournament: blindLevelDurationMillis must be positive")
	}
	if s.MaxPlayers != nil && *s.MaxPlayers < 2 {
		return fmt.Errorf("tournament: maxPlayers must be >= 2")
	}
	return nil
}

// TableSpec is everything TableFactory needs to mint one tournament table.
// OnElimination and OnPostHand are bound to this specific Tournament
// instance by the caller; TableFactory just has to thread them into the new
// Table's Config hooks.
type TableSpec struct {
	TableID       string
	TournamentID  string
	MaxSeats      int
	SmallBlind    int64
	BigBlind      int64
	OnElimination func(userID string)
	OnPostHand    func()
}

// TableFactory mints a Table seated for tournament play. TournamentSupervisor
// never constructs Table itself, keeping it decoupled from transport,
// persistence and fraud wiring the same way Matchmaker's factory does.
type TableFactory func(spec TableSpec) (*table.Table, error)

var (
	ErrNotHost          = fmt.Errorf("tournament: host-only action")
	ErrWrongPhase       = fmt.Errorf("tournament: action not valid in current status")
	ErrAlreadyRegistered = fmt.Errorf("tournament: already registered")
	ErrNotRegistered    = fmt.Errorf("tournament: not registered")
	ErrFull             = fmt.Errorf("tournament: registration is full")
	ErrNotEnoughPlayers = fmt.Errorf("tournament: need at least 2 participants to start")
	ErrStopped          = fmt.Errorf("tournament: shutting down")
	ErrUnknownTable     = fmt.Errorf("tournament: unknown table")
)

// State is a read-only snapshot returned by State().
type State struct {
	TournamentID string
	Status       Status
	CurrentLevel int
	Settings     Settings
	Participants []Participant
}

// Tournament owns registration, table allocation, the blind clock,
// elimination tracking and balancing for one tournament instance.
type Tournament struct {
	id       string
	hostID   string
	clk      clock.Clock
	bcast    *broadcast.Broadcaster
	mint     TableFactory

	status       Status
	settings     Settings
	currentLevel int
	levelEndsAt  time.Time
	remainingMs  int64 // valid only while status == StatusPaused

	participants map[string]*Participant
	tables       map[string]*table.Table

	blindTimer clock.Timer
	warnTimer  clock.Timer

	cmds     chan func()
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Tournament in StatusSetup. Call Start to begin processing
// its mailbox.
func New(id, hostID string, clk clock.Clock, bcast *broadcast.Broadcaster, mint TableFactory) *Tournament {
	return &Tournament{
		id:           id,
		hostID:       hostID,
		clk:          clk,
		bcast:        bcast,
		mint:         mint,
		status:       StatusSetup,
		participants: make(map[string]*Participant),
		tables:       make(map[string]*table.Table),
		cmds:         make(chan func(), 64),
		stopChan:     make(chan struct{}),
	}
}

// ID returns the tournament's identifier, used as its broadcast room name.
func (tr *Tournament) ID() string { return tr.id }

// Start begins the tournament's mailbox loop in a goroutine.
func (tr *Tournament) Start() {
	tr.wg.Add(1)
	go tr.loop()
}

// Stop gracefully shuts the tournament down, stopping every table it owns.
func (tr *Tournament) Stop() {
	close(tr.stopChan)
	tr.wg.Wait()
	for _, tbl := range tr.tables {
		tbl.Stop()
	}
}

func (tr *Tournament) loop() {
	defer tr.wg.Done()
	for {
		select {
		case <-tr.stopChan:
			return
		case c := <-tr.cmds:
			c()
		}
	}
}

func (tr *Tournament) enqueue(c func()) {
	select {
	case tr.cmds <- c:
	case <-tr.stopChan:
	}
}

func (tr *Tournament) call(f func() error) error {
	errCh := make(chan error, 1)
	tr.enqueue(func() { errCh <- f() })
	select {
	case err := <-errCh:
		return err
	case <-tr.stopChan:
		return ErrStopped
	}
}

func (tr *Tournament) publish(event interface{}) {
	tr.bcast.Publish(tr.id, event)
}

// UpdateSettings replaces the tournament's configuration. Only legal during
// setup, before any table has been minted.
func (tr *Tournament) UpdateSettings(hostID string, s Settings) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		if tr.status != StatusSetup {
			return ErrWrongPhase
		}
		if err := s.validate(); err != nil {
			return err
		}
		tr.settings = s
		return nil
	})
}

// OpenRegistration moves setup -> registration.
func (tr *Tournament) OpenRegistration(hostID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		if tr.status != StatusSetup {
			return ErrWrongPhase
		}
		if len(tr.settings.BlindStructure) == 0 {
			return fmt.Errorf("tournament: settings must be configured before opening registration")
		}
		tr.status = StatusRegistration
		tr.publish(events.TournamentStatusChanged{TournamentID: tr.id, Status: string(tr.status)})
		return nil
	})
}

// Register enrolls userId during the registration phase.
func (tr *Tournament) Register(userID string) error {
	return tr.call(func() error { return tr.registerLocked(userID) })
}

func (tr *Tournament) registerLocked(userID string) error {
	if tr.status != StatusRegistration {
		return ErrWrongPhase
	}
	if _, ok := tr.participants[userID]; ok {
		return ErrAlreadyRegistered
	}
	if tr.settings.MaxPlayers != nil && len(tr.participants) >= *tr.settings.MaxPlayers {
		return ErrFull
	}
	tr.participants[userID] = &Participant{UserID: userID, Status: ParticipantRegistered}
	tr.publish(events.TournamentPlayerRegistered{TournamentID: tr.id, UserID: userID})
	tr.publish(events.TournamentParticipantCountChanged{TournamentID: tr.id, Count: len(tr.participants)})
	return nil
}

// Unregister withdraws userId before the tournament starts.
func (tr *Tournament) Unregister(userID string) error {
	return tr.call(func() error {
		if tr.status != StatusRegistration {
			return ErrWrongPhase
		}
		if _, ok := tr.participants[userID]; !ok {
			return ErrNotRegistered
		}
		delete(tr.participants, userID)
		tr.publish(events.TournamentPlayerUnregistered{TournamentID: tr.id, UserID: userID})
		tr.publish(events.TournamentParticipantCountChanged{TournamentID: tr.id, Count: len(tr.participants)})
		return nil
	})
}

// AdminRegisterPlayer forces registration of userId as a host action
// (REGISTER_PLAYER), bypassing the max-players cap.
func (tr *Tournament) AdminRegisterPlayer(hostID, userID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		if tr.status != StatusRegistration {
			return ErrWrongPhase
		}
		if _, ok := tr.participants[userID]; ok {
			return ErrAlreadyRegistered
		}
		tr.participants[userID] = &Participant{UserID: userID, Status: ParticipantRegistered}
		tr.publish(events.TournamentPlayerRegistered{TournamentID: tr.id, UserID: userID})
		tr.publish(events.TournamentParticipantCountChanged{TournamentID: tr.id, Count: len(tr.participants)})
		return nil
	})
}

// State returns a read-only snapshot of the tournament's current state.
func (tr *Tournament) State() State {
	var st State
	_ = tr.call(func() error {
		st = State{
			TournamentID: tr.id,
			Status:       tr.status,
			CurrentLevel: tr.currentLevel,
			Settings:     tr.settings,
		}
		for _, p := range tr.participants {
			st.Participants = append(st.Participants, *p)
		}
		sort.Slice(st.Participants, func(i, j int) bool { return st.Participants[i].UserID < st.Participants[j].UserID })
		return nil
	})
	return st
}

// activeCount returns the number of participants still playing (registered
// is only a pre-start status; once started only active/eliminated/banned
// apply).
func (tr *Tournament) activeCount() int {
	n := 0
	for _, p := range tr.participants {
		if p.Status == ParticipantActive {
			n++
		}
	}
	return n
}

// shuffledOrder returns participant userIds in a reproducible order, seeded
// by the tournament id alone, so seat assignment is deterministic given the
// same id and registrant set (useful for tests and audit replay); anyone who
// knows both can compute the order in advance.
func shuffledOrder(seedKey string, ids []string) ([]string, error) {
	out := append([]string{}, ids...)
	sort.Strings(out) // stable base order before shuffling
	r, err := rng.NewSystemWithSeed([]byte(seedKey))
	if err != nil {
		return nil, err
	}
	for i := len(out) - 1; i > 0; i-- {
		j := r.RandomInt(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
