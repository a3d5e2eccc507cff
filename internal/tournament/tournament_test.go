package tournament

import (
	"fmt"
	"testing"
	"time"

	"poker-core/internal/broadcast"
	"poker-core/internal/clock"
	"poker-core/internal/registry"
	"poker-core/internal/table"
	"poker-core/pkg/rng"
)

func newTestRNG(t *testing.T) *rng.System {
	t.Helper()
	sys, err := rng.NewSystemWithSeed([]byte{7})
	if err != nil {
		t.Fatalf("NewSystemWithSeed: %v", err)
	}
	return sys
}

func newTestTournament(t *testing.T, clk clock.Clock, settings Settings) (*Tournament, *broadcast.Broadcaster) {
	t.Helper()
	bcast := broadcast.New()
	reg := registry.New()

	var factory TableFactory = func(spec TableSpec) (*table.Table, error) {
		tbl := table.New(table.Config{
			TableID:         spec.TableID,
			Variant:         "texas_holdem",
			MaxSeats:        spec.MaxSeats,
			TournamentID:    &spec.TournamentID,
			SmallBlind:      spec.SmallBlind,
			BigBlind:        spec.BigBlind,
			TurnTimeout:     10 * time.Second,
			DisconnectGrace: 30 * time.Second,
			Clock:           clk,
			RNG:             newTestRNG(t),
			Broadcaster:     bcast,
			Registry:        reg,
			EliminationHook: spec.OnElimination,
			PostHandHook:    spec.OnPostHand,
		})
		tbl.Start()
		return tbl, nil
	}

	tr := New("trn-1", "host-1", clk, bcast, factory)
	t.Cleanup(tr.Stop)
	tr.Start()

	if err := tr.UpdateSettings("host-1", settings); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if err := tr.OpenRegistration("host-1"); err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}
	return tr, bcast
}

func defaultSettings() Settings {
	return Settings{
		MaxPlayersPerTable:       6,
		StartingStack:            1000,
		BlindStructure:           []BlindLevel{{Small: 5, Big: 10}, {Small: 10, Big: 20}, {Small: 20, Big: 40}},
		BlindLevelDurationMillis: 600000,
	}
}

func TestStartTournament_SeatsEveryoneAcrossTables(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	tr, _ := newTestTournament(t, clk, defaultSettings())

	for i := 0; i < 9; i++ {
		if err := tr.Register(fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	if err := tr.StartTournament("host-1"); err != nil {
		t.Fatalf("StartTournament: %v", err)
	}

	st := tr.State()
	if st.Status != StatusActive {
		t.Fatalf("expected StatusActive, got %v", st.Status)
	}
	seated := 0
	tables := map[string]bool{}
	for _, p := range st.Participants {
		if p.Status != ParticipantActive {
			t.Fatalf("expected participant %s active, got %v", p.UserID, p.Status)
		}
		if p.CurrentStack != 1000 {
			t.Fatalf("expected starting stack 1000, got %d", p.CurrentStack)
		}
		tables[p.CurrentTableID] = true
		seated++
	}
	if seated != 9 {
		t.Fatalf("expected 9 seated participants, got %d", seated)
	}
	if len(tables) != 2 {
		t.Fatalf("expected ceil(9/6)=2 tables, got %d", len(tables))
	}
}

func TestStartTournament_RejectsUnderMinimum(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	tr, _ := newTestTournament(t, clk, defaultSettings())

	if err := tr.Register("solo"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := tr.StartTournament("host-1"); err != ErrNotEnoughPlayers {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
}

func TestStartTournament_RejectsNonHost(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	tr, _ := newTestTournament(t, clk, defaultSettings())
	_ = tr.Register("a")
	_ = tr.Register("b")

	if err := tr.StartTournament("impostor"); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestBlindClock_PauseResumePreservesRemainingTime(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	tr, _ := newTestTournament(t, clk, defaultSettings())
	_ = tr.Register("a")
	_ = tr.Register("b")
	if err := tr.StartTournament("host-1"); err != nil {
		t.Fatalf("StartTournament: %v", err)
	}

	clk.Advance(400 * time.Second) // t = 400_000ms, 200_000ms remain in level 0
	if err := tr.PauseTournament("host-1"); err != nil {
		t.Fatalf("PauseTournament: %v", err)
	}

	clk.Advance(100 * time.Second) // paused: nothing should fire
	if lvl := tr.State().CurrentLevel; lvl != 0 {
		t.Fatalf("expected level 0 while paused, got %d", lvl)
	}

	if err := tr.ResumeTournament("host-1"); err != nil {
		t.Fatalf("ResumeTournament: %v", err)
	}
	clk.Advance(199 * time.Second) // just short of the remaining 200s
	if lvl := tr.State().CurrentLevel; lvl != 0 {
		t.Fatalf("expected level 0 just before advance, got %d", lvl)
	}
	clk.Advance(2 * time.Second) // crosses the 200s mark
	if lvl := tr.State().CurrentLevel; lvl != 1 {
		t.Fatalf("expected level 1 after remaining time elapses, got %d", lvl)
	}
}

func TestCancelTournament_StopsTablesAndBlindClock(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	tr, _ := newTestTournament(t, clk, defaultSettings())
	_ = tr.Register("a")
	_ = tr.Register("b")
	if err := tr.StartTournament("host-1"); err != nil {
		t.Fatalf("StartTournament: %v", err)
	}

	if err := tr.CancelTournament("host-1"); err != nil {
		t.Fatalf("CancelTournament: %v", err)
	}
	if st := tr.State().Status; st != StatusCancelled {
		t.Fatalf("expected StatusCancelled, got %v", st)
	}

	clk.Advance(time.Hour) // must not panic or advance a cancelled clock
}

func TestRegister_RejectsDuplicateAndFull(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	max := 2
	settings := defaultSettings()
	settings.MaxPlayers = &max
	tr, _ := newTestTournament(t, clk, settings)

	if err := tr.Register("a"); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	if err := tr.Register("a"); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := tr.Register("b"); err != nil {
		t.Fatalf("Register b: %v", err)
	}
	if err := tr.Register("c"); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestBanPlayer_MarksBannedAndAssignsFinishPosition(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	tr, _ := newTestTournament(t, clk, defaultSettings())
	_ = tr.Register("a")
	_ = tr.Register("b")
	_ = tr.Register("c")
	if err := tr.StartTournament("host-1"); err != nil {
		t.Fatalf("StartTournament: %v", err)
	}

	if err := tr.BanPlayer("host-1", "a"); err != nil {
		t.Fatalf("BanPlayer: %v", err)
	}
	st := tr.State()
	for _, p := range st.Participants {
		if p.UserID == "a" {
			if p.Status != ParticipantBanned {
				t.Fatalf("expected a banned, got %v", p.Status)
			}
			if p.FinishPosition != 3 {
				t.Fatalf("expected finish position 3 (2 active remain), got %d", p.FinishPosition)
			}
		}
	}
}

func TestSettingsValidation_RejectsBadBlindStructure(t *testing.T) {
	s := defaultSettings()
	s.BlindStructure = nil
	if err := s.validate(); err == nil {
		t.Fatal("expected error for empty blind structure")
	}

	s = defaultSettings()
	s.BlindStructure = []BlindLevel{{Small: 10, Big: 5}}
	if err := s.validate(); err == nil {
		t.Fatal("expected error for big <= small")
	}

	s = defaultSettings()
	s.MaxPlayersPerTable = 1
	if err := s.validate(); err == nil {
		t.Fatal("expected error for maxPlayersPerTable < 2")
	}
}
