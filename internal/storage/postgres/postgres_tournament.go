package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// TournamentRecord is the persisted row for one tournament's metadata, the
// Postgres-side counterpart to tournament.State (package tournament is not
// imported here to keep storage free of a dependency on game-logic types;
// callers translate).
type TournamentRecord struct {
	TournamentID string
	HostID       string
	Status       string
	CurrentLevel int
	StartedAt    *time.Time
	CompletedAt  *time.Time
	WinnerID     string
}

// ParticipantRecord is one participant's final standing in a tournament.
type ParticipantRecord struct {
	TournamentID   string
	UserID         string
	Status         string
	FinishPosition int
	EliminatedAt   *time.Time
}

// TournamentPostgresStorage persists tournament metadata and final
// participant standings over a *sql.DB, with context-scoped queries, $N
// placeholders and sql.ErrNoRows handling.
type TournamentPostgresStorage struct {
	db *sql.DB
}

func NewTournamentPostgresStorage(db *sql.DB) *TournamentPostgresStorage {
	return &TournamentPostgresStorage{db: db}
}

// UpsertTournament records or updates a tournament's status. Called on
// StartTournament, PauseTournament/ResumeTournament, CancelTournament, and
// TournamentCompleted.
func (s *TournamentPostgresStorage) UpsertTournament(ctx context.Context, rec TournamentRecord) error {
	query := `
		INSERT INTO tournaments (
			tournament_id, host_id, status, current_level,
			started_at, completed_at, winner_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id) DO UPDATE SET
			status = EXCLUDED.status,
			current_level = EXCLUDED.current_level,
			started_at = COALESCE(tournaments.started_at, EXCLUDED.started_at),
			completed_at = EXCLUDED.completed_at,
			winner_id = EXCLUDED.winner_id
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.TournamentID, rec.HostID, rec.Status, rec.CurrentLevel,
		rec.StartedAt, rec.CompletedAt, nullIfEmpty(rec.WinnerID),
	)
	return err
}

// RecordFinish persists one participant's terminal standing (eliminated,
// banned, or won).
func (s *TournamentPostgresStorage) RecordFinish(ctx context.Context, rec ParticipantRecord) error {
	query := `
		INSERT INTO tournament_participants (
			tournament_id, user_id, status, finish_position, eliminated_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tournament_id, user_id) DO UPDATE SET
			status = EXCLUDED.status,
			finish_position = EXCLUDED.finish_position,
			eliminated_at = EXCLUDED.eliminated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.TournamentID, rec.UserID, rec.Status, rec.FinishPosition, rec.EliminatedAt,
	)
	return err
}

// GetResults returns every recorded participant finish for a tournament,
// ordered by finish position (winner first; 0 = not yet finished sorts last).
func (s *TournamentPostgresStorage) GetResults(ctx context.Context, tournamentID string) ([]ParticipantRecord, error) {
	query := `
		SELECT tournament_id, user_id, status, finish_position, eliminated_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY CASE WHEN finish_position = 0 THEN 1 ELSE 0 END, finish_position ASC
	`
	rows, err := s.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ParticipantRecord
	for rows.Next() {
		var rec ParticipantRecord
		var eliminatedAt sql.NullTime
		if err := rows.Scan(&rec.TournamentID, &rec.UserID, &rec.Status, &rec.FinishPosition, &eliminatedAt); err != nil {
			return nil, err
		}
		if eliminatedAt.Valid {
			rec.EliminatedAt = &eliminatedAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetTournament fetches one tournament's persisted metadata.
func (s *TournamentPostgresStorage) GetTournament(ctx context.Context, tournamentID string) (*TournamentRecord, error) {
	query := `
		SELECT tournament_id, host_id, status, current_level, started_at, completed_at, winner_id
		FROM tournaments WHERE tournament_id = $1
	`
	var rec TournamentRecord
	var startedAt, completedAt sql.NullTime
	var winnerID sql.NullString
	err := s.db.QueryRowContext(ctx, query, tournamentID).Scan(
		&rec.TournamentID, &rec.HostID, &rec.Status, &rec.CurrentLevel,
		&startedAt, &completedAt, &winnerID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get tournament: %w", err)
	}
	if startedAt.Valid {
		rec.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	rec.WinnerID = winnerID.String
	return &rec, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
