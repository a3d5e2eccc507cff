package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"poker-core/internal/events"
	"poker-core/internal/storage/postgres"
	"poker-core/internal/table"
)

// TableRecorder adapts the Kafka hand-history producer and ClickHouse
// analytics sink to table.Config's HandHistoryHook, the same non-blocking
// "fire off a collaborator, log on failure" shape the teacher uses for its
// fraud-service side-call in handleMessage. cmd/gameserver builds one per
// table and passes its Record method as HandHistoryHook.
type TableRecorder struct {
	tableID   string
	variant   string
	hands     *HandHistoryProducer
	analytics *ClickHouseAnalytics
}

// NewTableRecorder builds a recorder bound to one table. Either sink may be
// nil; cmd/gameserver only wires the ones it has working DSNs/brokers for.
func NewTableRecorder(tableID, variant string, hands *HandHistoryProducer, analytics *ClickHouseAnalytics) *TableRecorder {
	return &TableRecorder{tableID: tableID, variant: variant, hands: hands, analytics: analytics}
}

// Record is a table.Config.HandHistoryHook. It never returns an error since
// the hook runs detached from the settling hand: a persistence failure is
// logged, not surfaced to players.
func (r *TableRecorder) Record(summary table.HandSummary) {
	winnerIDs := make([]string, 0, len(summary.Awards))
	for _, a := range summary.Awards {
		winnerIDs = append(winnerIDs, a.UserID)
	}
	communityCards := make([]string, 0, len(summary.Board))
	for _, c := range summary.Board {
		communityCards = append(communityCards, c.Rank.String()+c.Suit.String())
	}

	if r.hands != nil {
		hand := &HandHistory{
			HandID:         handID(summary.TableID, summary.HandNumber),
			TableID:        summary.TableID,
			GameType:       r.variant,
			WinnerIDs:      winnerIDs,
			CommunityCards: communityCards,
			CompletedAt:    time.Now(),
		}
		if err := r.hands.PublishHand(hand); err != nil {
			log.Printf("storage: publish hand history for table %s hand %d: %v", summary.TableID, summary.HandNumber, err)
		}
	}

	if r.analytics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, a := range summary.Awards {
			event := &HandAnalyticsEvent{
				EventID:    handID(summary.TableID, summary.HandNumber) + ":" + a.UserID,
				EventType:  AnalyticsEventHandCompleted,
				HandID:     handID(summary.TableID, summary.HandNumber),
				TableID:    summary.TableID,
				GameType:   r.variant,
				PlayerID:   a.UserID,
				ChipsAfter: a.Amount,
				Timestamp:  time.Now(),
			}
			if err := r.analytics.RecordHandEvent(ctx, event); err != nil {
				log.Printf("storage: record hand analytics for table %s hand %d: %v", summary.TableID, summary.HandNumber, err)
			}
		}
	}
}

func handID(tableID string, handNumber int) string {
	return fmt.Sprintf("%s-h%d", tableID, handNumber)
}

// TournamentRecorder adapts the Postgres tournament store to
// broadcast.Subscriber: cmd/gameserver attaches it to the tournament's
// broadcast room (tournament.Tournament.publish already fans every status
// and elimination event through that room), exactly the way a player's
// socket is attached via registrySubscriber — it is just another listener.
type TournamentRecorder struct {
	tournamentID string
	store        *postgres.TournamentPostgresStorage
}

func NewTournamentRecorder(tournamentID string, store *postgres.TournamentPostgresStorage) *TournamentRecorder {
	return &TournamentRecorder{tournamentID: tournamentID, store: store}
}

// Deliver implements broadcast.Subscriber.
func (r *TournamentRecorder) Deliver(event interface{}) {
	switch e := event.(type) {
	case events.TournamentStatusChanged:
		r.upsertStatus(e.Status, 0, nil)
	case events.TournamentBlindLevelAdvanced:
		r.upsertStatus("active", e.Level, nil)
	case events.TournamentPlayerEliminated:
		r.recordFinish(e.UserID, "eliminated", e.FinishPosition)
	case events.TournamentPlayerBanned:
		r.recordFinish(e.UserID, "banned", 0)
	case events.TournamentPlayerLeft:
		r.recordFinish(e.UserID, "eliminated", 0)
	case events.TournamentCompleted:
		now := time.Now()
		r.upsertStatus("completed", 0, &now)
		for _, res := range e.Results {
			r.recordFinish(res.UserID, "finished", res.FinishPosition)
		}
	case events.TournamentCancelled:
		now := time.Now()
		r.upsertStatus("cancelled", 0, &now)
	}
}

func (r *TournamentRecorder) upsertStatus(status string, level int, completedAt *time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec := postgres.TournamentRecord{
		TournamentID: r.tournamentID,
		Status:       status,
		CurrentLevel: level,
		CompletedAt:  completedAt,
	}
	if err := r.store.UpsertTournament(ctx, rec); err != nil {
		log.Printf("storage: upsert tournament %s: %v", r.tournamentID, err)
	}
}

func (r *TournamentRecorder) recordFinish(userID, status string, finishPosition int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now()
	rec := postgres.ParticipantRecord{
		TournamentID:   r.tournamentID,
		UserID:         userID,
		Status:         status,
		FinishPosition: finishPosition,
		EliminatedAt:   &now,
	}
	if err := r.store.RecordFinish(ctx, rec); err != nil {
		log.Printf("storage: record finish for %s in %s: %v", userID, r.tournamentID, err)
	}
}
