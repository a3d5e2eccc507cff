package storage

import "time"

// HandHistory is one completed hand's durable record, published to the
// hand-history Kafka topic and keyed by TableID so a table's hands stay in
// partition order. The teacher's HandHistory lived in the fraud package and
// carried per-seat action logs, hole cards, rake, and timing fields a
// cross-table/cross-player fraud query would need; poker-core's fraud
// collaborator reasons over the live action stream instead (see
// internal/fraud), so this keeps only the settlement summary
// TableRecorder.Record actually has on hand.
type HandHistory struct {
	HandID         string    `json:"hand_id"`
	TableID        string    `json:"table_id"`
	GameType       string    `json:"game_type"`
	WinnerIDs      []string  `json:"winner_ids"`
	CommunityCards []string  `json:"community_cards"`
	CompletedAt    time.Time `json:"completed_at"`
}
