package storage

import (
	"time"
)

// AnalyticsEventType represents the type of analytics event. The teacher
// carries eight event types across hand, fraud, session, and table streams;
// poker-core's ClickHouse sink only ever records completed hands, so only
// that one survives.
type AnalyticsEventType string

const (
	AnalyticsEventHandCompleted AnalyticsEventType = "hand_completed"
)

// HandAnalyticsEvent is one player's settlement row for a completed hand,
// recorded once per awarded seat by TableRecorder.
type HandAnalyticsEvent struct {
	EventID    string             `json:"event_id" ch:"event_id"`
	EventType  AnalyticsEventType `json:"event_type" ch:"event_type"`
	HandID     string             `json:"hand_id" ch:"hand_id"`
	TableID    string             `json:"table_id" ch:"table_id"`
	GameType   string             `json:"game_type" ch:"game_type"`
	PlayerID   string             `json:"player_id" ch:"player_id"`
	ChipsAfter int64              `json:"chips_after" ch:"chips_after"`
	Timestamp  time.Time          `json:"timestamp" ch:"timestamp"`
}
