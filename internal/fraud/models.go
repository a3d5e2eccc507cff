package fraud

import (
	"time"

	"poker-core/internal/events"
)

// ActionSample is one player action observed at a table, the unit fraud
// detection reasons over. Table's FraudHook builds one per action, measuring
// DecisionTime against its own turn-timer clock rather than a client-reported
// value.
type ActionSample struct {
	UserID       string
	TableID      string
	Action       events.PlayerAction
	DecisionTime time.Duration
	Timestamp    time.Time
}

// AntiCheatAlert is a generated fraud alert for one user.
type AntiCheatAlert struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AlertType string    `json:"alert_type"` // "timing", "collusion", "rule:<rule name>"
	Severity  string    `json:"severity"`   // "low", "medium", "high", "critical"
	Score     float64   `json:"score"`
	TableID   string    `json:"table_id,omitempty"`
	Evidence  []string  `json:"evidence"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"` // "pending", "reviewed", "dismissed", "confirmed"
}

// RiskScore is a user's combined risk assessment across detectors.
type RiskScore struct {
	UserID         string    `json:"user_id"`
	OverallScore   float64   `json:"overall_score"`
	TimingScore    float64   `json:"timing_score"`
	CollusionScore float64   `json:"collusion_score"`
	RuleScore      float64   `json:"rule_score"`
	CalculatedAt   time.Time `json:"calculated_at"`
}

// FraudDetectionResult is what ProcessPlayerAction returns: the combined
// read from every detector plus whatever action it recommends.
type FraudDetectionResult struct {
	UserID             string
	Timestamp          time.Time
	RequiresAction     bool
	RecommendedActions []string
	Timing             *BotDetectionResult
	Collusion          []*CollusionDetectionResult
	RuleAlerts         []*AntiCheatAlert
	Risk               *RiskScore
}
