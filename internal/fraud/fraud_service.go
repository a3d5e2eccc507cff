package fraud

import (
	"fmt"
	"time"

	"poker-core/internal/events"
)

// FraudService is the fraud collaborator Table's FraudHook calls on every
// action: it fans the action out to the timing, collusion, and rule
// detectors, combines their signals into one RiskScore, and files an alert
// for every rule alert, every timing read that flags a bot, and every pair
// flagged for collusion; the combined score only sets RequiresAction on the
// result. This replaces the teacher's
// FraudService, which fanned the same action out to four detectors (bot,
// collusion, multi-account, rules) plus a risk scorer behind a config flag
// for each; poker-core runs three detectors unconditionally since none of
// them need a flag to disable (none touch an external system that could be
// down).
type FraudService struct {
	timing    *TimingDetector
	collusion *CollusionDetector
	rules     *RuleBasedDetector
	risk      *RiskScorer
	alerts    *AlertService
}

func NewFraudService() *FraudService {
	return &FraudService{
		timing:    NewTimingDetector(nil),
		collusion: NewCollusionDetector(nil),
		rules:     NewRuleBasedDetector(),
		risk:      NewRiskScorer(nil),
		alerts:    NewAlertService(),
	}
}

// ProcessPlayerAction is the FraudHook poker-core's Table calls for every
// submitted action, already carrying the table's own measured decision
// latency instead of a client-reported timing field.
func (fs *FraudService) ProcessPlayerAction(tableID, userID string, action events.PlayerAction, decisionTime time.Duration) *FraudDetectionResult {
	sample := ActionSample{
		UserID:       userID,
		TableID:      tableID,
		Action:       action,
		DecisionTime: decisionTime,
		Timestamp:    time.Now(),
	}

	timing := fs.timing.Observe(userID, decisionTime)
	collusionResult := fs.collusion.Observe(tableID, userID, action.Type)
	var collusion []*CollusionDetectionResult
	if collusionResult != nil {
		collusion = []*CollusionDetectionResult{collusionResult}
	}
	ruleAlerts := fs.rules.Evaluate(sample)

	ruleScore := 0.0
	for _, a := range ruleAlerts {
		if a.Score > ruleScore {
			ruleScore = a.Score
		}
	}

	risk := fs.risk.Combine(userID, timing, collusion, ruleScore)
	requiresAction := fs.risk.RequiresAction(risk)

	result := &FraudDetectionResult{
		UserID:         userID,
		Timestamp:      time.Now(),
		RequiresAction: requiresAction,
		Timing:         timing,
		Collusion:      collusion,
		RuleAlerts:     ruleAlerts,
		Risk:           risk,
	}

	for _, a := range ruleAlerts {
		fs.alerts.CreateAlert(a)
		result.RecommendedActions = append(result.RecommendedActions, fmt.Sprintf("review %s: %s", a.AlertType, a.Evidence))
	}

	if timing != nil && timing.IsBot {
		alert := &AntiCheatAlert{
			ID:        fmt.Sprintf("timing_%s_%d", userID, time.Now().UnixNano()),
			UserID:    userID,
			AlertType: "timing",
			Severity:  fs.risk.Severity(timing.Score),
			Score:     timing.Score,
			TableID:   tableID,
			Evidence:  timing.Reasons,
			CreatedAt: time.Now(),
			Status:    "pending",
		}
		fs.alerts.CreateAlert(alert)
		result.RecommendedActions = append(result.RecommendedActions, "CAPTCHA verification for "+userID)
	}

	for _, c := range collusion {
		if c != nil && c.IsCollusion {
			alert := &AntiCheatAlert{
				ID:        fmt.Sprintf("collusion_%s_%s_%d", c.Raiser, c.Responder, time.Now().UnixNano()),
				UserID:    c.Responder,
				AlertType: "collusion",
				Severity:  fs.risk.Severity(c.Score),
				Score:     c.Score,
				TableID:   tableID,
				Evidence:  c.TopEvidence,
				CreatedAt: time.Now(),
				Status:    "pending",
			}
			fs.alerts.CreateAlert(alert)
			result.RecommendedActions = append(result.RecommendedActions, "soft-play investigation: "+c.Raiser+" / "+c.Responder)
		}
	}

	riskScoreOverall.Observe(risk.OverallScore)
	fraudActionsProcessedTotal.Inc()

	return result
}

// PendingAlerts exposes the alert review queue, e.g. for an admin surface.
func (fs *FraudService) PendingAlerts(limit int) []*AntiCheatAlert {
	return fs.alerts.GetPendingAlerts(limit)
}
