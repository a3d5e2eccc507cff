package fraud

import (
	"fmt"
	"sync"
	"time"

	"poker-core/internal/events"
)

// AntiCheatRule is a deterministic, explainable check over a user's recent
// action history, the same registry shape as the teacher's RuleBasedDetector
// (name/category/severity/check/cooldown) evaluated here against real
// ActionSample history instead of a fetched RuleCheckData snapshot keyed by
// device/IP/session fields poker-core's opaque-userId model doesn't carry.
type AntiCheatRule struct {
	Name        string
	Category    string // "volume", "timing", "pattern"
	Severity    string // "low", "medium", "high", "critical"
	Cooldown    time.Duration
	Check       func(samples []ActionSample) (bool, []string)
	lastFired   map[string]time.Time
}

// RuleBasedDetector evaluates every registered rule against a user's recent
// action window each time a new action arrives.
type RuleBasedDetector struct {
	rules      []*AntiCheatRule
	windowSize int

	mu      sync.Mutex
	history map[string][]ActionSample
}

func NewRuleBasedDetector() *RuleBasedDetector {
	d := &RuleBasedDetector{
		windowSize: 50,
		history:    make(map[string][]ActionSample),
	}
	d.rules = defaultRules()
	return d
}

func defaultRules() []*AntiCheatRule {
	return []*AntiCheatRule{
		{
			Name:      "excessive_action_rate",
			Category:  "volume",
			Severity:  "high",
			Cooldown:  5 * time.Minute,
			lastFired: make(map[string]time.Time),
			Check: func(samples []ActionSample) (bool, []string) {
				if len(samples) < 20 {
					return false, nil
				}
				recent := samples[len(samples)-20:]
				span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp)
				if span > 0 && span < 10*time.Second {
					return true, []string{fmt.Sprintf("20 actions submitted within %s", span.Round(time.Millisecond))}
				}
				return false, nil
			},
		},
		{
			Name:      "serial_instant_shove",
			Category:  "timing",
			Severity:  "critical",
			Cooldown:  10 * time.Minute,
			lastFired: make(map[string]time.Time),
			Check: func(samples []ActionSample) (bool, []string) {
				if len(samples) < 3 {
					return false, nil
				}
				tail := samples[len(samples)-3:]
				for _, s := range tail {
					if s.Action.Type != events.ActionAllIn || s.DecisionTime >= 250*time.Millisecond {
						return false, nil
					}
				}
				return true, []string{"3 consecutive all-ins decided in under 250ms each"}
			},
		},
		{
			Name:      "repeated_exact_raise",
			Category:  "pattern",
			Severity:  "medium",
			Cooldown:  5 * time.Minute,
			lastFired: make(map[string]time.Time),
			Check: func(samples []ActionSample) (bool, []string) {
				raises := make([]ActionSample, 0, 5)
				for i := len(samples) - 1; i >= 0 && len(raises) < 5; i-- {
					if samples[i].Action.Type == events.ActionBet || samples[i].Action.Type == events.ActionRaise {
						raises = append(raises, samples[i])
					}
				}
				if len(raises) < 5 {
					return false, nil
				}
				amount := raises[0].Action.Amount
				if amount <= 0 {
					return false, nil
				}
				for _, r := range raises[1:] {
					if r.Action.Amount != amount {
						return false, nil
					}
				}
				return true, []string{fmt.Sprintf("last 5 bets/raises were all exactly %d chips", amount)}
			},
		},
		{
			Name:      "never_voluntarily_aggresses",
			Category:  "pattern",
			Severity:  "low",
			Cooldown:  30 * time.Minute,
			lastFired: make(map[string]time.Time),
			Check: func(samples []ActionSample) (bool, []string) {
				if len(samples) < 40 {
					return false, nil
				}
				for _, s := range samples {
					if s.Action.Type == events.ActionBet || s.Action.Type == events.ActionRaise || s.Action.Type == events.ActionAllIn {
						return false, nil
					}
				}
				return true, []string{"no voluntary bet, raise, or all-in across 40+ actions"}
			},
		},
	}
}

// Evaluate records the sample and runs every rule whose cooldown has
// elapsed, returning an alert for each that fires.
func (d *RuleBasedDetector) Evaluate(sample ActionSample) []*AntiCheatAlert {
	d.mu.Lock()
	samples := append(d.history[sample.UserID], sample)
	if len(samples) > d.windowSize {
		samples = samples[len(samples)-d.windowSize:]
	}
	d.history[sample.UserID] = samples
	windowed := make([]ActionSample, len(samples))
	copy(windowed, samples)
	d.mu.Unlock()

	var alerts []*AntiCheatAlert
	now := time.Now()
	for _, rule := range d.rules {
		d.mu.Lock()
		last, fired := rule.lastFired[sample.UserID]
		d.mu.Unlock()
		if fired && now.Sub(last) < rule.Cooldown {
			continue
		}
		triggered, evidence := rule.Check(windowed)
		if !triggered {
			continue
		}
		d.mu.Lock()
		rule.lastFired[sample.UserID] = now
		d.mu.Unlock()
		alerts = append(alerts, &AntiCheatAlert{
			ID:        fmt.Sprintf("rule_%s_%s_%d", rule.Name, sample.UserID, now.UnixNano()),
			UserID:    sample.UserID,
			AlertType: "rule:" + rule.Name,
			Severity:  rule.Severity,
			Score:     severityScore(rule.Severity),
			TableID:   sample.TableID,
			Evidence:  evidence,
			CreatedAt: now,
			Status:    "pending",
		})
	}
	return alerts
}

func severityScore(severity string) float64 {
	switch severity {
	case "critical":
		return 0.95
	case "high":
		return 0.75
	case "medium":
		return 0.5
	default:
		return 0.3
	}
}
