package fraud

import (
	"testing"
	"time"

	"poker-core/internal/events"
)

func sampleAt(userID string, actionType events.ActionType, amount int64, decisionTime time.Duration, ts time.Time) ActionSample {
	return ActionSample{
		UserID:       userID,
		TableID:      "t1",
		Action:       events.PlayerAction{Type: actionType, Amount: amount},
		DecisionTime: decisionTime,
		Timestamp:    ts,
	}
}

func TestRuleBasedDetector_ExcessiveActionRate(t *testing.T) {
	detector := NewRuleBasedDetector()
	base := time.Unix(0, 0)

	var alerts []*AntiCheatAlert
	for i := 0; i < 20; i++ {
		s := sampleAt("u1", events.ActionCheck, 0, 100*time.Millisecond, base.Add(time.Duration(i)*200*time.Millisecond))
		alerts = detector.Evaluate(s)
	}

	found := false
	for _, a := range alerts {
		if a.AlertType == "rule:excessive_action_rate" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected excessive_action_rate to fire for 20 actions within 10s, got %+v", alerts)
	}
}

func TestRuleBasedDetector_SerialInstantShove(t *testing.T) {
	detector := NewRuleBasedDetector()
	base := time.Unix(0, 0)

	var alerts []*AntiCheatAlert
	for i := 0; i < 3; i++ {
		s := sampleAt("u2", events.ActionAllIn, 1000, 100*time.Millisecond, base.Add(time.Duration(i)*time.Second))
		alerts = detector.Evaluate(s)
	}

	found := false
	for _, a := range alerts {
		if a.AlertType == "rule:serial_instant_shove" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected serial_instant_shove to fire for 3 fast consecutive all-ins, got %+v", alerts)
	}
}

func TestRuleBasedDetector_RepeatedExactRaise(t *testing.T) {
	detector := NewRuleBasedDetector()
	base := time.Unix(0, 0)

	var alerts []*AntiCheatAlert
	for i := 0; i < 5; i++ {
		s := sampleAt("u3", events.ActionRaise, 250, time.Second, base.Add(time.Duration(i)*time.Second))
		alerts = detector.Evaluate(s)
	}

	found := false
	for _, a := range alerts {
		if a.AlertType == "rule:repeated_exact_raise" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected repeated_exact_raise to fire for 5 identical raise sizes, got %+v", alerts)
	}
}

func TestRuleBasedDetector_CooldownSuppressesRefire(t *testing.T) {
	detector := NewRuleBasedDetector()
	base := time.Unix(0, 0)

	var first []*AntiCheatAlert
	for i := 0; i < 3; i++ {
		s := sampleAt("u4", events.ActionAllIn, 1000, 100*time.Millisecond, base.Add(time.Duration(i)*time.Second))
		first = detector.Evaluate(s)
	}
	hasShove := func(alerts []*AntiCheatAlert) bool {
		for _, a := range alerts {
			if a.AlertType == "rule:serial_instant_shove" {
				return true
			}
		}
		return false
	}
	if !hasShove(first) {
		t.Fatalf("expected first pass to fire serial_instant_shove")
	}

	again := detector.Evaluate(sampleAt("u4", events.ActionAllIn, 1000, 100*time.Millisecond, base.Add(4*time.Second)))
	if hasShove(again) {
		t.Errorf("expected cooldown to suppress an immediate refire")
	}
}

func TestRuleBasedDetector_NoFalsePositiveForNormalPlay(t *testing.T) {
	detector := NewRuleBasedDetector()
	base := time.Unix(0, 0)

	var alerts []*AntiCheatAlert
	for i := 0; i < 10; i++ {
		s := sampleAt("u5", events.ActionCall, 50, 3*time.Second, base.Add(time.Duration(i)*30*time.Second))
		alerts = detector.Evaluate(s)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts for ordinary, spaced-out calls, got %+v", alerts)
	}
}
