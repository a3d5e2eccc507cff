package fraud

import (
	"testing"
	"time"

	"poker-core/internal/events"
)

func TestFraudService_ProcessPlayerAction_ClearsNormalPlay(t *testing.T) {
	fs := NewFraudService()

	var result *FraudDetectionResult
	for i := 0; i < 5; i++ {
		action := events.PlayerAction{Type: events.ActionCall, Amount: 20, Seat: 1}
		result = fs.ProcessPlayerAction("t1", "player1", action, 4*time.Second)
	}

	if result.RequiresAction {
		t.Errorf("expected ordinary, human-paced calls to not require action, got risk=%+v", result.Risk)
	}
}

func TestFraudService_ProcessPlayerAction_FlagsFastConstantBot(t *testing.T) {
	fs := NewFraudService()

	decisionTimesMS := []int{140, 160, 150, 145, 155, 150, 148, 152, 150, 149, 151, 150}
	var result *FraudDetectionResult
	for _, ms := range decisionTimesMS {
		action := events.PlayerAction{Type: events.ActionCall, Amount: 20, Seat: 1}
		result = fs.ProcessPlayerAction("t1", "bot1", action, time.Duration(ms)*time.Millisecond)
	}

	if result.Timing == nil || !result.Timing.IsBot {
		t.Errorf("expected timing detector to flag the bot, got %+v", result.Timing)
	}
	foundCaptcha := false
	for _, rec := range result.RecommendedActions {
		if rec == "CAPTCHA verification for bot1" {
			foundCaptcha = true
		}
	}
	if !foundCaptcha {
		t.Errorf("expected a CAPTCHA recommendation once timing flags a bot, got %+v", result.RecommendedActions)
	}
}

func TestFraudService_ProcessPlayerAction_FilesAlertOnRuleTrigger(t *testing.T) {
	fs := NewFraudService()

	for i := 0; i < 3; i++ {
		action := events.PlayerAction{Type: events.ActionAllIn, Amount: 1000, Seat: 1}
		fs.ProcessPlayerAction("t1", "shover1", action, 100*time.Millisecond)
	}

	pending := fs.PendingAlerts(10)
	found := false
	for _, a := range pending {
		if a.UserID == "shover1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a pending alert for the serial-shove user, got %+v", pending)
	}
}

func TestFraudService_ProcessPlayerAction_CombinesCollusionSignal(t *testing.T) {
	fs := NewFraudService()

	var result *FraudDetectionResult
	for i := 0; i < 20; i++ {
		// A baseline call establishes responder1 folds far less often than
		// the 100% fold-to-raiser1 rate being set up below.
		fs.ProcessPlayerAction("t2", "other", events.PlayerAction{Type: events.ActionCheck, Seat: 2}, 2*time.Second)
		fs.ProcessPlayerAction("t2", "responder1", events.PlayerAction{Type: events.ActionCall, Amount: 20, Seat: 1}, 2*time.Second)

		fs.ProcessPlayerAction("t2", "raiser1", events.PlayerAction{Type: events.ActionRaise, Amount: 100, Seat: 0}, 2*time.Second)
		result = fs.ProcessPlayerAction("t2", "responder1", events.PlayerAction{Type: events.ActionFold, Seat: 1}, 2*time.Second)
	}

	if result.Risk.CollusionScore <= 0 {
		t.Errorf("expected a positive collusion score once a responder consistently folds to one raiser, got %+v", result.Risk)
	}
}
