package fraud

import (
	"testing"
	"time"
)

func TestTimingDetector_HumanBehavior(t *testing.T) {
	detector := NewTimingDetector(nil)

	var result *BotDetectionResult
	for _, ms := range []int{3200, 5100, 2400, 8800, 4300, 6200, 3900, 7100} {
		result = detector.Observe("human_player", time.Duration(ms)*time.Millisecond)
	}

	if result.IsBot {
		t.Errorf("expected human to not be flagged as bot, got score=%f", result.Score)
	}
	if result.RecommendedAction != "clear" {
		t.Errorf("expected recommended action 'clear', got %s", result.RecommendedAction)
	}
}

func TestTimingDetector_BotBehavior(t *testing.T) {
	detector := NewTimingDetector(nil)

	// Fast and nearly (but not exactly) constant: a zero stddev is treated
	// as ambiguous rather than bot-like, so vary slightly around 150ms.
	decisionTimesMS := []int{140, 160, 150, 145, 155, 150, 148, 152, 150, 149}
	var result *BotDetectionResult
	for _, ms := range decisionTimesMS {
		result = detector.Observe("bot_player", time.Duration(ms)*time.Millisecond)
	}

	if !result.IsBot {
		t.Errorf("expected fast, constant decisions to be flagged as bot, got score=%f", result.Score)
	}
	if result.RecommendedAction != "flag" {
		t.Errorf("expected recommended action 'flag', got %s", result.RecommendedAction)
	}
}

func TestTimingDetector_AbstainsBelowMinSamples(t *testing.T) {
	detector := NewTimingDetector(nil)

	result := detector.Observe("new_player", 100*time.Millisecond)

	if result.IsBot {
		t.Errorf("expected detector to abstain below MinSamples, got IsBot=true")
	}
	if result.RecommendedAction != "clear" {
		t.Errorf("expected recommended action 'clear' while abstaining, got %s", result.RecommendedAction)
	}
}

func TestTimingDetector_WindowSizeCapsHistory(t *testing.T) {
	cfg := DefaultTimingDetectionConfig()
	cfg.WindowSize = 5
	cfg.MinSamples = 2
	detector := NewTimingDetector(cfg)

	for i := 0; i < 20; i++ {
		detector.Observe("user1", 5*time.Second)
	}

	detector.mu.Lock()
	got := len(detector.history["user1"])
	detector.mu.Unlock()

	if got != 5 {
		t.Errorf("expected history capped at WindowSize=5, got %d", got)
	}
}
