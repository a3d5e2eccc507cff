package fraud

import (
	"testing"

	"poker-core/internal/events"
)

func TestCollusionDetector_NoSignalUnderMinOpportunities(t *testing.T) {
	detector := NewCollusionDetector(nil)

	var result *CollusionDetectionResult
	for i := 0; i < 5; i++ {
		detector.Observe("t1", "raiser", events.ActionRaise)
		result = detector.Observe("t1", "responder", events.ActionFold)
	}

	if result != nil {
		t.Errorf("expected no result before MinOpportunities is reached, got %+v", result)
	}
}

func TestCollusionDetector_FlagsConsistentFoldToRaise(t *testing.T) {
	detector := NewCollusionDetector(nil)

	var result *CollusionDetectionResult
	for i := 0; i < 20; i++ {
		// Against anyone else the responder plays on, so folding to this
		// raiser stands out against their own baseline.
		detector.Observe("t1", "other", events.ActionCheck)
		detector.Observe("t1", "responder", events.ActionCall)
		detector.Observe("t1", "raiser", events.ActionRaise)
		result = detector.Observe("t1", "responder", events.ActionFold)
	}

	if result == nil {
		t.Fatalf("expected a result once MinOpportunities is reached")
	}
	if !result.IsCollusion {
		t.Errorf("expected responder folding to every raise to flag as collusion, score=%f", result.Score)
	}
	if result.FoldRate != 1.0 {
		t.Errorf("expected fold rate 1.0, got %f", result.FoldRate)
	}
}

func TestCollusionDetector_UniformNitNotFlagged(t *testing.T) {
	detector := NewCollusionDetector(nil)

	// A nit who folds to everyone, not just this raiser: conditional fold
	// rate equals baseline fold rate, so there is no pairwise signal.
	var result *CollusionDetectionResult
	for i := 0; i < 20; i++ {
		detector.Observe("t1", "other", events.ActionCheck)
		result = detector.Observe("t1", "responder", events.ActionFold)
		detector.Observe("t1", "raiser", events.ActionRaise)
		result = detector.Observe("t1", "responder", events.ActionFold)
	}

	if result == nil {
		t.Fatalf("expected a result once MinOpportunities is reached")
	}
	if result.IsCollusion {
		t.Errorf("expected a uniform folder (matches own baseline) to not be flagged, got score=%f", result.Score)
	}
}

func TestCollusionDetector_IgnoresSelfFollowUp(t *testing.T) {
	detector := NewCollusionDetector(nil)

	result := detector.Observe("t1", "p1", events.ActionRaise)
	if result != nil {
		t.Errorf("expected nil result on first observation")
	}
	result = detector.Observe("t1", "p1", events.ActionFold)
	if result != nil {
		t.Errorf("expected no pairwise result when raiser and responder are the same user, got %+v", result)
	}
}
