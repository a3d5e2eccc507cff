package potengine

import (
	"testing"

	"poker-core/pkg/handeval"
)

func TestBuildPots_SideThreeWay(t *testing.T) {
	contributions := []Contribution{
		{UserID: "P1", Amount: 20},
		{UserID: "P2", Amount: 50},
		{UserID: "P3", Amount: 80},
	}

	pots := BuildPots(contributions)
	if len(pots) != 3 {
		t.Fatalf("expected 3 pots, got %d", len(pots))
	}

	if pots[0].Amount != 60 {
		t.Errorf("expected main pot 60, got %d", pots[0].Amount)
	}
	if len(pots[0].EligibleSet) != 3 {
		t.Errorf("expected main pot eligible to all 3, got %d", len(pots[0].EligibleSet))
	}

	if pots[1].Amount != 60 {
		t.Errorf("expected side1 60, got %d", pots[1].Amount)
	}
	if pots[1].EligibleSet["P1"] {
		t.Error("P1 should not be eligible for side1")
	}

	if pots[2].Amount != 30 {
		t.Errorf("expected side2 30, got %d", pots[2].Amount)
	}
	if !pots[2].EligibleSet["P3"] || len(pots[2].EligibleSet) != 1 {
		t.Errorf("expected side2 eligible only to P3, got %v", pots[2].EligibleSet)
	}
}

func TestBuildPots_FoldedPlayerNeverEligible(t *testing.T) {
	contributions := []Contribution{
		{UserID: "P1", Amount: 20, Folded: true},
		{UserID: "P2", Amount: 20},
		{UserID: "P3", Amount: 20},
	}
	pots := BuildPots(contributions)
	if len(pots) != 1 {
		t.Fatalf("expected 1 pot, got %d", len(pots))
	}
	if pots[0].Amount != 60 {
		t.Errorf("expected pot of 60 (folded contributes chips), got %d", pots[0].Amount)
	}
	if pots[0].EligibleSet["P1"] {
		t.Error("folded player must never be in eligibleSet")
	}
}

func TestPotOrdering_EligibleSetsMonotonicallyShrink(t *testing.T) {
	contributions := []Contribution{
		{UserID: "P1", Amount: 20},
		{UserID: "P2", Amount: 50},
		{UserID: "P3", Amount: 80},
	}
	pots := BuildPots(contributions)
	for i := 1; i < len(pots); i++ {
		for userID := range pots[i].EligibleSet {
			if !pots[i-1].EligibleSet[userID] {
				t.Errorf("pot %d eligible set is not a subset of pot %d", i, i-1)
			}
		}
	}
}

func TestSettle_SplitPotRemainderGoesLeftOfButton(t *testing.T) {
	pots := []Pot{
		{Amount: 101, EligibleSet: map[string]bool{"P1": true, "P2": true}},
	}

	rank := func(userID string) *handeval.EvaluatedHand {
		return &handeval.EvaluatedHand{Rank: handeval.Pair, TieBreakers: nil}
	}
	seatOf := func(userID string) int {
		if userID == "P1" {
			return 2
		}
		return 3
	}

	awards := Settle(pots, rank, seatOf, 1, 6)
	total := int64(0)
	for _, a := range awards {
		total += a.Amount
	}
	if total != 101 {
		t.Fatalf("expected total payout 101, got %d", total)
	}

	var p1Amount, p2Amount int64
	for _, a := range awards {
		if a.UserID == "P1" {
			p1Amount = a.Amount
		} else {
			p2Amount = a.Amount
		}
	}
	if p1Amount != 51 || p2Amount != 50 {
		t.Errorf("expected P1 (seat left of button) to get the odd chip: P1=%d P2=%d", p1Amount, p2Amount)
	}
}
