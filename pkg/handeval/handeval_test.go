package handeval

import (
	"testing"

	"poker-core/pkg/card"
)

func mustEval(t *testing.T, cards []card.Card) *EvaluatedHand {
	t.Helper()
	e := New()
	hand, err := e.Evaluate(cards)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	return hand
}

func TestEvaluate_RoyalFlush(t *testing.T) {
	cards := []card.Card{
		card.New(card.RankA, card.SuitSpades),
		card.New(card.RankK, card.SuitSpades),
		card.New(card.RankQ, card.SuitSpades),
		card.New(card.RankJ, card.SuitSpades),
		card.New(card.Rank10, card.SuitSpades),
		card.New(card.Rank2, card.SuitHearts),
		card.New(card.Rank3, card.SuitClubs),
	}
	hand := mustEval(t, cards)
	if hand.Rank != RoyalFlush {
		t.Errorf("expected RoyalFlush, got %s", hand.Rank)
	}
}

func TestEvaluate_StraightFlush(t *testing.T) {
	cards := []card.Card{
		card.New(card.Rank9, card.SuitHearts),
		card.New(card.Rank8, card.SuitHearts),
		card.New(card.Rank7, card.SuitHearts),
		card.New(card.Rank6, card.SuitHearts),
		card.New(card.Rank5, card.SuitHearts),
		card.New(card.RankA, card.SuitClubs),
		card.New(card.Rank2, card.SuitSpades),
	}
	hand := mustEval(t, cards)
	if hand.Rank != StraightFlush {
		t.Errorf("expected StraightFlush, got %s", hand.Rank)
	}
}

func TestEvaluate_WheelStraight(t *testing.T) {
	cards := []card.Card{
		card.New(card.RankA, card.SuitSpades),
		card.New(card.Rank2, card.SuitHearts),
		card.New(card.Rank3, card.SuitClubs),
		card.New(card.Rank4, card.SuitDiamonds),
		card.New(card.Rank5, card.SuitSpades),
		card.New(card.RankK, card.SuitHearts),
		card.New(card.RankQ, card.SuitClubs),
	}
	hand := mustEval(t, cards)
	if hand.Rank != Straight {
		t.Errorf("expected Straight (wheel), got %s", hand.Rank)
	}
	if hand.TieBreakers[0] != card.Rank5 {
		t.Errorf("expected wheel high card to be 5, got %s", hand.TieBreakers[0])
	}
}

func TestEvaluate_FourOfAKind(t *testing.T) {
	cards := []card.Card{
		card.New(card.RankK, card.SuitSpades),
		card.New(card.RankK, card.SuitHearts),
		card.New(card.RankK, card.SuitClubs),
		card.New(card.RankK, card.SuitDiamonds),
		card.New(card.Rank9, card.SuitHearts),
		card.New(card.Rank2, card.SuitClubs),
		card.New(card.Rank3, card.SuitSpades),
	}
	hand := mustEval(t, cards)
	if hand.Rank != FourOfAKind {
		t.Errorf("expected FourOfAKind, got %s", hand.Rank)
	}
	if hand.TieBreakers[0] != card.RankK || hand.TieBreakers[1] != card.Rank9 {
		t.Errorf("unexpected tie breakers: %v", hand.TieBreakers)
	}
}

func TestEvaluate_FullHouse(t *testing.T) {
	cards := []card.Card{
		card.New(card.Rank7, card.SuitSpades),
		card.New(card.Rank7, card.SuitHearts),
		card.New(card.Rank7, card.SuitClubs),
		card.New(card.Rank4, card.SuitDiamonds),
		card.New(card.Rank4, card.SuitHearts),
		card.New(card.Rank2, card.SuitClubs),
		card.New(card.Rank9, card.SuitSpades),
	}
	hand := mustEval(t, cards)
	if hand.Rank != FullHouse {
		t.Errorf("expected FullHouse, got %s", hand.Rank)
	}
	if hand.TieBreakers[0] != card.Rank7 || hand.TieBreakers[1] != card.Rank4 {
		t.Errorf("unexpected tie breakers: %v", hand.TieBreakers)
	}
}

func TestEvaluate_TwoPair(t *testing.T) {
	cards := []card.Card{
		card.New(card.RankA, card.SuitSpades),
		card.New(card.RankA, card.SuitHearts),
		card.New(card.Rank6, card.SuitClubs),
		card.New(card.Rank6, card.SuitDiamonds),
		card.New(card.Rank2, card.SuitHearts),
		card.New(card.Rank9, card.SuitClubs),
		card.New(card.Rank4, card.SuitSpades),
	}
	hand := mustEval(t, cards)
	if hand.Rank != TwoPair {
		t.Errorf("expected TwoPair, got %s", hand.Rank)
	}
	if hand.TieBreakers[2] != card.Rank9 {
		t.Errorf("expected kicker 9, got %s", hand.TieBreakers[2])
	}
}

func TestEvaluate_Pair(t *testing.T) {
	cards := []card.Card{
		card.New(card.Rank10, card.SuitSpades),
		card.New(card.Rank10, card.SuitHearts),
		card.New(card.Rank2, card.SuitClubs),
		card.New(card.Rank6, card.SuitDiamonds),
		card.New(card.Rank9, card.SuitHearts),
		card.New(card.RankK, card.SuitClubs),
		card.New(card.Rank4, card.SuitSpades),
	}
	hand := mustEval(t, cards)
	if hand.Rank != Pair {
		t.Errorf("expected Pair, got %s", hand.Rank)
	}
	if len(hand.TieBreakers) != 4 {
		t.Fatalf("expected 4 tie breakers, got %d", len(hand.TieBreakers))
	}
}

func TestEvaluate_HighCard(t *testing.T) {
	cards := []card.Card{
		card.New(card.RankK, card.SuitSpades),
		card.New(card.Rank9, card.SuitHearts),
		card.New(card.Rank7, card.SuitClubs),
		card.New(card.Rank4, card.SuitDiamonds),
		card.New(card.Rank2, card.SuitHearts),
		card.New(card.RankJ, card.SuitClubs),
		card.New(card.Rank3, card.SuitSpades),
	}
	hand := mustEval(t, cards)
	if hand.Rank != HighCard {
		t.Errorf("expected HighCard, got %s", hand.Rank)
	}
}

func TestEvaluate_WrongCardCount(t *testing.T) {
	e := New()
	if _, err := e.Evaluate([]card.Card{card.New(card.Rank2, card.SuitClubs)}); err == nil {
		t.Fatal("expected error for too few cards")
	}
}

func TestCompareHands(t *testing.T) {
	e := New()
	quad, err := e.Evaluate7Card([]card.Card{
		card.New(card.RankK, card.SuitSpades),
		card.New(card.RankK, card.SuitHearts),
		card.New(card.RankK, card.SuitClubs),
		card.New(card.RankK, card.SuitDiamonds),
		card.New(card.Rank9, card.SuitHearts),
		card.New(card.Rank2, card.SuitClubs),
		card.New(card.Rank3, card.SuitSpades),
	})
	if err != nil {
		t.Fatalf("Evaluate7Card failed: %v", err)
	}
	pair, err := e.Evaluate7Card([]card.Card{
		card.New(card.Rank10, card.SuitSpades),
		card.New(card.Rank10, card.SuitHearts),
		card.New(card.Rank2, card.SuitClubs),
		card.New(card.Rank6, card.SuitDiamonds),
		card.New(card.Rank9, card.SuitHearts),
		card.New(card.RankK, card.SuitClubs),
		card.New(card.Rank4, card.SuitSpades),
	})
	if err != nil {
		t.Fatalf("Evaluate7Card failed: %v", err)
	}

	if CompareHands(quad, pair) != 1 {
		t.Error("expected four of a kind to beat pair")
	}
	if CompareHands(pair, quad) != -1 {
		t.Error("expected pair to lose to four of a kind")
	}
	if CompareHands(quad, quad) != 0 {
		t.Error("expected identical hands to tie")
	}
}
