// Package deck wraps a standard 52-card deck with the project's seeded CSPRNG
// (pkg/rng) to give Fisher-Yates shuffles that are cryptographically strong
// in production and reproducible under a fixed seed in tests. Ownership of a
// Deck's PRNG state belongs exclusively to the Table's HandMachine that
// created it.
package deck

import (
	"fmt"

	"poker-core/pkg/card"
	"poker-core/pkg/rng"
)

// Deck is a shuffled deck with a cursor into the undealt cards. DealHole,
// DealBoard, and Burn consume from the front; Deck never exposes cards past
// the cursor.
type Deck struct {
	cards  []card.Card
	cursor int
}

// New creates a freshly shuffled 52-card deck using rngSystem for the
// Fisher-Yates permutation.
func New(rngSystem *rng.System) *Deck {
	cards := card.FullDeck()
	for i := len(cards) - 1; i > 0; i-- {
		j := rngSystem.RandomInt(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// Remaining returns how many cards are left to deal.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.cursor
}

// DealHole deals n cards, typically 2 per player for a hole-card deal.
func (d *Deck) DealHole(n int) ([]card.Card, error) {
	return d.deal(n)
}

// DealBoard deals n community cards (flop=3, turn=1, river=1).
func (d *Deck) DealBoard(n int) ([]card.Card, error) {
	return d.deal(n)
}

// Burn discards n cards without exposing them; purely cosmetic per the rules
// but kept symmetric with real dealing so hand-history replay matches card
// order exactly.
func (d *Deck) Burn(n int) error {
	_, err := d.deal(n)
	return err
}

func (d *Deck) deal(n int) ([]card.Card, error) {
	if n < 0 || d.Remaining() < n {
		return nil, fmt.Errorf("deck: cannot deal %d cards, %d remaining", n, d.Remaining())
	}
	dealt := d.cards[d.cursor : d.cursor+n]
	d.cursor += n
	out := make([]card.Card, n)
	copy(out, dealt)
	return out, nil
}
