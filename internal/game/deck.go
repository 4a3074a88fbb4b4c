package game

import (
	"math/rand/v2"

	"github.com/blanco-cards/blanco/internal/models"
)

// Deck owns the draw pile and the discard pile for one round. Draw order is
// stack-like: cards come off the end of the pile. When the draw pile runs out,
// everything in the discard pile except its most recent card is shuffled back
// in, so the card just played can never be redrawn immediately.
type Deck struct {
	draw    []models.Card
	discard []models.Card
	rng     *rand.Rand
}

// NewDeck builds a full deck from the fixed card list and shuffles it.
func NewDeck(seed uint64) *Deck {
	d := &Deck{
		draw: make([]models.Card, len(models.CardList)),
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	copy(d.draw, models.CardList)
	d.shuffle()
	return d
}

// shuffle applies an unbiased Fisher-Yates permutation to the draw pile.
func (d *Deck) shuffle() {
	d.rng.Shuffle(len(d.draw), func(i, j int) {
		d.draw[i], d.draw[j] = d.draw[j], d.draw[i]
	})
}

// Draw pops one card, reshuffling the discard pile into the draw pile first
// if necessary. Returns ErrDeckExhausted only when every card is in some
// hand, which is a configuration error, not a normal game situation.
func (d *Deck) Draw() (models.Card, error) {
	if len(d.draw) == 0 {
		if len(d.discard) == 0 {
			return models.Card{}, ErrDeckExhausted
		}
		top := d.discard[len(d.discard)-1]
		d.draw = append(d.draw, d.discard[:len(d.discard)-1]...)
		d.discard = []models.Card{top}
		d.shuffle()
	}
	card := d.draw[len(d.draw)-1]
	d.draw = d.draw[:len(d.draw)-1]
	return card, nil
}

// Discard places a played card on top of the discard pile.
func (d *Deck) Discard(c models.Card) {
	d.discard = append(d.discard, c)
}

// Return puts a card back into the draw pile and reshuffles. Used when the
// opening flip produces a wild card.
func (d *Deck) Return(c models.Card) {
	d.draw = append(d.draw, c)
	d.shuffle()
}

// DrawOpener flips the first face-up card. Wild cards are returned to the
// deck and redrawn until a concrete color comes up, so the opening
// colorToPlay is always well defined.
func (d *Deck) DrawOpener() (models.Card, error) {
	for {
		card, err := d.Draw()
		if err != nil {
			return models.Card{}, err
		}
		if !card.IsWild() {
			return card, nil
		}
		d.Return(card)
	}
}

// DrawSize returns the number of cards left in the draw pile.
func (d *Deck) DrawSize() int { return len(d.draw) }

// DiscardSize returns the number of cards in the discard pile.
func (d *Deck) DiscardSize() int { return len(d.discard) }

// DiscardTop returns the most recently discarded card, if any.
func (d *Deck) DiscardTop() (models.Card, bool) {
	if len(d.discard) == 0 {
		return models.Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// randN returns a uniform int in [0, n). Exposed to the session so wild-color
// fallback and deck shuffling share one seeded source.
func (d *Deck) randN(n int) int { return d.rng.IntN(n) }
