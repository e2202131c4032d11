package cards

import (
	rand "math/rand/v2"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// BuildDeck returns the 52 distinct cards in suit-major order, unshuffled.
func BuildDeck() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// Shuffle permutes cards in place (Fisher-Yates).
func Shuffle(rng *rand.Rand, cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Deck is the shoe a table deals from. A deck belongs to a single table and
// is not safe for concurrent use.
type Deck struct {
	cards      []Card
	rng        *rand.Rand
	lowWater   int
	reshuffles int
}

// DeckOption configures a Deck.
type DeckOption func(*Deck)

// WithLowWater makes Draw replenish the deck once fewer than n cards remain.
func WithLowWater(n int) DeckOption {
	return func(d *Deck) {
		if n >= 0 && n < DeckSize {
			d.lowWater = n
		}
	}
}

// NewDeck returns a freshly shuffled 52 card deck.
func NewDeck(rng *rand.Rand, opts ...DeckOption) *Deck {
	d := &Deck{rng: rng}
	for _, opt := range opts {
		opt(d)
	}
	d.cards = BuildDeck()
	Shuffle(d.rng, d.cards)
	return d
}

// NewStackedDeck returns a deck whose first draws are top, in order. Once
// those run out the deck is replenished like any other.
func NewStackedDeck(rng *rand.Rand, top ...Card) *Deck {
	d := &Deck{rng: rng}
	d.cards = append([]Card(nil), top...)
	return d
}

// Draw removes and returns the front card. An empty deck (or one at the low
// water mark) is first replaced by a fresh shuffled deck, so Draw never fails.
func (d *Deck) Draw() Card {
	if len(d.cards) == 0 || len(d.cards) < d.lowWater {
		d.replenish()
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card
}

// DrawN draws n cards.
func (d *Deck) DrawN(n int) []Card {
	out := make([]Card, n)
	for i := range out {
		out[i] = d.Draw()
	}
	return out
}

// Remaining returns the number of cards left before the next reshuffle.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Reshuffles counts how many times Draw had to replenish the deck.
func (d *Deck) Reshuffles() int {
	return d.reshuffles
}

func (d *Deck) replenish() {
	d.cards = BuildDeck()
	Shuffle(d.rng, d.cards)
	d.reshuffles++
}
