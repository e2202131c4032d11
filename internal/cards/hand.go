package cards

import (
	"fmt"
	"strings"
)

// Hand is an ordered set of cards held by a player or the dealer. Its value
// is always computed from the cards, never cached.
type Hand []Card

// HandValue scores cards with the soft/hard ace rule: every ace starts at 11
// and is demoted to 1, one at a time, while the total is over 21.
func HandValue(cards []Card) int {
	total, soft := 0, 0
	for _, c := range cards {
		total += c.Rank.Points()
		if c.IsAce() {
			soft++
		}
	}
	for total > 21 && soft > 0 {
		total -= 10
		soft--
	}
	return total
}

// Value returns the blackjack value of the hand.
func (h Hand) Value() int {
	return HandValue(h)
}

// IsBust reports whether the hand is over 21.
func (h Hand) IsBust() bool {
	return h.Value() > 21
}

// IsBlackjack reports a natural: exactly two cards worth 21.
func (h Hand) IsBlackjack() bool {
	return len(h) == 2 && h.Value() == 21
}

// String joins the cards with commas, the format used by CARDS and RESULT.
func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ParseHand parses a comma separated list of cards.
func ParseHand(s string) (Hand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Hand{}, nil
	}

	fields := strings.Split(s, ",")
	hand := make(Hand, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, fmt.Errorf("parse hand %q: %w", s, err)
		}
		hand = append(hand, c)
	}
	return hand, nil
}
