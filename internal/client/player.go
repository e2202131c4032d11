package client

import (
	"strings"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/protocol"
	"github.com/rs/zerolog"
)

// DefaultStandOn is the total the auto player stops hitting at, the same
// rule the dealer plays by.
const DefaultStandOn = 17

// AutoPlayer answers every prompt by itself: it hits below StandOn and asks
// for another round until it has played Rounds of them.
type AutoPlayer struct {
	StandOn int
	Rounds  int

	logger   zerolog.Logger
	hand     cards.Hand
	table    string
	results  []protocol.Outcome
	rejected string
}

// NewAutoPlayer creates a player that plays rounds rounds before leaving.
func NewAutoPlayer(rounds, standOn int, logger zerolog.Logger) *AutoPlayer {
	if standOn <= 0 {
		standOn = DefaultStandOn
	}
	if rounds <= 0 {
		rounds = 1
	}
	return &AutoPlayer{
		StandOn: standOn,
		Rounds:  rounds,
		logger:  logger.With().Str("component", "autoplayer").Logger(),
	}
}

// Decide picks HIT or STAND for hand.
func (p *AutoPlayer) Decide(hand cards.Hand) string {
	if hand.Value() < p.StandOn {
		return protocol.CmdHit
	}
	return protocol.CmdStand
}

// Handle implements LineHandler.
func (p *AutoPlayer) Handle(line string) ([]string, bool) {
	kind, rest, _ := strings.Cut(line, " ")

	switch kind {
	case protocol.TypeTableCreated, protocol.TypeTableJoined:
		p.table = rest

	case protocol.TypeTableNotFound, protocol.TypeTableFull:
		p.rejected = kind
		p.logger.Warn().Str("reason", kind).Msg("Could not take a seat")
		return nil, true

	case protocol.TypeDealerReset:
		p.hand = nil

	case protocol.TypeCards:
		hand, err := cards.ParseHand(rest)
		if err != nil {
			p.logger.Warn().Err(err).Str("line", line).Msg("Unreadable hand")
			return nil, false
		}
		p.hand = hand

	case protocol.TypeYourTurn:
		decision := p.Decide(p.hand)
		p.logger.Debug().Str("hand", p.hand.String()).Int("value", p.hand.Value()).Str("decision", decision).Msg("Playing turn")
		return []string{decision}, false

	case protocol.TypeResult:
		outcome, _, _ := strings.Cut(rest, " ")
		p.results = append(p.results, protocol.Outcome(outcome))
		p.logger.Info().Str("outcome", outcome).Str("hand", p.hand.String()).Int("round", len(p.results)).Msg("Round finished")

	case protocol.TypePlayAgain:
		if len(p.results) < p.Rounds {
			return []string{protocol.CmdYes}, false
		}
		return []string{protocol.CmdNo}, true
	}
	return nil, false
}

// Table returns the code of the table the player was seated at.
func (p *AutoPlayer) Table() string { return p.table }

// Results returns the outcome of every round played so far.
func (p *AutoPlayer) Results() []protocol.Outcome {
	return append([]protocol.Outcome(nil), p.results...)
}

// Rejected returns TABLE_NOT_FOUND or TABLE_FULL if the server refused a seat.
func (p *AutoPlayer) Rejected() string { return p.rejected }
