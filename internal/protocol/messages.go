// Package protocol defines the line-oriented text protocol spoken between
// blackjack clients and the server. Every frame is one line: a command word
// optionally followed by a space and an argument.
package protocol

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/cards"
)

// Client -> Server
const (
	CmdCreate = "CREATE"
	CmdJoin   = "JOIN"
	CmdHit    = "HIT"
	CmdStand  = "STAND"
	CmdYes    = "YES"
	CmdNo     = "NO"
)

// Server -> Client
const (
	TypeTableCreated  = "TABLE_CREATED"
	TypeTableJoined   = "TABLE_JOINED"
	TypeTableNotFound = "TABLE_NOT_FOUND"
	TypeTableFull     = "TABLE_FULL"
	TypeDealerReset   = "DEALER_RESET"
	TypeCards         = "CARDS"
	TypeDealerInit    = "DEALER_INIT"
	TypeDealerReveal  = "DEALER_REVEAL"
	TypeDealerCard    = "DEALER_CARD"
	TypeResult        = "RESULT"
	TypeYourTurn      = "YOUR_TURN"
	TypePlayAgain     = "PLAY_AGAIN?"
	TypePlayAgainLock = "PLAY_AGAIN_LOCK"
)

// Outcome is the settlement of one player's hand against the dealer.
type Outcome string

const (
	Win  Outcome = "WIN"
	Lose Outcome = "LOSE"
	Push Outcome = "PUSH"
)

// Command is a parsed inbound line.
type Command struct {
	Name string
	Arg  string
}

// Parse splits a raw inbound frame into its command word and argument. The
// command word is upper-cased; the argument is kept as sent.
func Parse(line string) Command {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	return Command{
		Name: strings.ToUpper(name),
		Arg:  strings.TrimSpace(arg),
	}
}

// String renders the command back into wire form.
func (c Command) String() string {
	if c.Arg == "" {
		return c.Name
	}
	return c.Name + " " + c.Arg
}

func TableCreated(code string) string { return TypeTableCreated + " " + code }
func TableJoined(code string) string  { return TypeTableJoined + " " + code }

// Cards reports a player's current hand.
func Cards(hand cards.Hand) string {
	return TypeCards + " " + hand.String()
}

// DealerInit announces the dealer's opening cards. The second card is the
// hole card; hiding it is up to the client until DEALER_REVEAL.
func DealerInit(up, hole cards.Card) string {
	return fmt.Sprintf("%s %s %s", TypeDealerInit, up, hole)
}

// DealerCard announces one card drawn by the dealer.
func DealerCard(c cards.Card) string {
	return TypeDealerCard + " " + c.String()
}

// Result tells a player how their hand settled, with the dealer's final hand.
func Result(outcome Outcome, dealer cards.Hand) string {
	return fmt.Sprintf("%s %s DEALER %s", TypeResult, outcome, dealer)
}

// Settle compares a player's final value against the dealer's.
func Settle(player, dealer int) Outcome {
	switch {
	case player > 21:
		return Lose
	case dealer > 21:
		return Win
	case player > dealer:
		return Win
	case player == dealer:
		return Push
	default:
		return Lose
	}
}
