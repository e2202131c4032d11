package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/protocol"
)

// Renderer turns protocol lines into styled terminal text. It keeps track of
// the dealer's cards so the hole card stays hidden until DEALER_REVEAL.
type Renderer struct {
	out io.Writer

	header lipgloss.Style
	red    lipgloss.Style
	black  lipgloss.Style
	hidden lipgloss.Style
	prompt lipgloss.Style
	win    lipgloss.Style
	lose   lipgloss.Style
	push   lipgloss.Style
	muted  lipgloss.Style

	dealer cards.Hand
}

// NewRenderer writes to out, picking colours for what out supports.
func NewRenderer(out io.Writer) *Renderer {
	lr := lipgloss.NewRenderer(out)
	return &Renderer{
		out:    out,
		header: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		red:    lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		black:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		hidden: lr.NewStyle().Foreground(lipgloss.Color("8")),
		prompt: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		win:    lr.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		lose:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		push:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		muted:  lr.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Handle implements LineHandler. It never replies; a human does that.
func (r *Renderer) Handle(line string) ([]string, bool) {
	if text := r.Render(line); text != "" {
		_, _ = fmt.Fprintln(r.out, text)
	}
	return nil, false
}

// Render formats one server line. Unknown lines are shown as sent.
func (r *Renderer) Render(line string) string {
	kind, rest, _ := strings.Cut(line, " ")

	switch kind {
	case protocol.TypeTableCreated:
		return r.header.Render("Created table "+rest) + r.muted.Render(" (share the code so friends can JOIN)")
	case protocol.TypeTableJoined:
		return r.header.Render("Seated at table " + rest)
	case protocol.TypeTableNotFound:
		return r.lose.Render("No table with that code")
	case protocol.TypeTableFull:
		return r.lose.Render("That table is full")

	case protocol.TypeDealerReset:
		r.dealer = nil
		return r.muted.Render("--- new round ---")
	case protocol.TypeDealerInit:
		r.dealer = r.parseCards(strings.Fields(rest))
		if len(r.dealer) < 2 {
			return "Dealer: " + rest
		}
		return "Dealer shows " + r.card(r.dealer[0]) + " " + r.hidden.Render("[??]")
	case protocol.TypeDealerReveal:
		return "Dealer reveals " + r.hand(r.dealer)
	case protocol.TypeDealerCard:
		if c, err := cards.ParseCard(rest); err == nil {
			r.dealer = append(r.dealer, c)
		}
		return "Dealer draws " + r.hand(r.dealer)

	case protocol.TypeCards:
		hand, err := cards.ParseHand(rest)
		if err != nil {
			return line
		}
		return "Your hand " + r.hand(hand)
	case protocol.TypeYourTurn:
		return r.prompt.Render("Your turn: HIT or STAND?")
	case protocol.TypeResult:
		return r.result(rest)
	case protocol.TypePlayAgain:
		return r.prompt.Render("Play again? YES or NO")
	case protocol.TypePlayAgainLock:
		return r.muted.Render("Waiting for other players to decide...")
	}
	return line
}

func (r *Renderer) result(rest string) string {
	outcome, dealer, _ := strings.Cut(rest, " DEALER ")
	var style lipgloss.Style
	switch protocol.Outcome(outcome) {
	case protocol.Win:
		style = r.win
	case protocol.Lose:
		style = r.lose
	default:
		style = r.push
	}
	text := style.Render(outcome)
	if hand, err := cards.ParseHand(dealer); err == nil {
		text += " against dealer " + r.hand(hand)
	}
	return text
}

func (r *Renderer) parseCards(fields []string) cards.Hand {
	var hand cards.Hand
	for _, f := range fields {
		if c, err := cards.ParseCard(strings.TrimSuffix(f, ",")); err == nil {
			hand = append(hand, c)
		}
	}
	return hand
}

func (r *Renderer) card(c cards.Card) string {
	if c.Suit.IsRed() {
		return r.red.Render(c.String())
	}
	return r.black.Render(c.String())
}

func (r *Renderer) hand(h cards.Hand) string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = r.card(c)
	}
	return fmt.Sprintf("%s (%d)", strings.Join(parts, " "), h.Value())
}
