package table

import (
	"context"
	rand "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/protocol"
	"github.com/rs/zerolog"
)

// State is the phase a table's round loop is in.
type State int

const (
	StateIdle State = iota
	StateDealing
	StatePlayerTurns
	StateDealerTurn
	StateSettlement
	StateReplayPoll
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDealing:
		return "dealing"
	case StatePlayerTurns:
		return "player_turns"
	case StateDealerTurn:
		return "dealer_turn"
	case StateSettlement:
		return "settlement"
	case StateReplayPoll:
		return "replay_poll"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// running reports whether a round is in progress. Actors joining while a
// round runs wait for the next one.
func (s State) running() bool {
	return s != StateIdle && s != StateTerminated
}

// DeckFactory builds the deck a round is dealt from.
type DeckFactory func(rng *rand.Rand, lowWater int) *cards.Deck

func shuffledDeck(rng *rand.Rand, lowWater int) *cards.Deck {
	return cards.NewDeck(rng, cards.WithLowWater(lowWater))
}

// Session is one table: its seated actors, the dealer's hand and the deck,
// driven by a single round loop goroutine.
type Session struct {
	code    string
	cfg     Config
	clock   quartz.Clock
	coord   *Coordinator
	rng     *rand.Rand
	newDeck DeckFactory
	logger  zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	onClose func(*Session)

	mu      sync.Mutex
	active  []*Actor
	queued  []*Actor
	state   State
	started bool
	closed  bool
	stats   TableStats

	// Owned by the round loop.
	deck   *cards.Deck
	dealer cards.Hand
}

type sessionParams struct {
	code    string
	cfg     Config
	clock   quartz.Clock
	coord   *Coordinator
	rng     *rand.Rand
	newDeck DeckFactory
	logger  zerolog.Logger
	ctx     context.Context
	wg      *sync.WaitGroup
	onClose func(*Session)
}

func newSession(p sessionParams) *Session {
	if p.newDeck == nil {
		p.newDeck = shuffledDeck
	}
	ctx, cancel := context.WithCancel(p.ctx)
	return &Session{
		code:    p.code,
		cfg:     p.cfg,
		clock:   p.clock,
		coord:   p.coord,
		rng:     p.rng,
		newDeck: p.newDeck,
		logger:  p.logger.With().Str("table", p.code).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		wg:      p.wg,
		onClose: p.onClose,
		stats:   TableStats{Code: p.code},
	}
}

// Code returns the table code.
func (s *Session) Code() string {
	return s.code
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Counts returns how many actors play the current round and how many wait
// for the next one.
func (s *Session) Counts() (active, queued int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active), len(s.queued)
}

// Join seats a. Between rounds a plays from the next deal; during a round it
// is queued and sits the round out. The first join starts the round loop.
func (s *Session) Join(a *Actor) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrTableClosed
	}
	if len(s.active)+len(s.queued) >= s.cfg.MaxPlayers {
		s.mu.Unlock()
		return ErrTableFull
	}
	if !a.seat(s.code) {
		s.mu.Unlock()
		return ErrAlreadySeated
	}

	queued := s.state.running()
	if queued {
		a.inbox.Close()
		s.queued = append(s.queued, a)
	} else {
		a.inbox.Open()
		s.active = append(s.active, a)
	}
	// Acknowledge before the round loop can see a, so the ack is always the
	// first thing a hears from this table.
	s.send(a, protocol.TableJoined(s.code))
	start := !s.started
	s.started = true
	s.mu.Unlock()

	s.logger.Info().Str("actor", a.ID).Bool("queued", queued).Msg("Actor joined table")

	if start {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run()
		}()
	}
	return nil
}

// Remove takes a disconnected actor off the table. It reports whether the
// table is now empty and has been closed.
func (s *Session) Remove(a *Actor) bool {
	s.mu.Lock()
	s.active = slices.DeleteFunc(s.active, func(x *Actor) bool { return x == a })
	s.queued = slices.DeleteFunc(s.queued, func(x *Actor) bool { return x == a })
	emptied := !s.closed && len(s.active) == 0 && len(s.queued) == 0
	if emptied {
		s.closed = true
		s.state = StateTerminated
	}
	s.mu.Unlock()

	a.release()
	s.logger.Info().Str("actor", a.ID).Bool("table_closed", emptied).Msg("Actor left table")
	return emptied
}

// stop closes the table and interrupts its round loop. Pending turn and
// replay waits resolve at once and the loop releases every actor on its way
// out.
func (s *Session) stop() {
	s.mu.Lock()
	s.closed = true
	s.state = StateTerminated
	s.mu.Unlock()
	s.cancel()
}

// Stats returns a snapshot of the table's counters.
func (s *Session) Stats() TableStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.State = s.state.String()
	st.Players = len(s.active)
	st.Queued = len(s.queued)
	return st
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	if !s.closed {
		s.state = state
	}
	s.mu.Unlock()
}

// seated reports whether a still sits in the active list.
func (s *Session) seated(a *Actor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.active, a)
}

// pause waits d on the table clock. It returns false if the server is
// shutting down.
func (s *Session) pause(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	timer := s.clock.NewTimer(d, "session", "pause")
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// run is the table's round loop. It plays rounds back to back until nobody
// is left, then removes the table.
func (s *Session) run() {
	defer s.finish()

	if !s.pause(s.cfg.StartDelay) {
		return
	}
	for {
		roster, ok := s.beginRound()
		if !ok {
			return
		}
		continuing := s.playRound(roster)
		if !s.endRound(continuing) {
			return
		}
		if !s.pause(s.cfg.RestartDelay) {
			return
		}
	}
}

// beginRound freezes the active list into the roster for one round.
func (s *Session) beginRound() ([]*Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return nil, false
	}
	if len(s.active) == 0 {
		s.closed = true
		s.state = StateTerminated
		return nil, false
	}
	s.state = StateDealing
	roster := slices.Clone(s.active)
	for _, a := range roster {
		a.resetHand()
		a.inbox.Clear()
		a.inbox.Open()
	}
	return roster, true
}

// endRound builds the next active list from the actors who want to keep
// playing plus everyone queued during the round. It returns false once the
// table is empty.
func (s *Session) endRound(continuing []*Actor) bool {
	s.mu.Lock()
	next := make([]*Actor, 0, len(continuing)+len(s.queued))
	for _, a := range continuing {
		if slices.Contains(s.active, a) {
			next = append(next, a)
		}
	}
	var released []*Actor
	for _, a := range s.active {
		if !slices.Contains(next, a) {
			released = append(released, a)
		}
	}
	next = append(next, s.queued...)
	s.queued = nil
	s.active = next
	s.stats.Rounds++

	emptied := len(s.active) == 0
	if emptied {
		s.closed = true
		s.state = StateTerminated
	} else if !s.closed {
		s.state = StateIdle
	}
	closed := s.closed
	s.mu.Unlock()

	for _, a := range released {
		a.release()
	}
	s.logger.Debug().
		Int("continuing", len(continuing)).
		Int("released", len(released)).
		Int("next_round", len(next)).
		Msg("Round finished")
	return !closed
}

func (s *Session) finish() {
	s.cancel()
	s.mu.Lock()
	s.closed = true
	s.state = StateTerminated
	remaining := append(slices.Clone(s.active), s.queued...)
	s.active, s.queued = nil, nil
	s.mu.Unlock()

	for _, a := range remaining {
		a.release()
	}
	if s.onClose != nil {
		s.onClose(s)
	}
	s.logger.Info().Msg("Table closed")
}

// playRound runs one round for roster and returns the actors who asked to
// play again.
func (s *Session) playRound(roster []*Actor) []*Actor {
	s.deal(roster)
	if !s.pause(s.cfg.TurnDelay) {
		return nil
	}

	s.setState(StatePlayerTurns)
	for _, a := range roster {
		if s.ctx.Err() != nil {
			return nil
		}
		if !a.Alive() || !s.seated(a) {
			a.status = finalStatus(a)
			continue
		}
		s.playTurn(a)
	}
	if s.isClosed() {
		return nil
	}

	s.setState(StateDealerTurn)
	if !s.playDealer(roster) {
		return nil
	}

	s.setState(StateSettlement)
	s.settle(roster)
	if !s.pause(s.cfg.ResultDelay) || s.isClosed() {
		return nil
	}

	s.setState(StateReplayPoll)
	return s.pollReplay(roster)
}

// finalStatus is the status of an actor that cannot act, its hand as dealt.
func finalStatus(a *Actor) Status {
	switch {
	case a.hand.IsBlackjack():
		return StatusBlackjack
	case a.hand.IsBust():
		return StatusBust
	default:
		return StatusStanding
	}
}

func (s *Session) deal(roster []*Actor) {
	s.deck = s.newDeck(s.rng, s.cfg.DeckLowWater)
	s.dealer = nil

	s.broadcast(roster, protocol.TypeDealerReset)

	s.dealer = append(s.dealer, s.draw(), s.draw())
	s.broadcast(roster, protocol.DealerInit(s.dealer[0], s.dealer[1]))
	if !s.pause(s.cfg.DealDelay) {
		return
	}

	for _, a := range roster {
		a.hand = append(a.hand, s.draw(), s.draw())
		if a.hand.IsBlackjack() {
			a.status = StatusBlackjack
		}
		s.send(a, protocol.Cards(a.hand))
	}
	s.logger.Debug().Int("players", len(roster)).Str("dealer", s.dealer.String()).Msg("Cards dealt")
}

func (s *Session) draw() cards.Card {
	before := s.deck.Reshuffles()
	c := s.deck.Draw()
	if s.deck.Reshuffles() != before {
		s.logger.Debug().Int("reshuffles", s.deck.Reshuffles()).Msg("Deck reshuffled")
	}
	return c
}

// playTurn prompts a until it stands, busts or reaches 21. An actor dealt
// 21 is never prompted.
func (s *Session) playTurn(a *Actor) {
	for a.hand.Value() < 21 {
		s.send(a, protocol.TypeYourTurn)
		resp := s.coord.AwaitResponse(s.ctx, a)
		if resp != protocol.CmdHit {
			a.status = StatusStanding
			s.logger.Debug().Str("actor", a.ID).Str("response", resp).Int("value", a.hand.Value()).Msg("Actor stands")
			return
		}

		a.hand = append(a.hand, s.draw())
		s.send(a, protocol.Cards(a.hand))
		if a.hand.IsBust() {
			a.status = StatusBust
			s.logger.Debug().Str("actor", a.ID).Int("value", a.hand.Value()).Msg("Actor busts")
			return
		}
	}
	if a.status != StatusBlackjack {
		a.status = StatusStanding
	}
}

// playDealer reveals the hole card and, unless every player busted, draws
// until the dealer reaches 17.
func (s *Session) playDealer(roster []*Actor) bool {
	s.broadcast(roster, protocol.TypeDealerReveal)
	if !s.pause(s.cfg.RevealDelay) {
		return false
	}

	contested := false
	for _, a := range roster {
		if a.hand.Value() <= 21 {
			contested = true
			break
		}
	}
	for contested && s.dealer.Value() < 17 {
		c := s.draw()
		s.dealer = append(s.dealer, c)
		s.broadcast(roster, protocol.DealerCard(c))
		if !s.pause(s.cfg.DealerDrawDelay) {
			return false
		}
	}
	return true
}

func (s *Session) settle(roster []*Actor) {
	dealerValue := s.dealer.Value()
	tally := map[protocol.Outcome]uint64{}
	var blackjacks, busts uint64
	for _, a := range roster {
		outcome := protocol.Settle(a.hand.Value(), dealerValue)
		tally[outcome]++
		switch a.status {
		case StatusBlackjack:
			blackjacks++
		case StatusBust:
			busts++
		}
		s.logger.Debug().
			Str("actor", a.ID).
			Str("status", a.status.String()).
			Str("hand", a.hand.String()).
			Str("outcome", string(outcome)).
			Msg("Actor settled")
		s.send(a, protocol.Result(outcome, s.dealer))
	}

	s.mu.Lock()
	s.stats.Wins += tally[protocol.Win]
	s.stats.Losses += tally[protocol.Lose]
	s.stats.Pushes += tally[protocol.Push]
	s.stats.Blackjacks += blackjacks
	s.stats.Busts += busts
	if dealerValue > 21 {
		s.stats.DealerBusts++
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("dealer", s.dealer.String()).
		Int("dealer_value", dealerValue).
		Uint64("wins", tally[protocol.Win]).
		Uint64("losses", tally[protocol.Lose]).
		Uint64("pushes", tally[protocol.Push]).
		Msg("Round settled")
}

// pollReplay asks each actor in seating order whether to play again. While
// one actor is asked every other actor is locked out, so nobody's keystroke
// can be taken as someone else's answer.
func (s *Session) pollReplay(roster []*Actor) []*Actor {
	for _, a := range roster {
		a.inbox.Close()
	}

	var continuing []*Actor
	for _, a := range roster {
		if s.ctx.Err() != nil {
			return nil
		}
		if !a.Alive() || !s.seated(a) {
			continue
		}

		s.broadcast(roster, protocol.TypePlayAgainLock)
		a.inbox.Clear()
		a.inbox.Open()
		s.send(a, protocol.TypePlayAgain)
		resp := s.coord.AwaitResponse(s.ctx, a)
		a.inbox.Close()

		if resp == protocol.CmdYes {
			continuing = append(continuing, a)
		} else {
			s.logger.Debug().Str("actor", a.ID).Str("response", resp).Msg("Actor declined another round")
		}
		if !s.pause(s.cfg.ReplayDelay) {
			return nil
		}
	}
	return continuing
}
