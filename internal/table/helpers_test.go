package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/protocol"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

// fastConfig has no pacing so rounds run as fast as players answer.
func fastConfig() Config {
	return Config{
		MaxPlayers:      5,
		ResponseTimeout: 30 * time.Second,
	}
}

// recorder captures every line sent to any test connection, in order.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) add(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *recorder) matching(suffix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.lines {
		if strings.HasSuffix(l, suffix) {
			out = append(out, l)
		}
	}
	return out
}

var errConnClosed = errors.New("test connection closed")

type testConn struct {
	name string
	rec  *recorder
	out  chan string
	done chan struct{}
	once sync.Once
}

func newTestConn(name string, rec *recorder) *testConn {
	return &testConn{
		name: name,
		rec:  rec,
		out:  make(chan string, 512),
		done: make(chan struct{}),
	}
}

func (c *testConn) Send(text string) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	if c.rec != nil {
		c.rec.add(c.name + ": " + text)
	}
	select {
	case c.out <- text:
		return nil
	default:
		return fmt.Errorf("test connection %s buffer full", c.name)
	}
}

func (c *testConn) Done() <-chan struct{} { return c.done }

func (c *testConn) Close() { c.once.Do(func() { close(c.done) }) }

// testPlayer reads everything sent to its connection and answers prompts
// with the configured decisions.
type testPlayer struct {
	t     *testing.T
	conn  *testConn
	actor *Actor

	mu     sync.Mutex
	lines  []string
	onTurn func(hand cards.Hand) string
	replay string
}

func newTestPlayer(t *testing.T, name string, rec *recorder) *testPlayer {
	t.Helper()
	conn := newTestConn(name, rec)
	p := &testPlayer{
		t:      t,
		conn:   conn,
		actor:  NewActor(conn),
		onTurn: func(cards.Hand) string { return protocol.CmdStand },
		replay: "NO",
	}
	t.Cleanup(conn.Close)
	go p.run()
	return p
}

// manual returns a player that records lines but never answers.
func (p *testPlayer) manual() *testPlayer {
	p.mu.Lock()
	p.onTurn = nil
	p.replay = ""
	p.mu.Unlock()
	return p
}

func (p *testPlayer) setTurn(decide func(hand cards.Hand) string) {
	p.mu.Lock()
	p.onTurn = decide
	p.mu.Unlock()
}

func (p *testPlayer) setReplay(answer string) {
	p.mu.Lock()
	p.replay = answer
	p.mu.Unlock()
}

func (p *testPlayer) run() {
	var hand cards.Hand
	for {
		select {
		case <-p.conn.done:
			return
		case line := <-p.conn.out:
			p.mu.Lock()
			p.lines = append(p.lines, line)
			onTurn, replay := p.onTurn, p.replay
			p.mu.Unlock()

			switch {
			case strings.HasPrefix(line, protocol.TypeCards+" "):
				h, err := cards.ParseHand(strings.TrimPrefix(line, protocol.TypeCards+" "))
				if err == nil {
					hand = h
				}
			case line == protocol.TypeYourTurn && onTurn != nil:
				p.actor.Enqueue(onTurn(hand))
			case line == protocol.TypePlayAgain && replay != "":
				p.actor.Enqueue(replay)
			}
		}
	}
}

func (p *testPlayer) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *testPlayer) count(prefix string) int {
	n := 0
	for _, l := range p.snapshot() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// waitFor blocks until the player has received n lines starting with prefix.
func (p *testPlayer) waitFor(prefix string, n int) {
	p.t.Helper()
	require.Eventually(p.t, func() bool {
		return p.count(prefix) >= n
	}, waitTimeout, 5*time.Millisecond, "waiting for %d x %q, got %v", n, prefix, p.snapshot())
}

func (p *testPlayer) linesWith(prefix string) []string {
	var out []string
	for _, l := range p.snapshot() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

// fixedCodes hands out codes from a list, repeating the last one.
type fixedCodes struct {
	mu    sync.Mutex
	codes []string
}

func (f *fixedCodes) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := f.codes[0]
	if len(f.codes) > 1 {
		f.codes = f.codes[1:]
	}
	return code
}

// stackedDecks deals every round from a deck whose top cards are stack.
func stackedDecks(t *testing.T, stack string) DeckFactory {
	t.Helper()
	top, err := cards.ParseHand(stack)
	require.NoError(t, err)
	return func(rng *rand.Rand, _ int) *cards.Deck {
		return cards.NewStackedDeck(rng, top...)
	}
}

func newTestRegistry(t *testing.T, cfg Config, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{
		WithClock(quartz.NewReal()),
		WithRand(randutil.New(42)),
	}, opts...)
	r := NewRegistry(testLogger(), cfg, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r
}
