package table

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/protocol"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/tablecode"
	"github.com/rs/zerolog"
)

// maxCodeAttempts bounds how often Create retries a colliding code.
const maxCodeAttempts = 64

// CodeGenerator produces candidate table codes.
type CodeGenerator interface {
	Generate() string
}

// Registry owns every live table, keyed by table code.
type Registry struct {
	cfg     Config
	clock   quartz.Clock
	rng     *randutil.Locked
	codes   CodeGenerator
	newDeck DeckFactory
	coord   *Coordinator
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
	created  atomic.Uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for turn timeouts and pacing.
func WithClock(clock quartz.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithRand sets the random source tables shuffle from.
func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) { r.rng = randutil.NewLocked(rng) }
}

// WithCodeGenerator replaces the table code generator.
func WithCodeGenerator(codes CodeGenerator) Option {
	return func(r *Registry) { r.codes = codes }
}

// WithDeckFactory replaces how each round's deck is built.
func WithDeckFactory(f DeckFactory) Option {
	return func(r *Registry) { r.newDeck = f }
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger, cfg Config, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		cfg:      cfg,
		logger:   logger.With().Str("component", "registry").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.clock == nil {
		r.clock = quartz.NewReal()
	}
	if r.rng == nil {
		r.rng = randutil.NewLocked(randutil.New(randutil.Seed(nil)))
	}
	if r.codes == nil {
		r.codes = tablecode.NewGenerator(r.rng)
	}
	r.coord = NewCoordinator(r.clock, cfg.ResponseTimeout, logger)
	return r
}

// Create opens a new table and seats a at it.
func (r *Registry) Create(a *Actor) (string, error) {
	if a.TableCode() != "" {
		return "", ErrAlreadySeated
	}

	r.mu.Lock()
	code, err := r.uniqueCode()
	if err != nil {
		r.mu.Unlock()
		return "", err
	}
	s := newSession(sessionParams{
		code:    code,
		cfg:     r.cfg,
		clock:   r.clock,
		coord:   r.coord,
		rng:     r.rng.Fork(),
		newDeck: r.newDeck,
		logger:  r.logger,
		ctx:     r.ctx,
		wg:      &r.wg,
		onClose: r.remove,
	})
	r.sessions[code] = s
	r.mu.Unlock()
	r.created.Add(1)

	r.logger.Info().Str("table", code).Str("actor", a.ID).Msg("Table created")
	_ = a.Send(protocol.TableCreated(code))

	if err := s.Join(a); err != nil {
		r.remove(s)
		return "", fmt.Errorf("seat creator at %s: %w", code, err)
	}
	return code, nil
}

// uniqueCode must be called with r.mu held.
func (r *Registry) uniqueCode() (string, error) {
	for range maxCodeAttempts {
		code := r.codes.Generate()
		if _, taken := r.sessions[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free table code after %d attempts", maxCodeAttempts)
}

// Join seats a at the table with the given code.
func (r *Registry) Join(code string, a *Actor) error {
	if a.TableCode() != "" {
		return ErrAlreadySeated
	}
	code = tablecode.Normalize(code)
	if err := tablecode.Validate(code); err != nil {
		return fmt.Errorf("%w: %v", ErrTableNotFound, err)
	}

	s, ok := r.Lookup(code)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, code)
	}
	if err := s.Join(a); err != nil {
		if errors.Is(err, ErrTableClosed) {
			return fmt.Errorf("%w: %s", ErrTableNotFound, code)
		}
		return fmt.Errorf("join %s: %w", code, err)
	}
	return nil
}

// Leave removes a from its table after its connection closed, discarding the
// table if nobody is left.
func (r *Registry) Leave(a *Actor) {
	code := a.TableCode()
	if code == "" {
		return
	}
	s, ok := r.Lookup(code)
	if !ok {
		a.release()
		return
	}
	if s.Remove(a) {
		r.remove(s)
	}
}

// Destroy discards the table with code and stops its round, releasing every
// actor seated there. Unknown codes are ignored.
func (r *Registry) Destroy(code string) {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok {
		delete(r.sessions, code)
	}
	r.mu.Unlock()

	if ok {
		s.stop()
		r.logger.Info().Str("table", code).Msg("Table destroyed")
	}
}

// remove deletes s from the map, unless its code now belongs to another table.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.code] == s {
		delete(r.sessions, s.code)
		r.logger.Debug().Str("table", s.code).Msg("Table removed")
	}
}

// Lookup returns the live table with code.
func (r *Registry) Lookup(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	return s, ok
}

// Len returns the number of live tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Handle processes one inbound line from a. CREATE and JOIN are handled
// here; anything else goes to a's table, and is dropped if a sits nowhere.
func (r *Registry) Handle(a *Actor, line string) {
	cmd := protocol.Parse(line)

	switch cmd.Name {
	case "":
		return

	case protocol.CmdCreate:
		if _, err := r.Create(a); err != nil {
			r.logger.Debug().Err(err).Str("actor", a.ID).Msg("Create rejected")
		}

	case protocol.CmdJoin:
		err := r.Join(cmd.Arg, a)
		switch {
		case err == nil:
		case errors.Is(err, ErrTableNotFound):
			_ = a.Send(protocol.TypeTableNotFound)
		case errors.Is(err, ErrTableFull):
			_ = a.Send(protocol.TypeTableFull)
		default:
			r.logger.Debug().Err(err).Str("actor", a.ID).Msg("Join rejected")
		}

	default:
		if a.TableCode() == "" {
			r.logger.Debug().Str("actor", a.ID).Str("command", cmd.Name).Msg("Ignoring command from actor without a table")
			return
		}
		if !a.Enqueue(cmd.Name) {
			r.logger.Debug().Str("actor", a.ID).Str("command", cmd.Name).Msg("Table is not listening to actor, command dropped")
		}
	}
}

// Stats returns a snapshot of all live tables, ordered by code.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	details := make([]TableStats, 0, len(sessions))
	for _, s := range sessions {
		details = append(details, s.Stats())
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Code < details[j].Code })

	return RegistryStats{
		Tables:        len(details),
		TablesCreated: r.created.Load(),
		Timeouts:      r.coord.Timeouts(),
		Disconnects:   r.coord.Disconnects(),
		Details:       details,
	}
}

// Shutdown stops every table loop and waits for them to exit.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
