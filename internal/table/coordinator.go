package table

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/protocol"
	"github.com/rs/zerolog"
)

// DefaultResponse is what an actor is assumed to have said when it does not
// answer in time or is no longer connected.
const DefaultResponse = protocol.CmdStand

// Coordinator suspends a table's round loop until one actor answers. Only
// the waiting table is parked; other tables keep running.
type Coordinator struct {
	clock   quartz.Clock
	timeout time.Duration
	logger  zerolog.Logger

	timeouts    atomic.Uint64
	disconnects atomic.Uint64
}

// NewCoordinator creates a coordinator that gives each actor timeout to respond.
func NewCoordinator(clock quartz.Clock, timeout time.Duration, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		clock:   clock,
		timeout: timeout,
		logger:  logger.With().Str("component", "coordinator").Logger(),
	}
}

// AwaitResponse returns the actor's oldest unread command. It gives up and
// returns DefaultResponse when the connection drops, the timeout elapses or
// ctx is cancelled, whichever comes first.
func (c *Coordinator) AwaitResponse(ctx context.Context, a *Actor) string {
	if !a.Alive() {
		c.disconnects.Add(1)
		return DefaultResponse
	}
	if cmd, ok := a.inbox.Pop(); ok {
		return cmd
	}

	timer := c.clock.NewTimer(c.timeout, "coordinator", "await")
	defer timer.Stop()

	for {
		select {
		case <-a.inbox.Ready():
			if cmd, ok := a.inbox.Pop(); ok {
				return cmd
			}
		case <-a.Done():
			c.disconnects.Add(1)
			c.logger.Debug().Str("actor", a.ID).Msg("Actor disconnected while awaited")
			return DefaultResponse
		case <-timer.C:
			c.timeouts.Add(1)
			c.logger.Debug().Str("actor", a.ID).Dur("timeout", c.timeout).Msg("Actor timed out")
			return DefaultResponse
		case <-ctx.Done():
			return DefaultResponse
		}
	}
}

// Timeouts counts awaits that ended because the actor did not answer in time.
func (c *Coordinator) Timeouts() uint64 {
	return c.timeouts.Load()
}

// Disconnects counts awaits that ended because the actor's connection was gone.
func (c *Coordinator) Disconnects() uint64 {
	return c.disconnects.Load()
}
