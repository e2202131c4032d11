package table

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lox/blackjack/internal/cards"
)

// Conn is what the table needs from a player's transport.
type Conn interface {
	// Send delivers one protocol line to the player.
	Send(text string) error
	// Done is closed once the connection is gone.
	Done() <-chan struct{}
}

// Status is where an actor stands in the current round.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusStanding
	StatusBust
	StatusBlackjack
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusStanding:
		return "standing"
	case StatusBust:
		return "bust"
	case StatusBlackjack:
		return "blackjack"
	default:
		return "unknown"
	}
}

// Actor is a player seated (or waiting to be seated) at a table, tied to one
// live connection.
type Actor struct {
	ID    string
	conn  Conn
	inbox *Inbox

	mu   sync.Mutex
	code string

	// Owned by the round loop of the actor's table.
	hand   cards.Hand
	status Status
}

// NewActor wraps a connection in a new actor.
func NewActor(conn Conn) *Actor {
	return &Actor{
		ID:    uuid.NewString(),
		conn:  conn,
		inbox: NewInbox(),
	}
}

// Alive reports whether the actor's connection is still open.
func (a *Actor) Alive() bool {
	select {
	case <-a.conn.Done():
		return false
	default:
		return true
	}
}

// Done is closed when the actor's connection goes away.
func (a *Actor) Done() <-chan struct{} {
	return a.conn.Done()
}

// Send delivers text to the actor, skipping dead connections.
func (a *Actor) Send(text string) error {
	if !a.Alive() {
		return ErrNotConnected
	}
	return a.conn.Send(text)
}

// Enqueue hands an inbound command to the actor's table. It reports false
// when the table is not listening to this actor right now.
func (a *Actor) Enqueue(cmd string) bool {
	return a.inbox.Push(cmd)
}

// TableCode returns the code of the table the actor sits at, or "".
func (a *Actor) TableCode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.code
}

func (a *Actor) seat(code string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.code != "" {
		return false
	}
	a.code = code
	return true
}

func (a *Actor) release() {
	a.mu.Lock()
	a.code = ""
	a.mu.Unlock()
	a.inbox.Close()
	a.inbox.Clear()
}

func (a *Actor) resetHand() {
	a.hand = nil
	a.status = StatusActive
}
