package server

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/table"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Protocol lines are short; anything longer is abuse.
	maxMessageSize = 512

	sendBufferSize = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection is one player's WebSocket. It carries the player's actor and
// satisfies table.Conn.
type Connection struct {
	conn     *websocket.Conn
	send     chan string
	done     chan struct{}
	once     sync.Once
	actor    *table.Actor
	registry *table.Registry
	logger   zerolog.Logger
}

// NewConnection wraps ws and creates the actor that plays through it.
func NewConnection(ws *websocket.Conn, registry *table.Registry, logger zerolog.Logger) *Connection {
	c := &Connection{
		conn:     ws,
		send:     make(chan string, sendBufferSize),
		done:     make(chan struct{}),
		registry: registry,
	}
	c.actor = table.NewActor(c)
	c.logger = logger.With().Str("actor", c.actor.ID).Logger()
	return c
}

// Send queues one protocol line for the player.
func (c *Connection) Send(text string) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- text:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		c.Close()
		return ErrSendBufferFull
	}
}

// Done is closed once the connection is gone.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close tears the socket down. It is safe to call more than once.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump feeds inbound lines to the registry until the socket fails, then
// takes the actor off its table.
func (c *Connection) readPump() {
	defer func() {
		c.Close()
		c.registry.Leave(c.actor)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("Unexpected WebSocket close error")
			}
			return
		}

		for _, line := range strings.Split(string(message), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				c.logger.Debug().Str("line", line).Msg("Received")
				c.registry.Handle(c.actor, line)
			}
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case text := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
