// Package client speaks the blackjack line protocol to a server over a
// WebSocket, either for a human at a terminal or as an automatic player.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const writeWait = 10 * time.Second

// LineHandler receives every line from the server. It returns the lines to
// send back and whether the session is over.
type LineHandler func(line string) (replies []string, done bool)

// Client is a connection to a blackjack server.
type Client struct {
	serverURL string
	logger    zerolog.Logger

	mu   sync.Mutex // serialises writes
	conn *websocket.Conn
}

// New creates a client for serverURL. Accepted forms include
// "localhost:8080", "http://host:8080" and "ws://host:8080/ws".
func New(serverURL string, logger zerolog.Logger) *Client {
	return &Client{
		serverURL: serverURL,
		logger:    logger.With().Str("component", "client").Logger(),
	}
}

// NormalizeURL turns a server address into the WebSocket URL of its /ws
// endpoint.
func NormalizeURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Connect dials the server.
func (c *Client) Connect(ctx context.Context) error {
	u, err := NormalizeURL(c.serverURL)
	if err != nil {
		return err
	}
	c.logger.Info().Str("url", u).Msg("Connecting to server")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Send writes one protocol line.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	c.logger.Debug().Str("line", line).Msg("Sent")
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Run feeds server lines to handle until it reports done, the server hangs
// up or ctx is cancelled. If input is non-nil, each line read from it is sent
// to the server as typed; input running dry does not end the session.
func (c *Client) Run(ctx context.Context, handle LineHandler, input io.Reader) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		// Unblocks ReadMessage.
		_ = conn.SetReadDeadline(time.Now())
		return nil
	})

	g.Go(func() error {
		defer cancel()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return fmt.Errorf("read: %w", err)
			}
			line := string(msg)
			c.logger.Debug().Str("line", line).Msg("Received")

			replies, done := handle(line)
			for _, reply := range replies {
				if err := c.Send(reply); err != nil {
					return err
				}
			}
			if done {
				return nil
			}
		}
	})

	if input != nil {
		lines := make(chan string)
		// The scanner cannot be interrupted, so it lives outside the group.
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(input)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if line = strings.TrimSpace(line); line == "" {
						continue
					}
					if err := c.Send(line); err != nil {
						return err
					}
				}
			}
		})
	}

	return g.Wait()
}
