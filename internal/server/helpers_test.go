package server

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/table"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testLogger creates a logger that discards output for tests
func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

// testClient is a raw protocol client over a real WebSocket.
type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func newTestServer(t *testing.T, cfg table.Config, opts ...table.Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]table.Option{table.WithRand(randutil.New(7))}, opts...)
	registry := table.NewRegistry(testLogger(), cfg, opts...)
	srv := NewServer(testLogger(), registry)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(line)))
}

func (c *testClient) read() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	return string(msg)
}

// readUntil reads lines until one starts with prefix and returns it.
func (c *testClient) readUntil(prefix string) string {
	c.t.Helper()
	for range 200 {
		if line := c.read(); strings.HasPrefix(line, prefix) {
			return line
		}
	}
	c.t.Fatalf("never received %q", prefix)
	return ""
}
