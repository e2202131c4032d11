package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lox/blackjack/internal/protocol"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://example.com", want: "wss://example.com/ws"},
		{in: "ws://example.com:9000/ws", want: "ws://example.com:9000/ws"},
		{in: "ws://example.com/custom", want: "ws://example.com/custom"},
		{in: "ftp://example.com", err: true},
		{in: "http://", err: true},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func startServer(t *testing.T) string {
	t.Helper()
	registry := table.NewRegistry(testLogger(), table.Config{
		MaxPlayers:      5,
		ResponseTimeout: 5 * time.Second,
	})
	srv := server.NewServer(testLogger(), registry)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return ts.URL
}

func TestAutoPlayerAgainstServer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := New(startServer(t), testLogger())
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	p := NewAutoPlayer(3, DefaultStandOn, testLogger())
	require.NoError(t, c.Send(protocol.CmdCreate))
	require.NoError(t, c.Run(ctx, p.Handle, nil))

	assert.Len(t, p.Results(), 3)
	assert.Len(t, p.Table(), 6)
	assert.Empty(t, p.Rejected())
}

func TestAutoPlayerUnknownTable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := New(startServer(t), testLogger())
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	p := NewAutoPlayer(1, DefaultStandOn, testLogger())
	require.NoError(t, c.Send("JOIN ZZZZZZ"))
	require.NoError(t, c.Run(ctx, p.Handle, nil))
	assert.Equal(t, protocol.TypeTableNotFound, p.Rejected())
}

func TestRunSendsTypedInput(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := New(startServer(t), testLogger())
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	var seen []string
	handle := func(line string) ([]string, bool) {
		seen = append(seen, line)
		return nil, line == protocol.TypeTableNotFound
	}
	require.NoError(t, c.Run(ctx, handle, strings.NewReader("\njoin nope\n")))
	assert.Equal(t, []string{protocol.TypeTableNotFound}, seen)
}

func TestSendWithoutConnection(t *testing.T) {
	t.Parallel()

	c := New("localhost:1", testLogger())
	assert.Error(t, c.Send("CREATE"))
	assert.NoError(t, c.Close())
}
