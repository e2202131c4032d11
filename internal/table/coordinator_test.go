package table

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAwaitedActor(t *testing.T) (*Actor, *testConn) {
	t.Helper()
	conn := newTestConn("player", nil)
	t.Cleanup(conn.Close)
	a := NewActor(conn)
	a.inbox.Open()
	return a, conn
}

func TestAwaitResponseReturnsQueuedCommand(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(quartz.NewMock(t), 5*time.Second, testLogger())
	a, _ := newAwaitedActor(t)
	a.Enqueue(protocol.CmdHit)

	assert.Equal(t, protocol.CmdHit, c.AwaitResponse(context.Background(), a))
}

func TestAwaitResponseConsumesInOrder(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(quartz.NewMock(t), 5*time.Second, testLogger())
	a, _ := newAwaitedActor(t)
	a.Enqueue(protocol.CmdHit)
	a.Enqueue(protocol.CmdHit)
	a.Enqueue(protocol.CmdStand)

	ctx := context.Background()
	assert.Equal(t, protocol.CmdHit, c.AwaitResponse(ctx, a))
	assert.Equal(t, protocol.CmdHit, c.AwaitResponse(ctx, a))
	assert.Equal(t, protocol.CmdStand, c.AwaitResponse(ctx, a))
}

func TestAwaitResponseWaitsForLateCommand(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(quartz.NewReal(), 5*time.Second, testLogger())
	a, _ := newAwaitedActor(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		a.Enqueue(protocol.CmdYes)
	}()

	assert.Equal(t, protocol.CmdYes, c.AwaitResponse(context.Background(), a))
	assert.Zero(t, c.Timeouts())
}

func TestAwaitResponseDeadActorStands(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(quartz.NewMock(t), 5*time.Second, testLogger())
	a, conn := newAwaitedActor(t)
	a.Enqueue(protocol.CmdHit)
	conn.Close()

	assert.Equal(t, DefaultResponse, c.AwaitResponse(context.Background(), a))
	assert.Equal(t, uint64(1), c.Disconnects())
}

func TestAwaitResponseDisconnectWhileWaiting(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(quartz.NewReal(), 5*time.Second, testLogger())
	a, conn := newAwaitedActor(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		conn.Close()
	}()

	assert.Equal(t, DefaultResponse, c.AwaitResponse(context.Background(), a))
	assert.Equal(t, uint64(1), c.Disconnects())
	assert.Zero(t, c.Timeouts())
}

func TestAwaitResponseTimesOut(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	mClock := quartz.NewMock(t)
	c := NewCoordinator(mClock, 5*time.Second, testLogger())
	a, _ := newAwaitedActor(t)

	result := make(chan string, 1)
	go func() { result <- c.AwaitResponse(ctx, a) }()

	// Step in whole seconds so no single step overshoots the timer deadline.
	for range 60 {
		select {
		case got := <-result:
			assert.Equal(t, DefaultResponse, got)
			assert.Equal(t, uint64(1), c.Timeouts())
			return
		default:
		}
		mClock.Advance(time.Second).MustWait(ctx)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("await did not time out")
}

func TestAwaitResponseContextCancelled(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(quartz.NewMock(t), 5*time.Second, testLogger())
	a, _ := newAwaitedActor(t)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan string, 1)
	go func() { result <- c.AwaitResponse(ctx, a) }()
	cancel()

	select {
	case got := <-result:
		assert.Equal(t, DefaultResponse, got)
	case <-time.After(waitTimeout):
		t.Fatal("await ignored cancellation")
	}
	require.Zero(t, c.Timeouts())
}
