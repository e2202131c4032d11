package table

import "sync"

// maxInbox bounds how many unread commands an actor may queue up.
const maxInbox = 32

// Inbox is the FIFO of commands an actor has sent but the table has not yet
// consumed. The connection's read loop is the only producer and the table's
// round loop the only consumer.
//
// A closed inbox silently drops pushes. Tables close the inbox of actors who
// are waiting for the next round or who are locked out of a replay poll.
type Inbox struct {
	mu    sync.Mutex
	items []string
	open  bool
	ready chan struct{}
}

// NewInbox returns an empty, closed inbox.
func NewInbox() *Inbox {
	return &Inbox{ready: make(chan struct{}, 1)}
}

// Push appends cmd and reports whether it was accepted.
func (in *Inbox) Push(cmd string) bool {
	in.mu.Lock()
	if !in.open || len(in.items) >= maxInbox {
		in.mu.Unlock()
		return false
	}
	in.items = append(in.items, cmd)
	in.mu.Unlock()

	select {
	case in.ready <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest command.
func (in *Inbox) Pop() (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.items) == 0 {
		return "", false
	}
	cmd := in.items[0]
	in.items = in.items[1:]
	return cmd, true
}

// Ready fires after a push. A wake-up may be stale, so consumers must
// re-check with Pop.
func (in *Inbox) Ready() <-chan struct{} {
	return in.ready
}

// Len returns the number of queued commands.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.items)
}

// Open starts accepting pushes.
func (in *Inbox) Open() {
	in.mu.Lock()
	in.open = true
	in.mu.Unlock()
}

// Close stops accepting pushes. Queued commands stay until cleared.
func (in *Inbox) Close() {
	in.mu.Lock()
	in.open = false
	in.mu.Unlock()
}

// Clear drops every queued command.
func (in *Inbox) Clear() {
	in.mu.Lock()
	in.items = nil
	in.mu.Unlock()
}
