package table

import "errors"

var (
	// ErrTableNotFound is returned when a JOIN names a code with no live table.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableFull is returned when a table already seats its maximum.
	ErrTableFull = errors.New("table full")
	// ErrTableClosed is returned when a table shut down between lookup and join.
	ErrTableClosed = errors.New("table closed")
	// ErrAlreadySeated is returned when an actor that already sits at a table
	// tries to create or join another one.
	ErrAlreadySeated = errors.New("actor already seated")
	// ErrNotConnected is returned when sending to an actor whose connection is gone.
	ErrNotConnected = errors.New("actor not connected")
)
