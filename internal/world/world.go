// Package world defines the interface to the controlled agent's
// environment: movement, chat, entity queries, and the inbound chat
// stimulus stream.
//
// Implementations are external collaborators from the core's point of
// view. The bridge subpackage talks to the game sidecar over a socket;
// the sim subpackage is an in-memory world for tests and offline runs.
package world

import (
	"context"
	"errors"
)

// Position is an absolute coordinate in the world.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ChatEvent is an inbound chat message stimulus.
type ChatEvent struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// MoveResult resolves a movement request: the achieved coordinate on
// arrival, or an error (ErrNoPath, ErrMoveSuperseded, transport failure).
type MoveResult struct {
	Pos Position
	Err error
}

var (
	// ErrNoPath is reported when the world finds no route to the target.
	ErrNoPath = errors.New("no path to target location")

	// ErrMoveSuperseded resolves a pending move whose goal was replaced
	// by a newer MoveTo call before arrival.
	ErrMoveSuperseded = errors.New("move superseded by a new goal")
)

// World is the control surface the dispatch loop drives.
type World interface {
	// MoveTo requests movement to an absolute coordinate. The returned
	// channel resolves exactly once, with the achieved position or an
	// error. The motion-control target is a single mutable slot: at most
	// one move is outstanding, and issuing a new one supersedes the
	// previous goal, resolving its result with ErrMoveSuperseded so no
	// pending future is ever leaked.
	MoveTo(ctx context.Context, pos Position) <-chan MoveResult

	// SendChat sends a chat message. Fire-and-forget; the message does
	// not echo back on Events.
	SendChat(message string) error

	// Locate returns another entity's position. Absence is a valid
	// outcome (found=false), distinct from a transport error.
	Locate(ctx context.Context, username string) (pos Position, found bool, err error)

	// Events is the inbound chat stimulus stream. It excludes messages
	// authored by the controlled agent itself and is closed when the
	// world shuts down.
	Events() <-chan ChatEvent

	// Close releases the adapter and closes the event stream.
	Close() error
}
