// Package history implements the append-only conversation store.
//
// The store owns the ordered turn sequence shared across reasoning rounds.
// The dispatch loop is the single writer; append order is exactly the causal
// order of events as the loop experienced them, and exactly the order the
// reasoning endpoint sees on every call.
package history

import (
	"sync"

	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// Store is the ordered, append-only conversation history for one session.
type Store struct {
	mu       sync.RWMutex
	turns    []types.Turn
	maxTurns int
}

// NewStore creates a store seeded with the system prompt turn.
//
// maxTurns, when positive, caps the history length: the oldest non-system
// turns are trimmed once the cap is exceeded. 0 means unbounded.
func NewStore(systemPrompt string, maxTurns int) *Store {
	s := &Store{maxTurns: maxTurns}
	s.turns = append(s.turns, types.Turn{
		Role:    types.RoleSystem,
		Content: systemPrompt,
	})
	return s
}

// Append adds a turn, preserving order. Existing turns are never mutated
// or removed (except trimming of the oldest turns under maxTurns).
func (s *Store) Append(turn types.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)

	if s.maxTurns > 0 && len(s.turns) > s.maxTurns+1 {
		// Keep the system turn, drop the oldest of the rest.
		excess := len(s.turns) - (s.maxTurns + 1)
		keep := s.turns[1+excess:]
		// The window must not open on an action-result whose agent turn
		// was just evicted: providers reject a tool-result message with
		// no preceding tool call.
		for len(keep) > 0 && keep[0].Role == types.RoleActionResult {
			keep = keep[1:]
		}
		s.turns = append(s.turns[:1], keep...)
	}
}

// Snapshot returns a copy of the full ordered sequence, consistent at
// call time, for transmission to the reasoning endpoint.
func (s *Store) Snapshot() []types.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns, including the system turn.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}
