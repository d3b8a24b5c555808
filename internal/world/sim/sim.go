// Package sim implements an in-memory world adapter.
//
// It models just enough of the game to exercise the dispatch loop: named
// players with positions, movement with configurable latency, unreachable
// targets, and the single-outstanding-move supersession rule. Session
// tests and the offline `craftbot sim` console both run against it.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/world"
)

// Sim is an in-memory world.World implementation.
type Sim struct {
	mu        sync.Mutex
	agentName string
	agentPos  world.Position
	players   map[string]world.Position

	latency     time.Duration
	unreachable func(world.Position) bool

	pending *pendingMove

	events   chan world.ChatEvent
	outbound chan world.ChatEvent
	sent     []string
	closed   bool
}

type pendingMove struct {
	ch   chan world.MoveResult
	done chan struct{}
	once sync.Once
}

func (p *pendingMove) resolve(res world.MoveResult) {
	p.once.Do(func() {
		p.ch <- res
		close(p.done)
	})
}

// New creates a simulated world for the given agent.
func New(agentName string) *Sim {
	return &Sim{
		agentName: agentName,
		players:   make(map[string]world.Position),
		events:    make(chan world.ChatEvent, 16),
		outbound:  make(chan world.ChatEvent, 16),
	}
}

// SetLatency sets the simulated travel time for moves. Zero resolves moves
// almost immediately (still asynchronously).
func (s *Sim) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// SetUnreachable installs a predicate marking target positions that have
// no route to them.
func (s *Sim) SetUnreachable(f func(world.Position) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreachable = f
}

// AddPlayer places (or moves) a named player in the world.
func (s *Sim) AddPlayer(username string, pos world.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[username] = pos
}

// RemovePlayer removes a player from the world.
func (s *Sim) RemovePlayer(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, username)
}

// AgentPosition returns the agent's current position.
func (s *Sim) AgentPosition() world.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentPos
}

// Say injects an inbound chat stimulus, as if username typed message.
// Messages authored by the agent itself are dropped, mirroring the
// event-stream contract.
func (s *Sim) Say(username, message string) {
	if username == s.agentName {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- world.ChatEvent{Username: username, Message: message}:
	default:
		logging.WorldError("[sim] stimulus queue full, dropping chat from %s", username)
	}
}

// MoveTo implements world.World.
func (s *Sim) MoveTo(ctx context.Context, pos world.Position) <-chan world.MoveResult {
	ch := make(chan world.MoveResult, 1)

	s.mu.Lock()
	if s.pending != nil {
		s.pending.resolve(world.MoveResult{Err: world.ErrMoveSuperseded})
	}
	p := &pendingMove{ch: ch, done: make(chan struct{})}
	s.pending = p
	latency := s.latency
	noPath := s.unreachable != nil && s.unreachable(pos)
	s.mu.Unlock()

	logging.WorldDebug("[sim] move requested: (%v, %v, %v)", pos.X, pos.Y, pos.Z)

	go func() {
		timer := time.NewTimer(latency)
		defer timer.Stop()

		select {
		case <-p.done:
			return // superseded before arrival
		case <-ctx.Done():
			s.finish(p, world.MoveResult{Err: ctx.Err()})
			return
		case <-timer.C:
		}

		if noPath {
			s.finish(p, world.MoveResult{Err: world.ErrNoPath})
			return
		}

		s.mu.Lock()
		s.agentPos = pos
		s.mu.Unlock()
		s.finish(p, world.MoveResult{Pos: pos})
	}()

	return ch
}

func (s *Sim) finish(p *pendingMove, res world.MoveResult) {
	s.mu.Lock()
	if s.pending == p {
		s.pending = nil
	}
	s.mu.Unlock()
	p.resolve(res)
}

// SendChat implements world.World.
func (s *Sim) SendChat(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, message)
	if !s.closed {
		select {
		case s.outbound <- world.ChatEvent{Username: s.agentName, Message: message}:
		default: // nobody is watching the outbound feed
		}
	}
	return nil
}

// SentMessages returns everything the agent has said, in order.
func (s *Sim) SentMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

// Outbound exposes the agent's chat output as a feed, for consoles.
func (s *Sim) Outbound() <-chan world.ChatEvent {
	return s.outbound
}

// Locate implements world.World.
func (s *Sim) Locate(ctx context.Context, username string) (world.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.players[username]
	return pos, ok, nil
}

// Events implements world.World.
func (s *Sim) Events() <-chan world.ChatEvent {
	return s.events
}

// Close implements world.World. Any pending move resolves with
// ErrMoveSuperseded so no future is left hanging.
func (s *Sim) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		pending.resolve(world.MoveResult{Err: world.ErrMoveSuperseded})
	}
	close(s.events)
	close(s.outbound)
	return nil
}
