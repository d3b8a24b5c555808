// Package session implements the dispatch loop at the core of the agent.
//
// The loop turns inbound chat stimuli into reasoning rounds and routes the
// returned tool invocations to their handlers, feeding every outcome back
// into the conversation history. Multi-step behavior ("find the player,
// then go to them") emerges from chaining single-step rounds: an
// asynchronous action's result re-enters the history and triggers the next
// round.
//
// The loop is a single goroutine and the sole writer of the history store,
// so append order always matches the causal order of events. Stimuli that
// arrive while a cycle is in flight queue on the world's event channel and
// are processed strictly afterwards.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikedegeofroy/minecraft-bot/internal/history"
	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/tools"
	"github.com/mikedegeofroy/minecraft-bot/internal/types"
	"github.com/mikedegeofroy/minecraft-bot/internal/world"
)

// Config bounds the dispatch loop.
type Config struct {
	// MaxRounds caps reasoning rounds per stimulus chain.
	MaxRounds int

	// MaxToolCalls caps invocations dispatched from a single round.
	MaxToolCalls int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRounds:    8,
		MaxToolCalls: 16,
	}
}

// Session drives one agent: it owns the history store and wires the
// reasoning endpoint, the action registry, and the world adapter together.
type Session struct {
	agentName string
	history   *history.Store
	registry  *tools.Registry
	llm       types.LLMClient
	world     world.World
	config    Config
}

// New creates a session. The history store passed in must not be written
// to by anyone else; the session is its single writer.
func New(agentName string, hist *history.Store, registry *tools.Registry, llm types.LLMClient, w world.World, cfg Config) *Session {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultConfig().MaxRounds
	}
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = DefaultConfig().MaxToolCalls
	}
	return &Session{
		agentName: agentName,
		history:   hist,
		registry:  registry,
		llm:       llm,
		world:     w,
		config:    cfg,
	}
}

// History exposes the conversation store for read-only observation
// (consoles, tests). Writes remain exclusive to the session.
func (s *Session) History() *history.Store {
	return s.history
}

// Run processes stimuli until the context is cancelled or the world's
// event stream closes. One stimulus is handled to completion before the
// next is taken, preserving the ordered-append invariant.
func (s *Session) Run(ctx context.Context) error {
	events := s.world.Events()
	logging.Session("Session running as %q with %d tools", s.agentName, s.registry.Count())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				logging.Session("Event stream closed, session ending")
				return nil
			}
			if ev.Username == s.agentName {
				continue // never react to our own chat
			}
			logging.Session("Received message from %s: %s", ev.Username, ev.Message)
			s.handleStimulus(ctx, history.ChatStimulus(ev.Username, ev.Message))
		}
	}
}

// handleStimulus appends the stimulus turn and runs reasoning rounds
// until a round produces no feedback, the round cap is hit, or the
// reasoning endpoint fails (which aborts only this cycle).
func (s *Session) handleStimulus(ctx context.Context, stimulus types.Turn) {
	s.history.Append(stimulus)

	for round := 0; round < s.config.MaxRounds; round++ {
		resp, err := s.llm.ChatWithTools(ctx, s.history.Snapshot(), s.registry.Definitions())
		if err != nil {
			logging.SessionError("Inference failed, aborting cycle: %v", err)
			return
		}

		s.history.Append(history.AgentTurn(resp.Text, resp.ToolCalls))
		if resp.Text != "" {
			logging.SessionDebug("Agent reply: %s", resp.Text)
		}

		if len(resp.ToolCalls) == 0 {
			return // nothing to do, back to idle
		}

		if !s.dispatch(ctx, resp.ToolCalls) {
			return
		}
		// At least one outcome fed back into the history; run another
		// round so the agent can observe it.
	}

	logging.SessionWarn("Round cap (%d) reached, abandoning chain", s.config.MaxRounds)
}

// dispatch executes the round's invocations sequentially, in the order
// returned, appending each result turn before the next invocation runs so
// history order always matches causal order. Returns true if any outcome
// warrants another reasoning round.
func (s *Session) dispatch(ctx context.Context, calls []types.ToolCall) bool {
	feedback := false

	for i, call := range calls {
		if i >= s.config.MaxToolCalls {
			logging.SessionWarn("Max tool calls reached: %d", s.config.MaxToolCalls)
			break
		}
		if call.ID == "" {
			call.ID = fmt.Sprintf("call_%d", i)
		}

		logging.Session("Dispatching %s %v", call.Name, call.Input)

		outcome, err := s.registry.Execute(ctx, call)
		if err != nil {
			// Registry misses and argument mismatches are recoverable:
			// surface them into the context so the agent can self-correct.
			logging.SessionWarn("Tool %s failed: %v", call.Name, err)
			s.history.Append(history.ActionError(call, errorCode(err), err.Error()))
			feedback = true
			continue
		}

		if outcome.Future != nil {
			if !s.awaitAsync(ctx, call, outcome.Future) {
				return false
			}
			feedback = true
			continue
		}

		s.history.Append(history.ActionResult(call, outcome.Payload))
		if outcome.Feedback {
			feedback = true
		}
	}

	return feedback
}

// awaitAsync blocks this cycle until the action's future resolves, then
// appends the result turn. Interleaved stimuli keep queueing on the event
// channel meanwhile. Returns false only when the session is shutting down.
func (s *Session) awaitAsync(ctx context.Context, call types.ToolCall, future <-chan tools.Async) bool {
	select {
	case <-ctx.Done():
		return false
	case res := <-future:
		if res.Err != nil {
			logging.SessionWarn("Async action %s failed: %v", call.Name, res.Err)
			s.history.Append(history.ActionError(call, errorCode(res.Err), res.Err.Error()))
		} else {
			s.history.Append(history.ActionResult(call, res.Payload))
		}
		return true
	}
}

// errorCode maps failures to the stable codes surfaced in result turns.
func errorCode(err error) string {
	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		return "unknown_action"
	case errors.Is(err, tools.ErrMissingRequiredArg), errors.Is(err, tools.ErrInvalidArgType):
		return "invalid_arguments"
	case errors.Is(err, world.ErrNoPath):
		return "no_path"
	case errors.Is(err, world.ErrMoveSuperseded):
		return "superseded"
	default:
		return "execution_failed"
	}
}
