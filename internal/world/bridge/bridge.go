// Package bridge implements world.World over a socket to the game
// sidecar: the node process that owns the actual mineflayer connection
// and speaks a newline-delimited JSON protocol.
//
// Requests carry a UUID so responses can arrive out of order; the
// sidecar pushes chat events on the same connection, interleaved with
// responses. Movement keeps the single-goal rule locally: issuing a new
// move resolves the previous future with ErrMoveSuperseded before the
// sidecar even answers, because the sidecar's pathfinder only ever has
// one goal.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/world"
)

// Message types on the wire.
const (
	typeMoveTo = "move_to"
	typeChat   = "chat"
	typeLocate = "locate"
	typeEvent  = "chat_event"
	typeResult = "result"
)

type request struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type"`
	Username string          `json:"username,omitempty"`
	Message  string          `json:"message,omitempty"`
	Position *world.Position `json:"position,omitempty"`
}

type response struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type"`
	OK       bool            `json:"ok"`
	Error    string          `json:"error,omitempty"`
	Username string          `json:"username,omitempty"`
	Message  string          `json:"message,omitempty"`
	Found    bool            `json:"found,omitempty"`
	Position *world.Position `json:"position,omitempty"`
}

// Adapter is a world.World backed by a sidecar connection.
type Adapter struct {
	mu      sync.Mutex
	conn    net.Conn
	pending map[string]chan response
	move    *pendingMove
	closed  bool

	events chan world.ChatEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

type pendingMove struct {
	id   string
	ch   chan world.MoveResult
	once sync.Once
}

func (p *pendingMove) resolve(res world.MoveResult) {
	p.once.Do(func() { p.ch <- res })
}

// Dial connects to the sidecar and starts the reader loop.
func Dial(addr string, timeout time.Duration) (*Adapter, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial sidecar at %s: %w", addr, err)
	}
	logging.World("Connected to world sidecar at %s", addr)
	return New(conn), nil
}

// New wraps an established sidecar connection.
func New(conn net.Conn) *Adapter {
	a := &Adapter{
		conn:    conn,
		pending: make(map[string]chan response),
		events:  make(chan world.ChatEvent, 16),
		done:    make(chan struct{}),
	}

	a.wg.Add(1)
	go a.readLoop()

	return a
}

// readLoop reads newline-delimited JSON messages and dispatches them:
// responses to their waiting callers by ID, chat events to the stimulus
// stream. Runs until the connection drops or Close is called.
func (a *Adapter) readLoop() {
	defer a.wg.Done()
	defer a.teardown()

	scanner := bufio.NewScanner(a.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg response
		if err := json.Unmarshal(line, &msg); err != nil {
			logging.WorldError("Failed to parse sidecar message: %v", err)
			continue
		}

		switch msg.Type {
		case typeEvent:
			select {
			case a.events <- world.ChatEvent{Username: msg.Username, Message: msg.Message}:
			default:
				logging.WorldError("Stimulus queue full, dropping chat from %s", msg.Username)
			}

		default:
			if msg.ID == "" {
				logging.WorldDebug("Ignoring sidecar message without id: %s", string(line))
				continue
			}
			a.mu.Lock()
			ch, ok := a.pending[msg.ID]
			if ok {
				delete(a.pending, msg.ID)
			}
			a.mu.Unlock()
			if !ok {
				// Stale responses are normal for superseded moves.
				logging.WorldDebug("Response for unknown or superseded request %s", msg.ID)
				continue
			}
			ch <- msg
		}
	}

	if err := scanner.Err(); err != nil {
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if !closed {
			logging.WorldError("Sidecar connection lost: %v", err)
		}
	}
}

// teardown fails everything still in flight and closes the event stream.
func (a *Adapter) teardown() {
	a.mu.Lock()
	a.closed = true
	pending := a.pending
	a.pending = make(map[string]chan response)
	move := a.move
	a.move = nil
	a.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	if move != nil {
		move.resolve(world.MoveResult{Err: fmt.Errorf("sidecar connection closed")})
	}
	a.conn.Close()
	close(a.events)
}

// send marshals the request and writes it as one line. The write happens
// under the adapter lock so concurrent requests never interleave bytes.
func (a *Adapter) send(req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("sidecar connection closed")
	}
	if _, err := a.conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to sidecar: %w", err)
	}
	return nil
}

// call sends a correlated request and waits for its response.
func (a *Adapter) call(ctx context.Context, req request) (*response, error) {
	req.ID = uuid.NewString()
	ch := make(chan response, 1)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, fmt.Errorf("sidecar connection closed")
	}
	a.pending[req.ID] = ch
	a.mu.Unlock()

	if err := a.send(req); err != nil {
		a.mu.Lock()
		delete(a.pending, req.ID)
		a.mu.Unlock()
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("sidecar connection closed")
		}
		return &resp, nil
	case <-ctx.Done():
		a.mu.Lock()
		delete(a.pending, req.ID)
		a.mu.Unlock()
		return nil, ctx.Err()
	}
}

// MoveTo implements world.World. The returned channel resolves exactly
// once. A newer MoveTo supersedes this one immediately.
func (a *Adapter) MoveTo(ctx context.Context, pos world.Position) <-chan world.MoveResult {
	ch := make(chan world.MoveResult, 1)
	p := &pendingMove{id: uuid.NewString(), ch: ch}
	respCh := make(chan response, 1)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		p.resolve(world.MoveResult{Err: fmt.Errorf("sidecar connection closed")})
		return ch
	}
	if a.move != nil {
		// The sidecar's pathfinder goal is about to be replaced; the old
		// future must not be left pending.
		delete(a.pending, a.move.id)
		a.move.resolve(world.MoveResult{Err: world.ErrMoveSuperseded})
	}
	a.move = p
	a.pending[p.id] = respCh
	a.mu.Unlock()

	logging.WorldDebug("Move requested: (%v, %v, %v)", pos.X, pos.Y, pos.Z)

	target := pos
	if err := a.send(request{ID: p.id, Type: typeMoveTo, Position: &target}); err != nil {
		a.clearMove(p)
		p.resolve(world.MoveResult{Err: err})
		return ch
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case <-a.done:
			// teardown resolves the move
		case <-ctx.Done():
			a.clearMove(p)
			p.resolve(world.MoveResult{Err: ctx.Err()})
		case resp, ok := <-respCh:
			a.clearMove(p)
			if !ok {
				p.resolve(world.MoveResult{Err: fmt.Errorf("sidecar connection closed")})
				return
			}
			p.resolve(moveResult(resp))
		}
	}()

	return ch
}

// clearMove drops the move's bookkeeping if it is still current.
func (a *Adapter) clearMove(p *pendingMove) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, p.id)
	if a.move == p {
		a.move = nil
	}
}

// moveResult maps a sidecar move response to the adapter contract.
func moveResult(resp response) world.MoveResult {
	if !resp.OK {
		switch resp.Error {
		case "no_path":
			return world.MoveResult{Err: world.ErrNoPath}
		case "superseded":
			return world.MoveResult{Err: world.ErrMoveSuperseded}
		default:
			return world.MoveResult{Err: fmt.Errorf("move failed: %s", resp.Error)}
		}
	}
	res := world.MoveResult{}
	if resp.Position != nil {
		res.Pos = *resp.Position
	}
	return res
}

// SendChat implements world.World. Fire-and-forget; the sidecar does not
// acknowledge chat.
func (a *Adapter) SendChat(message string) error {
	return a.send(request{Type: typeChat, Message: message})
}

// Locate implements world.World.
func (a *Adapter) Locate(ctx context.Context, username string) (world.Position, bool, error) {
	resp, err := a.call(ctx, request{Type: typeLocate, Username: username})
	if err != nil {
		return world.Position{}, false, err
	}
	if !resp.OK {
		return world.Position{}, false, fmt.Errorf("locate failed: %s", resp.Error)
	}
	if !resp.Found || resp.Position == nil {
		return world.Position{}, false, nil
	}
	return *resp.Position, true, nil
}

// Events implements world.World.
func (a *Adapter) Events() <-chan world.ChatEvent {
	return a.events
}

// Close implements world.World. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.done)
	err := a.conn.Close()
	a.wg.Wait()
	return err
}

var _ world.World = (*Adapter)(nil)
