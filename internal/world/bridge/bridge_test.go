package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mikedegeofroy/minecraft-bot/internal/world"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubSidecar plays the node process on the far end of a pipe. Each
// inbound request is recorded and answered by the handler; a nil reply
// leaves the request unanswered.
type stubSidecar struct {
	conn    net.Conn
	handler func(req request) *response

	mu       sync.Mutex
	requests []request
	wg       sync.WaitGroup
}

func newStubSidecar(conn net.Conn, handler func(req request) *response) *stubSidecar {
	s := &stubSidecar{conn: conn, handler: handler}
	s.wg.Add(1)
	go s.serve()
	return s
}

func (s *stubSidecar) serve() {
	defer s.wg.Done()
	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()
		if s.handler == nil {
			continue
		}
		if resp := s.handler(req); resp != nil {
			s.write(*resp)
		}
	}
}

func (s *stubSidecar) write(resp response) {
	data, _ := json.Marshal(resp)
	s.conn.Write(append(data, '\n'))
}

func (s *stubSidecar) recorded() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *stubSidecar) close() {
	s.conn.Close()
	s.wg.Wait()
}

func newTestAdapter(t *testing.T, handler func(req request) *response) (*Adapter, *stubSidecar) {
	t.Helper()
	client, server := net.Pipe()
	sidecar := newStubSidecar(server, handler)
	adapter := New(client)
	t.Cleanup(func() {
		adapter.Close()
		sidecar.close()
	})
	return adapter, sidecar
}

func TestLocateFound(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(req request) *response {
		if req.Type != typeLocate || req.Username != "alice" {
			t.Errorf("Unexpected request: %+v", req)
		}
		return &response{
			ID: req.ID, Type: typeResult, OK: true,
			Found: true, Position: &world.Position{X: 10, Y: 64, Z: -5},
		}
	})

	pos, found, err := adapter.Locate(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if !found {
		t.Fatal("Expected player to be found")
	}
	if pos.X != 10 || pos.Y != 64 || pos.Z != -5 {
		t.Errorf("Unexpected position: %+v", pos)
	}
}

func TestLocateAbsentIsNotAnError(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(req request) *response {
		return &response{ID: req.ID, Type: typeResult, OK: true, Found: false}
	})

	_, found, err := adapter.Locate(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if found {
		t.Error("Expected absent player")
	}
}

func TestLocateContextCancel(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(req request) *response {
		return nil // never answer
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := adapter.Locate(ctx, "alice")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
}

func TestMoveToResolvesOnArrival(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(req request) *response {
		if req.Type != typeMoveTo {
			return nil
		}
		return &response{ID: req.ID, Type: typeResult, OK: true, Position: req.Position}
	})

	res := <-adapter.MoveTo(context.Background(), world.Position{X: 1, Y: 64, Z: 2})
	if res.Err != nil {
		t.Fatalf("Move failed: %v", res.Err)
	}
	if res.Pos.X != 1 || res.Pos.Z != 2 {
		t.Errorf("Unexpected arrival position: %+v", res.Pos)
	}
}

func TestMoveToNoPath(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(req request) *response {
		return &response{ID: req.ID, Type: typeResult, OK: false, Error: "no_path"}
	})

	res := <-adapter.MoveTo(context.Background(), world.Position{X: 1000, Y: 64, Z: 1000})
	if !errors.Is(res.Err, world.ErrNoPath) {
		t.Fatalf("Expected ErrNoPath, got %v", res.Err)
	}
}

func TestMoveSupersession(t *testing.T) {
	var mu sync.Mutex
	var moveIDs []string
	adapter, sidecar := newTestAdapter(t, func(req request) *response {
		if req.Type != typeMoveTo {
			return nil
		}
		mu.Lock()
		moveIDs = append(moveIDs, req.ID)
		second := len(moveIDs) == 2
		mu.Unlock()
		if !second {
			return nil // first goal stays in flight until replaced
		}
		return &response{ID: req.ID, Type: typeResult, OK: true, Position: req.Position}
	})

	first := adapter.MoveTo(context.Background(), world.Position{X: 1, Y: 64, Z: 1})
	second := adapter.MoveTo(context.Background(), world.Position{X: 2, Y: 64, Z: 2})

	res := <-first
	if !errors.Is(res.Err, world.ErrMoveSuperseded) {
		t.Fatalf("Expected first move superseded, got %v", res.Err)
	}

	res = <-second
	if res.Err != nil {
		t.Fatalf("Second move failed: %v", res.Err)
	}
	if res.Pos.X != 2 {
		t.Errorf("Unexpected arrival position: %+v", res.Pos)
	}

	// A late reply to the first goal must be ignored, not double-resolve.
	mu.Lock()
	staleID := moveIDs[0]
	mu.Unlock()
	sidecar.write(response{ID: staleID, Type: typeResult, OK: true})

	select {
	case extra, ok := <-first:
		if ok {
			t.Fatalf("First future resolved twice: %+v", extra)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChatEventsFlow(t *testing.T) {
	adapter, sidecar := newTestAdapter(t, nil)

	sidecar.write(response{Type: typeEvent, Username: "alice", Message: "hi bot"})

	select {
	case ev := <-adapter.Events():
		if ev.Username != "alice" || ev.Message != "hi bot" {
			t.Errorf("Unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for chat event")
	}
}

func TestSendChatWritesLine(t *testing.T) {
	adapter, sidecar := newTestAdapter(t, nil)

	if err := adapter.SendChat("hello world"); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		reqs := sidecar.recorded()
		if len(reqs) > 0 {
			if reqs[0].Type != typeChat || reqs[0].Message != "hello world" {
				t.Errorf("Unexpected request: %+v", reqs[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Sidecar never received the chat request")
}

func TestCloseResolvesPendingMove(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(req request) *response {
		return nil // goal never completes
	})

	future := adapter.MoveTo(context.Background(), world.Position{X: 1, Y: 64, Z: 1})
	adapter.Close()

	select {
	case res := <-future:
		if res.Err == nil {
			t.Fatal("Expected an error on shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("Pending move never resolved after Close")
	}
}

func TestEventsCloseWhenConnectionDrops(t *testing.T) {
	adapter, sidecar := newTestAdapter(t, nil)

	sidecar.close()

	select {
	case _, ok := <-adapter.Events():
		if ok {
			t.Fatal("Expected event stream to close, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("Event stream never closed after connection drop")
	}
}
