package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mikedegeofroy/minecraft-bot/internal/types"
	"github.com/mikedegeofroy/minecraft-bot/internal/world"
	"github.com/mikedegeofroy/minecraft-bot/internal/world/sim"
)

func worldRegistry(t *testing.T) (*Registry, *sim.Sim) {
	t.Helper()
	w := sim.New("bot")
	t.Cleanup(func() { _ = w.Close() })

	reg := NewRegistry()
	if err := RegisterWorldTools(reg, w); err != nil {
		t.Fatalf("RegisterWorldTools: %v", err)
	}
	return reg, w
}

func TestWorldToolSurface(t *testing.T) {
	reg, _ := worldRegistry(t)

	want := []string{"chat", "get_player_location", "idle", "move"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestIdleResolvesSynchronously(t *testing.T) {
	reg, _ := worldRegistry(t)

	out, err := reg.Execute(context.Background(), types.ToolCall{Name: "idle", Input: map[string]any{}})
	if err != nil {
		t.Fatalf("idle failed: %v", err)
	}
	if out.Future != nil {
		t.Error("idle must be synchronous")
	}
	if out.Feedback {
		t.Error("idle must not trigger a follow-up reasoning round")
	}
}

func TestChatSendsAndStaysQuiet(t *testing.T) {
	reg, w := worldRegistry(t)

	out, err := reg.Execute(context.Background(), types.ToolCall{
		Name:  "chat",
		Input: map[string]any{"message": "hello world"},
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if out.Future != nil || out.Feedback {
		t.Error("chat must be synchronous and must not feed back")
	}

	sent := w.SentMessages()
	if len(sent) != 1 || sent[0] != "hello world" {
		t.Errorf("sent: %v", sent)
	}
}

func TestMoveResolvesAsynchronouslyWithArrival(t *testing.T) {
	reg, _ := worldRegistry(t)

	out, err := reg.Execute(context.Background(), types.ToolCall{
		Name:  "move",
		Input: map[string]any{"x": 10.0, "y": 64.0, "z": -3.0},
	})
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if out.Future == nil {
		t.Fatal("move must be asynchronous")
	}

	res := <-out.Future
	if res.Err != nil {
		t.Fatalf("move future failed: %v", res.Err)
	}
	var p struct {
		MovedTo world.Position `json:"moved_to"`
	}
	if err := json.Unmarshal([]byte(res.Payload), &p); err != nil {
		t.Fatalf("bad payload %q: %v", res.Payload, err)
	}
	if p.MovedTo != (world.Position{X: 10, Y: 64, Z: -3}) {
		t.Errorf("moved to %+v", p.MovedTo)
	}
}

func TestMoveNoPathResolvesWithError(t *testing.T) {
	reg, w := worldRegistry(t)
	w.SetUnreachable(func(world.Position) bool { return true })

	out, err := reg.Execute(context.Background(), types.ToolCall{
		Name:  "move",
		Input: map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
	})
	if err != nil {
		t.Fatalf("move dispatch failed: %v", err)
	}

	res := <-out.Future
	if !errors.Is(res.Err, world.ErrNoPath) {
		t.Fatalf("got %v, want ErrNoPath", res.Err)
	}
}

func TestLocateFoundAndNotFound(t *testing.T) {
	reg, w := worldRegistry(t)
	w.AddPlayer("alice", world.Position{X: 10, Y: 64, Z: -3})

	out, err := reg.Execute(context.Background(), types.ToolCall{
		Name:  "get_player_location",
		Input: map[string]any{"username": "alice"},
	})
	if err != nil {
		t.Fatalf("locate failed: %v", err)
	}
	if !out.Feedback {
		t.Error("query results must feed back into the context")
	}
	var p struct {
		PlayerLocation struct {
			Username string          `json:"username"`
			Location *world.Position `json:"location"`
			Status   string          `json:"status"`
		} `json:"player_location"`
	}
	if err := json.Unmarshal([]byte(out.Payload), &p); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if p.PlayerLocation.Location == nil || p.PlayerLocation.Location.X != 10 {
		t.Errorf("unexpected location payload: %s", out.Payload)
	}

	out, err = reg.Execute(context.Background(), types.ToolCall{
		Name:  "get_player_location",
		Input: map[string]any{"username": "ghost"},
	})
	if err != nil {
		t.Fatalf("locate ghost must not error: %v", err)
	}
	var q struct {
		PlayerLocation struct {
			Username string          `json:"username"`
			Location *world.Position `json:"location"`
			Status   string          `json:"status"`
		} `json:"player_location"`
	}
	if err := json.Unmarshal([]byte(out.Payload), &q); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if q.PlayerLocation.Status != "not_found" || q.PlayerLocation.Location != nil {
		t.Errorf("unexpected not_found payload: %s", out.Payload)
	}
}
