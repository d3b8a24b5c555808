package history

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

func TestNewStoreSeedsSystemTurn(t *testing.T) {
	s := NewStore("you are a bot", 0)

	turns := s.Snapshot()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Role != types.RoleSystem {
		t.Errorf("got role %q, want system", turns[0].Role)
	}
	if turns[0].Content != "you are a bot" {
		t.Errorf("unexpected system content: %q", turns[0].Content)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := NewStore("sys", 0)

	want := []types.Turn{{Role: types.RoleSystem, Content: "sys"}}
	for i := 0; i < 20; i++ {
		turn := ChatStimulus("alice", fmt.Sprintf("msg %d", i))
		s.Append(turn)
		want = append(want, turn)
	}

	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("history order mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore("sys", 0)
	s.Append(ChatStimulus("alice", "hi"))

	snap := s.Snapshot()
	snap[0].Content = "mutated"
	snap[1].Content = "mutated"

	fresh := s.Snapshot()
	if fresh[0].Content != "sys" || fresh[1].Content == "mutated" {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestMaxTurnsTrimsOldestKeepingSystem(t *testing.T) {
	s := NewStore("sys", 3)

	for i := 0; i < 10; i++ {
		s.Append(ChatStimulus("alice", fmt.Sprintf("msg %d", i)))
	}

	turns := s.Snapshot()
	if len(turns) != 4 { // system + 3
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Role != types.RoleSystem {
		t.Error("system turn was trimmed")
	}
	last := turns[len(turns)-1]
	if last.Content == "" || turns[1].Content == turns[2].Content {
		t.Error("unexpected trim result")
	}
	var p struct {
		Chat struct {
			Message string `json:"message"`
		} `json:"chat"`
	}
	if err := json.Unmarshal([]byte(last.Content), &p); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if p.Chat.Message != "msg 9" {
		t.Errorf("newest turn lost: got %q", p.Chat.Message)
	}
}

func TestMaxTurnsTrimNeverOrphansActionResults(t *testing.T) {
	s := NewStore("sys", 3)

	call := types.ToolCall{ID: "call_0", Name: "get_player_location"}
	s.Append(ChatStimulus("alice", "where am I"))
	s.Append(AgentTurn("", []types.ToolCall{call}))
	s.Append(ActionResult(call, `{"player_location":{"username":"alice"}}`))

	// Pushing the agent turn out of the window must take its result turn
	// with it; a tool-role turn with no preceding tool call is invalid
	// provider input.
	s.Append(ChatStimulus("alice", "hello?"))
	s.Append(AgentTurn("hi", nil))

	turns := s.Snapshot()
	if turns[0].Role != types.RoleSystem {
		t.Fatal("system turn was trimmed")
	}
	for i, turn := range turns {
		if turn.Role != types.RoleActionResult {
			continue
		}
		if i == 1 {
			t.Fatalf("orphaned action-result at window start: %+v", turn)
		}
		prev := turns[i-1]
		if prev.Role != types.RoleAgent || len(prev.Invocations) == 0 {
			t.Errorf("action-result at %d has no preceding tool call", i)
		}
	}
	last := turns[len(turns)-1]
	if last.Role != types.RoleAgent || last.Content != "hi" {
		t.Errorf("newest turn lost: %+v", last)
	}
}

func TestChatStimulusPayload(t *testing.T) {
	turn := ChatStimulus("alice", "come here")

	if turn.Role != types.RoleUser {
		t.Errorf("got role %q, want user", turn.Role)
	}
	var p struct {
		Chat struct {
			Username string `json:"username"`
			Message  string `json:"message"`
		} `json:"chat"`
	}
	if err := json.Unmarshal([]byte(turn.Content), &p); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if p.Chat.Username != "alice" || p.Chat.Message != "come here" {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestActionErrorPayloadDistinctFromResult(t *testing.T) {
	call := types.ToolCall{ID: "call_0", Name: "move"}

	errTurn := ActionError(call, "no_path", "no path to target location")
	if errTurn.Role != types.RoleActionResult {
		t.Errorf("got role %q, want action result", errTurn.Role)
	}
	if errTurn.CallID != "call_0" || errTurn.ToolName != "move" {
		t.Errorf("call identity not carried: %+v", errTurn)
	}

	var p struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(errTurn.Content), &p); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if p.Error.Code != "no_path" {
		t.Errorf("got code %q, want no_path", p.Error.Code)
	}

	okTurn := ActionResult(call, `{"moved_to":{"x":1,"y":2,"z":3}}`)
	if okTurn.Content == errTurn.Content {
		t.Error("success and failure payloads must be distinguishable")
	}
}
