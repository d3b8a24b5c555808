package history

import (
	"encoding/json"

	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// Stimuli and results enter the context as small JSON payloads rather than
// prose, so the model sees structured, re-parseable facts.

type chatPayload struct {
	Chat struct {
		Username string `json:"username"`
		Message  string `json:"message"`
	} `json:"chat"`
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ChatStimulus builds the user turn for an inbound chat event.
func ChatStimulus(username, message string) types.Turn {
	var p chatPayload
	p.Chat.Username = username
	p.Chat.Message = message
	return types.Turn{
		Role:    types.RoleUser,
		Content: mustJSON(p),
	}
}

// AgentTurn builds the agent turn for a reasoning response: the reply text
// (possibly empty) plus the requested invocations.
func AgentTurn(text string, calls []types.ToolCall) types.Turn {
	return types.Turn{
		Role:        types.RoleAgent,
		Content:     text,
		Invocations: calls,
	}
}

// ActionResult builds the action-result turn for a completed invocation.
// payload must already be a JSON document.
func ActionResult(call types.ToolCall, payload string) types.Turn {
	return types.Turn{
		Role:     types.RoleActionResult,
		Content:  payload,
		CallID:   call.ID,
		ToolName: call.Name,
	}
}

// ActionError builds the action-result turn for a failed invocation.
// Failures are surfaced into the context, never thrown out of the loop,
// so the next reasoning round can react to them.
func ActionError(call types.ToolCall, code, message string) types.Turn {
	var p errorPayload
	p.Error.Code = code
	p.Error.Message = message
	return ActionResult(call, mustJSON(p))
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// All payload types here marshal unconditionally.
		panic(err)
	}
	return string(data)
}
