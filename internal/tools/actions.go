package tools

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/mikedegeofroy/minecraft-bot/internal/world"
)

// The in-game action set. Registration is the single source of truth for
// the tool surface: the schema the model sees comes from these
// definitions via Registry.Definitions.

const okPayload = `{"status":"ok"}`

type movedToPayload struct {
	MovedTo world.Position `json:"moved_to"`
}

type playerLocationPayload struct {
	PlayerLocation struct {
		Username string          `json:"username"`
		Location *world.Position `json:"location,omitempty"`
		Status   string          `json:"status,omitempty"`
	} `json:"player_location"`
}

// RegisterWorldTools registers the full in-game action set against the
// given world adapter.
func RegisterWorldTools(r *Registry, w world.World) error {
	for _, t := range []*Tool{
		NewIdleTool(),
		NewChatTool(w),
		NewMoveTool(w),
		NewLocatePlayerTool(w),
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// NewIdleTool builds the no-op action. Always succeeds immediately and
// never triggers a follow-up reasoning round.
func NewIdleTool() *Tool {
	return &Tool{
		Name:        "idle",
		Description: "Stay idle for some time.",
		Schema: ToolSchema{
			Required:   []string{},
			Properties: map[string]Property{},
		},
		Execute: func(ctx context.Context, args map[string]any) (*Outcome, error) {
			return &Outcome{Payload: okPayload}, nil
		},
	}
}

// NewChatTool builds the chat action: sends a message through the world
// adapter's chat channel. Fire-and-effect; the result does not re-enter
// the reasoning loop.
func NewChatTool(w world.World) *Tool {
	return &Tool{
		Name:        "chat",
		Description: "Send a chat message to the Minecraft server.",
		Schema: ToolSchema{
			Required: []string{"message"},
			Properties: map[string]Property{
				"message": {Type: "string", Description: "The message to send in the chat."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (*Outcome, error) {
			message, _ := asString(args, "message")
			if err := w.SendChat(message); err != nil {
				return nil, err
			}
			return &Outcome{Payload: okPayload}, nil
		},
	}
}

// NewMoveTool builds the move action. Asynchronous: the outcome resolves
// when the world adapter reports arrival (with the achieved coordinate)
// or failure (no path, superseded goal).
func NewMoveTool(w world.World) *Tool {
	return &Tool{
		Name:        "move",
		Description: "Move to specified coordinates (x, y, z) in the Minecraft world.",
		Schema: ToolSchema{
			Required: []string{"x", "y", "z"},
			Properties: map[string]Property{
				"x": {Type: "number", Description: "The x coordinate to move to."},
				"y": {Type: "number", Description: "The y coordinate to move to."},
				"z": {Type: "number", Description: "The z coordinate to move to."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (*Outcome, error) {
			x, _ := asFloat(args["x"])
			y, _ := asFloat(args["y"])
			z, _ := asFloat(args["z"])

			moves := w.MoveTo(ctx, world.Position{X: x, Y: y, Z: z})

			future := make(chan Async, 1)
			go func() {
				res := <-moves
				if res.Err != nil {
					future <- Async{Err: res.Err}
					return
				}
				payload, err := json.Marshal(movedToPayload{MovedTo: res.Pos})
				if err != nil {
					future <- Async{Err: err}
					return
				}
				future <- Async{Payload: string(payload)}
			}()

			return &Outcome{Future: future}, nil
		},
	}
}

// NewLocatePlayerTool builds the player-location query. Immediate; an
// absent player is a valid not_found outcome, not an error, and still
// feeds back into the context so the agent can react to it.
func NewLocatePlayerTool(w world.World) *Tool {
	return &Tool{
		Name:        "get_player_location",
		Description: "Get the location of a player by their username.",
		Schema: ToolSchema{
			Required: []string{"username"},
			Properties: map[string]Property{
				"username": {Type: "string", Description: "The username of the player to get the location of."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (*Outcome, error) {
			username, _ := asString(args, "username")

			pos, found, err := w.Locate(ctx, username)
			if err != nil {
				return nil, err
			}

			var p playerLocationPayload
			p.PlayerLocation.Username = username
			if found {
				loc := pos
				p.PlayerLocation.Location = &loc
			} else {
				p.PlayerLocation.Status = "not_found"
			}

			payload, err := json.Marshal(p)
			if err != nil {
				return nil, err
			}
			return &Outcome{Payload: string(payload), Feedback: true}, nil
		},
	}
}

// Helpers for extracting values from the untyped argument map. JSON
// numbers arrive as float64, but models occasionally quote them.

func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func asString(args map[string]any, key string) (string, bool) {
	val, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}
