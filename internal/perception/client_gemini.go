package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// GeminiClient implements LLMClient using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   config.Model,
		timeout: config.Timeout,
	}, nil
}

// ChatWithTools sends the full history with tool definitions and returns
// the model's reply and requested invocations.
func (c *GeminiClient) ChatWithTools(ctx context.Context, history []types.Turn, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.PerceptionDebug("[Gemini] ChatWithTools: model=%s turns=%d tools=%d", c.model, len(history), len(tools))

	contents, system := toGeminiContents(history)

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toGeminiDeclarations(tools)}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		logging.PerceptionError("[Gemini] ChatWithTools: request failed after %v: %v", time.Since(startTime), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response: no candidates")
	}

	result := &types.LLMToolResponse{StopReason: "end_turn"}
	callIndex := 0
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			result.Text += part.Text
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", callIndex)
			}
			result.ToolCalls = append(result.ToolCalls, types.ToolCall{
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
			callIndex++
		}
	}
	if len(result.ToolCalls) > 0 {
		result.StopReason = "tool_use"
	}

	logging.Perception("[Gemini] ChatWithTools: completed in %v text_len=%d tool_calls=%d",
		time.Since(startTime), len(result.Text), len(result.ToolCalls))

	return result, nil
}

// toGeminiContents converts the turn history into Gemini contents. The
// system turn is pulled out: Gemini carries it as a separate instruction
// rather than a conversation message.
func toGeminiContents(history []types.Turn) ([]*genai.Content, string) {
	contents := make([]*genai.Content, 0, len(history))
	system := ""

	for _, turn := range history {
		switch turn.Role {
		case types.RoleSystem:
			system = turn.Content

		case types.RoleUser:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleUser))

		case types.RoleAgent:
			parts := make([]*genai.Part, 0, len(turn.Invocations)+1)
			if turn.Content != "" {
				parts = append(parts, &genai.Part{Text: turn.Content})
			}
			for _, inv := range turn.Invocations {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   inv.ID,
					Name: inv.Name,
					Args: inv.Input,
				}})
			}
			if len(parts) == 0 {
				parts = append(parts, &genai.Part{Text: ""})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})

		case types.RoleActionResult:
			var payload map[string]any
			if err := json.Unmarshal([]byte(turn.Content), &payload); err != nil {
				payload = map[string]any{"result": turn.Content}
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       turn.CallID,
					Name:     turn.ToolName,
					Response: payload,
				}}},
			})
		}
	}

	return contents, system
}

func toGeminiDeclarations(tools []types.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, def := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  toGeminiSchema(def.InputSchema),
		})
	}
	return decls
}

// toGeminiSchema converts a JSON-schema parameter object into the typed
// schema Gemini expects. Only the subset the tool surface uses (flat
// objects of strings and numbers) needs to round-trip.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			prop, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			ps := &genai.Schema{}
			if t, ok := prop["type"].(string); ok {
				ps.Type = geminiType(t)
			}
			if d, ok := prop["description"].(string); ok {
				ps.Description = d
			}
			out.Properties[name] = ps
		}
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	} else if raw, ok := schema["required"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}

	return out
}

var _ LLMClient = (*GeminiClient)(nil)

func geminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
