package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// OllamaClient implements LLMClient against a local Ollama daemon's
// /api/chat endpoint.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	def := DefaultOllamaConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	return &OllamaClient{
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Ollama wire types.

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolName  string           `json:"tool_name,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaFunctionCall `json:"function"`
}

type ollamaFunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ollamaTool struct {
	Type     string            `json:"type"`
	Function ollamaFunctionDef `json:"function"`
}

type ollamaFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaResponse struct {
	Message    ollamaMessage `json:"message"`
	DoneReason string        `json:"done_reason"`
	Error      string        `json:"error,omitempty"`
}

// ChatWithTools sends the full history with tool definitions and returns
// the model's reply and requested invocations.
func (c *OllamaClient) ChatWithTools(ctx context.Context, history []types.Turn, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.PerceptionDebug("[Ollama] ChatWithTools: model=%s turns=%d tools=%d", c.model, len(history), len(tools))

	reqBody := ollamaRequest{
		Model:    c.model,
		Messages: toOllamaMessages(history),
		Tools:    toOllamaTools(tools),
		Stream:   false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.PerceptionError("[Ollama] ChatWithTools: request failed after %v: %v", time.Since(startTime), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.PerceptionError("[Ollama] ChatWithTools: API returned status %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if ollamaResp.Error != "" {
		return nil, fmt.Errorf("API error: %s", ollamaResp.Error)
	}

	result := &types.LLMToolResponse{
		Text:       ollamaResp.Message.Content,
		StopReason: "end_turn",
	}
	for i, tc := range ollamaResp.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, types.ToolCall{
			ID:    fmt.Sprintf("call_%d", i),
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}
	if len(result.ToolCalls) > 0 {
		result.StopReason = "tool_use"
	}

	logging.Perception("[Ollama] ChatWithTools: completed in %v text_len=%d tool_calls=%d done_reason=%s",
		time.Since(startTime), len(result.Text), len(result.ToolCalls), ollamaResp.DoneReason)

	return result, nil
}

var _ LLMClient = (*OllamaClient)(nil)

func toOllamaMessages(history []types.Turn) []ollamaMessage {
	messages := make([]ollamaMessage, 0, len(history))
	for _, turn := range history {
		msg := ollamaMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
		if turn.Role == types.RoleActionResult {
			msg.ToolName = turn.ToolName
		}
		for _, inv := range turn.Invocations {
			msg.ToolCalls = append(msg.ToolCalls, ollamaToolCall{
				Function: ollamaFunctionCall{
					Name:      inv.Name,
					Arguments: inv.Input,
				},
			})
		}
		messages = append(messages, msg)
	}
	return messages
}

func toOllamaTools(tools []types.ToolDefinition) []ollamaTool {
	out := make([]ollamaTool, 0, len(tools))
	for _, def := range tools {
		out = append(out, ollamaTool{
			Type: "function",
			Function: ollamaFunctionDef{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		})
	}
	return out
}
