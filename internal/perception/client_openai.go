package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mikedegeofroy/minecraft-bot/internal/logging"
	"github.com/mikedegeofroy/minecraft-bot/internal/types"
)

// OpenAIClient implements LLMClient via the official SDK. Setting
// BaseURL points it at any OpenAI-compatible endpoint (OpenRouter,
// Groq, a local server).
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}

	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client:  &client,
		model:   config.Model,
		timeout: config.Timeout,
	}
}

// ChatWithTools sends the full history with tool definitions and returns
// the model's reply and requested invocations.
func (c *OpenAIClient) ChatWithTools(ctx context.Context, history []types.Turn, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.PerceptionDebug("[OpenAI] ChatWithTools: model=%s turns=%d tools=%d", c.model, len(history), len(tools))

	messages, err := toOpenAIMessages(history)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Tools:       toOpenAITools(tools),
		Temperature: openai.Opt[float64](0.1),
	})
	if err != nil {
		logging.PerceptionError("[OpenAI] ChatWithTools: request failed after %v: %v", time.Since(startTime), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response: no choices")
	}

	msg := resp.Choices[0].Message
	result := &types.LLMToolResponse{
		Text:       msg.Content,
		StopReason: "end_turn",
	}
	for i, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse tool arguments for %s: %w", tc.Function.Name, err)
		}
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		result.ToolCalls = append(result.ToolCalls, types.ToolCall{
			ID:    id,
			Name:  tc.Function.Name,
			Input: args,
		})
	}
	if len(result.ToolCalls) > 0 {
		result.StopReason = "tool_use"
	}

	logging.Perception("[OpenAI] ChatWithTools: completed in %v text_len=%d tool_calls=%d finish_reason=%s",
		time.Since(startTime), len(result.Text), len(result.ToolCalls), resp.Choices[0].FinishReason)

	return result, nil
}

var _ LLMClient = (*OpenAIClient)(nil)

func toOpenAIMessages(history []types.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))

	for _, turn := range history {
		switch turn.Role {
		case types.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))

		case types.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))

		case types.RoleAgent:
			if len(turn.Invocations) == 0 {
				messages = append(messages, openai.AssistantMessage(turn.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if turn.Content != "" {
				assistant.Content.OfString = openai.String(turn.Content)
			}
			for _, inv := range turn.Invocations {
				args, err := json.Marshal(inv.Input)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal arguments for %s: %w", inv.Name, err)
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: inv.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      inv.Name,
							Arguments: string(args),
						},
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case types.RoleActionResult:
			messages = append(messages, openai.ToolMessage(turn.Content, turn.CallID))
		}
	}

	return messages, nil
}

func toOpenAITools(tools []types.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, def := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  openai.FunctionParameters(def.InputSchema),
		}))
	}
	return out
}
