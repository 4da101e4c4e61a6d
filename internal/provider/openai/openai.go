// Package openai implements the provider.Provider contract against the
// OpenAI Chat Completions API using the official openai-go SDK (spec §4.6,
// level-model thinking family: GPT-5 takes a reasoning-effort enum rather
// than a token budget).
package openai

import (
	"context"
	"encoding/json"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
)

// ChatClient is the subset of the SDK used by the adapter.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
	NewStreaming(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) *sdk.ChatCompletionStream
}

// Client adapts ChatClient to provider.Provider.
type Client struct {
	chat ChatClient
}

// New wraps an existing OpenAI chat-completions client.
func New(chat ChatClient) *Client {
	return &Client{chat: chat}
}

// NewFromAPIKey builds a Client against the real OpenAI API.
func NewFromAPIKey(apiKey string) *Client {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(c.Chat.Completions)
}

// StartRequest implements provider.Provider. OpenAI's Chat Completions
// streaming protocol emits whole-message deltas rather than Anthropic's
// content-block lifecycle, so tool-call argument fragments are tracked by
// index rather than by an explicit start/stop pair.
func (c *Client) StartRequest(ctx context.Context, req provider.Request, cb provider.CompletionCallback) error {
	params, err := buildParams(req)
	if err != nil {
		return err
	}
	stream := c.chat.NewStreaming(ctx, *params)
	defer stream.Close()

	toolNames := map[int64]string{}
	toolIDs := map[int64]string{}
	var usage provider.Usage
	finish := provider.FinishUnknown

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			if err := cb(provider.StreamEvent{Kind: provider.EventTextDelta, Text: choice.Delta.Content}); err != nil {
				return err
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := tc.Index
			if tc.ID != "" {
				toolIDs[idx] = tc.ID
				toolNames[idx] = tc.Function.Name
				if err := cb(provider.StreamEvent{Kind: provider.EventToolCallStart, ToolCallID: tc.ID, ToolCallName: tc.Function.Name}); err != nil {
					return err
				}
			}
			if tc.Function.Arguments != "" {
				if err := cb(provider.StreamEvent{
					Kind:       provider.EventToolCallArgumentsDelta,
					ToolCallID: toolIDs[idx],
					ArgsDelta:  tc.Function.Arguments,
				}); err != nil {
					return err
				}
			}
		}
		if fr := string(choice.FinishReason); fr != "" {
			finish = mapFinishReason(fr)
		}
		if chunk.Usage.TotalTokens > 0 {
			usage.InputTokens = int(chunk.Usage.PromptTokens)
			usage.OutputTokens = int(chunk.Usage.CompletionTokens)
			usage.TotalTokens = int(chunk.Usage.TotalTokens)
			usage.CachedTokens = int(chunk.Usage.PromptTokensDetails.CachedTokens)
			usage.ThinkingTokens = int(chunk.Usage.CompletionTokensDetails.ReasoningTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return ikerr.Wrap(ikerr.IO, "openai chat completion stream", err)
	}
	return cb(provider.StreamEvent{Kind: provider.EventMessageDone, FinishReason: finish, Usage: usage})
}

func buildParams(req provider.Request) (*sdk.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, ikerr.New(ikerr.InvalidArg, "messages are required")
	}
	if req.Model == "" {
		return nil, ikerr.New(ikerr.InvalidArg, "model is required")
	}

	msgs, err := encodeMessages(req)
	if err != nil {
		return nil, err
	}

	params := &sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if req.ThinkingLevel != "" {
		effort := provider.LevelEffort(req.ThinkingLevel)
		params.ReasoningEffort = shared.ReasoningEffort(effort)
	}
	if len(req.Tools) > 0 {
		tools, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}
	return params, nil
}

// encodeMessages maps internal roles onto OpenAI's chat roles: tool results
// become a dedicated "tool" role message (unlike Anthropic, which folds
// them into user turns), per each vendor's own wire convention.
func encodeMessages(req provider.Request) ([]sdk.ChatCompletionMessageParamUnion, error) {
	var out []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		out = append(out, sdk.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		for _, b := range m.Blocks {
			switch v := b.(type) {
			case message.Text:
				switch m.Role {
				case message.RoleAssistant:
					out = append(out, sdk.AssistantMessage(v.Text))
				default:
					out = append(out, sdk.UserMessage(v.Text))
				}
			case message.ToolCall:
				out = append(out, sdk.ChatCompletionMessageParamUnion{
					OfAssistant: &sdk.ChatCompletionAssistantMessageParam{
						ToolCalls: []sdk.ChatCompletionMessageToolCallParam{{
							ID: v.ID,
							Function: sdk.ChatCompletionMessageToolCallFunctionParam{
								Name:      v.Name,
								Arguments: argumentsOrEmptyObject(v.ArgumentsJSON),
							},
						}},
					},
				})
			case message.ToolResult:
				out = append(out, sdk.ToolMessage(v.Content, v.ToolCallID))
			}
		}
	}
	return out, nil
}

func argumentsOrEmptyObject(args string) string {
	if args == "" {
		return "{}"
	}
	return args
}

func encodeTools(specs []provider.ToolSpec) ([]sdk.ChatCompletionToolParam, error) {
	out := make([]sdk.ChatCompletionToolParam, 0, len(specs))
	for _, s := range specs {
		var schema map[string]any
		if len(s.InputSchema) > 0 {
			if err := json.Unmarshal(s.InputSchema, &schema); err != nil {
				return nil, ikerr.Wrap(ikerr.Parse, "decode tool input schema for "+s.Name, err)
			}
		}
		out = append(out, sdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        s.Name,
				Description: sdk.String(s.Description),
				Parameters:  schema,
			},
		})
	}
	return out, nil
}

// mapFinishReason maps OpenAI's finish_reason onto the vendor-agnostic enum.
func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "stop":
		return provider.FinishStop
	case "length":
		return provider.FinishLength
	case "tool_calls":
		return provider.FinishToolUse
	case "content_filter":
		return provider.FinishContentFilter
	default:
		return provider.FinishUnknown
	}
}
