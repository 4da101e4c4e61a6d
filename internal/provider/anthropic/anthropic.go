// Package anthropic implements the provider.Provider contract against the
// Anthropic Messages API (spec §4.6, the serialization contract's
// representative case).
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
)

// MessagesClient is the subset of the Anthropic SDK the adapter needs,
// satisfied by *sdk.MessageService so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Client adapts MessagesClient to provider.Provider.
type Client struct {
	msg MessagesClient
}

// New wraps an existing Anthropic messages client.
func New(msg MessagesClient) *Client {
	return &Client{msg: msg}
}

// NewFromAPIKey builds a Client against the real Anthropic API.
func NewFromAPIKey(apiKey string) *Client {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages)
}

// StartRequest implements provider.Provider.
func (c *Client) StartRequest(ctx context.Context, req provider.Request, cb provider.CompletionCallback) error {
	params, extraOpts, err := buildParams(req)
	if err != nil {
		return err
	}
	stream := c.msg.NewStreaming(ctx, *params, extraOpts...)
	if err := stream.Err(); err != nil {
		return ikerr.Wrap(ikerr.IO, "anthropic messages stream", err)
	}
	defer stream.Close()

	return decodeStream(stream, cb)
}

// buildParams translates a provider.Request into the Anthropic SDK's typed
// params plus any request options needed to express thinking configurations
// the typed params don't model yet (spec §4.6's "adaptive" family: Claude
// opus-4-6 emits `thinking.type == "adaptive"` and a top-level
// `output_config.effort`, neither of which the budget-model `thinking`
// union covers, so they ride in as raw JSON overrides via option.WithJSONSet
// rather than guessing at SDK fields that don't exist for this family).
func buildParams(req provider.Request) (*sdk.MessageNewParams, []option.RequestOption, error) {
	if len(req.Messages) == 0 {
		return nil, nil, ikerr.New(ikerr.InvalidArg, "messages are required")
	}
	if req.Model == "" {
		return nil, nil, ikerr.New(ikerr.InvalidArg, "model is required")
	}

	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, nil, err
	}

	thinkingBudget := 0
	var thinkingParam sdk.ThinkingConfigParamUnion
	var extraOpts []option.RequestOption
	if req.ThinkingLevel != "" && req.ThinkingLevel != provider.ThinkingMin {
		switch provider.LookupThinking(req.Model).Family {
		case provider.FamilyAdaptive:
			extraOpts = append(extraOpts,
				option.WithJSONSet("thinking", map[string]any{"type": "adaptive"}),
				option.WithJSONSet("output_config", map[string]any{"effort": string(req.ThinkingLevel)}),
			)
		default:
			budget, err := provider.BudgetTokens(req.Model, req.ThinkingLevel)
			if err != nil {
				return nil, nil, err
			}
			if budget > 0 {
				thinkingBudget = budget
				thinkingParam = sdk.ThinkingConfigParamOfEnabled(int64(budget))
			}
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	maxTokens = provider.EffectiveMaxTokens(maxTokens, thinkingBudget)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if thinkingParam.OfEnabled != nil || thinkingParam.OfDisabled != nil {
		params.Thinking = thinkingParam
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := encodeTools(req.Tools)
		if err != nil {
			return nil, nil, err
		}
		params.Tools = tools
	}
	if req.ToolChoice != "" {
		params.ToolChoice = encodeToolChoice(req.ToolChoice)
	}
	return &params, extraOpts, nil
}

// encodeMessages translates internal messages into Anthropic's compact
// wire form: a single Text block collapses to a bare string; anything else
// becomes an array of typed content blocks. Tool-role messages fold into
// user turns per spec §4.6's role mapping.
func encodeMessages(msgs []message.Message) ([]sdk.MessageParam, error) {
	var out []sdk.MessageParam
	for _, m := range msgs {
		blocks, err := encodeBlocks(m.Blocks)
		if err != nil {
			return nil, err
		}
		var param sdk.MessageParam
		if provider.WireRole(m.Role) == "assistant" {
			param = sdk.NewAssistantMessage(blocks...)
		} else {
			param = sdk.NewUserMessage(blocks...)
		}
		out = append(out, param)
	}
	return out, nil
}

func encodeBlocks(blocks []message.Block) ([]sdk.ContentBlockParamUnion, error) {
	out := make([]sdk.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch v := b.(type) {
		case message.Text:
			out = append(out, sdk.NewTextBlock(v.Text))
		case message.Thinking:
			out = append(out, sdk.ContentBlockParamUnion{OfThinking: &sdk.ThinkingBlockParam{Thinking: v.Text, Signature: v.Signature}})
		case message.RedactedThinking:
			out = append(out, sdk.ContentBlockParamUnion{OfRedactedThinking: &sdk.RedactedThinkingBlockParam{Data: v.OpaqueData}})
		case message.ToolCall:
			input := json.RawMessage("{}")
			if v.ArgumentsJSON != "" {
				if !json.Valid([]byte(v.ArgumentsJSON)) {
					return nil, ikerr.Newf(ikerr.Parse, "tool_call %s has unparseable arguments", v.ID)
				}
				input = json.RawMessage(v.ArgumentsJSON)
			}
			out = append(out, sdk.NewToolUseBlock(v.ID, input, v.Name))
		case message.ToolResult:
			out = append(out, sdk.NewToolResultBlock(v.ToolCallID, v.Content, v.IsError))
		default:
			return nil, ikerr.Newf(ikerr.InvalidArg, "unknown content block type %T", b)
		}
	}
	return out, nil
}

func encodeTools(specs []provider.ToolSpec) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		var schema sdk.ToolInputSchemaParam
		if len(s.InputSchema) > 0 {
			if err := json.Unmarshal(s.InputSchema, &schema); err != nil {
				return nil, ikerr.Wrap(ikerr.Parse, fmt.Sprintf("decode input schema for tool %s", s.Name), err)
			}
		}
		out = append(out, sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        s.Name,
				Description: sdk.String(s.Description),
				InputSchema: schema,
			},
		})
	}
	return out, nil
}

func encodeToolChoice(tc provider.ToolChoiceKind) sdk.ToolChoiceUnionParam {
	switch tc {
	case provider.ToolChoiceNone:
		return sdk.ToolChoiceUnionParam{OfNone: &sdk.ToolChoiceNoneParam{}}
	case provider.ToolChoiceAny:
		return sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}
	default:
		return sdk.ToolChoiceUnionParam{OfAuto: &sdk.ToolChoiceAutoParam{}}
	}
}

// finishReason maps Anthropic's stop_reason onto the vendor-agnostic
// FinishReason enum per spec §4.6.
func finishReason(stopReason string) provider.FinishReason {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return provider.FinishStop
	case "max_tokens":
		return provider.FinishLength
	case "tool_use":
		return provider.FinishToolUse
	case "refusal":
		return provider.FinishContentFilter
	default:
		return provider.FinishUnknown
	}
}
