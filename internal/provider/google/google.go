// Package google implements the provider.Provider contract against the
// Google Generative Language API via google.golang.org/genai (spec §4.6).
// Gemini 2.5 models are budget-model thinking providers (Gemini 2.5 Pro
// cannot disable thinking); Gemini 3.x models are level-model providers.
package google

import (
	"context"
	"encoding/json"
	"iter"

	"google.golang.org/genai"

	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
)

// levelApproxBudget maps a level-model thinking level onto a representative
// token budget for level-model Gemini 3.x requests (see StartRequest).
var levelApproxBudget = map[provider.ThinkingLevel]int{
	provider.ThinkingLow:    2048,
	provider.ThinkingMedium: 8192,
	provider.ThinkingHigh:   24576,
}

// ModelsClient is the subset of the genai SDK used by the adapter.
type ModelsClient interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client adapts ModelsClient to provider.Provider.
type Client struct {
	models ModelsClient
}

// New wraps an existing genai models client.
func New(models ModelsClient) *Client {
	return &Client{models: models}
}

// NewFromAPIKey builds a Client against the real Google Generative Language
// API.
func NewFromAPIKey(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "create genai client", err)
	}
	return New(c.Models), nil
}

// StartRequest implements provider.Provider.
func (c *Client) StartRequest(ctx context.Context, req provider.Request, cb provider.CompletionCallback) error {
	if len(req.Messages) == 0 {
		return ikerr.New(ikerr.InvalidArg, "messages are required")
	}
	if req.Model == "" {
		return ikerr.New(ikerr.InvalidArg, "model is required")
	}

	contents, err := encodeContents(req.Messages)
	if err != nil {
		return err
	}
	config, err := buildConfig(req)
	if err != nil {
		return err
	}

	var usage provider.Usage
	for resp, err := range c.models.GenerateContentStream(ctx, req.Model, contents, config) {
		if err != nil {
			return ikerr.Wrap(ikerr.IO, "genai generate content stream", err)
		}
		if resp.UsageMetadata != nil {
			usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
			usage.CachedTokens = int(resp.UsageMetadata.CachedContentTokenCount)
			usage.ThinkingTokens = int(resp.UsageMetadata.ThoughtsTokenCount)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			switch {
			case part.Text != "" && part.Thought:
				if err := cb(provider.StreamEvent{Kind: provider.EventThinkingDelta, Text: part.Text}); err != nil {
					return err
				}
			case part.Text != "":
				if err := cb(provider.StreamEvent{Kind: provider.EventTextDelta, Text: part.Text}); err != nil {
					return err
				}
			case part.FunctionCall != nil:
				args, _ := json.Marshal(part.FunctionCall.Args)
				id := part.FunctionCall.Name
				if err := cb(provider.StreamEvent{Kind: provider.EventToolCallStart, ToolCallID: id, ToolCallName: part.FunctionCall.Name}); err != nil {
					return err
				}
				if err := cb(provider.StreamEvent{Kind: provider.EventToolCallArgumentsDelta, ToolCallID: id, ArgsDelta: string(args)}); err != nil {
					return err
				}
			}
		}
		if len(resp.Candidates) > 0 {
			finish := mapFinishReason(string(resp.Candidates[0].FinishReason))
			if err := cb(provider.StreamEvent{Kind: provider.EventMessageDelta, FinishReason: finish, Usage: usage}); err != nil {
				return err
			}
		}
	}
	return cb(provider.StreamEvent{Kind: provider.EventMessageDone, Usage: usage})
}

// buildConfig translates a provider.Request's system prompt, temperature,
// thinking level, and tool catalog into a genai.GenerateContentConfig.
func buildConfig(req provider.Request) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		config.Temperature = &t
	}
	family := provider.LookupThinking(req.Model).Family
	if req.ThinkingLevel != "" && req.ThinkingLevel != provider.ThinkingMin {
		switch family {
		case provider.FamilyLevelModel:
			// Gemini 3.x is a level-model provider (spec §4.6: effort enum,
			// not a token budget), but this genai client version only
			// exposes a ThinkingBudget field, so the level is approximated
			// with a representative budget rather than left unexpressed.
			b := int32(levelApproxBudget[req.ThinkingLevel])
			config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &b, IncludeThoughts: true}
		default:
			budget, err := provider.BudgetTokens(req.Model, req.ThinkingLevel)
			if err != nil {
				return nil, err
			}
			if budget > 0 {
				b := int32(budget)
				config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &b, IncludeThoughts: true}
			}
		}
	} else if req.ThinkingLevel == provider.ThinkingMin && family != provider.FamilyLevelModel {
		if _, err := provider.BudgetTokens(req.Model, provider.ThinkingMin); err != nil {
			return nil, err
		}
		zero := int32(0)
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &zero}
	}
	if len(req.Tools) > 0 {
		tools, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		config.Tools = tools
	}
	return config, nil
}

// encodeContents maps internal messages onto genai.Content. Tool results
// fold into "user" turns, matching how Gemini's own function-response
// convention expects them to arrive (as a user-role functionResponse part).
func encodeContents(msgs []message.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == message.RoleAssistant {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		for _, b := range m.Blocks {
			switch v := b.(type) {
			case message.Text:
				parts = append(parts, genai.NewPartFromText(v.Text))
			case message.ToolCall:
				var args map[string]any
				if v.ArgumentsJSON != "" {
					if err := json.Unmarshal([]byte(v.ArgumentsJSON), &args); err != nil {
						return nil, ikerr.Newf(ikerr.Parse, "tool_call %s has unparseable arguments", v.ID)
					}
				}
				parts = append(parts, genai.NewPartFromFunctionCall(v.Name, args))
			case message.ToolResult:
				parts = append(parts, genai.NewPartFromFunctionResponse(v.ToolCallID, map[string]any{"content": v.Content, "is_error": v.IsError}))
			}
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out, nil
}

func encodeTools(specs []provider.ToolSpec) ([]*genai.Tool, error) {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		var schema *genai.Schema
		if len(s.InputSchema) > 0 {
			schema = &genai.Schema{}
			if err := json.Unmarshal(s.InputSchema, schema); err != nil {
				return nil, ikerr.Wrap(ikerr.Parse, "decode tool input schema for "+s.Name, err)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// mapFinishReason maps Gemini's finishReason onto the vendor-agnostic enum.
func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "STOP":
		return provider.FinishStop
	case "MAX_TOKENS":
		return provider.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return provider.FinishContentFilter
	default:
		return provider.FinishUnknown
	}
}
