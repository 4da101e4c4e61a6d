// Package provider defines the vendor-agnostic Request/Response/StreamEvent
// model shared by the Anthropic, OpenAI, and Google adapters (spec §4.6).
package provider

import (
	"context"

	"github.com/dohr-michael/ikigai/internal/message"
)

// ToolChoiceKind constrains how the model selects tools for a turn.
type ToolChoiceKind string

const (
	ToolChoiceAuto ToolChoiceKind = "auto"
	ToolChoiceNone ToolChoiceKind = "none"
	ToolChoiceAny  ToolChoiceKind = "any"
)

// ToolSpec describes one callable tool exposed to the model.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema []byte // raw JSON schema
}

// ThinkingLevel is the user-facing knob (/model <model>/<level>); concrete
// providers translate it into their own family's wire shape.
type ThinkingLevel string

const (
	ThinkingMin    ThinkingLevel = "min"
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
)

// Request is the vendor-agnostic turn request built from an agent session.
type Request struct {
	Model         string
	Messages      []message.Message
	System        string
	Tools         []ToolSpec
	ToolChoice    ToolChoiceKind
	MaxTokens     int
	Temperature   float64
	ThinkingLevel ThinkingLevel
}

// FinishReason is the vendor-agnostic completion reason.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolUse       FinishReason = "tool_use"
	FinishContentFilter FinishReason = "content_filter"
	FinishUnknown       FinishReason = "unknown"
)

// Usage is token accounting reported by the provider (spec §3:
// usage{input_tokens, output_tokens, thinking_tokens, cached_tokens,
// total_tokens}).
type Usage struct {
	InputTokens    int
	OutputTokens   int
	ThinkingTokens int
	CachedTokens   int
	TotalTokens    int
}

// Response is the full (non-streaming) result of a turn.
type Response struct {
	Message      message.Message
	FinishReason FinishReason
	Usage        Usage
}

// StreamEventKind tags a StreamEvent's payload.
type StreamEventKind string

const (
	EventTextDelta              StreamEventKind = "text_delta"
	EventThinkingDelta          StreamEventKind = "thinking_delta"
	EventToolCallStart          StreamEventKind = "tool_call_start"
	EventToolCallArgumentsDelta StreamEventKind = "tool_call_arguments_delta"
	EventMessageDelta           StreamEventKind = "message_delta"
	EventMessageDone            StreamEventKind = "message_done"
)

// StreamEvent is one incremental unit handed to the completion callback.
type StreamEvent struct {
	Kind StreamEventKind

	Text string // text_delta / thinking_delta

	ToolCallID   string // tool_call_start / tool_call_arguments_delta
	ToolCallName string // tool_call_start
	ArgsDelta    string // tool_call_arguments_delta

	FinishReason FinishReason // message_delta / message_done
	Usage        Usage        // message_delta (partial) / message_done (full)
}

// CompletionCallback receives each StreamEvent as it is decoded. A non-nil
// error terminates the stream early.
type CompletionCallback func(StreamEvent) error

// Provider is the vendor-agnostic adapter surface. Concrete providers
// (anthropic, openai, google sub-packages) encapsulate their own wire
// serialization behind this interface.
type Provider interface {
	// StartRequest issues req and invokes cb for every decoded stream event
	// until the stream ends or cb returns an error. It blocks until the
	// stream completes, is canceled via ctx, or errors.
	StartRequest(ctx context.Context, req Request, cb CompletionCallback) error
}

// EffectiveMaxTokens applies spec §4.6's rule: if a thinking budget B is
// enabled and requested <= B, bump to B + 4096.
func EffectiveMaxTokens(requested, thinkingBudget int) int {
	if thinkingBudget > 0 && requested <= thinkingBudget {
		return thinkingBudget + 4096
	}
	return requested
}

// WireRole maps an internal message.Role onto the (Anthropic-representative)
// wire role: tool results are folded into "user" turns. Unknown roles
// default to "user".
func WireRole(r message.Role) string {
	switch r {
	case message.RoleUser, message.RoleTool:
		return "user"
	case message.RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}
