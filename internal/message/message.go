// Package message defines the in-memory conversation shape shared by the
// replay engine, agent sessions, and the provider abstraction: roles,
// messages, and the tagged content-block sum type (spec §3).
package message

// Role is the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Block is the tagged-union interface implemented by every content block
// variant. The source language used a C union; Go expresses the sum type as
// an interface with one concrete struct per kind, switched on with a type
// switch rather than a discriminant field.
type Block interface {
	blockKind() string
}

// Text is a plain text content block.
type Text struct {
	Text string
}

func (Text) blockKind() string { return "text" }

// Thinking is a provider "extended thinking" block. Signature, when
// present, must be preserved verbatim across replay for providers that
// validate it on the next turn.
type Thinking struct {
	Text      string
	Signature string
}

func (Thinking) blockKind() string { return "thinking" }

// RedactedThinking is an opaque thinking block the provider declined to
// reveal in cleartext.
type RedactedThinking struct {
	OpaqueData string
}

func (RedactedThinking) blockKind() string { return "redacted_thinking" }

// ToolCall is an assistant-issued tool invocation request.
type ToolCall struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments_json"`
}

func (ToolCall) blockKind() string { return "tool_call" }

// ToolResult is the result of executing a ToolCall, reported back as a
// tool-role message.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

func (ToolResult) blockKind() string { return "tool_result" }

// Message is a single conversation turn: a role plus an ordered sequence of
// content blocks.
type Message struct {
	Role   Role
	Blocks []Block
}

// Text returns the concatenation of all Text blocks, for contexts (like
// scrollback rendering) that only want plain text.
func (m Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if t, ok := b.(Text); ok {
			out += t.Text
		}
	}
	return out
}

// ToolCalls returns every ToolCall block in the message, in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Blocks {
		if tc, ok := b.(ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}
