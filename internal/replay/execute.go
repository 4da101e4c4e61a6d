package replay

import (
	"context"
	"encoding/json"

	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/message"
)

// Mark is a user-managed checkpoint: a label and the message-list length at
// the time it was pushed.
type Mark struct {
	Label       string
	MessageCount int
}

// Result is the fully reconstructed in-memory state for one agent.
type Result struct {
	Messages      []message.Message
	Marks         []Mark
	ToolsetFilter []string
}

// blockData is the wire shape of assistant content blocks stored in an
// event's `data` column, mirroring message.Block's variants.
type blockData struct {
	Kind             string `json:"kind"`
	Text             string `json:"text,omitempty"`
	Signature        string `json:"signature,omitempty"`
	OpaqueData       string `json:"opaque_data,omitempty"`
	ToolCallID       string `json:"tool_call_id,omitempty"`
	ToolName         string `json:"tool_name,omitempty"`
	ArgumentsJSON    string `json:"arguments_json,omitempty"`
	ToolResultBody   string `json:"content,omitempty"`
	ToolResultIsErr  bool   `json:"is_error,omitempty"`
}

func decodeBlocks(data json.RawMessage) ([]message.Block, error) {
	var raw []blockData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ikerr.Wrap(ikerr.Parse, "decode assistant content blocks", err)
	}
	blocks := make([]message.Block, 0, len(raw))
	for _, b := range raw {
		switch b.Kind {
		case "text":
			blocks = append(blocks, message.Text{Text: b.Text})
		case "thinking":
			blocks = append(blocks, message.Thinking{Text: b.Text, Signature: b.Signature})
		case "redacted_thinking":
			blocks = append(blocks, message.RedactedThinking{OpaqueData: b.OpaqueData})
		case "tool_call":
			blocks = append(blocks, message.ToolCall{ID: b.ToolCallID, Name: b.ToolName, ArgumentsJSON: b.ArgumentsJSON})
		case "tool_result":
			blocks = append(blocks, message.ToolResult{ToolCallID: b.ToolCallID, Content: b.ToolResultBody, IsError: b.ToolResultIsErr})
		}
	}
	return blocks, nil
}

// Execute runs the plan in order, materializing events into Result per the
// mapping in spec §4.4.
func Execute(ctx context.Context, events EventSource, plan []Range) (Result, error) {
	var res Result
	var openAssistant *message.Message // the in-progress assistant turn, if any

	closeAssistant := func() {
		if openAssistant != nil {
			res.Messages = append(res.Messages, *openAssistant)
			openAssistant = nil
		}
	}

	for _, r := range plan {
		evs, err := events.QueryRange(ctx, r.AgentUUID, r.StartExclusive, r.EndInclusive)
		if err != nil {
			return Result{}, err
		}
		for _, e := range evs {
			switch e.Kind {
			case eventstore.KindClear:
				closeAssistant()
				res.Messages = nil
			case eventstore.KindSystem:
				// rendered by the upstream prompt builder, not a conversation turn.
			case eventstore.KindUser:
				closeAssistant()
				content := ""
				if e.Content != nil {
					content = *e.Content
				}
				res.Messages = append(res.Messages, message.Message{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: content}}})
			case eventstore.KindAssistant:
				closeAssistant()
				var blocks []message.Block
				if len(e.Data) > 0 {
					blocks, err = decodeBlocks(e.Data)
					if err != nil {
						return Result{}, err
					}
				} else {
					content := ""
					if e.Content != nil {
						content = *e.Content
					}
					blocks = []message.Block{message.Text{Text: content}}
				}
				res.Messages = append(res.Messages, message.Message{Role: message.RoleAssistant, Blocks: blocks})
			case eventstore.KindToolCall:
				var tc message.ToolCall
				if err := json.Unmarshal(e.Data, &tc); err != nil {
					return Result{}, ikerr.Wrap(ikerr.Parse, "decode tool_call event", err)
				}
				if openAssistant == nil {
					openAssistant = &message.Message{Role: message.RoleAssistant}
				}
				openAssistant.Blocks = append(openAssistant.Blocks, tc)
			case eventstore.KindToolResult:
				closeAssistant()
				var tr message.ToolResult
				if err := json.Unmarshal(e.Data, &tr); err != nil {
					return Result{}, ikerr.Wrap(ikerr.Parse, "decode tool_result event", err)
				}
				res.Messages = append(res.Messages, message.Message{Role: message.RoleTool, Blocks: []message.Block{tr}})
			case eventstore.KindMark:
				closeAssistant()
				label := ""
				var payload struct {
					Label string `json:"label"`
				}
				if len(e.Data) > 0 {
					_ = json.Unmarshal(e.Data, &payload)
					label = payload.Label
				}
				res.Marks = append(res.Marks, Mark{Label: label, MessageCount: len(res.Messages)})
			case eventstore.KindRewind:
				closeAssistant()
				var payload struct {
					MarkIndex int `json:"mark_index"`
				}
				if len(e.Data) > 0 {
					_ = json.Unmarshal(e.Data, &payload)
				}
				if payload.MarkIndex >= 0 && payload.MarkIndex < len(res.Marks) {
					n := res.Marks[payload.MarkIndex].MessageCount
					if n <= len(res.Messages) {
						res.Messages = res.Messages[:n]
					}
					res.Marks = res.Marks[:payload.MarkIndex+1]
				}
			case eventstore.KindFork, eventstore.KindCommand, eventstore.KindUsage, eventstore.KindInterrupted, eventstore.KindAgentKilled:
				// not materialized as messages.
			}
		}
	}
	closeAssistant()
	return res, nil
}
