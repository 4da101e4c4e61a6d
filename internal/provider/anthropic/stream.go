package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/provider"
)

// decodeStream consumes the SSE-framed event stream and invokes cb for each
// decoded provider.StreamEvent, per spec §4.6's stream-decoding contract.
func decodeStream(stream *ssestream.Stream[sdk.MessageStreamEventUnion], cb provider.CompletionCallback) error {
	toolNames := map[int]string{}
	toolIDs := map[int]string{}
	var usage provider.Usage
	var finish provider.FinishReason = provider.FinishUnknown
	thinkingChars := 0

	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case sdk.MessageStartEvent:
			usage.InputTokens = int(ev.Message.Usage.InputTokens)
			usage.CachedTokens = int(ev.Message.Usage.CacheReadInputTokens)
		case sdk.ContentBlockStartEvent:
			idx := int(ev.Index)
			if toolUse, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
				toolIDs[idx] = toolUse.ID
				toolNames[idx] = toolUse.Name
				if err := cb(provider.StreamEvent{Kind: provider.EventToolCallStart, ToolCallID: toolUse.ID, ToolCallName: toolUse.Name}); err != nil {
					return err
				}
			}
		case sdk.ContentBlockDeltaEvent:
			idx := int(ev.Index)
			switch delta := ev.Delta.AsAny().(type) {
			case sdk.TextDelta:
				if delta.Text == "" {
					continue
				}
				if err := cb(provider.StreamEvent{Kind: provider.EventTextDelta, Text: delta.Text}); err != nil {
					return err
				}
			case sdk.ThinkingDelta:
				if delta.Thinking == "" {
					continue
				}
				thinkingChars += len(delta.Thinking)
				if err := cb(provider.StreamEvent{Kind: provider.EventThinkingDelta, Text: delta.Thinking}); err != nil {
					return err
				}
			case sdk.InputJSONDelta:
				if delta.PartialJSON == "" {
					continue
				}
				if err := cb(provider.StreamEvent{
					Kind:       provider.EventToolCallArgumentsDelta,
					ToolCallID: toolIDs[idx],
					ArgsDelta:  delta.PartialJSON,
				}); err != nil {
					return err
				}
			}
		case sdk.MessageDeltaEvent:
			finish = finishReason(string(ev.Delta.StopReason))
			usage.OutputTokens = int(ev.Usage.OutputTokens)
			usage.ThinkingTokens = thinkingChars / 4
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens
			if err := cb(provider.StreamEvent{Kind: provider.EventMessageDelta, FinishReason: finish, Usage: usage}); err != nil {
				return err
			}
		case sdk.MessageStopEvent:
			if err := cb(provider.StreamEvent{Kind: provider.EventMessageDone, FinishReason: finish, Usage: usage}); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return ikerr.Wrap(ikerr.IO, "anthropic stream decode", err)
	}
	return nil
}
