package anthropic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
)

func TestBuildParamsRejectsEmptyMessages(t *testing.T) {
	_, _, err := buildParams(provider.Request{Model: "claude-sonnet-4-5"})
	require.Error(t, err)
}

func TestBuildParamsRejectsEmptyModel(t *testing.T) {
	_, _, err := buildParams(provider.Request{Messages: []message.Message{{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}}}})
	require.Error(t, err)
}

func TestBuildParamsDefaultsMaxTokens(t *testing.T) {
	params, _, err := buildParams(provider.Request{
		Model:    "claude-sonnet-4-5",
		Messages: []message.Message{{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 4096, params.MaxTokens)
}

func TestBuildParamsBumpsMaxTokensForThinkingBudget(t *testing.T) {
	params, _, err := buildParams(provider.Request{
		Model:         "claude-sonnet-4-5",
		Messages:      []message.Message{{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}}},
		MaxTokens:     1000,
		ThinkingLevel: provider.ThinkingHigh,
	})
	require.NoError(t, err)
	require.EqualValues(t, 16384+4096, params.MaxTokens)
}

// TestBuildParamsAdaptiveFamilyOmitsBudget covers spec §8 Scenario F: with
// /model claude-opus-4-6/high, the serialized request carries an adaptive
// thinking marker and an output_config.effort override rather than a
// budget_tokens value, since the adaptive family has no token budget table.
func TestBuildParamsAdaptiveFamilyOmitsBudget(t *testing.T) {
	params, extraOpts, err := buildParams(provider.Request{
		Model:         "claude-opus-4-6",
		Messages:      []message.Message{{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}}},
		ThinkingLevel: provider.ThinkingHigh,
	})
	require.NoError(t, err)
	require.Nil(t, params.Thinking.OfEnabled)
	require.Nil(t, params.Thinking.OfDisabled)
	require.EqualValues(t, 4096, params.MaxTokens)
	require.Len(t, extraOpts, 2)
}

func TestBuildParamsAdaptiveFamilyOmitsThinkingAtMinLevel(t *testing.T) {
	_, extraOpts, err := buildParams(provider.Request{
		Model:         "claude-opus-4-6",
		Messages:      []message.Message{{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}}},
		ThinkingLevel: provider.ThinkingMin,
	})
	require.NoError(t, err)
	require.Empty(t, extraOpts)
}

func TestBuildParamsRejectsUnparseableToolArguments(t *testing.T) {
	_, _, err := buildParams(provider.Request{
		Model: "claude-sonnet-4-5",
		Messages: []message.Message{{
			Role: message.RoleAssistant,
			Blocks: []message.Block{
				message.ToolCall{ID: "1", Name: "read_file", ArgumentsJSON: "not json"},
			},
		}},
	})
	require.Error(t, err)
}

func TestFinishReasonMapping(t *testing.T) {
	require.Equal(t, provider.FinishStop, finishReason("end_turn"))
	require.Equal(t, provider.FinishStop, finishReason("stop_sequence"))
	require.Equal(t, provider.FinishLength, finishReason("max_tokens"))
	require.Equal(t, provider.FinishToolUse, finishReason("tool_use"))
	require.Equal(t, provider.FinishContentFilter, finishReason("refusal"))
	require.Equal(t, provider.FinishUnknown, finishReason("something_else"))
}
