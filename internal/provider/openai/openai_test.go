package openai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
)

func TestBuildParamsRejectsEmptyMessages(t *testing.T) {
	_, err := buildParams(provider.Request{Model: "gpt-5"})
	require.Error(t, err)
}

func TestBuildParamsRejectsEmptyModel(t *testing.T) {
	_, err := buildParams(provider.Request{Messages: []message.Message{{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}}}})
	require.Error(t, err)
}

func TestBuildParamsSetsReasoningEffortFromThinkingLevel(t *testing.T) {
	params, err := buildParams(provider.Request{
		Model:         "gpt-5",
		Messages:      []message.Message{{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}}},
		ThinkingLevel: provider.ThinkingMin,
	})
	require.NoError(t, err)
	require.Equal(t, "minimal", string(params.ReasoningEffort))
}

func TestMapFinishReason(t *testing.T) {
	require.Equal(t, provider.FinishStop, mapFinishReason("stop"))
	require.Equal(t, provider.FinishLength, mapFinishReason("length"))
	require.Equal(t, provider.FinishToolUse, mapFinishReason("tool_calls"))
	require.Equal(t, provider.FinishContentFilter, mapFinishReason("content_filter"))
	require.Equal(t, provider.FinishUnknown, mapFinishReason("weird"))
}

func TestArgumentsOrEmptyObject(t *testing.T) {
	require.Equal(t, "{}", argumentsOrEmptyObject(""))
	require.Equal(t, `{"a":1}`, argumentsOrEmptyObject(`{"a":1}`))
}
