package google

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
)

func TestEncodeContentsMapsRolesAndToolBlocks(t *testing.T) {
	contents, err := encodeContents([]message.Message{
		{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: "hi"}}},
		{Role: message.RoleAssistant, Blocks: []message.Block{message.ToolCall{ID: "1", Name: "read_file", ArgumentsJSON: `{"path":"a"}`}}},
		{Role: message.RoleTool, Blocks: []message.Block{message.ToolResult{ToolCallID: "1", Content: "ok"}}},
	})
	require.NoError(t, err)
	require.Len(t, contents, 3)
	require.Equal(t, "user", string(contents[0].Role))
	require.Equal(t, "model", string(contents[1].Role))
	require.Equal(t, "user", string(contents[2].Role))
}

func TestEncodeContentsRejectsUnparseableArguments(t *testing.T) {
	_, err := encodeContents([]message.Message{
		{Role: message.RoleAssistant, Blocks: []message.Block{message.ToolCall{ID: "1", Name: "x", ArgumentsJSON: "not json"}}},
	})
	require.Error(t, err)
}

func TestBuildConfigBudgetModelSetsThinkingBudget(t *testing.T) {
	config, err := buildConfig(provider.Request{Model: "gemini-2.5-flash", ThinkingLevel: provider.ThinkingHigh})
	require.NoError(t, err)
	require.NotNil(t, config.ThinkingConfig)
	require.EqualValues(t, 16384, *config.ThinkingConfig.ThinkingBudget)
}

func TestBuildConfigBudgetModelCannotDisableErrors(t *testing.T) {
	_, err := buildConfig(provider.Request{Model: "gemini-2.5-pro", ThinkingLevel: provider.ThinkingMin})
	require.Error(t, err)
}

// TestBuildConfigLevelModelApproximatesBudget covers Gemini 3.x, a
// level-model provider per spec §4.6 with no effort field in this genai
// client, falling back to a representative token budget instead of
// erroring the way the budget-model lookup would for an unlisted tier.
func TestBuildConfigLevelModelApproximatesBudget(t *testing.T) {
	config, err := buildConfig(provider.Request{Model: "gemini-3-pro", ThinkingLevel: provider.ThinkingMedium})
	require.NoError(t, err)
	require.NotNil(t, config.ThinkingConfig)
	require.EqualValues(t, 8192, *config.ThinkingConfig.ThinkingBudget)
}

func TestBuildConfigLevelModelAtMinOmitsThinking(t *testing.T) {
	config, err := buildConfig(provider.Request{Model: "gemini-3-pro", ThinkingLevel: provider.ThinkingMin})
	require.NoError(t, err)
	require.Nil(t, config.ThinkingConfig)
}

func TestMapFinishReason(t *testing.T) {
	require.Equal(t, "stop", string(mapFinishReason("STOP")))
	require.Equal(t, "length", string(mapFinishReason("MAX_TOKENS")))
	require.Equal(t, "content_filter", string(mapFinishReason("SAFETY")))
	require.Equal(t, "unknown", string(mapFinishReason("WEIRD")))
}
