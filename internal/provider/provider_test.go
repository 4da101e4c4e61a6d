package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/message"
)

func TestEffectiveMaxTokens(t *testing.T) {
	require.Equal(t, 4096, EffectiveMaxTokens(4096, 0))
	require.Equal(t, 16384+4096, EffectiveMaxTokens(1000, 16384))
	require.Equal(t, 20000, EffectiveMaxTokens(20000, 1024))
}

func TestWireRoleFoldsToolIntoUser(t *testing.T) {
	require.Equal(t, "user", WireRole(message.RoleUser))
	require.Equal(t, "user", WireRole(message.RoleTool))
	require.Equal(t, "assistant", WireRole(message.RoleAssistant))
	require.Equal(t, "user", WireRole(message.Role("unknown")))
}

func TestBudgetTokensMinOmitsThinkingExceptWhenCannotDisable(t *testing.T) {
	budget, err := BudgetTokens("claude-sonnet-4-5", ThinkingMin)
	require.NoError(t, err)
	require.Zero(t, budget)

	_, err = BudgetTokens("gemini-2.5-pro", ThinkingMin)
	require.Error(t, err)
}

func TestBudgetTokensByLevel(t *testing.T) {
	budget, err := BudgetTokens("claude-sonnet-4-5", ThinkingHigh)
	require.NoError(t, err)
	require.Equal(t, 16384, budget)
}

func TestLevelEffortMapsMinToMinimal(t *testing.T) {
	require.Equal(t, "minimal", LevelEffort(ThinkingMin))
	require.Equal(t, "high", LevelEffort(ThinkingHigh))
}
