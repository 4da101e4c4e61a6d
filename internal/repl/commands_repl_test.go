package repl

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/agentsession"
)

func newTestREPL() *REPL {
	return &REPL{
		nodes:  map[string]*AgentNode{},
		busy:   map[string]bool{},
		system: map[string]string{},
	}
}

func addTestNode(r *REPL, uuid string, parent *string, dead bool) {
	sess := agentsession.New(uuid, &atomic.Bool{})
	if dead {
		sess.MarkDead()
	}
	r.nodes[uuid] = &AgentNode{Session: sess, ParentUUID: parent}
	r.order = append(r.order, uuid)
}

func TestReapBulkRemovesDeadAndDescendantsOfDead(t *testing.T) {
	r := newTestREPL()
	addTestNode(r, "root", nil, false)
	addTestNode(r, "dead-child", strPtr("root"), true)
	addTestNode(r, "grandchild-of-dead", strPtr("dead-child"), false)
	addTestNode(r, "alive-sibling", strPtr("root"), false)
	r.focused = "alive-sibling"

	out, err := cmdReap(context.Background(), r, "")
	require.NoError(t, err)
	require.Contains(t, out, "2")
	require.NotContains(t, r.nodes, "dead-child")
	require.NotContains(t, r.nodes, "grandchild-of-dead")
	require.Contains(t, r.nodes, "root")
	require.Contains(t, r.nodes, "alive-sibling")
}

func TestReapSwitchesFocusWhenFocusedAgentRemoved(t *testing.T) {
	r := newTestREPL()
	addTestNode(r, "root", nil, false)
	addTestNode(r, "dead", strPtr("root"), true)
	r.focused = "dead"

	_, err := cmdReap(context.Background(), r, "")
	require.NoError(t, err)
	require.Equal(t, "root", r.focused)
}

func TestReapTargetedRejectsNonDeadAgent(t *testing.T) {
	r := newTestREPL()
	addTestNode(r, "root", nil, false)
	_, err := cmdReap(context.Background(), r, "root")
	require.Error(t, err)
}

func TestParseSendArgsExtractsUUIDAndQuotedBody(t *testing.T) {
	to, body, err := parseSendArgs(`abc123 "hello there"`)
	require.NoError(t, err)
	require.Equal(t, "abc123", to)
	require.Equal(t, "hello there", body)
}

func TestParseSendArgsRejectsMissingBody(t *testing.T) {
	_, _, err := parseSendArgs("abc123")
	require.Error(t, err)
}

func TestParseModelArgsSplitsModelAndLevel(t *testing.T) {
	model, level, err := parseModelArgs("claude-sonnet-4-5/high")
	require.NoError(t, err)
	require.Equal(t, "claude-sonnet-4-5", model)
	require.Equal(t, "high", level)
}

func TestParseModelArgsRejectsTrailingSlash(t *testing.T) {
	_, _, err := parseModelArgs("claude-sonnet-4-5/")
	require.Error(t, err)
}

func TestParseModelArgsRejectsUnknownLevel(t *testing.T) {
	_, _, err := parseModelArgs("claude-sonnet-4-5/ludicrous")
	require.Error(t, err)
}

func TestModelProviderNameInfersFamilyFromPrefix(t *testing.T) {
	require.Equal(t, "anthropic", modelProviderName("claude-sonnet-4-5"))
	require.Equal(t, "openai", modelProviderName("gpt-5"))
	require.Equal(t, "google", modelProviderName("gemini-2.5-pro"))
}

func TestCmdModelRejectsMinOnCannotDisableModel(t *testing.T) {
	r := newTestREPL()
	addTestNode(r, "a", nil, false)
	r.focused = "a"

	_, err := cmdModel(context.Background(), r, "gemini-2.5-pro/min")
	require.Error(t, err)
}

func TestCmdModelAcceptsMinOnBudgetModelThatCanDisable(t *testing.T) {
	r := newTestREPL()
	addTestNode(r, "a", nil, false)
	r.focused = "a"

	_, err := cmdModel(context.Background(), r, "claude-sonnet-4-5/min")
	require.NoError(t, err)
	require.Equal(t, "min", r.nodes["a"].Session.ThinkingLevel)
}

func TestCmdToolsetSetsAndListsFilter(t *testing.T) {
	r := newTestREPL()
	addTestNode(r, "a", nil, false)
	r.focused = "a"

	out, err := cmdToolset(context.Background(), r, "write, read ,write")
	require.NoError(t, err)
	require.Contains(t, out, "read")
	require.Contains(t, out, "write")

	out, err = cmdToolset(context.Background(), r, "")
	require.NoError(t, err)
	require.Contains(t, out, "read")
}

func TestParseFilterMailArgsParsesFromAndSince(t *testing.T) {
	now := time.Unix(10_000, 0)
	filter, err := parseFilterMailArgs(now, "--from abc --since 5m")
	require.NoError(t, err)
	require.Equal(t, "abc", filter.From)
	require.Equal(t, now.Add(-5*time.Minute).Unix(), filter.Since)
}

func TestParseFilterMailArgsRejectsUnknownFlag(t *testing.T) {
	_, err := parseFilterMailArgs(time.Now(), "--bogus x")
	require.Error(t, err)
}

func TestCmdExitSetsExitRequested(t *testing.T) {
	r := newTestREPL()
	_, err := cmdExit(context.Background(), r, "")
	require.NoError(t, err)
	require.True(t, r.ExitRequested())
}

func TestInterruptFocusedSetsSharedFlag(t *testing.T) {
	flag := &atomic.Bool{}
	r := &REPL{interrupted: flag}
	require.False(t, r.interrupted.Load())
	r.InterruptFocused()
	require.True(t, r.interrupted.Load())
}
