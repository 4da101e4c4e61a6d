package repl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/registry"
)

func TestRenderAgentTreeOrdersChildrenUnderParents(t *testing.T) {
	root := registry.Agent{UUID: "r", Status: registry.StatusRunning}
	child1 := registry.Agent{UUID: "c1", ParentUUID: strPtr("r"), Status: registry.StatusRunning}
	child2 := registry.Agent{UUID: "c2", ParentUUID: strPtr("r"), Status: registry.StatusDead}

	out := RenderAgentTree([]registry.Agent{root, child1, child2}, "c1")
	require.Contains(t, out, "* c1 (c1) [running]")
	require.Contains(t, out, "- c2 (c2) [dead]")
	require.Contains(t, out, "- r (r) [running]")

	lines := strings.Split(out, "\n")
	rootIndent := len(lines[0]) - len(strings.TrimLeft(lines[0], " "))
	childLine := lines[1]
	childIndent := len(childLine) - len(strings.TrimLeft(childLine, " "))
	require.Greater(t, childIndent, rootIndent)
}

func TestAgentLabelPrefersNameOverUUID(t *testing.T) {
	name := "scout"
	a := registry.Agent{UUID: "abc", Name: &name, Status: registry.StatusRunning}
	require.Equal(t, "scout (abc) [running]", agentLabel(a))
}

func strPtr(s string) *string { return &s }
