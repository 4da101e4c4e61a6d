package repl

import (
	"fmt"
	"strings"

	"github.com/dohr-michael/ikigai/internal/registry"
)

// RenderAgentTree renders /agents' tree view (spec §4.7, SUPPLEMENTED
// FEATURE 2): one line per agent, indented by depth, roots first in
// creation order and children recursively in creation order beneath their
// parent, marking the focused agent and dead agents.
func RenderAgentTree(agents []registry.Agent, focused string) string {
	children := map[string][]registry.Agent{}
	var roots []registry.Agent
	for _, a := range agents {
		if a.ParentUUID == nil {
			roots = append(roots, a)
			continue
		}
		children[*a.ParentUUID] = append(children[*a.ParentUUID], a)
	}

	var b strings.Builder
	for _, root := range roots {
		renderNode(&b, root, children, focused, 0)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderNode(b *strings.Builder, a registry.Agent, children map[string][]registry.Agent, focused string, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	if a.UUID == focused {
		b.WriteString("* ")
	} else {
		b.WriteString("- ")
	}
	b.WriteString(agentLabel(a))
	b.WriteString("\n")
	for _, child := range children[a.UUID] {
		renderNode(b, child, children, focused, depth+1)
	}
}

func agentLabel(a registry.Agent) string {
	name := a.UUID
	if a.Name != nil && *a.Name != "" {
		name = *a.Name
	}
	status := string(a.Status)
	if a.Idle {
		status += ",idle"
	}
	return fmt.Sprintf("%s (%s) [%s]", name, a.UUID, status)
}
