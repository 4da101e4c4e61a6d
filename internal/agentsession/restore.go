package agentsession

import (
	"context"
	"sync/atomic"

	"github.com/dohr-michael/ikigai/internal/registry"
	"github.com/dohr-michael/ikigai/internal/replay"
)

// Restore rebuilds a Session from the replay engine's output: messages,
// marks, and toolset filter are seeded directly; model/provider/thinking
// level come from the agent's registry row.
func Restore(ctx context.Context, agents replay.AgentSource, events replay.EventSource, agentUUID string, interrupted *atomic.Bool) (*Session, error) {
	agent, err := agents.Get(ctx, agentUUID)
	if err != nil {
		return nil, err
	}

	plan, err := replay.BuildPlan(ctx, agents, events, agentUUID)
	if err != nil {
		return nil, err
	}
	result, err := replay.Execute(ctx, events, plan)
	if err != nil {
		return nil, err
	}
	toolset, err := replay.RestoreToolset(ctx, events, agentUUID)
	if err != nil {
		return nil, err
	}

	s := New(agentUUID, interrupted)
	if agent.Name != nil {
		s.Name = *agent.Name
	}
	s.messages = result.Messages
	for _, m := range result.Marks {
		s.marks = append(s.marks, Mark{Label: m.Label, MessageCount: m.MessageCount})
	}
	s.toolset = toolset
	s.Model = agent.Model
	s.Provider = agent.Provider
	s.ThinkingLevel = agent.ThinkingLevel
	if agent.Status == registry.StatusDead {
		s.MarkDead()
	}
	return s, nil
}
