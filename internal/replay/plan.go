// Package replay implements the Replay Engine (spec §4.4): given a leaf
// agent uuid, reconstruct its conversation context by walking the parent
// chain and applying events.
//
// Grounded on original_source/apps/ikigai/db/replay.h's ik_replay_range_t /
// ik_replay_context_t semantics ("start_id exclusive, end_id inclusive,
// end_id == 0 means leaf"), reimplemented as Go value types instead of the
// C structs' talloc-owned arrays.
package replay

import (
	"context"
	"encoding/json"

	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/registry"
)

// Range describes a contiguous slice of one agent's log contributing to a
// replay. StartExclusive/EndInclusive follow the event store's own
// query_range convention; EndInclusive == 0 is the "to end" sentinel.
type Range struct {
	AgentUUID      string
	StartExclusive int64
	EndInclusive   int64
}

// AgentSource is the subset of the Agent Registry the plan builder needs.
type AgentSource interface {
	Get(ctx context.Context, uuid string) (*registry.Agent, error)
}

// EventSource is the subset of the Event Store the plan builder and
// executor need.
type EventSource interface {
	FindLastByKind(ctx context.Context, agentUUID string, kind eventstore.Kind, maxID int64) (int64, error)
	QueryRange(ctx context.Context, agentUUID string, startExclusive, endInclusive int64) ([]eventstore.Event, error)
	FindMostRecentCommand(ctx context.Context, agentUUID, commandName string) (json.RawMessage, bool, error)
}

// findClear returns the id of the most recent `clear` event on agentUUID's
// log with id <= max (max == 0 means unbounded), or 0 if none.
func findClear(ctx context.Context, src EventSource, agentUUID string, max int64) (int64, error) {
	id, err := src.FindLastByKind(ctx, agentUUID, eventstore.KindClear, max)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// BuildPlan constructs the ordered list of Ranges describing which slice of
// which ancestor's log contributes to leafUUID's conversation (spec §4.4
// steps 1-3).
func BuildPlan(ctx context.Context, agents AgentSource, events EventSource, leafUUID string) ([]Range, error) {
	type link struct {
		uuid          string
		forkMessageID int64
	}

	var chain []link
	cursor := leafUUID
	for {
		agent, err := agents.Get(ctx, cursor)
		if err != nil {
			return nil, ikerr.New(ikerr.InvalidArg, "Parent not found")
		}
		chain = append(chain, link{uuid: agent.UUID, forkMessageID: agent.ForkMessageID})
		if agent.ParentUUID == nil {
			break
		}
		cursor = *agent.ParentUUID
	}
	// chain is leaf-first; reverse to root-first per spec step 1.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	var plan []Range
	// Ancestor contributions: for each adjacent pair (A, child_of_A), A's
	// slice ends at child_of_A's fork point.
	for i := 0; i < len(chain)-1; i++ {
		ancestor := chain[i]
		child := chain[i+1]
		clearID, err := findClear(ctx, events, ancestor.uuid, child.forkMessageID)
		if err != nil {
			return nil, err
		}
		plan = append(plan, Range{AgentUUID: ancestor.uuid, StartExclusive: clearID, EndInclusive: child.forkMessageID})
	}

	// Leaf's own contribution: from its most recent clear to the end.
	leaf := chain[len(chain)-1]
	clearID, err := findClear(ctx, events, leaf.uuid, 0)
	if err != nil {
		return nil, err
	}
	plan = append(plan, Range{AgentUUID: leaf.uuid, StartExclusive: clearID, EndInclusive: 0})

	return plan, nil
}
