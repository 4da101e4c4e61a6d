package replay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/registry"
)

// fakeStore is an in-memory stand-in for both the Agent Registry and the
// Event Store, letting the replay engine be tested without Postgres.
type fakeStore struct {
	agents map[string]*registry.Agent
	events map[string][]eventstore.Event // agentUUID -> log in id order
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{agents: map[string]*registry.Agent{}, events: map[string][]eventstore.Event{}}
}

func (f *fakeStore) Get(_ context.Context, uuid string) (*registry.Agent, error) {
	a, ok := f.agents[uuid]
	if !ok {
		return nil, errNotFound
	}
	return a, nil
}

var errNotFound = errors.New("agent not found")

func (f *fakeStore) addAgent(uuid string, parent *string, forkMessageID int64) {
	f.agents[uuid] = &registry.Agent{UUID: uuid, ParentUUID: parent, ForkMessageID: forkMessageID, Status: registry.StatusRunning}
}

func (f *fakeStore) append(uuid string, kind eventstore.Kind, content string, data any) int64 {
	f.nextID++
	var c *string
	if content != "" {
		c = &content
	}
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	f.events[uuid] = append(f.events[uuid], eventstore.Event{ID: f.nextID, AgentUUID: &uuid, Kind: kind, Content: c, Data: raw})
	return f.nextID
}

func (f *fakeStore) QueryRange(_ context.Context, agentUUID string, startExclusive, endInclusive int64) ([]eventstore.Event, error) {
	var out []eventstore.Event
	for _, e := range f.events[agentUUID] {
		if e.ID > startExclusive && (endInclusive == 0 || e.ID <= endInclusive) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) FindLastByKind(_ context.Context, agentUUID string, kind eventstore.Kind, maxID int64) (int64, error) {
	var best int64
	for _, e := range f.events[agentUUID] {
		if e.Kind != kind {
			continue
		}
		if maxID != 0 && e.ID > maxID {
			continue
		}
		if e.ID > best {
			best = e.ID
		}
	}
	return best, nil
}

func (f *fakeStore) FindMostRecentCommand(_ context.Context, agentUUID, commandName string) (json.RawMessage, bool, error) {
	var best *eventstore.Event
	for i := range f.events[agentUUID] {
		e := &f.events[agentUUID][i]
		if e.Kind != eventstore.KindCommand {
			continue
		}
		var payload struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(e.Data, &payload)
		if payload.Command == commandName {
			best = e
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best.Data, true, nil
}

func TestScenarioA_ForkLineage(t *testing.T) {
	f := newFakeStore()
	f.addAgent("R", nil, 0)
	f.append("R", eventstore.KindUser, "m1", nil)
	forkAt := f.events["R"][len(f.events["R"])-1].ID
	f.addAgent("C", strPtr("R"), forkAt)
	f.append("R", eventstore.KindUser, "m2", nil)
	f.append("C", eventstore.KindUser, "m3", nil)

	ctx := context.Background()

	planC, err := BuildPlan(ctx, f, f, "C")
	require.NoError(t, err)
	resC, err := Execute(ctx, f, planC)
	require.NoError(t, err)
	require.Equal(t, []string{"m1", "m3"}, texts(resC))

	planR, err := BuildPlan(ctx, f, f, "R")
	require.NoError(t, err)
	resR, err := Execute(ctx, f, planR)
	require.NoError(t, err)
	require.Equal(t, []string{"m1", "m2"}, texts(resR))
}

func TestScenarioB_ClearBoundary(t *testing.T) {
	f := newFakeStore()
	f.addAgent("R", nil, 0)
	f.append("R", eventstore.KindUser, "a", nil)
	f.append("R", eventstore.KindClear, "", nil)
	f.append("R", eventstore.KindUser, "b", nil)

	ctx := context.Background()
	plan, err := BuildPlan(ctx, f, f, "R")
	require.NoError(t, err)
	res, err := Execute(ctx, f, plan)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, texts(res))
}

func TestToolsetRestore_CommandWins(t *testing.T) {
	f := newFakeStore()
	f.addAgent("R", nil, 0)
	f.append("R", eventstore.KindFork, "", map[string]any{"toolset_filter": []string{"x"}})
	f.append("R", eventstore.KindCommand, "", map[string]any{"command": "toolset", "toolset_filter": []string{"a", "b", "c"}})

	filter, err := RestoreToolset(context.Background(), f, "R")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, filter)
}

func TestToolsetRestore_FallsBackToFork(t *testing.T) {
	f := newFakeStore()
	f.addAgent("C", strPtr("R"), 1)
	f.append("C", eventstore.KindFork, "", map[string]any{"toolset_filter": []string{}})

	filter, err := RestoreToolset(context.Background(), f, "C")
	require.NoError(t, err)
	require.Len(t, filter, 0)
}

func TestReplayDeterministic(t *testing.T) {
	f := newFakeStore()
	f.addAgent("R", nil, 0)
	f.append("R", eventstore.KindUser, "hello", nil)
	f.append("R", eventstore.KindAssistant, "hi there", nil)

	ctx := context.Background()
	plan1, err := BuildPlan(ctx, f, f, "R")
	require.NoError(t, err)
	res1, err := Execute(ctx, f, plan1)
	require.NoError(t, err)

	plan2, err := BuildPlan(ctx, f, f, "R")
	require.NoError(t, err)
	res2, err := Execute(ctx, f, plan2)
	require.NoError(t, err)

	require.Equal(t, texts(res1), texts(res2))
}

func texts(r Result) []string {
	var out []string
	for _, m := range r.Messages {
		out = append(out, m.Text())
	}
	return out
}

func strPtr(s string) *string { return &s }
