package agentsession

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/registry"
)

type fakeStore struct {
	agents map[string]*registry.Agent
	events map[string][]eventstore.Event
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{agents: map[string]*registry.Agent{}, events: map[string][]eventstore.Event{}}
}

func (f *fakeStore) Get(_ context.Context, uuid string) (*registry.Agent, error) {
	a, ok := f.agents[uuid]
	if !ok {
		return nil, ikerrNotFound
	}
	return a, nil
}

var ikerrNotFound = errorString("agent not found")

type errorString string

func (e errorString) Error() string { return string(e) }

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
	return nil, false, nil
}

func TestRestoreRebuildsSessionFromReplay(t *testing.T) {
	f := newFakeStore()
	name := "root"
	f.agents["R"] = &registry.Agent{UUID: "R", Name: &name, Status: registry.StatusRunning, Model: "gpt-5", Provider: "openai", ThinkingLevel: "medium"}
	f.append("R", eventstore.KindUser, "hello", nil)
	f.append("R", eventstore.KindAssistant, "hi there", nil)

	s, err := Restore(context.Background(), f, f, "R", nil)
	require.NoError(t, err)
	require.Equal(t, "root", s.Name)
	require.Equal(t, "gpt-5", s.Model)
	require.False(t, s.Dead())
	texts := []string{}
	for _, m := range s.Messages() {
		texts = append(texts, m.Text())
	}
	require.Equal(t, []string{"hello", "hi there"}, texts)
}

func TestRestoreMarksDeadAgentDead(t *testing.T) {
	f := newFakeStore()
	f.agents["R"] = &registry.Agent{UUID: "R", Status: registry.StatusDead}

	s, err := Restore(context.Background(), f, f, "R", nil)
	require.NoError(t, err)
	require.True(t, s.Dead())
}
