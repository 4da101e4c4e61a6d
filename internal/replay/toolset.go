package replay

import (
	"context"
	"encoding/json"

	"github.com/dohr-michael/ikigai/internal/eventstore"
)

// RestoreToolset recomputes agentUUID's toolset filter per spec §4.4: the
// most recent `command` event with data.command == "toolset" wins; absent
// that, fall back to the agent's own `fork` event's data.toolset_filter
// array (inheriting from parent). A later `clear` does not reset the
// toolset filter.
func RestoreToolset(ctx context.Context, events EventSource, agentUUID string) ([]string, error) {
	data, ok, err := events.FindMostRecentCommand(ctx, agentUUID, "toolset")
	if err != nil {
		return nil, err
	}
	if ok {
		return extractFilter(data, "toolset_filter"), nil
	}

	evs, err := events.QueryRange(ctx, agentUUID, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range evs {
		if e.Kind == eventstore.KindFork {
			return extractFilter(e.Data, "toolset_filter"), nil
		}
	}
	return nil, nil
}

// extractFilter pulls a []string out of data[key]. Non-string elements are
// skipped; a present-but-non-array value yields an empty (not nil) filter so
// callers can distinguish "restored, empty" from "nothing to restore";
// an empty array likewise yields an empty filter (no active filter).
func extractFilter(data []byte, key string) []string {
	if len(data) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	raw, ok := payload[key]
	if !ok {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
