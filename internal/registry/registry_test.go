package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusConstants(t *testing.T) {
	require.Equal(t, Status("running"), StatusRunning)
	require.Equal(t, Status("dead"), StatusDead)
}

func TestAgentInvariantShape(t *testing.T) {
	parent := "parent-uuid"
	a := Agent{UUID: "child-uuid", ParentUUID: &parent, ForkMessageID: 12, Status: StatusRunning}
	require.NotNil(t, a.ParentUUID)
	require.Greater(t, a.ForkMessageID, int64(0))
}
