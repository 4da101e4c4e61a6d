package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionShape(t *testing.T) {
	s := Session{ID: 1, Name: "default", CreatedAt: 1700000000}
	require.Nil(t, s.EndedAt)
	require.Equal(t, int64(1), s.ID)
}

func TestSessionEndedAtSettable(t *testing.T) {
	ended := int64(1700000100)
	s := Session{ID: 1, EndedAt: &ended}
	require.NotNil(t, s.EndedAt)
	require.Equal(t, ended, *s.EndedAt)
}
