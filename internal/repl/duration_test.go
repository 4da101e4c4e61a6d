package repl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSinceAcceptsGoDuration(t *testing.T) {
	now := time.Unix(10_000, 0)
	got, err := ParseSince(now, "5m")
	require.NoError(t, err)
	require.Equal(t, now.Add(-5*time.Minute).Unix(), got)
}

func TestParseSinceAcceptsBareIntegerAsSeconds(t *testing.T) {
	now := time.Unix(10_000, 0)
	got, err := ParseSince(now, "300")
	require.NoError(t, err)
	require.Equal(t, now.Add(-300*time.Second).Unix(), got)
}

func TestParseSinceRejectsEmpty(t *testing.T) {
	_, err := ParseSince(time.Now(), "")
	require.Error(t, err)
}

func TestParseSinceRejectsGarbage(t *testing.T) {
	_, err := ParseSince(time.Now(), "not-a-duration")
	require.Error(t, err)
}

func TestParseSinceRejectsNegativeDuration(t *testing.T) {
	_, err := ParseSince(time.Now(), "-5m")
	require.Error(t, err)
}
