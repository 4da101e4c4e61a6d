package mailbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelFor(t *testing.T) {
	require.Equal(t, "mail:abc123", ChannelFor("abc123"))
}

func TestFilterZeroValueMatchesEverything(t *testing.T) {
	var f Filter
	require.Empty(t, f.From)
	require.Zero(t, f.Since)
}
