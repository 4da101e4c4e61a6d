package repl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCommandLine(t *testing.T) {
	name, args := SplitCommandLine("/send abc123 \"hello there\"")
	require.Equal(t, "send", name)
	require.Equal(t, `abc123 "hello there"`, args)
}

func TestSplitCommandLineNoArgs(t *testing.T) {
	name, args := SplitCommandLine("/help")
	require.Equal(t, "help", name)
	require.Equal(t, "", args)
}

func TestCommandRegistryPreservesRegistrationOrder(t *testing.T) {
	reg := NewCommandRegistry()
	reg.Register(Command{Name: "zeta", Description: "last alphabetically, registered first"})
	reg.Register(Command{Name: "alpha", Description: "first alphabetically, registered second"})

	all := reg.All()
	require.Equal(t, "zeta", all[0].Name)
	require.Equal(t, "alpha", all[1].Name)
}

func TestCommandRegistryReplaceKeepsPosition(t *testing.T) {
	reg := NewCommandRegistry()
	reg.Register(Command{Name: "a", Description: "first"})
	reg.Register(Command{Name: "b", Description: "second"})
	reg.Register(Command{Name: "a", Description: "replaced"})

	all := reg.All()
	require.Equal(t, "a", all[0].Name)
	require.Equal(t, "replaced", all[0].Description)
}

func TestHelpTextListsEveryCommandInOrder(t *testing.T) {
	reg := NewCommandRegistry()
	reg.Register(Command{Name: "help", Description: "list commands"})
	reg.Register(Command{Name: "clear", Description: "clear messages"})

	out := helpText(reg)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "/help")
	require.Contains(t, lines[1], "/clear")
}
