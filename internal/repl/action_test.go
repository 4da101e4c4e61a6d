package repl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInputPlainRunes(t *testing.T) {
	actions, rest := ParseInput([]byte("hi"))
	require.Nil(t, rest)
	require.Len(t, actions, 2)
	require.Equal(t, ActionInsertRune, actions[0].Kind)
	require.Equal(t, 'h', actions[0].Rune)
	require.Equal(t, 'i', actions[1].Rune)
}

func TestParseInputEnterIsSubmit(t *testing.T) {
	actions, _ := ParseInput([]byte("\r"))
	require.Equal(t, []Action{{Kind: ActionSubmit}}, actions)
}

func TestParseInputBackspaceAndTab(t *testing.T) {
	actions, _ := ParseInput([]byte{0x7f, '\t'})
	require.Equal(t, ActionBackspace, actions[0].Kind)
	require.Equal(t, ActionTab, actions[1].Kind)
}

func TestParseInputLegacyArrowKeys(t *testing.T) {
	actions, _ := ParseInput([]byte("\x1b[A\x1b[B\x1b[C\x1b[D"))
	require.Equal(t, []ActionKind{ActionCursorUp, ActionCursorDown, ActionCursorRight, ActionCursorLeft},
		kinds(actions))
}

func TestParseInputBareTrailingEscapeIsHeldBack(t *testing.T) {
	actions, rest := ParseInput([]byte{0x1b})
	// A bare trailing ESC is ambiguous with a truncated sequence, so it's
	// held back as an incomplete sequence rather than fired immediately.
	require.Empty(t, actions)
	require.Equal(t, []byte{0x1b}, rest)
}

func TestParseInputEscapeFollowedByOtherByteIsInterrupt(t *testing.T) {
	actions, rest := ParseInput([]byte("\x1bq"))
	require.Nil(t, rest)
	require.Len(t, actions, 2)
	require.Equal(t, ActionEscape, actions[0].Kind)
	require.Equal(t, ActionInsertRune, actions[1].Kind)
}

func TestParseInputCSIuEnterWithShiftIsNewline(t *testing.T) {
	actions, _ := ParseInput([]byte("\x1b[13;2u"))
	require.Equal(t, []Action{{Kind: ActionNewline}}, actions)
}

func TestParseInputCSIuPlainEnterIsSubmit(t *testing.T) {
	actions, _ := ParseInput([]byte("\x1b[13;1u"))
	require.Equal(t, []Action{{Kind: ActionSubmit}}, actions)
}

func TestParseInputTildeSequences(t *testing.T) {
	actions, _ := ParseInput([]byte("\x1b[3~\x1b[5~\x1b[6~"))
	require.Equal(t, []ActionKind{ActionDelete, ActionPageUp, ActionPageDown}, kinds(actions))
}

func TestParseInputIncompleteEscapeIsHeldBack(t *testing.T) {
	actions, rest := ParseInput([]byte("\x1b["))
	require.Empty(t, actions)
	require.Equal(t, []byte("\x1b["), rest)
}

func TestParseInputCtrlWIsWordDelete(t *testing.T) {
	actions, _ := ParseInput([]byte{0x17})
	require.Equal(t, []Action{{Kind: ActionWordDelete}}, actions)
}

func TestParseInputMultibyteRune(t *testing.T) {
	actions, rest := ParseInput([]byte("café"))
	require.Nil(t, rest)
	require.Len(t, actions, 4)
	require.Equal(t, 'é', actions[3].Rune)
}

func kinds(actions []Action) []ActionKind {
	out := make([]ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}
