package surface

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndCursorAdvance(t *testing.T) {
	b := NewInputBuffer()
	b.InsertRune('h')
	b.InsertRune('i')
	require.Equal(t, "hi", b.Content())
	require.Equal(t, 2, b.Cursor())
}

func TestBackspaceRemovesClusterLeftOfCursor(t *testing.T) {
	b := NewInputBuffer()
	b.InsertRune('h')
	b.InsertRune('i')
	b.Backspace()
	require.Equal(t, "h", b.Content())
	require.Equal(t, 1, b.Cursor())
}

func TestBackspaceAtStartIsNoop(t *testing.T) {
	b := NewInputBuffer()
	b.Backspace()
	require.Equal(t, "", b.Content())
	require.Equal(t, 0, b.Cursor())
}

func TestDeleteRemovesClusterRightOfCursor(t *testing.T) {
	b := NewInputBuffer()
	b.InsertRune('h')
	b.InsertRune('i')
	b.CursorLeft()
	b.Delete()
	require.Equal(t, "h", b.Content())
}

func TestCursorLeftRightClamp(t *testing.T) {
	b := NewInputBuffer()
	b.InsertRune('a')
	b.CursorRight()
	require.Equal(t, 1, b.Cursor())
	b.CursorLeft()
	b.CursorLeft()
	require.Equal(t, 0, b.Cursor())
}

func TestCursorLineStart(t *testing.T) {
	b := NewInputBuffer()
	for _, r := range "ab\ncd" {
		b.InsertRune(r)
	}
	b.CursorLineStart()
	require.Equal(t, 3, b.Cursor())
}

func TestCursorUpDownClampsToShorterLine(t *testing.T) {
	b := NewInputBuffer()
	for _, r := range "ab\nc" {
		b.InsertRune(r)
	}
	// cursor is at end, column 1 on the "c" line
	b.CursorUp()
	require.Equal(t, 1, b.Cursor()) // column 1 of "ab" is between a and b

	b.CursorDown()
	require.Equal(t, 4, b.Cursor()) // back to end of "c" (clamped to length 1)
}

func TestDeleteWordBackwardSkipsTrailingWhitespaceThenOneRun(t *testing.T) {
	b := NewInputBuffer()
	for _, r := range "hello world  " {
		b.InsertRune(r)
	}
	b.DeleteWordBackward()
	require.Equal(t, "hello ", b.Content())
}

func TestDeleteWordBackwardStopsAtRunBoundary(t *testing.T) {
	b := NewInputBuffer()
	for _, r := range "foo=bar" {
		b.InsertRune(r)
	}
	b.DeleteWordBackward()
	require.Equal(t, "foo=", b.Content())
}

func TestResetClearsContentAndCursor(t *testing.T) {
	b := NewInputBuffer()
	for _, r := range "hello" {
		b.InsertRune(r)
	}
	b.Reset()
	require.Equal(t, "", b.Content())
	require.Equal(t, 0, b.Cursor())
}
