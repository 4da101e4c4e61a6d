package surface

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendLineBeforeLayoutLeavesLayoutZero(t *testing.T) {
	s := NewScrollback()
	s.AppendLine("hello")
	require.Equal(t, 0, s.Lines()[0].PhysicalLines)
}

func TestEnsureLayoutIsIdempotent(t *testing.T) {
	s := NewScrollback()
	s.AppendLine("a long line that certainly wraps across more than one row")
	s.EnsureLayout(10)
	first := s.Lines()[0].PhysicalLines
	s.EnsureLayout(10)
	require.Equal(t, first, s.Lines()[0].PhysicalLines)
}

func TestEnsureLayoutRecomputesOnWidthChange(t *testing.T) {
	s := NewScrollback()
	s.AppendLine("0123456789012345678901234567890")
	s.EnsureLayout(10)
	wide := s.Lines()[0].PhysicalLines
	s.EnsureLayout(5)
	narrow := s.Lines()[0].PhysicalLines
	require.Greater(t, narrow, wide)
}

func TestExplicitNewlinePreservesTrailingEmptyRow(t *testing.T) {
	s := NewScrollback()
	s.AppendLine("a\n")
	s.EnsureLayout(80)
	require.Equal(t, 2, s.Lines()[0].PhysicalLines)
}

func TestFindLogicalLineAtPhysicalRow(t *testing.T) {
	s := NewScrollback()
	s.AppendLine("first")
	s.AppendLine("second\nwraps")
	s.EnsureLayout(80)

	idx, err := s.FindLogicalLineAtPhysicalRow(0)
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	idx, err = s.FindLogicalLineAtPhysicalRow(1)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = s.FindLogicalLineAtPhysicalRow(99)
	require.Error(t, err)
}

func TestCSISequenceContributesZeroWidth(t *testing.T) {
	require.Equal(t, visibleWidth("abc"), visibleWidth("\x1b[31mabc\x1b[0m"))
}

func TestControlCharContributesZeroWidth(t *testing.T) {
	require.Equal(t, visibleWidth("ab"), visibleWidth("a\tb"))
}
