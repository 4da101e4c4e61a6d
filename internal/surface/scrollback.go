package surface

import (
	"strings"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// Line is one appended scrollback entry plus its cached wrap layout for
// the width last passed to EnsureLayout.
type Line struct {
	Raw           string
	DisplayWidth  int
	PhysicalLines int
}

// Scrollback is the append-only display buffer of spec §4.9: raw line
// bytes plus a cached {display_width, physical_lines} layout per line,
// recomputed only when the terminal width changes.
type Scrollback struct {
	lines []Line
	width int
}

// NewScrollback returns an empty scrollback with no cached layout.
func NewScrollback() *Scrollback {
	return &Scrollback{}
}

// AppendLine adds raw as a new logical line. If a width has already been
// established via EnsureLayout, the new line's layout is computed
// immediately so the cache never holds a stale entry.
func (s *Scrollback) AppendLine(raw string) {
	line := Line{Raw: raw}
	if s.width > 0 {
		line.DisplayWidth = visibleWidth(raw)
		line.PhysicalLines = wrapRows(raw, s.width)
	}
	s.lines = append(s.lines, line)
}

// Lines returns the current lines, including cached layout.
func (s *Scrollback) Lines() []Line {
	return s.lines
}

// Len reports the number of logical lines.
func (s *Scrollback) Len() int { return len(s.lines) }

// EnsureLayout recomputes every line's cached layout for width if it
// differs from the last width passed in; a repeated call with the same
// width is a no-op, satisfying testable property 8 (idempotent layout).
func (s *Scrollback) EnsureLayout(width int) {
	if width == s.width && width != 0 {
		return
	}
	s.width = width
	for i := range s.lines {
		s.lines[i].DisplayWidth = visibleWidth(s.lines[i].Raw)
		s.lines[i].PhysicalLines = wrapRows(s.lines[i].Raw, width)
	}
}

// FindLogicalLineAtPhysicalRow maps a physical (wrapped) row back to the
// logical line index that contains it. Returns OutOfRange if row is
// beyond the last rendered row, or if the cached totals are internally
// inconsistent (the defensive check spec §4.9 calls for).
func (s *Scrollback) FindLogicalLineAtPhysicalRow(row int) (int, error) {
	if row < 0 {
		return 0, ikerr.Newf(ikerr.OutOfRange, "physical row %d is negative", row)
	}
	total := 0
	for i, l := range s.lines {
		if l.PhysicalLines < 0 {
			return 0, ikerr.New(ikerr.OutOfRange, "scrollback layout inconsistent: negative physical line count")
		}
		if row < total+l.PhysicalLines {
			return i, nil
		}
		total += l.PhysicalLines
	}
	return 0, ikerr.Newf(ikerr.OutOfRange, "physical row %d exceeds %d rendered rows", row, total)
}

// wrapRows computes how many terminal rows raw occupies at the given
// width: explicit '\n' forces a new row (and a trailing empty segment
// after a final '\n' still counts as one row, preserving trailing empty
// rows per spec §4.9), and a segment of display width w wraps across
// ceil(w/width) rows (at least one).
func wrapRows(raw string, width int) int {
	if width <= 0 {
		width = 1
	}
	segments := strings.Split(raw, "\n")
	total := 0
	for _, seg := range segments {
		w := visibleWidth(seg)
		rows := (w + width - 1) / width
		if rows == 0 {
			rows = 1
		}
		total += rows
	}
	if total == 0 {
		total = 1
	}
	return total
}
