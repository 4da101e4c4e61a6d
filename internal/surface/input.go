package surface

// InputBuffer is the editable input line of spec §4.9: a UTF-8 string with
// a grapheme-aware cursor tracked as a cluster index (not a byte offset),
// so every motion/edit operation below naturally respects multi-byte and
// multi-codepoint clusters.
type InputBuffer struct {
	content      string
	cursor       int // cluster index, 0..len(clusters)
	preferredCol int // grapheme column within line, preserved across vertical moves
}

// NewInputBuffer returns an empty input buffer.
func NewInputBuffer() *InputBuffer {
	return &InputBuffer{}
}

// Content returns the current buffer text.
func (b *InputBuffer) Content() string { return b.content }

// Reset clears the buffer and its cursor, e.g. after submitting a line.
func (b *InputBuffer) Reset() {
	b.content = ""
	b.cursor = 0
	b.preferredCol = 0
}

// Cursor returns the cursor's grapheme-cluster index.
func (b *InputBuffer) Cursor() int { return b.cursor }

func (b *InputBuffer) clusters() []string { return clustersOf(b.content) }

func (b *InputBuffer) byteOffsetOf(clusterIdx int) int {
	cs := b.clusters()
	if clusterIdx > len(cs) {
		clusterIdx = len(cs)
	}
	n := 0
	for i := 0; i < clusterIdx; i++ {
		n += len(cs[i])
	}
	return n
}

// InsertRune inserts a single codepoint at the cursor and advances it.
func (b *InputBuffer) InsertRune(r rune) {
	b.insertString(string(r))
}

// InsertNewline inserts a line break at the cursor.
func (b *InputBuffer) InsertNewline() {
	b.insertString("\n")
}

func (b *InputBuffer) insertString(s string) {
	off := b.byteOffsetOf(b.cursor)
	b.content = b.content[:off] + s + b.content[off:]
	b.cursor += len(clustersOf(s))
	b.syncPreferredCol()
}

// Backspace removes the grapheme cluster immediately left of the cursor.
func (b *InputBuffer) Backspace() {
	if b.cursor == 0 {
		return
	}
	cs := b.clusters()
	off := b.byteOffsetOf(b.cursor - 1)
	end := off + len(cs[b.cursor-1])
	b.content = b.content[:off] + b.content[end:]
	b.cursor--
	b.syncPreferredCol()
}

// Delete removes the grapheme cluster immediately right of the cursor.
func (b *InputBuffer) Delete() {
	cs := b.clusters()
	if b.cursor >= len(cs) {
		return
	}
	off := b.byteOffsetOf(b.cursor)
	end := off + len(cs[b.cursor])
	b.content = b.content[:off] + b.content[end:]
	b.syncPreferredCol()
}

// CursorLeft moves the cursor back one grapheme cluster.
func (b *InputBuffer) CursorLeft() {
	if b.cursor > 0 {
		b.cursor--
	}
	b.syncPreferredCol()
}

// CursorRight moves the cursor forward one grapheme cluster.
func (b *InputBuffer) CursorRight() {
	if b.cursor < len(b.clusters()) {
		b.cursor++
	}
	b.syncPreferredCol()
}

// CursorLineStart moves the cursor to the first cluster of its current line.
func (b *InputBuffer) CursorLineStart() {
	b.cursor = lineStartClusterFor(b.clusters(), b.cursor)
	b.syncPreferredCol()
}

// CursorUp moves the cursor to the preferred column of the previous line,
// clamping to that line's length when it's shorter. A no-op on the first
// line.
func (b *InputBuffer) CursorUp() {
	cs := b.clusters()
	curStart := lineStartClusterFor(cs, b.cursor)
	if curStart == 0 {
		return
	}
	prevNewline := curStart - 1
	prevStart := lineStartClusterFor(cs, prevNewline)
	prevLen := prevNewline - prevStart
	col := b.preferredCol
	if col > prevLen {
		col = prevLen
	}
	b.cursor = prevStart + col
}

// CursorDown moves the cursor to the preferred column of the next line,
// clamping to that line's length when it's shorter. A no-op on the last
// line.
func (b *InputBuffer) CursorDown() {
	cs := b.clusters()
	curEnd := lineEndClusterFor(cs, b.cursor)
	if curEnd >= len(cs) {
		return
	}
	nextStart := curEnd + 1
	nextEnd := lineEndClusterFor(cs, nextStart)
	nextLen := nextEnd - nextStart
	col := b.preferredCol
	if col > nextLen {
		col = nextLen
	}
	b.cursor = nextStart + col
}

// DeleteWordBackward implements readline-style word deletion: skip
// trailing whitespace, then delete one contiguous run of either word
// characters (alnum + '_') or non-word non-whitespace characters.
func (b *InputBuffer) DeleteWordBackward() {
	cs := b.clusters()
	i := b.cursor
	for i > 0 && isSpaceCluster(cs[i-1]) {
		i--
	}
	if i > 0 {
		r, _ := decodeFirstRune(cs[i-1])
		wantWord := isWordRune(r)
		for i > 0 && !isSpaceCluster(cs[i-1]) {
			rr, _ := decodeFirstRune(cs[i-1])
			if isWordRune(rr) != wantWord {
				break
			}
			i--
		}
	}
	startOff := b.byteOffsetOf(i)
	endOff := b.byteOffsetOf(b.cursor)
	b.content = b.content[:startOff] + b.content[endOff:]
	b.cursor = i
	b.syncPreferredCol()
}

func (b *InputBuffer) syncPreferredCol() {
	b.preferredCol = b.cursor - lineStartClusterFor(b.clusters(), b.cursor)
}

func lineStartClusterFor(cs []string, idx int) int {
	for i := idx - 1; i >= 0; i-- {
		if cs[i] == "\n" {
			return i + 1
		}
	}
	return 0
}

func lineEndClusterFor(cs []string, idx int) int {
	for i := idx; i < len(cs); i++ {
		if cs[i] == "\n" {
			return i
		}
	}
	return len(cs)
}

func decodeFirstRune(cluster string) (rune, int) {
	for _, r := range cluster {
		return r, len(cluster)
	}
	return 0, 0
}
