package reduce

import (
	"errors"
	"fmt"
	"slices"
)

// ErrEditConflict indicates two scheduled edits touch overlapping source spans.
var ErrEditConflict = errors.New("conflicting rewrite edits")

// RewriteBuffer collects textual edits against an immutable source buffer and
// applies them in a single pass. Edits are scheduled with byte offsets into
// the original source; offsets are never adjusted for previously scheduled
// edits, so callers can compute all spans up front from parser positions.
type RewriteBuffer struct {
	src   []byte
	edits []bufferEdit
}

// bufferEdit replaces src[start:end] with text. Inserts use start == end.
type bufferEdit struct {
	start, end int
	text       string
	seq        int // schedule order, preserved for same-offset edits
}

// NewRewriteBuffer returns a RewriteBuffer over src. The slice is retained
// but never mutated; Apply builds a fresh output buffer.
func NewRewriteBuffer(src []byte) *RewriteBuffer {
	return &RewriteBuffer{src: src}
}

// InsertBefore schedules text to be inserted at offset. Multiple insertions
// at the same offset appear in the output in the order they were scheduled.
func (b *RewriteBuffer) InsertBefore(offset int, text string) error {
	if offset < 0 || offset > len(b.src) {
		return fmt.Errorf("insert offset %d outside source of %d bytes", offset, len(b.src))
	}
	b.edits = append(b.edits, bufferEdit{start: offset, end: offset, text: text, seq: len(b.edits)})
	return nil
}

// Replace schedules src[start:end] to be replaced with text.
func (b *RewriteBuffer) Replace(start, end int, text string) error {
	if start < 0 || end < start || end > len(b.src) {
		return fmt.Errorf("replace span [%d,%d) outside source of %d bytes", start, end, len(b.src))
	}
	b.edits = append(b.edits, bufferEdit{start: start, end: end, text: text, seq: len(b.edits)})
	return nil
}

// EditCount returns the number of edits scheduled so far.
func (b *RewriteBuffer) EditCount() int {
	return len(b.edits)
}

// Apply materializes the edited source. Replacement spans must not overlap
// each other, and no insertion may fall strictly inside a replacement span;
// violations return ErrEditConflict and leave no partial output.
func (b *RewriteBuffer) Apply() ([]byte, error) {
	edits := slices.Clone(b.edits)
	slices.SortStableFunc(edits, func(a, c bufferEdit) int {
		if a.start != c.start {
			return a.start - c.start
		}
		// Inserts at the start of a replaced span land before the replacement.
		if (a.end == a.start) != (c.end == c.start) {
			if a.end == a.start {
				return -1
			}
			return 1
		}
		return a.seq - c.seq
	})

	out := make([]byte, 0, len(b.src)+grownEditLen(edits))
	cursor := 0
	for _, e := range edits {
		if e.start < cursor {
			return nil, fmt.Errorf("%w: edit at offset %d overlaps an earlier edit ending at %d",
				ErrEditConflict, e.start, cursor)
		}
		out = append(out, b.src[cursor:e.start]...)
		out = append(out, e.text...)
		cursor = e.end
	}
	out = append(out, b.src[cursor:]...)
	return out, nil
}

func grownEditLen(edits []bufferEdit) int {
	var n int
	for _, e := range edits {
		n += len(e.text)
	}
	return n
}
