package edit

import (
	"bytes"
	"slices"
)

// Buffer is a strain's private, growable copy of the reference window.
type Buffer struct {
	seq []byte
}

// NewBuffer copies src into a new buffer.
func NewBuffer(src []byte) *Buffer {
	return &Buffer{seq: bytes.Clone(src)}
}

// Len returns the current length.
func (b *Buffer) Len() int {
	return len(b.seq)
}

// Bytes returns the buffer contents. The slice is only valid until the next
// Apply.
func (b *Buffer) Bytes() []byte {
	return b.seq
}

func (b *Buffer) String() string {
	return string(b.seq)
}

// Apply splices e into the buffer and reports whether it did. Edits whose
// anchor lies outside [0, Len()) fall outside the window and are skipped.
// A consumed span running past the end is cut at the end.
func (b *Buffer) Apply(e Edit) bool {
	if e.Anchor < 0 || e.Anchor >= len(b.seq) {
		return false
	}

	at := min(e.At, len(b.seq))
	end := min(at+e.Consume, len(b.seq))
	b.seq = slices.Replace(b.seq, at, end, e.Insert...)
	return true
}

// ApplyAll applies edits in order and returns how many were applied and how
// many were skipped as out of window.
func (b *Buffer) ApplyAll(edits []Edit) (applied, skipped int) {
	for _, e := range edits {
		if b.Apply(e) {
			applied++
		} else {
			skipped++
		}
	}
	return applied, skipped
}
