// Package edit applies variant records to a strain's copy of the reference
// window.
package edit

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/inodb/strain-seq/internal/variant"
)

// Offset maps a genomic position to a zero-based index into a sequence
// whose first base sits at start. The result is not clamped.
func Offset(pos, start int64) int64 {
	return pos - start
}

// InsertionMode selects where an insertion's bases go relative to the base
// at the variant position (the anchor).
type InsertionMode int

const (
	// InsertAfterAnchor keeps the anchor base and inserts after it.
	InsertAfterAnchor InsertionMode = iota
	// InsertBeforeAnchor inserts at the anchor, shifting it right.
	InsertBeforeAnchor
)

func (m InsertionMode) String() string {
	if m == InsertBeforeAnchor {
		return "before-anchor"
	}
	return "after-anchor"
}

// ParseInsertionMode parses "after-anchor" (the default, also "after" or "")
// or "before-anchor" ("before").
func ParseInsertionMode(s string) (InsertionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "after", "after-anchor":
		return InsertAfterAnchor, nil
	case "before", "before-anchor":
		return InsertBeforeAnchor, nil
	}
	return InsertAfterAnchor, fmt.Errorf("unknown insertion mode %q (want after-anchor or before-anchor)", s)
}

// Edit is a single splice of a sequence buffer, expressed in offsets of the
// unedited reference window.
type Edit struct {
	Anchor  int    // offset of the variant position; bounds-checked
	At      int    // splice start
	Consume int    // bases removed from At
	Insert  []byte // bases placed at At
	Class   variant.Class
	Line    int // source line of the variant
}

// Delta returns the signed length change the edit makes when its span lies
// inside the buffer.
func (e Edit) Delta() int {
	return len(e.Insert) - e.Consume
}

// Order returns the records sorted by position, highest first. Records
// sharing a position keep their input order.
//
// An edit at offset p only moves bases at offsets >= p, so applying edits
// from the highest position down leaves every pending offset valid.
func Order(records []variant.Record) []variant.Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b variant.Record) int {
		return cmp.Compare(b.Pos, a.Pos)
	})
	return out
}

// Plan converts records into an ordered edit list. All offsets are computed
// against the unedited window starting at start.
func Plan(records []variant.Record, start int64, mode InsertionMode) []Edit {
	ordered := Order(records)
	edits := make([]Edit, 0, len(ordered))
	for _, r := range ordered {
		edits = append(edits, editFor(r, start, mode))
	}
	return edits
}

func editFor(r variant.Record, start int64, mode InsertionMode) Edit {
	anchor := int(Offset(r.Pos, start))
	e := Edit{Anchor: anchor, At: anchor, Class: r.Class, Line: r.Line}

	switch {
	case r.IsDeletion():
		e.Consume = r.RefLen()
	case r.IsInsertion():
		if mode == InsertAfterAnchor {
			e.At = anchor + 1
		}
		e.Insert = []byte(r.Allele)
	default:
		e.Consume = r.RefLen()
		e.Insert = []byte(r.Allele)
	}
	return e
}
