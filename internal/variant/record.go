// Package variant turns variant table rows into per-strain variant records.
package variant

// Class describes how a variant is applied to a sequence.
type Class int

// Variant classes.
const (
	Unspecified Class = iota
	Substitution
	Insertion
	Deletion
)

// String returns the lower-case class name.
func (c Class) String() string {
	switch c {
	case Substitution:
		return "substitution"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	default:
		return "unspecified"
	}
}

// Record is a single strain allele at a genomic position. Records are
// read-only once built.
type Record struct {
	Chrom    string // chromosome from the location column
	Pos      int64  // 1-based genomic position
	Ref      string // reference allele, empty when unknown
	RefKnown bool   // false when the table gives no usable reference allele
	Allele   string // strain allele ("-" for a deletion)
	Class    Class
	Line     int // source line in the variant table
}

// RefLen returns the number of reference bases the record spans when
// editing. Unknown references count as one base.
func (r Record) RefLen() int {
	if !r.RefKnown || len(r.Ref) == 0 {
		return 1
	}
	return len(r.Ref)
}

// IsDeletion returns true if the strain allele is the deletion marker.
func (r Record) IsDeletion() bool {
	return r.Class == Deletion
}

// IsInsertion returns true if the strain allele is inserted without
// consuming reference bases.
func (r Record) IsInsertion() bool {
	return r.Class == Insertion
}
