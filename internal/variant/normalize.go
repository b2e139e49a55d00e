package variant

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/strain-seq/internal/table"
)

// Default column names of an Ensembl variant table export.
const (
	ColLocation = "Location"
	ColRef      = "Ref."
	ColClass    = "Class"
)

// Columns names the table columns a Normalizer reads.
type Columns struct {
	Location string
	Ref      string
	Class    string
}

// DefaultColumns returns the Ensembl export column names.
func DefaultColumns() Columns {
	return Columns{Location: ColLocation, Ref: ColRef, Class: ColClass}
}

// MetadataColumns lists the non-strain columns of an Ensembl export. Any
// other column is taken to hold strain alleles.
var MetadataColumns = []string{
	"Variant ID", ColLocation, ColClass, "Source", "Evidence",
	"Conseq. Type", ColRef, "Alleles", "MAF", "Genes",
}

var (
	// ErrBadLocation is returned for a location that is not "<chrom>:<pos>".
	ErrBadLocation = errors.New("unparsable location")
	// ErrMissingColumn is returned when the row has no value for a column.
	ErrMissingColumn = errors.New("column not present")
	// ErrAlleleEncoding is returned for alleles outside the nucleotide alphabet.
	ErrAlleleEncoding = errors.New("unexpected allele encoding")
)

// RowError is a row-level problem. The row is dropped for the strain being
// normalized; processing continues.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q (%q): %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Normalizer builds Records from table rows.
type Normalizer struct {
	cols Columns
}

// NewNormalizer creates a normalizer reading the given columns. Empty names
// fall back to the defaults.
func NewNormalizer(cols Columns) *Normalizer {
	def := DefaultColumns()
	if cols.Location == "" {
		cols.Location = def.Location
	}
	if cols.Ref == "" {
		cols.Ref = def.Ref
	}
	if cols.Class == "" {
		cols.Class = def.Class
	}
	return &Normalizer{cols: cols}
}

// Columns returns the column names in use.
func (n *Normalizer) Columns() Columns {
	return n.cols
}

// Normalize builds the Record for one strain from one row. The boolean is
// false when the row makes no change for that strain: the allele is a
// no-call ("." or "|"), empty, or the same as the reference.
//
// A *RowError means the row cannot be used. An error wrapping
// ErrAlleleEncoding means the strain's allele is malformed.
func (n *Normalizer) Normalize(row table.Row, strain string) (Record, bool, error) {
	loc, ok := row.Get(n.cols.Location)
	if !ok {
		return Record{}, false, &RowError{Line: row.Line, Column: n.cols.Location, Err: ErrMissingColumn}
	}
	chrom, pos, err := ParseLocation(loc)
	if err != nil {
		return Record{}, false, &RowError{Line: row.Line, Column: n.cols.Location, Value: loc, Err: err}
	}

	raw, ok := row.Get(strain)
	if !ok {
		return Record{}, false, &RowError{Line: row.Line, Column: strain, Err: ErrMissingColumn}
	}
	allele := strings.ToUpper(strings.TrimSpace(raw))
	if IsNoCall(allele) {
		return Record{}, false, nil
	}

	refRaw, _ := row.Get(n.cols.Ref)
	ref := strings.ToUpper(strings.TrimSpace(refRaw))
	if allele == ref {
		return Record{}, false, nil
	}
	refKnown := !isUnknownRef(ref)
	if !refKnown {
		ref = ""
	}

	if allele != "-" && !isNucleotides(allele) {
		return Record{}, false, fmt.Errorf("row %d, strain %s, allele %q: %w", row.Line, strain, raw, ErrAlleleEncoding)
	}

	label, _ := row.Get(n.cols.Class)

	return Record{
		Chrom:    chrom,
		Pos:      pos,
		Ref:      ref,
		RefKnown: refKnown,
		Allele:   allele,
		Class:    classify(label, refKnown, allele),
		Line:     row.Line,
	}, true, nil
}

// classify picks the variant class. A "-" allele is always a deletion.
func classify(label string, refKnown bool, allele string) Class {
	if allele == "-" {
		return Deletion
	}
	l := strings.ToLower(label)
	if strings.Contains(l, "insertion") || !refKnown {
		return Insertion
	}
	switch l {
	case "snp", "snv", "substitution":
		return Substitution
	}
	return Unspecified
}

// IsNoCall reports whether an allele means "same as reference".
func IsNoCall(allele string) bool {
	return allele == "" || allele == "." || allele == "|"
}

func isUnknownRef(ref string) bool {
	switch ref {
	case "", "-", ".", "NAN", "NA", "N/A":
		return true
	}
	return false
}

// isNucleotides reports whether s holds only IUPAC nucleotide codes.
func isNucleotides(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T', 'U', 'N',
			'R', 'Y', 'S', 'W', 'K', 'M', 'B', 'D', 'H', 'V':
		default:
			return false
		}
	}
	return true
}

// ParseLocation splits a "<chrom>:<pos>" location. Ensembl ranges such as
// "6:20239720-20239722" yield their start position.
func ParseLocation(loc string) (chrom string, pos int64, err error) {
	chrom, rest, found := strings.Cut(strings.TrimSpace(loc), ":")
	if !found || chrom == "" {
		return "", 0, ErrBadLocation
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	pos, err = strconv.ParseInt(strings.ReplaceAll(rest, ",", ""), 10, 64)
	if err != nil || pos < 0 {
		return "", 0, ErrBadLocation
	}
	return chrom, pos, nil
}
