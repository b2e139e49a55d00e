package variant

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/strain-seq/internal/table"
)

func parseTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Parse(strings.NewReader(csv), ',')
	require.NoError(t, err)
	return tbl
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		loc   string
		chrom string
		pos   int64
		ok    bool
	}{
		{"6:20239716", "6", 20239716, true},
		{"6:20239720-20239722", "6", 20239720, true},
		{"X:1,234", "X", 1234, true},
		{" 6:100 ", "6", 100, true},
		{"20239716", "", 0, false},
		{":100", "", 0, false},
		{"6:abc", "", 0, false},
		{"6:", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			chrom, pos, err := ParseLocation(tt.loc)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrBadLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.chrom, chrom)
			assert.Equal(t, tt.pos, pos)
		})
	}
}

func TestNormalize_Classes(t *testing.T) {
	tbl := parseTable(t, `Location,Class,Ref.,S
6:100,SNP,A,g
6:101,deletion,ACG,-
6:102,insertion,-,TT
6:103,,,C
6:104,indel,AT,GCC
6:105,substitution,C,CC
6:106,Insertion,A,T
`)
	n := NewNormalizer(DefaultColumns())

	want := []struct {
		class    Class
		ref      string
		refKnown bool
		allele   string
		refLen   int
	}{
		{Substitution, "A", true, "G", 1},
		{Deletion, "ACG", true, "-", 3},
		{Insertion, "", false, "TT", 1},
		{Insertion, "", false, "C", 1},
		{Unspecified, "AT", true, "GCC", 2},
		{Substitution, "C", true, "CC", 1},
		{Insertion, "A", true, "T", 1},
	}

	require.Equal(t, len(want), tbl.Len())
	for i, row := range tbl.Rows {
		rec, ok, err := n.Normalize(row, "S")
		require.NoError(t, err, "row %d", i)
		require.True(t, ok, "row %d", i)

		assert.Equal(t, want[i].class, rec.Class, "row %d class", i)
		assert.Equal(t, want[i].ref, rec.Ref, "row %d ref", i)
		assert.Equal(t, want[i].refKnown, rec.RefKnown, "row %d refKnown", i)
		assert.Equal(t, want[i].allele, rec.Allele, "row %d allele", i)
		assert.Equal(t, want[i].refLen, rec.RefLen(), "row %d refLen", i)
		assert.Equal(t, "6", rec.Chrom)
		assert.Equal(t, int64(100+i), rec.Pos)
		assert.Equal(t, i+2, rec.Line)
	}
}

func TestNormalize_NoOps(t *testing.T) {
	tbl := parseTable(t, `Location,Ref.,S
6:100,A,.
6:101,A,|
6:102,A,
6:103,A,A
6:104,acg,ACG
6:105,-,-
6:106,A,&nbsp;|&nbsp;
`)
	n := NewNormalizer(Columns{})

	for _, row := range tbl.Rows {
		_, ok, err := n.Normalize(row, "S")
		require.NoError(t, err, "line %d", row.Line)
		assert.False(t, ok, "line %d should be a no-op", row.Line)
	}
}

func TestNormalize_RowErrors(t *testing.T) {
	tbl := parseTable(t, `Location,Ref.,S
6-100,A,G
6:100,A
`)
	n := NewNormalizer(DefaultColumns())

	_, ok, err := n.Normalize(tbl.Rows[0], "S")
	assert.False(t, ok)
	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Line)
	assert.ErrorIs(t, err, ErrBadLocation)

	_, _, err = n.Normalize(tbl.Rows[1], "S")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, _, err = n.Normalize(tbl.Rows[0], "NOT/ACOLUMN")
	require.True(t, errors.As(err, &re))
}

func TestNormalize_AlleleEncoding(t *testing.T) {
	tbl := parseTable(t, "Location,Ref.,S\n6:100,A,G@\n")
	n := NewNormalizer(DefaultColumns())

	_, ok, err := n.Normalize(tbl.Rows[0], "S")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrAlleleEncoding)

	var re *RowError
	assert.False(t, errors.As(err, &re), "encoding errors are not row-level")
}

func TestNormalizer_CustomColumns(t *testing.T) {
	tbl := parseTable(t, "Loc,Reference,Type,S\n6:100,A,deletion,-\n")
	n := NewNormalizer(Columns{Location: "Loc", Ref: "Reference", Class: "Type"})

	rec, ok, err := n.Normalize(tbl.Rows[0], "S")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.IsDeletion())
	assert.Equal(t, "Loc", n.Columns().Location)
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "substitution", Substitution.String())
	assert.Equal(t, "insertion", Insertion.String())
	assert.Equal(t, "deletion", Deletion.String())
	assert.Equal(t, "unspecified", Unspecified.String())
}
