package output

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/strain-seq/internal/reference"
)

func testWindow() *reference.Window {
	return &reference.Window{Assembly: "GRCm39", Chrom: "6", Start: 20239701, Seq: []byte("ACGTACGT")}
}

func TestSequenceWriter_FileName(t *testing.T) {
	sw := NewSequenceWriter("out", "", "", testWindow())

	assert.Equal(t, "A_J_CHR6.txt", sw.FileName("A/J"))
	assert.Equal(t, "129S1_SvImJ_CHR6.txt", sw.FileName("129S1/SvImJ"))
	assert.Equal(t, filepath.Join("out", "CAST_EiJ_CHR6.txt"), sw.Path("CAST/EiJ"))

	sw = NewSequenceWriter("out", FormatFASTA, "window1", nil)
	assert.Equal(t, "A_J_window1.fasta", sw.FileName("A/J"))

	assert.Equal(t, "SEQ", DefaultSuffix(nil))
	assert.Equal(t, "CHRX", DefaultSuffix(&reference.Window{Chrom: "x"}))
}

func TestSequenceWriter_WriteText(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "strains_output")
	sw := NewSequenceWriter(dir, FormatText, "", testWindow())

	path, err := sw.Write("NOD/ShiLtJ", []byte("ACTACCGT"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "NOD_ShiLtJ_CHR6.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ACTACCGT", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSequenceWriter_WriteFASTA(t *testing.T) {
	dir := t.TempDir()
	sw := NewSequenceWriter(dir, FormatFASTA, "", testWindow())

	seq := strings.Repeat("A", 60) + strings.Repeat("C", 10)
	path, err := sw.Write("A/J", []byte(seq))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, ">A/J GRCm39:6:20239701 len=70", lines[0])
	assert.Equal(t, strings.Repeat("A", 60), lines[1])
	assert.Equal(t, strings.Repeat("C", 10), lines[2])
}

func TestWriteFileAtomic_ErrorKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A_J_CHR6.txt")
	require.NoError(t, os.WriteFile(path, []byte("OLD"), 0644))

	err := WriteFileAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "PARTIAL"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OLD", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatText, "TXT": FormatText, "fasta": FormatFASTA, "fa": FormatFASTA} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("bam")
	assert.Error(t, err)
}
