// Package table reads and writes the tabular variant exports consumed by the
// strain pipeline.
package table

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a fully loaded variant table. It is read-only after Load and may
// be shared between goroutines.
type Table struct {
	Header []string
	Rows   []Row
	index  map[string]int
}

// Row is a single data row of a Table.
type Row struct {
	Line   int      // 1-based line number in the source file
	Fields []string // cleaned cell values
	index  map[string]int
}

// Get returns the value of the named column. The second result is false when
// the table has no such column or the row is too short to hold it.
func (r Row) Get(col string) (string, bool) {
	i, ok := r.index[col]
	if !ok || i >= len(r.Fields) {
		return "", false
	}
	return r.Fields[i], true
}

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(col string) int {
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Load reads a CSV or TSV table from path. Gzipped input is detected from its
// magic bytes. Every column in required must be present in the header.
func Load(path string, required ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open variant table: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return Parse(r, DelimiterFor(path), required...)
}

// Parse reads a delimited table from r. Cell values are passed through
// CleanText.
func Parse(r io.Reader, delim rune, required ...string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 0, Message: "no header line found"}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{
		Header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = CleanText(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}

	for _, col := range required {
		if !t.Has(col) {
			return nil, &ParseError{
				Line:    1,
				Message: fmt.Sprintf("required column '%s' not found in header", col),
			}
		}
	}

	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{Line: line, Message: err.Error()}
		}
		line, _ := cr.FieldPos(0)

		fields := make([]string, len(rec))
		for i, v := range rec {
			fields[i] = CleanText(v)
		}
		t.Rows = append(t.Rows, Row{Line: line, Fields: fields, index: t.index})
	}

	return t, nil
}

// DelimiterFor picks the field separator from the file extension: tab for
// .tsv, .txt and .maf files, comma otherwise.
func DelimiterFor(path string) rune {
	lower := strings.TrimSuffix(strings.ToLower(path), ".gz")
	for _, ext := range []string{".tsv", ".txt", ".maf"} {
		if strings.HasSuffix(lower, ext) {
			return '\t'
		}
	}
	return ','
}

// ParseError represents an error while reading a variant table, with line
// context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table parse error at line %d: %s", e.Line, e.Message)
}
