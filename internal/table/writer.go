package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Select returns a new table holding only the given columns, in the given
// order. Columns missing from t are skipped; the second result lists them.
func (t *Table) Select(columns []string) (*Table, []string) {
	var keep []int
	var missing []string
	out := &Table{index: make(map[string]int)}
	for _, col := range columns {
		i := t.Column(col)
		if i < 0 {
			missing = append(missing, col)
			continue
		}
		if _, dup := out.index[col]; dup {
			continue
		}
		out.index[col] = len(out.Header)
		out.Header = append(out.Header, col)
		keep = append(keep, i)
	}

	out.Rows = make([]Row, len(t.Rows))
	for r, row := range t.Rows {
		fields := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row.Fields) {
				fields[j] = row.Fields[i]
			}
		}
		out.Rows[r] = Row{Line: row.Line, Fields: fields, index: out.index}
	}
	return out, missing
}

// Write writes t as comma-separated values, header first.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row.Fields); err != nil {
			return fmt.Errorf("write row %d: %w", row.Line, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
