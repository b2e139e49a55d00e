package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/strain-seq/internal/strain"
)

// SummaryWriter writes one tab-delimited line per strain result.
type SummaryWriter struct {
	w         *bufio.Writer
	refLength int
	columns   []string
	failed    int
	written   int
}

// NewSummaryWriter creates a summary writer for a window of refLength bases.
func NewSummaryWriter(w io.Writer, refLength int) *SummaryWriter {
	return &SummaryWriter{
		w:         bufio.NewWriter(w),
		refLength: refLength,
		columns: []string{
			"#Strain",
			"Output",
			"Reference_length",
			"Edited_length",
			"Final_length",
			"Length_delta",
			"Applied",
			"Skipped",
			"No_calls",
			"Dropped",
			"Status",
			"Error",
		},
	}
}

// WriteHeader writes the header line.
func (sw *SummaryWriter) WriteHeader() error {
	_, err := sw.w.WriteString(strings.Join(sw.columns, "\t") + "\n")
	return err
}

// Write writes the summary line for one strain. path is the artifact path,
// empty if none was written.
func (sw *SummaryWriter) Write(r *strain.Result, path string) error {
	sw.written++

	status := "OK"
	errMsg := "-"
	if r.Failed() {
		sw.failed++
		status = "FAILED"
		errMsg = strings.ReplaceAll(r.Err.Error(), "\t", " ")
	}
	if path == "" {
		path = "-"
	}

	values := []string{
		r.Strain,
		path,
		strconv.Itoa(sw.refLength),
		strconv.Itoa(r.EditedLength),
		strconv.Itoa(r.FinalLength),
		formatDelta(r.Delta),
		strconv.Itoa(r.Applied),
		strconv.Itoa(r.Skipped),
		strconv.Itoa(r.NoOps),
		strconv.Itoa(r.Dropped),
		status,
		errMsg,
	}

	_, err := sw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (sw *SummaryWriter) Flush() error {
	return sw.w.Flush()
}

// Failed returns the number of failed strains written so far.
func (sw *SummaryWriter) Failed() int {
	return sw.failed
}

// WriteTotals writes a one-line run total, e.g. to stderr.
func (sw *SummaryWriter) WriteTotals(w io.Writer) {
	fmt.Fprintf(w, "%d strains, %d succeeded, %d failed\n", sw.written, sw.written-sw.failed, sw.failed)
}

func formatDelta(d int) string {
	if d > 0 {
		return "+" + strconv.Itoa(d)
	}
	return strconv.Itoa(d)
}
