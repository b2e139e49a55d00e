// Package output writes strain sequence artifacts and run summaries.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/inodb/strain-seq/internal/reference"
)

// Sequence artifact formats.
const (
	FormatText  = "txt"   // bare sequence, no header or newline
	FormatFASTA = "fasta" // header plus 60-column lines
)

const fastaLineWidth = 60

// ParseFormat validates a sequence format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatFASTA, "fa":
		return FormatFASTA, nil
	}
	return "", fmt.Errorf("unknown output format %q (want txt or fasta)", s)
}

// SequenceWriter writes one artifact per strain into a directory.
type SequenceWriter struct {
	dir    string
	format string
	suffix string
	window *reference.Window
}

// NewSequenceWriter creates a writer for strain sequences built from w. An
// empty suffix defaults to "CHR" plus the window's chromosome.
func NewSequenceWriter(dir, format, suffix string, w *reference.Window) *SequenceWriter {
	if suffix == "" {
		suffix = DefaultSuffix(w)
	}
	if format == "" {
		format = FormatText
	}
	return &SequenceWriter{dir: dir, format: format, suffix: suffix, window: w}
}

// DefaultSuffix returns the file name suffix for sequences of window w.
func DefaultSuffix(w *reference.Window) string {
	if w == nil || w.Chrom == "" {
		return "SEQ"
	}
	return "CHR" + strings.ToUpper(w.Chrom)
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", " ", "_")

// FileName returns the artifact name for strain, e.g. "A_J_CHR6.txt".
func (sw *SequenceWriter) FileName(strain string) string {
	return fmt.Sprintf("%s_%s.%s", unsafeChars.Replace(strain), sw.suffix, sw.format)
}

// Path returns the full artifact path for strain.
func (sw *SequenceWriter) Path(strain string) string {
	return filepath.Join(sw.dir, sw.FileName(strain))
}

// Write atomically writes seq as strain's artifact and returns its path.
func (sw *SequenceWriter) Write(strain string, seq []byte) (string, error) {
	path := sw.Path(strain)
	err := WriteFileAtomic(path, func(w io.Writer) error {
		if sw.format == FormatFASTA {
			return sw.writeFASTA(w, strain, seq)
		}
		_, err := w.Write(seq)
		return err
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (sw *SequenceWriter) writeFASTA(w io.Writer, strain string, seq []byte) error {
	header := ">" + strain
	if sw.window != nil {
		header += fmt.Sprintf(" %s:%s:%d len=%d", sw.window.Assembly, sw.window.Chrom, sw.window.Start, len(seq))
	}
	if _, err := io.WriteString(w, header+"\n"); err != nil {
		return err
	}
	for i := 0; i < len(seq); i += fastaLineWidth {
		end := min(i+fastaLineWidth, len(seq))
		if _, err := w.Write(seq[i:end]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
