// Package reference loads the reference window that strain sequences are
// built from.
package reference

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Load errors. Both are fatal for the whole run.
var (
	ErrNoStartCoordinate = errors.New("no start coordinate found in header")
	ErrEmptySequence     = errors.New("reference sequence is empty")
)

// Window is a contiguous stretch of reference sequence anchored at a
// genomic coordinate. It is never modified after Load.
type Window struct {
	Name     string // header text without the leading '>'
	Assembly string // e.g. "GRCm39"
	Chrom    string // e.g. "6"
	Start    int64  // genomic position of Seq[0]
	End      int64  // end coordinate from the header, 0 if absent
	Seq      []byte // upper-cased nucleotides
}

// Len returns the window length, the normalization target for every strain.
func (w *Window) Len() int {
	return len(w.Seq)
}

// HeaderMismatch reports whether the header carries an end coordinate that
// disagrees with the loaded sequence length.
func (w *Window) HeaderMismatch() bool {
	return w.End > 0 && w.End-w.Start+1 != int64(len(w.Seq))
}

// Options constrain header parsing. Empty fields match anything.
type Options struct {
	Assembly string
	Chrom    string
}

// Load reads the first record of a FASTA file. Gzipped input is detected
// from its magic bytes.
func Load(path string, opts Options) (*Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference: %w", err)
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

	return Parse(r, opts)
}

// Parse reads a single-record FASTA stream. Records after the first are
// ignored.
func Parse(r io.Reader, opts Options) (*Window, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for unwrapped sequences
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	var w *Window
	var seq bytes.Buffer

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ">") {
			if w != nil {
				break
			}
			hw, err := ParseHeader(line, opts)
			if err != nil {
				return nil, err
			}
			w = hw
			continue
		}

		if w == nil {
			return nil, fmt.Errorf("%w: sequence data before FASTA header", ErrNoStartCoordinate)
		}
		seq.WriteString(strings.ToUpper(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: no FASTA header", ErrNoStartCoordinate)
	}
	if seq.Len() == 0 {
		return nil, ErrEmptySequence
	}

	w.Seq = seq.Bytes()
	return w, nil
}

// coordSystems are the Ensembl coordinate-system tokens that may precede the
// assembly in a region header, e.g. ">chromosome:GRCm39:6:20239701:21239700:1".
var coordSystems = map[string]bool{
	"chromosome":  true,
	"scaffold":    true,
	"contig":      true,
	"supercontig": true,
	"clone":       true,
}

// ParseHeader recovers the assembly, chromosome and start coordinate from a
// FASTA header carrying an "ASSEMBLY:CHROM:START:..." token anywhere in it,
// e.g. ">6 dna:chromosome chromosome:GRCm39:6:20239701:21239700:1". The
// first token that yields a numeric start wins. If opts names an assembly,
// the triple is anchored at that assembly.
func ParseHeader(header string, opts Options) (*Window, error) {
	name := strings.TrimSpace(strings.TrimPrefix(header, ">"))

	var mismatch *Window
	assemblySeen := false
	for _, token := range strings.Fields(name) {
		fields := strings.Split(token, ":")
		at := 0
		if opts.Assembly != "" {
			at = slices.IndexFunc(fields, func(f string) bool {
				return strings.EqualFold(f, opts.Assembly)
			})
			if at < 0 {
				continue
			}
			assemblySeen = true
		} else if coordSystems[strings.ToLower(fields[0])] {
			at = 1
		}

		w, ok := windowAt(fields, at)
		if !ok {
			continue
		}
		if opts.Chrom != "" && !strings.EqualFold(opts.Chrom, w.Chrom) {
			if mismatch == nil {
				mismatch = w
			}
			continue
		}
		w.Name = name
		return w, nil
	}

	switch {
	case mismatch != nil:
		return nil, fmt.Errorf("%w: header chromosome %s, expected %s", ErrNoStartCoordinate, mismatch.Chrom, opts.Chrom)
	case opts.Assembly != "" && !assemblySeen:
		return nil, fmt.Errorf("%w: assembly %s not in header %q", ErrNoStartCoordinate, opts.Assembly, header)
	}
	return nil, fmt.Errorf("%w: %q", ErrNoStartCoordinate, header)
}

// windowAt reads ASSEMBLY:CHROM:START[:END] starting at fields[at]. The
// start must be followed by at least one more field.
func windowAt(fields []string, at int) (*Window, bool) {
	if len(fields) < at+4 {
		return nil, false
	}
	start, err := strconv.ParseInt(fields[at+2], 10, 64)
	if err != nil || start < 0 {
		return nil, false
	}
	w := &Window{Assembly: fields[at], Chrom: fields[at+1], Start: start}
	if end, err := strconv.ParseInt(fields[at+3], 10, 64); err == nil {
		w.End = end
	}
	return w, true
}
