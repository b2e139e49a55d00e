// Package strain builds one edited sequence per strain from a reference
// window and a variant table.
package strain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/strain-seq/internal/edit"
	"github.com/inodb/strain-seq/internal/reference"
	"github.com/inodb/strain-seq/internal/table"
	"github.com/inodb/strain-seq/internal/variant"
)

// Config controls a pipeline run.
type Config struct {
	Strains   []string // strain columns to build; inferred from the table if empty
	Columns   variant.Columns
	Insertion edit.InsertionMode
	Normalize edit.Normalizer
	Workers   int // 0 means runtime.NumCPU()
}

// Result is the outcome of one strain's pipeline.
type Result struct {
	Strain       string
	Sequence     []byte
	EditedLength int // length after all edits, before normalization
	FinalLength  int
	Delta        int // EditedLength minus the reference window length
	Applied      int // edits spliced into the buffer
	Skipped      int // edits outside the window
	NoOps        int // no-call or same-as-reference rows
	Dropped      int // rows with row-level errors
	Err          error
}

// Failed reports whether the strain's pipeline failed.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Error is a strain pipeline failure. It never affects other strains.
type Error struct {
	Strain string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("strain %s: %v", e.Strain, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pipeline applies a variant table to a reference window, one strain at a
// time. The window and table are only read, so a Pipeline may run strains
// concurrently.
type Pipeline struct {
	window     *reference.Window
	table      *table.Table
	cfg        Config
	normalizer *variant.Normalizer
	logger     *zap.Logger
}

// New creates a pipeline over the given window and table.
func New(w *reference.Window, t *table.Table, cfg Config) *Pipeline {
	return &Pipeline{
		window:     w,
		table:      t,
		cfg:        cfg,
		normalizer: variant.NewNormalizer(cfg.Columns),
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and debug messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Strains returns the configured strains, or the strains inferred from the
// table header when none are configured.
func (p *Pipeline) Strains() []string {
	if len(p.cfg.Strains) > 0 {
		return p.cfg.Strains
	}
	return InferStrains(p.table, p.normalizer.Columns())
}

// InferStrains returns the header columns that are neither known metadata
// columns nor one of cols.
func InferStrains(t *table.Table, cols variant.Columns) []string {
	skip := append(slices.Clone(variant.MetadataColumns), cols.Location, cols.Ref, cols.Class)
	var strains []string
	for _, h := range t.Header {
		if h == "" || slices.Contains(skip, h) || slices.Contains(strains, h) {
			continue
		}
		strains = append(strains, h)
	}
	return strains
}

// Run builds the sequence for one strain. It always returns a Result; on
// failure Result.Err holds a *Error.
func (p *Pipeline) Run(strain string) (res *Result) {
	res = &Result{Strain: strain}
	defer func() {
		if r := recover(); r != nil {
			res = &Result{Strain: strain, Err: &Error{Strain: strain, Err: fmt.Errorf("panic: %v", r)}}
		}
	}()

	if !p.table.Has(strain) {
		p.logger.Warn("strain column not in variant table, all rows dropped",
			zap.String("strain", strain))
	}

	records, err := p.records(strain, res)
	if err != nil {
		res.Err = &Error{Strain: strain, Err: err}
		return res
	}

	buf := edit.NewBuffer(p.window.Seq)
	applied, skipped := buf.ApplyAll(edit.Plan(records, p.window.Start, p.cfg.Insertion))
	res.Applied = applied
	res.Skipped += skipped
	res.EditedLength = buf.Len()

	res.Sequence, res.Delta = p.cfg.Normalize.Normalize(buf.Bytes(), p.window.Len())
	res.FinalLength = len(res.Sequence)

	p.logger.Debug("strain built",
		zap.String("strain", strain),
		zap.Int("applied", res.Applied),
		zap.Int("skipped", res.Skipped),
		zap.Int("dropped", res.Dropped),
		zap.Int("delta", res.Delta))

	return res
}

// records normalizes every table row for strain, counting no-ops and
// dropped rows on res. Rows on another chromosome count as skipped.
func (p *Pipeline) records(strain string, res *Result) ([]variant.Record, error) {
	var records []variant.Record
	for _, row := range p.table.Rows {
		rec, ok, err := p.normalizer.Normalize(row, strain)
		if err != nil {
			var rowErr *variant.RowError
			if errors.As(err, &rowErr) {
				res.Dropped++
				p.logger.Debug("dropping row",
					zap.String("strain", strain),
					zap.Error(err))
				continue
			}
			return nil, err
		}
		if !ok {
			res.NoOps++
			continue
		}
		if !p.sameChrom(rec.Chrom) {
			res.Skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p *Pipeline) sameChrom(chrom string) bool {
	if p.window.Chrom == "" || chrom == "" {
		return true
	}
	return strings.EqualFold(trimChr(chrom), trimChr(p.window.Chrom))
}

func trimChr(c string) string {
	if len(c) > 3 && strings.EqualFold(c[:3], "chr") {
		return c[3:]
	}
	return c
}
