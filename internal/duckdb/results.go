package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/strain-seq/internal/strain"
)

// Run describes one build: its inputs and settings.
type Run struct {
	ID              string
	StartedAt       time.Time
	Assembly        string
	Chrom           string
	WindowStart     int64
	ReferenceLength int64
	Reference       FileFingerprint
	Table           FileFingerprint
	Strategy        string
	Insertion       string
}

// StrainResult is the stored outcome of one strain within a run.
type StrainResult struct {
	RunID        string
	Strain       string
	OutputPath   string
	EditedLength int64
	FinalLength  int64
	Delta        int64
	Applied      int64
	Skipped      int64
	NoCalls      int64
	Dropped      int64
	Status       string
	Error        string
}

// Result status values.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// NewStrainResult converts a pipeline result into its stored form.
func NewStrainResult(runID string, r *strain.Result, outputPath string) StrainResult {
	sr := StrainResult{
		RunID:        runID,
		Strain:       r.Strain,
		OutputPath:   outputPath,
		EditedLength: int64(r.EditedLength),
		FinalLength:  int64(r.FinalLength),
		Delta:        int64(r.Delta),
		Applied:      int64(r.Applied),
		Skipped:      int64(r.Skipped),
		NoCalls:      int64(r.NoOps),
		Dropped:      int64(r.Dropped),
		Status:       StatusOK,
	}
	if r.Failed() {
		sr.Status = StatusFailed
		sr.Error = r.Err.Error()
	}
	return sr
}

// RecordRun inserts a run row. It must be written before its strain results.
func (s *Store) RecordRun(r Run) error {
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), r.Assembly, r.Chrom, r.WindowStart, r.ReferenceLength,
		r.Reference.Path, r.Reference.Size, r.Reference.ModTime,
		r.Table.Path, r.Table.Size, r.Table.ModTime,
		r.Strategy, r.Insertion)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// resultKey is the composite key for deduplicating results before writing.
type resultKey struct {
	runID, strain string
}

// WriteStrainResults batch-inserts strain results using the Appender API.
// Duplicate (run_id, strain) entries keep the first occurrence.
func (s *Store) WriteStrainResults(results []StrainResult) error {
	if len(results) == 0 {
		return nil
	}

	seen := make(map[resultKey]bool, len(results))
	deduped := make([]StrainResult, 0, len(results))
	for _, r := range results {
		k := resultKey{r.RunID, r.Strain}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "strain_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		if err := appender.AppendRow(
			r.RunID, r.Strain, r.OutputPath,
			r.EditedLength, r.FinalLength, r.Delta,
			r.Applied, r.Skipped, r.NoCalls, r.Dropped,
			r.Status, r.Error,
		); err != nil {
			return fmt.Errorf("append strain result: %w", err)
		}
	}

	return appender.Flush()
}

const resultColumns = `run_id, strain, output_path,
		edited_length, final_length, length_delta,
		applied, skipped, no_calls, dropped,
		status, error_message`

// RunResults returns the strain results of one run in strain order.
func (s *Store) RunResults(runID string) ([]StrainResult, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM strain_results
		WHERE run_id=?
		ORDER BY strain`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run results: %w", err)
	}
	defer rows.Close()

	return scanStrainResults(rows)
}

// LookupStrain returns every stored result for a strain, newest run first.
func (s *Store) LookupStrain(name string) ([]StrainResult, error) {
	rows, err := s.db.Query(`SELECT
		r.run_id, r.strain, r.output_path,
		r.edited_length, r.final_length, r.length_delta,
		r.applied, r.skipped, r.no_calls, r.dropped,
		r.status, r.error_message
		FROM strain_results r
		JOIN runs ON runs.run_id = r.run_id
		WHERE r.strain=?
		ORDER BY runs.started_at DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("query strain: %w", err)
	}
	defer rows.Close()

	return scanStrainResults(rows)
}

// Runs returns all recorded runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT
		run_id, started_at, assembly, chrom, window_start, reference_length,
		reference_path, reference_size, reference_mtime,
		table_path, table_size, table_mtime,
		strategy, insertion
		FROM runs
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.Assembly, &r.Chrom, &r.WindowStart, &r.ReferenceLength,
			&r.Reference.Path, &r.Reference.Size, &r.Reference.ModTime,
			&r.Table.Path, &r.Table.Size, &r.Table.ModTime,
			&r.Strategy, &r.Insertion,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// scanStrainResults scans rows into StrainResult slices.
func scanStrainResults(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]StrainResult, error) {
	var results []StrainResult
	for rows.Next() {
		var r StrainResult
		if err := rows.Scan(
			&r.RunID, &r.Strain, &r.OutputPath,
			&r.EditedLength, &r.FinalLength, &r.Delta,
			&r.Applied, &r.Skipped, &r.NoCalls, &r.Dropped,
			&r.Status, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("scan strain result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strain results: %w", err)
	}
	return results, nil
}
