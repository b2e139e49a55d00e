package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/strain-seq/internal/duckdb"
	"github.com/inodb/strain-seq/internal/edit"
	"github.com/inodb/strain-seq/internal/output"
	"github.com/inodb/strain-seq/internal/reference"
	"github.com/inodb/strain-seq/internal/strain"
	"github.com/inodb/strain-seq/internal/table"
	"github.com/inodb/strain-seq/internal/variant"
)

// errStrainsFailed is returned when the run completed but some strains failed.
var errStrainsFailed = errors.New("one or more strains failed")

// buildSettings is the resolved configuration of a build.
type buildSettings struct {
	Pipeline  strain.Config
	Reference reference.Options
	OutputDir string
	Format    string
	Suffix    string
	DB        string
	Summary   string
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <variant-table> <reference-fasta>",
		Short: "Build one sequence per strain",
		Long: `Apply every strain's alleles from a variant table to the reference window
and write one sequence file per strain.

The reference FASTA header must carry the window start coordinate, e.g.
>GRCm39:6:20239701:21239700 or >chromosome:GRCm39:6:20239701:21239700:1.`,
		Example: `  strain-seq build chr6_CC_Founders_Cleaned.csv chr6_ref.fasta
  strain-seq build variants.csv.gz ref.fa --strains A/J,CAST/EiJ --strategy trim-symmetric
  strain-seq build variants.csv ref.fa --format fasta --db runs.duckdb`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), buildFlags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadBuildSettings(viper.GetViper())
			if err != nil {
				return &usageError{err: err}
			}
			return runBuild(args[0], args[1], s, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringSlice("strains", nil, "Strain columns to build (default: every non-metadata column)")
	fs.String("strategy", "report-only", "Length normalization: report-only, trim-symmetric or pad")
	fs.String("filler", "N", "Padding character for the pad strategy")
	fs.String("insertion", "after-anchor", "Insertion placement: after-anchor or before-anchor")
	fs.StringP("output-dir", "o", "strains_output", "Directory for strain sequence files")
	fs.String("format", "txt", "Sequence file format: txt or fasta")
	fs.String("suffix", "", "File name suffix (default: CHR<chrom>)")
	fs.String("assembly", "", "Assembly name to anchor the FASTA header on")
	fs.String("chrom", "", "Expected chromosome of the reference window")
	fs.IntP("workers", "j", 0, "Number of strains built in parallel (0 = all CPUs)")
	fs.String("db", "", "DuckDB file to record the run in")
	fs.String("summary", "", "Write the summary table to a file instead of stdout")
	fs.String("location-col", variant.ColLocation, "Location column name")
	fs.String("ref-col", variant.ColRef, "Reference allele column name")
	fs.String("class-col", variant.ColClass, "Variant class column name")

	return cmd
}

// buildFlags maps configuration keys to build flags.
var buildFlags = map[string]string{
	"strains":            "strains",
	"normalize.strategy": "strategy",
	"normalize.filler":   "filler",
	"insertion":          "insertion",
	"output.dir":         "output-dir",
	"output.format":      "format",
	"output.suffix":      "suffix",
	"reference.assembly": "assembly",
	"reference.chrom":    "chrom",
	"workers":            "workers",
	"db":                 "db",
	"summary":            "summary",
	"columns.location":   "location-col",
	"columns.ref":        "ref-col",
	"columns.class":      "class-col",
}

// loadBuildSettings resolves and validates the build configuration.
func loadBuildSettings(v *viper.Viper) (buildSettings, error) {
	var s buildSettings

	strategy, err := edit.ParseStrategy(v.GetString("normalize.strategy"))
	if err != nil {
		return s, err
	}
	filler := v.GetString("normalize.filler")
	if len(filler) != 1 {
		return s, fmt.Errorf("filler must be a single character, got %q", filler)
	}
	mode, err := edit.ParseInsertionMode(v.GetString("insertion"))
	if err != nil {
		return s, err
	}
	format, err := output.ParseFormat(v.GetString("output.format"))
	if err != nil {
		return s, err
	}
	workers := v.GetInt("workers")
	if workers < 0 {
		return s, fmt.Errorf("workers must not be negative, got %d", workers)
	}

	s.Pipeline = strain.Config{
		Strains: flattenList(v.GetStringSlice("strains")),
		Columns: variant.Columns{
			Location: v.GetString("columns.location"),
			Ref:      v.GetString("columns.ref"),
			Class:    v.GetString("columns.class"),
		},
		Insertion: mode,
		Normalize: edit.Normalizer{Strategy: strategy, Filler: filler[0]},
		Workers:   workers,
	}
	s.Reference = reference.Options{
		Assembly: v.GetString("reference.assembly"),
		Chrom:    v.GetString("reference.chrom"),
	}
	s.OutputDir = v.GetString("output.dir")
	s.Format = format
	s.Suffix = v.GetString("output.suffix")
	s.DB = v.GetString("db")
	s.Summary = v.GetString("summary")
	return s, nil
}

func runBuild(tablePath, refPath string, s buildSettings, stdout io.Writer) error {
	started := time.Now()

	window, err := reference.Load(refPath, s.Reference)
	if err != nil {
		return fmt.Errorf("load reference: %w", err)
	}
	logger.Info("loaded reference window",
		zap.String("assembly", window.Assembly),
		zap.String("chrom", window.Chrom),
		zap.Int64("start", window.Start),
		zap.Int("length", window.Len()))
	if window.HeaderMismatch() {
		logger.Warn("header end coordinate disagrees with sequence length",
			zap.Int64("header_end", window.End),
			zap.Int64("sequence_end", window.Start+int64(window.Len())-1))
	}

	cols := variant.NewNormalizer(s.Pipeline.Columns).Columns()
	tbl, err := table.Load(tablePath, cols.Location, cols.Ref)
	if err != nil {
		return fmt.Errorf("load variant table: %w", err)
	}
	logger.Info("loaded variant table", zap.String("path", tablePath), zap.Int("rows", tbl.Len()))

	p := strain.New(window, tbl, s.Pipeline)
	p.SetLogger(logger)
	strains := p.Strains()
	if len(strains) == 0 {
		return errors.New("no strain columns to build")
	}

	var store *duckdb.Store
	runID := uuid.NewString()
	if s.DB != "" {
		store, err = openRunStore(s.DB, runID, started, window, tablePath, refPath, s)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	seqs := output.NewSequenceWriter(s.OutputDir, s.Format, s.Suffix, window)
	var (
		summary *output.SummaryWriter
		stored  []duckdb.StrainResult
	)
	writeSummary := func(out io.Writer) error {
		summary = output.NewSummaryWriter(out, window.Len())
		if err := summary.WriteHeader(); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
		err := p.RunAll(func(r *strain.Result) error {
			var path string
			if !r.Failed() {
				written, werr := seqs.Write(r.Strain, r.Sequence)
				if werr != nil {
					r.Err = &strain.Error{Strain: r.Strain, Err: fmt.Errorf("write sequence: %w", werr)}
				} else {
					path = written
				}
			}
			logResult(r, path)
			if store != nil {
				stored = append(stored, duckdb.NewStrainResult(runID, r, path))
			}
			return summary.Write(r, path)
		})
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		return summary.Flush()
	}

	if s.Summary == "" {
		err = writeSummary(stdout)
	} else {
		err = output.WriteFileAtomic(s.Summary, writeSummary)
	}
	if err != nil {
		return err
	}
	summary.WriteTotals(os.Stderr)

	if store != nil {
		if err := store.WriteStrainResults(stored); err != nil {
			return fmt.Errorf("record strain results: %w", err)
		}
		logger.Info("recorded run", zap.String("run_id", runID), zap.String("db", store.Path()))
	}

	logger.Info("build complete",
		zap.Int("strains", len(strains)),
		zap.Int("failed", summary.Failed()),
		zap.Duration("elapsed", time.Since(started)))

	if n := summary.Failed(); n > 0 {
		return fmt.Errorf("%w: %d of %d", errStrainsFailed, n, len(strains))
	}
	return nil
}

func logResult(r *strain.Result, path string) {
	if r.Failed() {
		logger.Error("strain failed", zap.String("strain", r.Strain), zap.Error(r.Err))
		return
	}
	fields := []zap.Field{
		zap.String("strain", r.Strain),
		zap.String("path", path),
		zap.Int("applied", r.Applied),
		zap.Int("delta", r.Delta),
	}
	if r.Delta != 0 {
		logger.Warn("strain length differs from reference", fields...)
		return
	}
	logger.Info("wrote strain", fields...)
}

// openRunStore opens the run database and records the run's inputs.
func openRunStore(dbPath, runID string, started time.Time, w *reference.Window, tablePath, refPath string, s buildSettings) (*duckdb.Store, error) {
	refFP, err := duckdb.StatFile(refPath)
	if err != nil {
		return nil, err
	}
	tableFP, err := duckdb.StatFile(tablePath)
	if err != nil {
		return nil, err
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if err := store.RecordRun(duckdb.Run{
		ID:              runID,
		StartedAt:       started,
		Assembly:        w.Assembly,
		Chrom:           w.Chrom,
		WindowStart:     w.Start,
		ReferenceLength: int64(w.Len()),
		Reference:       refFP,
		Table:           tableFP,
		Strategy:        string(s.Pipeline.Normalize.Strategy),
		Insertion:       s.Pipeline.Insertion.String(),
	}); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
