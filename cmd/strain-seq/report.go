package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/strain-seq/internal/duckdb"
)

func newReportCmd() *cobra.Command {
	var (
		runID      string
		strainName string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show recorded builds from a run database",
		Long: `List the builds recorded with 'build --db', show the per-strain results of
one run, or the history of one strain across runs.`,
		Example: `  strain-seq report --db runs.duckdb
  strain-seq report --db runs.duckdb --run 3f6c...
  strain-seq report --db runs.duckdb --strain CAST/EiJ`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), map[string]string{"db": "db"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("db")
			if dbPath == "" {
				return &usageError{err: errors.New("no run database: set --db or the db config key")}
			}
			if runID != "" && strainName != "" {
				return &usageError{err: errors.New("--run and --strain are mutually exclusive")}
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open run database: %w", err)
			}
			defer store.Close()

			return runReport(store, runID, strainName, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("db", "", "DuckDB run database")
	cmd.Flags().StringVar(&runID, "run", "", "Show the strain results of one run")
	cmd.Flags().StringVar(&strainName, "strain", "", "Show one strain across all runs")

	return cmd
}

func runReport(store *duckdb.Store, runID, strainName string, w io.Writer) error {
	bw := bufio.NewWriter(w)

	switch {
	case runID != "":
		results, err := store.RunResults(runID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("no results for run %s", runID)
		}
		writeStrainResults(bw, results)
	case strainName != "":
		results, err := store.LookupStrain(strainName)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("strain %s not found in any run", strainName)
		}
		writeStrainResults(bw, results)
	default:
		runs, err := store.Runs()
		if err != nil {
			return err
		}
		writeRuns(bw, runs)
	}

	return bw.Flush()
}

func writeRuns(w *bufio.Writer, runs []duckdb.Run) {
	w.WriteString("#Run_ID\tStarted\tAssembly\tChrom\tStart\tReference_length\tStrategy\tInsertion\tTable\tReference\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.UTC().Format(time.RFC3339), orDash(r.Assembly), orDash(r.Chrom),
			r.WindowStart, r.ReferenceLength, r.Strategy, r.Insertion,
			fileStatus(r.Table), fileStatus(r.Reference))
	}
}

func writeStrainResults(w *bufio.Writer, results []duckdb.StrainResult) {
	w.WriteString("#Run_ID\tStrain\tOutput\tEdited_length\tFinal_length\tLength_delta\tApplied\tSkipped\tNo_calls\tDropped\tStatus\tError\n")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%+d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.RunID, r.Strain, orDash(r.OutputPath),
			r.EditedLength, r.FinalLength, r.Delta,
			r.Applied, r.Skipped, r.NoCalls, r.Dropped,
			r.Status, orDash(r.Error))
	}
}

// fileStatus returns the path, marked when the file changed since the run.
func fileStatus(f duckdb.FileFingerprint) string {
	if f.Path == "" {
		return "-"
	}
	if !f.Matches() {
		return f.Path + " (changed)"
	}
	return f.Path
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
