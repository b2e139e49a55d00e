package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/strain-seq/internal/output"
	"github.com/inodb/strain-seq/internal/table"
)

func newCleanCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "clean <raw-table>",
		Short: "Strip markup from a raw variant table export",
		Long: `Remove HTML markup and entities left in a variant table exported from a
genome browser, optionally keeping only selected columns. The result is
written as CSV.`,
		Example: `  strain-seq clean chr6_CC_Founders.csv
  strain-seq clean export.tsv -o cleaned.csv --columns "Variant ID,Location,Class,Ref.,A/J"`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), map[string]string{"clean.columns": "columns"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(args[0], outPath, flattenList(viper.GetStringSlice("clean.columns")), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output CSV (default: <input>_Cleaned.csv, '-' for stdout)")
	cmd.Flags().StringSlice("columns", nil, "Columns to keep, in order (default: all)")

	return cmd
}

// cleanedPath derives the default output path of the clean command.
func cleanedPath(input string) string {
	base := strings.TrimSuffix(input, ".gz")
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_Cleaned.csv"
}

func runClean(inPath, outPath string, columns []string, stdout io.Writer) error {
	tbl, err := table.Load(inPath)
	if err != nil {
		return fmt.Errorf("load table: %w", err)
	}

	if len(columns) > 0 {
		var missing []string
		tbl, missing = tbl.Select(columns)
		if len(missing) > 0 {
			logger.Warn("columns not found in table", zap.Strings("columns", missing))
		}
	}

	if outPath == "-" {
		return table.Write(stdout, tbl)
	}
	if outPath == "" {
		outPath = cleanedPath(inPath)
	}

	if err := output.WriteFileAtomic(outPath, func(w io.Writer) error {
		return table.Write(w, tbl)
	}); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}

	logger.Info("wrote cleaned table",
		zap.String("path", outPath),
		zap.Int("rows", tbl.Len()),
		zap.Int("columns", len(tbl.Header)))
	fmt.Fprintf(os.Stderr, "Cleaned %d rows -> %s\n", tbl.Len(), outPath)
	return nil
}
