package importcmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/soriano-mediadores/csvimport/internal/report"
	"github.com/soriano-mediadores/csvimport/internal/wizard"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	var limit int
	var offset int
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past imports",
		Long: `Lists past imports as reported by the server, newest first.

Formats: text (default), json, yaml, csv and parquet. Parquet requires --output.`,
		Example: `  csvimport import history --limit 20

  # Export the full log for analysis
  csvimport import history --limit 1000 --format parquet --output imports.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(report.HistoryFormats, format) {
				return fmt.Errorf("unsupported format %q (expected one of %s)", format, strings.Join(report.HistoryFormats, ", "))
			}
			if format == "parquet" && output == "" {
				return fmt.Errorf("--format parquet requires --output")
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return executeHistory(cmd, e, limit, offset, format, output)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format ("+strings.Join(report.HistoryFormats, ", ")+")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func executeHistory(cmd *cobra.Command, e *env, limit, offset int, format, output string) error {
	w := e.newWizard(cmd.ErrOrStderr())
	defer w.Close()

	if err := w.LoadHistory(cmd.Context(), limit, offset); err != nil {
		return err
	}
	items, total := w.History()

	var out io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := report.WriteHistory(out, items, format); err != nil {
		return err
	}
	if format == "text" {
		fmt.Fprintf(out, "\nShowing %d of %d imports\n", len(items), total)
	}
	return nil
}

// NewErrorsCmd creates the errors command
func NewErrorsCmd() *cobra.Command {
	var format string
	var dir string
	var limit int

	cmd := &cobra.Command{
		Use:   "errors IMPORT_ID",
		Short: "Download the rejected rows of a past import",
		Long: `Saves the row-level errors of an import listed in the history as
errores_<file>_<timestamp>.csv (or .xlsx) in the download directory.`,
		Example: `  csvimport import errors 6f1c2b9e
  csvimport import errors 6f1c2b9e --format xlsx --dir ./reports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if dir != "" {
				e.cfg.DownloadDir = dir
			}
			return executeErrors(cmd, e, args[0], format, limit)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Report format (csv or xlsx)")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to save the report in (defaults to the configured download directory)")
	cmd.Flags().IntVar(&limit, "limit", 100, "How many history entries to search")

	return cmd
}

func executeErrors(cmd *cobra.Command, e *env, importID, format string, limit int) error {
	w := e.newWizard(cmd.ErrOrStderr())
	defer w.Close()

	if err := w.LoadHistory(cmd.Context(), limit, 0); err != nil {
		return err
	}
	err := w.DownloadErrorReport(importID, format)
	switch {
	case errors.Is(err, wizard.ErrHistoryNotFound):
		return fmt.Errorf("%w (searched the last %d imports, try --limit)", err, limit)
	case errors.Is(err, wizard.ErrNoReportErrors):
		fmt.Fprintf(cmd.OutOrStdout(), "Import %s has no rejected rows\n", importID)
		return nil
	}
	return err
}

// NewRevertCmd creates the revert command
func NewRevertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revert IMPORT_ID",
		Short: "Undo a past import on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return executeRevert(cmd, e, args[0])
		},
	}
	return cmd
}

func executeRevert(cmd *cobra.Command, e *env, importID string) error {
	w := e.newWizard(cmd.ErrOrStderr())
	defer w.Close()

	// The history lookup only drives the canRevert warning
	_ = w.LoadHistory(cmd.Context(), 0, 0)

	res, err := w.RevertImport(cmd.Context(), importID)
	if err != nil {
		return err
	}
	if res.RowsReverted != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Rows reverted: %d\n", *res.RowsReverted)
	}
	return nil
}
