package importcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/wizard"
	"github.com/spf13/cobra"
)

var errImportCancelled = errors.New("import cancelled")

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var importType string
	var mode string
	var duplicates string
	var noValidate bool
	var errorReport bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Import a CSV file and follow its progress",
		Long: `Validates the file like "preview", starts the import and polls its status
until it completes, fails or is cancelled. Press Ctrl+C to cancel the import on
the server.`,
		Example: `  # Add new policies, skipping duplicates
  csvimport import run POLIZAS.csv --type polizas

  # Replace all receipts and save a report of rejected rows
  csvimport import run RECIBOS.csv --type recibos --mode replace --error-report`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			cfg := models.ImportConfig{
				Mode:                 models.ImportMode(mode),
				ValidateBeforeImport: !noValidate,
				HandleDuplicates:     models.DuplicatePolicy(duplicates),
			}
			return executeRun(cmd, e, args[0], importType, cfg, errorReport)
		},
	}

	cmd.Flags().StringVarP(&importType, "type", "t", string(models.ImportClientes), "Import type (clientes, polizas, recibos, siniestros)")
	cmd.Flags().StringVar(&mode, "mode", string(models.ModeAdd), "Import mode (add or replace)")
	cmd.Flags().StringVar(&duplicates, "duplicates", string(models.DuplicatesSkip), "Duplicate handling (skip, update or error)")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip server-side validation before importing")
	cmd.Flags().BoolVar(&errorReport, "error-report", false, "Save a CSV report of rejected rows to the download directory")

	return cmd
}

func executeRun(cmd *cobra.Command, e *env, path, importType string, cfg models.ImportConfig, errorReport bool) error {
	w := e.newWizard(cmd.ErrOrStderr())
	defer w.Close()

	t, err := models.ParseImportType(importType)
	if err != nil {
		return err
	}
	cfg.Type = t
	if err := w.SetConfig(cfg); err != nil {
		return err
	}
	if err := selectFile(cmd, w, path, importType); err != nil {
		return err
	}
	if err := w.StartImport(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := follow(cmd.Context(), w, out); err != nil {
		return err
	}

	progress := w.CurrentImport()
	if progress == nil {
		return fmt.Errorf("lost track of the import")
	}
	if err := writeResult(out, progress); err != nil {
		return err
	}
	if errorReport && len(progress.Errors) > 0 {
		if err := w.GenerateErrorReport(progress.Errors, w.SelectedFile().Name()); err != nil {
			return err
		}
	}
	if progress.Status == models.StatusError {
		return fmt.Errorf("import %s failed: %s", progress.ID, progress.Message)
	}
	return nil
}

// follow prints progress until polling stops. Cancelling ctx cancels the
// import on the server.
func follow(ctx context.Context, w *wizard.Wizard, out io.Writer) error {
	updates, stop := w.Subscribe()
	defer stop()

	done := make(chan struct{})
	go func() {
		_ = w.Wait(context.Background())
		close(done)
	}()

	var last string
	for {
		select {
		case s := <-updates:
			last = printProgress(out, s, last)
		case <-done:
			printProgress(out, w.Snapshot(), last)
			return nil
		case <-ctx.Done():
			fmt.Fprintln(out, "Cancelling import...")
			cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.CancelImport(cancelCtx); err != nil {
				return err
			}
			<-done
			return errImportCancelled
		}
	}
}

// printProgress writes a line when the status summary changed and returns it
func printProgress(out io.Writer, s wizard.Snapshot, last string) string {
	p := s.Import
	if p == nil {
		return last
	}
	line := fmt.Sprintf("[%s] %-10s %5.1f%%  %d/%d rows  %d ok  %d errors",
		p.ID, p.Status, p.Progress, p.Stats.ProcessedRows, p.Stats.TotalRows, p.Stats.SuccessfulRows, p.Stats.ErrorRows)
	if line != last {
		fmt.Fprintln(out, line)
	}
	return line
}

const maxPrintedErrors = 20

func writeResult(out io.Writer, p *models.ImportProgress) error {
	fmt.Fprintf(out, "\nImport %s: %s\n", p.ID, p.Status)
	if p.Message != "" {
		fmt.Fprintf(out, "%s\n", p.Message)
	}
	s := p.Stats
	fmt.Fprintf(out, "Total: %d  Processed: %d  Successful: %d  Errors: %d  Duplicates: %d  Skipped: %d\n",
		s.TotalRows, s.ProcessedRows, s.SuccessfulRows, s.ErrorRows, s.DuplicateRows, s.SkippedRows)
	if p.EndTime != nil && !p.StartTime.IsZero() {
		fmt.Fprintf(out, "Duration: %s\n", p.EndTime.Sub(p.StartTime).Round(time.Second))
	}

	if len(p.Errors) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tFIELD\tMESSAGE\tVALUE")
	for i, e := range p.Errors {
		if i == maxPrintedErrors {
			fmt.Fprintf(tw, "...\t\t%d more\t\n", len(p.Errors)-maxPrintedErrors)
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Row, e.Field, e.Message, e.ValueString())
	}
	return tw.Flush()
}
