package importcmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/wizard"
	"github.com/spf13/cobra"
)

// NewPreviewCmd creates the preview command
func NewPreviewCmd() *cobra.Command {
	var importType string
	var rows int

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Upload a CSV for preview and check its required columns",
		Long: `Uploads the file to the CRM preview endpoint, prints the parsed header and
sample rows, and checks that every required column of the import type is present.

Nothing is imported.`,
		Example: `  # Check a client export
  csvimport import preview DatosExportados_1.csv --type clientes

  # Show only the first 3 sample rows
  csvimport import preview RECIBOS.csv --type recibos --rows 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return executePreview(cmd, e, args[0], importType, rows)
		},
	}

	cmd.Flags().StringVarP(&importType, "type", "t", string(models.ImportClientes), "Import type (clientes, polizas, recibos, siniestros)")
	cmd.Flags().IntVar(&rows, "rows", 10, "Number of sample rows to print")

	return cmd
}

func executePreview(cmd *cobra.Command, e *env, path, importType string, rows int) error {
	w := e.newWizard(cmd.ErrOrStderr())
	defer w.Close()

	if err := selectFile(cmd, w, path, importType); err != nil {
		return err
	}

	preview := w.Preview()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:    %s (%s)\n", w.SelectedFile().Name(), intake.FormatFileSize(w.SelectedFile().Size()))
	fmt.Fprintf(out, "Type:    %s\n", w.Config().Type)
	fmt.Fprintf(out, "Rows:    %d\n", preview.TotalRows)
	fmt.Fprintf(out, "Columns: %d\n\n", len(preview.Headers))
	return writePreviewTable(out, preview, rows)
}

// selectFile configures the type and runs intake plus preview on path
func selectFile(cmd *cobra.Command, w *wizard.Wizard, path, importType string) error {
	t, err := models.ParseImportType(importType)
	if err != nil {
		return err
	}
	cfg := w.Config()
	cfg.Type = t
	if err := w.SetConfig(cfg); err != nil {
		return err
	}

	f, err := intake.Open(path)
	if err != nil {
		return err
	}
	return w.SelectFile(cmd.Context(), f)
}

func writePreviewTable(out io.Writer, preview *models.CSVPreview, limit int) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(preview.Headers, "\t"))
	for i, row := range preview.Rows {
		if limit >= 0 && i >= limit {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
