package cmd

import (
	"github.com/soriano-mediadores/csvimport/internal/importcmd"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Preview, run and manage CSV imports",
		Long: `Commands for the CSV import pipeline.

A file is first checked locally (.csv extension, size limit), then previewed by
the server and validated against the required columns of its import type.
Imports run on the server; the client polls their status with backoff.`,
	}

	// Add import subcommands
	cmd.AddCommand(importcmd.NewPreviewCmd())
	cmd.AddCommand(importcmd.NewRunCmd())
	cmd.AddCommand(importcmd.NewStatusCmd())
	cmd.AddCommand(importcmd.NewCancelCmd())
	cmd.AddCommand(importcmd.NewHistoryCmd())
	cmd.AddCommand(importcmd.NewErrorsCmd())
	cmd.AddCommand(importcmd.NewRevertCmd())

	return cmd
}
