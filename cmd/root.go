package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/soriano-mediadores/csvimport/internal/importcmd"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "csvimport",
		Short: "CSV import client for the CRM admin import API",
		Long: `csvimport uploads CSV exports (clientes, pólizas, recibos, siniestros) to the
CRM admin import API, validates their columns, runs and follows imports, and
manages the import history.

Settings come from CSVIMPORT_* environment variables (a .env file is loaded
when present) and an optional YAML file passed with --config.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(importcmd.NewSchemaCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
