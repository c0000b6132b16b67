package importcmd

import (
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status IMPORT_ID",
		Short: "Show the status of an import",
		Example: `  csvimport import status 6f1c2b9e

  # Keep polling until the import finishes
  csvimport import status 6f1c2b9e --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return executeStatus(cmd, e, args[0], watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the import reaches a final status")

	return cmd
}

func executeStatus(cmd *cobra.Command, e *env, importID string, watch bool) error {
	out := cmd.OutOrStdout()
	if !watch {
		progress, err := e.client.Status(cmd.Context(), importID)
		if err != nil {
			return err
		}
		return writeResult(out, progress)
	}

	w := e.newWizard(cmd.ErrOrStderr())
	defer w.Close()
	if err := w.Attach(importID); err != nil {
		return err
	}
	if err := follow(cmd.Context(), w, out); err != nil {
		return err
	}
	if progress := w.CurrentImport(); progress != nil {
		return writeResult(out, progress)
	}
	return nil
}

// NewCancelCmd creates the cancel command
func NewCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel IMPORT_ID",
		Short: "Ask the server to cancel a running import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return executeCancel(cmd, e, args[0])
		},
	}
	return cmd
}

func executeCancel(cmd *cobra.Command, e *env, importID string) error {
	printer := notify.Printer{W: cmd.ErrOrStderr()}
	if err := e.client.Cancel(cmd.Context(), importID); err != nil {
		return err
	}
	printer.Notify(notify.Info("Importación cancelada"))
	return nil
}
