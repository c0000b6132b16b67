package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/soriano-mediadores/csvimport/internal/config"
	"github.com/soriano-mediadores/csvimport/internal/handlers"
	"github.com/soriano-mediadores/csvimport/internal/importcmd"
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/soriano-mediadores/csvimport/internal/schema"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var historyRefresh string
	var uploadTTL time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the import wizard gateway",
		Long: `Starts an HTTP gateway that exposes import wizards as a JSON API.

Each wizard holds one selected file, its preview and at most one running import.
Uploads are stored in the configured upload directory and the import history of
every open wizard is refreshed on a schedule.`,
		Example: `  # Start gateway on default port 8888
  csvimport serve

  # Refresh history every 5 minutes and keep uploads for 2 hours
  csvimport serve --history-refresh "@every 5m" --upload-ttl 2h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			registry := schema.Default()
			if cfg.SchemaFile != "" {
				if registry, err = schema.LoadFile(cfg.SchemaFile); err != nil {
					return err
				}
			}

			opts := importcmd.WizardOptions(cfg, registry, cmd.ErrOrStderr())
			opts.Notifier = notify.Log{}
			client := importcmd.NewAPIClient(cfg)
			handler := handlers.New(client, opts, cfg.UploadDir)
			defer handler.Close()

			jobs, err := scheduleJobs(handler, historyRefresh, uploadTTL)
			if err != nil {
				return err
			}
			jobs.Start()
			defer jobs.Stop()

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Router(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Import gateway available", "addr", addr, "url", "http://localhost"+addr, "api", cfg.APIURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&historyRefresh, "history-refresh", "@every 1m", "Cron schedule for refreshing the history of open wizards")
	cmd.Flags().DurationVar(&uploadTTL, "upload-ttl", 24*time.Hour, "Remove stored uploads older than this")

	return cmd
}

// scheduleJobs registers the background refresh and cleanup jobs
func scheduleJobs(handler *handlers.Handler, historyRefresh string, uploadTTL time.Duration) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(historyRefresh, func() {
		for id, session := range handler.Sessions().GetAll() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := session.Wizard.LoadHistory(ctx, 0, 0); err != nil {
				slog.Warn("Scheduled history refresh failed", "wizard_id", id, "err", err)
			}
			cancel()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid history refresh schedule %q: %w", historyRefresh, err)
	}

	_, err = c.AddFunc("@hourly", func() {
		removed, err := handler.PruneUploads(uploadTTL)
		if err != nil {
			slog.Error("Failed to prune uploads", "err", err)
			return
		}
		if removed > 0 {
			slog.Info("Pruned stored uploads", "removed", removed)
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
