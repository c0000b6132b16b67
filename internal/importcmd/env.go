package importcmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/soriano-mediadores/csvimport/internal/config"
	"github.com/soriano-mediadores/csvimport/internal/importapi"
	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/soriano-mediadores/csvimport/internal/report"
	"github.com/soriano-mediadores/csvimport/internal/schema"
	"github.com/soriano-mediadores/csvimport/internal/wizard"
	"github.com/spf13/cobra"
)

// env is what every import subcommand needs: settings, schemas and a client
type env struct {
	cfg      *config.Config
	registry *schema.Registry
	client   *importapi.Client
}

// loadEnv reads the --config flag inherited from the root command
func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return newEnv(cfg)
}

func newEnv(cfg *config.Config) (*env, error) {
	registry := schema.Default()
	if cfg.SchemaFile != "" {
		r, err := schema.LoadFile(cfg.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema file: %w", err)
		}
		registry = r
	}

	return &env{
		cfg:      cfg,
		registry: registry,
		client:   NewAPIClient(cfg),
	}, nil
}

// NewAPIClient creates the import API client described by cfg
func NewAPIClient(cfg *config.Config) *importapi.Client {
	slog.Debug("Import API configured", "url", cfg.APIURL, "timeout", cfg.HTTPTimeout, "upload_timeout", cfg.UploadTimeout)
	client := importapi.NewClient(cfg.APIURL, cfg.Token, cfg.HTTPTimeout)
	client.UploadTimeout = cfg.UploadTimeout
	return client
}

// WizardOptions maps settings onto wizard options; notices go to out
func WizardOptions(cfg *config.Config, registry *schema.Registry, out io.Writer) wizard.Options {
	return wizard.Options{
		Registry: registry,
		Intake: intake.Options{
			MaxSize:            cfg.MaxFileSize(),
			CaseInsensitiveExt: cfg.CaseInsensitiveExt,
		},
		Backoff: wizard.Backoff{
			Initial:     cfg.Poll.Initial,
			Max:         cfg.Poll.Max,
			Factor:      cfg.Poll.Factor,
			GrowthAfter: cfg.Poll.GrowthAfter,
		},
		Notifier:   notify.Printer{W: out},
		Downloader: report.DirDownloader{Dir: cfg.DownloadDir},
	}
}

func (e *env) newWizard(out io.Writer) *wizard.Wizard {
	return wizard.New(e.client, WizardOptions(e.cfg, e.registry, out))
}
