package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/soriano-mediadores/csvimport/internal/report"
	"github.com/soriano-mediadores/csvimport/internal/schema"
	"github.com/soriano-mediadores/csvimport/internal/state"
)

var (
	ErrNoFile            = errors.New("no file selected")
	ErrNoType            = errors.New("no import type selected")
	ErrImportRunning     = errors.New("an import is already running")
	ErrNoImport          = errors.New("no active import")
	ErrPreviewSuperseded = errors.New("preview superseded by a newer file selection")
	ErrSuperseded        = errors.New("wizard was reset while the request was in flight")
	ErrHistoryNotFound   = errors.New("import not found in history")
	ErrNoReportErrors    = errors.New("import has no row errors")
	ErrInvalidStep       = errors.New("cannot move forward to a step not yet reached")
)

// API is the server side of the import pipeline
type API interface {
	Preview(ctx context.Context, f intake.File) (*models.CSVPreview, error)
	Start(ctx context.Context, f intake.File, cfg models.ImportConfig) (*models.ImportProgress, error)
	Status(ctx context.Context, importID string) (*models.ImportProgress, error)
	Cancel(ctx context.Context, importID string) error
	History(ctx context.Context, limit, offset int) ([]models.ImportHistory, int, error)
	Revert(ctx context.Context, importID string) (*models.RevertResponse, error)
}

type Step int

const (
	StepUpload Step = iota
	StepPreview
	StepProcess
	StepResults
)

func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepPreview:
		return "preview"
	case StepProcess:
		return "process"
	case StepResults:
		return "results"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	st, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func ParseStep(s string) (Step, error) {
	for st := StepUpload; st <= StepResults; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown wizard step: %q", s)
}

// Snapshot is an immutable copy of the wizard state published on every change
type Snapshot struct {
	ID             string                 `json:"id"`
	Step           Step                   `json:"step"`
	Config         models.ImportConfig    `json:"config"`
	FileName       string                 `json:"fileName,omitempty"`
	FileSize       int64                  `json:"fileSize,omitempty"`
	Preview        *models.CSVPreview     `json:"preview,omitempty"`
	LoadingPreview bool                   `json:"loadingPreview"`
	Import         *models.ImportProgress `json:"import,omitempty"`
	StatusIcon     string                 `json:"statusIcon,omitempty"`
	StatusColor    string                 `json:"statusColor,omitempty"`
	Importing      bool                   `json:"importing"`
	History        []models.ImportHistory `json:"history"`
	HistoryTotal   int                    `json:"historyTotal"`
	LoadingHistory bool                   `json:"loadingHistory"`
}

// Options configures a Wizard; zero values fall back to the admin UI defaults
type Options struct {
	Registry     *schema.Registry
	Matcher      schema.ColumnMatcher
	Intake       intake.Options
	Backoff      Backoff
	Notifier     notify.Notifier
	Downloader   report.Downloader
	HistoryLimit int
	Now          func() time.Time
	// After schedules the next status poll
	After func(time.Duration) <-chan time.Time
}

// Wizard drives one import session: intake, preview, import, history.
// At most one import is polled at a time.
type Wizard struct {
	id   string
	api  API
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	config         models.ImportConfig
	file           intake.File
	preview        *models.CSVPreview
	loadingPreview bool
	previewGen     uint64
	cancelPreview  context.CancelFunc
	current        *models.ImportProgress
	importing      bool
	step           Step
	session        uint64
	pollGen        uint64
	stopPoll       context.CancelFunc
	pollDone       chan struct{}
	history        []models.ImportHistory
	historyTotal   int
	loadingHistory bool

	state *state.Cell[Snapshot]
}

// New creates a wizard with the default import configuration
func New(api API, opts Options) *Wizard {
	if opts.Registry == nil {
		opts.Registry = schema.Default()
	}
	if opts.Matcher == nil {
		opts.Matcher = schema.PrefixMatcher{Length: schema.DefaultPrefixLength}
	}
	if opts.Intake.MaxSize <= 0 {
		opts.Intake.MaxSize = intake.DefaultMaxSize
	}
	if opts.Backoff.Initial <= 0 {
		opts.Backoff = DefaultBackoff()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Log{}
	}
	if opts.Downloader == nil {
		opts.Downloader = report.DirDownloader{Dir: "."}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.After == nil {
		opts.After = time.After
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Wizard{
		id:     uuid.NewString(),
		api:    api,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		config: models.DefaultImportConfig(),
		step:   StepUpload,
	}
	w.state = state.NewCell(w.snapshotLocked())
	return w
}

func (w *Wizard) ID() string { return w.id }

func (w *Wizard) SelectedFile() intake.File {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file
}

func (w *Wizard) Preview() *models.CSVPreview {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview
}

func (w *Wizard) CurrentImport() *models.ImportProgress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Wizard) IsImporting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.importing
}

func (w *Wizard) CurrentStep() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Config() models.ImportConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config
}

// Snapshot returns the last published state
func (w *Wizard) Snapshot() Snapshot {
	return w.state.Get()
}

// Subscribe streams state snapshots, starting with the current one
func (w *Wizard) Subscribe() (<-chan Snapshot, func()) {
	return w.state.Subscribe()
}

// ExpectedFileName is the conventional file name for the configured type
func (w *Wizard) ExpectedFileName() string {
	return w.opts.Registry.ExpectedFileName(w.Config().Type)
}

// RequiredColumns lists the mandatory headers for the configured type
func (w *Wizard) RequiredColumns() []string {
	return w.opts.Registry.RequiredColumns(w.Config().Type)
}

// SetConfig replaces the import configuration. The type cannot change while
// an import runs. A held preview is re-validated against a new type.
func (w *Wizard) SetConfig(cfg models.ImportConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	if w.importing {
		w.mu.Unlock()
		return ErrImportRunning
	}
	typeChanged := cfg.Type != w.config.Type
	w.config = cfg

	var notice *notify.Notice
	var err error
	if typeChanged && w.preview != nil {
		if verr := schema.Validate(w.preview.Headers, w.opts.Registry.RequiredColumns(cfg.Type), w.opts.Matcher); verr != nil {
			n := w.rejectPreviewLocked(verr)
			notice, err = &n, verr
		}
	}
	w.publishLocked()
	w.mu.Unlock()

	if notice != nil {
		w.notify(*notice)
	}
	return err
}

// GoToStep navigates back to a step already reached
func (w *Wizard) GoToStep(step Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if step > w.step || step < StepUpload {
		return ErrInvalidStep
	}
	w.step = step
	w.publishLocked()
	return nil
}

// ResetImport clears file, preview, progress, importing flag and step
func (w *Wizard) ResetImport() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.session++
	w.supersedePreviewLocked()
	w.stopPollingLocked()
	w.file = nil
	w.preview = nil
	w.current = nil
	w.importing = false
	w.step = StepUpload
	w.publishLocked()
	slog.Debug("Wizard reset", "wizard_id", w.id)
}

// Close resets the wizard and waits for its poll loop to exit
func (w *Wizard) Close() {
	w.ResetImport()
	w.cancel()
	_ = w.Wait(context.Background())
}

func (w *Wizard) notify(n notify.Notice) {
	w.opts.Notifier.Notify(n)
}

func (w *Wizard) publishLocked() {
	w.state.Set(w.snapshotLocked())
}

func (w *Wizard) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:             w.id,
		Step:           w.step,
		Config:         w.config,
		Preview:        w.preview,
		LoadingPreview: w.loadingPreview,
		Importing:      w.importing,
		History:        w.history,
		HistoryTotal:   w.historyTotal,
		LoadingHistory: w.loadingHistory,
	}
	if w.file != nil {
		s.FileName = w.file.Name()
		s.FileSize = w.file.Size()
	}
	if w.current != nil {
		cur := *w.current
		s.Import = &cur
		s.StatusIcon = cur.Status.Icon()
		s.StatusColor = cur.Status.Color()
	}
	return s
}
