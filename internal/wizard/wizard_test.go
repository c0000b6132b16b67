package wizard

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soriano-mediadores/csvimport/internal/importapi"
	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFile struct {
	name string
	size int64
}

func (f memFile) Name() string { return f.name }
func (f memFile) Size() int64  { return f.size }
func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

var clientesHeaders = []string{"NIF", "Nombre completo", "IdAccount", "Email contacto", "Provincia", "Teléfono"}

// fakeAPI scripts server responses and records calls
type fakeAPI struct {
	mu sync.Mutex

	previews     map[string]*models.CSVPreview
	previewErr   error
	previewGate  map[string]chan struct{}
	previewCalls int

	startResp  *models.ImportProgress
	startErr   error
	startCalls int

	statuses    []models.ImportStatus
	statusErr   error
	statusCalls int

	cancelErr   error
	cancelCalls int

	history      []models.ImportHistory
	historyErr   error
	historyCalls int

	revertErr   error
	revertCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		previews:    map[string]*models.CSVPreview{},
		previewGate: map[string]chan struct{}{},
		startResp:   &models.ImportProgress{ID: "imp-1", Status: models.StatusPending},
	}
}

func (a *fakeAPI) Preview(ctx context.Context, f intake.File) (*models.CSVPreview, error) {
	a.mu.Lock()
	a.previewCalls++
	gate := a.previewGate[f.Name()]
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.previewErr != nil {
		return nil, a.previewErr
	}
	if p, ok := a.previews[f.Name()]; ok {
		return p, nil
	}
	return &models.CSVPreview{Headers: clientesHeaders, TotalRows: 3, FileName: f.Name()}, nil
}

func (a *fakeAPI) Start(ctx context.Context, f intake.File, cfg models.ImportConfig) (*models.ImportProgress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startCalls++
	if a.startErr != nil {
		return nil, a.startErr
	}
	p := *a.startResp
	return &p, nil
}

func (a *fakeAPI) Status(ctx context.Context, importID string) (*models.ImportProgress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusCalls++
	if a.statusErr != nil {
		return nil, a.statusErr
	}
	status := models.StatusProcessing
	if a.statusCalls <= len(a.statuses) {
		status = a.statuses[a.statusCalls-1]
	}
	return &models.ImportProgress{ID: importID, Status: status, Progress: float64(a.statusCalls * 10)}, nil
}

func (a *fakeAPI) Cancel(ctx context.Context, importID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelCalls++
	return a.cancelErr
}

func (a *fakeAPI) History(ctx context.Context, limit, offset int) ([]models.ImportHistory, int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.historyCalls++
	if a.historyErr != nil {
		return nil, 0, a.historyErr
	}
	return a.history, len(a.history), nil
}

func (a *fakeAPI) Revert(ctx context.Context, importID string) (*models.RevertResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revertCalls++
	if a.revertErr != nil {
		return nil, a.revertErr
	}
	n := 12
	return &models.RevertResponse{Success: true, Message: "Importación revertida", RowsReverted: &n}, nil
}

func (a *fakeAPI) calls() (preview, start, status, cancel, history, revert int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.previewCalls, a.startCalls, a.statusCalls, a.cancelCalls, a.historyCalls, a.revertCalls
}

// instantClock fires every scheduled poll immediately and records the delays
type instantClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *instantClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

type memDownloader struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (d *memDownloader) Download(name, contentType string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.files == nil {
		d.files = map[string][]byte{}
	}
	d.files[name] = data
	return nil
}

type fixture struct {
	api        *fakeAPI
	clock      *instantClock
	notices    *notify.Recorder
	downloader *memDownloader
	w          *Wizard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		api:        newFakeAPI(),
		clock:      &instantClock{},
		notices:    notify.NewRecorder(0),
		downloader: &memDownloader{},
	}
	fx.w = New(fx.api, Options{
		Notifier:   fx.notices,
		Downloader: fx.downloader,
		After:      fx.clock.After,
		Now:        func() time.Time { return time.UnixMilli(1700000000000) },
	})
	t.Cleanup(fx.w.Close)
	return fx
}

func (fx *fixture) lastNotice(t *testing.T) notify.Notice {
	t.Helper()
	n, ok := fx.notices.Last()
	require.True(t, ok, "expected a notice")
	return n
}

func (fx *fixture) selectValid(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.w.SelectFile(context.Background(), memFile{name: "DatosExportados_1.csv", size: 2048}))
}

func TestNewDefaults(t *testing.T) {
	fx := newFixture(t)

	assert.Equal(t, models.DefaultImportConfig(), fx.w.Config())
	assert.Equal(t, StepUpload, fx.w.CurrentStep())
	assert.Nil(t, fx.w.SelectedFile())
	assert.Nil(t, fx.w.Preview())
	assert.Nil(t, fx.w.CurrentImport())
	assert.False(t, fx.w.IsImporting())
	assert.Equal(t, "DatosExportados_*.csv", fx.w.ExpectedFileName())
	assert.Len(t, fx.w.RequiredColumns(), 5)
}

func TestSelectFileRejectsWithoutNetwork(t *testing.T) {
	tests := []struct {
		name    string
		file    memFile
		wantErr error
		notice  string
	}{
		{"wrong extension", memFile{name: "datos.xlsx", size: 10}, intake.ErrInvalidFileType, "Por favor, selecciona un archivo CSV válido"},
		{"uppercase extension", memFile{name: "DATA.CSV", size: 10}, intake.ErrInvalidFileType, "Por favor, selecciona un archivo CSV válido"},
		{"too large", memFile{name: "big.csv", size: intake.DefaultMaxSize + 1}, intake.ErrFileTooLarge, "El archivo es demasiado grande. Máximo 100 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)

			err := fx.w.SelectFile(context.Background(), tt.file)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, fx.w.SelectedFile())

			previews, _, _, _, _, _ := fx.api.calls()
			assert.Equal(t, 0, previews)

			n := fx.lastNotice(t)
			assert.Equal(t, notify.LevelError, n.Level)
			assert.Equal(t, tt.notice, n.Message)
		})
	}
}

func TestSelectFileAtSizeLimitIsAccepted(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.w.SelectFile(context.Background(), memFile{name: "max.csv", size: intake.DefaultMaxSize}))
	assert.Equal(t, StepPreview, fx.w.CurrentStep())
}

func TestSelectFileLoadsPreview(t *testing.T) {
	fx := newFixture(t)
	fx.selectValid(t)

	require.NotNil(t, fx.w.Preview())
	assert.Equal(t, 3, fx.w.Preview().TotalRows)
	assert.Equal(t, "DatosExportados_1.csv", fx.w.SelectedFile().Name())
	assert.Equal(t, StepPreview, fx.w.CurrentStep())

	n := fx.lastNotice(t)
	assert.Equal(t, notify.LevelSuccess, n.Level)
	assert.Equal(t, "Archivo validado correctamente para Clientes", n.Message)

	snap := fx.w.Snapshot()
	assert.Equal(t, "DatosExportados_1.csv", snap.FileName)
	assert.False(t, snap.LoadingPreview)
}

func TestSelectFileMissingColumnDiscardsFile(t *testing.T) {
	fx := newFixture(t)
	fx.api.previews["bad.csv"] = &models.CSVPreview{Headers: []string{"NIF", "Nombre completo", "IdAccount", "Provincia"}}

	err := fx.w.SelectFile(context.Background(), memFile{name: "bad.csv", size: 10})
	require.Error(t, err)

	assert.Nil(t, fx.w.SelectedFile())
	assert.Nil(t, fx.w.Preview())
	assert.Equal(t, StepUpload, fx.w.CurrentStep())
	assert.Equal(t, `El archivo no contiene la columna requerida: "Email contacto"`, fx.lastNotice(t).Message)
}

func TestSelectFilePreviewFailure(t *testing.T) {
	fx := newFixture(t)
	fx.api.previewErr = &importapi.APIError{Op: "preview", StatusCode: 422, Message: "Archivo vacío"}

	err := fx.w.SelectFile(context.Background(), memFile{name: "a.csv", size: 10})
	require.Error(t, err)

	assert.Nil(t, fx.w.Preview())
	assert.False(t, fx.w.Snapshot().LoadingPreview)
	assert.Equal(t, "Archivo vacío", fx.lastNotice(t).Message)

	fx.api.previewErr = errors.New("connection refused")
	require.Error(t, fx.w.SelectFile(context.Background(), memFile{name: "a.csv", size: 10}))
	assert.Equal(t, "Error al cargar la vista previa", fx.lastNotice(t).Message)
}

func TestStalePreviewIsIgnored(t *testing.T) {
	fx := newFixture(t)
	gate := make(chan struct{})
	fx.api.previewGate["first.csv"] = gate
	fx.api.previews["first.csv"] = &models.CSVPreview{Headers: clientesHeaders, TotalRows: 111}
	fx.api.previews["second.csv"] = &models.CSVPreview{Headers: clientesHeaders, TotalRows: 222}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- fx.w.SelectFile(context.Background(), memFile{name: "first.csv", size: 10})
	}()
	require.Eventually(t, func() bool {
		previews, _, _, _, _, _ := fx.api.calls()
		return previews == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, fx.w.SelectFile(context.Background(), memFile{name: "second.csv", size: 10}))
	close(gate)

	assert.ErrorIs(t, <-firstDone, ErrPreviewSuperseded)
	assert.Equal(t, "second.csv", fx.w.SelectedFile().Name())
	assert.Equal(t, 222, fx.w.Preview().TotalRows)
}

func TestRemoveFile(t *testing.T) {
	fx := newFixture(t)
	fx.selectValid(t)

	fx.w.RemoveFile()

	assert.Nil(t, fx.w.SelectedFile())
	assert.Nil(t, fx.w.Preview())
	assert.Equal(t, StepUpload, fx.w.CurrentStep())
}

func TestSetConfigRevalidatesPreview(t *testing.T) {
	fx := newFixture(t)
	fx.selectValid(t)

	cfg := fx.w.Config()
	cfg.Type = models.ImportRecibos
	err := fx.w.SetConfig(cfg)
	require.Error(t, err)

	assert.Equal(t, models.ImportRecibos, fx.w.Config().Type)
	assert.Nil(t, fx.w.SelectedFile())
	assert.Equal(t, `El archivo no contiene la columna requerida: "Nº recibo"`, fx.lastNotice(t).Message)

	assert.Error(t, fx.w.SetConfig(models.ImportConfig{Type: "vehiculos"}))
}

func TestStartImportPreconditions(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		fx := newFixture(t)
		assert.ErrorIs(t, fx.w.StartImport(context.Background()), ErrNoFile)
		assert.Equal(t, "Por favor, selecciona un archivo primero", fx.lastNotice(t).Message)
		_, starts, _, _, _, _ := fx.api.calls()
		assert.Equal(t, 0, starts)
	})

	t.Run("no type", func(t *testing.T) {
		fx := newFixture(t)
		fx.selectValid(t)
		cfg := fx.w.Config()
		cfg.Type = ""
		require.NoError(t, fx.w.SetConfig(cfg))

		assert.ErrorIs(t, fx.w.StartImport(context.Background()), ErrNoType)
		assert.Equal(t, "Por favor, selecciona el tipo de importación", fx.lastNotice(t).Message)
		_, starts, _, _, _, _ := fx.api.calls()
		assert.Equal(t, 0, starts)
	})
}

func TestImportPollsUntilCompleted(t *testing.T) {
	fx := newFixture(t)
	fx.api.statuses = []models.ImportStatus{
		models.StatusProcessing, models.StatusProcessing, models.StatusProcessing, models.StatusCompleted,
	}
	fx.api.history = []models.ImportHistory{{ID: "imp-1", Status: models.StatusCompleted}}
	fx.selectValid(t)

	require.NoError(t, fx.w.StartImport(context.Background()))
	require.NoError(t, fx.w.Wait(context.Background()))

	_, starts, statuses, _, histories, _ := fx.api.calls()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 4, statuses)
	assert.Equal(t, 1, histories)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, fx.clock.Delays())

	assert.False(t, fx.w.IsImporting())
	assert.Equal(t, StepResults, fx.w.CurrentStep())
	assert.Equal(t, models.StatusCompleted, fx.w.CurrentImport().Status)
	snap := fx.w.Snapshot()
	assert.Equal(t, "check_circle", snap.StatusIcon)
	assert.Equal(t, "success", snap.StatusColor)

	items, total := fx.w.History()
	assert.Len(t, items, 1)
	assert.Equal(t, 1, total)

	var messages []string
	for _, n := range fx.notices.Notices() {
		messages = append(messages, n.Message)
	}
	assert.Contains(t, messages, "Importación iniciada")
	assert.Contains(t, messages, "Importación completada exitosamente")
}

func TestImportPollingBacksOff(t *testing.T) {
	fx := newFixture(t)
	statuses := make([]models.ImportStatus, 0, 12)
	for i := 0; i < 11; i++ {
		statuses = append(statuses, models.StatusProcessing)
	}
	fx.api.statuses = append(statuses, models.StatusError)
	fx.selectValid(t)

	require.NoError(t, fx.w.StartImport(context.Background()))
	require.NoError(t, fx.w.Wait(context.Background()))

	delays := fx.clock.Delays()
	require.Len(t, delays, 11)
	for i := 0; i < 5; i++ {
		assert.Equal(t, time.Second, delays[i], "poll %d", i+1)
	}
	assert.Equal(t, 1500*time.Millisecond, delays[5])
	assert.Equal(t, 2250*time.Millisecond, delays[6])
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
		assert.LessOrEqual(t, delays[i], 30*time.Second)
	}

	assert.False(t, fx.w.IsImporting())
	assert.Equal(t, models.StatusError, fx.w.CurrentImport().Status)
	for _, n := range fx.notices.Notices() {
		assert.NotEqual(t, "Importación completada exitosamente", n.Message)
	}
}

func TestBackoffCapsAtMax(t *testing.T) {
	sched := DefaultBackoff().Schedule()
	var last time.Duration
	for i := 0; i < 50; i++ {
		last = sched.Next()
	}
	assert.Equal(t, 30*time.Second, last)
}

func TestStartImportFailure(t *testing.T) {
	fx := newFixture(t)
	fx.api.startErr = &importapi.APIError{Op: "start import", StatusCode: 200, Business: true}
	fx.selectValid(t)

	require.Error(t, fx.w.StartImport(context.Background()))

	assert.False(t, fx.w.IsImporting())
	assert.Nil(t, fx.w.CurrentImport())
	assert.Equal(t, StepPreview, fx.w.CurrentStep())
	assert.Equal(t, "Error al iniciar la importación", fx.lastNotice(t).Message)
}

func TestStartImportWhileRunning(t *testing.T) {
	fx := newFixture(t)
	block := make(chan time.Time)
	fx.w.opts.After = func(time.Duration) <-chan time.Time { return block }
	fx.selectValid(t)
	require.NoError(t, fx.w.Attach("imp-9"))

	assert.ErrorIs(t, fx.w.StartImport(context.Background()), ErrImportRunning)
	assert.ErrorIs(t, fx.w.SetConfig(models.DefaultImportConfig()), ErrImportRunning)
	_, starts, _, _, _, _ := fx.api.calls()
	assert.Equal(t, 0, starts)
}

func TestSelectFileWhileRunning(t *testing.T) {
	fx := newFixture(t)
	block := make(chan time.Time)
	fx.w.opts.After = func(time.Duration) <-chan time.Time { return block }
	fx.selectValid(t)
	require.NoError(t, fx.w.Attach("imp-9"))

	err := fx.w.SelectFile(context.Background(), memFile{name: "otro.csv", size: 10})
	assert.ErrorIs(t, err, ErrImportRunning)
	assert.Equal(t, "DatosExportados_1.csv", fx.w.SelectedFile().Name())

	n := fx.lastNotice(t)
	assert.Equal(t, notify.LevelError, n.Level)
	assert.Equal(t, "Hay una importación en curso. Espera a que termine o cancélala", n.Message)
}

func TestPollTransportErrorStopsPolling(t *testing.T) {
	fx := newFixture(t)
	fx.api.statusErr = errors.New("connection reset")
	fx.selectValid(t)

	require.NoError(t, fx.w.StartImport(context.Background()))
	require.NoError(t, fx.w.Wait(context.Background()))

	_, _, statuses, _, _, _ := fx.api.calls()
	assert.Equal(t, 1, statuses)
	assert.False(t, fx.w.IsImporting())
	assert.Equal(t, models.StatusPending, fx.w.CurrentImport().Status)
}

func TestCancelImport(t *testing.T) {
	fx := newFixture(t)
	block := make(chan time.Time)
	fx.w.opts.After = func(time.Duration) <-chan time.Time { return block }
	fx.selectValid(t)

	require.NoError(t, fx.w.StartImport(context.Background()))
	require.Eventually(t, func() bool {
		_, _, statuses, _, _, _ := fx.api.calls()
		return statuses == 1
	}, time.Second, time.Millisecond)

	fx.api.cancelErr = &importapi.APIError{Op: "cancel import", StatusCode: 200, Business: true, Message: "No se puede cancelar"}
	require.Error(t, fx.w.CancelImport(context.Background()))
	assert.True(t, fx.w.IsImporting())
	assert.Equal(t, "No se puede cancelar", fx.lastNotice(t).Message)

	fx.api.cancelErr = nil
	require.NoError(t, fx.w.CancelImport(context.Background()))
	require.NoError(t, fx.w.Wait(context.Background()))

	assert.False(t, fx.w.IsImporting())
	assert.Equal(t, "Importación cancelada", fx.lastNotice(t).Message)
	_, _, statuses, cancels, _, _ := fx.api.calls()
	assert.Equal(t, 1, statuses)
	assert.Equal(t, 2, cancels)
}

func TestCancelWithoutImport(t *testing.T) {
	fx := newFixture(t)
	assert.ErrorIs(t, fx.w.CancelImport(context.Background()), ErrNoImport)
}

func TestResetImport(t *testing.T) {
	fx := newFixture(t)
	block := make(chan time.Time)
	fx.w.opts.After = func(time.Duration) <-chan time.Time { return block }
	fx.selectValid(t)
	require.NoError(t, fx.w.StartImport(context.Background()))

	fx.w.ResetImport()
	require.NoError(t, fx.w.Wait(context.Background()))

	assert.Nil(t, fx.w.SelectedFile())
	assert.Nil(t, fx.w.Preview())
	assert.Nil(t, fx.w.CurrentImport())
	assert.False(t, fx.w.IsImporting())
	assert.Equal(t, StepUpload, fx.w.CurrentStep())
	assert.Equal(t, models.ImportClientes, fx.w.Config().Type)
}

func TestGoToStep(t *testing.T) {
	fx := newFixture(t)
	fx.selectValid(t)

	assert.ErrorIs(t, fx.w.GoToStep(StepResults), ErrInvalidStep)
	require.NoError(t, fx.w.GoToStep(StepUpload))
	assert.Equal(t, StepUpload, fx.w.CurrentStep())
}

func TestLoadHistoryKeepsListOnFailure(t *testing.T) {
	fx := newFixture(t)
	fx.api.history = []models.ImportHistory{{ID: "a"}, {ID: "b"}}
	require.NoError(t, fx.w.LoadHistory(context.Background(), 0, 0))

	fx.api.historyErr = errors.New("boom")
	require.Error(t, fx.w.LoadHistory(context.Background(), 0, 0))

	items, total := fx.w.History()
	assert.Len(t, items, 2)
	assert.Equal(t, 2, total)
	assert.False(t, fx.w.Snapshot().LoadingHistory)
}

func TestDownloadErrorReport(t *testing.T) {
	fx := newFixture(t)
	fx.api.history = []models.ImportHistory{
		{ID: "imp-1", FileName: "clientes.csv", Errors: []models.ImportError{{Row: 2, Field: "NIF", Message: "Formato inválido", Value: "123"}}},
		{ID: "imp-2", FileName: "ok.csv"},
	}
	require.NoError(t, fx.w.LoadHistory(context.Background(), 0, 0))

	require.NoError(t, fx.w.DownloadErrorReport("imp-1", "csv"))
	data := fx.downloader.files["errores_clientes.csv_1700000000000.csv"]
	assert.Equal(t, "Fila,Campo,Mensaje,Valor\n2,NIF,Formato inválido,123\n", string(data))
	assert.Equal(t, "Reporte de errores descargado", fx.lastNotice(t).Message)

	assert.ErrorIs(t, fx.w.DownloadErrorReport("imp-2", "csv"), ErrNoReportErrors)
	assert.ErrorIs(t, fx.w.DownloadErrorReport("missing", "csv"), ErrHistoryNotFound)
}

func TestRevertImport(t *testing.T) {
	fx := newFixture(t)
	fx.api.history = []models.ImportHistory{{ID: "imp-1", CanRevert: true}}

	res, err := fx.w.RevertImport(context.Background(), "imp-1")
	require.NoError(t, err)
	require.NotNil(t, res.RowsReverted)
	assert.Equal(t, 12, *res.RowsReverted)
	assert.Equal(t, "Importación revertida", fx.lastNotice(t).Message)

	_, _, _, _, histories, reverts := fx.api.calls()
	assert.Equal(t, 1, reverts)
	assert.Equal(t, 1, histories)

	fx.api.revertErr = &importapi.APIError{Op: "revert import", StatusCode: 500}
	_, err = fx.w.RevertImport(context.Background(), "imp-1")
	require.Error(t, err)
	assert.Equal(t, "Error al revertir la importación", fx.lastNotice(t).Message)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	fx := newFixture(t)
	ch, cancel := fx.w.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, StepUpload, first.Step)

	fx.selectValid(t)
	assert.Eventually(t, func() bool {
		select {
		case s := <-ch:
			return s.Step == StepPreview
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}
