package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soriano-mediadores/csvimport/internal/importapi"
	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/soriano-mediadores/csvimport/internal/report"
)

// LoadHistory refreshes the import log. On failure the previous list stays.
// limit and offset of zero use the configured page size and the first page.
func (w *Wizard) LoadHistory(ctx context.Context, limit, offset int) error {
	if limit <= 0 {
		limit = w.opts.HistoryLimit
	}

	w.mu.Lock()
	w.loadingHistory = true
	w.publishLocked()
	w.mu.Unlock()

	items, total, err := w.api.History(ctx, limit, offset)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loadingHistory = false
	if err != nil {
		w.publishLocked()
		slog.Error("Failed to load import history", "wizard_id", w.id, "error", err)
		return err
	}
	w.history = items
	w.historyTotal = total
	w.publishLocked()
	slog.Debug("Import history loaded", "wizard_id", w.id, "items", len(items), "total", total)
	return nil
}

// History returns the last loaded history page and the server total
func (w *Wizard) History() ([]models.ImportHistory, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.ImportHistory(nil), w.history...), w.historyTotal
}

func (w *Wizard) historyRecord(importID string) (models.ImportHistory, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range w.history {
		if h.ID == importID {
			return h, true
		}
	}
	return models.ImportHistory{}, false
}

// ErrorReport renders the row-error report of a history entry as csv or xlsx
func (w *Wizard) ErrorReport(importID, format string) (name, contentType string, data []byte, err error) {
	rec, ok := w.historyRecord(importID)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: %s", ErrHistoryNotFound, importID)
	}
	if len(rec.Errors) == 0 {
		return "", "", nil, ErrNoReportErrors
	}
	return report.ErrorReport(rec.Errors, rec.FileName, format, w.opts.Now())
}

// DownloadErrorReport saves the error report of a history entry through the downloader
func (w *Wizard) DownloadErrorReport(importID, format string) error {
	name, contentType, data, err := w.ErrorReport(importID, format)
	if err != nil {
		return err
	}
	return w.download(name, contentType, data)
}

// GenerateErrorReport writes errs as a CSV report named after fileName
func (w *Wizard) GenerateErrorReport(errs []models.ImportError, fileName string) error {
	name, contentType, data, err := report.ErrorReport(errs, fileName, "csv", w.opts.Now())
	if err != nil {
		return err
	}
	return w.download(name, contentType, data)
}

func (w *Wizard) download(name, contentType string, data []byte) error {
	if err := w.opts.Downloader.Download(name, contentType, data); err != nil {
		slog.Error("Failed to save error report", "file", name, "error", err)
		return fmt.Errorf("failed to save error report: %w", err)
	}
	slog.Info("Error report saved", "file", name, "bytes", len(data))
	w.notify(notify.Info("Reporte de errores descargado"))
	return nil
}

// RevertImport undoes a past import on the server and refreshes the history.
// canRevert is advisory: the server has the final say.
func (w *Wizard) RevertImport(ctx context.Context, importID string) (*models.RevertResponse, error) {
	if rec, ok := w.historyRecord(importID); ok && !rec.CanRevert {
		slog.Warn("Reverting an import not marked as revertible", "wizard_id", w.id, "import_id", importID)
	}

	res, err := w.api.Revert(ctx, importID)
	if err != nil {
		slog.Error("Failed to revert import", "wizard_id", w.id, "import_id", importID, "error", err)
		w.notify(notify.Error(importapi.MessageOf(err, "Error al revertir la importación")))
		return nil, err
	}

	slog.Info("Import reverted", "wizard_id", w.id, "import_id", importID)
	msg := res.Message
	if msg == "" {
		msg = "Importación revertida"
	}
	w.notify(notify.Success(msg))
	_ = w.LoadHistory(ctx, 0, 0)
	return res, nil
}
