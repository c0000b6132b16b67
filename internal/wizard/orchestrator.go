package wizard

import (
	"context"
	"log/slog"
	"time"

	"github.com/soriano-mediadores/csvimport/internal/importapi"
	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/notify"
)

// StartImport uploads the selected file with the current configuration and
// starts polling the new job. Preconditions are checked before any request.
func (w *Wizard) StartImport(ctx context.Context) error {
	w.mu.Lock()
	if w.importing {
		w.mu.Unlock()
		return ErrImportRunning
	}
	f := w.file
	cfg := w.config
	if f == nil {
		w.mu.Unlock()
		w.notify(notify.Error("Por favor, selecciona un archivo primero"))
		return ErrNoFile
	}
	if cfg.Type == "" {
		w.mu.Unlock()
		w.notify(notify.Error("Por favor, selecciona el tipo de importación"))
		return ErrNoType
	}
	session := w.session
	prevStep := w.step
	w.importing = true
	w.step = StepProcess
	w.publishLocked()
	w.mu.Unlock()

	slog.Info("Starting import", "wizard_id", w.id, "file", f.Name(), "type", cfg.Type, "mode", cfg.Mode)
	progress, err := w.api.Start(ctx, f, cfg)

	w.mu.Lock()
	if session != w.session {
		w.mu.Unlock()
		if err == nil {
			slog.Warn("Import started after wizard reset; not tracking it", "wizard_id", w.id, "import_id", progress.ID)
		}
		return ErrSuperseded
	}
	if err != nil {
		w.importing = false
		w.step = prevStep
		w.publishLocked()
		w.mu.Unlock()
		slog.Error("Failed to start import", "wizard_id", w.id, "error", err)
		w.notify(notify.Error(importapi.MessageOf(err, "Error al iniciar la importación")))
		return err
	}
	w.current = progress
	w.startPollingLocked(progress.ID)
	w.publishLocked()
	w.mu.Unlock()

	slog.Info("Import started", "wizard_id", w.id, "import_id", progress.ID)
	w.notify(notify.Info("Importación iniciada"))
	return nil
}

// Attach starts polling an import started elsewhere
func (w *Wizard) Attach(importID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.importing {
		return ErrImportRunning
	}
	w.current = &models.ImportProgress{ID: importID, Status: models.StatusPending}
	w.importing = true
	w.step = StepProcess
	w.startPollingLocked(importID)
	w.publishLocked()
	slog.Info("Attached to import", "wizard_id", w.id, "import_id", importID)
	return nil
}

// CancelImport asks the server to cancel the current import. Polling stops
// only once the server accepts; a rejected cancel leaves it running.
func (w *Wizard) CancelImport(ctx context.Context) error {
	w.mu.Lock()
	cur := w.current
	w.mu.Unlock()
	if cur == nil {
		return ErrNoImport
	}

	if err := w.api.Cancel(ctx, cur.ID); err != nil {
		slog.Error("Failed to cancel import", "wizard_id", w.id, "import_id", cur.ID, "error", err)
		w.notify(notify.Error(importapi.MessageOf(err, "Error al cancelar la importación")))
		return err
	}

	w.mu.Lock()
	if w.current != nil && w.current.ID == cur.ID {
		w.stopPollingLocked()
		w.importing = false
		w.publishLocked()
	}
	w.mu.Unlock()

	slog.Info("Import cancelled", "wizard_id", w.id, "import_id", cur.ID)
	w.notify(notify.Info("Importación cancelada"))
	return nil
}

// Wait blocks until the current poll loop exits or ctx is done
func (w *Wizard) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.pollDone
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Wizard) startPollingLocked(importID string) {
	w.stopPollingLocked()
	pollCtx, cancel := context.WithCancel(w.ctx)
	w.stopPoll = cancel
	done := make(chan struct{})
	w.pollDone = done
	go w.poll(pollCtx, w.pollGen, importID, done)
}

// stopPollingLocked cancels the loop; an in-flight response is discarded
func (w *Wizard) stopPollingLocked() {
	w.pollGen++
	if w.stopPoll != nil {
		w.stopPoll()
		w.stopPoll = nil
	}
}

// poll requests the job status until it is terminal. Requests are strictly
// sequential: the next one is scheduled only after a response arrives.
func (w *Wizard) poll(ctx context.Context, gen uint64, importID string, done chan struct{}) {
	defer close(done)

	sched := w.opts.Backoff.Schedule()
	var delay time.Duration
	for {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-w.opts.After(delay):
			}
		}

		progress, err := w.api.Status(ctx, importID)

		w.mu.Lock()
		if gen != w.pollGen || ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		if err != nil {
			w.stopPollingLocked()
			w.importing = false
			w.publishLocked()
			w.mu.Unlock()
			slog.Error("Failed to poll import status", "wizard_id", w.id, "import_id", importID, "error", err)
			w.notify(notify.Error(importapi.MessageOf(err, "Error al consultar el estado de la importación")))
			return
		}

		w.current = progress
		if !progress.Status.IsTerminal() {
			w.publishLocked()
			w.mu.Unlock()
			delay = sched.Next()
			slog.Debug("Import in progress", "import_id", importID, "status", progress.Status, "progress", progress.Progress, "next_poll", delay)
			continue
		}

		w.stopPollingLocked()
		w.importing = false
		w.step = StepResults
		w.publishLocked()
		w.mu.Unlock()

		slog.Info("Import finished", "wizard_id", w.id, "import_id", importID, "status", progress.Status,
			"successful", progress.Stats.SuccessfulRows, "errors", progress.Stats.ErrorRows)
		if progress.Status == models.StatusCompleted {
			w.notify(notify.Success("Importación completada exitosamente"))
		}
		_ = w.LoadHistory(w.ctx, 0, 0)
		return
	}
}
