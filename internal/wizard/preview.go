package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soriano-mediadores/csvimport/internal/importapi"
	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/soriano-mediadores/csvimport/internal/schema"
)

// SelectFile runs the intake gates on f and, when they pass, makes it the
// selected file and loads its server-side preview. Selecting a file while
// another preview is in flight supersedes that preview.
func (w *Wizard) SelectFile(ctx context.Context, f intake.File) error {
	if err := intake.Check(f, w.opts.Intake); err != nil {
		slog.Warn("File rejected", "wizard_id", w.id, "file", f.Name(), "error", err)
		switch {
		case errors.Is(err, intake.ErrInvalidFileType):
			w.notify(notify.Error("Por favor, selecciona un archivo CSV válido"))
		case errors.Is(err, intake.ErrFileTooLarge):
			w.notify(notify.Error(fmt.Sprintf("El archivo es demasiado grande. Máximo %s", intake.FormatFileSize(w.opts.Intake.MaxSize))))
		}
		return err
	}

	w.mu.Lock()
	if w.importing {
		w.mu.Unlock()
		slog.Warn("File rejected while an import is running", "wizard_id", w.id, "file", f.Name())
		w.notify(notify.Error("Hay una importación en curso. Espera a que termine o cancélala"))
		return ErrImportRunning
	}
	w.supersedePreviewLocked()
	previewCtx, cancel := context.WithCancel(ctx)
	w.cancelPreview = cancel
	gen := w.previewGen
	w.file = f
	w.preview = nil
	w.loadingPreview = true
	w.publishLocked()
	w.mu.Unlock()
	defer cancel()

	slog.Info("File selected", "wizard_id", w.id, "file", f.Name(), "size", f.Size())
	return w.loadPreview(previewCtx, gen, f)
}

// RemoveFile clears the selection and any preview, in flight or loaded
func (w *Wizard) RemoveFile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.supersedePreviewLocked()
	w.file = nil
	w.preview = nil
	if !w.importing {
		w.step = StepUpload
	}
	w.publishLocked()
}

func (w *Wizard) loadPreview(ctx context.Context, gen uint64, f intake.File) error {
	preview, err := w.api.Preview(ctx, f)

	w.mu.Lock()
	if gen != w.previewGen {
		w.mu.Unlock()
		slog.Debug("Discarding stale preview", "wizard_id", w.id, "file", f.Name())
		return ErrPreviewSuperseded
	}
	w.loadingPreview = false

	if err != nil {
		w.preview = nil
		w.publishLocked()
		w.mu.Unlock()
		slog.Error("Failed to load preview", "wizard_id", w.id, "file", f.Name(), "error", err)
		w.notify(notify.Error(importapi.MessageOf(err, "Error al cargar la vista previa")))
		return err
	}

	cfgType := w.config.Type
	if verr := schema.Validate(preview.Headers, w.opts.Registry.RequiredColumns(cfgType), w.opts.Matcher); verr != nil {
		w.preview = preview
		n := w.rejectPreviewLocked(verr)
		w.publishLocked()
		w.mu.Unlock()
		w.notify(n)
		return verr
	}

	w.preview = preview
	w.step = StepPreview
	w.publishLocked()
	w.mu.Unlock()

	slog.Info("Preview loaded", "wizard_id", w.id, "file", f.Name(), "rows", preview.TotalRows, "headers", len(preview.Headers))
	w.notify(notify.Success(fmt.Sprintf("Archivo validado correctamente para %s", w.typeTitle(cfgType))))
	return nil
}

// rejectPreviewLocked discards file and preview after a header mismatch
func (w *Wizard) rejectPreviewLocked(err error) notify.Notice {
	slog.Warn("Header validation failed", "wizard_id", w.id, "type", w.config.Type, "error", err)
	w.file = nil
	w.preview = nil
	w.step = StepUpload

	var missing *schema.MissingColumnError
	if errors.As(err, &missing) {
		return notify.Error(fmt.Sprintf("El archivo no contiene la columna requerida: %q", missing.Column))
	}
	return notify.Error(err.Error())
}

// supersedePreviewLocked invalidates any preview request still in flight
func (w *Wizard) supersedePreviewLocked() {
	w.previewGen++
	if w.cancelPreview != nil {
		w.cancelPreview()
		w.cancelPreview = nil
	}
	w.loadingPreview = false
}

func (w *Wizard) typeTitle(t models.ImportType) string {
	if e, ok := w.opts.Registry.Lookup(t); ok && e.Title != "" {
		return e.Title
	}
	return string(t)
}
