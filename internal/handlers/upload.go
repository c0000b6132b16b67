package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/soriano-mediadores/csvimport/internal/intake"
)

// HandleUploadFile stores the "file" part of a multipart upload and selects
// it in the wizard, which runs the intake gates and loads the preview
func (h *Handler) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	if err := h.ensureUploadsDir(); err != nil {
		h.writeError(w, "Failed to create uploads directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	path, name, err := h.saveUpload(r)
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	f, err := intake.NewLocalFile(path, name)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := session.Wizard.SelectFile(r.Context(), f); err != nil {
		// A failed preview keeps the file selected; only drop what the wizard let go
		if session.Wizard.SelectedFile() != intake.File(f) {
			if rmErr := os.Remove(path); rmErr != nil {
				slog.Warn("Failed to remove rejected upload", "path", path, "err", rmErr)
			}
		}
		h.writeWizardError(w, err)
		return
	}
	h.writeJSON(w, session.Wizard.Snapshot())
}

func (h *Handler) HandleRemoveFile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	session.Wizard.RemoveFile()
	h.writeJSON(w, session.Wizard.Snapshot())
}

// saveUpload streams the first "file" part to disk. Copying stops one byte
// past the size limit so oversized files still reach the intake size gate.
func (h *Handler) saveUpload(r *http.Request) (path, name string, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", "", err
	}

	maxSize := h.opts.Intake.MaxSize
	if maxSize <= 0 {
		maxSize = intake.DefaultMaxSize
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", "", fmt.Errorf("missing file part")
		}
		if err != nil {
			return "", "", err
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		name = filepath.Base(part.FileName())
		path = filepath.Join(h.uploadDir, uuid.NewString()+".csv")
		out, err := os.Create(path)
		if err != nil {
			part.Close()
			return "", "", err
		}
		n, err := io.Copy(out, io.LimitReader(part, maxSize+1))
		part.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
			return "", "", err
		}
		slog.Info("Upload stored", "file", name, "path", path, "bytes", n)
		return path, name, nil
	}
}

// PruneUploads removes stored uploads older than maxAge that no open wizard
// still holds, returning how many were removed
func (h *Handler) PruneUploads(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	held := make(map[string]bool)
	for _, session := range h.sessionStore.GetAll() {
		if f, ok := session.Wizard.SelectedFile().(*intake.LocalFile); ok {
			held[filepath.Clean(f.Path())] = true
		}
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Clean(filepath.Join(h.uploadDir, e.Name()))
		info, err := e.Info()
		if err != nil || held[path] || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to prune upload", "path", path, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}
