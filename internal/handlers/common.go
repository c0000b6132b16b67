package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/soriano-mediadores/csvimport/internal/importapi"
	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/soriano-mediadores/csvimport/internal/schema"
	"github.com/soriano-mediadores/csvimport/internal/storage"
	"github.com/soriano-mediadores/csvimport/internal/wizard"
)

type Handler struct {
	sessionStore *storage.SessionStore
	api          wizard.API
	opts         wizard.Options
	uploadDir    string
}

// New creates the gateway handler. Every wizard it opens shares api and a
// copy of opts; notices are additionally kept per wizard.
func New(api wizard.API, opts wizard.Options, uploadDir string) *Handler {
	if opts.Registry == nil {
		opts.Registry = schema.Default()
	}
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &Handler{
		sessionStore: storage.New(),
		api:          api,
		opts:         opts,
		uploadDir:    uploadDir,
	}
}

// Close stops every open wizard
func (h *Handler) Close() {
	h.sessionStore.CloseAll()
}

// Sessions exposes the open wizards to background jobs
func (h *Handler) Sessions() *storage.SessionStore {
	return h.sessionStore
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeWizardError maps wizard and API failures to HTTP status codes
func (h *Handler) writeWizardError(w http.ResponseWriter, err error) {
	var missing *schema.MissingColumnError
	var apiErr *importapi.APIError
	switch {
	case errors.Is(err, intake.ErrInvalidFileType), errors.Is(err, intake.ErrFileTooLarge),
		errors.Is(err, wizard.ErrNoFile), errors.Is(err, wizard.ErrNoType),
		errors.Is(err, wizard.ErrInvalidStep):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &missing):
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, wizard.ErrImportRunning), errors.Is(err, wizard.ErrPreviewSuperseded),
		errors.Is(err, wizard.ErrSuperseded), errors.Is(err, wizard.ErrNoImport):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, wizard.ErrHistoryNotFound), errors.Is(err, wizard.ErrNoReportErrors):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &apiErr):
		h.writeError(w, importapi.MessageOf(err, err.Error()), http.StatusBadGateway)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	session, exists := h.sessionStore.Get(mux.Vars(r)["id"])
	if !exists {
		h.writeError(w, "Wizard not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) newSession() *storage.Session {
	recorder := notify.NewRecorder(50)
	opts := h.opts
	if opts.Notifier != nil {
		opts.Notifier = notify.Multi{opts.Notifier, recorder}
	} else {
		opts.Notifier = notify.Multi{notify.Log{}, recorder}
	}
	return &storage.Session{
		Wizard:    wizard.New(h.api, opts),
		Notices:   recorder,
		CreatedAt: time.Now(),
	}
}

// File operation helpers
func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadDir, 0755)
}
