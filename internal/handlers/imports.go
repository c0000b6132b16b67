package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func (h *Handler) HandleStartImport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.Wizard.StartImport(r.Context()); err != nil {
		h.writeWizardError(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusAccepted, session.Wizard.Snapshot())
}

func (h *Handler) HandleCancelImport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.Wizard.CancelImport(r.Context()); err != nil {
		h.writeWizardError(w, err)
		return
	}
	h.writeJSON(w, session.Wizard.Snapshot())
}

func (h *Handler) HandleResetImport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	session.Wizard.ResetImport()
	h.writeJSON(w, session.Wizard.Snapshot())
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := session.Wizard.LoadHistory(r.Context(), limit, offset); err != nil {
		h.writeWizardError(w, err)
		return
	}
	items, total := session.Wizard.History()
	h.writeJSON(w, map[string]any{
		"data":  items,
		"total": total,
	})
}

func (h *Handler) HandleErrorReport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	name, contentType, data, err := session.Wizard.ErrorReport(mux.Vars(r)["importId"], format)
	if err != nil {
		h.writeWizardError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := w.Write(data); err != nil {
		h.writeError(w, "Unable to write error report: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) HandleRevert(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	res, err := session.Wizard.RevertImport(r.Context(), mux.Vars(r)["importId"])
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	h.writeJSON(w, res)
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
