package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/wizard"
)

func (h *Handler) HandleSchemas(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.opts.Registry.Entries())
}

func (h *Handler) HandleListWizards(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	list := make([]wizard.Snapshot, 0, len(sessions))
	for _, session := range sessions {
		list = append(list, session.Wizard.Snapshot())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	h.writeJSON(w, list)
}

func (h *Handler) HandleCreateWizard(w http.ResponseWriter, r *http.Request) {
	session := h.newSession()
	h.sessionStore.Set(session)
	h.writeJSONStatus(w, http.StatusCreated, session.Wizard.Snapshot())
}

func (h *Handler) HandleGetWizard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, session.Wizard.Snapshot())
}

func (h *Handler) HandleDeleteWizard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.sessionStore.Delete(session.Wizard.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var cfg models.ImportConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := session.Wizard.SetConfig(cfg); err != nil {
		h.writeWizardError(w, err)
		return
	}
	h.writeJSON(w, session.Wizard.Snapshot())
}

func (h *Handler) HandleStep(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Step string `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	step, err := wizard.ParseStep(request.Step)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := session.Wizard.GoToStep(step); err != nil {
		h.writeWizardError(w, err)
		return
	}
	h.writeJSON(w, session.Wizard.Snapshot())
}

func (h *Handler) HandleNotices(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, session.Notices.Notices())
}
