package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Router wires the gateway endpoints
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/schemas", h.HandleSchemas).Methods("GET")

	router.HandleFunc("/api/wizards", h.HandleListWizards).Methods("GET")
	router.HandleFunc("/api/wizards", h.HandleCreateWizard).Methods("POST")
	router.HandleFunc("/api/wizards/{id}", h.HandleGetWizard).Methods("GET")
	router.HandleFunc("/api/wizards/{id}", h.HandleDeleteWizard).Methods("DELETE")
	router.HandleFunc("/api/wizards/{id}/config", h.HandleConfig).Methods("PUT")
	router.HandleFunc("/api/wizards/{id}/step", h.HandleStep).Methods("POST")
	router.HandleFunc("/api/wizards/{id}/notices", h.HandleNotices).Methods("GET")

	router.HandleFunc("/api/wizards/{id}/file", h.HandleUploadFile).Methods("POST")
	router.HandleFunc("/api/wizards/{id}/file", h.HandleRemoveFile).Methods("DELETE")

	router.HandleFunc("/api/wizards/{id}/import", h.HandleStartImport).Methods("POST")
	router.HandleFunc("/api/wizards/{id}/import/cancel", h.HandleCancelImport).Methods("POST")
	router.HandleFunc("/api/wizards/{id}/reset", h.HandleResetImport).Methods("POST")

	router.HandleFunc("/api/wizards/{id}/history", h.HandleHistory).Methods("GET")
	router.HandleFunc("/api/wizards/{id}/history/{importId}/errors", h.HandleErrorReport).Methods("GET")
	router.HandleFunc("/api/wizards/{id}/history/{importId}/revert", h.HandleRevert).Methods("POST")

	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	}).Methods("GET")

	return router
}
