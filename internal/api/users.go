package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listSaved(w http.ResponseWriter, r *http.Request) {
	deals, err := h.repo.ListSaved(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		h.storeError(w, "list saved deals", err)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

func (h *Handler) toggleSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := h.repo.ToggleSaved(r.Context(), identityFrom(r.Context()).UserID, chi.URLParam(r, "dealId"))
	if err != nil {
		h.storeError(w, "toggle saved deal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}
