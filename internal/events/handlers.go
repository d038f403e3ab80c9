package events

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"billingconsole/internal/api"
)

type Handlers struct {
	Events *Repository
}

// List returns a customer's activity feed, newest first.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.Events.ListByCustomer(r.Context(), customerID, limit)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load events")
		return
	}
	if out == nil {
		out = []Event{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}
