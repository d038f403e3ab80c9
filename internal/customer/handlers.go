package customer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"billingconsole/internal/api"
	"billingconsole/internal/money"
)

type Handlers struct {
	Customers *Repository
}

type customerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Currency    string `json:"currency"`
	Outstanding string `json:"outstanding"`
	Credit      string `json:"credit"`
	CreatedAt   string `json:"createdAt"`
}

func toResponse(c *Customer) customerResponse {
	return customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Currency:    c.Currency,
		Outstanding: money.New(c.OutstandingMinor, c.Currency).String(),
		Credit:      money.New(c.CreditMinor, c.Currency).String(),
		CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "unknown customer")
		return
	}
	api.WriteJSON(w, http.StatusOK, toResponse(c))
}

type upsertRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Currency string `json:"currency"`
}

// Upsert registers a customer or refreshes its contact fields. Currency is
// fixed at creation; changing it would strand minor-unit balances.
func (h Handlers) Upsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}
	if req.Name == "" || req.Currency == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "name and currency are required")
		return
	}
	c, err := h.Customers.Upsert(r.Context(), Customer{
		ID:       id,
		Name:     req.Name,
		Email:    req.Email,
		Currency: req.Currency,
	})
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save customer")
		return
	}
	api.WriteJSON(w, http.StatusOK, toResponse(c))
}
