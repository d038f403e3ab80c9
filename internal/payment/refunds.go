package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"billingconsole/internal/api"
	"billingconsole/internal/events"
	"billingconsole/internal/money"
	"billingconsole/pkg/db"
	"billingconsole/pkg/processor"
)

type refundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type refundResponse struct {
	RefundID  string `json:"refundId"`
	PaymentID string `json:"paymentId"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

// Refund sends part or all of a succeeded payment back through the processor.
// Paid invoices stay paid; corrections to the customer's position are the
// operator's follow-up, this only moves the money.
func (h Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	op := api.OperatorFromContext(r.Context())
	if op == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator identity")
		return
	}

	paymentID := chi.URLParam(r, "id")
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	p, err := h.Payments.Get(r.Context(), paymentID)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "unknown payment")
		return
	}
	if p.Status != StatusSucceeded {
		api.WriteError(w, http.StatusConflict, "PAYMENT_NOT_REFUNDABLE", "only succeeded payments can be refunded")
		return
	}

	amount, err := money.Parse(req.Amount, p.Currency)
	if err != nil || !amount.IsPositive() {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "refund amount must be > 0")
		return
	}
	if amount.Minor > p.AmountMinor {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "refund amount exceeds the payment")
		return
	}

	client := processor.Client{
		BaseURL:    h.Cfg.Processor.BaseURL,
		APIKey:     h.Cfg.Processor.APIKey,
		APIVersion: h.Cfg.Processor.APIVersion,
	}
	refund, err := client.CreateRefund(r.Context(), processor.RefundRequest{
		PaymentID: p.ProcessorID,
		Amount:    amount.String(),
		Reason:    req.Reason,
	})
	if err != nil {
		if h.Cfg.AppEnv != "prod" {
			api.WriteError(w, http.StatusBadGateway, "PROCESSOR_ERROR", fmt.Sprintf("refund failed: %v", err))
			return
		}
		api.WriteError(w, http.StatusBadGateway, "PROCESSOR_ERROR", "refund failed")
		return
	}

	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		summary := fmt.Sprintf("Refund of %s %s requested for payment %s", amount.String(), p.Currency, p.ID)
		return events.Insert(r.Context(), tx, p.CustomerID, events.TypeRefundRequested, summary, op.Subject, time.Now(), map[string]any{
			"paymentId": p.ID,
			"refundId":  refund.ID,
			"amount":    amount.String(),
			"reason":    req.Reason,
		})
	})
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to record refund")
		return
	}

	api.WriteJSON(w, http.StatusCreated, refundResponse{
		RefundID:  refund.ID,
		PaymentID: p.ID,
		Amount:    amount.String(),
		Status:    refund.Status,
	})
}
