package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"billingconsole/internal/allocation"
	"billingconsole/internal/api"
	"billingconsole/internal/customer"
	"billingconsole/internal/events"
	"billingconsole/internal/invoice"
	"billingconsole/internal/money"
	"billingconsole/pkg/config"
	"billingconsole/pkg/db"
	"billingconsole/pkg/processor"
)

type Handlers struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Invoices  *invoice.Repository
	Customers *customer.Repository
	Payments  *Repository
}

type composeRequest struct {
	// Amount drives amount-first composition; SelectedIDs drives
	// selection-first composition. Amount is required on submission.
	Amount         string   `json:"amount,omitempty"`
	SelectedIDs    []string `json:"selectedIds,omitempty"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
}

type previewLine struct {
	TargetID       string `json:"targetId"`
	Kind           string `json:"kind"`
	Label          string `json:"label"`
	Applied        string `json:"applied"`
	RemainingAfter string `json:"remainingAfter"`
}

type previewResponse struct {
	Mode           allocation.Mode `json:"mode"`
	Amount         string          `json:"amount"`
	SelectedIDs    []string        `json:"selectedIds"`
	Lines          []previewLine   `json:"lines"`
	LeftoverCredit string          `json:"leftoverCredit"`
}

// Preview composes a payment without side effects: it runs the allocation
// engine against the customer's current payable targets and returns what the
// submission would look like.
func (h Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	cust, err := h.Customers.Get(r.Context(), customerID)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "unknown customer")
		return
	}
	payable, err := h.Invoices.ListPayable(r.Context(), customerID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load invoices")
		return
	}
	targets := invoice.PaymentTargets(payable, money.New(cust.OutstandingMinor, cust.Currency))

	engine, err := allocation.NewEngine(targets)
	if err != nil {
		writeAllocationError(w, err)
		return
	}

	if req.Amount != "" {
		amount, err := money.Parse(req.Amount, cust.Currency)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			return
		}
		if err := engine.SetAmount(amount); err != nil {
			writeAllocationError(w, err)
			return
		}
	} else {
		for _, id := range req.SelectedIDs {
			if err := engine.Select(id); err != nil {
				writeAllocationError(w, err)
				return
			}
		}
	}

	resp := previewResponse{
		Mode:           engine.Mode(),
		Amount:         engine.Amount().String(),
		SelectedIDs:    engine.SelectedIDs(),
		Lines:          []previewLine{},
		LeftoverCredit: money.New(0, cust.Currency).String(),
	}
	if engine.Amount().IsPositive() {
		result, err := engine.Allocate()
		if err != nil {
			writeAllocationError(w, err)
			return
		}
		resp.Lines = previewLines(result, targets)
		resp.LeftoverCredit = result.Leftover.String()
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// Submit allocates and submits a payment. Candidates are re-fetched inside
// the transaction, so a selection made against outdated data is refused with
// a conflict and the operator re-runs composition against fresh candidates.
func (h Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	op := api.OperatorFromContext(r.Context())
	if op == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator identity")
		return
	}

	customerID := chi.URLParam(r, "id")
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	var resp *Payment
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		cust, err := customer.GetForUpdate(r.Context(), tx, customerID)
		if err != nil {
			api.WriteError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "unknown customer")
			return pgx.ErrTxCommitRollback
		}

		amount, err := money.Parse(req.Amount, cust.Currency)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			return pgx.ErrTxCommitRollback
		}

		payable, err := invoice.ListPayableTx(r.Context(), tx, customerID)
		if err != nil {
			return err
		}
		targets := invoice.PaymentTargets(payable, money.New(cust.OutstandingMinor, cust.Currency))

		result, err := allocation.AllocateSelection(amount, targets, req.SelectedIDs)
		if err != nil {
			writeAllocationError(w, err)
			return pgx.ErrTxCommitRollback
		}

		paymentID := uuid.NewString()
		idempotencyKey := req.IdempotencyKey
		if idempotencyKey == "" {
			idempotencyKey = paymentID
		}

		client := processor.Client{
			BaseURL:    h.Cfg.Processor.BaseURL,
			APIKey:     h.Cfg.Processor.APIKey,
			APIVersion: h.Cfg.Processor.APIVersion,
		}
		// The description is echoed back in processor events and resolves the
		// payment when an event arrives without explicit metadata.
		description := fmt.Sprintf("billingconsole: payment_id=%s customer_id=%s", paymentID, customerID)
		procPayment, err := client.CreatePayment(r.Context(), processor.PaymentRequest{
			CustomerID:     customerID,
			Amount:         amount.String(),
			Currency:       cust.Currency,
			Lines:          processorLines(result),
			Credit:         result.Leftover.String(),
			Description:    description,
			IdempotencyKey: idempotencyKey,
		})
		if err != nil {
			return err
		}

		p := Payment{
			ID:          paymentID,
			CustomerID:  customerID,
			ProcessorID: procPayment.ID,
			Status:      StatusPending,
			AmountMinor: amount.Minor,
			Currency:    cust.Currency,
			CreditMinor: result.Leftover.Minor,
			Lines:       paymentLines(result),
		}
		if err := Insert(r.Context(), tx, p); err != nil {
			return err
		}

		summary := fmt.Sprintf("Payment of %s %s submitted", amount.String(), cust.Currency)
		if err := events.Insert(r.Context(), tx, customerID, events.TypePaymentSubmitted, summary, op.Subject, time.Now(), map[string]any{
			"paymentId":      paymentID,
			"processorId":    procPayment.ID,
			"leftoverCredit": result.Leftover.String(),
		}); err != nil {
			return err
		}

		resp = &p
		return nil
	})

	if err != nil {
		if errors.Is(err, pgx.ErrTxCommitRollback) {
			return
		}
		if h.Cfg.AppEnv != "prod" {
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", fmt.Sprintf("submit payment failed: %v", err))
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	api.WriteJSON(w, http.StatusCreated, resp)
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "unknown payment")
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

func writeAllocationError(w http.ResponseWriter, err error) {
	var ve allocation.ValidationError
	if errors.As(err, &ve) {
		api.WriteError(w, http.StatusBadRequest, ve.Code, ve.Message)
		return
	}
	var ae allocation.AllocationError
	if errors.As(err, &ae) {
		// Stale candidates: the operator must refresh and re-run selection.
		api.WriteError(w, http.StatusConflict, ae.Code, ae.Message)
		return
	}
	api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func previewLines(result allocation.Result, targets []allocation.Target) []previewLine {
	byID := make(map[string]allocation.Target, len(targets))
	for _, t := range targets {
		byID[t.ID] = t
	}
	out := make([]previewLine, 0, len(result.Lines))
	for _, l := range result.Lines {
		t := byID[l.TargetID]
		out = append(out, previewLine{
			TargetID:       l.TargetID,
			Kind:           t.Kind.String(),
			Label:          t.Label,
			Applied:        l.Applied.String(),
			RemainingAfter: l.RemainingAfter.String(),
		})
	}
	return out
}

func processorLines(result allocation.Result) []processor.AppliedLine {
	var out []processor.AppliedLine
	for _, l := range result.Lines {
		if !l.Applied.IsPositive() {
			continue
		}
		line := processor.AppliedLine{Amount: l.Applied.String()}
		// The outstanding balance has no processor-side invoice; an empty
		// invoice id applies the line to the customer balance.
		if l.TargetID != invoice.OutstandingTargetID {
			line.InvoiceID = l.TargetID
		}
		out = append(out, line)
	}
	return out
}

func paymentLines(result allocation.Result) []Line {
	out := make([]Line, 0, len(result.Lines))
	for i, l := range result.Lines {
		out = append(out, Line{
			Position:            i,
			TargetID:            l.TargetID,
			AppliedMinor:        l.Applied.Minor,
			RemainingAfterMinor: l.RemainingAfter.Minor,
		})
	}
	return out
}
