package invoice

import (
	"context"
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
	"billingconsole/internal/money"
	"billingconsole/internal/schedule"
	"billingconsole/pkg/config"
	"billingconsole/pkg/db"
	"billingconsole/pkg/processor"
)

type Handlers struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Invoices  *Repository
	Customers *customer.Repository
	Generator schedule.Generator
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	invoices, err := h.Invoices.ListByCustomer(r.Context(), customerID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load invoices")
		return
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Invoices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "INVOICE_NOT_FOUND", "unknown invoice")
		return
	}
	api.WriteJSON(w, http.StatusOK, inv)
}

type payableTarget struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Remaining string `json:"remaining"`
	SortDate  string `json:"sortDate,omitempty"`
}

// Payables returns the customer's current allocation candidates in payment
// priority order, ready for the composition UI.
func (h Handlers) Payables(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
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

	targets := allocation.SortTargets(PaymentTargets(payable, money.New(cust.OutstandingMinor, cust.Currency)))
	out := make([]payableTarget, 0, len(targets))
	for _, t := range targets {
		pt := payableTarget{
			ID:        t.ID,
			Kind:      t.Kind.String(),
			Label:     t.Label,
			Remaining: t.Remaining.String(),
		}
		if !t.SortDate.IsZero() {
			pt.SortDate = t.SortDate.Format("2006-01-02")
		}
		out = append(out, pt)
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"targets": out})
}

type createScheduleRequest struct {
	Cadence     string   `json:"cadence"`
	Total       string   `json:"total"`
	Start       string   `json:"start,omitempty"` // YYYY-MM-DD; defaults to today
	End         string   `json:"end,omitempty"`   // derives the cycle count when set
	CycleCount  int      `json:"cycleCount,omitempty"`
	CustomDates []string `json:"customDates,omitempty"`
	AutoCollect bool     `json:"autoCollect"`
}

type occurrenceResponse struct {
	Sequence  int    `json:"sequence"`
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	InvoiceID string `json:"invoiceId"`
}

type createScheduleResponse struct {
	ScheduleID  string               `json:"scheduleId"`
	Cadence     string               `json:"cadence"`
	EndDate     string               `json:"endDate"`
	Occurrences []occurrenceResponse `json:"occurrences"`
}

// CreateSchedule turns a cadence plus a total into dated draft invoices: one
// per occurrence, each created on the processor and recorded locally in a
// single transaction.
func (h Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	op := api.OperatorFromContext(r.Context())
	if op == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator identity")
		return
	}

	customerID := chi.URLParam(r, "id")
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	cust, err := h.Customers.Get(r.Context(), customerID)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "unknown customer")
		return
	}

	spec, err := h.buildSpec(req, cust.Currency)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	occurrences, err := h.Generator.Generate(spec)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	endDate := schedule.EndDate(occurrences)

	client := processor.Client{
		BaseURL:    h.Cfg.Processor.BaseURL,
		APIKey:     h.Cfg.Processor.APIKey,
		APIVersion: h.Cfg.Processor.APIVersion,
	}

	scheduleID := uuid.NewString()
	resp := createScheduleResponse{
		ScheduleID: scheduleID,
		Cadence:    string(spec.Cadence),
		EndDate:    endDate.Format("2006-01-02"),
	}

	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		if err := insertSchedule(r.Context(), tx, scheduleID, customerID, spec, len(occurrences), endDate); err != nil {
			return err
		}

		for _, occ := range occurrences {
			invoiceID := uuid.NewString()
			procInv, err := client.CreateInvoice(r.Context(), processor.InvoiceRequest{
				CustomerID:  customerID,
				Amount:      occ.Amount.String(),
				Currency:    occ.Amount.Currency,
				DueDate:     processor.DateParam(occ.Date),
				Draft:       true,
				AutoCollect: req.AutoCollect,
				Description: fmt.Sprintf("billingconsole: invoice_id=%s schedule_id=%s", invoiceID, scheduleID),
				Metadata:    map[string]string{"schedule_id": scheduleID},
			})
			if err != nil {
				return err
			}

			inv := Invoice{
				ID:          invoiceID,
				CustomerID:  customerID,
				Status:      StatusDraft,
				AmountMinor: occ.Amount.Minor,
				Currency:    occ.Amount.Currency,
				DueDate:     occ.Date,
				ScheduleID:  scheduleID,
				Sequence:    occ.Sequence,
				AutoCollect: req.AutoCollect,
				ProcessorID: procInv.ID,
			}
			if err := Insert(r.Context(), tx, inv); err != nil {
				return err
			}

			resp.Occurrences = append(resp.Occurrences, occurrenceResponse{
				Sequence:  occ.Sequence,
				Date:      occ.Date.Format("2006-01-02"),
				Amount:    occ.Amount.String(),
				InvoiceID: invoiceID,
			})
		}

		summary := fmt.Sprintf("Schedule of %d invoices created (%s)", len(occurrences), spec.Cadence)
		return events.Insert(r.Context(), tx, customerID, events.TypeScheduleCreated, summary, op.Subject, time.Now(), map[string]any{
			"scheduleId": scheduleID,
			"endDate":    resp.EndDate,
		})
	})
	if err != nil {
		if h.Cfg.AppEnv != "prod" {
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", fmt.Sprintf("create schedule failed: %v", err))
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	api.WriteJSON(w, http.StatusCreated, resp)
}

func (h Handlers) buildSpec(req createScheduleRequest, currency string) (schedule.Spec, error) {
	cadence, err := schedule.ParseCadence(req.Cadence)
	if err != nil {
		return schedule.Spec{}, err
	}
	total, err := money.Parse(req.Total, currency)
	if err != nil {
		return schedule.Spec{}, allocation.ValidationError{Code: "VALIDATION_FAILED", Message: err.Error()}
	}

	spec := schedule.Spec{Cadence: cadence, Total: total, CycleCount: req.CycleCount}

	if cadence == schedule.CadenceCustom {
		for _, s := range req.CustomDates {
			d, err := parseDate(s)
			if err != nil {
				return schedule.Spec{}, err
			}
			spec.CustomDates = append(spec.CustomDates, d)
		}
		return spec, nil
	}

	if req.Start != "" {
		spec.Start, err = parseDate(req.Start)
		if err != nil {
			return schedule.Spec{}, err
		}
	} else {
		spec.Start = h.Generator.Today()
	}
	if req.End != "" && spec.CycleCount == 0 {
		end, err := parseDate(req.End)
		if err != nil {
			return schedule.Spec{}, err
		}
		spec.CycleCount, err = schedule.CycleCount(cadence, spec.Start, end)
		if err != nil {
			return schedule.Spec{}, err
		}
	}
	return spec, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, allocation.ValidationError{Code: "VALIDATION_FAILED", Message: "invalid date: " + s}
	}
	return d, nil
}

func writeScheduleError(w http.ResponseWriter, err error) {
	var ve allocation.ValidationError
	if errors.As(err, &ve) {
		api.WriteError(w, http.StatusBadRequest, ve.Code, ve.Message)
		return
	}
	api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func insertSchedule(ctx context.Context, tx pgx.Tx, id, customerID string, spec schedule.Spec, occurrenceCount int, endDate time.Time) error {
	const q = `
INSERT INTO schedules (id, customer_id, cadence, start_date, cycle_count, total_minor, currency, end_date)
VALUES ($1, $2, $3, NULLIF($4, '0001-01-01')::date, $5, $6, $7, $8)
`
	start := spec.Start
	_, err := tx.Exec(ctx, q, id, customerID, string(spec.Cadence), start.Format("2006-01-02"), occurrenceCount, spec.Total.Minor, spec.Total.Currency, endDate)
	return err
}
