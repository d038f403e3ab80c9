package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"billingconsole/internal/api"
	"billingconsole/internal/customer"
	"billingconsole/internal/events"
	"billingconsole/internal/invoice"
	"billingconsole/internal/payment"
	"billingconsole/pkg/config"
	"billingconsole/pkg/db"
)

// Handler is the processor event intake. Every delivery is verified,
// deduplicated by event id, and applied in one transaction.
type Handler struct {
	Cfg config.Config
	DB  *pgxpool.Pool
	Log *logrus.Logger
}

type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payment *paymentPayload `json:"payment,omitempty"`
	Invoice *invoicePayload `json:"invoice,omitempty"`
}

type paymentPayload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	FailureCode string `json:"failure_code,omitempty"`
}

type invoicePayload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.Header.Get("Processor-Topic"))
	if topic == "" {
		topic = chi.URLParam(r, "topic")
	}
	topic = NormalizeTopic(topic)

	signature := strings.TrimSpace(r.Header.Get("Processor-Signature"))
	eventID := strings.TrimSpace(r.Header.Get("Processor-Event-Id"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	if h.Cfg.Processor.WebhookSecret == "" || !VerifySignature(body, signature, h.Cfg.Processor.WebhookSecret) {
		api.WriteError(w, http.StatusUnauthorized, "SIGNATURE_INVALID", "signature verification failed")
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid payload")
		return
	}
	if eventID == "" {
		eventID = env.ID
	}
	if eventID == "" {
		// No id anywhere; fall back to a payload digest so redeliveries
		// still dedupe.
		sum := sha256.Sum256(body)
		eventID = hex.EncodeToString(sum[:])
	}

	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		fresh, err := recordDelivery(r.Context(), tx, eventID, topic)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		switch topic {
		case "payment_succeeded":
			return h.applyPaymentSucceeded(r.Context(), tx, env)
		case "payment_failed":
			return h.applyPaymentFailed(r.Context(), tx, env)
		case "invoice_voided":
			return h.applyInvoiceVoided(r.Context(), tx, env)
		default:
			// Unknown topics are acknowledged so the processor stops
			// retrying them.
			return nil
		}
	})
	if err != nil {
		h.Log.WithFields(logrus.Fields{"topic": topic, "event_id": eventID}).WithError(err).Error("webhook processing failed")
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "webhook processing failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// recordDelivery claims the event id. Returns false when a previous delivery
// already claimed it.
func recordDelivery(ctx context.Context, tx pgx.Tx, eventID, topic string) (bool, error) {
	const q = `
INSERT INTO webhook_deliveries (event_id, topic)
VALUES ($1, $2)
ON CONFLICT (event_id) DO NOTHING
`
	ct, err := tx.Exec(ctx, q, eventID, topic)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// resolvePayment finds our payment for a processor payment event, by the
// processor's payment id first and the description reference second.
func resolvePayment(ctx context.Context, tx pgx.Tx, p *paymentPayload) (*payment.Payment, error) {
	if p == nil || p.ID == "" {
		return nil, errors.New("event carries no payment")
	}
	rec, err := payment.GetForUpdateByProcessorID(ctx, tx, p.ID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if id := ParseRef(p.Description, "payment_id"); id != "" {
		if rec, err := payment.GetForUpdate(ctx, tx, id); err == nil {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("no payment matches processor payment %s", p.ID)
}

func (h Handler) applyPaymentSucceeded(ctx context.Context, tx pgx.Tx, env envelope) error {
	rec, err := resolvePayment(ctx, tx, env.Payment)
	if err != nil {
		return err
	}
	if rec.Status == payment.StatusSucceeded {
		return nil
	}

	for _, line := range rec.Lines {
		if line.AppliedMinor <= 0 {
			continue
		}
		if line.TargetID == invoice.OutstandingTargetID {
			if err := customer.ReduceOutstanding(ctx, tx, rec.CustomerID, line.AppliedMinor); err != nil {
				return fmt.Errorf("reduce outstanding: %w", err)
			}
			continue
		}
		inv, err := invoice.GetForUpdate(ctx, tx, line.TargetID)
		if err != nil {
			return fmt.Errorf("load invoice %s: %w", line.TargetID, err)
		}
		if inv.Status == invoice.StatusPaid || inv.Status == invoice.StatusVoid {
			continue
		}
		if line.RemainingAfterMinor == 0 {
			if err := invoice.SetStatus(ctx, tx, inv.ID, invoice.StatusPaid); err != nil {
				return err
			}
			continue
		}
		if err := invoice.ReduceAmount(ctx, tx, inv.ID, line.AppliedMinor); err != nil {
			return fmt.Errorf("reduce invoice %s: %w", inv.ID, err)
		}
		// A partial payment against a failed invoice puts it back in good
		// standing for the remainder.
		if inv.Status == invoice.StatusFailed {
			if err := invoice.SetStatus(ctx, tx, inv.ID, invoice.StatusOpen); err != nil {
				return err
			}
		}
	}

	if rec.CreditMinor > 0 {
		if err := customer.AddCredit(ctx, tx, rec.CustomerID, rec.CreditMinor); err != nil {
			return err
		}
		summary := fmt.Sprintf("Credit of %d recorded from payment %s", rec.CreditMinor, rec.ID)
		if err := events.Insert(ctx, tx, rec.CustomerID, events.TypeCreditRecorded, summary, "processor", time.Now(), map[string]any{
			"paymentId":   rec.ID,
			"creditMinor": rec.CreditMinor,
		}); err != nil {
			return err
		}
	}

	if err := payment.SetStatus(ctx, tx, rec.ID, payment.StatusSucceeded); err != nil {
		return err
	}
	summary := fmt.Sprintf("Payment %s succeeded", rec.ID)
	return events.Insert(ctx, tx, rec.CustomerID, events.TypePaymentSucceeded, summary, "processor", time.Now(), map[string]any{
		"paymentId":   rec.ID,
		"processorId": rec.ProcessorID,
	})
}

func (h Handler) applyPaymentFailed(ctx context.Context, tx pgx.Tx, env envelope) error {
	rec, err := resolvePayment(ctx, tx, env.Payment)
	if err != nil {
		return err
	}
	if rec.Status == payment.StatusFailed {
		return nil
	}

	for _, line := range rec.Lines {
		if line.TargetID == invoice.OutstandingTargetID {
			continue
		}
		inv, err := invoice.GetForUpdate(ctx, tx, line.TargetID)
		if err != nil {
			return fmt.Errorf("load invoice %s: %w", line.TargetID, err)
		}
		if !invoice.CanTransition(inv.Status, invoice.StatusFailed) {
			continue
		}
		if err := invoice.SetStatus(ctx, tx, inv.ID, invoice.StatusFailed); err != nil {
			return err
		}
	}

	if err := payment.SetStatus(ctx, tx, rec.ID, payment.StatusFailed); err != nil {
		return err
	}
	data := map[string]any{"paymentId": rec.ID, "processorId": rec.ProcessorID}
	if env.Payment.FailureCode != "" {
		data["failureCode"] = env.Payment.FailureCode
	}
	summary := fmt.Sprintf("Payment %s failed", rec.ID)
	return events.Insert(ctx, tx, rec.CustomerID, events.TypePaymentFailed, summary, "processor", time.Now(), data)
}

func (h Handler) applyInvoiceVoided(ctx context.Context, tx pgx.Tx, env envelope) error {
	if env.Invoice == nil || env.Invoice.ID == "" {
		return errors.New("event carries no invoice")
	}
	inv, err := invoice.FindByProcessorIDForUpdate(ctx, tx, env.Invoice.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		if id := ParseRef(env.Invoice.Description, "invoice_id"); id != "" {
			inv, err = invoice.GetForUpdate(ctx, tx, id)
			if err == nil && inv.ProcessorID == "" {
				// Backfill the link so the next event resolves directly.
				if err := invoice.SetProcessorID(ctx, tx, inv.ID, env.Invoice.ID); err != nil {
					return err
				}
			}
		}
	}
	if err != nil {
		return fmt.Errorf("no invoice matches processor invoice %s", env.Invoice.ID)
	}
	if !invoice.CanTransition(inv.Status, invoice.StatusVoid) {
		return nil
	}
	if err := invoice.SetStatus(ctx, tx, inv.ID, invoice.StatusVoid); err != nil {
		return err
	}
	summary := fmt.Sprintf("Invoice %s voided by processor", inv.ID)
	return events.Insert(ctx, tx, inv.CustomerID, events.TypeInvoiceVoided, summary, "processor", time.Now(), map[string]any{
		"invoiceId":   inv.ID,
		"processorId": env.Invoice.ID,
	})
}
