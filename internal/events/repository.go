package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded by the console.
const (
	TypePaymentSubmitted  = "PAYMENT_SUBMITTED"
	TypePaymentSucceeded  = "PAYMENT_SUCCEEDED"
	TypePaymentFailed     = "PAYMENT_FAILED"
	TypeCreditRecorded    = "CREDIT_RECORDED"
	TypeScheduleCreated   = "SCHEDULE_CREATED"
	TypeInvoiceVoided     = "INVOICE_VOIDED"
	TypeCollectionStarted = "COLLECTION_STARTED"
	TypeRefundRequested   = "REFUND_REQUESTED"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert appends one billing event inside the caller's transaction so the
// event and the mutation it records commit together.
func Insert(ctx context.Context, tx pgx.Tx, customerID, eventType, summary, actor string, occurredAt time.Time, data any) error {
	var s *string
	if data != nil {
		b, _ := json.Marshal(data)
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO billing_events (customer_id, event_type, summary, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, CAST($6 AS jsonb))
`
	_, err := tx.Exec(ctx, q, customerID, eventType, summary, actor, occurredAt, s)
	return err
}

type Event struct {
	ID         int64           `json:"id"`
	CustomerID string          `json:"customerId"`
	EventType  string          `json:"eventType"`
	Summary    string          `json:"summary"`
	Actor      string          `json:"actor"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT id, customer_id, event_type, summary, actor, occurred_at, COALESCE(data, 'null'::jsonb)
FROM billing_events
WHERE customer_id = $1
ORDER BY occurred_at DESC, id DESC
LIMIT $2
`
	rows, err := r.db.Query(ctx, q, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.EventType, &e.Summary, &e.Actor, &e.OccurredAt, &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
