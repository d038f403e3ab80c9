package invoice

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const invoiceColumns = `
id, customer_id, status, amount_minor, currency, due_date,
COALESCE(schedule_id::text, ''), sequence, auto_collect,
COALESCE(processor_id, ''), paid_at, created_at
`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	inv := &Invoice{}
	var status string
	if err := row.Scan(
		&inv.ID, &inv.CustomerID, &status, &inv.AmountMinor, &inv.Currency, &inv.DueDate,
		&inv.ScheduleID, &inv.Sequence, &inv.AutoCollect,
		&inv.ProcessorID, &inv.PaidAt, &inv.CreatedAt,
	); err != nil {
		return nil, err
	}
	inv.Status = Status(status)
	return inv, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return scanInvoice(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE customer_id = $1
ORDER BY due_date ASC, sequence ASC
`
	return r.list(ctx, q, customerID)
}

// ListPayable returns the invoices that can receive payment right now: failed
// attempts awaiting retry and drafts payable ahead of schedule.
func (r *Repository) ListPayable(ctx context.Context, customerID string) ([]Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE customer_id = $1 AND status IN ('failed', 'draft')
ORDER BY due_date ASC, sequence ASC
`
	return r.list(ctx, q, customerID)
}

// ListDueForCollection returns open auto-collect invoices due on or before the
// given date; the collection job drives these through the processor.
func (r *Repository) ListDueForCollection(ctx context.Context, due time.Time) ([]Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE status = 'open' AND auto_collect AND due_date <= $1
ORDER BY due_date ASC
`
	return r.list(ctx, q, due)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectInvoices(rows)
}

func collectInvoices(rows pgx.Rows) ([]Invoice, error) {
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// ListPayableTx is ListPayable inside the caller's transaction; the payment
// submission path uses it so candidates and mutations share one snapshot.
func ListPayableTx(ctx context.Context, tx pgx.Tx, customerID string) ([]Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE customer_id = $1 AND status IN ('failed', 'draft')
ORDER BY due_date ASC, sequence ASC
`
	rows, err := tx.Query(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	return collectInvoices(rows)
}

func Insert(ctx context.Context, tx pgx.Tx, inv Invoice) error {
	const q = `
INSERT INTO invoices (id, customer_id, status, amount_minor, currency, due_date, schedule_id, sequence, auto_collect, processor_id)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8, $9, NULLIF($10, ''))
`
	_, err := tx.Exec(ctx, q,
		inv.ID, inv.CustomerID, string(inv.Status), inv.AmountMinor, inv.Currency,
		inv.DueDate, inv.ScheduleID, inv.Sequence, inv.AutoCollect, inv.ProcessorID,
	)
	return err
}

// GetForUpdate locks one invoice row for the duration of the transaction.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`
	return scanInvoice(tx.QueryRow(ctx, q, id))
}

func SetStatus(ctx context.Context, tx pgx.Tx, id string, status Status) error {
	if status == StatusPaid {
		const q = `UPDATE invoices SET status = $2, paid_at = now() WHERE id = $1`
		_, err := tx.Exec(ctx, q, id, string(status))
		return err
	}
	const q = `UPDATE invoices SET status = $2 WHERE id = $1`
	_, err := tx.Exec(ctx, q, id, string(status))
	return err
}

// ReduceAmount records a partial payment by shrinking the remaining amount.
func ReduceAmount(ctx context.Context, tx pgx.Tx, id string, appliedMinor int64) error {
	const q = `UPDATE invoices SET amount_minor = amount_minor - $2 WHERE id = $1 AND amount_minor >= $2`
	ct, err := tx.Exec(ctx, q, id, appliedMinor)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func SetProcessorID(ctx context.Context, tx pgx.Tx, id, processorID string) error {
	const q = `UPDATE invoices SET processor_id = $2 WHERE id = $1`
	_, err := tx.Exec(ctx, q, id, processorID)
	return err
}

// FindByProcessorID resolves a processor-side invoice reference back to ours;
// used by the webhook intake.
func (r *Repository) FindByProcessorID(ctx context.Context, processorID string) (*Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE processor_id = $1`
	return scanInvoice(r.db.QueryRow(ctx, q, processorID))
}

// FindByProcessorIDForUpdate is FindByProcessorID with a row lock, for
// webhook handling inside a transaction.
func FindByProcessorIDForUpdate(ctx context.Context, tx pgx.Tx, processorID string) (*Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE processor_id = $1 FOR UPDATE`
	return scanInvoice(tx.QueryRow(ctx, q, processorID))
}
