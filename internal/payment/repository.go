package payment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func Insert(ctx context.Context, tx pgx.Tx, p Payment) error {
	const q = `
INSERT INTO payments (id, customer_id, processor_id, status, amount_minor, currency, credit_minor)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
`
	if _, err := tx.Exec(ctx, q,
		p.ID, p.CustomerID, p.ProcessorID, string(p.Status), p.AmountMinor, p.Currency, p.CreditMinor,
	); err != nil {
		return err
	}

	const ql = `
INSERT INTO payment_lines (payment_id, position, target_id, applied_minor, remaining_after_minor)
VALUES ($1, $2, $3, $4, $5)
`
	for _, l := range p.Lines {
		if _, err := tx.Exec(ctx, ql, p.ID, l.Position, l.TargetID, l.AppliedMinor, l.RemainingAfterMinor); err != nil {
			return err
		}
	}
	return nil
}

const paymentColumns = `
id, customer_id, COALESCE(processor_id, ''), status, amount_minor, currency, credit_minor, created_at
`

func scanPayment(row pgx.Row) (*Payment, error) {
	p := &Payment{}
	var status string
	if err := row.Scan(
		&p.ID, &p.CustomerID, &p.ProcessorID, &status,
		&p.AmountMinor, &p.Currency, &p.CreditMinor, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	lines, err := r.lines(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Lines = lines
	return p, nil
}

// GetForUpdate locks one payment row, lines included.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	p, err := scanPayment(tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	lines, err := linesTx(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Lines = lines
	return p, nil
}

// GetForUpdateByProcessorID locks the payment a processor event refers to.
func GetForUpdateByProcessorID(ctx context.Context, tx pgx.Tx, processorID string) (*Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE processor_id = $1 FOR UPDATE`
	p, err := scanPayment(tx.QueryRow(ctx, q, processorID))
	if err != nil {
		return nil, err
	}
	lines, err := linesTx(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Lines = lines
	return p, nil
}

func SetStatus(ctx context.Context, tx pgx.Tx, id string, status Status) error {
	const q = `UPDATE payments SET status = $2 WHERE id = $1`
	_, err := tx.Exec(ctx, q, id, string(status))
	return err
}

const lineQuery = `
SELECT position, target_id, applied_minor, remaining_after_minor
FROM payment_lines
WHERE payment_id = $1
ORDER BY position ASC
`

func (r *Repository) lines(ctx context.Context, paymentID string) ([]Line, error) {
	rows, err := r.db.Query(ctx, lineQuery, paymentID)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func linesTx(ctx context.Context, tx pgx.Tx, paymentID string) ([]Line, error) {
	rows, err := tx.Query(ctx, lineQuery, paymentID)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func collectLines(rows pgx.Rows) ([]Line, error) {
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.Position, &l.TargetID, &l.AppliedMinor, &l.RemainingAfterMinor); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
