package customer

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

const customerColumns = `
id, name, COALESCE(email, ''), currency, outstanding_minor, credit_minor, created_at
`

func scan(row pgx.Row) (*Customer, error) {
	c := &Customer{}
	if err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Currency,
		&c.OutstandingMinor, &c.CreditMinor, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return scan(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) Upsert(ctx context.Context, c Customer) (*Customer, error) {
	const q = `
INSERT INTO customers (id, name, email, currency)
VALUES ($1, $2, NULLIF($3, ''), $4)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  email = EXCLUDED.email
RETURNING ` + customerColumns
	return scan(r.db.QueryRow(ctx, q, c.ID, c.Name, c.Email, c.Currency))
}

// AddCredit records leftover payment credit inside the payment transaction.
func AddCredit(ctx context.Context, tx pgx.Tx, id string, minor int64) error {
	const q = `UPDATE customers SET credit_minor = credit_minor + $2 WHERE id = $1`
	_, err := tx.Exec(ctx, q, id, minor)
	return err
}

// ReduceOutstanding applies a payment against the unbilled balance. The guard
// keeps the balance non-negative; a stale candidate set surfaces as no rows.
func ReduceOutstanding(ctx context.Context, tx pgx.Tx, id string, minor int64) error {
	const q = `UPDATE customers SET outstanding_minor = outstanding_minor - $2 WHERE id = $1 AND outstanding_minor >= $2`
	ct, err := tx.Exec(ctx, q, id, minor)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`
	return scan(tx.QueryRow(ctx, q, id))
}
