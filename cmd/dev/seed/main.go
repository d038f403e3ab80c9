package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"billingconsole/internal/customer"
	"billingconsole/internal/invoice"
	"billingconsole/pkg/config"
	"billingconsole/pkg/db"
)

// Seeds one customer with a mix of payable targets so the payment composer
// has something realistic to work against.
func main() {
	var (
		customerID  = flag.String("customer", "cust-dev", "customer id to seed")
		name        = flag.String("name", "Dev Customer", "customer name")
		currency    = flag.String("currency", "USD", "customer currency")
		outstanding = flag.Int64("outstanding", 2000, "outstanding balance in minor units")
	)
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	customers := customer.NewRepository(pool)
	if _, err := customers.Upsert(ctx, customer.Customer{
		ID:       *customerID,
		Name:     *name,
		Email:    *customerID + "@example.test",
		Currency: *currency,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "upsert customer: %v\n", err)
		os.Exit(1)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	seedInvoices := []invoice.Invoice{
		{Status: invoice.StatusFailed, AmountMinor: 3000, DueDate: today.AddDate(0, 0, -14)},
		{Status: invoice.StatusFailed, AmountMinor: 4000, DueDate: today.AddDate(0, 0, -7)},
		{Status: invoice.StatusDraft, AmountMinor: 1000, DueDate: today.AddDate(0, 0, 7)},
		{Status: invoice.StatusOpen, AmountMinor: 2500, DueDate: today.AddDate(0, 0, 14)},
	}

	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, inv := range seedInvoices {
			inv.ID = uuid.NewString()
			inv.CustomerID = *customerID
			inv.Currency = *currency
			if err := invoice.Insert(ctx, tx, inv); err != nil {
				return err
			}
		}
		const q = `UPDATE customers SET outstanding_minor = $2 WHERE id = $1`
		_, err := tx.Exec(ctx, q, *customerID, *outstanding)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeded customer %s with %d invoices\n", *customerID, len(seedInvoices))
}
