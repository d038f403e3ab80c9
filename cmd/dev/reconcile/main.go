package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"billingconsole/internal/invoice"
	"billingconsole/pkg/config"
	"billingconsole/pkg/db"
	"billingconsole/pkg/processor"
)

// Compares local records against the processor: pending payments whose
// processor-side status has moved (a missed webhook), and processor invoices
// with no local counterpart. Read-only; prints drift for an operator to act on.
func main() {
	customerID := flag.String("customer", "", "customer id to reconcile")
	flag.Parse()

	if *customerID == "" {
		fmt.Fprintln(os.Stderr, "missing -customer")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	client := processor.Client{
		BaseURL:    cfg.Processor.BaseURL,
		APIKey:     cfg.Processor.APIKey,
		APIVersion: cfg.Processor.APIVersion,
	}

	drift := 0

	rows, err := pool.Query(ctx, `SELECT id, processor_id FROM payments WHERE customer_id = $1 AND status = 'pending' AND processor_id IS NOT NULL`, *customerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list pending payments: %v\n", err)
		os.Exit(1)
	}
	type pending struct{ id, processorID string }
	var pendings []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.processorID); err != nil {
			rows.Close()
			fmt.Fprintf(os.Stderr, "scan: %v\n", err)
			os.Exit(1)
		}
		pendings = append(pendings, p)
	}
	rows.Close()

	for _, p := range pendings {
		remote, err := client.GetPayment(ctx, p.processorID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get payment %s: %v\n", p.processorID, err)
			continue
		}
		if remote.Status != "pending" {
			drift++
			fmt.Printf("payment %s is pending locally but %q on the processor (missed webhook?)\n", p.id, remote.Status)
		}
	}

	invoices := invoice.NewRepository(pool)
	remoteInvoices, err := client.ListAllInvoices(ctx, *customerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list processor invoices: %v\n", err)
		os.Exit(1)
	}
	for _, ri := range remoteInvoices {
		local, err := invoices.FindByProcessorID(ctx, ri.ID)
		if err != nil {
			drift++
			fmt.Printf("processor invoice %s (%s %s, %s) has no local record\n", ri.ID, ri.Amount, ri.Currency, ri.Status)
			continue
		}
		remote, err := client.GetInvoice(ctx, ri.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get invoice %s: %v\n", ri.ID, err)
			continue
		}
		if remote.Status == "void" && local.Status != invoice.StatusVoid {
			drift++
			fmt.Printf("invoice %s is %q locally but voided on the processor\n", local.ID, local.Status)
		}
	}

	if drift == 0 {
		fmt.Println("no drift")
	}
}
