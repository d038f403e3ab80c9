package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"billingconsole/internal/events"
	"billingconsole/internal/invoice"
	"billingconsole/internal/money"
	"billingconsole/internal/payment"
	"billingconsole/pkg/config"
	"billingconsole/pkg/db"
	"billingconsole/pkg/processor"
)

// Collector charges due auto-collect invoices on a cron cadence. Each due
// invoice becomes one processor payment; the outcome comes back through the
// webhook intake like any operator-submitted payment.
type Collector struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Invoices *invoice.Repository
	Log      *logrus.Logger

	cron *cron.Cron
}

func NewCollector(cfg config.Config, pool *pgxpool.Pool, invoices *invoice.Repository, log *logrus.Logger) *Collector {
	return &Collector{Cfg: cfg, DB: pool, Invoices: invoices, Log: log}
}

// Start schedules the collection run. The schedule comes from configuration;
// an empty schedule disables the worker.
func (c *Collector) Start() error {
	if c.Cfg.CollectSchedule == "" {
		c.Log.Info("auto-collection disabled: no schedule configured")
		return nil
	}
	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.Cfg.CollectSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := c.RunOnce(ctx, time.Now().UTC()); err != nil {
			c.Log.WithError(err).Error("collection run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule collection: %w", err)
	}
	c.cron.Start()
	c.Log.WithField("schedule", c.Cfg.CollectSchedule).Info("auto-collection scheduled")
	return nil
}

// Stop waits for a running collection to finish.
func (c *Collector) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// RunOnce collects every invoice due on or before the given day. Failures on
// one invoice do not stop the rest of the run.
func (c *Collector) RunOnce(ctx context.Context, today time.Time) error {
	due, err := c.Invoices.ListDueForCollection(ctx, today)
	if err != nil {
		return fmt.Errorf("list due invoices: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	c.Log.WithField("count", len(due)).Info("collection run started")

	client := processor.Client{
		BaseURL:    c.Cfg.Processor.BaseURL,
		APIKey:     c.Cfg.Processor.APIKey,
		APIVersion: c.Cfg.Processor.APIVersion,
	}

	var failed int
	for _, inv := range due {
		if err := c.collect(ctx, client, inv); err != nil {
			failed++
			c.Log.WithFields(logrus.Fields{"invoice_id": inv.ID, "customer_id": inv.CustomerID}).
				WithError(err).Error("collection failed for invoice")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d collections failed", failed, len(due))
	}
	return nil
}

func (c *Collector) collect(ctx context.Context, client processor.Client, inv invoice.Invoice) error {
	amount := money.New(inv.AmountMinor, inv.Currency)
	paymentID := uuid.NewString()

	proc, err := client.CreatePayment(ctx, processor.PaymentRequest{
		CustomerID: inv.CustomerID,
		Amount:     amount.String(),
		Currency:   inv.Currency,
		Lines: []processor.AppliedLine{
			{InvoiceID: inv.ProcessorID, Amount: amount.String()},
		},
		Description:    fmt.Sprintf("billingconsole: payment_id=%s customer_id=%s", paymentID, inv.CustomerID),
		IdempotencyKey: "collect-" + inv.ID,
	})
	if err != nil {
		return err
	}

	return db.WithTx(ctx, c.DB, func(tx pgx.Tx) error {
		if err := payment.Insert(ctx, tx, payment.Payment{
			ID:          paymentID,
			CustomerID:  inv.CustomerID,
			ProcessorID: proc.ID,
			Status:      payment.StatusPending,
			AmountMinor: amount.Minor,
			Currency:    inv.Currency,
			Lines: []payment.Line{
				{Position: 0, TargetID: inv.ID, AppliedMinor: amount.Minor, RemainingAfterMinor: 0},
			},
		}); err != nil {
			return err
		}
		summary := fmt.Sprintf("Auto-collection started for invoice %s", inv.ID)
		return events.Insert(ctx, tx, inv.CustomerID, events.TypeCollectionStarted, summary, "system", time.Now(), map[string]any{
			"invoiceId": inv.ID,
			"paymentId": paymentID,
		})
	})
}
