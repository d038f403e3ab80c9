package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"billingconsole/internal/api"
	"billingconsole/internal/auth"
	"billingconsole/internal/customer"
	"billingconsole/internal/events"
	"billingconsole/internal/invoice"
	"billingconsole/internal/payment"
	"billingconsole/internal/schedule"
	"billingconsole/internal/webhook"
	"billingconsole/pkg/config"
)

type Dependencies struct {
	Cfg config.Config
	DB  *pgxpool.Pool
	Log *logrus.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	customerRepo := customer.NewRepository(deps.DB)
	invoiceRepo := invoice.NewRepository(deps.DB)
	paymentRepo := payment.NewRepository(deps.DB)
	eventRepo := events.NewRepository(deps.DB)

	authHandlers := auth.Handlers{Cfg: deps.Cfg}
	customerHandlers := customer.Handlers{Customers: customerRepo}
	invoiceHandlers := invoice.Handlers{
		Cfg:       deps.Cfg,
		DB:        deps.DB,
		Invoices:  invoiceRepo,
		Customers: customerRepo,
		Generator: schedule.NewGenerator(),
	}
	paymentHandlers := payment.Handlers{
		Cfg:       deps.Cfg,
		DB:        deps.DB,
		Invoices:  invoiceRepo,
		Customers: customerRepo,
		Payments:  paymentRepo,
	}
	eventHandlers := events.Handlers{Events: eventRepo}
	webhookHandler := webhook.Handler{Cfg: deps.Cfg, DB: deps.DB, Log: deps.Log}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandlers.Login)

		// Operator console APIs. The console frontend runs on its own
		// domain, so CORS is limited to configured origins.
		r.Group(func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.AllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization", "X-Operator"},
				MaxAgeSeconds:  600,
			}))
			r.Use(api.OperatorAuth(deps.Cfg))

			r.Get("/customers/{id}", customerHandlers.Get)
			r.Put("/customers/{id}", customerHandlers.Upsert)
			r.Get("/customers/{id}/invoices", invoiceHandlers.List)
			r.Get("/customers/{id}/payables", invoiceHandlers.Payables)
			r.Post("/customers/{id}/schedules", invoiceHandlers.CreateSchedule)
			r.Get("/customers/{id}/events", eventHandlers.List)

			r.Get("/invoices/{id}", invoiceHandlers.Get)

			r.Post("/customers/{id}/payments/preview", paymentHandlers.Preview)
			r.Post("/customers/{id}/payments", paymentHandlers.Submit)
			r.Get("/payments/{id}", paymentHandlers.Get)
			r.Post("/payments/{id}/refunds", paymentHandlers.Refund)
		})

		// Processor webhooks authenticate by signature, not session.
		r.Post("/webhooks/processor/{topic}", webhookHandler.ServeHTTP)
	})

	return r
}
