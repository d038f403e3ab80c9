package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"billingconsole/internal/httpapi"
	"billingconsole/internal/invoice"
	"billingconsole/internal/jobs"
	"billingconsole/pkg/config"
	"billingconsole/pkg/db"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.AppEnv == "dev" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("db open failed")
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			logger.WithError(err).Fatal("migrate failed")
		}
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg: cfg,
		DB:  conn,
		Log: logger,
	})

	collector := jobs.NewCollector(cfg, conn, invoice.NewRepository(conn), logger)
	if err := collector.Start(); err != nil {
		logger.WithError(err).Fatal("collector start failed")
	}
	defer collector.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http serve failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}
