// Command omsorgspenger-mottak runs the benefit-application intake gateway.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/navikt/omsorgspenger-mottak/internal/broker"
	"github.com/navikt/omsorgspenger-mottak/internal/config"
	"github.com/navikt/omsorgspenger-mottak/internal/document"
	"github.com/navikt/omsorgspenger-mottak/internal/health"
	"github.com/navikt/omsorgspenger-mottak/internal/logging"
	"github.com/navikt/omsorgspenger-mottak/internal/metrics"
	"github.com/navikt/omsorgspenger-mottak/internal/server"
	"github.com/navikt/omsorgspenger-mottak/internal/service"
	"github.com/navikt/omsorgspenger-mottak/internal/submission"
)

func main() {
	logger := logging.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(logger); err != nil {
		logger.Error("Gateway terminated", err, nil)
		os.Exit(1)
	}
}

func run(logger logging.ServiceLogger) error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("Starting intake gateway", logging.LogFields{"config": cfg.String()})

	intakeMetrics := metrics.NewIntakeMetrics(nil)
	if err := intakeMetrics.Register(); err != nil {
		return err
	}

	documents := document.NewClient(cfg.DocumentStoreURL, logger)

	variants := []submission.Variant{submission.Primary, submission.DayTransfer, submission.Followup}
	producers := make(map[string]*broker.Producer, len(variants))
	checkers := make([]health.Checker, 0, len(variants))
	for _, variant := range variants {
		producer, err := broker.NewProducer(variant, cfg.KafkaBrokers, cfg.KafkaClientID, logger)
		if err != nil {
			stopProducers(producers, logger)
			return err
		}
		producers[variant.Name] = producer
		checkers = append(checkers, producer)
	}
	defer stopProducers(producers, logger)

	handler := server.New(server.Options{
		Primary:     service.New(submission.Primary, documents, producers[submission.Primary.Name], logger, intakeMetrics),
		DayTransfer: service.New(submission.DayTransfer, nil, producers[submission.DayTransfer.Name], logger, intakeMetrics),
		Followup:    service.New(submission.Followup, documents, producers[submission.Followup.Name], logger, intakeMetrics),
		Checkers:    checkers,
		Metrics:     cfg.MetricsEnabled,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	logger.Info("Listening", logging.LogFields{"address": cfg.ListenAddress})

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func stopProducers(producers map[string]*broker.Producer, logger logging.ServiceLogger) {
	for name, producer := range producers {
		if err := producer.Stop(); err != nil {
			logger.Error("Stopping producer failed", err, logging.LogFields{"producer": name})
		}
	}
}
