// Command analytics-api serves the retail analytics views over HTTP.
// The dataset is loaded and validated once at startup; all endpoints
// compute against that frozen set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"retailpulse/internal/config"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/ingest"
	"retailpulse/internal/services"
	transport "retailpulse/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "analytics-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = flag.String("config", "", "path to YAML config file")
		inputCSV   = flag.String("input", "", "transactions CSV file (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *inputCSV != "" {
		cfg.Paths.InputCSV = *inputCSV
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	loaded, err := ingest.LoadCSV(cfg.Paths.InputCSV)
	if err != nil {
		return err
	}

	svc, err := services.NewAnalyticsService(loaded.Transactions, cfg.Analytics, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      transport.NewRouter(svc, cfg, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.Int("port", cfg.Server.Port),
			slog.Int("records", svc.DatasetSize()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
