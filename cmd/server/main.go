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

	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/events"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/config"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting shortlinks",
		slog.String("port", cfg.Port),
		slog.String("storage", cfg.StorageType),
		slog.String("base_url", cfg.BaseURL),
	)

	repo, err := repository.Open(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	sink, closeSink := events.FromConfig(cfg, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeSink(ctx); err != nil {
			logger.Warn("event sink not drained", slog.Any("error", err))
		}
	}()

	alloc := shortcode.NewAllocator(cfg.ShortcodeLength, cfg.AllocationMaxAttempts)
	links := services.NewLinkService(repo, services.WithEvents(sink), services.WithAllocator(alloc))
	stats := services.NewStatsService(repo, services.WithEvents(sink))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(cfg, links, stats, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return runServer(server, logger)
}

func runServer(server *http.Server, logger *slog.Logger) error {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("address", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return err
		}
	}
	logger.Info("server stopped")
	return nil
}
