package handler

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/events"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/config"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/services"
)

var mux http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	// On Vercel the local filesystem is ephemeral; use a remote libsql/Turso
	// URL or postgres in DATABASE_URL.
	repo, err := repository.Open(cfg)
	if err != nil {
		panic(err)
	}

	sink, _ := events.FromConfig(cfg, logger)
	alloc := shortcode.NewAllocator(cfg.ShortcodeLength, cfg.AllocationMaxAttempts)
	links := services.NewLinkService(repo, services.WithEvents(sink), services.WithAllocator(alloc))
	stats := services.NewStatsService(repo, services.WithEvents(sink))
	mux = handler.NewRouter(cfg, links, stats, logger)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
