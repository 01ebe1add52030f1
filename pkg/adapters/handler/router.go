package handler

import (
	"log/slog"
	"net/http"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/config"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, links ports.LinkService, stats ports.StatsService, logger *slog.Logger) http.Handler {
	h := NewHTTPHandler(cfg, links, stats, logger)
	mw := NewMiddleware(logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /{$}", h.Redirect)
	mux.HandleFunc("GET /{short_code}", h.Redirect)

	mux.HandleFunc("POST /api/v1/links", h.Create)
	mux.HandleFunc("DELETE /api/v1/links", h.ClearAll)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/links/{short_code}/stats", h.LinkStats)
	mux.HandleFunc("POST /api/v1/links/{short_code}/deactivate", h.Deactivate)

	return mw.Recovery(mw.Logging(mux))
}
