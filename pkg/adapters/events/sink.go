// Package events delivers diagnostic events from the core to slog and to a
// remote log collector.
package events

import (
	"context"
	"log/slog"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/config"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

// LevelFatal sits above slog.LevelError.
const LevelFatal = slog.LevelError + 4

func slogLevel(sev domain.Severity) slog.Level {
	switch sev {
	case domain.SeverityDebug:
		return slog.LevelDebug
	case domain.SeverityWarn:
		return slog.LevelWarn
	case domain.SeverityError:
		return slog.LevelError
	case domain.SeverityFatal:
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

// SlogSink writes each event as a structured log record.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, e domain.Event) {
	s.logger.Log(ctx, slogLevel(e.Severity), e.Message, "component", e.Component)
}

// Multi fans an event out to every sink in order.
type Multi []ports.EventSink

func (m Multi) Emit(ctx context.Context, e domain.Event) {
	for _, sink := range m {
		sink.Emit(ctx, e)
	}
}

type Nop struct{}

func (Nop) Emit(context.Context, domain.Event) {}

// FromConfig builds the sink used by the binaries: slog always, plus the
// remote collector when LOG_SINK_URL is set. The returned func drains and
// stops the remote sink.
func FromConfig(cfg *config.Config, logger *slog.Logger) (ports.EventSink, func(context.Context) error) {
	local := NewSlogSink(logger)
	if cfg.LogSinkURL == "" {
		return local, func(context.Context) error { return nil }
	}

	remote := NewHTTPSink(cfg.LogSinkURL, cfg.LogSinkStack, logger)
	return Multi{local, remote}, remote.Close
}
