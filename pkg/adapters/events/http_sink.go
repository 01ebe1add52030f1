package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 5 * time.Second
)

// payload is the collector's wire format.
type payload struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

// HTTPSink POSTs events to a remote collector from a single background
// worker. Emit never blocks: when the queue is full the event is dropped.
// Delivery failures go to the fallback logger only.
type HTTPSink struct {
	url      string
	stack    string
	client   *http.Client
	fallback *slog.Logger

	queue chan payload
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

type HTTPSinkOption func(*HTTPSink)

func WithHTTPClient(c *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) { s.client = c }
}

func WithQueueSize(n int) HTTPSinkOption {
	return func(s *HTTPSink) {
		if n > 0 {
			s.queue = make(chan payload, n)
		}
	}
}

func NewHTTPSink(url, stack string, fallback *slog.Logger, opts ...HTTPSinkOption) *HTTPSink {
	if fallback == nil {
		fallback = slog.Default()
	}
	s := &HTTPSink{
		url:      url,
		stack:    stack,
		client:   &http.Client{Timeout: DefaultSendTimeout},
		fallback: fallback,
		queue:    make(chan payload, DefaultQueueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

func (s *HTTPSink) Emit(_ context.Context, e domain.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	p := payload{Stack: s.stack, Level: string(e.Severity), Package: e.Component, Message: e.Message}
	select {
	case s.queue <- p:
	default:
		s.fallback.Warn("log sink queue full, dropping event", "component", e.Component, "message", e.Message)
	}
}

func (s *HTTPSink) run() {
	defer close(s.done)
	for p := range s.queue {
		s.send(p)
	}
}

func (s *HTTPSink) send(p payload) {
	body, err := json.Marshal(p)
	if err != nil {
		s.fallback.Error("encoding log event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.fallback.Error("building log request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.fallback.Warn("sending log event", "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.fallback.Warn("log collector rejected event", "status", resp.StatusCode)
	}
}

// Close stops accepting events and waits for the queue to drain, or for ctx.
func (s *HTTPSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
