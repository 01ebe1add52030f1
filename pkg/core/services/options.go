package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

type options struct {
	now    func() time.Time
	events ports.EventSink
	alloc  *shortcode.Allocator
	newID  func() string
}

// Option customizes a service at construction time
type Option func(*options)

// WithClock replaces time.Now. Tests use it to pin creation and resolution times.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithEvents(sink ports.EventSink) Option {
	return func(o *options) { o.events = sink }
}

func WithAllocator(a *shortcode.Allocator) Option {
	return func(o *options) { o.alloc = a }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		events: discard{},
		alloc:  shortcode.NewAllocator(shortcode.DefaultLength, shortcode.DefaultMaxAttempts),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.events == nil {
		o.events = discard{}
	}
	return o
}

type discard struct{}

func (discard) Emit(context.Context, domain.Event) {}
