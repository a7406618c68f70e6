// Package events delivers committed ledger events to external sinks:
// Kafka for downstream consumers and a websocket hub for live clients.
package events

import (
	"context"
	"errors"
	"fmt"

	"solana-presale/internal/domain"
	"solana-presale/internal/observability"
	"solana-presale/internal/presale"
)

// Sink is one delivery target.
type Sink interface {
	Name() string
	Publish(ctx context.Context, e *domain.LedgerEvent) error
}

var _ presale.Publisher = (*Fanout)(nil)

// Fanout publishes every event to all sinks. A failing sink does not stop
// delivery to the others.
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a fanout over sinks. Nil sinks are skipped.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Publish implements presale.Publisher.
func (f *Fanout) Publish(ctx context.Context, e *domain.LedgerEvent) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.Publish(ctx, e)
		observability.RecordPublish(s.Name(), e.Kind.String(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Sinks returns the configured sink names.
func (f *Fanout) Sinks() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return names
}
