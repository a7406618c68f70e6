package replay

import (
	"context"

	"solana-presale/internal/domain"
	"solana-presale/internal/storage"
)

// Runner loads a sale's journal and replays it in sequence order.
type Runner struct {
	eventStore storage.EventStore
}

// NewRunner creates a new replay runner.
func NewRunner(eventStore storage.EventStore) *Runner {
	return &Runner{eventStore: eventStore}
}

// Load returns the sale's events sorted by seq, failing on gaps.
func (r *Runner) Load(ctx context.Context, saleID string) ([]*domain.LedgerEvent, error) {
	events, err := r.eventStore.GetBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	SortEvents(events)
	if err := CheckSequence(events); err != nil {
		return nil, err
	}
	return events, nil
}

// Run replays every event of the sale through the engine.
func (r *Runner) Run(ctx context.Context, saleID string, engine ReplayEngine) error {
	events, err := r.Load(ctx, saleID)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := engine.OnEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild folds the sale's journal into a ledger snapshot.
// initialOwner is the owner at construction; later transfers come from the journal.
func (r *Runner) Rebuild(ctx context.Context, saleID, initialOwner string) (*domain.LedgerSnapshot, error) {
	return r.RebuildUpTo(ctx, saleID, initialOwner, ^uint64(0))
}

// RebuildUpTo folds the journal prefix ending at maxSeq.
func (r *Runner) RebuildUpTo(ctx context.Context, saleID, initialOwner string, maxSeq uint64) (*domain.LedgerSnapshot, error) {
	events, err := r.Load(ctx, saleID)
	if err != nil {
		return nil, err
	}

	builder := NewLedgerBuilder(saleID, initialOwner)
	for _, event := range events {
		if event.Seq > maxSeq {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := builder.OnEvent(ctx, event); err != nil {
			return nil, err
		}
	}
	return builder.Snapshot(), nil
}
