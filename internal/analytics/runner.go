package analytics

import (
	"context"

	"solana-presale/internal/domain"
	"solana-presale/internal/replay"
	"solana-presale/internal/storage"
)

// Runner loads a sale's journal and stores its raise timeseries.
type Runner struct {
	replay          *replay.Runner
	timeseriesStore storage.RaiseTimeseriesStore
}

// NewRunner creates a new analytics runner.
func NewRunner(eventStore storage.EventStore, timeseriesStore storage.RaiseTimeseriesStore) *Runner {
	return &Runner{
		replay:          replay.NewRunner(eventStore),
		timeseriesStore: timeseriesStore,
	}
}

// AggregateSale processes a single sale.
// Steps:
//  1. Load the journal in seq order (gaps are an error)
//  2. Generate raise timeseries for all intervals
//  3. Store them, replacing the points of an earlier run
func (r *Runner) AggregateSale(ctx context.Context, saleID string) ([]*domain.RaiseTimeseriesPoint, error) {
	events, err := r.replay.Load(ctx, saleID)
	if err != nil {
		return nil, err
	}

	points := GenerateAllRaiseTimeseries(events)
	if len(points) == 0 {
		return nil, nil
	}
	if err := r.timeseriesStore.UpsertBulk(ctx, points); err != nil {
		return nil, err
	}
	return points, nil
}
