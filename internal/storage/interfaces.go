package storage

import (
	"context"

	"solana-presale/internal/domain"
)

// EventStore provides access to the append-only ledger_events journal.
type EventStore interface {
	// Append adds a new event. Returns ErrDuplicateKey if event_id or (sale_id, seq) exists.
	Append(ctx context.Context, e *domain.LedgerEvent) error

	// GetBySale retrieves all events of a sale, ordered by seq ASC.
	GetBySale(ctx context.Context, saleID string) ([]*domain.LedgerEvent, error)

	// GetByAccount retrieves all events of a sale touching an account, ordered by seq ASC.
	GetByAccount(ctx context.Context, saleID, account string) ([]*domain.LedgerEvent, error)

	// GetByKind retrieves all events of a sale with the given kind, ordered by seq ASC.
	GetByKind(ctx context.Context, saleID string, kind domain.EventKind) ([]*domain.LedgerEvent, error)
}

// RaiseTimeseriesStore provides access to raise_timeseries storage.
type RaiseTimeseriesStore interface {
	// UpsertBulk stores multiple points, replacing any stored point with the
	// same (sale_id, interval_seconds, timestamp_sec). A key repeated within
	// the batch fails the entire batch with ErrDuplicateKey.
	UpsertBulk(ctx context.Context, points []*domain.RaiseTimeseriesPoint) error

	// GetBySale retrieves all points for a sale and interval, ordered by timestamp ASC.
	GetBySale(ctx context.Context, saleID string, intervalSeconds int) ([]*domain.RaiseTimeseriesPoint, error)

	// GetByTimeRange retrieves points for a sale and interval within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, saleID string, intervalSeconds int, start, end int64) ([]*domain.RaiseTimeseriesPoint, error)
}
