package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-presale/internal/domain"
	"solana-presale/internal/storage"
)

// RaiseTimeseriesStore implements storage.RaiseTimeseriesStore using ClickHouse.
type RaiseTimeseriesStore struct {
	conn *Conn
}

// NewRaiseTimeseriesStore creates a new RaiseTimeseriesStore.
func NewRaiseTimeseriesStore(conn *Conn) *RaiseTimeseriesStore {
	return &RaiseTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RaiseTimeseriesStore = (*RaiseTimeseriesStore)(nil)

// UpsertBulk stores multiple points. The table is a ReplacingMergeTree
// keyed by (sale_id, interval_seconds, timestamp_sec); every row of a batch
// carries the same version, so a later batch supersedes earlier rows and
// reads use FINAL to collapse them.
func (s *RaiseTimeseriesStore) UpsertBulk(ctx context.Context, points []*domain.RaiseTimeseriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		saleID          string
		intervalSeconds int
		timestampSec    int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.SaleID == "" || p.IntervalSeconds <= 0 {
			return storage.ErrInvalidInput
		}
		k := key{p.SaleID, p.IntervalSeconds, p.TimestampSec}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO raise_timeseries (
			sale_id, timestamp_sec, interval_seconds, raised,
			contribution_count, unique_buyers, cumulative_raised, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(time.Now().UnixNano())
	for _, p := range points {
		err = batch.Append(
			p.SaleID, p.TimestampSec, uint32(p.IntervalSeconds), p.Raised,
			uint32(p.ContributionCount), uint32(p.UniqueBuyers), p.CumulativeRaised, version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySale retrieves all points for a sale and interval, ordered by timestamp ASC.
func (s *RaiseTimeseriesStore) GetBySale(ctx context.Context, saleID string, intervalSeconds int) ([]*domain.RaiseTimeseriesPoint, error) {
	query := `
		SELECT sale_id, timestamp_sec, interval_seconds, raised,
			contribution_count, unique_buyers, cumulative_raised
		FROM raise_timeseries FINAL
		WHERE sale_id = ? AND interval_seconds = ?
		ORDER BY timestamp_sec ASC
	`
	return s.query(ctx, query, saleID, uint32(intervalSeconds))
}

// GetByTimeRange retrieves points for a sale and interval within [start, end] (inclusive).
func (s *RaiseTimeseriesStore) GetByTimeRange(ctx context.Context, saleID string, intervalSeconds int, start, end int64) ([]*domain.RaiseTimeseriesPoint, error) {
	query := `
		SELECT sale_id, timestamp_sec, interval_seconds, raised,
			contribution_count, unique_buyers, cumulative_raised
		FROM raise_timeseries FINAL
		WHERE sale_id = ? AND interval_seconds = ? AND timestamp_sec >= ? AND timestamp_sec <= ?
		ORDER BY timestamp_sec ASC
	`
	return s.query(ctx, query, saleID, uint32(intervalSeconds), start, end)
}

func (s *RaiseTimeseriesStore) query(ctx context.Context, query string, args ...any) ([]*domain.RaiseTimeseriesPoint, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query raise timeseries: %w", err)
	}
	defer rows.Close()

	var result []*domain.RaiseTimeseriesPoint
	for rows.Next() {
		var (
			p                                      domain.RaiseTimeseriesPoint
			interval, contributions, uniqueBuyers uint32
		)
		if err := rows.Scan(
			&p.SaleID, &p.TimestampSec, &interval, &p.Raised,
			&contributions, &uniqueBuyers, &p.CumulativeRaised,
		); err != nil {
			return nil, fmt.Errorf("scan raise point: %w", err)
		}
		p.IntervalSeconds = int(interval)
		p.ContributionCount = int(contributions)
		p.UniqueBuyers = int(uniqueBuyers)
		result = append(result, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raise points: %w", err)
	}
	return result, nil
}
