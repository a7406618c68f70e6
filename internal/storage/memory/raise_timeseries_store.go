package memory

import (
	"context"
	"sort"
	"sync"

	"solana-presale/internal/domain"
	"solana-presale/internal/storage"
)

type raiseKey struct {
	saleID          string
	intervalSeconds int
	timestampSec    int64
}

// RaiseTimeseriesStore is an in-memory implementation of storage.RaiseTimeseriesStore.
type RaiseTimeseriesStore struct {
	mu   sync.RWMutex
	data map[raiseKey]*domain.RaiseTimeseriesPoint
}

// NewRaiseTimeseriesStore creates a new in-memory raise timeseries store.
func NewRaiseTimeseriesStore() *RaiseTimeseriesStore {
	return &RaiseTimeseriesStore{
		data: make(map[raiseKey]*domain.RaiseTimeseriesPoint),
	}
}

// UpsertBulk stores multiple points atomically, replacing existing keys.
func (s *RaiseTimeseriesStore) UpsertBulk(_ context.Context, points []*domain.RaiseTimeseriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate and reject intra-batch duplicates
	batchKeys := make(map[raiseKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.SaleID == "" || p.IntervalSeconds <= 0 {
			return storage.ErrInvalidInput
		}
		k := raiseKey{p.SaleID, p.IntervalSeconds, p.TimestampSec}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: write all
	for _, p := range points {
		pointCopy := *p
		s.data[raiseKey{p.SaleID, p.IntervalSeconds, p.TimestampSec}] = &pointCopy
	}

	return nil
}

// GetBySale retrieves all points for a sale and interval, ordered by timestamp ASC.
func (s *RaiseTimeseriesStore) GetBySale(_ context.Context, saleID string, intervalSeconds int) ([]*domain.RaiseTimeseriesPoint, error) {
	return s.filter(saleID, intervalSeconds, func(*domain.RaiseTimeseriesPoint) bool { return true }), nil
}

// GetByTimeRange retrieves points for a sale and interval within [start, end] (inclusive).
func (s *RaiseTimeseriesStore) GetByTimeRange(_ context.Context, saleID string, intervalSeconds int, start, end int64) ([]*domain.RaiseTimeseriesPoint, error) {
	return s.filter(saleID, intervalSeconds, func(p *domain.RaiseTimeseriesPoint) bool {
		return p.TimestampSec >= start && p.TimestampSec <= end
	}), nil
}

func (s *RaiseTimeseriesStore) filter(saleID string, intervalSeconds int, match func(*domain.RaiseTimeseriesPoint) bool) []*domain.RaiseTimeseriesPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RaiseTimeseriesPoint
	for k, p := range s.data {
		if k.saleID == saleID && k.intervalSeconds == intervalSeconds && match(p) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampSec < result[j].TimestampSec
	})

	return result
}

var _ storage.RaiseTimeseriesStore = (*RaiseTimeseriesStore)(nil)
