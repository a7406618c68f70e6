// Package analytics aggregates a sale's contribution journal into raise
// timeseries for dashboards and reports.
package analytics

import (
	"sort"

	"solana-presale/internal/domain"
)

// GenerateRaiseTimeseries aggregates contribution events into buckets by interval.
// Non-contribution events are ignored. Events must be pre-sorted by seq.
//
// Interval alignment: floor(timestamp / interval) * interval
// Aggregation per (sale_id, interval_start):
//   - raised = SUM(amount)
//   - contribution_count = COUNT(*)
//   - unique_buyers = COUNT(DISTINCT account)
//   - cumulative_raised = running SUM(raised) over buckets in time order
func GenerateRaiseTimeseries(events []*domain.LedgerEvent, intervalSeconds int) []*domain.RaiseTimeseriesPoint {
	if len(events) == 0 || intervalSeconds <= 0 {
		return nil
	}

	interval := int64(intervalSeconds)

	type bucketKey struct {
		saleID string
		start  int64
	}
	buckets := make(map[bucketKey]*domain.RaiseTimeseriesPoint)
	buyers := make(map[bucketKey]map[string]struct{})

	for _, e := range events {
		if e.Kind != domain.EventContribution {
			continue
		}
		start := floorDiv(e.Timestamp, interval) * interval
		key := bucketKey{e.SaleID, start}

		point, ok := buckets[key]
		if !ok {
			point = &domain.RaiseTimeseriesPoint{
				SaleID:          e.SaleID,
				TimestampSec:    start,
				IntervalSeconds: intervalSeconds,
			}
			buckets[key] = point
			buyers[key] = make(map[string]struct{})
		}

		point.Raised += e.Amount
		point.ContributionCount++
		buyers[key][e.Account] = struct{}{}
	}

	result := make([]*domain.RaiseTimeseriesPoint, 0, len(buckets))
	for key, point := range buckets {
		point.UniqueBuyers = len(buyers[key])
		result = append(result, point)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SaleID != result[j].SaleID {
			return result[i].SaleID < result[j].SaleID
		}
		return result[i].TimestampSec < result[j].TimestampSec
	})

	var running uint64
	for i, point := range result {
		if i > 0 && result[i-1].SaleID != point.SaleID {
			running = 0
		}
		running += point.Raised
		point.CumulativeRaised = running
	}

	return result
}

// GenerateAllRaiseTimeseries generates raise timeseries for all supported intervals.
func GenerateAllRaiseTimeseries(events []*domain.LedgerEvent) []*domain.RaiseTimeseriesPoint {
	var result []*domain.RaiseTimeseriesPoint

	intervals := []int{
		domain.RaiseInterval1Min,
		domain.RaiseInterval5Min,
		domain.RaiseInterval1Hour,
	}

	for _, interval := range intervals {
		points := GenerateRaiseTimeseries(events, interval)
		result = append(result, points...)
	}

	return result
}

// floorDiv rounds towards negative infinity so pre-epoch timestamps bucket correctly.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
