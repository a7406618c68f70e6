package domain

// RaiseTimeseriesPoint is contribution volume aggregated by time interval.
// Corresponds to raise_timeseries table in ClickHouse.
type RaiseTimeseriesPoint struct {
	SaleID            string // vault address
	TimestampSec      int64  // interval start (unix seconds)
	IntervalSeconds   int    // aggregation interval: 60, 300, 3600
	Raised            uint64 // total contributed in interval
	ContributionCount int    // number of contributions in interval
	UniqueBuyers      int    // distinct contributors in interval
	CumulativeRaised  uint64 // total raised up to the end of interval
}

// Supported raise aggregation intervals (in seconds)
const (
	RaiseInterval1Min  = 60
	RaiseInterval5Min  = 300
	RaiseInterval1Hour = 3600
)
