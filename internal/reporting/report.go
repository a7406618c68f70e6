package reporting

import (
	"time"

	"solana-presale/internal/domain"
)

// Report is the settlement report of one sale.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	Sale SaleSummary

	// Participants sorted by address
	Participants []ParticipantRow

	// Hourly raise series (may be empty)
	RaiseSeries []*domain.RaiseTimeseriesPoint

	// Invariant violations found on the replayed ledger
	IntegrityErrors []string
}

// SaleSummary contains sale-level totals.
type SaleSummary struct {
	SaleID        string
	Owner         string
	Phase         domain.Phase
	StartTime     int64 // unix seconds
	EndTime       int64 // unix seconds
	Pool          domain.PoolState
	TotalRaised   uint64
	LPTotalAmount uint64
	Distributed   uint64
	ClaimedTotal  uint64
	SweptTotal    uint64
	Dust          uint64 // unclaimable remainder not yet swept
	Participants  int
	Claimed       int // participants that have claimed
	LastSeq       uint64
}

// ParticipantRow represents one row in the participants table.
type ParticipantRow struct {
	Address     string
	Allocation  uint64
	SharePct    float64 // allocation / total raised * 100
	Entitlement uint64  // floor pro-rata claim, 0 before build
	HasClaimed  bool
	Referrer    string
}
