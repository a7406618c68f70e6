package reporting

import (
	"context"
	"fmt"
	"time"

	"solana-presale/internal/analytics"
	"solana-presale/internal/clock"
	"solana-presale/internal/domain"
	"solana-presale/internal/presale"
	"solana-presale/internal/replay"
	"solana-presale/internal/storage"
	"solana-presale/internal/verification"
)

// Generator produces settlement reports from the journal.
type Generator struct {
	runner          *replay.Runner
	timeseriesStore storage.RaiseTimeseriesStore // optional
	saleClock       clock.Clock
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. timeseriesStore may be nil,
// in which case the raise series is computed from the journal.
func NewGenerator(eventStore storage.EventStore, timeseriesStore storage.RaiseTimeseriesStore, saleClock clock.Clock) *Generator {
	if saleClock == nil {
		saleClock = clock.System{}
	}
	return &Generator{
		runner:          replay.NewRunner(eventStore),
		timeseriesStore: timeseriesStore,
		saleClock:       saleClock,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the report of the sale identified by saleID.
func (g *Generator) Generate(ctx context.Context, cfg domain.SaleConfig, saleID, initialOwner string) (*Report, error) {
	events, err := g.runner.Load(ctx, saleID)
	if err != nil {
		return nil, err
	}

	builder := replay.NewLedgerBuilder(saleID, initialOwner)
	for _, e := range events {
		if err := builder.OnEvent(ctx, e); err != nil {
			return nil, err
		}
	}
	snap := builder.Snapshot()

	rows, err := participantRows(snap)
	if err != nil {
		return nil, err
	}

	summary := SaleSummary{
		SaleID:        saleID,
		Owner:         snap.Owner,
		Phase:         cfg.PhaseAt(g.saleClock.Now()),
		StartTime:     cfg.StartTime,
		EndTime:       cfg.EndTime,
		Pool:          snap.Pool,
		TotalRaised:   snap.TotalRaised,
		LPTotalAmount: snap.LPTotalAmount,
		Distributed:   snap.Distributed,
		ClaimedTotal:  snap.ClaimedTotal,
		SweptTotal:    snap.SweptTotal,
		Participants:  len(rows),
		LastSeq:       snap.LastSeq,
	}
	for _, r := range rows {
		if r.HasClaimed {
			summary.Claimed++
		}
	}
	if snap.LPBuilt() {
		allocations := make([]uint64, 0, len(rows))
		for _, r := range rows {
			allocations = append(allocations, r.Allocation)
		}
		if summary.Dust, err = presale.Dust(allocations, snap.LPTotalAmount, snap.TotalRaised, snap.SweptTotal); err != nil {
			return nil, err
		}
	}

	series, err := g.raiseSeries(ctx, saleID, events)
	if err != nil {
		return nil, err
	}

	var integrity []string
	for _, v := range verification.CheckInvariants(snap) {
		integrity = append(integrity, fmt.Sprintf("%s: %s", v.Invariant, v.Detail))
	}

	return &Report{
		GeneratedAt:     g.now(),
		Sale:            summary,
		Participants:    rows,
		RaiseSeries:     series,
		IntegrityErrors: integrity,
	}, nil
}

// participantRows builds the table rows.
func participantRows(snap *domain.LedgerSnapshot) ([]ParticipantRow, error) {
	rows := make([]ParticipantRow, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		row := ParticipantRow{
			Address:    p.Address,
			Allocation: p.Allocation,
			HasClaimed: p.HasClaimed,
			Referrer:   p.Referrer,
		}
		share := domain.Share{Numerator: p.Allocation, Denominator: snap.TotalRaised}
		row.SharePct = share.Float64() * 100
		if snap.LPBuilt() {
			amount, err := presale.ProRata(p.Allocation, snap.LPTotalAmount, snap.TotalRaised)
			if err != nil {
				return nil, err
			}
			row.Entitlement = amount
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// raiseSeries returns the hourly raise series, preferring stored points.
func (g *Generator) raiseSeries(ctx context.Context, saleID string, events []*domain.LedgerEvent) ([]*domain.RaiseTimeseriesPoint, error) {
	if g.timeseriesStore != nil {
		points, err := g.timeseriesStore.GetBySale(ctx, saleID, domain.RaiseInterval1Hour)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			return points, nil
		}
	}
	return analytics.GenerateRaiseTimeseries(events, domain.RaiseInterval1Hour), nil
}
