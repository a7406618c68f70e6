package verification

import (
	"context"

	"solana-presale/internal/domain"
	"solana-presale/internal/replay"
)

// ReplayVerifier rebuilds a sale from its journal and checks it.
type ReplayVerifier struct {
	runner       *replay.Runner
	initialOwner string
}

// NewReplayVerifier creates a verifier. initialOwner is the owner the sale
// was constructed with.
func NewReplayVerifier(runner *replay.Runner, initialOwner string) *ReplayVerifier {
	return &ReplayVerifier{runner: runner, initialOwner: initialOwner}
}

// VerifyJournal rebuilds the sale and checks the invariants of the result.
func (v *ReplayVerifier) VerifyJournal(ctx context.Context, saleID string) (*VerificationResult, *domain.LedgerSnapshot, error) {
	replayed, err := v.runner.Rebuild(ctx, saleID, v.initialOwner)
	if err != nil {
		return nil, nil, err
	}
	violations := CheckInvariants(replayed)
	return &VerificationResult{
		SaleID:     saleID,
		Match:      len(violations) == 0,
		Violations: violations,
		LastSeq:    replayed.LastSeq,
	}, replayed, nil
}

// VerifyLive compares a live snapshot with the journal replayed up to the
// snapshot's seq and checks the invariants of both. Events journaled after
// the snapshot was taken are ignored; a journal that lags the snapshot
// shows up as a divergence.
func (v *ReplayVerifier) VerifyLive(ctx context.Context, live *domain.LedgerSnapshot) (*VerificationResult, error) {
	replayed, err := v.runner.RebuildUpTo(ctx, live.SaleID, v.initialOwner, live.LastSeq)
	if err != nil {
		return nil, err
	}

	violations := CheckInvariants(replayed)
	seen := make(map[InvariantViolation]bool, len(violations))
	for _, violation := range violations {
		seen[violation] = true
	}
	for _, violation := range CheckInvariants(live) {
		if !seen[violation] {
			violations = append(violations, violation)
		}
	}

	divergences := CompareSnapshots(live, replayed)
	return &VerificationResult{
		SaleID:      live.SaleID,
		Match:       len(violations) == 0 && len(divergences) == 0,
		Divergences: divergences,
		Violations:  violations,
		LastSeq:     replayed.LastSeq,
	}, nil
}
