// Package verification checks ledger snapshots against the conservation
// invariants and compares a live ledger with one rebuilt from the journal.
package verification

import (
	"fmt"

	"solana-presale/internal/domain"
	"solana-presale/internal/presale"
)

// FieldDivergence represents a mismatch between live and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // live value
	Actual   interface{} // replayed value
}

// InvariantViolation describes a broken ledger invariant.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

// VerificationResult contains the result of verifying one sale.
type VerificationResult struct {
	SaleID      string
	Match       bool // true if no divergences and no violations
	Divergences []FieldDivergence
	Violations  []InvariantViolation
	LastSeq     uint64 // last replayed seq
}

// CheckInvariants validates the conservation rules of a ledger snapshot:
//   - allocations sum to total raised
//   - a claimed participant has a non-zero allocation
//   - before the pool is built nothing is claimed or swept
//   - after the build claimed total equals the floor entitlements of the
//     claimed participants, and claimed plus swept never exceeds the pool
func CheckInvariants(s *domain.LedgerSnapshot) []InvariantViolation {
	var violations []InvariantViolation
	add := func(name, format string, args ...interface{}) {
		violations = append(violations, InvariantViolation{Invariant: name, Detail: fmt.Sprintf(format, args...)})
	}

	var sum, entitledClaimed uint64
	for _, p := range s.Participants {
		sum += p.Allocation
		if p.HasClaimed && p.Allocation == 0 {
			add("claim_requires_allocation", "%s claimed with zero allocation", p.Address)
		}
		if p.HasClaimed && s.LPBuilt() {
			amount, err := presale.ProRata(p.Allocation, s.LPTotalAmount, s.TotalRaised)
			if err != nil {
				add("entitlement", "%s: %v", p.Address, err)
				continue
			}
			entitledClaimed += amount
		}
	}
	if sum != s.TotalRaised {
		add("allocation_sum", "allocations sum to %d, total raised is %d", sum, s.TotalRaised)
	}

	if !s.LPBuilt() {
		if s.LPTotalAmount != 0 || s.ClaimedTotal != 0 || s.SweptTotal != 0 {
			add("pending_pool_untouched", "pool %s has lp=%d claimed=%d swept=%d",
				s.Pool, s.LPTotalAmount, s.ClaimedTotal, s.SweptTotal)
		}
		for _, p := range s.Participants {
			if p.HasClaimed {
				add("pending_pool_untouched", "%s claimed before the pool was built", p.Address)
			}
		}
		return violations
	}

	if s.ClaimedTotal != entitledClaimed {
		add("claimed_total", "claimed total %d, entitlements of claimed participants %d", s.ClaimedTotal, entitledClaimed)
	}
	if s.ClaimedTotal > s.LPTotalAmount || s.SweptTotal > s.LPTotalAmount-s.ClaimedTotal {
		add("pool_conservation", "claimed %d + swept %d exceeds pool %d", s.ClaimedTotal, s.SweptTotal, s.LPTotalAmount)
	}
	return violations
}

// CompareSnapshots compares a live snapshot with a replayed one.
func CompareSnapshots(live, replayed *domain.LedgerSnapshot) []FieldDivergence {
	var divergences []FieldDivergence
	check := func(field string, expected, actual interface{}) {
		if expected != actual {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}

	check("SaleID", live.SaleID, replayed.SaleID)
	check("Owner", live.Owner, replayed.Owner)
	check("TotalRaised", live.TotalRaised, replayed.TotalRaised)
	check("Pool", live.Pool, replayed.Pool)
	check("LPTotalAmount", live.LPTotalAmount, replayed.LPTotalAmount)
	check("Distributed", live.Distributed, replayed.Distributed)
	check("ClaimedTotal", live.ClaimedTotal, replayed.ClaimedTotal)
	check("SweptTotal", live.SweptTotal, replayed.SweptTotal)
	check("LastSeq", live.LastSeq, replayed.LastSeq)

	replayedByAddr := make(map[string]*domain.Participant, len(replayed.Participants))
	for _, p := range replayed.Participants {
		replayedByAddr[p.Address] = p
	}
	for _, p := range live.Participants {
		r, ok := replayedByAddr[p.Address]
		if !ok {
			divergences = append(divergences, FieldDivergence{Field: "Participant[" + p.Address + "]", Expected: p.Info(), Actual: nil})
			continue
		}
		delete(replayedByAddr, p.Address)
		if p.Info() != r.Info() {
			divergences = append(divergences, FieldDivergence{Field: "Participant[" + p.Address + "]", Expected: p.Info(), Actual: r.Info()})
		}
	}
	for _, r := range replayed.Participants {
		if _, extra := replayedByAddr[r.Address]; extra {
			divergences = append(divergences, FieldDivergence{Field: "Participant[" + r.Address + "]", Expected: nil, Actual: r.Info()})
		}
	}

	return divergences
}
