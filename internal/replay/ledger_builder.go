package replay

import (
	"context"
	"fmt"
	"sort"

	"solana-presale/internal/domain"
)

// LedgerBuilder is a ReplayEngine that folds events into ledger state.
type LedgerBuilder struct {
	snap         *domain.LedgerSnapshot
	participants map[string]*domain.Participant
}

// NewLedgerBuilder creates a builder for a sale starting from an empty ledger.
func NewLedgerBuilder(saleID, initialOwner string) *LedgerBuilder {
	return &LedgerBuilder{
		snap: &domain.LedgerSnapshot{
			SaleID: saleID,
			Owner:  initialOwner,
			Pool:   domain.PoolPending,
		},
		participants: make(map[string]*domain.Participant),
	}
}

// OnEvent applies one event.
func (b *LedgerBuilder) OnEvent(_ context.Context, e *domain.LedgerEvent) error {
	if e.SaleID != b.snap.SaleID {
		return fmt.Errorf("%w: seq %d has sale %s", ErrForeignEvent, e.Seq, e.SaleID)
	}

	switch e.Kind {
	case domain.EventContribution:
		part, ok := b.participants[e.Account]
		if !ok {
			part = &domain.Participant{Address: e.Account, Referrer: e.Counterparty}
			b.participants[e.Account] = part
		}
		part.Allocation += e.Amount
		b.snap.TotalRaised += e.Amount
	case domain.EventPoolBuilt:
		b.snap.Pool = domain.PoolBuilt
		b.snap.LPTotalAmount = e.Amount
		b.snap.Distributed = e.Secondary
	case domain.EventClaim:
		part, ok := b.participants[e.Account]
		if !ok {
			return fmt.Errorf("%w: seq %d claims for unknown participant %s", ErrInvalidOrdering, e.Seq, e.Account)
		}
		part.HasClaimed = true
		b.snap.ClaimedTotal += e.Amount
	case domain.EventOwnershipTransferred:
		b.snap.Owner = e.Account
	case domain.EventDustSwept:
		b.snap.SweptTotal += e.Amount
	default:
		return fmt.Errorf("%w: %q at seq %d", ErrUnknownKind, e.Kind, e.Seq)
	}

	b.snap.LastSeq = e.Seq
	return nil
}

// Snapshot returns the folded state, participants ordered by address.
func (b *LedgerBuilder) Snapshot() *domain.LedgerSnapshot {
	out := *b.snap
	out.Participants = make([]*domain.Participant, 0, len(b.participants))
	for _, part := range b.participants {
		partCopy := *part
		out.Participants = append(out.Participants, &partCopy)
	}
	sort.Slice(out.Participants, func(i, j int) bool {
		return out.Participants[i].Address < out.Participants[j].Address
	})
	return &out
}
