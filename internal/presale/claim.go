package presale

import (
	"context"
	"fmt"

	"solana-presale/internal/domain"
	"solana-presale/internal/observability"
)

// Claim pays caller floor(allocation*lpTotalAmount/total_raised) of the
// settlement asset, exactly once. hasClaimed is set before the transfer and
// restored if the transfer fails. A zero payout skips the transfer but still
// consumes the claim.
func (p *Presale) Claim(ctx context.Context, caller string) (uint64, error) {
	const op = "claim"

	p.mu.Lock()
	if !p.hasEndedAt(p.clock.Now()) || p.pool != domain.PoolBuilt {
		p.mu.Unlock()
		return 0, p.reject(op, ErrSaleNotEnded)
	}
	part, ok := p.participants[caller]
	if !ok || part.Allocation == 0 {
		p.mu.Unlock()
		return 0, p.reject(op, ErrZeroAllocation)
	}
	if part.HasClaimed {
		p.mu.Unlock()
		return 0, p.reject(op, ErrAlreadyClaimed)
	}
	amount, err := mulDiv(part.Allocation, p.lpTotal, p.totalRaised)
	if err != nil {
		p.mu.Unlock()
		return 0, p.reject(op, err)
	}
	part.HasClaimed = true
	p.claimedTotal += amount
	p.mu.Unlock()

	if amount > 0 {
		err := timed("settlement", func() error {
			return p.settlement.Transfer(ctx, p.cfg.SettlementAsset, p.vault, caller, amount)
		})
		if err != nil {
			p.mu.Lock()
			part.HasClaimed = false
			p.claimedTotal -= amount
			p.mu.Unlock()
			return 0, p.reject(op, fmt.Errorf("%w: %w", ErrTransferFailed, err))
		}
	}

	p.mu.Lock()
	event := p.newEventLocked(domain.EventClaim, caller, "", amount, 0)
	p.commitLocked(ctx, event)
	p.mu.Unlock()

	observability.RecordClaim(amount)
	p.log.Info().Str("user", caller).Uint64("lp_amount", amount).Msg("claim")
	p.drainPublish(ctx)
	return amount, nil
}
