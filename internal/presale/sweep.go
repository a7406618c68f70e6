package presale

import (
	"context"
	"fmt"

	"solana-presale/internal/domain"
	"solana-presale/internal/observability"
	"solana-presale/internal/solana"
)

// Dust returns the part of the pool no participant can ever claim.
func (p *Presale) Dust() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dustLocked()
}

func (p *Presale) dustLocked() (uint64, error) {
	if p.pool != domain.PoolBuilt {
		return 0, nil
	}
	allocations := make([]uint64, 0, len(p.participants))
	for _, part := range p.participants {
		allocations = append(allocations, part.Allocation)
	}
	return Dust(allocations, p.lpTotal, p.totalRaised, p.sweptTotal)
}

// SweepDust transfers the unclaimable rounding remainder to recipient.
// Owner only, after the pool is built. Claims are never reduced.
func (p *Presale) SweepDust(ctx context.Context, caller, recipient string) (uint64, error) {
	const op = "sweep_dust"

	p.mu.Lock()
	if caller != p.owner {
		p.mu.Unlock()
		return 0, p.reject(op, ErrUnauthorized)
	}
	if !p.hasEndedAt(p.clock.Now()) || p.pool != domain.PoolBuilt {
		p.mu.Unlock()
		return 0, p.reject(op, ErrSaleNotEnded)
	}
	if solana.IsZeroAddress(recipient) {
		p.mu.Unlock()
		return 0, p.reject(op, ErrInvalidAddress)
	}
	if err := solana.ValidateAddress(recipient); err != nil {
		p.mu.Unlock()
		return 0, p.reject(op, err)
	}
	dust, err := p.dustLocked()
	if err != nil {
		p.mu.Unlock()
		return 0, p.reject(op, err)
	}
	if dust == 0 {
		p.mu.Unlock()
		return 0, p.reject(op, ErrNothingToSweep)
	}
	p.sweptTotal += dust
	p.mu.Unlock()

	err = timed("settlement", func() error {
		return p.settlement.Transfer(ctx, p.cfg.SettlementAsset, p.vault, recipient, dust)
	})
	if err != nil {
		p.mu.Lock()
		p.sweptTotal -= dust
		p.mu.Unlock()
		return 0, p.reject(op, fmt.Errorf("%w: %w", ErrTransferFailed, err))
	}

	p.mu.Lock()
	event := p.newEventLocked(domain.EventDustSwept, recipient, "", dust, 0)
	p.commitLocked(ctx, event)
	p.mu.Unlock()

	observability.RecordDustSwept(dust)
	p.log.Info().Str("recipient", recipient).Uint64("amount", dust).Msg("dust swept")
	p.drainPublish(ctx)
	return dust, nil
}
