package presale

import (
	"context"
	"errors"
	"fmt"

	"solana-presale/internal/domain"
	"solana-presale/internal/observability"
)

// BuildLP converts the escrowed total into the distributable pool exactly once.
// The pool is marked BUILDING before the exchange is called, so a reentrant
// BuildLP fails with ErrAlreadyBuilt and a reentrant Claim with ErrSaleNotEnded.
// If the exchange fails the pool goes back to PENDING and nothing is recorded.
func (p *Presale) BuildLP(ctx context.Context, caller string) (LiquidityResult, error) {
	const op = "build_lp"

	p.mu.Lock()
	if caller != p.owner {
		p.mu.Unlock()
		return LiquidityResult{}, p.reject(op, ErrUnauthorized)
	}
	if !p.hasEndedAt(p.clock.Now()) {
		p.mu.Unlock()
		return LiquidityResult{}, p.reject(op, ErrSaleNotEnded)
	}
	if p.pool != domain.PoolPending {
		p.mu.Unlock()
		return LiquidityResult{}, p.reject(op, ErrAlreadyBuilt)
	}
	p.pool = domain.PoolBuilding
	total := p.totalRaised
	p.mu.Unlock()

	var result LiquidityResult
	if total > 0 {
		req := LiquidityRequest{
			Vault:              p.vault,
			ContributionAsset:  p.cfg.ContributionAsset,
			SettlementAsset:    p.cfg.SettlementAsset,
			DistributionTarget: p.cfg.DistributionTarget,
			Amount:             total,
			DistributionBps:    p.cfg.DistributionBps,
		}
		err := timed("exchange", func() error {
			res, err := p.exchange.AddLiquidity(ctx, req)
			if err != nil {
				return err
			}
			if res == nil {
				return errors.New("empty liquidity result")
			}
			result = *res
			return nil
		})
		if err != nil {
			p.mu.Lock()
			p.pool = domain.PoolPending
			p.mu.Unlock()
			return LiquidityResult{}, p.reject(op, fmt.Errorf("%w: %w", ErrExchangeFailed, err))
		}
	}

	p.mu.Lock()
	p.lpTotal = result.LPAmount
	p.distributed = result.Distributed
	p.pool = domain.PoolBuilt
	event := p.newEventLocked(domain.EventPoolBuilt, caller, p.cfg.DistributionTarget, result.LPAmount, result.Distributed)
	p.commitLocked(ctx, event)
	p.mu.Unlock()

	observability.RecordPoolBuilt(result.LPAmount)
	p.log.Info().
		Uint64("total_raised", total).
		Uint64("lp_total", result.LPAmount).
		Uint64("distributed", result.Distributed).
		Msg("liquidity pool built")
	p.drainPublish(ctx)
	return result, nil
}
