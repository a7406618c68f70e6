package presale

import (
	"context"
	"fmt"

	"solana-presale/internal/domain"
	"solana-presale/internal/observability"
	"solana-presale/internal/solana"
)

// Buy escrows amount of the contribution asset from caller into the vault
// and records it while the sale is active. referrer is stored on the
// caller's first contribution only; an empty or zero address means no
// referrer. If the contribution cannot be recorded after the transfer the
// funds are returned to caller.
func (p *Presale) Buy(ctx context.Context, caller, referrer string, amount uint64) error {
	const op = "buy"

	if err := solana.ValidateAddress(caller); err != nil {
		return p.reject(op, err)
	}
	if amount == 0 {
		return p.reject(op, ErrZeroAmount)
	}

	p.mu.Lock()
	_, err := p.admitLocked(caller, referrer, amount)
	p.mu.Unlock()
	if err != nil {
		return p.reject(op, err)
	}

	err = timed("settlement", func() error {
		return p.settlement.Transfer(ctx, p.cfg.ContributionAsset, caller, p.vault, amount)
	})
	if err != nil {
		return p.reject(op, fmt.Errorf("%w: %w", ErrTransferFailed, err))
	}

	// The lock was released for the transfer, so admission is decided again.
	p.mu.Lock()
	c, err := p.admitLocked(caller, referrer, amount)
	var event *domain.LedgerEvent
	if err == nil {
		event = p.newEventLocked(domain.EventContribution, caller, c.referrer, amount, 0)
		err = p.writeAheadLocked(ctx, event)
	}
	if err != nil {
		p.mu.Unlock()
		p.refund(ctx, caller, amount)
		return p.reject(op, err)
	}

	part := c.part
	if part == nil {
		part = &domain.Participant{Address: caller, Referrer: c.referrer}
		p.participants[caller] = part
	}
	part.Allocation = c.allocation
	p.totalRaised = c.total
	participants := len(p.participants)
	p.mu.Unlock()

	observability.RecordContribution(amount, c.total, participants)
	p.log.Info().
		Str("user", caller).
		Str("referrer", c.referrer).
		Uint64("amount", amount).
		Uint64("total_raised", c.total).
		Msg("contribution")
	p.drainPublish(ctx)
	return nil
}

// admission is the ledger change a contribution would make.
type admission struct {
	part       *domain.Participant // nil on a first contribution
	referrer   string
	allocation uint64
	total      uint64
}

// admitLocked checks the phase, referrer and overflow for a contribution.
// Caller holds p.mu.
func (p *Presale) admitLocked(caller, referrer string, amount uint64) (admission, error) {
	if !p.isActiveAt(p.clock.Now()) {
		return admission{}, ErrSaleNotActive
	}
	if solana.IsZeroAddress(referrer) {
		referrer = ""
	} else if err := solana.ValidateAddress(referrer); err != nil {
		return admission{}, err
	}

	a := admission{referrer: referrer}
	var allocation uint64
	if part, ok := p.participants[caller]; ok {
		a.part = part
		a.referrer = part.Referrer
		allocation = part.Allocation
	}
	var err error
	if a.allocation, err = addChecked(allocation, amount); err != nil {
		return admission{}, err
	}
	if a.total, err = addChecked(p.totalRaised, amount); err != nil {
		return admission{}, err
	}
	return a, nil
}

// refund returns an escrowed contribution that could not be recorded.
func (p *Presale) refund(ctx context.Context, caller string, amount uint64) {
	err := timed("settlement", func() error {
		return p.settlement.Transfer(context.WithoutCancel(ctx), p.cfg.ContributionAsset, p.vault, caller, amount)
	})
	if err != nil {
		p.log.Error().Err(err).
			Str("user", caller).
			Uint64("amount", amount).
			Msg("contribution refund failed")
	}
}

// GetUserInfo returns the participant record, zero-valued for unknown identities.
func (p *Presale) GetUserInfo(addr string) domain.UserInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.participants[addr].Info()
}

// GetUserShare returns allocation/total_raised as an exact fraction.
// Before any contribution the share is 0/0.
func (p *Presale) GetUserShare(addr string) domain.Share {
	p.mu.Lock()
	defer p.mu.Unlock()
	var allocation uint64
	if part, ok := p.participants[addr]; ok {
		allocation = part.Allocation
	}
	return domain.Share{Numerator: allocation, Denominator: p.totalRaised}
}

// Entitlement returns what addr would receive from claim given the current
// pool: floor(allocation*lpTotalAmount/total_raised). Zero before build.
func (p *Presale) Entitlement(addr string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	part, ok := p.participants[addr]
	if !ok || p.pool != domain.PoolBuilt {
		return 0, nil
	}
	return mulDiv(part.Allocation, p.lpTotal, p.totalRaised)
}
