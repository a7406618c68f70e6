package presale

import (
	"context"

	"solana-presale/internal/domain"
	"solana-presale/internal/solana"
)

// TransferOwnership hands the owner capability to newOwner immediately.
func (p *Presale) TransferOwnership(ctx context.Context, caller, newOwner string) error {
	const op = "transfer_ownership"

	p.mu.Lock()
	if caller != p.owner {
		p.mu.Unlock()
		return p.reject(op, ErrUnauthorized)
	}
	if solana.IsZeroAddress(newOwner) {
		p.mu.Unlock()
		return p.reject(op, ErrInvalidAddress)
	}
	if err := solana.ValidateAddress(newOwner); err != nil {
		p.mu.Unlock()
		return p.reject(op, err)
	}

	previous := p.owner
	event := p.newEventLocked(domain.EventOwnershipTransferred, newOwner, previous, 0, 0)
	if err := p.writeAheadLocked(ctx, event); err != nil {
		p.mu.Unlock()
		return p.reject(op, err)
	}
	p.owner = newOwner
	p.mu.Unlock()

	p.log.Info().Str("previous", previous).Str("owner", newOwner).Msg("ownership transferred")
	p.drainPublish(ctx)
	return nil
}
