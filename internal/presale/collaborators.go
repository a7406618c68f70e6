package presale

import (
	"context"

	"solana-presale/internal/domain"
)

// LiquidityRequest is sent once to the exchange integration by BuildLP.
type LiquidityRequest struct {
	Vault              string // escrow holding the contributions
	ContributionAsset  string
	SettlementAsset    string
	DistributionTarget string
	Amount             uint64 // escrowed total_raised
	DistributionBps    uint32 // share of the resulting pool for DistributionTarget
}

// LiquidityResult is reported by the exchange integration.
type LiquidityResult struct {
	LPAmount    uint64 `json:"lp_amount"`   // retained in the vault for participants
	Distributed uint64 `json:"distributed"` // routed to the distribution target
}

// Exchange converts escrowed contributions into a distributable pool.
// Implementations are untrusted and may call back into the Presale.
type Exchange interface {
	AddLiquidity(ctx context.Context, req LiquidityRequest) (*LiquidityResult, error)
}

// Settlement moves asset units: contributions into the vault and
// settlement-asset units out of it.
// Implementations are untrusted and may call back into the Presale.
type Settlement interface {
	Transfer(ctx context.Context, asset, from, to string, amount uint64) error
}

// Publisher receives committed ledger events.
type Publisher interface {
	Publish(ctx context.Context, e *domain.LedgerEvent) error
}
