package replay

import (
	"context"

	"solana-presale/internal/domain"
)

// ReplayEngine processes journal events in order.
type ReplayEngine interface {
	// OnEvent is called for each event in order.
	// Events are guaranteed to be ordered by seq with no gaps.
	OnEvent(ctx context.Context, event *domain.LedgerEvent) error
}
