package presale

import (
	"errors"

	"solana-presale/internal/solana"
)

// Failure kinds. Every failed call leaves the ledger untouched.
var (
	ErrSaleNotActive  = errors.New("isActive: sale is not active")
	ErrZeroAmount     = errors.New("buy: zero amount")
	ErrSaleNotEnded   = errors.New("isClaimable: sale has not ended")
	ErrZeroAllocation = errors.New("claim: zero allocation")
	ErrAlreadyClaimed = errors.New("claim: already claimed")
	ErrUnauthorized   = errors.New("ownable: caller is not the owner")
	ErrAlreadyBuilt   = errors.New("buildLP: already built")
	ErrNothingToSweep = errors.New("sweepDust: nothing to sweep")
	ErrOverflow       = errors.New("amount overflow")
	ErrInvalidConfig  = errors.New("invalid sale configuration")

	// ErrInvalidAddress is shared with the address codec so errors.Is works on both.
	ErrInvalidAddress = solana.ErrInvalidAddress

	// ErrExchangeFailed wraps a failed liquidity construction.
	ErrExchangeFailed = errors.New("exchange integration failed")

	// ErrTransferFailed wraps a failed settlement transfer.
	ErrTransferFailed = errors.New("settlement transfer failed")
)

// Reason returns a stable snake_case label for a failure, used in metrics and API bodies.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSaleNotActive):
		return "sale_not_active"
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrSaleNotEnded):
		return "sale_not_ended"
	case errors.Is(err, ErrZeroAllocation):
		return "zero_allocation"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyBuilt):
		return "already_built"
	case errors.Is(err, ErrNothingToSweep):
		return "nothing_to_sweep"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrExchangeFailed):
		return "exchange_failed"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	}
	return "internal"
}
