// Package stub provides deterministic in-memory collaborators for a presale:
// an asset ledger that settles transfers and an exchange that converts the
// vault's escrowed contributions into pool units at a fixed rate.
package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"solana-presale/internal/domain"
	"solana-presale/internal/presale"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBalanceOverflow is returned when a credit would wrap the receiver balance.
	ErrBalanceOverflow = errors.New("balance overflow")
)

var (
	_ presale.Exchange   = (*Exchange)(nil)
	_ presale.Settlement = (*Ledger)(nil)
	_ presale.Settlement = Faucet{}
)

// Ledger tracks balances per asset and holder.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]map[string]uint64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]map[string]uint64)}
}

// Mint credits amount of asset to holder.
func (l *Ledger) Mint(asset, holder string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creditLocked(asset, holder, amount)
}

// Balance returns the holder's balance of asset.
func (l *Ledger) Balance(asset, holder string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[asset][holder]
}

// Transfer moves amount of asset from one holder to another.
func (l *Ledger) Transfer(_ context.Context, asset, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debitLocked(asset, from, amount); err != nil {
		return err
	}
	if l.balances[asset][to] > ^uint64(0)-amount {
		l.creditLocked(asset, from, amount)
		return fmt.Errorf("%w: %s of %s", ErrBalanceOverflow, to, asset)
	}
	l.creditLocked(asset, to, amount)
	return nil
}

// Faucet is a Settlement that mints any shortfall of Asset to the sender
// before transferring. It stands in for user wallets in local deployments.
type Faucet struct {
	*Ledger
	Asset string
}

// Transfer implements presale.Settlement.
func (f Faucet) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	if asset == f.Asset {
		f.mu.Lock()
		if have := f.balances[asset][from]; have < amount {
			f.creditLocked(asset, from, amount-have)
		}
		f.mu.Unlock()
	}
	return f.Ledger.Transfer(ctx, asset, from, to, amount)
}

func (l *Ledger) debitLocked(asset, holder string, amount uint64) error {
	have := l.balances[asset][holder]
	if have < amount {
		return fmt.Errorf("%w: %s holds %d of %s, need %d", ErrInsufficientBalance, holder, have, asset, amount)
	}
	if amount > 0 {
		l.balances[asset][holder] = have - amount
	}
	return nil
}

func (l *Ledger) creditLocked(asset, holder string, amount uint64) {
	holders, ok := l.balances[asset]
	if !ok {
		holders = make(map[string]uint64)
		l.balances[asset] = holders
	}
	holders[holder] += amount
}

// Exchange converts escrowed contributions into pool units.
// The request amount is taken from the vault's contribution balance. The
// distribution share moves to the distribution target in the contribution
// asset; the remainder is consumed, converted at RateNum/RateDen, and the
// resulting pool units are credited to the vault in the settlement asset.
type Exchange struct {
	Ledger  *Ledger
	RateNum uint64
	RateDen uint64

	mu    sync.Mutex
	calls []presale.LiquidityRequest
}

// NewExchange creates an exchange with a 1:1 conversion rate.
func NewExchange(ledger *Ledger) *Exchange {
	return &Exchange{Ledger: ledger, RateNum: 1, RateDen: 1}
}

// AddLiquidity implements presale.Exchange.
func (e *Exchange) AddLiquidity(_ context.Context, req presale.LiquidityRequest) (*presale.LiquidityResult, error) {
	if req.DistributionBps > domain.MaxBps {
		return nil, fmt.Errorf("distribution bps %d exceeds %d", req.DistributionBps, domain.MaxBps)
	}
	if e.RateDen == 0 {
		return nil, errors.New("zero conversion rate denominator")
	}

	distributed := req.Amount / domain.MaxBps * uint64(req.DistributionBps)
	distributed += req.Amount % domain.MaxBps * uint64(req.DistributionBps) / domain.MaxBps
	converted := req.Amount - distributed

	lp, overflow := new(uint256.Int).MulDivOverflow(
		uint256.NewInt(converted),
		uint256.NewInt(e.RateNum),
		uint256.NewInt(e.RateDen),
	)
	if overflow || !lp.IsUint64() {
		return nil, errors.New("pool amount overflows")
	}

	l := e.Ledger
	l.mu.Lock()
	if err := l.debitLocked(req.ContributionAsset, req.Vault, req.Amount); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.creditLocked(req.ContributionAsset, req.DistributionTarget, distributed)
	l.creditLocked(req.SettlementAsset, req.Vault, lp.Uint64())
	l.mu.Unlock()

	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()

	return &presale.LiquidityResult{LPAmount: lp.Uint64(), Distributed: distributed}, nil
}

// Calls returns the requests received so far.
func (e *Exchange) Calls() []presale.LiquidityRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]presale.LiquidityRequest, len(e.calls))
	copy(out, e.calls)
	return out
}
