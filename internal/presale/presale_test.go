package presale_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-presale/internal/clock"
	"solana-presale/internal/domain"
	"solana-presale/internal/exchange/stub"
	"solana-presale/internal/presale"
	"solana-presale/internal/replay"
	"solana-presale/internal/storage/memory"
)

const (
	programID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	usdcMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	lpMint    = "So11111111111111111111111111111111111111112"

	startTime = int64(100)
	endTime   = int64(500)
)

// addr returns a deterministic valid identity.
func addr(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, 32))
}

var (
	owner  = addr(1)
	userX  = addr(2)
	userY  = addr(3)
	userZ  = addr(4)
	target = addr(5)
	dexID  = addr(6)
)

func testConfig() domain.SaleConfig {
	return domain.SaleConfig{
		ContributionAsset:  usdcMint,
		SettlementAsset:    lpMint,
		Exchange:           dexID,
		DistributionTarget: target,
		StartTime:          startTime,
		EndTime:            endTime,
	}
}

type fixture struct {
	clock    *clock.Manual
	ledger   *stub.Ledger
	exchange *stub.Exchange
	journal  *memory.EventStore
	sale     *presale.Presale
}

func newFixture(t *testing.T, mutate ...func(*presale.Options)) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clock.NewManual(startTime),
		ledger:  stub.NewLedger(),
		journal: memory.NewEventStore(),
	}
	f.exchange = stub.NewExchange(f.ledger)
	for _, holder := range []string{owner, userX, userY, userZ} {
		f.ledger.Mint(usdcMint, holder, ^uint64(0))
	}

	opts := presale.Options{
		Owner:      owner,
		ProgramID:  programID,
		Clock:      f.clock,
		Exchange:   f.exchange,
		Settlement: f.ledger,
		Journal:    f.journal,
		Logger:     zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&opts)
	}

	sale, err := presale.New(testConfig(), opts)
	require.NoError(t, err)
	f.sale = sale
	return f
}

// scenarioA funds X=100, Y=900 (ref X), Z=2300 (ref X) at t=100.
func (f *fixture) scenarioA(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	f.clock.Set(startTime)
	require.NoError(t, f.sale.Buy(ctx, userX, "", 100))
	require.NoError(t, f.sale.Buy(ctx, userY, userX, 900))
	require.NoError(t, f.sale.Buy(ctx, userZ, userX, 2300))
}

// build ends the sale and builds the pool.
func (f *fixture) build(t *testing.T) presale.LiquidityResult {
	t.Helper()
	f.clock.Set(endTime)
	res, err := f.sale.BuildLP(context.Background(), owner)
	require.NoError(t, err)
	return res
}

func TestNew_InvalidConfig(t *testing.T) {
	base := presale.Options{
		Owner:      owner,
		ProgramID:  programID,
		Exchange:   stub.NewExchange(stub.NewLedger()),
		Settlement: stub.NewLedger(),
	}

	tests := []struct {
		name string
		cfg  func(*domain.SaleConfig)
		opts func(*presale.Options)
	}{
		{"start equals end", func(c *domain.SaleConfig) { c.EndTime = c.StartTime }, nil},
		{"start after end", func(c *domain.SaleConfig) { c.StartTime = 600 }, nil},
		{"invalid asset", func(c *domain.SaleConfig) { c.ContributionAsset = "bogus" }, nil},
		{"bps too large", func(c *domain.SaleConfig) { c.DistributionBps = 10_001 }, nil},
		{"invalid owner", nil, func(o *presale.Options) { o.Owner = "" }},
		{"invalid program", nil, func(o *presale.Options) { o.ProgramID = "nope" }},
		{"missing exchange", nil, func(o *presale.Options) { o.Exchange = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			opts := base
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := presale.New(cfg, opts)
			assert.ErrorIs(t, err, presale.ErrInvalidConfig)
		})
	}
}

func TestVaultDeterministic(t *testing.T) {
	f1 := newFixture(t)
	f2 := newFixture(t)
	assert.Equal(t, f1.sale.Vault(), f2.sale.Vault())

	v, err := presale.DeriveVault(testConfig(), programID)
	require.NoError(t, err)
	assert.Equal(t, v, f1.sale.Vault())

	other := testConfig()
	other.EndTime = 501
	v2, err := presale.DeriveVault(other, programID)
	require.NoError(t, err)
	assert.NotEqual(t, v, v2)
}

func TestPhaseGate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		now       int64
		started   bool
		ended     bool
		active    bool
		phase     domain.Phase
		remaining int64
	}{
		{0, false, false, false, domain.PhaseNotStarted, 500},
		{99, false, false, false, domain.PhaseNotStarted, 401},
		{100, true, false, true, domain.PhaseActive, 400},
		{499, true, false, true, domain.PhaseActive, 1},
		{500, true, true, false, domain.PhaseEnded, 0},
		{10_000, true, true, false, domain.PhaseEnded, 0},
	}

	for _, tt := range tests {
		f.clock.Set(tt.now)
		assert.Equal(t, tt.started, f.sale.HasStarted(), "hasStarted at %d", tt.now)
		assert.Equal(t, tt.ended, f.sale.HasEnded(), "hasEnded at %d", tt.now)
		assert.Equal(t, tt.active, f.sale.IsActive(), "isActive at %d", tt.now)
		assert.Equal(t, tt.phase, f.sale.Phase(), "phase at %d", tt.now)
		assert.Equal(t, tt.remaining, f.sale.RemainingTime(), "remaining at %d", tt.now)
	}
}

func TestBuy_ScenarioA(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)

	assert.Equal(t, uint64(100), f.sale.GetUserInfo(userX).Allocation)
	assert.Equal(t, uint64(900), f.sale.GetUserInfo(userY).Allocation)
	assert.Equal(t, uint64(2300), f.sale.GetUserInfo(userZ).Allocation)
	assert.Equal(t, uint64(3300), f.sale.TotalRaised())

	assert.Equal(t, "", f.sale.GetUserInfo(userX).Referrer)
	assert.Equal(t, userX, f.sale.GetUserInfo(userY).Referrer)
	assert.Equal(t, userX, f.sale.GetUserInfo(userZ).Referrer)

	share := f.sale.GetUserShare(userY)
	assert.Equal(t, domain.Share{Numerator: 900, Denominator: 3300}, share)
}

func TestBuy_EscrowsContribution(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)
	vault := f.sale.Vault()

	assert.Equal(t, uint64(3300), f.ledger.Balance(usdcMint, vault))
	assert.Equal(t, ^uint64(0)-900, f.ledger.Balance(usdcMint, userY))

	f.build(t)
	assert.Equal(t, uint64(0), f.ledger.Balance(usdcMint, vault))
	assert.Equal(t, uint64(3300), f.ledger.Balance(lpMint, vault))
}

func TestBuy_UnfundedCallerRejected(t *testing.T) {
	f := newFixture(t)
	poor := addr(42)
	f.ledger.Mint(usdcMint, poor, 5)

	err := f.sale.Buy(context.Background(), poor, "", 10)
	assert.ErrorIs(t, err, presale.ErrTransferFailed)
	assert.ErrorIs(t, err, stub.ErrInsufficientBalance)
	assert.Equal(t, domain.UserInfo{}, f.sale.GetUserInfo(poor))
	assert.Equal(t, uint64(0), f.sale.TotalRaised())
	assert.Equal(t, uint64(5), f.ledger.Balance(usdcMint, poor))
	assert.Equal(t, uint64(0), f.sale.Snapshot().LastSeq)
}

func TestBuy_JournalFailureRefunds(t *testing.T) {
	journal := &failingJournal{EventStore: memory.NewEventStore(), fail: true}
	f := newFixture(t, func(o *presale.Options) { o.Journal = journal })

	err := f.sale.Buy(context.Background(), userX, "", 100)
	assert.Error(t, err)
	assert.Equal(t, uint64(0), f.sale.TotalRaised())
	assert.Equal(t, uint64(0), f.ledger.Balance(usdcMint, f.sale.Vault()))
	assert.Equal(t, ^uint64(0), f.ledger.Balance(usdcMint, userX))
}

// closingSettlement ends the sale while a contribution is in flight.
type closingSettlement struct {
	*stub.Ledger
	clock *clock.Manual
}

func (s closingSettlement) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	if err := s.Ledger.Transfer(ctx, asset, from, to, amount); err != nil {
		return err
	}
	if asset == usdcMint {
		s.clock.Set(endTime)
	}
	return nil
}

func TestBuy_WindowClosesDuringTransfer(t *testing.T) {
	f := newFixture(t)
	sale, err := presale.New(testConfig(), presale.Options{
		Owner:      owner,
		ProgramID:  programID,
		Clock:      f.clock,
		Exchange:   f.exchange,
		Settlement: closingSettlement{Ledger: f.ledger, clock: f.clock},
	})
	require.NoError(t, err)

	err = sale.Buy(context.Background(), userX, "", 100)
	assert.ErrorIs(t, err, presale.ErrSaleNotActive)
	assert.Equal(t, uint64(0), sale.TotalRaised())
	assert.Equal(t, ^uint64(0), f.ledger.Balance(usdcMint, userX))
}

func TestBuy_OutsideWindow(t *testing.T) {
	tests := []struct {
		name string
		now  int64
	}{
		{"one second before start", startTime - 1},
		{"exactly at end", endTime},
		{"long after end", endTime + 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.clock.Set(tt.now)
			err := f.sale.Buy(context.Background(), userX, "", 100)
			assert.ErrorIs(t, err, presale.ErrSaleNotActive)
			assert.Equal(t, uint64(0), f.sale.TotalRaised())
			assert.Equal(t, domain.UserInfo{}, f.sale.GetUserInfo(userX))
		})
	}
}

func TestBuy_ZeroAmount(t *testing.T) {
	for _, now := range []int64{startTime - 1, startTime, endTime} {
		f := newFixture(t)
		f.clock.Set(now)
		err := f.sale.Buy(context.Background(), userX, "", 0)
		assert.ErrorIs(t, err, presale.ErrZeroAmount, "at t=%d", now)
	}
}

func TestBuy_ReferrerRecordedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sale.Buy(ctx, userY, userX, 10))
	require.NoError(t, f.sale.Buy(ctx, userY, userZ, 15))
	require.NoError(t, f.sale.Buy(ctx, userZ, solanaZero, 5))

	assert.Equal(t, domain.UserInfo{Allocation: 25, Referrer: userX}, f.sale.GetUserInfo(userY))
	assert.Equal(t, "", f.sale.GetUserInfo(userZ).Referrer)
	assert.Equal(t, uint64(30), f.sale.TotalRaised())
}

const solanaZero = "11111111111111111111111111111111"

func TestBuy_InvalidIdentities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.sale.Buy(ctx, "not-base58!", "", 1), presale.ErrInvalidAddress)
	assert.ErrorIs(t, f.sale.Buy(ctx, userX, "short", 1), presale.ErrInvalidAddress)
	assert.Equal(t, uint64(0), f.sale.TotalRaised())
}

func TestBuy_Overflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sale.Buy(ctx, userX, "", ^uint64(0)))
	err := f.sale.Buy(ctx, userY, "", 1)
	assert.ErrorIs(t, err, presale.ErrOverflow)
	assert.Equal(t, ^uint64(0), f.sale.TotalRaised())
	assert.Equal(t, domain.UserInfo{}, f.sale.GetUserInfo(userY))
}

func TestGetUserShare_Empty(t *testing.T) {
	f := newFixture(t)
	share := f.sale.GetUserShare(userX)
	assert.True(t, share.IsZero())
	assert.Equal(t, float64(0), share.Float64())
}

func TestSumOfAllocationsEqualsTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := []string{userX, userY, userZ}

	for i := 0; i < 30; i++ {
		require.NoError(t, f.sale.Buy(ctx, users[i%3], "", uint64(i+1)))
	}

	snap := f.sale.Snapshot()
	var sum uint64
	for _, p := range snap.Participants {
		sum += p.Allocation
	}
	assert.Equal(t, snap.TotalRaised, sum)
	assert.Equal(t, uint64(465), sum)
}

func TestBuildLP(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)
	ctx := context.Background()

	_, err := f.sale.BuildLP(ctx, userX)
	assert.ErrorIs(t, err, presale.ErrUnauthorized)

	f.clock.Set(endTime - 1)
	_, err = f.sale.BuildLP(ctx, owner)
	assert.ErrorIs(t, err, presale.ErrSaleNotEnded)
	assert.False(t, f.sale.LPBuilt())

	res := f.build(t)
	assert.Equal(t, uint64(3300), res.LPAmount)
	assert.True(t, f.sale.LPBuilt())
	assert.Equal(t, uint64(3300), f.sale.LPTotalAmount())
	assert.Equal(t, uint64(3300), f.ledger.Balance(lpMint, f.sale.Vault()))

	_, err = f.sale.BuildLP(ctx, owner)
	assert.ErrorIs(t, err, presale.ErrAlreadyBuilt)
	assert.Len(t, f.exchange.Calls(), 1)
}

func TestBuildLP_UnauthorizedBeforeEnd(t *testing.T) {
	f := newFixture(t)
	_, err := f.sale.BuildLP(context.Background(), userX)
	assert.ErrorIs(t, err, presale.ErrUnauthorized)
}

func TestBuildLP_Distribution(t *testing.T) {
	f := newFixture(t)
	cfg := testConfig()
	cfg.DistributionBps = 1000
	sale, err := presale.New(cfg, presale.Options{
		Owner:      owner,
		ProgramID:  programID,
		Clock:      f.clock,
		Exchange:   f.exchange,
		Settlement: f.ledger,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sale.Buy(ctx, userX, "", 1000))
	f.clock.Set(endTime)
	res, err := sale.BuildLP(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, uint64(900), res.LPAmount)
	assert.Equal(t, uint64(100), res.Distributed)
	assert.Equal(t, uint64(100), f.ledger.Balance(usdcMint, target))

	calls := f.exchange.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, uint32(1000), calls[0].DistributionBps)
	assert.Equal(t, sale.Vault(), calls[0].Vault)
}

func TestBuildLP_NothingRaised(t *testing.T) {
	f := newFixture(t)
	res := f.build(t)

	assert.Equal(t, uint64(0), res.LPAmount)
	assert.True(t, f.sale.LPBuilt())
	assert.Empty(t, f.exchange.Calls())

	_, err := f.sale.Claim(context.Background(), userX)
	assert.ErrorIs(t, err, presale.ErrZeroAllocation)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)
	ctx := context.Background()

	f.clock.Set(endTime)
	_, err := f.sale.Claim(ctx, userX)
	assert.ErrorIs(t, err, presale.ErrSaleNotEnded, "pool not built yet")

	f.build(t)

	got, err := f.sale.Claim(ctx, userY)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), got)
	assert.Equal(t, uint64(900), f.ledger.Balance(lpMint, userY))
	assert.True(t, f.sale.GetUserInfo(userY).HasClaimed)

	_, err = f.sale.Claim(ctx, userY)
	assert.ErrorIs(t, err, presale.ErrAlreadyClaimed)
	assert.Equal(t, uint64(900), f.ledger.Balance(lpMint, userY))

	_, err = f.sale.Claim(ctx, addr(99))
	assert.ErrorIs(t, err, presale.ErrZeroAllocation)
}

func TestClaim_BeforeEnd(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)
	_, err := f.sale.Claim(context.Background(), userX)
	assert.ErrorIs(t, err, presale.ErrSaleNotEnded)
}

func TestClaim_FloorAndDust(t *testing.T) {
	f := newFixture(t)
	f.exchange.RateDen = 3
	f.scenarioA(t)
	res := f.build(t)
	require.Equal(t, uint64(1100), res.LPAmount)
	ctx := context.Background()

	want := map[string]uint64{userX: 33, userY: 300, userZ: 766}
	var paid uint64
	for user, amount := range want {
		entitled, err := f.sale.Entitlement(user)
		require.NoError(t, err)
		assert.Equal(t, amount, entitled)

		got, err := f.sale.Claim(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, amount, got)
		paid += got
	}
	assert.LessOrEqual(t, paid, res.LPAmount)

	dust, err := f.sale.Dust()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), dust)
	assert.Equal(t, dust, f.ledger.Balance(lpMint, f.sale.Vault()))
}

func TestClaim_ZeroPayoutConsumesClaim(t *testing.T) {
	f := newFixture(t)
	f.exchange.RateDen = 10_000
	ctx := context.Background()

	require.NoError(t, f.sale.Buy(ctx, userX, "", 1))
	require.NoError(t, f.sale.Buy(ctx, userY, "", 9_999))
	f.build(t)
	require.Equal(t, uint64(1), f.sale.LPTotalAmount())

	got, err := f.sale.Claim(ctx, userX)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
	assert.True(t, f.sale.GetUserInfo(userX).HasClaimed)

	_, err = f.sale.Claim(ctx, userX)
	assert.ErrorIs(t, err, presale.ErrAlreadyClaimed)
}

func TestClaim_LargeAmountsNoOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	big := ^uint64(0) / 2

	require.NoError(t, f.sale.Buy(ctx, userX, "", big))
	require.NoError(t, f.sale.Buy(ctx, userY, "", big))
	res := f.build(t)
	require.Equal(t, 2*big, res.LPAmount)

	got, err := f.sale.Claim(ctx, userX)
	require.NoError(t, err)
	assert.Equal(t, big, got)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.sale.TransferOwnership(ctx, userX, userX), presale.ErrUnauthorized)
	assert.ErrorIs(t, f.sale.TransferOwnership(ctx, owner, solanaZero), presale.ErrInvalidAddress)
	assert.ErrorIs(t, f.sale.TransferOwnership(ctx, owner, ""), presale.ErrInvalidAddress)
	assert.Equal(t, owner, f.sale.Owner())

	require.NoError(t, f.sale.TransferOwnership(ctx, owner, userZ))
	assert.Equal(t, userZ, f.sale.Owner())

	f.clock.Set(endTime)
	_, err := f.sale.BuildLP(ctx, owner)
	assert.ErrorIs(t, err, presale.ErrUnauthorized)
	_, err = f.sale.BuildLP(ctx, userZ)
	assert.NoError(t, err)
}

func TestSweepDust(t *testing.T) {
	f := newFixture(t)
	f.exchange.RateDen = 3
	f.scenarioA(t)
	ctx := context.Background()

	f.clock.Set(endTime)
	_, err := f.sale.SweepDust(ctx, owner, owner)
	assert.ErrorIs(t, err, presale.ErrSaleNotEnded)

	f.build(t)

	_, err = f.sale.SweepDust(ctx, userX, userX)
	assert.ErrorIs(t, err, presale.ErrUnauthorized)
	_, err = f.sale.SweepDust(ctx, owner, solanaZero)
	assert.ErrorIs(t, err, presale.ErrInvalidAddress)

	// Sweeping before claims must not reduce anyone's entitlement.
	swept, err := f.sale.SweepDust(ctx, owner, target)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), swept)
	assert.Equal(t, uint64(1), f.ledger.Balance(lpMint, target))

	_, err = f.sale.SweepDust(ctx, owner, target)
	assert.ErrorIs(t, err, presale.ErrNothingToSweep)

	for _, user := range []string{userX, userY, userZ} {
		_, err := f.sale.Claim(ctx, user)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(0), f.ledger.Balance(lpMint, f.sale.Vault()))
}

func TestSweepDust_NoDust(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)
	f.build(t)
	_, err := f.sale.SweepDust(context.Background(), owner, owner)
	assert.ErrorIs(t, err, presale.ErrNothingToSweep)
}

// hostileExchange calls back into the sale during AddLiquidity.
type hostileExchange struct {
	inner *stub.Exchange
	sale  *presale.Presale
	errs  []error
}

func (h *hostileExchange) AddLiquidity(ctx context.Context, req presale.LiquidityRequest) (*presale.LiquidityResult, error) {
	_, err := h.sale.BuildLP(ctx, owner)
	h.errs = append(h.errs, err)
	_, err = h.sale.Claim(ctx, userX)
	h.errs = append(h.errs, err)
	return h.inner.AddLiquidity(ctx, req)
}

func TestBuildLP_ReentrancyRejected(t *testing.T) {
	hostile := &hostileExchange{}
	f := newFixture(t, func(o *presale.Options) { o.Exchange = hostile })
	hostile.inner = f.exchange
	hostile.sale = f.sale

	f.scenarioA(t)
	f.build(t)

	require.Len(t, hostile.errs, 2)
	assert.ErrorIs(t, hostile.errs[0], presale.ErrAlreadyBuilt)
	assert.ErrorIs(t, hostile.errs[1], presale.ErrSaleNotEnded)
	assert.Len(t, f.exchange.Calls(), 1)
}

// hostileSettlement re-enters claim for the recipient before paying out.
type hostileSettlement struct {
	inner *stub.Ledger
	sale  *presale.Presale
	errs  []error
}

func (h *hostileSettlement) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	if asset == lpMint {
		_, err := h.sale.Claim(ctx, to)
		h.errs = append(h.errs, err)
	}
	return h.inner.Transfer(ctx, asset, from, to, amount)
}

func TestClaim_ReentrancyRejected(t *testing.T) {
	hostile := &hostileSettlement{}
	f := newFixture(t, func(o *presale.Options) { o.Settlement = hostile })
	hostile.inner = f.ledger
	hostile.sale = f.sale

	f.scenarioA(t)
	f.build(t)

	got, err := f.sale.Claim(context.Background(), userZ)
	require.NoError(t, err)
	assert.Equal(t, uint64(2300), got)

	require.Len(t, hostile.errs, 1)
	assert.ErrorIs(t, hostile.errs[0], presale.ErrAlreadyClaimed)
	assert.Equal(t, uint64(2300), f.ledger.Balance(lpMint, userZ))
}

// flakyExchange fails until enabled.
type flakyExchange struct {
	inner *stub.Exchange
	fail  bool
}

func (e *flakyExchange) AddLiquidity(ctx context.Context, req presale.LiquidityRequest) (*presale.LiquidityResult, error) {
	if e.fail {
		return nil, errors.New("pool program unavailable")
	}
	return e.inner.AddLiquidity(ctx, req)
}

func TestBuildLP_ExchangeFailureRollsBack(t *testing.T) {
	flaky := &flakyExchange{fail: true}
	f := newFixture(t, func(o *presale.Options) { o.Exchange = flaky })
	flaky.inner = f.exchange
	f.scenarioA(t)
	ctx := context.Background()

	f.clock.Set(endTime)
	_, err := f.sale.BuildLP(ctx, owner)
	assert.ErrorIs(t, err, presale.ErrExchangeFailed)
	assert.False(t, f.sale.LPBuilt())
	assert.Equal(t, uint64(0), f.sale.LPTotalAmount())

	events, err := f.journal.GetByKind(ctx, f.sale.Vault(), domain.EventPoolBuilt)
	require.NoError(t, err)
	assert.Empty(t, events)

	flaky.fail = false
	res, err := f.sale.BuildLP(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(3300), res.LPAmount)
}

// failingSettlement rejects transfers of one asset.
type failingSettlement struct {
	*stub.Ledger
	asset string
}

func (s failingSettlement) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	if asset == s.asset {
		return errors.New("account frozen")
	}
	return s.Ledger.Transfer(ctx, asset, from, to, amount)
}

func TestClaim_TransferFailureRollsBack(t *testing.T) {
	f := newFixture(t, func(o *presale.Options) {
		o.Settlement = failingSettlement{Ledger: o.Settlement.(*stub.Ledger), asset: lpMint}
	})
	f.scenarioA(t)
	f.build(t)

	_, err := f.sale.Claim(context.Background(), userX)
	assert.ErrorIs(t, err, presale.ErrTransferFailed)
	assert.False(t, f.sale.GetUserInfo(userX).HasClaimed)
	assert.Equal(t, uint64(0), f.sale.Snapshot().ClaimedTotal)
}

// failingJournal wraps the memory store and rejects appends on demand.
type failingJournal struct {
	*memory.EventStore
	fail bool
}

func (j *failingJournal) Append(ctx context.Context, e *domain.LedgerEvent) error {
	if j.fail {
		return errors.New("disk full")
	}
	return j.EventStore.Append(ctx, e)
}

func TestJournal_WriteAheadFailureRejectsBuy(t *testing.T) {
	journal := &failingJournal{EventStore: memory.NewEventStore()}
	f := newFixture(t, func(o *presale.Options) { o.Journal = journal })
	ctx := context.Background()

	require.NoError(t, f.sale.Buy(ctx, userX, "", 10))
	journal.fail = true
	assert.Error(t, f.sale.Buy(ctx, userY, "", 20))
	assert.Error(t, f.sale.TransferOwnership(ctx, owner, userY))
	assert.Equal(t, uint64(10), f.sale.TotalRaised())
	assert.Equal(t, owner, f.sale.Owner())

	journal.fail = false
	require.NoError(t, f.sale.Buy(ctx, userY, "", 20))

	events, err := journal.GetBySale(ctx, f.sale.Vault())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(2), events[1].Seq)
}

func TestJournal_FailedCommitIsRetried(t *testing.T) {
	journal := &failingJournal{EventStore: memory.NewEventStore()}
	f := newFixture(t, func(o *presale.Options) { o.Journal = journal })
	f.scenarioA(t)
	f.build(t)
	ctx := context.Background()

	journal.fail = true
	got, err := f.sale.Claim(ctx, userX)
	require.NoError(t, err, "claim already paid out")
	assert.Equal(t, uint64(100), got)
	assert.Equal(t, 1, f.sale.JournalBacklog())
	assert.Error(t, f.sale.FlushJournal(ctx))

	journal.fail = false
	_, err = f.sale.Claim(ctx, userY)
	require.NoError(t, err)
	assert.Equal(t, 0, f.sale.JournalBacklog())

	events, err := journal.GetBySale(ctx, f.sale.Vault())
	require.NoError(t, err)
	require.Len(t, events, 6)
	assert.Equal(t, userX, events[4].Account)
	assert.Equal(t, userY, events[5].Account)

	rebuilt, err := replay.NewRunner(journal).Rebuild(ctx, f.sale.Vault(), owner)
	require.NoError(t, err)
	assert.Equal(t, f.sale.Snapshot(), rebuilt)
}

func TestJournal_WriteAheadWaitsForBacklog(t *testing.T) {
	journal := &failingJournal{EventStore: memory.NewEventStore()}
	f := newFixture(t, func(o *presale.Options) { o.Journal = journal })
	f.scenarioA(t)
	f.build(t)
	ctx := context.Background()

	journal.fail = true
	_, err := f.sale.Claim(ctx, userX)
	require.NoError(t, err)

	assert.Error(t, f.sale.TransferOwnership(ctx, owner, userZ))
	assert.Equal(t, owner, f.sale.Owner())
	assert.Equal(t, 1, f.sale.JournalBacklog())

	journal.fail = false
	require.NoError(t, f.sale.FlushJournal(ctx))
	assert.Equal(t, 0, f.sale.JournalBacklog())
	require.NoError(t, f.sale.TransferOwnership(ctx, owner, userZ))

	rebuilt, err := replay.NewRunner(journal).Rebuild(ctx, f.sale.Vault(), owner)
	require.NoError(t, err)
	assert.Equal(t, f.sale.Snapshot(), rebuilt)
	assert.Equal(t, userZ, rebuilt.Owner)
}

func TestJournal_RecordsLifecycle(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)
	f.build(t)
	ctx := context.Background()
	_, err := f.sale.Claim(ctx, userX)
	require.NoError(t, err)

	events, err := f.journal.GetBySale(ctx, f.sale.Vault())
	require.NoError(t, err)
	require.Len(t, events, 5)

	kinds := make([]domain.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
		assert.Equal(t, uint64(i+1), e.Seq)
	}
	assert.Equal(t, []domain.EventKind{
		domain.EventContribution,
		domain.EventContribution,
		domain.EventContribution,
		domain.EventPoolBuilt,
		domain.EventClaim,
	}, kinds)

	assert.Equal(t, userX, events[1].Counterparty)
	assert.Equal(t, uint64(3300), events[3].Amount)
	assert.Equal(t, userX, events[4].Account)
	assert.Equal(t, uint64(100), events[4].Amount)
	assert.Equal(t, uint64(5), f.sale.Snapshot().LastSeq)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.LedgerEvent
}

func (r *recordingPublisher) Publish(_ context.Context, e *domain.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return errors.New("sink offline")
}

func TestPublisherErrorsDoNotFailCalls(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, func(o *presale.Options) { o.Publisher = pub })
	f.scenarioA(t)
	f.build(t)

	_, err := f.sale.Claim(context.Background(), userZ)
	require.NoError(t, err)
	assert.Len(t, pub.events, 5)
	assert.Equal(t, domain.EventClaim, pub.events[4].Kind)
}

// nestingPublisher contributes from another goroutine while the first
// event is being published and waits for that call to return.
type nestingPublisher struct {
	sale   *presale.Presale
	mu     sync.Mutex
	seqs   []uint64
	nested error
	once   sync.Once
}

func (n *nestingPublisher) Publish(ctx context.Context, e *domain.LedgerEvent) error {
	n.once.Do(func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			n.nested = n.sale.Buy(ctx, userY, "", 5)
		}()
		<-done
	})
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seqs = append(n.seqs, e.Seq)
	return nil
}

func TestPublishInSeqOrder(t *testing.T) {
	pub := &nestingPublisher{}
	f := newFixture(t, func(o *presale.Options) { o.Publisher = pub })
	pub.sale = f.sale

	require.NoError(t, f.sale.Buy(context.Background(), userX, "", 10))
	require.NoError(t, pub.nested)
	assert.Equal(t, []uint64{1, 2}, pub.seqs)
}

func TestPublishInSeqOrder_Concurrent(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, func(o *presale.Options) { o.Publisher = pub })
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.sale.Buy(ctx, []string{userX, userY, userZ}[i%3], "", 1))
		}(i)
	}
	wg.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 40)
	for i, e := range pub.events {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	f.scenarioA(t)
	f.build(t)
	ctx := context.Background()
	_, err := f.sale.Claim(ctx, userY)
	require.NoError(t, err)

	snap := f.sale.Snapshot()
	restored, err := presale.Restore(testConfig(), presale.Options{
		Owner:      owner,
		ProgramID:  programID,
		Clock:      f.clock,
		Exchange:   f.exchange,
		Settlement: f.ledger,
	}, snap)
	require.NoError(t, err)
	assert.Equal(t, snap, restored.Snapshot())

	_, err = restored.Claim(ctx, userY)
	assert.ErrorIs(t, err, presale.ErrAlreadyClaimed)
	got, err := restored.Claim(ctx, userX)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got)
}

func TestRestore_RejectsInconsistentSnapshot(t *testing.T) {
	f := newFixture(t)
	opts := presale.Options{Owner: owner, ProgramID: programID, Exchange: f.exchange, Settlement: f.ledger}

	_, err := presale.Restore(testConfig(), opts, &domain.LedgerSnapshot{SaleID: "other"})
	assert.ErrorIs(t, err, presale.ErrInvalidConfig)

	_, err = presale.Restore(testConfig(), opts, &domain.LedgerSnapshot{
		SaleID:       f.sale.Vault(),
		TotalRaised:  10,
		Participants: []*domain.Participant{{Address: userX, Allocation: 9}},
	})
	assert.ErrorIs(t, err, presale.ErrInvalidConfig)
}

func TestConcurrentBuysAndClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		f.ledger.Mint(usdcMint, addr(byte(10+i)), uint64(i+1))
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.sale.Buy(ctx, addr(byte(10+i)), "", uint64(i+1)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, uint64(1275), f.sale.TotalRaised())

	f.build(t)

	var mu sync.Mutex
	var paid uint64
	for i := 0; i < 50; i++ {
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got, err := f.sale.Claim(ctx, addr(byte(10+i)))
				if err != nil {
					assert.ErrorIs(t, err, presale.ErrAlreadyClaimed)
					return
				}
				mu.Lock()
				paid += got
				mu.Unlock()
			}(i)
		}
	}
	wg.Wait()
	assert.Equal(t, uint64(1275), paid)

	events, err := f.journal.GetBySale(ctx, f.sale.Vault())
	require.NoError(t, err)
	assert.Len(t, events, 101)
}
