// Package presale implements the timed fundraising ledger: a phase gate over
// an injected clock, the allocation ledger, the one-shot liquidity build and
// pro-rata claim settlement.
//
// All mutation happens under one mutex. External collaborators (exchange,
// settlement) are always invoked with the mutex released and after the flag
// guarding the operation has been flipped, so a collaborator calling back
// into the Presale is rejected by the ordinary preconditions.
package presale

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-presale/internal/clock"
	"solana-presale/internal/domain"
	"solana-presale/internal/idhash"
	"solana-presale/internal/observability"
	"solana-presale/internal/solana"
	"solana-presale/internal/storage"
)

// Options carries the collaborators injected at construction.
type Options struct {
	Owner      string // initial owner capability
	ProgramID  string // program the vault PDA is derived under
	Clock      clock.Clock
	Exchange   Exchange
	Settlement Settlement
	Journal    storage.EventStore // optional
	Publisher  Publisher          // optional
	Logger     zerolog.Logger
}

// Presale is one deployed sale instance.
type Presale struct {
	cfg        domain.SaleConfig
	vault      string
	clock      clock.Clock
	exchange   Exchange
	settlement Settlement
	journal    storage.EventStore
	publisher  Publisher
	log        zerolog.Logger

	mu           sync.Mutex
	owner        string
	participants map[string]*domain.Participant
	totalRaised  uint64
	pool         domain.PoolState
	lpTotal      uint64
	distributed  uint64
	claimedTotal uint64
	sweptTotal   uint64
	seq          uint64

	// outbox holds committed events the journal has not accepted yet, in
	// seq order. They are appended before any later event.
	outbox []*domain.LedgerEvent
	// pubq holds committed events awaiting the publisher, in seq order.
	pubq       []*domain.LedgerEvent
	publishing bool
}

// ValidateConfig checks identities, the window and the distribution share.
func ValidateConfig(cfg domain.SaleConfig) error {
	for name, addr := range map[string]string{
		"contribution asset":  cfg.ContributionAsset,
		"settlement asset":    cfg.SettlementAsset,
		"exchange":            cfg.Exchange,
		"distribution target": cfg.DistributionTarget,
	} {
		if err := solana.ValidateAddress(addr); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
	}
	if cfg.StartTime >= cfg.EndTime {
		return fmt.Errorf("%w: start %d must be before end %d", ErrInvalidConfig, cfg.StartTime, cfg.EndTime)
	}
	if cfg.DistributionBps > domain.MaxBps {
		return fmt.Errorf("%w: distribution bps %d exceeds %d", ErrInvalidConfig, cfg.DistributionBps, domain.MaxBps)
	}
	return nil
}

// DeriveVault returns the escrow PDA for cfg under programID.
func DeriveVault(cfg domain.SaleConfig, programID string) (string, error) {
	seeds, err := solana.VaultSeeds(cfg.ContributionAsset, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return "", err
	}
	vault, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return "", fmt.Errorf("derive vault: %w", err)
	}
	return vault, nil
}

// New creates a sale. The configuration is immutable afterwards.
func New(cfg domain.SaleConfig, opts Options) (*Presale, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if err := solana.ValidateAddress(opts.Owner); err != nil {
		return nil, fmt.Errorf("%w: owner: %w", ErrInvalidConfig, err)
	}
	if opts.Exchange == nil || opts.Settlement == nil {
		return nil, fmt.Errorf("%w: exchange and settlement are required", ErrInvalidConfig)
	}

	vault, err := DeriveVault(cfg, opts.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Presale{
		cfg:          cfg,
		vault:        vault,
		clock:        clk,
		exchange:     opts.Exchange,
		settlement:   opts.Settlement,
		journal:      opts.Journal,
		publisher:    opts.Publisher,
		log:          opts.Logger.With().Str("component", "presale").Str("sale", vault).Logger(),
		owner:        opts.Owner,
		participants: make(map[string]*domain.Participant),
		pool:         domain.PoolPending,
	}, nil
}

// Restore creates a sale and loads a previously captured ledger state.
// The snapshot must belong to the same vault and must not be mid-build.
func Restore(cfg domain.SaleConfig, opts Options, snap *domain.LedgerSnapshot) (*Presale, error) {
	p, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return p, nil
	}
	if snap.SaleID != p.vault {
		return nil, fmt.Errorf("%w: snapshot sale %s does not match vault %s", ErrInvalidConfig, snap.SaleID, p.vault)
	}
	if snap.Pool == domain.PoolBuilding {
		return nil, fmt.Errorf("%w: snapshot captured mid-build", ErrInvalidConfig)
	}

	var sum uint64
	for _, part := range snap.Participants {
		partCopy := *part
		p.participants[part.Address] = &partCopy
		if sum, err = addChecked(sum, part.Allocation); err != nil {
			return nil, err
		}
	}
	if sum != snap.TotalRaised {
		return nil, fmt.Errorf("%w: snapshot allocations %d != total raised %d", ErrInvalidConfig, sum, snap.TotalRaised)
	}

	if snap.Owner != "" {
		p.owner = snap.Owner
	}
	p.totalRaised = snap.TotalRaised
	p.pool = snap.Pool
	if p.pool == "" {
		p.pool = domain.PoolPending
	}
	p.lpTotal = snap.LPTotalAmount
	p.distributed = snap.Distributed
	p.claimedTotal = snap.ClaimedTotal
	p.sweptTotal = snap.SweptTotal
	p.seq = snap.LastSeq
	return p, nil
}

// Config returns the immutable sale configuration.
func (p *Presale) Config() domain.SaleConfig {
	return p.cfg
}

// Vault returns the escrow address, which is also the sale ID.
func (p *Presale) Vault() string {
	return p.vault
}

// Owner returns the current owner identity.
func (p *Presale) Owner() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner
}

// TotalRaised returns the sum of all allocations.
func (p *Presale) TotalRaised() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalRaised
}

// LPBuilt reports whether the pool is built and claims are open.
func (p *Presale) LPBuilt() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool == domain.PoolBuilt
}

// LPTotalAmount returns the frozen pool size (0 before build).
func (p *Presale) LPTotalAmount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lpTotal
}

// Snapshot returns a deep copy of the ledger, participants ordered by address.
func (p *Presale) Snapshot() *domain.LedgerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	parts := make([]*domain.Participant, 0, len(p.participants))
	for _, part := range p.participants {
		partCopy := *part
		parts = append(parts, &partCopy)
	}
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].Address < parts[j].Address
	})

	return &domain.LedgerSnapshot{
		SaleID:        p.vault,
		Owner:         p.owner,
		TotalRaised:   p.totalRaised,
		Pool:          p.pool,
		LPTotalAmount: p.lpTotal,
		Distributed:   p.distributed,
		ClaimedTotal:  p.claimedTotal,
		SweptTotal:    p.sweptTotal,
		LastSeq:       p.seq,
		Participants:  parts,
	}
}

// newEventLocked builds the next event. Caller holds p.mu.
func (p *Presale) newEventLocked(kind domain.EventKind, account, counterparty string, amount, secondary uint64) *domain.LedgerEvent {
	seq := p.seq + 1
	return &domain.LedgerEvent{
		EventID:      idhash.ComputeEventID(p.vault, seq, kind, account, amount),
		SaleID:       p.vault,
		Seq:          seq,
		Kind:         kind,
		Account:      account,
		Counterparty: counterparty,
		Amount:       amount,
		Secondary:    secondary,
		Timestamp:    p.clock.Now(),
	}
}

// writeAheadLocked journals e before the ledger is mutated. Any outbox
// backlog is flushed first. A failure rejects the call. Caller holds p.mu.
func (p *Presale) writeAheadLocked(ctx context.Context, e *domain.LedgerEvent) error {
	if p.journal != nil {
		if err := p.flushLocked(ctx); err != nil {
			return err
		}
		if err := p.journal.Append(ctx, e); err != nil {
			return fmt.Errorf("journal %s: %w", e.Kind, err)
		}
	}
	p.seq = e.Seq
	p.enqueueLocked(e)
	return nil
}

// commitLocked records e after an irreversible external effect. The event
// goes through the outbox; a journal failure is logged and counted and the
// event stays queued until a later commit or FlushJournal succeeds.
// Caller holds p.mu.
func (p *Presale) commitLocked(ctx context.Context, e *domain.LedgerEvent) {
	p.seq = e.Seq
	p.enqueueLocked(e)
	if p.journal == nil {
		return
	}
	p.outbox = append(p.outbox, e)
	if err := p.flushLocked(ctx); err != nil {
		observability.RecordJournalError()
		p.log.Error().Err(err).
			Str("kind", e.Kind.String()).
			Uint64("seq", e.Seq).
			Int("backlog", len(p.outbox)).
			Msg("journal append failed after irreversible effect, event kept for retry")
	}
}

// flushLocked appends outbox events in order and stops at the first
// failure. A duplicate key means an earlier attempt already landed.
// Caller holds p.mu.
func (p *Presale) flushLocked(ctx context.Context) error {
	for len(p.outbox) > 0 {
		e := p.outbox[0]
		err := p.journal.Append(ctx, e)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("journal backlog %s seq %d: %w", e.Kind, e.Seq, err)
		}
		p.outbox[0] = nil
		p.outbox = p.outbox[1:]
	}
	p.outbox = nil
	return nil
}

// FlushJournal retries the journal outbox.
func (p *Presale) FlushJournal(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.journal == nil {
		return nil
	}
	return p.flushLocked(ctx)
}

// JournalBacklog returns the number of committed events not yet journaled.
func (p *Presale) JournalBacklog() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.outbox)
}

func (p *Presale) enqueueLocked(e *domain.LedgerEvent) {
	if p.publisher != nil {
		p.pubq = append(p.pubq, e)
	}
}

// drainPublish hands queued events to the publisher in seq order. One
// goroutine drains at a time; other callers, including a publisher that
// calls back into the sale, leave their events to the active drainer.
// Never called under p.mu.
func (p *Presale) drainPublish(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	p.mu.Lock()
	if p.publishing {
		p.mu.Unlock()
		return
	}
	p.publishing = true
	for len(p.pubq) > 0 {
		batch := p.pubq
		p.pubq = nil
		p.mu.Unlock()
		for _, e := range batch {
			if err := p.publisher.Publish(ctx, e); err != nil {
				p.log.Warn().Err(err).Str("kind", e.Kind.String()).Uint64("seq", e.Seq).Msg("publish event failed")
			}
		}
		p.mu.Lock()
	}
	p.publishing = false
	p.mu.Unlock()
}

// reject records a failed call and returns err unchanged.
func (p *Presale) reject(op string, err error) error {
	reason := Reason(err)
	observability.RecordRejected(op, reason)
	p.log.Debug().Str("op", op).Str("reason", reason).Err(err).Msg("call rejected")
	return err
}

// timed runs an external call and records its latency.
func timed(collaborator string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.RecordCollaboratorCall(collaborator, time.Since(start).Seconds(), err)
	return err
}
