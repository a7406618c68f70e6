package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"solana-presale/internal/config"
	"solana-presale/internal/domain"
	"solana-presale/internal/exchange/stub"
	"solana-presale/internal/presale"
	"solana-presale/internal/replay"
	"solana-presale/internal/storage"
	chstore "solana-presale/internal/storage/clickhouse"
	"solana-presale/internal/storage/memory"
	"solana-presale/internal/storage/migrations"
	pgstore "solana-presale/internal/storage/postgres"
)

// stores holds the journal and analytics backends.
type stores struct {
	events     storage.EventStore
	timeseries storage.RaiseTimeseriesStore
}

// openStores connects to PostgreSQL (journal) and ClickHouse (analytics),
// applying migrations, or returns in-memory stores.
func openStores(ctx context.Context, cfg config.Storage, logger zerolog.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		logger.Warn().Msg("using in-memory storage, journal is lost on exit")
		return &stores{
			events:     memory.NewEventStore(),
			timeseries: memory.NewRaiseTimeseriesStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	for _, name := range applied {
		logger.Info().Str("migration", name).Msg("applied postgres migration")
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		if err := chConn.Close(); err != nil {
			logger.Warn().Err(err).Msg("close clickhouse")
		}
		pool.Close()
	}

	return &stores{
		events:     pgstore.NewEventStore(pool),
		timeseries: chstore.NewRaiseTimeseriesStore(chConn),
	}, cleanup, nil
}

// saleIdentity derives the vault that identifies the configured sale.
func saleIdentity(cfg config.Config) (domain.SaleConfig, string, error) {
	saleCfg := cfg.SaleConfig()
	vault, err := presale.DeriveVault(saleCfg, cfg.Sale.ProgramID)
	if err != nil {
		return domain.SaleConfig{}, "", fmt.Errorf("derive vault: %w", err)
	}
	return saleCfg, vault, nil
}

// openSale rebuilds the sale from its journal. The in-process ledger stands
// in for the token program: on restart the vault is re-funded with its
// escrowed contributions or its unclaimed pool balance, and contributors'
// wallets are topped up on demand.
func openSale(ctx context.Context, cfg config.Config, journal storage.EventStore, publisher presale.Publisher, logger zerolog.Logger) (*presale.Presale, error) {
	saleCfg, vault, err := saleIdentity(cfg)
	if err != nil {
		return nil, err
	}

	snap, err := replay.NewRunner(journal).Rebuild(ctx, vault, cfg.Sale.Owner)
	if err != nil {
		return nil, fmt.Errorf("replay journal: %w", err)
	}

	ledger := stub.NewLedger()
	if snap.LPBuilt() {
		ledger.Mint(saleCfg.SettlementAsset, vault, snap.LPTotalAmount-snap.ClaimedTotal-snap.SweptTotal)
	} else {
		ledger.Mint(saleCfg.ContributionAsset, vault, snap.TotalRaised)
	}

	sale, err := presale.Restore(saleCfg, presale.Options{
		Owner:      cfg.Sale.Owner,
		ProgramID:  cfg.Sale.ProgramID,
		Exchange:   stub.NewExchange(ledger),
		Settlement: stub.Faucet{Ledger: ledger, Asset: saleCfg.ContributionAsset},
		Journal:    journal,
		Publisher:  publisher,
		Logger:     logger,
	}, snap)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("sale", vault).
		Uint64("last_seq", snap.LastSeq).
		Uint64("total_raised", snap.TotalRaised).
		Str("pool", string(snap.Pool)).
		Msg("sale restored from journal")
	return sale, nil
}
