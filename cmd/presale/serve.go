package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"solana-presale/internal/api"
	"solana-presale/internal/events"
	"solana-presale/internal/logging"
	"solana-presale/internal/replay"
	"solana-presale/internal/verification"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the presale HTTP API, websocket feed and metrics",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Graceful shutdown deadline")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := openStores(ctx, cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		return err
	}
	defer cleanup()

	hub := events.NewHub(nil, logger)
	sinks := []events.Sink{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kafka.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka writer")
			}
		}()
		sinks = append(sinks, kafka)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}
	fanout := events.NewFanout(sinks...)

	sale, err := openSale(ctx, cfg, st.events, fanout, logger)
	if err != nil {
		return err
	}

	verifier := verification.NewReplayVerifier(replay.NewRunner(st.events), cfg.Sale.Owner)
	result, err := verifier.VerifyLive(ctx, sale.Snapshot())
	if err != nil {
		return fmt.Errorf("startup verification: %w", err)
	}
	if !result.Match {
		for _, v := range result.Violations {
			logger.Error().Str("invariant", v.Invariant).Str("detail", v.Detail).Msg("ledger invariant violated")
		}
		return fmt.Errorf("startup verification failed: %d violations, %d divergences",
			len(result.Violations), len(result.Divergences))
	}

	server := api.NewServer(api.Options{
		Sale:     sale,
		Journal:  st.events,
		Verifier: verifier,
		WS:       hub,
		Logger:   logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("sale", sale.Vault()).
			Strs("sinks", fanout.Sinks()).
			Msg("presale server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		// Hijacked websocket connections are not tracked by Shutdown.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := sale.FlushJournal(shutdownCtx); err != nil {
			logger.Error().Err(err).Int("backlog", sale.JournalBacklog()).Msg("journal backlog not flushed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
