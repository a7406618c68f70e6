package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"solana-presale/internal/replay"
	"solana-presale/internal/verification"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the ledger from the journal and print it as JSON",
	RunE:  runReplay,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay the journal and check ledger invariants",
	Long: `Replay the journal and check ledger invariants.

A running server compares its live ledger with the journal at GET /verify.`,
	RunE:  runVerify,
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, cleanup, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	_, vault, err := saleIdentity(cfg)
	if err != nil {
		return err
	}
	snap, err := replay.NewRunner(st.events).Rebuild(ctx, vault, cfg.Sale.Owner)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, cleanup, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	_, vault, err := saleIdentity(cfg)
	if err != nil {
		return err
	}

	verifier := verification.NewReplayVerifier(replay.NewRunner(st.events), cfg.Sale.Owner)
	result, _, err := verifier.VerifyJournal(ctx, vault)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}

	fmt.Printf("sale %s: %d events\n", result.SaleID, result.LastSeq)
	for _, v := range result.Violations {
		fmt.Printf("  violation %s: %s\n", v.Invariant, v.Detail)
	}
	if !result.Match {
		return fmt.Errorf("verification failed: %d violations", len(result.Violations))
	}
	fmt.Println("OK")
	return nil
}
