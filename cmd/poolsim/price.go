package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolSim/internal/chain"
	"poolSim/internal/config"
	"poolSim/internal/quote"
	"poolSim/internal/storage"
	"poolSim/internal/storage/postgres"
)

func runPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPrice(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Sync && cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required to sync reserves")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		reader chain.Reader
		head   quote.ChainHead
	)
	if cfg.RPCURL != "" {
		chainClient, err := dialChain(ctx, cfg.ChainConfig, logger)
		if err != nil {
			return err
		}
		defer chainClient.Close()
		reader, head = chainClient, chainClient
	}

	var (
		source storage.PoolSource
		sink   storage.PriceSink
	)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		source, sink = store, store
	} else {
		source = storage.NewJsonlStorage(cfg.Catalog)
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	quoter := quote.NewQuoter(quote.Config{
		Block:     cfg.Block,
		Sync:      cfg.Sync,
		SyncStep:  cfg.SyncStep,
		BatchSize: cfg.BatchSize,
	}, source, reader, head, sink, logger)

	logger.Info("price start",
		zap.String("catalog", cfg.Catalog),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("sync", cfg.Sync),
		zap.Uint64("block", cfg.Block),
	)

	summary, err := quoter.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "block=%d pools=%d priced=%d failed=%d\n", summary.Block, summary.Pools, summary.Priced, summary.Failed)
	return nil
}
