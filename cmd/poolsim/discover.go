package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolSim/internal/config"
	"poolSim/internal/discovery"
	"poolSim/internal/factory"
	"poolSim/internal/storage"
	"poolSim/internal/storage/postgres"
)

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDiscover(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	specs, err := config.ParseFactories(cfg.Factories, cfg.DefaultFee)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("factory list is required")
	}
	tokenBlacklist, err := config.ParseAddresses(cfg.TokenBlacklist)
	if err != nil {
		return err
	}
	poolBlacklist, err := config.ParseAddresses(cfg.PoolBlacklist)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := dialChain(ctx, cfg.ChainConfig, logger)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	opts := factory.Options{Concurrency: cfg.Concurrency}
	factories := make([]factory.Factory, 0, len(specs))
	for _, spec := range specs {
		switch spec.Kind {
		case config.FactoryConstantProduct:
			factories = append(factories, factory.NewConstantProductFactory(spec.Address, spec.CreationBlock, spec.Fee, opts))
		case config.FactoryHybrid:
			factories = append(factories, factory.NewHybridFactory(spec.Address, spec.CreationBlock, opts))
		}
	}

	var (
		sink  storage.PoolSink
		state discovery.StateStore
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
		sink = store
		if cfg.CheckpointEnabled {
			state = store
		}
	} else {
		sink = storage.NewJsonlStorage(cfg.Out)
		if cfg.CheckpointEnabled {
			state = discovery.NewFileStateStore(cfg.Checkpoint)
		}
	}

	runner := discovery.NewRunner(discovery.RunConfig{
		Block:          cfg.Block,
		Step:           cfg.Step,
		UseLogs:        cfg.UseLogs,
		LogBlockStep:   cfg.LogBlockStep,
		TokenBlacklist: tokenBlacklist,
		PoolBlacklist:  poolBlacklist,
		DropEmpty:      cfg.DropEmpty,
	}, chainClient, chainClient, factories, sink, state, logger)

	logger.Info("discover start",
		zap.String("rpc", cfg.RPCURL),
		zap.Int("factories", len(factories)),
		zap.Uint64("block", cfg.Block),
		zap.Uint64("step", cfg.Step),
		zap.Bool("use_logs", cfg.UseLogs),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	results, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s discovered=%d skipped=%d stored=%d progress=%d\n", res.Factory.Hex(), res.Discovered, res.Skipped, res.Stored, res.Progress)
	}
	return nil
}
