package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolSim/internal/chain"
	"poolSim/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "poolsim",
		Short:        "AMM pool discovery, pricing and swap simulation",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover factory pools and store populated snapshots",
		RunE:  runDiscover,
	}

	addChainFlags(discoverCmd)
	discoverCmd.Flags().StringSlice("factory", nil, "factories as kind:address[:creation_block[:fee]], kind is v2 or hybrid")
	discoverCmd.Flags().Uint64("default-fee", 300, "v2 pair fee in 1e-5 units")
	discoverCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	discoverCmd.Flags().Uint64("step", 500, "registry entries per batched read")
	discoverCmd.Flags().Int("concurrency", 4, "concurrent page reads")
	discoverCmd.Flags().Bool("use-logs", false, "discover from creation events instead of the registry")
	discoverCmd.Flags().Uint64("log-block-step", 5000, "blocks per log query")
	discoverCmd.Flags().StringSlice("token-blacklist", nil, "token addresses to drop (comma-separated)")
	discoverCmd.Flags().StringSlice("pool-blacklist", nil, "pool addresses to drop (comma-separated)")
	discoverCmd.Flags().Bool("drop-empty", true, "drop pools with both reserves zero")
	discoverCmd.Flags().String("out", "./data/pools.jsonl", "output catalog JSONL path")
	discoverCmd.Flags().String("pg-dsn", "", "Postgres DSN, replaces the JSONL catalog and checkpoint file")
	discoverCmd.Flags().String("checkpoint", "./data/discovery.json", "checkpoint file path")
	discoverCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")

	root.AddCommand(discoverCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Price every catalog pool in both directions",
		RunE:  runPrice,
	}

	addChainFlags(priceCmd)
	priceCmd.Flags().String("catalog", "./data/pools.jsonl", "input catalog JSONL path")
	priceCmd.Flags().String("pg-dsn", "", "Postgres DSN, replaces the JSONL catalog and output")
	priceCmd.Flags().String("out", "./data/prices.jsonl", "output prices JSONL path")
	priceCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	priceCmd.Flags().Bool("sync", true, "refresh reserves before pricing")
	priceCmd.Flags().Uint64("sync-step", 200, "pools per batched reserve read")
	priceCmd.Flags().Int("batch-size", 1000, "records per write")

	root.AddCommand(priceCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate swaps against one catalog pool",
		RunE:  runSimulate,
	}

	addChainFlags(simulateCmd)
	simulateCmd.Flags().String("catalog", "./data/pools.jsonl", "input catalog JSONL path")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN, replaces the JSONL catalog")
	simulateCmd.Flags().String("pool", "", "pool address")
	simulateCmd.Flags().String("token-in", "", "input token, defaults to token0")
	simulateCmd.Flags().StringSlice("amount", nil, "input amounts in whole tokens (comma-separated)")
	simulateCmd.Flags().Bool("raw", false, "treat amounts as raw integer units")
	simulateCmd.Flags().Bool("mutate", false, "apply each swap to the reserves before the next")
	simulateCmd.Flags().Bool("sync", false, "refresh reserves from chain first")
	simulateCmd.Flags().Uint64("block", 0, "block to sync at, 0 means latest")

	root.AddCommand(simulateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().String("multicall", "", "Multicall3 address, defaults to the canonical deployment")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func dialChain(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) (*chain.Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	opts := chain.Options{MaxRetries: cfg.MaxRetries, RetryBackoff: cfg.RetryBackoff}
	if cfg.Multicall != "" {
		if !common.IsHexAddress(cfg.Multicall) {
			return nil, fmt.Errorf("invalid multicall address: %s", cfg.Multicall)
		}
		opts.Multicall = common.HexToAddress(cfg.Multicall)
	}
	client, err := chain.NewClient(ctx, cfg.RPCURL, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
