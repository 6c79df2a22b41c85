package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"poolSim/internal/amm"
	"poolSim/internal/config"
	"poolSim/internal/quote"
	"poolSim/internal/storage"
	"poolSim/internal/storage/postgres"
)

type swapResult struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Reserve0  uint64 `json:"reserve0"`
	Reserve1  uint64 `json:"reserve1"`
	Error     string `json:"error,omitempty"`
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address: %q", cfg.Pool)
	}
	if len(cfg.Amounts) == 0 {
		return fmt.Errorf("at least one amount is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source storage.PoolSource
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		source = store
	} else {
		source = storage.NewJsonlStorage(cfg.Catalog)
	}

	pool, err := findPool(ctx, source, common.HexToAddress(cfg.Pool))
	if err != nil {
		return err
	}

	if cfg.Sync {
		chainClient, err := dialChain(ctx, cfg.ChainConfig, logger)
		if err != nil {
			return err
		}
		defer chainClient.Close()

		var block *big.Int
		if cfg.Block > 0 {
			block = new(big.Int).SetUint64(cfg.Block)
		}
		if err := pool.Sync(ctx, chainClient, block); err != nil {
			return fmt.Errorf("sync pool: %w", err)
		}
	}

	tokenIn := pool.Tokens()[0]
	if cfg.TokenIn != "" {
		if !common.IsHexAddress(cfg.TokenIn) {
			return fmt.Errorf("invalid token address: %q", cfg.TokenIn)
		}
		tokenIn = common.HexToAddress(cfg.TokenIn)
	}

	results, err := simulateSwaps(pool, tokenIn, cfg.Amounts, cfg.Raw, cfg.Mutate)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func findPool(ctx context.Context, source storage.PoolSource, address common.Address) (amm.Pool, error) {
	records, err := source.LoadPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pools: %w", err)
	}
	for _, record := range records {
		if !strings.EqualFold(record.Address, address.Hex()) {
			continue
		}
		return amm.FromRecord(record)
	}
	return nil, fmt.Errorf("pool %s not found in catalog", address.Hex())
}

// simulateSwaps quotes every amount in order. A failed swap is reported in
// its result and does not stop the sequence.
func simulateSwaps(pool amm.Pool, tokenIn common.Address, amounts []string, raw, mutate bool) ([]swapResult, error) {
	tokens := pool.Tokens()
	if tokenIn != tokens[0] && tokenIn != tokens[1] {
		return nil, fmt.Errorf("token %s is not in pool %s", tokenIn.Hex(), pool.Address().Hex())
	}
	tokenOut := pool.GetTokenOut(tokenIn)
	d0, d1 := pool.Decimals()
	decIn, decOut := d0, d1
	if tokenIn == tokens[1] {
		decIn, decOut = d1, d0
	}

	results := make([]swapResult, 0, len(amounts))
	for _, text := range amounts {
		amountIn, err := parseSwapAmount(text, decIn, raw)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", text, err)
		}

		var out *uint256.Int
		if mutate {
			out, err = pool.SimulateSwapMut(tokenIn, amountIn)
		} else {
			out, err = pool.SimulateSwap(tokenIn, amountIn)
		}

		r0, r1 := pool.Reserves()
		res := swapResult{
			TokenIn:  tokenIn.Hex(),
			TokenOut: tokenOut.Hex(),
			Reserve0: r0,
			Reserve1: r1,
		}
		if raw {
			res.AmountIn = amountIn.ToBig().String()
		} else {
			res.AmountIn = quote.FormatAmount(amountIn, decIn)
		}
		if err != nil {
			res.Error = err.Error()
		} else if raw {
			res.AmountOut = out.ToBig().String()
		} else {
			res.AmountOut = quote.FormatAmount(out, decOut)
		}
		results = append(results, res)
	}
	return results, nil
}

func parseSwapAmount(text string, decimals uint8, raw bool) (*uint256.Int, error) {
	if !raw {
		return quote.ParseAmount(text, decimals)
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(text), 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid raw amount")
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("raw amount does not fit in 256 bits")
	}
	return v, nil
}
