// Package discovery incrementally discovers, populates and stores the pools
// of a set of factories.
package discovery

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolSim/internal/amm"
	"poolSim/internal/chain"
	"poolSim/internal/factory"
	"poolSim/internal/filter"
	"poolSim/internal/model"
	"poolSim/internal/storage"
)

// RunConfig holds runtime settings for discovery.
type RunConfig struct {
	// Block pins every read. Zero means the latest block.
	Block          uint64
	Step           uint64
	UseLogs        bool
	LogBlockStep   uint64
	TokenBlacklist []common.Address
	PoolBlacklist  []common.Address
	DropEmpty      bool
}

// BlockSource reports the chain head.
type BlockSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Result summarises one factory's discovery pass.
type Result struct {
	Factory    common.Address
	Discovered int
	// Skipped counts pools whose on-chain state cannot be cached.
	Skipped  int
	Stored   int
	Progress uint64
}

// Runner discovers pools and writes populated snapshots to a sink.
type Runner struct {
	cfg       RunConfig
	reader    chain.Reader
	head      BlockSource
	factories []factory.Factory
	sink      storage.PoolSink
	state     StateStore
	logger    *zap.Logger
}

// NewRunner builds a Runner with its dependencies. A nil state store
// disables checkpointing.
func NewRunner(
	cfg RunConfig,
	reader chain.Reader,
	head BlockSource,
	factories []factory.Factory,
	sink storage.PoolSink,
	state StateStore,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if state == nil {
		state = NopStateStore{}
	}
	return &Runner{
		cfg:       cfg,
		reader:    reader,
		head:      head,
		factories: factories,
		sink:      sink,
		state:     state,
		logger:    logger,
	}
}

// Run executes one discovery pass over every factory.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	if r.reader == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if r.sink == nil {
		return nil, fmt.Errorf("pool sink is nil")
	}
	if r.cfg.Step == 0 {
		return nil, fmt.Errorf("step must be greater than zero")
	}
	if len(r.factories) == 0 {
		return nil, fmt.Errorf("at least one factory is required")
	}

	block := r.cfg.Block
	if block == 0 {
		if r.head == nil {
			return nil, fmt.Errorf("block is required without a head source")
		}
		latest, err := r.head.LatestBlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("get latest block: %w", err)
		}
		block = latest
	}

	results := make([]Result, 0, len(r.factories))
	for _, f := range r.factories {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		res, err := r.runFactory(ctx, f, block)
		if err != nil {
			return results, fmt.Errorf("factory %s: %w", f.Address().Hex(), err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runFactory(ctx context.Context, f factory.Factory, block uint64) (Result, error) {
	res := Result{Factory: f.Address()}
	blockTag := new(big.Int).SetUint64(block)

	var (
		pools    []amm.Pool
		progress uint64
		key      string
	)
	if r.cfg.UseLogs {
		key = "logs:" + f.Address().Hex()
		last, ok, err := r.state.LoadState(ctx, key)
		if err != nil {
			return res, fmt.Errorf("load state: %w", err)
		}
		from := f.CreationBlock()
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.String("factory", f.Address().Hex()), zap.Uint64("last_block", last))
		}
		if from > block {
			r.logger.Info("nothing to discover", zap.String("factory", f.Address().Hex()), zap.Uint64("from", from), zap.Uint64("to", block))
			res.Progress = last
			return res, nil
		}
		step := r.cfg.LogBlockStep
		if step == 0 {
			step = r.cfg.Step
		}
		pools, err = f.DiscoverFromLogs(ctx, r.reader, from, block, step)
		if err != nil {
			return res, err
		}
		progress = block
	} else {
		key = "pools:" + f.Address().Hex()
		start, ok, err := r.state.LoadState(ctx, key)
		if err != nil {
			return res, fmt.Errorf("load state: %w", err)
		}
		if ok {
			r.logger.Info("resume from checkpoint", zap.String("factory", f.Address().Hex()), zap.Uint64("next_index", start))
		}
		pools, err = f.GetPoolsFrom(ctx, r.reader, start, blockTag, r.cfg.Step)
		if err != nil {
			return res, err
		}
		progress = start + uint64(len(pools))
	}
	res.Discovered = len(pools)
	res.Progress = progress

	pools = filter.BlacklistedPools(pools, r.cfg.PoolBlacklist)
	if len(pools) > 0 {
		populated, skipped, err := f.PopulatePoolData(ctx, r.reader, pools, blockTag, r.cfg.Step)
		if err != nil {
			return res, fmt.Errorf("populate pools: %w", err)
		}
		for _, skip := range skipped {
			r.logger.Warn("skip pool", zap.String("factory", f.Address().Hex()), zap.String("pool", skip.Address.Hex()), zap.Error(skip.Err))
		}
		res.Skipped = len(skipped)
		pools = populated
	}
	pools = filter.BlacklistedTokens(pools, r.cfg.TokenBlacklist)
	pools = filter.EmptyPools(pools)
	if r.cfg.DropEmpty {
		pools = filter.EmptyReserves(pools)
	}

	records := make([]model.PoolRecord, 0, len(pools))
	for _, pool := range pools {
		record := amm.ToRecord(pool)
		record.Factory = f.Address().Hex()
		record.Block = block
		records = append(records, record)
	}
	if err := r.sink.PutPools(ctx, records); err != nil {
		return res, fmt.Errorf("store pools: %w", err)
	}
	res.Stored = len(records)

	if err := r.state.SaveState(ctx, key, progress); err != nil {
		return res, fmt.Errorf("save state: %w", err)
	}

	r.logger.Info("factory complete",
		zap.String("factory", f.Address().Hex()),
		zap.Int("discovered", res.Discovered),
		zap.Int("skipped", res.Skipped),
		zap.Int("stored", res.Stored),
		zap.Uint64("progress", progress),
		zap.Uint64("block", block),
	)
	return res, nil
}
