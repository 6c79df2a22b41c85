// Package quote prices every pool of a catalog at one block.
package quote

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolSim/internal/amm"
	"poolSim/internal/chain"
	"poolSim/internal/model"
	"poolSim/internal/storage"
)

// Config controls a pricing run.
type Config struct {
	// Block pins reserve reads. Zero means the latest block.
	Block     uint64
	Sync      bool
	SyncStep  uint64
	BatchSize int
}

// ChainHead reports the chain head and block timestamps.
type ChainHead interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Summary counts the outcome of a run.
type Summary struct {
	Block  uint64
	Pools  int
	Priced int
	Failed int
}

// Quoter prices pools loaded from a catalog and writes one record per
// pool direction. Failures are isolated to the pool that caused them.
type Quoter struct {
	cfg    Config
	source storage.PoolSource
	reader chain.Reader
	head   ChainHead
	sink   storage.PriceSink
	logger *zap.Logger
}

func NewQuoter(cfg Config, source storage.PoolSource, reader chain.Reader, head ChainHead, sink storage.PriceSink, logger *zap.Logger) *Quoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Quoter{cfg: cfg, source: source, reader: reader, head: head, sink: sink, logger: logger}
}

// Run executes one pricing pass.
func (q *Quoter) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if q.source == nil {
		return summary, fmt.Errorf("pool source is nil")
	}
	if q.sink == nil {
		return summary, fmt.Errorf("price sink is nil")
	}
	if q.cfg.Sync && q.reader == nil {
		return summary, fmt.Errorf("chain reader is required to sync")
	}
	if q.cfg.BatchSize <= 0 {
		q.cfg.BatchSize = 1000
	}
	if q.cfg.SyncStep == 0 {
		q.cfg.SyncStep = 200
	}

	records, err := q.source.LoadPools(ctx)
	if err != nil {
		return summary, fmt.Errorf("load pools: %w", err)
	}

	pools := make([]amm.Pool, 0, len(records))
	for _, record := range records {
		pool, err := amm.FromRecord(record)
		if err != nil {
			summary.Failed++
			q.logger.Warn("decode pool record", zap.String("pool", record.Address), zap.Error(err))
			continue
		}
		pools = append(pools, pool)
	}

	block, ts, err := q.resolveBlock(ctx)
	if err != nil {
		return summary, err
	}
	summary.Block = block

	if q.cfg.Sync {
		pools = q.syncPools(ctx, pools, new(big.Int).SetUint64(block), &summary)
	}
	summary.Pools = len(pools)

	pricedAt := time.Now().UTC().Format(time.RFC3339)
	batch := make([]model.PoolPrice, 0, q.cfg.BatchSize)
	for _, pool := range pools {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		tokens := pool.Tokens()
		r0, r1 := pool.Reserves()
		reserves := []uint64{r0, r1}
		d0, d1 := pool.Decimals()
		decimals := []uint8{d0, d1}
		for i, base := range tokens {
			price, err := pool.CalculatePrice(base)
			if err != nil {
				summary.Failed++
				q.logger.Warn("price pool", zap.String("pool", pool.Address().Hex()), zap.String("base", base.Hex()), zap.Error(err))
				continue
			}
			other := 1 - i
			batch = append(batch, model.PoolPrice{
				Pool:         pool.Address().Hex(),
				Kind:         string(pool.Kind()),
				BlockNumber:  block,
				Timestamp:    ts,
				BaseToken:    base.Hex(),
				QuoteToken:   tokens[other].Hex(),
				Price:        price,
				BaseReserve:  FormatAmount(uint256.NewInt(reserves[i]), decimals[i]),
				QuoteReserve: FormatAmount(uint256.NewInt(reserves[other]), decimals[other]),
				PricedAt:     pricedAt,
			})
			summary.Priced++
		}

		if len(batch) >= q.cfg.BatchSize {
			if err := q.sink.PutPrices(ctx, batch); err != nil {
				return summary, fmt.Errorf("store prices: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := q.sink.PutPrices(ctx, batch); err != nil {
		return summary, fmt.Errorf("store prices: %w", err)
	}

	q.logger.Info("quote complete",
		zap.Uint64("block", block),
		zap.Int("pools", summary.Pools),
		zap.Int("priced", summary.Priced),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (q *Quoter) resolveBlock(ctx context.Context) (uint64, uint64, error) {
	block := q.cfg.Block
	if q.head == nil {
		return block, 0, nil
	}
	if block == 0 {
		latest, err := q.head.LatestBlockNumber(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("get latest block: %w", err)
		}
		block = latest
	}
	ts, err := q.head.BlockTimestamp(ctx, block)
	if err != nil {
		return 0, 0, fmt.Errorf("block timestamp %d: %w", block, err)
	}
	return block, ts, nil
}

// syncPools refreshes reserves chunk by chunk. A failed chunk falls back to
// per-pool reads so one bad pool only drops itself.
func (q *Quoter) syncPools(ctx context.Context, pools []amm.Pool, block *big.Int, summary *Summary) []amm.Pool {
	out := make([]amm.Pool, 0, len(pools))
	for start := 0; start < len(pools); start += int(q.cfg.SyncStep) {
		end := start + int(q.cfg.SyncStep)
		if end > len(pools) {
			end = len(pools)
		}
		chunk := pools[start:end]
		err := amm.SyncReserves(ctx, q.reader, chunk, block)
		if err == nil {
			out = append(out, chunk...)
			continue
		}
		q.logger.Warn("batched sync failed, retrying per pool", zap.Int("pools", len(chunk)), zap.Error(err))
		for _, pool := range chunk {
			if err := pool.Sync(ctx, q.reader, block); err != nil {
				summary.Failed++
				q.logger.Warn("sync pool", zap.String("pool", pool.Address().Hex()), zap.Error(err))
				continue
			}
			out = append(out, pool)
		}
	}
	return out
}
