// Package factory enumerates the pools registered by on-chain factories.
package factory

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"poolSim/internal/amm"
	"poolSim/internal/chain"
)

// DefaultConcurrency bounds in-flight page reads when Options leaves it unset.
const DefaultConcurrency = 4

// Factory discovers and populates the pools of one registry contract.
type Factory interface {
	Address() common.Address
	CreationBlock() uint64

	// PoolCount returns the registry length at block.
	PoolCount(ctx context.Context, reader chain.Reader, block *big.Int) (uint64, error)
	// GetAllPools is GetPoolsFrom starting at index zero.
	GetAllPools(ctx context.Context, reader chain.Reader, toBlock *big.Int, step uint64) ([]amm.Pool, error)
	// GetPoolsFrom returns the pools at registry indices [start, count) in
	// index order. Returned pools carry identity only.
	GetPoolsFrom(ctx context.Context, reader chain.Reader, start uint64, toBlock *big.Int, step uint64) ([]amm.Pool, error)
	// PopulatePoolData fills pools in chunks of step with one batched read per
	// chunk and returns the populated ones in order. Pools whose on-chain
	// values cannot be cached are reported as skipped and left untouched. On
	// error no pool is written.
	PopulatePoolData(ctx context.Context, reader chain.Reader, pools []amm.Pool, block *big.Int, step uint64) ([]amm.Pool, []amm.SkippedPool, error)
	// DiscoverFromLogs decodes creation events in [fromBlock, toBlock].
	DiscoverFromLogs(ctx context.Context, reader chain.Reader, fromBlock, toBlock, blockStep uint64) ([]amm.Pool, error)
}

// Options tunes page fan-out.
type Options struct {
	Concurrency int
}

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}

type pageFunc func(ctx context.Context, page Page) ([]amm.Pool, error)

// fetchPages runs fn for every page of [start, n) with bounded concurrency.
// Results are stored by page index so concatenation keeps registry order.
// The first error cancels the remaining pages and nothing is returned.
func fetchPages(ctx context.Context, start, n, step uint64, limit int, fn pageFunc) ([]amm.Pool, error) {
	pages, err := PagesFrom(start, n, step)
	if err != nil {
		return nil, err
	}

	results := make([][]amm.Pool, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			pools, err := fn(gctx, page)
			if err != nil {
				return err
			}
			results[i] = pools
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]amm.Pool, 0, n-start)
	for _, pools := range results {
		out = append(out, pools...)
	}
	return out, nil
}

// chunk splits pools into consecutive slices of at most step entries.
func chunk[T any](pools []T, step uint64) ([][]T, error) {
	pages, err := Pages(uint64(len(pools)), step)
	if err != nil {
		return nil, err
	}
	out := make([][]T, 0, len(pages))
	for _, p := range pages {
		out = append(out, pools[p.From:p.To])
	}
	return out, nil
}

type fetchFunc[T any] func(ctx context.Context, chunk []*T) ([]*T, []amm.SkippedPool, error)

// populateChunks runs fetch over disjoint chunks with bounded concurrency.
// Fetched state is kept per chunk and copied into pools only once every
// chunk has succeeded.
func populateChunks[T any](ctx context.Context, pools []*T, step uint64, limit int, fetch fetchFunc[T]) ([]*T, []amm.SkippedPool, error) {
	chunks, err := chunk(pools, step)
	if err != nil {
		return nil, nil, err
	}

	fresh := make([][]*T, len(chunks))
	skipped := make([][]amm.SkippedPool, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			values, skips, err := fetch(gctx, c)
			if err != nil {
				return err
			}
			fresh[i], skipped[i] = values, skips
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	kept := make([]*T, 0, len(pools))
	var skips []amm.SkippedPool
	for i, c := range chunks {
		for j, pool := range c {
			if fresh[i][j] == nil {
				continue
			}
			*pool = *fresh[i][j]
			kept = append(kept, pool)
		}
		skips = append(skips, skipped[i]...)
	}
	return kept, skips, nil
}

func asPools[T amm.Pool](pools []T) []amm.Pool {
	out := make([]amm.Pool, len(pools))
	for i, p := range pools {
		out[i] = p
	}
	return out
}

func callCount(ctx context.Context, reader chain.Reader, call chain.Call, block *big.Int) (uint64, error) {
	values, err := reader.Call(ctx, call, block)
	if err != nil {
		return 0, amm.NewChainError(call.Method, call.Target, err)
	}
	if err := chain.ExpectValues(values, 1, call.Method); err != nil {
		return 0, amm.NewChainError(call.Method, call.Target, err)
	}
	n, err := chain.AsUint64(values[0])
	if err != nil {
		return 0, amm.NewChainError(call.Method, call.Target, fmt.Errorf("decode count: %w", err))
	}
	return n, nil
}

func indexArg(i uint64) []interface{} {
	return []interface{}{new(big.Int).SetUint64(i)}
}
