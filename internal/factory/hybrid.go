package factory

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolSim/internal/amm"
	"poolSim/internal/chain"
)

// HybridFactory enumerates the pools held by a hybrid AMM singleton. The
// singleton is both the registry and the pools' call target.
type HybridFactory struct {
	address       common.Address
	creationBlock uint64
	opts          Options
}

var _ Factory = (*HybridFactory)(nil)

func NewHybridFactory(address common.Address, creationBlock uint64, opts Options) *HybridFactory {
	return &HybridFactory{address: address, creationBlock: creationBlock, opts: opts}
}

func (f *HybridFactory) Address() common.Address { return f.address }

func (f *HybridFactory) CreationBlock() uint64 { return f.creationBlock }

func (f *HybridFactory) PoolCount(ctx context.Context, reader chain.Reader, block *big.Int) (uint64, error) {
	registryABI, err := HybridAMMABI()
	if err != nil {
		return 0, fmt.Errorf("parse amm abi: %w", err)
	}
	return callCount(ctx, reader, chain.Call{Target: f.address, ABI: registryABI, Method: "totalPools"}, block)
}

func (f *HybridFactory) GetAllPools(ctx context.Context, reader chain.Reader, toBlock *big.Int, step uint64) ([]amm.Pool, error) {
	return f.GetPoolsFrom(ctx, reader, 0, toBlock, step)
}

func (f *HybridFactory) GetPoolsFrom(ctx context.Context, reader chain.Reader, start uint64, toBlock *big.Int, step uint64) ([]amm.Pool, error) {
	registryABI, err := HybridAMMABI()
	if err != nil {
		return nil, fmt.Errorf("parse amm abi: %w", err)
	}
	n, err := f.PoolCount(ctx, reader, toBlock)
	if err != nil {
		return nil, err
	}

	return fetchPages(ctx, start, n, step, f.opts.concurrency(), func(ctx context.Context, page Page) ([]amm.Pool, error) {
		op := fmt.Sprintf("poolIdAt [%d,%d)", page.From, page.To)
		calls := make([]chain.Call, 0, page.To-page.From)
		for i := page.From; i < page.To; i++ {
			calls = append(calls, chain.Call{Target: f.address, ABI: registryABI, Method: "poolIdAt", Args: indexArg(i)})
		}
		results, err := reader.BatchCall(ctx, calls, toBlock)
		if err != nil {
			return nil, amm.NewChainError(op, f.address, err)
		}
		if len(results) != len(calls) {
			return nil, amm.NewChainError(op, f.address, fmt.Errorf("got %d results for %d calls", len(results), len(calls)))
		}

		pools := make([]amm.Pool, 0, len(results))
		for i, values := range results {
			id, err := decodePoolID(values)
			if err != nil {
				return nil, amm.NewChainError(op, f.address, fmt.Errorf("pool %d: %w", page.From+uint64(i), err))
			}
			pools = append(pools, amm.NewHybrid(f.address, id, 0, 0, 0, 0, amm.Fees{}))
		}
		return pools, nil
	})
}

func (f *HybridFactory) PopulatePoolData(ctx context.Context, reader chain.Reader, pools []amm.Pool, block *big.Int, step uint64) ([]amm.Pool, []amm.SkippedPool, error) {
	hybrids := make([]*amm.Hybrid, 0, len(pools))
	for _, pool := range pools {
		h, ok := pool.(*amm.Hybrid)
		if !ok || h.AMM != f.address {
			return nil, nil, fmt.Errorf("factory %s cannot populate %s pool %s", f.address.Hex(), pool.Kind(), pool.Address().Hex())
		}
		hybrids = append(hybrids, h)
	}
	kept, skipped, err := populateChunks(ctx, hybrids, step, f.opts.concurrency(), func(ctx context.Context, chunk []*amm.Hybrid) ([]*amm.Hybrid, []amm.SkippedPool, error) {
		return amm.FetchHybrids(ctx, reader, chunk, block)
	})
	if err != nil {
		return nil, nil, err
	}
	return asPools(kept), skipped, nil
}

func (f *HybridFactory) DiscoverFromLogs(ctx context.Context, reader chain.Reader, fromBlock, toBlock, blockStep uint64) ([]amm.Pool, error) {
	registryABI, err := HybridAMMABI()
	if err != nil {
		return nil, fmt.Errorf("parse amm abi: %w", err)
	}
	event := registryABI.Events["PoolCreated"]

	ranges, err := SplitRange(fromBlock, toBlock, blockStep)
	if err != nil {
		return nil, err
	}
	var pools []amm.Pool
	for _, r := range ranges {
		logs, err := reader.GetLogs(ctx, f.address, event, r.From, r.To)
		if err != nil {
			return nil, amm.NewChainError(fmt.Sprintf("PoolCreated logs [%d,%d]", r.From, r.To), f.address, err)
		}
		for _, lg := range logs {
			id, err := decodePoolCreated(lg)
			if err != nil {
				return nil, amm.NewChainError("decode PoolCreated", f.address, err)
			}
			pools = append(pools, amm.NewHybrid(f.address, id, 0, 0, 0, 0, amm.Fees{}))
		}
	}
	return pools, nil
}

func decodePoolID(values []interface{}) (amm.PoolID, error) {
	var id amm.PoolID
	if err := chain.ExpectValues(values, 3, "poolIdAt"); err != nil {
		return id, err
	}
	var err error
	if id.Token0, err = chain.AsAddress(values[0]); err != nil {
		return id, fmt.Errorf("token0: %w", err)
	}
	if id.Token1, err = chain.AsAddress(values[1]); err != nil {
		return id, fmt.Errorf("token1: %w", err)
	}
	if id.Stable, err = chain.AsBool(values[2]); err != nil {
		return id, fmt.Errorf("stable: %w", err)
	}
	return id, nil
}

func decodePoolCreated(lg types.Log) (amm.PoolID, error) {
	registryABI, err := HybridAMMABI()
	if err != nil {
		return amm.PoolID{}, err
	}
	if len(lg.Topics) < 3 {
		return amm.PoolID{}, fmt.Errorf("log %s:%d has %d topics", lg.TxHash.Hex(), lg.Index, len(lg.Topics))
	}
	values, err := registryABI.Unpack("PoolCreated", lg.Data)
	if err != nil {
		return amm.PoolID{}, fmt.Errorf("unpack PoolCreated: %w", err)
	}
	if err := chain.ExpectValues(values, 1, "PoolCreated"); err != nil {
		return amm.PoolID{}, err
	}
	stable, err := chain.AsBool(values[0])
	if err != nil {
		return amm.PoolID{}, err
	}
	return amm.PoolID{
		Token0: common.BytesToAddress(lg.Topics[1].Bytes()),
		Token1: common.BytesToAddress(lg.Topics[2].Bytes()),
		Stable: stable,
	}, nil
}
