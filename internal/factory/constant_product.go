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

// DefaultPairFee is the Uniswap V2 fee of 0.30% in 1e-5 units.
const DefaultPairFee = 300

// ConstantProductFactory is a Uniswap V2 style pair factory.
type ConstantProductFactory struct {
	address       common.Address
	creationBlock uint64
	fee           uint64
	opts          Options
}

var _ Factory = (*ConstantProductFactory)(nil)

// NewConstantProductFactory returns a factory whose pairs all charge fee.
func NewConstantProductFactory(address common.Address, creationBlock, fee uint64, opts Options) *ConstantProductFactory {
	return &ConstantProductFactory{address: address, creationBlock: creationBlock, fee: fee, opts: opts}
}

func (f *ConstantProductFactory) Address() common.Address { return f.address }

func (f *ConstantProductFactory) CreationBlock() uint64 { return f.creationBlock }

func (f *ConstantProductFactory) PoolCount(ctx context.Context, reader chain.Reader, block *big.Int) (uint64, error) {
	factoryABI, err := PairFactoryABI()
	if err != nil {
		return 0, fmt.Errorf("parse factory abi: %w", err)
	}
	return callCount(ctx, reader, chain.Call{Target: f.address, ABI: factoryABI, Method: "allPairsLength"}, block)
}

func (f *ConstantProductFactory) GetAllPools(ctx context.Context, reader chain.Reader, toBlock *big.Int, step uint64) ([]amm.Pool, error) {
	return f.GetPoolsFrom(ctx, reader, 0, toBlock, step)
}

func (f *ConstantProductFactory) GetPoolsFrom(ctx context.Context, reader chain.Reader, start uint64, toBlock *big.Int, step uint64) ([]amm.Pool, error) {
	factoryABI, err := PairFactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	n, err := f.PoolCount(ctx, reader, toBlock)
	if err != nil {
		return nil, err
	}

	return fetchPages(ctx, start, n, step, f.opts.concurrency(), func(ctx context.Context, page Page) ([]amm.Pool, error) {
		op := fmt.Sprintf("allPairs [%d,%d)", page.From, page.To)
		calls := make([]chain.Call, 0, page.To-page.From)
		for i := page.From; i < page.To; i++ {
			calls = append(calls, chain.Call{Target: f.address, ABI: factoryABI, Method: "allPairs", Args: indexArg(i)})
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
			if err := chain.ExpectValues(values, 1, "allPairs"); err != nil {
				return nil, amm.NewChainError(op, f.address, err)
			}
			pair, err := chain.AsAddress(values[0])
			if err != nil {
				return nil, amm.NewChainError(op, f.address, fmt.Errorf("pair %d: %w", page.From+uint64(i), err))
			}
			pools = append(pools, &amm.ConstantProduct{PoolAddress: pair, Fee: f.fee})
		}
		return pools, nil
	})
}

func (f *ConstantProductFactory) PopulatePoolData(ctx context.Context, reader chain.Reader, pools []amm.Pool, block *big.Int, step uint64) ([]amm.Pool, []amm.SkippedPool, error) {
	pairs := make([]*amm.ConstantProduct, 0, len(pools))
	for _, pool := range pools {
		pair, ok := pool.(*amm.ConstantProduct)
		if !ok {
			return nil, nil, fmt.Errorf("factory %s cannot populate %s pool %s", f.address.Hex(), pool.Kind(), pool.Address().Hex())
		}
		pairs = append(pairs, pair)
	}
	kept, skipped, err := populateChunks(ctx, pairs, step, f.opts.concurrency(), func(ctx context.Context, chunk []*amm.ConstantProduct) ([]*amm.ConstantProduct, []amm.SkippedPool, error) {
		return amm.FetchConstantProducts(ctx, reader, chunk, block)
	})
	if err != nil {
		return nil, nil, err
	}
	return asPools(kept), skipped, nil
}

func (f *ConstantProductFactory) DiscoverFromLogs(ctx context.Context, reader chain.Reader, fromBlock, toBlock, blockStep uint64) ([]amm.Pool, error) {
	factoryABI, err := PairFactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	event := factoryABI.Events["PairCreated"]

	ranges, err := SplitRange(fromBlock, toBlock, blockStep)
	if err != nil {
		return nil, err
	}
	var pools []amm.Pool
	for _, r := range ranges {
		logs, err := reader.GetLogs(ctx, f.address, event, r.From, r.To)
		if err != nil {
			return nil, amm.NewChainError(fmt.Sprintf("PairCreated logs [%d,%d]", r.From, r.To), f.address, err)
		}
		for _, lg := range logs {
			pool, err := f.decodePairCreated(lg)
			if err != nil {
				return nil, amm.NewChainError("decode PairCreated", f.address, err)
			}
			pools = append(pools, pool)
		}
	}
	return pools, nil
}

func (f *ConstantProductFactory) decodePairCreated(lg types.Log) (*amm.ConstantProduct, error) {
	factoryABI, err := PairFactoryABI()
	if err != nil {
		return nil, err
	}
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("log %s:%d has %d topics", lg.TxHash.Hex(), lg.Index, len(lg.Topics))
	}
	values, err := factoryABI.Unpack("PairCreated", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack PairCreated: %w", err)
	}
	if err := chain.ExpectValues(values, 1, "PairCreated"); err != nil {
		return nil, err
	}
	pair, err := chain.AsAddress(values[0])
	if err != nil {
		return nil, err
	}
	return &amm.ConstantProduct{
		PoolAddress: pair,
		Token0:      common.BytesToAddress(lg.Topics[1].Bytes()),
		Token1:      common.BytesToAddress(lg.Topics[2].Bytes()),
		Fee:         f.fee,
	}, nil
}
