package amm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolSim/internal/chain"
)

// PopulateConstantProducts refreshes the full state of every pair with one
// batched pair read and one batched decimals read. Pools are written only
// after every value has been decoded. Pairs whose reserves cannot be cached
// are left untouched and reported as skipped.
func PopulateConstantProducts(ctx context.Context, reader chain.Reader, pools []*ConstantProduct, block *big.Int) ([]SkippedPool, error) {
	fresh, skipped, err := FetchConstantProducts(ctx, reader, pools, block)
	if err != nil {
		return nil, err
	}
	for i, p := range pools {
		if fresh[i] != nil {
			*p = *fresh[i]
		}
	}
	return skipped, nil
}

// FetchConstantProducts reads the full state of every pair without writing
// to them. The result is aligned with pools and holds nil for skipped pairs.
func FetchConstantProducts(ctx context.Context, reader chain.Reader, pools []*ConstantProduct, block *big.Int) ([]*ConstantProduct, []SkippedPool, error) {
	if len(pools) == 0 {
		return nil, nil, nil
	}
	pairABI, err := PairABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse pair abi: %w", err)
	}
	erc20ABI, err := ERC20ABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	calls := make([]chain.Call, 0, 3*len(pools))
	for _, p := range pools {
		calls = append(calls,
			chain.Call{Target: p.PoolAddress, ABI: pairABI, Method: "token0"},
			chain.Call{Target: p.PoolAddress, ABI: pairABI, Method: "token1"},
			chain.Call{Target: p.PoolAddress, ABI: pairABI, Method: "getReserves"},
		)
	}
	results, err := reader.BatchCall(ctx, calls, block)
	if err != nil {
		return nil, nil, NewChainError("batch pair state", common.Address{}, err)
	}
	if len(results) != len(calls) {
		return nil, nil, NewChainError("batch pair state", common.Address{}, fmt.Errorf("got %d results for %d calls", len(results), len(calls)))
	}

	fresh := make([]*ConstantProduct, len(pools))
	var skipped []SkippedPool
	tokens := make([]common.Address, 0, 2*len(pools))
	for i, p := range pools {
		base := 3 * i
		next := &ConstantProduct{PoolAddress: p.PoolAddress, Fee: p.Fee}
		if err := chain.ExpectValues(results[base], 1, "token0"); err != nil {
			return nil, nil, NewChainError("token0", p.PoolAddress, err)
		}
		if next.Token0, err = chain.AsAddress(results[base][0]); err != nil {
			return nil, nil, NewChainError("token0", p.PoolAddress, err)
		}
		if err := chain.ExpectValues(results[base+1], 1, "token1"); err != nil {
			return nil, nil, NewChainError("token1", p.PoolAddress, err)
		}
		if next.Token1, err = chain.AsAddress(results[base+1][0]); err != nil {
			return nil, nil, NewChainError("token1", p.PoolAddress, err)
		}
		next.Reserve0, next.Reserve1, err = decodeReserves(results[base+2])
		if errors.Is(err, ErrReserveOutOfRange) {
			skipped = append(skipped, SkippedPool{Address: p.PoolAddress, Err: NewChainError("getReserves", p.PoolAddress, err)})
			continue
		}
		if err != nil {
			return nil, nil, NewChainError("getReserves", p.PoolAddress, err)
		}
		fresh[i] = next
		tokens = append(tokens, next.Token0, next.Token1)
	}

	decimals, err := tokenDecimals(ctx, reader, erc20ABI, tokens, block)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range fresh {
		if p == nil {
			continue
		}
		p.Token0Decimals = decimals[p.Token0]
		p.Token1Decimals = decimals[p.Token1]
	}
	return fresh, skipped, nil
}

// tokenDecimals reads decimals() once per distinct token.
func tokenDecimals(ctx context.Context, reader chain.Reader, erc20ABI abi.ABI, tokens []common.Address, block *big.Int) (map[common.Address]uint8, error) {
	unique := make([]common.Address, 0, len(tokens))
	seen := make(map[common.Address]struct{}, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}

	out := make(map[common.Address]uint8, len(unique))
	if len(unique) == 0 {
		return out, nil
	}
	calls := make([]chain.Call, 0, len(unique))
	for _, token := range unique {
		calls = append(calls, chain.Call{Target: token, ABI: erc20ABI, Method: "decimals"})
	}
	results, err := reader.BatchCall(ctx, calls, block)
	if err != nil {
		return nil, NewChainError("batch decimals", common.Address{}, err)
	}
	if len(results) != len(calls) {
		return nil, NewChainError("batch decimals", common.Address{}, fmt.Errorf("got %d results for %d calls", len(results), len(calls)))
	}

	for i, token := range unique {
		if err := chain.ExpectValues(results[i], 1, "decimals"); err != nil {
			return nil, NewChainError("decimals", token, err)
		}
		d, err := chain.AsUint8(results[i][0])
		if err != nil {
			return nil, NewChainError("decimals", token, err)
		}
		out[token] = d
	}
	return out, nil
}

// PopulateHybrids refreshes reserves, decimals and fees of hybrid pools with
// one batched read. Fees are read once per AMM contract. Pools whose reserves
// cannot be cached are left untouched and reported as skipped.
func PopulateHybrids(ctx context.Context, reader chain.Reader, pools []*Hybrid, block *big.Int) ([]SkippedPool, error) {
	fresh, skipped, err := FetchHybrids(ctx, reader, pools, block)
	if err != nil {
		return nil, err
	}
	for i, p := range pools {
		if fresh[i] != nil {
			*p = *fresh[i]
		}
	}
	return skipped, nil
}

// FetchHybrids reads the full state of hybrid pools without writing to them.
// The result is aligned with pools and holds nil for skipped pools.
func FetchHybrids(ctx context.Context, reader chain.Reader, pools []*Hybrid, block *big.Int) ([]*Hybrid, []SkippedPool, error) {
	if len(pools) == 0 {
		return nil, nil, nil
	}
	hybridABI, err := HybridABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse hybrid abi: %w", err)
	}

	calls := make([]chain.Call, 0, len(pools)+1)
	for _, p := range pools {
		calls = append(calls, p.metadataCall(hybridABI))
	}
	ammIndex := make(map[common.Address]int)
	for _, p := range pools {
		if _, ok := ammIndex[p.AMM]; ok {
			continue
		}
		ammIndex[p.AMM] = len(calls)
		calls = append(calls, chain.Call{Target: p.AMM, ABI: hybridABI, Method: "fees"})
	}

	results, err := reader.BatchCall(ctx, calls, block)
	if err != nil {
		return nil, nil, NewChainError("batch pool metadata", common.Address{}, err)
	}
	if len(results) != len(calls) {
		return nil, nil, NewChainError("batch pool metadata", common.Address{}, fmt.Errorf("got %d results for %d calls", len(results), len(calls)))
	}

	fees := make(map[common.Address]Fees, len(ammIndex))
	for amm, idx := range ammIndex {
		f, err := decodeFees(results[idx])
		if err != nil {
			return nil, nil, NewChainError("fees", amm, err)
		}
		fees[amm] = f
	}

	fresh := make([]*Hybrid, len(pools))
	var skipped []SkippedPool
	for i, p := range pools {
		meta, err := decodeMetadata(results[i])
		if errors.Is(err, ErrReserveOutOfRange) {
			skipped = append(skipped, SkippedPool{Address: p.Address(), Err: NewChainError("poolMetadata", p.AMM, err)})
			continue
		}
		if err != nil {
			return nil, nil, NewChainError("poolMetadata", p.AMM, err)
		}
		fresh[i] = NewHybrid(p.AMM, p.ID, meta.decimals0, meta.decimals1, meta.reserve0, meta.reserve1, fees[p.AMM])
	}
	return fresh, skipped, nil
}

// SyncReserves refreshes only the reserves of pools of any kind with one
// batched read.
func SyncReserves(ctx context.Context, reader chain.Reader, pools []Pool, block *big.Int) error {
	if len(pools) == 0 {
		return nil
	}
	pairABI, err := PairABI()
	if err != nil {
		return fmt.Errorf("parse pair abi: %w", err)
	}
	hybridABI, err := HybridABI()
	if err != nil {
		return fmt.Errorf("parse hybrid abi: %w", err)
	}

	calls := make([]chain.Call, len(pools))
	for i, pool := range pools {
		switch p := pool.(type) {
		case *ConstantProduct:
			calls[i] = chain.Call{Target: p.PoolAddress, ABI: pairABI, Method: "getReserves"}
		case *Hybrid:
			calls[i] = p.metadataCall(hybridABI)
		}
	}

	results, err := reader.BatchCall(ctx, calls, block)
	if err != nil {
		return NewChainError("batch reserves", common.Address{}, err)
	}
	if len(results) != len(calls) {
		return NewChainError("batch reserves", common.Address{}, fmt.Errorf("got %d results for %d calls", len(results), len(calls)))
	}

	type reserves struct{ r0, r1 uint64 }
	fresh := make([]reserves, len(pools))
	for i, pool := range pools {
		switch p := pool.(type) {
		case *ConstantProduct:
			r0, r1, err := decodeReserves(results[i])
			if err != nil {
				return NewChainError("getReserves", p.PoolAddress, err)
			}
			fresh[i] = reserves{r0, r1}
		case *Hybrid:
			meta, err := decodeMetadata(results[i])
			if err != nil {
				return NewChainError("poolMetadata", p.AMM, err)
			}
			fresh[i] = reserves{meta.reserve0, meta.reserve1}
		}
	}

	for i, pool := range pools {
		switch p := pool.(type) {
		case *ConstantProduct:
			p.Reserve0, p.Reserve1 = fresh[i].r0, fresh[i].r1
		case *Hybrid:
			p.Reserve0, p.Reserve1 = fresh[i].r0, fresh[i].r1
		}
	}
	return nil
}
