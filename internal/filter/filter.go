// Package filter prunes discovered pools before they are stored or priced.
package filter

import (
	"github.com/ethereum/go-ethereum/common"

	"poolSim/internal/amm"
)

// BlacklistedTokens drops pools holding any blacklisted token.
func BlacklistedTokens(pools []amm.Pool, blacklist []common.Address) []amm.Pool {
	set := toSet(blacklist)
	out := make([]amm.Pool, 0, len(pools))
	for _, pool := range pools {
		blocked := false
		for _, token := range pool.Tokens() {
			if _, ok := set[token]; ok {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, pool)
		}
	}
	return out
}

// BlacklistedPools drops pools whose address is blacklisted.
func BlacklistedPools(pools []amm.Pool, blacklist []common.Address) []amm.Pool {
	set := toSet(blacklist)
	out := make([]amm.Pool, 0, len(pools))
	for _, pool := range pools {
		if _, ok := set[pool.Address()]; !ok {
			out = append(out, pool)
		}
	}
	return out
}

// EmptyPools drops pools whose two tokens are both the zero address.
func EmptyPools(pools []amm.Pool) []amm.Pool {
	out := make([]amm.Pool, 0, len(pools))
	for _, pool := range pools {
		var token0, token1 common.Address
		switch p := pool.(type) {
		case *amm.ConstantProduct:
			token0, token1 = p.Token0, p.Token1
		case *amm.Hybrid:
			token0, token1 = p.ID.Token0, p.ID.Token1
		}
		if token0 == (common.Address{}) && token1 == (common.Address{}) {
			continue
		}
		out = append(out, pool)
	}
	return out
}

// EmptyReserves drops uninitialized pools.
func EmptyReserves(pools []amm.Pool) []amm.Pool {
	out := make([]amm.Pool, 0, len(pools))
	for _, pool := range pools {
		if !amm.IsUninitialized(pool) {
			out = append(out, pool)
		}
	}
	return out
}

func toSet(addrs []common.Address) map[common.Address]struct{} {
	set := make(map[common.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		set[addr] = struct{}{}
	}
	return set
}
