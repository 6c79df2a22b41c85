// Package amm models AMM pools and reproduces their on-chain swap and price
// math over locally cached reserves.
package amm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolSim/internal/chain"
)

// Kind names a pool variant.
type Kind string

const (
	KindConstantProduct Kind = "constant_product"
	KindHybrid          Kind = "hybrid"
)

// Pool is the capability set shared by every pool variant. The set of
// implementations is closed: only *ConstantProduct and *Hybrid satisfy it.
//
// A base token that is not token0 is treated as token1.
type Pool interface {
	Kind() Kind
	Address() common.Address
	Tokens() []common.Address
	Reserves() (uint64, uint64)
	Decimals() (uint8, uint8)

	// Sync refreshes only the reserves.
	Sync(ctx context.Context, reader chain.Reader, block *big.Int) error
	// PopulateData replaces the whole pool state with a fresh snapshot.
	PopulateData(ctx context.Context, reader chain.Reader, block *big.Int) error

	// CalculatePrice returns the price of baseToken in units of the other token.
	CalculatePrice(baseToken common.Address) (float64, error)
	// SimulateSwap returns the amount received for amountIn of baseToken.
	SimulateSwap(baseToken common.Address, amountIn *uint256.Int) (*uint256.Int, error)
	// SimulateSwapMut is SimulateSwap that also applies the swap to the reserves.
	SimulateSwapMut(baseToken common.Address, amountIn *uint256.Int) (*uint256.Int, error)
	// GetTokenOut returns the counter asset of tokenIn.
	GetTokenOut(tokenIn common.Address) common.Address

	sealed()
}

var (
	_ Pool = (*ConstantProduct)(nil)
	_ Pool = (*Hybrid)(nil)
)

// applySwap returns the reserves after amountIn entered and amountOut left.
// Neither reserve may wrap.
func applySwap(reserveIn, reserveOut uint64, amountIn, amountOut *uint256.Int) (uint64, uint64, error) {
	if !amountIn.IsUint64() || !amountOut.IsUint64() {
		return 0, 0, ErrOverflow
	}
	in := reserveIn + amountIn.Uint64()
	if in < reserveIn {
		return 0, 0, ErrOverflow
	}
	out := amountOut.Uint64()
	if out > reserveOut {
		return 0, 0, ErrOverflow
	}
	return in, reserveOut - out, nil
}

func counterToken(token0, token1, tokenIn common.Address) common.Address {
	if tokenIn == token0 {
		return token1
	}
	return token0
}

// IsUninitialized reports whether both reserves are zero.
func IsUninitialized(p Pool) bool {
	r0, r1 := p.Reserves()
	return r0 == 0 && r1 == 0
}
