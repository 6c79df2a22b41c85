package amm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolSim/internal/chain"
	"poolSim/internal/fixedpoint"
)

// ConstantProduct is a Uniswap V2 style x*y=k pair. Fee is in units of
// 1e-5, so 300 is 0.30%.
type ConstantProduct struct {
	PoolAddress    common.Address
	Token0         common.Address
	Token0Decimals uint8
	Token1         common.Address
	Token1Decimals uint8
	Reserve0       uint64
	Reserve1       uint64
	Fee            uint64
}

// NewConstantProduct returns a pair with the given cached state.
func NewConstantProduct(
	address common.Address,
	token0 common.Address,
	token0Decimals uint8,
	token1 common.Address,
	token1Decimals uint8,
	reserve0 uint64,
	reserve1 uint64,
	fee uint64,
) *ConstantProduct {
	return &ConstantProduct{
		PoolAddress:    address,
		Token0:         token0,
		Token0Decimals: token0Decimals,
		Token1:         token1,
		Token1Decimals: token1Decimals,
		Reserve0:       reserve0,
		Reserve1:       reserve1,
		Fee:            fee,
	}
}

func (p *ConstantProduct) sealed() {}

func (p *ConstantProduct) Kind() Kind { return KindConstantProduct }

func (p *ConstantProduct) Address() common.Address { return p.PoolAddress }

func (p *ConstantProduct) Tokens() []common.Address {
	return []common.Address{p.Token0, p.Token1}
}

func (p *ConstantProduct) Reserves() (uint64, uint64) { return p.Reserve0, p.Reserve1 }

func (p *ConstantProduct) Decimals() (uint8, uint8) { return p.Token0Decimals, p.Token1Decimals }

func (p *ConstantProduct) GetTokenOut(tokenIn common.Address) common.Address {
	return counterToken(p.Token0, p.Token1, tokenIn)
}

// GetAmountOut applies the pair's fee to the constant-product formula.
func (p *ConstantProduct) GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	return constantProductOut(amountIn, reserveIn, reserveOut, p.Fee)
}

func (p *ConstantProduct) SimulateSwap(baseToken common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if baseToken == p.Token0 {
		return p.GetAmountOut(amountIn, uint256.NewInt(p.Reserve0), uint256.NewInt(p.Reserve1))
	}
	return p.GetAmountOut(amountIn, uint256.NewInt(p.Reserve1), uint256.NewInt(p.Reserve0))
}

func (p *ConstantProduct) SimulateSwapMut(baseToken common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	amountOut, err := p.SimulateSwap(baseToken, amountIn)
	if err != nil {
		return nil, err
	}
	if baseToken == p.Token0 {
		r0, r1, err := applySwap(p.Reserve0, p.Reserve1, amountIn, amountOut)
		if err != nil {
			return nil, err
		}
		p.Reserve0, p.Reserve1 = r0, r1
	} else {
		r1, r0, err := applySwap(p.Reserve1, p.Reserve0, amountIn, amountOut)
		if err != nil {
			return nil, err
		}
		p.Reserve0, p.Reserve1 = r0, r1
	}
	return amountOut, nil
}

func (p *ConstantProduct) CalculatePrice(baseToken common.Address) (float64, error) {
	price, err := p.CalculatePriceQ64(baseToken)
	if err != nil {
		return 0, err
	}
	return fixedpoint.ToFloat(price), nil
}

// CalculatePriceQ64 returns the decimal-adjusted price of baseToken as a
// 64.64 fixed-point value.
func (p *ConstantProduct) CalculatePriceQ64(baseToken common.Address) (*uint256.Int, error) {
	return reservePriceQ64(baseToken == p.Token0, p.Reserve0, p.Reserve1, p.Token0Decimals, p.Token1Decimals)
}

func (p *ConstantProduct) Sync(ctx context.Context, reader chain.Reader, block *big.Int) error {
	pairABI, err := PairABI()
	if err != nil {
		return fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := reader.Call(ctx, chain.Call{Target: p.PoolAddress, ABI: pairABI, Method: "getReserves"}, block)
	if err != nil {
		return NewChainError("getReserves", p.PoolAddress, err)
	}
	r0, r1, err := decodeReserves(values)
	if err != nil {
		return NewChainError("getReserves", p.PoolAddress, err)
	}
	p.Reserve0, p.Reserve1 = r0, r1
	return nil
}

func (p *ConstantProduct) PopulateData(ctx context.Context, reader chain.Reader, block *big.Int) error {
	skipped, err := PopulateConstantProducts(ctx, reader, []*ConstantProduct{p}, block)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		return skipped[0].Err
	}
	return nil
}

// constantProductOut is the Uniswap V2 getAmountOut with a fee in 1e-5 units.
func constantProductOut(amountIn, reserveIn, reserveOut *uint256.Int, fee uint64) (*uint256.Int, error) {
	if amountIn.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), nil
	}
	if fee/10 > 10000 {
		return nil, ErrOverflow
	}
	multiplier := uint256.NewInt((10000 - fee/10) / 10)

	amountInWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, multiplier)
	if overflow {
		return nil, ErrOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(amountInWithFee, reserveOut)
	if overflow {
		return nil, ErrOverflow
	}
	denominator, overflow := new(uint256.Int).MulOverflow(reserveIn, uint256.NewInt(1000))
	if overflow {
		return nil, ErrOverflow
	}
	if _, overflow = denominator.AddOverflow(denominator, amountInWithFee); overflow {
		return nil, ErrOverflow
	}
	if denominator.IsZero() {
		return nil, ErrSwapDivisionByZero
	}
	return numerator.Div(numerator, denominator), nil
}

// reservePriceQ64 scales the reserves to a common decimal base and divides
// the quote side by the base side.
func reservePriceQ64(baseIsToken0 bool, reserve0, reserve1 uint64, decimals0, decimals1 uint8) (*uint256.Int, error) {
	r0 := uint256.NewInt(reserve0)
	r1 := uint256.NewInt(reserve1)

	shift := int(decimals0) - int(decimals1)
	if shift != 0 {
		n := shift
		if n < 0 {
			n = -n
		}
		scale, ok := pow10(n)
		if !ok {
			return nil, ErrPriceOverflow
		}
		target := r1
		if shift < 0 {
			target = r0
		}
		if _, overflow := target.MulOverflow(target, scale); overflow {
			return nil, ErrPriceOverflow
		}
	}

	num, den := r1, r0
	if !baseIsToken0 {
		num, den = r0, r1
	}
	if den.IsZero() {
		return nil, ErrYIsZero
	}
	price, err := fixedpoint.PreciseDiv(num, den)
	if err != nil {
		return nil, arithmeticError(err)
	}
	return price, nil
}

var powersOf10 = func() []*uint256.Int {
	out := make([]*uint256.Int, 78)
	out[0] = uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := 1; i < len(out); i++ {
		out[i] = new(uint256.Int).Mul(out[i-1], ten)
	}
	return out
}()

// pow10 returns a copy of 10^n, or false when it does not fit in 256 bits.
func pow10(n int) (*uint256.Int, bool) {
	if n < 0 || n >= len(powersOf10) {
		return nil, false
	}
	return new(uint256.Int).Set(powersOf10[n]), true
}

func decodeReserves(values []interface{}) (uint64, uint64, error) {
	if err := chain.ExpectValues(values, 2, "getReserves"); err != nil {
		return 0, 0, err
	}
	r0, err := asReserve(values[0])
	if err != nil {
		return 0, 0, fmt.Errorf("reserve0: %w", err)
	}
	r1, err := asReserve(values[1])
	if err != nil {
		return 0, 0, fmt.Errorf("reserve1: %w", err)
	}
	return r0, r1, nil
}

// asReserve decodes an on-chain reserve. Values wider than 64 bits report
// ErrReserveOutOfRange.
func asReserve(value interface{}) (uint64, error) {
	v, err := chain.AsBigInt(value)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrReserveOutOfRange, v)
	}
	return v.Uint64(), nil
}
