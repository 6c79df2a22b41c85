package amm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"poolSim/internal/chain"
	"poolSim/internal/fixedpoint"
)

// Fees are the hybrid AMM fee rates in basis points.
type Fees struct {
	LPFeeVolatile       uint64
	LPFeeStable         uint64
	ProtocolFeeVolatile uint64
	ProtocolFeeStable   uint64
}

// Volatile returns the volatile swap fee in constant-product units.
func (f Fees) Volatile() uint64 {
	return (f.LPFeeVolatile + f.ProtocolFeeVolatile) * 10
}

// Stable returns the stable swap fee in basis points.
func (f Fees) Stable() uint64 {
	return f.LPFeeStable + f.ProtocolFeeStable
}

// PoolID identifies a pool inside the hybrid AMM singleton.
type PoolID struct {
	Token0 common.Address
	Token1 common.Address
	Stable bool
}

var poolIDArgs = func() abi.Arguments {
	addressType, _ := abi.NewType("address", "", nil)
	boolType, _ := abi.NewType("bool", "", nil)
	return abi.Arguments{{Type: addressType}, {Type: addressType}, {Type: boolType}}
}()

// Address derives the pool address from the low 20 bytes of
// keccak256(abi.encode(token0, token1, stable)).
func (id PoolID) Address() common.Address {
	encoded, err := poolIDArgs.Pack(id.Token0, id.Token1, id.Stable)
	if err != nil {
		return common.Address{}
	}
	return common.BytesToAddress(crypto.Keccak256(encoded))
}

// Hybrid is a pool of the hybrid AMM, running either the volatile
// constant-product curve or the stable x^3*y + x*y^3 curve. ID must not
// change after NewHybrid, which caches the derived address.
type Hybrid struct {
	AMM            common.Address
	ID             PoolID
	Token0Decimals uint8
	Token1Decimals uint8
	Reserve0       uint64
	Reserve1       uint64
	Fees           Fees

	address common.Address
}

// NewHybrid returns a hybrid pool with the given cached state.
func NewHybrid(amm common.Address, id PoolID, token0Decimals, token1Decimals uint8, reserve0, reserve1 uint64, fees Fees) *Hybrid {
	return &Hybrid{
		AMM:            amm,
		ID:             id,
		Token0Decimals: token0Decimals,
		Token1Decimals: token1Decimals,
		Reserve0:       reserve0,
		Reserve1:       reserve1,
		Fees:           fees,
		address:        id.Address(),
	}
}

func (p *Hybrid) sealed() {}

func (p *Hybrid) Kind() Kind { return KindHybrid }

func (p *Hybrid) Address() common.Address {
	if p.address == (common.Address{}) {
		return p.ID.Address()
	}
	return p.address
}

func (p *Hybrid) IsStable() bool { return p.ID.Stable }

func (p *Hybrid) Tokens() []common.Address {
	return []common.Address{p.ID.Token0, p.ID.Token1}
}

func (p *Hybrid) Reserves() (uint64, uint64) { return p.Reserve0, p.Reserve1 }

func (p *Hybrid) Decimals() (uint8, uint8) { return p.Token0Decimals, p.Token1Decimals }

func (p *Hybrid) GetTokenOut(tokenIn common.Address) common.Address {
	return counterToken(p.ID.Token0, p.ID.Token1, tokenIn)
}

func (p *Hybrid) SimulateSwap(baseToken common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if baseToken == p.ID.Token0 {
		return p.amountOut(amountIn, p.Reserve0, p.Reserve1, p.Token0Decimals, p.Token1Decimals)
	}
	return p.amountOut(amountIn, p.Reserve1, p.Reserve0, p.Token1Decimals, p.Token0Decimals)
}

func (p *Hybrid) SimulateSwapMut(baseToken common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	amountOut, err := p.SimulateSwap(baseToken, amountIn)
	if err != nil {
		return nil, err
	}
	if baseToken == p.ID.Token0 {
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

func (p *Hybrid) amountOut(amountIn *uint256.Int, reserveIn, reserveOut uint64, decimalsIn, decimalsOut uint8) (*uint256.Int, error) {
	rIn := uint256.NewInt(reserveIn)
	rOut := uint256.NewInt(reserveOut)
	if !p.ID.Stable {
		return constantProductOut(amountIn, rIn, rOut, p.Fees.Volatile())
	}
	if amountIn.IsZero() {
		return new(uint256.Int), nil
	}

	feeAmount, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(p.Fees.Stable()))
	if overflow {
		return nil, ErrOverflow
	}
	feeAmount.Div(feeAmount, uint256.NewInt(10000))
	if feeAmount.Gt(amountIn) {
		return nil, ErrOverflow
	}
	net := new(uint256.Int).Sub(amountIn, feeAmount)
	return stableAmountOut(net, rIn, rOut, decimalsIn, decimalsOut)
}

func (p *Hybrid) CalculatePrice(baseToken common.Address) (float64, error) {
	baseIsToken0 := baseToken == p.ID.Token0
	if !p.ID.Stable {
		price, err := reservePriceQ64(baseIsToken0, p.Reserve0, p.Reserve1, p.Token0Decimals, p.Token1Decimals)
		if err != nil {
			return 0, err
		}
		return fixedpoint.ToFloat(price), nil
	}
	price, err := stablePrice(baseIsToken0, p.Reserve0, p.Reserve1, p.Token0Decimals, p.Token1Decimals)
	if err != nil {
		return 0, err
	}
	return fixedpoint.WideDecimalToFloat(price), nil
}

func (p *Hybrid) Sync(ctx context.Context, reader chain.Reader, block *big.Int) error {
	hybridABI, err := HybridABI()
	if err != nil {
		return fmt.Errorf("parse hybrid abi: %w", err)
	}
	values, err := reader.Call(ctx, p.metadataCall(hybridABI), block)
	if err != nil {
		return NewChainError("poolMetadata", p.AMM, err)
	}
	meta, err := decodeMetadata(values)
	if err != nil {
		return NewChainError("poolMetadata", p.AMM, err)
	}
	p.Reserve0, p.Reserve1 = meta.reserve0, meta.reserve1
	return nil
}

func (p *Hybrid) PopulateData(ctx context.Context, reader chain.Reader, block *big.Int) error {
	skipped, err := PopulateHybrids(ctx, reader, []*Hybrid{p}, block)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		return skipped[0].Err
	}
	return nil
}

func (p *Hybrid) metadataCall(hybridABI abi.ABI) chain.Call {
	return chain.Call{
		Target: p.AMM,
		ABI:    hybridABI,
		Method: "poolMetadata",
		Args:   []interface{}{p.ID.Token0, p.ID.Token1, p.ID.Stable},
	}
}

type poolMetadata struct {
	reserve0  uint64
	reserve1  uint64
	decimals0 uint8
	decimals1 uint8
}

func decodeMetadata(values []interface{}) (poolMetadata, error) {
	var meta poolMetadata
	if err := chain.ExpectValues(values, 5, "poolMetadata"); err != nil {
		return meta, err
	}
	var err error
	if meta.reserve0, err = asReserve(values[0]); err != nil {
		return meta, fmt.Errorf("reserve0: %w", err)
	}
	if meta.reserve1, err = asReserve(values[1]); err != nil {
		return meta, fmt.Errorf("reserve1: %w", err)
	}
	if meta.decimals0, err = chain.AsUint8(values[3]); err != nil {
		return meta, fmt.Errorf("decimals0: %w", err)
	}
	if meta.decimals1, err = chain.AsUint8(values[4]); err != nil {
		return meta, fmt.Errorf("decimals1: %w", err)
	}
	return meta, nil
}

func decodeFees(values []interface{}) (Fees, error) {
	var fees Fees
	if err := chain.ExpectValues(values, 4, "fees"); err != nil {
		return fees, err
	}
	out := []*uint64{&fees.LPFeeVolatile, &fees.LPFeeStable, &fees.ProtocolFeeVolatile, &fees.ProtocolFeeStable}
	for i, dst := range out {
		v, err := chain.AsUint64(values[i])
		if err != nil {
			return fees, fmt.Errorf("fee %d: %w", i, err)
		}
		*dst = v
	}
	return fees, nil
}
