// Package fixedpoint implements unsigned 64.64 division and float conversion
// over 256-bit integers.
package fixedpoint

import (
	"errors"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// ErrDivisionByZero is returned when the denominator is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrRounding is returned when the multiply-back check of an estimated
	// quotient does not reconstruct the numerator.
	ErrRounding = errors.New("rounding error")
)

var (
	max128   = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
	max192   = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 192), uint256.NewInt(1))
	wad      = uint256.NewInt(1_000_000_000_000_000_000)
	wadFloat = 1e18
)

// PreciseDiv returns (x << 64) / y as an unsigned 64.64 value. The result
// fits in 128 bits; a quotient that would not fit saturates to zero.
func PreciseDiv(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}

	var result *uint256.Int
	if !x.Gt(max192) {
		result = new(uint256.Int).Lsh(x, 64)
		result.Div(result, y)
	} else {
		msb := uint(192)
		xc := new(uint256.Int).Rsh(x, 192)
		if xc.GtUint64(0xFFFFFFFF) {
			xc.Rsh(xc, 32)
			msb += 32
		}
		if xc.GtUint64(0xFFFF) {
			xc.Rsh(xc, 16)
			msb += 16
		}
		if xc.GtUint64(0xFF) {
			xc.Rsh(xc, 8)
			msb += 8
		}
		if xc.GtUint64(0xF) {
			xc.Rsh(xc, 4)
			msb += 4
		}
		if xc.GtUint64(0x3) {
			xc.Rsh(xc, 2)
			msb += 2
		}
		if xc.GtUint64(0x1) {
			msb++
		}

		divisor := new(uint256.Int).Sub(y, uint256.NewInt(1))
		divisor.Rsh(divisor, msb-191)
		divisor.AddUint64(divisor, 1)
		result = new(uint256.Int).Lsh(x, 255-msb)
		result.Div(result, divisor)
		if result.Gt(max128) {
			return new(uint256.Int), nil
		}

		// Multiply back in two 128-bit halves; the subtractions wrap.
		hi := new(uint256.Int).Mul(result, new(uint256.Int).Rsh(y, 128))
		lo := new(uint256.Int).Mul(result, new(uint256.Int).And(y, max128))

		xh := new(uint256.Int).Rsh(x, 192)
		xl := new(uint256.Int).Lsh(x, 64)

		if xl.Lt(lo) {
			xh.SubUint64(xh, 1)
		}
		xl.Sub(xl, lo)
		lo = new(uint256.Int).Lsh(hi, 128)
		if xl.Lt(lo) {
			xh.SubUint64(xh, 1)
		}
		xl.Sub(xl, lo)

		if !xh.Eq(new(uint256.Int).Rsh(hi, 128)) {
			return nil, ErrRounding
		}

		result.Add(result, xl.Div(xl, y))
	}

	if result.Gt(max128) {
		return new(uint256.Int), nil
	}
	return result, nil
}

// ToFloat converts a 64.64 fixed-point value to a float64 ratio.
func ToFloat(x *uint256.Int) float64 {
	if x == nil {
		return 0
	}
	if !x.Gt(max128) {
		hi := new(uint256.Int).Rsh(x, 64).Uint64()
		lo := x.Uint64()
		return float64(hi) + math.Ldexp(float64(lo), -64)
	}
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return math.Ldexp(f, -64)
}

// WideDecimalToFloat converts an 18-decimal fixed-point value to float64,
// splitting off the integer part so large values keep their fraction.
func WideDecimalToFloat(x *uint256.Int) float64 {
	if x == nil {
		return 0
	}
	whole := new(uint256.Int).Div(x, wad)
	frac := new(uint256.Int).Mod(x, wad)

	var w float64
	if whole.IsUint64() {
		w = float64(whole.Uint64())
	} else {
		w, _ = new(big.Float).SetInt(whole.ToBig()).Float64()
	}
	return w + float64(frac.Uint64())/wadFloat
}

// Wad returns a fresh copy of 1e18.
func Wad() *uint256.Int {
	return new(uint256.Int).Set(wad)
}
