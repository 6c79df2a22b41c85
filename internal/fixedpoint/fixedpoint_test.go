package fixedpoint

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func mustU256(t *testing.T, dec string) *uint256.Int {
	t.Helper()
	v, err := uint256.FromDecimal(dec)
	if err != nil {
		t.Fatalf("parse %s: %v", dec, err)
	}
	return v
}

func pow2(n uint) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(1), n)
}

func exactQ64(x, y *uint256.Int) *big.Int {
	num := new(big.Int).Lsh(x.ToBig(), 64)
	return num.Div(num, y.ToBig())
}

func ratio(x, y *uint256.Int) float64 {
	r, _ := new(big.Float).Quo(new(big.Float).SetInt(x.ToBig()), new(big.Float).SetInt(y.ToBig())).Float64()
	return r
}

func TestPreciseDivZeroDenominator(t *testing.T) {
	if _, err := PreciseDiv(uint256.NewInt(10), new(uint256.Int)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := PreciseDiv(new(uint256.Int), uint256.NewInt(1)); err != nil {
		t.Fatalf("zero numerator should succeed: %v", err)
	}
}

func TestPreciseDivHalf(t *testing.T) {
	got, err := PreciseDiv(uint256.NewInt(1), uint256.NewInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(pow2(63)) {
		t.Fatalf("1/2 mismatch: %s", got.Hex())
	}
	if f := ToFloat(got); f != 0.5 {
		t.Fatalf("float mismatch: %v", f)
	}
}

func TestPreciseDivMatchesRatio(t *testing.T) {
	cases := []struct {
		name string
		x    *uint256.Int
		y    *uint256.Int
	}{
		{"small", mustU256(t, "300000000000000000000"), mustU256(t, "70000000000")},
		{"below 2^192", new(uint256.Int).SubUint64(pow2(192), 1), new(uint256.Int).AddUint64(pow2(140), 12345)},
		{"above 2^192", new(uint256.Int).AddUint64(pow2(200), 12345), new(uint256.Int).AddUint64(pow2(150), 99)},
		{"near 2^250", new(uint256.Int).AddUint64(pow2(250), 1), new(uint256.Int).AddUint64(pow2(240), 3)},
		{"max numerator", new(uint256.Int).SetAllOne(), new(uint256.Int).AddUint64(pow2(200), 17)},
		{"odd high bits", mustU256(t, "98765432109876543210987654321098765432109876543210987654321098765432"), mustU256(t, "12345678901234567890123456789012345678901234567890123456")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PreciseDiv(tc.x, tc.y)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ToBig().Cmp(exactQ64(tc.x, tc.y)) != 0 {
				t.Fatalf("quotient mismatch: got %s want %s", got.ToBig(), exactQ64(tc.x, tc.y))
			}
			want := ratio(tc.x, tc.y)
			if rel := math.Abs(ToFloat(got)-want) / want; rel > 1e-9 {
				t.Fatalf("relative error %g too large (got %v want %v)", rel, ToFloat(got), want)
			}
		})
	}
}

func TestPreciseDivSaturates(t *testing.T) {
	got, err := PreciseDiv(pow2(100), uint256.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected saturated zero, got %s", got.Hex())
	}

	got, err = PreciseDiv(pow2(255), uint256.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected saturated zero on wide branch, got %s", got.Hex())
	}
}

func TestWideDecimalToFloat(t *testing.T) {
	if got := WideDecimalToFloat(mustU256(t, "1500000000000000000")); got != 1.5 {
		t.Fatalf("1.5 mismatch: %v", got)
	}
	if got := WideDecimalToFloat(mustU256(t, "250000000000000")); math.Abs(got-0.00025) > 1e-15 {
		t.Fatalf("fraction mismatch: %v", got)
	}

	huge := mustU256(t, "10000000000000000000000000000000000000000000000000000000000")
	if got := WideDecimalToFloat(huge); math.Abs(got-1e40)/1e40 > 1e-12 {
		t.Fatalf("large value mismatch: %v", got)
	}
}
