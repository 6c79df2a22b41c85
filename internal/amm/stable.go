package amm

import (
	"github.com/holiman/uint256"

	"poolSim/internal/fixedpoint"
)

// maxIterations bounds the Newton-Raphson solver in getY.
const maxIterations = 255

var (
	wad   = fixedpoint.Wad()
	three = uint256.NewInt(3)
	one   = uint256.NewInt(1)
)

// checked accumulates overflow across a sequence of wide operations.
type checked struct {
	overflow bool
}

func (c *checked) mul(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	c.overflow = c.overflow || overflow
	return z
}

func (c *checked) add(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	c.overflow = c.overflow || overflow
	return z
}

// mulWad returns x*y/1e18.
func (c *checked) mulWad(x, y *uint256.Int) *uint256.Int {
	z := c.mul(x, y)
	return z.Div(z, wad)
}

// k is the stableswap invariant x^3*y + x*y^3 on 18-decimal values.
func (c *checked) k(x, y *uint256.Int) *uint256.Int {
	a := c.mulWad(x, y)
	b := c.add(c.mulWad(x, x), c.mulWad(y, y))
	return c.mulWad(a, b)
}

// d is the derivative of k with respect to y.
func (c *checked) d(x0, y *uint256.Int) *uint256.Int {
	left := c.mulWad(c.mul(three, x0), c.mulWad(y, y))
	right := c.mulWad(c.mulWad(x0, x0), x0)
	return c.add(left, right)
}

// getY solves k(x0, y) = xy for y starting from the current y. The target
// xy and every iterate are evaluated with the same (x*y)*(x^2+y^2) form of
// k, so both sides must change together. The solver stops once a step moves
// y by at most one unit, and after maxIterations steps it returns the last
// iterate without error.
func getY(x0, xy, y *uint256.Int) (*uint256.Int, error) {
	y, _, err := solveY(x0, xy, y, maxIterations)
	return y, err
}

// solveY runs at most limit Newton steps and reports how many it took.
func solveY(x0, xy, y *uint256.Int, limit int) (*uint256.Int, int, error) {
	c := &checked{}
	y = new(uint256.Int).Set(y)
	for i := 1; i <= limit; i++ {
		prev := new(uint256.Int).Set(y)
		k := c.k(x0, y)
		d := c.d(x0, y)
		if c.overflow {
			return nil, i, ErrOverflow
		}
		if d.IsZero() {
			return nil, i, ErrSwapDivisionByZero
		}

		if k.Lt(xy) {
			dy := c.mul(new(uint256.Int).Sub(xy, k), wad)
			dy.Div(dy, d)
			y = c.add(y, dy)
		} else {
			dy := c.mul(new(uint256.Int).Sub(k, xy), wad)
			dy.Div(dy, d)
			if dy.Gt(y) {
				y.Clear()
			} else {
				y.Sub(y, dy)
			}
		}
		if c.overflow {
			return nil, i, ErrOverflow
		}

		var diff uint256.Int
		if y.Gt(prev) {
			diff.Sub(y, prev)
		} else {
			diff.Sub(prev, y)
		}
		if !diff.Gt(one) {
			return y, i, nil
		}
	}
	return y, limit, nil
}

// adjust scales a raw token amount to 18 decimals.
func adjust(v *uint256.Int, decimals uint8) (*uint256.Int, error) {
	scale, ok := pow10(int(decimals))
	if !ok {
		return nil, ErrOverflow
	}
	z, overflow := new(uint256.Int).MulOverflow(v, wad)
	if overflow {
		return nil, ErrOverflow
	}
	return z.Div(z, scale), nil
}

// unadjust scales an 18-decimal amount back to raw token units.
func unadjust(v *uint256.Int, decimals uint8) (*uint256.Int, error) {
	scale, ok := pow10(int(decimals))
	if !ok {
		return nil, ErrOverflow
	}
	z, overflow := new(uint256.Int).MulOverflow(v, scale)
	if overflow {
		return nil, ErrOverflow
	}
	return z.Div(z, wad), nil
}

// stableAmountOut returns the output of a fee-free stable swap.
func stableAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, decimalsIn, decimalsOut uint8) (*uint256.Int, error) {
	if amountIn.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), nil
	}
	in, err := adjust(reserveIn, decimalsIn)
	if err != nil {
		return nil, err
	}
	out, err := adjust(reserveOut, decimalsOut)
	if err != nil {
		return nil, err
	}
	a, err := adjust(amountIn, decimalsIn)
	if err != nil {
		return nil, err
	}

	c := &checked{}
	xy := c.k(in, out)
	x0 := c.add(in, a)
	if c.overflow {
		return nil, ErrOverflow
	}

	y, err := getY(x0, xy, out)
	if err != nil {
		return nil, err
	}
	if !out.Gt(y) {
		return new(uint256.Int), nil
	}
	return unadjust(new(uint256.Int).Sub(out, y), decimalsOut)
}

// stablePrice returns the marginal price of the base token as an
// 18-decimal value, taken from the partial derivatives of the invariant.
func stablePrice(baseIsToken0 bool, reserve0, reserve1 uint64, decimals0, decimals1 uint8) (*uint256.Int, error) {
	x, err := adjust(uint256.NewInt(reserve0), decimals0)
	if err != nil {
		return nil, ErrPriceOverflow
	}
	y, err := adjust(uint256.NewInt(reserve1), decimals1)
	if err != nil {
		return nil, ErrPriceOverflow
	}
	if (baseIsToken0 && x.IsZero()) || (!baseIsToken0 && y.IsZero()) {
		return nil, ErrYIsZero
	}

	c := &checked{}
	x2 := c.mulWad(x, x)
	y2 := c.mulWad(y, y)
	// dk/dx = 3x^2y + y^3, dk/dy = x^3 + 3xy^2
	dx := c.add(c.mulWad(c.mul(three, x2), y), c.mulWad(y2, y))
	dy := c.add(c.mulWad(x2, x), c.mulWad(c.mul(three, x), y2))

	num, den := dx, dy
	if !baseIsToken0 {
		num, den = dy, dx
	}
	price := c.mul(num, wad)
	if c.overflow {
		return nil, ErrPriceOverflow
	}
	if den.IsZero() {
		return nil, ErrDivisionByZero
	}
	return price.Div(price, den), nil
}
