package quote

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	errNegativeAmount = errors.New("amount must not be negative")
	errAmountOverflow = errors.New("amount does not fit in 256 bits")
)

// FormatAmount renders a raw token amount in whole-token units.
func FormatAmount(raw *uint256.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw.ToBig(), -int32(decimals)).String()
}

// ParseAmount converts a whole-token amount such as "1.5" into raw units.
// Digits beyond the token's precision are truncated.
func ParseAmount(text string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, errNegativeAmount
	}
	raw := d.Shift(int32(decimals)).Truncate(0).BigInt()
	v, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, errAmountOverflow
	}
	return v, nil
}
