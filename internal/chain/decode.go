package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AsAddress converts an unpacked ABI value to an address.
func AsAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

// AsBigInt converts an unpacked ABI integer to a big.Int copy.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

// AsUint64 converts an unpacked ABI integer that must fit in 64 bits.
func AsUint64(value interface{}) (uint64, error) {
	v, err := AsBigInt(value)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("value %s does not fit in uint64", v)
	}
	return v.Uint64(), nil
}

func AsUint8(value interface{}) (uint8, error) {
	v, err := AsBigInt(value)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || v.BitLen() > 8 {
		return 0, fmt.Errorf("value %s does not fit in uint8", v)
	}
	return uint8(v.Uint64()), nil
}

func AsBool(value interface{}) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
	return v, nil
}

// ExpectValues checks that a call returned at least n values.
func ExpectValues(values []interface{}, n int, method string) error {
	if len(values) < n {
		return fmt.Errorf("%s returned %d values, want %d", method, len(values), n)
	}
	return nil
}
