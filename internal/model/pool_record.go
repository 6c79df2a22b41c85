package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	KindConstantProduct = "constant_product"
	KindHybrid          = "hybrid"
)

// PoolRecord is the persisted snapshot of a pool of either kind.
type PoolRecord struct {
	Kind           string      `json:"kind"`
	Address        string      `json:"address"`
	Token0         string      `json:"token0"`
	Token0Decimals uint8       `json:"token0_decimals"`
	Token1         string      `json:"token1"`
	Token1Decimals uint8       `json:"token1_decimals"`
	Reserve0       uint64      `json:"reserve0"`
	Reserve1       uint64      `json:"reserve1"`
	Fee            *uint64     `json:"fee,omitempty"`
	Fees           *HybridFees `json:"fees,omitempty"`
	IsStable       *bool       `json:"is_stable,omitempty"`
	AMM            string      `json:"amm,omitempty"`
	Factory        string      `json:"factory,omitempty"`
	Block          uint64      `json:"block,omitempty"`
}

// HybridFees are the four hybrid AMM fee rates in basis points.
type HybridFees struct {
	LPFeeVolatile       uint64 `json:"lp_fee_volatile"`
	LPFeeStable         uint64 `json:"lp_fee_stable"`
	ProtocolFeeVolatile uint64 `json:"protocol_fee_volatile"`
	ProtocolFeeStable   uint64 `json:"protocol_fee_stable"`
}

// UnmarshalJSON decodes a PoolRecord and rejects records with missing
// required fields.
func (r *PoolRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind           *string     `json:"kind"`
		Address        *string     `json:"address"`
		Token0         *string     `json:"token0"`
		Token0Decimals *uint8      `json:"token0_decimals"`
		Token1         *string     `json:"token1"`
		Token1Decimals *uint8      `json:"token1_decimals"`
		Reserve0       *uint64     `json:"reserve0"`
		Reserve1       *uint64     `json:"reserve1"`
		Fee            *uint64     `json:"fee"`
		Fees           *HybridFees `json:"fees"`
		IsStable       *bool       `json:"is_stable"`
		AMM            *string     `json:"amm"`
		Factory        string      `json:"factory"`
		Block          uint64      `json:"block"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var missing []string
	require := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	require("kind", raw.Kind != nil)
	require("address", raw.Address != nil)
	require("token0", raw.Token0 != nil)
	require("token0_decimals", raw.Token0Decimals != nil)
	require("token1", raw.Token1 != nil)
	require("token1_decimals", raw.Token1Decimals != nil)
	require("reserve0", raw.Reserve0 != nil)
	require("reserve1", raw.Reserve1 != nil)

	if raw.Kind != nil {
		switch *raw.Kind {
		case KindConstantProduct:
			require("fee", raw.Fee != nil)
		case KindHybrid:
			require("fees", raw.Fees != nil)
			require("is_stable", raw.IsStable != nil)
			require("amm", raw.AMM != nil)
		default:
			return fmt.Errorf("unknown pool kind %q", *raw.Kind)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("pool record missing fields: %s", strings.Join(missing, ", "))
	}

	*r = PoolRecord{
		Kind:           *raw.Kind,
		Address:        *raw.Address,
		Token0:         *raw.Token0,
		Token0Decimals: *raw.Token0Decimals,
		Token1:         *raw.Token1,
		Token1Decimals: *raw.Token1Decimals,
		Reserve0:       *raw.Reserve0,
		Reserve1:       *raw.Reserve1,
		Fee:            raw.Fee,
		Fees:           raw.Fees,
		IsStable:       raw.IsStable,
		Factory:        raw.Factory,
		Block:          raw.Block,
	}
	if raw.AMM != nil {
		r.AMM = *raw.AMM
	}
	return nil
}
