package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"poolSim/internal/model"
)

// ToRecord converts a pool into its persisted form.
func ToRecord(pool Pool) model.PoolRecord {
	switch p := pool.(type) {
	case *ConstantProduct:
		fee := p.Fee
		return model.PoolRecord{
			Kind:           model.KindConstantProduct,
			Address:        p.PoolAddress.Hex(),
			Token0:         p.Token0.Hex(),
			Token0Decimals: p.Token0Decimals,
			Token1:         p.Token1.Hex(),
			Token1Decimals: p.Token1Decimals,
			Reserve0:       p.Reserve0,
			Reserve1:       p.Reserve1,
			Fee:            &fee,
		}
	case *Hybrid:
		stable := p.ID.Stable
		return model.PoolRecord{
			Kind:           model.KindHybrid,
			Address:        p.Address().Hex(),
			Token0:         p.ID.Token0.Hex(),
			Token0Decimals: p.Token0Decimals,
			Token1:         p.ID.Token1.Hex(),
			Token1Decimals: p.Token1Decimals,
			Reserve0:       p.Reserve0,
			Reserve1:       p.Reserve1,
			Fees: &model.HybridFees{
				LPFeeVolatile:       p.Fees.LPFeeVolatile,
				LPFeeStable:         p.Fees.LPFeeStable,
				ProtocolFeeVolatile: p.Fees.ProtocolFeeVolatile,
				ProtocolFeeStable:   p.Fees.ProtocolFeeStable,
			},
			IsStable: &stable,
			AMM:      p.AMM.Hex(),
		}
	}
	return model.PoolRecord{}
}

// FromRecord rebuilds a pool from its persisted form.
func FromRecord(record model.PoolRecord) (Pool, error) {
	for _, addr := range []string{record.Address, record.Token0, record.Token1} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid address %q", addr)
		}
	}

	switch record.Kind {
	case model.KindConstantProduct:
		if record.Fee == nil {
			return nil, fmt.Errorf("constant product record %s has no fee", record.Address)
		}
		return NewConstantProduct(
			common.HexToAddress(record.Address),
			common.HexToAddress(record.Token0),
			record.Token0Decimals,
			common.HexToAddress(record.Token1),
			record.Token1Decimals,
			record.Reserve0,
			record.Reserve1,
			*record.Fee,
		), nil
	case model.KindHybrid:
		if record.Fees == nil || record.IsStable == nil {
			return nil, fmt.Errorf("hybrid record %s has no fees", record.Address)
		}
		if !common.IsHexAddress(record.AMM) {
			return nil, fmt.Errorf("invalid amm address %q", record.AMM)
		}
		id := PoolID{
			Token0: common.HexToAddress(record.Token0),
			Token1: common.HexToAddress(record.Token1),
			Stable: *record.IsStable,
		}
		if id.Address() != common.HexToAddress(record.Address) {
			return nil, fmt.Errorf("hybrid record %s does not match its pool id", record.Address)
		}
		return NewHybrid(
			common.HexToAddress(record.AMM),
			id,
			record.Token0Decimals,
			record.Token1Decimals,
			record.Reserve0,
			record.Reserve1,
			Fees{
				LPFeeVolatile:       record.Fees.LPFeeVolatile,
				LPFeeStable:         record.Fees.LPFeeStable,
				ProtocolFeeVolatile: record.Fees.ProtocolFeeVolatile,
				ProtocolFeeStable:   record.Fees.ProtocolFeeStable,
			},
		), nil
	default:
		return nil, fmt.Errorf("unknown pool kind %q", record.Kind)
	}
}
