package filter

import (
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolSim/internal/amm"
)

var (
	usdc = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	weth = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	scam = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	amm1 = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

func samplePools() []amm.Pool {
	return []amm.Pool{
		amm.NewConstantProduct(common.HexToAddress("0x01"), usdc, 6, weth, 18, 10, 20, 300),
		amm.NewConstantProduct(common.HexToAddress("0x02"), scam, 18, weth, 18, 10, 20, 300),
		amm.NewHybrid(amm1, amm.PoolID{Token0: usdc, Token1: scam, Stable: true}, 6, 18, 1, 1, amm.Fees{}),
		amm.NewHybrid(amm1, amm.PoolID{Token0: usdc, Token1: weth}, 6, 18, 0, 0, amm.Fees{}),
		amm.NewConstantProduct(common.HexToAddress("0x05"), common.Address{}, 0, common.Address{}, 0, 0, 0, 300),
	}
}

func addresses(pools []amm.Pool) []common.Address {
	out := make([]common.Address, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Address())
	}
	return out
}

func TestBlacklistedTokens(t *testing.T) {
	pools := samplePools()
	got := BlacklistedTokens(pools, []common.Address{scam})
	want := []common.Address{pools[0].Address(), pools[3].Address(), pools[4].Address()}
	if !reflect.DeepEqual(addresses(got), want) {
		t.Fatalf("filtered mismatch: %v != %v", addresses(got), want)
	}
}

func TestBlacklistIdempotent(t *testing.T) {
	blacklist := []common.Address{scam, weth}
	once := BlacklistedTokens(samplePools(), blacklist)
	twice := BlacklistedTokens(once, blacklist)
	if !reflect.DeepEqual(addresses(once), addresses(twice)) {
		t.Fatalf("token filter not idempotent: %v != %v", addresses(once), addresses(twice))
	}

	pools := samplePools()
	poolList := []common.Address{pools[1].Address(), pools[2].Address()}
	once = BlacklistedPools(pools, poolList)
	twice = BlacklistedPools(once, poolList)
	if len(once) != 3 || !reflect.DeepEqual(addresses(once), addresses(twice)) {
		t.Fatalf("pool filter not idempotent: %v != %v", addresses(once), addresses(twice))
	}
}

func TestEmptyPools(t *testing.T) {
	got := EmptyPools(samplePools())
	if len(got) != 4 {
		t.Fatalf("expected 4 pools, got %d", len(got))
	}
	for _, p := range got {
		if p.Address() == common.HexToAddress("0x05") {
			t.Fatalf("zero-token pool was kept")
		}
	}
}

func TestEmptyReserves(t *testing.T) {
	pools := samplePools()
	got := EmptyReserves(pools)
	want := []common.Address{pools[0].Address(), pools[1].Address(), pools[2].Address()}
	if !reflect.DeepEqual(addresses(got), want) {
		t.Fatalf("filtered mismatch: %v != %v", addresses(got), want)
	}
}
