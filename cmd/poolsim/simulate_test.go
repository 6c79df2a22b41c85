package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolSim/internal/amm"
)

var (
	simPool   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	simToken0 = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	simToken1 = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func TestSimulateSwapsRaw(t *testing.T) {
	pool := amm.NewConstantProduct(simPool, simToken0, 18, simToken1, 18, 1_000_000, 1_000_000, 300)

	results, err := simulateSwaps(pool, simToken0, []string{"1000", "1000"}, true, false)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.AmountOut != "996" {
			t.Fatalf("expected 996 out, got %q", res.AmountOut)
		}
		if res.Reserve0 != 1_000_000 || res.Reserve1 != 1_000_000 {
			t.Fatalf("reserves changed without mutate: %d %d", res.Reserve0, res.Reserve1)
		}
		if res.TokenOut != simToken1.Hex() {
			t.Fatalf("unexpected token out %s", res.TokenOut)
		}
	}
}

func TestSimulateSwapsMutate(t *testing.T) {
	pool := amm.NewConstantProduct(simPool, simToken0, 18, simToken1, 18, 1_000_000, 1_000_000, 300)

	results, err := simulateSwaps(pool, simToken0, []string{"1000", "1000"}, true, true)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if results[0].Reserve0 != 1_001_000 || results[0].Reserve1 != 999_004 {
		t.Fatalf("unexpected reserves after first swap: %d %d", results[0].Reserve0, results[0].Reserve1)
	}
	if results[1].AmountOut == "" || results[1].AmountOut == "996" {
		t.Fatalf("second swap should see moved reserves, got %q", results[1].AmountOut)
	}
}

func TestSimulateSwapsFormatted(t *testing.T) {
	pool := amm.NewConstantProduct(simPool, simToken0, 6, simToken1, 6, 1_000_000_000, 1_000_000_000, 300)

	results, err := simulateSwaps(pool, simToken1, []string{"1.5"}, false, false)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if results[0].AmountIn != "1.5" {
		t.Fatalf("expected formatted amount in, got %q", results[0].AmountIn)
	}
	if results[0].TokenOut != simToken0.Hex() {
		t.Fatalf("unexpected token out %s", results[0].TokenOut)
	}
}

func TestSimulateSwapsRejectsForeignToken(t *testing.T) {
	pool := amm.NewConstantProduct(simPool, simToken0, 18, simToken1, 18, 1_000_000, 1_000_000, 300)

	if _, err := simulateSwaps(pool, simPool, []string{"1"}, true, false); err == nil {
		t.Fatalf("expected error for foreign token")
	}
	if _, err := simulateSwaps(pool, simToken0, []string{"-1"}, true, false); err == nil {
		t.Fatalf("expected error for negative raw amount")
	}
}
