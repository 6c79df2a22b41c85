package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"poolSim/internal/model"
)

func record(address string, reserve0 uint64) model.PoolRecord {
	fee := uint64(300)
	return model.PoolRecord{
		Kind:           model.KindConstantProduct,
		Address:        address,
		Token0:         "0x2222222222222222222222222222222222222222",
		Token0Decimals: 18,
		Token1:         "0x3333333333333333333333333333333333333333",
		Token1Decimals: 6,
		Reserve0:       reserve0,
		Reserve1:       7,
		Fee:            &fee,
	}
}

func TestJsonlCatalogKeepsLatestSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pools.jsonl")
	store := NewJsonlStorage(path)
	ctx := context.Background()

	a := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	b := "0x4444444444444444444444444444444444444444"
	if err := store.PutPools(ctx, []model.PoolRecord{record(a, 1), record(b, 2)}); err != nil {
		t.Fatalf("put pools: %v", err)
	}
	if err := store.PutPools(ctx, []model.PoolRecord{record("0x"+strings.ToUpper(a[2:]), 10)}); err != nil {
		t.Fatalf("put pools: %v", err)
	}

	got, err := store.LoadPools(ctx)
	if err != nil {
		t.Fatalf("load pools: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(got))
	}
	if got[0].Reserve0 != 10 || got[1].Reserve0 != 2 {
		t.Fatalf("unexpected snapshots %+v", got)
	}
}

func TestJsonlCatalogMissingFile(t *testing.T) {
	store := NewJsonlStorage(filepath.Join(t.TempDir(), "absent.jsonl"))
	got, err := store.LoadPools(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty catalog, got %v %v", got, err)
	}
}

func TestJsonlCatalogRejectsIncompleteLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.jsonl")
	if err := os.WriteFile(path, []byte(`{"kind":"constant_product","address":"0x1"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := NewJsonlStorage(path).LoadPools(context.Background())
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected parse error for line 1, got %v", err)
	}
}

func TestJsonlPrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.jsonl")
	store := NewJsonlStorage(path)
	prices := []model.PoolPrice{{Pool: "0x1", Price: 1.5}, {Pool: "0x1", Price: 0.6666}}
	if err := store.PutPrices(context.Background(), prices); err != nil {
		t.Fatalf("put prices: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read prices: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}
