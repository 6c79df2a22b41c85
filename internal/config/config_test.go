package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

func TestParseFactories(t *testing.T) {
	got, err := ParseFactories([]string{
		"v2:0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f:10000835",
		" hybrid:0x2E40f087A6a6E2beF5Be5E5a68bBd5f4EcE0e1aD ",
		"v2:0x1111111111111111111111111111111111111111:5:250",
	}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []FactorySpec{
		{Kind: FactoryConstantProduct, Address: common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"), CreationBlock: 10000835, Fee: 300},
		{Kind: FactoryHybrid, Address: common.HexToAddress("0x2E40f087A6a6E2beF5Be5E5a68bBd5f4EcE0e1aD"), Fee: 300},
		{Kind: FactoryConstantProduct, Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), CreationBlock: 5, Fee: 250},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("factories mismatch: %+v != %+v", got, want)
	}
}

func TestParseFactoriesInvalid(t *testing.T) {
	for _, input := range []string{
		"0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
		"v3:0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
		"v2:not-an-address",
		"v2:0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f:abc",
		"hybrid:0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f:1:30",
	} {
		if _, err := ParseFactories([]string{input}, 300); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestLoadDiscoverPrecedence(t *testing.T) {
	t.Setenv("POOLSIM_STEP", "77")
	t.Setenv("POOLSIM_TOKEN_BLACKLIST", "0x01, 0x02")

	flags := pflag.NewFlagSet("discover", pflag.ContinueOnError)
	flags.Uint64("step", 500, "")
	flags.StringSlice("token-blacklist", nil, "")
	flags.Bool("use-logs", false, "")
	flags.Duration("retry-backoff", time.Second, "")
	if err := flags.Parse([]string{"--use-logs", "--retry-backoff=2s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadDiscover("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Step != 77 {
		t.Fatalf("env should override flag default, got step %d", cfg.Step)
	}
	if !cfg.UseLogs || cfg.RetryBackoff != 2*time.Second {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.TokenBlacklist, []string{"0x01", "0x02"}) {
		t.Fatalf("unexpected blacklist %v", cfg.TokenBlacklist)
	}
	if cfg.Out != "./data/pools.jsonl" || !cfg.CheckpointEnabled || cfg.MaxRetries != 5 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadPriceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poolsim.yaml")
	content := "rpc: http://localhost:8545\nsync: false\nbatch-size: 50\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadPrice(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://localhost:8545" || cfg.Sync || cfg.BatchSize != 50 || cfg.SyncStep != 200 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
