package config

import "github.com/spf13/pflag"

// PriceConfig holds configuration for a pricing run.
type PriceConfig struct {
	ChainConfig
	Catalog   string
	PGDSN     string
	Out       string
	Block     uint64
	Sync      bool
	SyncStep  uint64
	BatchSize int
	LogLevel  string
}

// LoadPrice merges config file, environment variables, and flags into PriceConfig.
func LoadPrice(cfgFile string, flags *pflag.FlagSet) (PriceConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"catalog":    "./data/pools.jsonl",
		"out":        "./data/prices.jsonl",
		"sync":       true,
		"sync-step":  uint64(200),
		"batch-size": 1000,
	})
	if err != nil {
		return PriceConfig{}, err
	}

	return PriceConfig{
		ChainConfig: chainConfig(v),
		Catalog:     v.GetString("catalog"),
		PGDSN:       v.GetString("pg-dsn"),
		Out:         v.GetString("out"),
		Block:       v.GetUint64("block"),
		Sync:        v.GetBool("sync"),
		SyncStep:    v.GetUint64("sync-step"),
		BatchSize:   v.GetInt("batch-size"),
		LogLevel:    v.GetString("log-level"),
	}, nil
}
