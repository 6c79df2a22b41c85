package config

import "github.com/spf13/pflag"

// DiscoverConfig holds configuration for pool discovery.
type DiscoverConfig struct {
	ChainConfig
	Factories         []string
	DefaultFee        uint64
	Block             uint64
	Step              uint64
	Concurrency       int
	UseLogs           bool
	LogBlockStep      uint64
	TokenBlacklist    []string
	PoolBlacklist     []string
	DropEmpty         bool
	Out               string
	PGDSN             string
	Checkpoint        string
	CheckpointEnabled bool
	LogLevel          string
}

// LoadDiscover merges config file, environment variables, and flags into DiscoverConfig.
func LoadDiscover(cfgFile string, flags *pflag.FlagSet) (DiscoverConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"default-fee":        uint64(300),
		"step":               uint64(500),
		"concurrency":        4,
		"log-block-step":     uint64(5000),
		"drop-empty":         true,
		"out":                "./data/pools.jsonl",
		"checkpoint":         "./data/discovery.json",
		"checkpoint-enabled": true,
	})
	if err != nil {
		return DiscoverConfig{}, err
	}

	return DiscoverConfig{
		ChainConfig:       chainConfig(v),
		Factories:         getStringSlice(v, "factory"),
		DefaultFee:        v.GetUint64("default-fee"),
		Block:             v.GetUint64("block"),
		Step:              v.GetUint64("step"),
		Concurrency:       v.GetInt("concurrency"),
		UseLogs:           v.GetBool("use-logs"),
		LogBlockStep:      v.GetUint64("log-block-step"),
		TokenBlacklist:    getStringSlice(v, "token-blacklist"),
		PoolBlacklist:     getStringSlice(v, "pool-blacklist"),
		DropEmpty:         v.GetBool("drop-empty"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}
