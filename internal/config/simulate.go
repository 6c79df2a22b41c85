package config

import "github.com/spf13/pflag"

// SimulateConfig holds configuration for a swap simulation.
type SimulateConfig struct {
	ChainConfig
	Catalog  string
	PGDSN    string
	Pool     string
	TokenIn  string
	Amounts  []string
	Raw      bool
	Mutate   bool
	Sync     bool
	Block    uint64
	LogLevel string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"catalog": "./data/pools.jsonl",
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		ChainConfig: chainConfig(v),
		Catalog:     v.GetString("catalog"),
		PGDSN:       v.GetString("pg-dsn"),
		Pool:        v.GetString("pool"),
		TokenIn:     v.GetString("token-in"),
		Amounts:     getStringSlice(v, "amount"),
		Raw:         v.GetBool("raw"),
		Mutate:      v.GetBool("mutate"),
		Sync:        v.GetBool("sync"),
		Block:       v.GetUint64("block"),
		LogLevel:    v.GetString("log-level"),
	}, nil
}
