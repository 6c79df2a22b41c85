package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "POOLSIM"

// ChainConfig holds the RPC settings shared by every command.
type ChainConfig struct {
	RPCURL       string
	Multicall    string
	MaxRetries   int
	RetryBackoff time.Duration
}

// newViper merges config file, environment variables, and flags.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func chainConfig(v *viper.Viper) ChainConfig {
	return ChainConfig{
		RPCURL:       v.GetString("rpc"),
		Multicall:    v.GetString("multicall"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

// FactorySpec identifies one factory to discover.
type FactorySpec struct {
	Kind          string
	Address       common.Address
	CreationBlock uint64
	Fee           uint64
}

const (
	FactoryConstantProduct = "v2"
	FactoryHybrid          = "hybrid"
)

// ParseFactories parses entries of the form kind:address[:creation_block[:fee]].
// kind is v2 or hybrid. fee applies to v2 factories only.
func ParseFactories(inputs []string, defaultFee uint64) ([]FactorySpec, error) {
	specs := make([]FactorySpec, 0, len(inputs))
	for _, input := range cleanStrings(inputs) {
		parts := strings.Split(input, ":")
		if len(parts) < 2 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid factory %q: want kind:address[:creation_block[:fee]]", input)
		}
		spec := FactorySpec{Kind: strings.ToLower(parts[0]), Fee: defaultFee}
		if spec.Kind != FactoryConstantProduct && spec.Kind != FactoryHybrid {
			return nil, fmt.Errorf("invalid factory %q: unknown kind %q", input, parts[0])
		}
		if !common.IsHexAddress(parts[1]) {
			return nil, fmt.Errorf("invalid factory %q: bad address", input)
		}
		spec.Address = common.HexToAddress(parts[1])
		if len(parts) > 2 {
			block, err := strconv.ParseUint(parts[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid factory %q: creation block: %w", input, err)
			}
			spec.CreationBlock = block
		}
		if len(parts) > 3 {
			if spec.Kind != FactoryConstantProduct {
				return nil, fmt.Errorf("invalid factory %q: fee only applies to v2", input)
			}
			fee, err := strconv.ParseUint(parts[3], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid factory %q: fee: %w", input, err)
			}
			spec.Fee = fee
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
