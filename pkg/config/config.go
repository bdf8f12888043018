// Package config loads node bootstrap configuration: a Default() baseline
// overridden by .env/environment variables via joho/godotenv, priority
// ENV > .env > defaults.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AssetConfig seeds one registered token's amount bounds.
type AssetConfig struct {
	Symbol    string
	MinAmount uint64
	MaxAmount uint64
}

// PairConfig seeds one registered (coin, asset) trading pair's price bounds.
type PairConfig struct {
	Coin     string
	Asset    string
	MinPrice uint64
	MaxPrice uint64
}

// OperatorConfig seeds one registered DEX operator.
type OperatorConfig struct {
	DexID            uint64
	OwnerRegID       string
	FeeReceiverRegID string
	MakerFeeRatio    uint64
	TakerFeeRatio    uint64
	MaxFeeRatio      uint64
	AllowPublic      bool
}

// Storage configures where the node's Pebble database and log file live.
type Storage struct {
	DBPath  string
	LogPath string
}

type Config struct {
	Storage   Storage
	Assets    []AssetConfig
	Pairs     []PairConfig
	Operators []OperatorConfig
}

func Default() Config {
	return Config{
		Storage: Storage{
			DBPath:  "./data/dexcore.db",
			LogPath: "./data/dexcore.log",
		},
		Assets: []AssetConfig{
			{Symbol: "WICC", MinAmount: 1, MaxAmount: 0},
			{Symbol: "WUSD", MinAmount: 1, MaxAmount: 0},
		},
		Pairs: []PairConfig{
			{Coin: "WUSD", Asset: "WICC", MinPrice: 1, MaxPrice: 0},
		},
		Operators: nil,
	}
}

// LoadFromEnv loads configuration from an optional .env file and
// environment variables, overlaying Default(). Priority: ENV > .env file >
// defaults, priority: ENV > .env file > hardcoded defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("DEXCORE_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("DEXCORE_LOG_PATH"); v != "" {
		cfg.Storage.LogPath = v
	}
	if v := os.Getenv("DEXCORE_ASSETS"); v != "" {
		cfg.Assets = parseAssets(v)
	}

	return cfg
}

// parseAssets parses a "SYMBOL:min:max,SYMBOL:min:max" override string.
func parseAssets(v string) []AssetConfig {
	var out []AssetConfig
	for _, entry := range strings.Split(v, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			continue
		}
		minA, err1 := strconv.ParseUint(parts[1], 10, 64)
		maxA, err2 := strconv.ParseUint(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, AssetConfig{Symbol: parts[0], MinAmount: minA, MaxAmount: maxA})
	}
	return out
}
