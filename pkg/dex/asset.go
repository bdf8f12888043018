package dex

import (
	"regexp"
)

// symbolPattern matches conventional token-symbol formatting: uppercase
// alphanumerics, 1-to-12 characters (tokens like "BTC", "WICC", "USDT").
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// ValidateSymbol checks that symbol is a well-formed token symbol. It does
// not check registration; callers must additionally consult an
// AssetRegistry.
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return reject(ReasonInvalidSymbol, "malformed token symbol %q", symbol)
	}
	return nil
}

// AssetMeta is the registered metadata for one token symbol: the amount
// bounds an order on this token is allowed to carry.
type AssetMeta struct {
	Symbol    string
	MinAmount uint64
	MaxAmount uint64 // 0 means unbounded
}

// TradingPair is a registered (coin, asset) pair plus the price bounds that
// apply to limit orders quoted in coin-per-asset on this pair.
type TradingPair struct {
	Coin     string
	Asset    string
	MinPrice uint64
	MaxPrice uint64 // 0 means unbounded
}

// AssetRegistry is the external collaborator exposing registered token and
// trading-pair metadata. Persistent storage of this metadata is out of
// scope for this package; pkg/store provides an
// implementation.
type AssetRegistry interface {
	Asset(symbol string) (AssetMeta, bool)
	Pair(coin, asset string) (TradingPair, bool)
}

// CheckOrderSymbols validates that coin and asset are both registered and
// distinct, and that (coin, asset) is a permitted trading pair.
func CheckOrderSymbols(registry AssetRegistry, coinSymbol, assetSymbol string) (TradingPair, error) {
	if err := ValidateSymbol(coinSymbol); err != nil {
		return TradingPair{}, err
	}
	if err := ValidateSymbol(assetSymbol); err != nil {
		return TradingPair{}, err
	}
	if coinSymbol == assetSymbol {
		return TradingPair{}, reject(ReasonInvalidSymbol, "coin and asset symbols must differ: %s", coinSymbol)
	}
	if _, ok := registry.Asset(coinSymbol); !ok {
		return TradingPair{}, reject(ReasonInvalidSymbol, "unregistered coin symbol %s", coinSymbol)
	}
	if _, ok := registry.Asset(assetSymbol); !ok {
		return TradingPair{}, reject(ReasonInvalidSymbol, "unregistered asset symbol %s", assetSymbol)
	}
	pair, ok := registry.Pair(coinSymbol, assetSymbol)
	if !ok {
		return TradingPair{}, reject(ReasonInvalidSymbol, "trading pair %s/%s is not permitted", coinSymbol, assetSymbol)
	}
	return pair, nil
}
