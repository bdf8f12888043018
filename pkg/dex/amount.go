package dex

import "math/big"

// PriceScale is the fixed-point denominator for the price field: a wire
// price of priceRaw represents the ratio priceRaw/PriceScale coin per asset.
const PriceScale uint64 = 1e8

// FeeRatioScale is the fixed-point denominator for fee ratios.
const FeeRatioScale uint64 = 1e8

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// CalcCoinAmount derives the coin amount a buyer locks for assetAmount units
// of asset at priceRaw (raw price, scaled by PriceScale). Rounding is floor,
// per the canonical consensus rule: this is the amount a
// buyer is required to freeze, not the amount a seller is owed.
//
// Uses big.Int for the intermediate product so overflow of the uint64
// multiplication is detected rather than silently wrapping.
func CalcCoinAmount(assetAmount, priceRaw uint64) (uint64, error) {
	product := new(big.Int).Mul(new(big.Int).SetUint64(assetAmount), new(big.Int).SetUint64(priceRaw))
	if product.Cmp(maxUint64) > 0 {
		return 0, reject(ReasonInvalidAmount, "coin amount overflow: asset=%d price=%d", assetAmount, priceRaw)
	}
	coin := new(big.Int).Div(product, new(big.Int).SetUint64(PriceScale))
	if coin.Cmp(maxUint64) > 0 {
		return 0, reject(ReasonInvalidAmount, "coin amount overflow: asset=%d price=%d", assetAmount, priceRaw)
	}
	return coin.Uint64(), nil
}

// CalcOrderFee computes floor(amount * feeRatio / FeeRatioScale), detecting
// overflow of the intermediate product.
func CalcOrderFee(amount, feeRatio uint64) (uint64, error) {
	product := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(feeRatio))
	if product.Cmp(maxUint64) > 0 {
		return 0, reject(ReasonInvalidFee, "fee overflow: amount=%d ratio=%d", amount, feeRatio)
	}
	fee := new(big.Int).Div(product, new(big.Int).SetUint64(FeeRatioScale))
	if fee.Cmp(maxUint64) > 0 {
		return 0, reject(ReasonInvalidFee, "fee overflow: amount=%d ratio=%d", amount, feeRatio)
	}
	return fee.Uint64(), nil
}

// CheckOrderAmountRange rejects amounts outside [meta.MinAmount, meta.MaxAmount].
func CheckOrderAmountRange(title string, meta AssetMeta, amount uint64) error {
	if amount < meta.MinAmount {
		return reject(ReasonInvalidAmount, "%s: amount %d below minimum %d for %s", title, amount, meta.MinAmount, meta.Symbol)
	}
	if meta.MaxAmount > 0 && amount > meta.MaxAmount {
		return reject(ReasonInvalidAmount, "%s: amount %d exceeds maximum %d for %s", title, amount, meta.MaxAmount, meta.Symbol)
	}
	return nil
}

// CheckOrderPriceRange rejects a price outside [pair.MinPrice, pair.MaxPrice].
func CheckOrderPriceRange(title string, pair TradingPair, price uint64) error {
	if price < pair.MinPrice {
		return reject(ReasonInvalidPrice, "%s: price %d below minimum %d for %s/%s", title, price, pair.MinPrice, pair.Coin, pair.Asset)
	}
	if pair.MaxPrice > 0 && price > pair.MaxPrice {
		return reject(ReasonInvalidPrice, "%s: price %d exceeds maximum %d for %s/%s", title, price, pair.MaxPrice, pair.Coin, pair.Asset)
	}
	return nil
}
