package dex

// OrderDetail is the persistent representation of an open order. It is
// exclusively owned by the order-book store; callers only ever see copies
// returned from Get.
type OrderDetail struct {
	OrderID OrderID

	OrderType OrderType
	OrderSide OrderSide
	CoinSymbol  string
	AssetSymbol string

	// Amounts as submitted on the order tx (see OrderFields for the
	// side×type derivation rules).
	CoinAmount  uint64
	AssetAmount uint64
	Price       uint64

	OrderOpt      OrderOpt
	DexID         DexID
	MatchFeeRatio uint64
	Memo          string

	OwnerRegID RegID
	SrcTxID    OrderID

	// Residuals: the amount still open for matching. An OrderDetail exists
	// in the store iff it has strictly positive residuals on at least one
	// side (buy orders track residual coin, sell orders residual asset).
	ResidualCoinAmount  uint64
	ResidualAssetAmount uint64

	GeneratedHeight uint64

	// Whether the order was accepted with its own match_fee_ratio, and that
	// ratio. At settle time resolveFeeRatio uses it ahead of the operator's
	// maker/taker default, which is still read from the operator registry.
	HasFeeRatioAtOrder bool
	OrderFeeRatio      uint64
}

// Residual returns the order's residual on the side that is decremented by
// settlement: coin for a buy order, asset for a sell order.
func (o *OrderDetail) Residual() uint64 {
	if o.OrderSide == OrderSideBuy {
		return o.ResidualCoinAmount
	}
	return o.ResidualAssetAmount
}

// IsExhausted reports whether the order's residual has reached zero and
// should be erased from the store.
func (o *OrderDetail) IsExhausted() bool {
	return o.Residual() == 0
}
