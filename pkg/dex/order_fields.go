package dex

// OrderFields is the side/type-independent projection of an order
// transaction's payload, used to drive the single shared ProcessOrder
// pipeline instead of
// duplicating the eight-way validation logic once per concrete kind.
//
// Exactly one of CoinAmount/AssetAmount is the field the submitter actually
// supplied on the wire; the other is left zero until Derive fills it in.
// Which one is authoritative is determined by OrderType/OrderSide:
//
//   - buy + limit:   AssetAmount is authoritative, Price is set, CoinAmount
//     is derived as CalcCoinAmount(AssetAmount, Price) — the amount frozen.
//   - buy + market:  CoinAmount is authoritative (the amount the buyer is
//     willing to spend), Price is zero, AssetAmount is unknown until settle.
//   - sell + limit:  AssetAmount is authoritative, Price is set, CoinAmount
//     is the nominal proceeds at that price (informational only; the seller
//     freezes AssetAmount, not CoinAmount).
//   - sell + market: AssetAmount is authoritative, Price is zero.
type OrderFields struct {
	Kind TxKind

	Envelope Envelope

	OrderType OrderType
	OrderSide OrderSide

	CoinSymbol  string
	AssetSymbol string

	CoinAmount  uint64
	AssetAmount uint64
	Price       uint64

	OrderOpt      OrderOpt
	DexID         DexID
	MatchFeeRatio uint64 // meaningful only if OrderOpt.HasFeeRatio()

	Memo string // Ex variants only; basic variants always carry ""

	OperatorSig *SignaturePair // non-nil only on Ex variants targeting a non-reserved dex

	SrcTxID OrderID
}

// IsExVariant reports whether this kind carries the extended fields (memo,
// operator signature).
func (k TxKind) IsExVariant() bool {
	switch k {
	case KindBuyLimitEx, KindSellLimitEx, KindBuyMarketEx, KindSellMarketEx, KindSettleEx:
		return true
	default:
		return false
	}
}

// Derive fills in the non-authoritative amount field and validates the
// type/side-specific shape of the payload. It does not consult the trading
// pair's or assets' registered metadata — Derive only checks internal
// consistency of the fields themselves.
func (f *OrderFields) Derive() error {
	switch {
	case f.OrderSide == OrderSideBuy && f.OrderType == OrderTypeLimit:
		if f.Price == 0 {
			return reject(ReasonInvalidPrice, "buy-limit order requires a nonzero price")
		}
		if f.AssetAmount == 0 {
			return reject(ReasonInvalidAmount, "buy-limit order requires a nonzero asset_amount")
		}
		coin, err := CalcCoinAmount(f.AssetAmount, f.Price)
		if err != nil {
			return err
		}
		f.CoinAmount = coin

	case f.OrderSide == OrderSideBuy && f.OrderType == OrderTypeMarket:
		if f.Price != 0 {
			return reject(ReasonInvalidPrice, "buy-market order must carry a zero price")
		}
		if f.CoinAmount == 0 {
			return reject(ReasonInvalidAmount, "buy-market order requires a nonzero coin_amount")
		}
		f.AssetAmount = 0

	case f.OrderSide == OrderSideSell && f.OrderType == OrderTypeLimit:
		if f.Price == 0 {
			return reject(ReasonInvalidPrice, "sell-limit order requires a nonzero price")
		}
		if f.AssetAmount == 0 {
			return reject(ReasonInvalidAmount, "sell-limit order requires a nonzero asset_amount")
		}
		coin, err := CalcCoinAmount(f.AssetAmount, f.Price)
		if err != nil {
			return err
		}
		f.CoinAmount = coin

	case f.OrderSide == OrderSideSell && f.OrderType == OrderTypeMarket:
		if f.Price != 0 {
			return reject(ReasonInvalidPrice, "sell-market order must carry a zero price")
		}
		if f.AssetAmount == 0 {
			return reject(ReasonInvalidAmount, "sell-market order requires a nonzero asset_amount")
		}
		f.CoinAmount = 0

	default:
		return reject(ReasonInvalidOrderOpt, "unrecognized order side/type combination")
	}
	return nil
}

// FreezeAmountSymbol returns the (symbol, amount) the submitter must have
// frozen in order to place this order: buyers freeze
// coin, sellers freeze asset.
func (f *OrderFields) FreezeAmountSymbol() (symbol string, amount uint64) {
	if f.OrderSide == OrderSideBuy {
		return f.CoinSymbol, f.CoinAmount
	}
	return f.AssetSymbol, f.AssetAmount
}

// ToOrderDetail builds the persistent OrderDetail this order produces once
// it is accepted. resolvedFeeRatio and hasFeeRatio describe the resolved
// fee policy in effect at acceptance time.
func (f *OrderFields) ToOrderDetail(orderID OrderID, height uint64, resolvedFeeRatio uint64, hasFeeRatio bool) *OrderDetail {
	d := &OrderDetail{
		OrderID:            orderID,
		OrderType:          f.OrderType,
		OrderSide:          f.OrderSide,
		CoinSymbol:         f.CoinSymbol,
		AssetSymbol:        f.AssetSymbol,
		CoinAmount:         f.CoinAmount,
		AssetAmount:        f.AssetAmount,
		Price:              f.Price,
		OrderOpt:           f.OrderOpt,
		DexID:              f.DexID,
		MatchFeeRatio:      f.MatchFeeRatio,
		Memo:               f.Memo,
		OwnerRegID:         f.Envelope.PayerUID,
		SrcTxID:            orderID,
		GeneratedHeight:    height,
		HasFeeRatioAtOrder: hasFeeRatio,
		OrderFeeRatio:      resolvedFeeRatio,
	}
	if f.OrderSide == OrderSideBuy {
		d.ResidualCoinAmount = f.CoinAmount
	} else {
		d.ResidualAssetAmount = f.AssetAmount
	}
	return d
}
