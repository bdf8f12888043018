package dex

import "fmt"

// DealItem is one matched fill a settlement transaction applies: a
// matching engine outside this package's scope produced it, core
// only validates and applies it.
type DealItem struct {
	BuyOrderID      OrderID
	SellOrderID     OrderID
	DealPrice       uint64
	DealCoinAmount  uint64
	DealAssetAmount uint64
}

// SettleTx applies a batch of deal items against the order book. The Ex
// variant additionally carries a memo and operator co-signature; both
// share the same execution path, parameterized by the IsEx flag, mirroring
// the OrderTx tagged-variant design.
type SettleTx struct {
	Envelope Envelope
	DexID    DexID
	Deals    []DealItem

	IsEx        bool
	Public      bool // Ex only: settling public orders, so an operator co-signature is optional rather than required
	Memo        string
	OperatorSig *SignaturePair
}

func (tx *SettleTx) Kind() TxKind {
	if tx.IsEx {
		return KindSettleEx
	}
	return KindSettle
}

// Digest hashes the version, tx_type, envelope, dex_id, and deal list; the
// Ex public flag, memo, and operator RegID (not the operator's signature
// bytes) are folded in for SettleExTx.
func (tx *SettleTx) Digest() [32]byte {
	w := &byteWriter{}
	w.varint(tx.Envelope.Version).
		u8(byte(tx.Kind())).
		varint(tx.Envelope.ValidHeight).
		fixed(tx.Envelope.PayerUID.Bytes()).
		str(tx.Envelope.FeeSymbol).
		varint(tx.Envelope.FeeAmount).
		varint(uint64(tx.DexID)).
		varint(uint64(len(tx.Deals)))
	for _, d := range tx.Deals {
		w.fixed(d.BuyOrderID[:]).
			fixed(d.SellOrderID[:]).
			varint(d.DealPrice).
			varint(d.DealCoinAmount).
			varint(d.DealAssetAmount)
	}
	if tx.IsEx {
		w.u8(boolByte(tx.Public)).str(tx.Memo)
		if tx.OperatorSig != nil {
			w.fixed(tx.OperatorSig.RegID.Bytes())
		} else {
			w.fixed(ZeroRegID.Bytes())
		}
	}
	return keccak(w.Bytes())
}

// GetTakerOrderSide resolves which side of a deal is the taker: the order
// with the strictly larger generated_height was placed
// later and is therefore the one that crossed the book; a tie (both orders
// resting since before this settlement, or placed in the same block) is
// broken in favor of the sell side.
func GetTakerOrderSide(buy, sell *OrderDetail) OrderSide {
	if buy.GeneratedHeight > sell.GeneratedHeight {
		return OrderSideBuy
	}
	return OrderSideSell
}

// resolveFeeRatio picks the fee ratio applied to one side of a deal:
// an explicit per-order ratio set at
// acceptance time wins; otherwise the operator's maker/taker default
// applies depending on whether this order is the taker of this deal.
func resolveFeeRatio(order *OrderDetail, op DexOperator, isTaker bool) uint64 {
	if order.HasFeeRatioAtOrder {
		return order.OrderFeeRatio
	}
	if isTaker {
		return op.TakerFeeRatio
	}
	return op.MakerFeeRatio
}

// ExecuteSettle verifies the payer's signature, charges the flat
// transaction fee, then applies every deal item in tx against cw, per
// item:
//  1. load both orders, failing with ORDER_NOT_FOUND if either is absent
//  2. the orders must be opposite sides of the same (coin, asset) pair
//  3. both orders must share tx's dex_id
//  4. the deal price must respect the limit order's bound (if any) and lie
//     within the pair's registered price range
//  5. the deal amounts must be internally consistent with dealPrice
//     (CalcCoinAmount(dealAssetAmount, dealPrice) == dealCoinAmount)
//  6. neither order's residual may be exceeded
//  7. apply the transfer: buyer's frozen coin -> seller's free coin (minus
//     seller's fee, paid in coin), seller's frozen asset -> buyer's free
//     asset (minus buyer's fee, paid in asset); fees go to the operator's
//     fee receiver, or to ZeroRegID on the reserved dex
//  8. update both orders' residuals, erasing either that is now exhausted
//
// A failure at any item aborts the whole transaction; no partial set of
// deal items is ever applied (cw is only ever committed by the caller once
// every item has succeeded).
//
// An Ex settlement against a non-reserved dex requires an operator
// co-signature unless Public is set, in which case one may still be
// carried and is verified if present (mirroring the order-path rule).
func ExecuteSettle(cw *CacheWrapper, pairs AssetRegistry, tx *SettleTx, verifyOperatorSig func(tx *SettleTx, op DexOperator) error, verifyPayerSig func(payer RegID, digest [32]byte, signature []byte) error) error {
	if verifyPayerSig != nil {
		if err := verifyPayerSig(tx.Envelope.PayerUID, tx.Digest(), tx.Envelope.Signature); err != nil {
			return err
		}
	}
	if err := cw.ChargeFee(tx.Envelope.PayerUID, tx.Envelope.FeeSymbol, tx.Envelope.FeeAmount, ZeroRegID); err != nil {
		return err
	}

	var op DexOperator
	if tx.DexID != DexReservedID {
		var err error
		op, err = CheckDexOperatorExist(cw, tx.DexID)
		if err != nil {
			return err
		}
		if tx.IsEx {
			if !tx.Public && (tx.OperatorSig == nil || tx.OperatorSig.RegID != op.OwnerRegID) {
				return reject(ReasonOperatorAuthFailed, "dex_id %d requires a co-signature from %s", tx.DexID, op.OwnerRegID.Hex())
			}
			if tx.OperatorSig != nil {
				if tx.OperatorSig.RegID != op.OwnerRegID {
					return reject(ReasonOperatorAuthFailed, "dex_id %d co-signature does not match operator %s", tx.DexID, op.OwnerRegID.Hex())
				}
				if verifyOperatorSig != nil {
					if err := verifyOperatorSig(tx, op); err != nil {
						return err
					}
				}
			}
		}
	}

	for i := range tx.Deals {
		if err := applyDeal(cw, pairs, &tx.Deals[i], tx.DexID, op); err != nil {
			return err
		}
	}
	return nil
}

func applyDeal(cw *CacheWrapper, pairs AssetRegistry, deal *DealItem, dexID DexID, op DexOperator) error {
	buy, ok := cw.GetOrder(deal.BuyOrderID)
	if !ok {
		return reject(ReasonOrderNotFound, "buy order %x", deal.BuyOrderID)
	}
	sell, ok := cw.GetOrder(deal.SellOrderID)
	if !ok {
		return reject(ReasonOrderNotFound, "sell order %x", deal.SellOrderID)
	}

	if buy.OrderSide != OrderSideBuy || sell.OrderSide != OrderSideSell {
		return reject(ReasonOrderSideMismatch, "deal buy/sell order_id roles reversed")
	}
	if buy.CoinSymbol != sell.CoinSymbol || buy.AssetSymbol != sell.AssetSymbol {
		return reject(ReasonOrderPairMismatch, "buy pair %s/%s != sell pair %s/%s", buy.CoinSymbol, buy.AssetSymbol, sell.CoinSymbol, sell.AssetSymbol)
	}
	if buy.DexID != dexID || sell.DexID != dexID {
		return reject(ReasonOrderDexMismatch, "deal dex_id %d does not match both orders (%d, %d)", dexID, buy.DexID, sell.DexID)
	}

	pair, ok := pairs.Pair(buy.CoinSymbol, buy.AssetSymbol)
	if !ok {
		return reject(ReasonOrderPairMismatch, "pair %s/%s is no longer registered", buy.CoinSymbol, buy.AssetSymbol)
	}
	if err := CheckOrderPriceRange("deal", pair, deal.DealPrice); err != nil {
		return err
	}
	if buy.OrderType == OrderTypeLimit && deal.DealPrice > buy.Price {
		return reject(ReasonDealPriceOOB, "deal price %d exceeds buy limit %d", deal.DealPrice, buy.Price)
	}
	if sell.OrderType == OrderTypeLimit && deal.DealPrice < sell.Price {
		return reject(ReasonDealPriceOOB, "deal price %d below sell limit %d", deal.DealPrice, sell.Price)
	}

	expectedCoin, err := CalcCoinAmount(deal.DealAssetAmount, deal.DealPrice)
	if err != nil {
		return err
	}
	if expectedCoin != deal.DealCoinAmount {
		return reject(ReasonDealAmountBad, "deal_coin_amount %d != calc(%d, %d)=%d", deal.DealCoinAmount, deal.DealAssetAmount, deal.DealPrice, expectedCoin)
	}

	if deal.DealCoinAmount > buy.ResidualCoinAmount {
		return reject(ReasonDealResidualExc, "buy order %x residual coin %d < deal %d", deal.BuyOrderID, buy.ResidualCoinAmount, deal.DealCoinAmount)
	}
	if deal.DealAssetAmount > sell.ResidualAssetAmount {
		return reject(ReasonDealResidualExc, "sell order %x residual asset %d < deal %d", deal.SellOrderID, sell.ResidualAssetAmount, deal.DealAssetAmount)
	}

	takerSide := GetTakerOrderSide(buy, sell)
	buyFeeRatio := resolveFeeRatio(buy, op, takerSide == OrderSideBuy)
	sellFeeRatio := resolveFeeRatio(sell, op, takerSide == OrderSideSell)

	buyFee, err := CalcOrderFee(deal.DealAssetAmount, buyFeeRatio)
	if err != nil {
		return err
	}
	sellFee, err := CalcOrderFee(deal.DealCoinAmount, sellFeeRatio)
	if err != nil {
		return err
	}
	if buyFee > deal.DealAssetAmount || sellFee > deal.DealCoinAmount {
		return reject(ReasonInvalidFee, "computed fee exceeds deal amount")
	}

	feeReceiver := op.FeeReceiverRegID
	if dexID == DexReservedID {
		feeReceiver = ZeroRegID
	}

	// coin: buyer's frozen -> seller's free, minus seller's coin-side fee
	if err := cw.TransferFrozen(buy.OwnerRegID, sell.OwnerRegID, buy.CoinSymbol, deal.DealCoinAmount-sellFee); err != nil {
		return err
	}
	if sellFee > 0 {
		if err := cw.TransferFrozen(buy.OwnerRegID, feeReceiver, buy.CoinSymbol, sellFee); err != nil {
			return err
		}
	}
	// asset: seller's frozen -> buyer's free, minus buyer's asset-side fee
	if err := cw.TransferFrozen(sell.OwnerRegID, buy.OwnerRegID, sell.AssetSymbol, deal.DealAssetAmount-buyFee); err != nil {
		return err
	}
	if buyFee > 0 {
		if err := cw.TransferFrozen(sell.OwnerRegID, feeReceiver, sell.AssetSymbol, buyFee); err != nil {
			return err
		}
	}

	buy.ResidualCoinAmount -= deal.DealCoinAmount
	sell.ResidualAssetAmount -= deal.DealAssetAmount

	if buy.IsExhausted() {
		cw.EraseOrder(buy.OrderID)
	} else {
		cw.PutOrder(buy)
	}
	if sell.IsExhausted() {
		cw.EraseOrder(sell.OrderID)
	} else {
		cw.PutOrder(sell)
	}
	return nil
}

// Encode produces the wire form: digest-covered fields followed by the
// payer's signature and, for SettleExTx, the operator's co-signature.
func (tx *SettleTx) Encode() []byte {
	w := &byteWriter{}
	w.u8(byte(tx.Kind())).
		varint(tx.Envelope.Version).
		varint(tx.Envelope.ValidHeight).
		fixed(tx.Envelope.PayerUID.Bytes()).
		str(tx.Envelope.FeeSymbol).
		varint(tx.Envelope.FeeAmount).
		varint(uint64(tx.DexID)).
		varint(uint64(len(tx.Deals)))
	for _, d := range tx.Deals {
		w.fixed(d.BuyOrderID[:]).
			fixed(d.SellOrderID[:]).
			varint(d.DealPrice).
			varint(d.DealCoinAmount).
			varint(d.DealAssetAmount)
	}
	if tx.IsEx {
		w.u8(boolByte(tx.Public)).str(tx.Memo)
		if tx.OperatorSig != nil {
			w.fixed(tx.OperatorSig.RegID.Bytes()).varint(uint64(len(tx.OperatorSig.Signature))).bytesRaw(tx.OperatorSig.Signature)
		} else {
			w.fixed(ZeroRegID.Bytes()).varint(0)
		}
	}
	w.varint(uint64(len(tx.Envelope.Signature))).bytesRaw(tx.Envelope.Signature)
	return w.Bytes()
}

// DecodeSettleTx parses the wire form produced by Encode.
func DecodeSettleTx(buf []byte) (*SettleTx, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("empty settle tx buffer")
	}
	kindByte := TxKind(buf[0])
	if kindByte != KindSettle && kindByte != KindSettleEx {
		return nil, fmt.Errorf("not a settle tx: kind byte %d", buf[0])
	}
	tx := &SettleTx{IsEx: kindByte == KindSettleEx}
	pos := 1
	var n int
	var err error

	if tx.Envelope.Version, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	pos += n
	if tx.Envelope.ValidHeight, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("valid_height: %w", err)
	}
	pos += n
	if pos+20 > len(buf) {
		return nil, fmt.Errorf("truncated payer_uid")
	}
	tx.Envelope.PayerUID = RegID(buf[pos : pos+20])
	pos += 20
	if tx.Envelope.FeeSymbol, n, err = decodeString(buf[pos:]); err != nil {
		return nil, fmt.Errorf("fee_symbol: %w", err)
	}
	pos += n
	if tx.Envelope.FeeAmount, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("fee_amount: %w", err)
	}
	pos += n

	var dexID uint64
	if dexID, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("dex_id: %w", err)
	}
	tx.DexID = DexID(dexID)
	pos += n

	var dealCount uint64
	if dealCount, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("deal count: %w", err)
	}
	pos += n

	tx.Deals = make([]DealItem, dealCount)
	for i := range tx.Deals {
		d := &tx.Deals[i]
		if pos+64 > len(buf) {
			return nil, fmt.Errorf("truncated deal item %d order ids", i)
		}
		copy(d.BuyOrderID[:], buf[pos:pos+32])
		pos += 32
		copy(d.SellOrderID[:], buf[pos:pos+32])
		pos += 32
		if d.DealPrice, n, err = decodeVarint(buf[pos:]); err != nil {
			return nil, fmt.Errorf("deal %d price: %w", i, err)
		}
		pos += n
		if d.DealCoinAmount, n, err = decodeVarint(buf[pos:]); err != nil {
			return nil, fmt.Errorf("deal %d coin_amount: %w", i, err)
		}
		pos += n
		if d.DealAssetAmount, n, err = decodeVarint(buf[pos:]); err != nil {
			return nil, fmt.Errorf("deal %d asset_amount: %w", i, err)
		}
		pos += n
	}

	if tx.IsEx {
		if pos+1 > len(buf) {
			return nil, fmt.Errorf("truncated settle public flag")
		}
		tx.Public = buf[pos] != 0
		pos++
		if tx.Memo, n, err = decodeString(buf[pos:]); err != nil {
			return nil, fmt.Errorf("memo: %w", err)
		}
		pos += n
		if pos+20 > len(buf) {
			return nil, fmt.Errorf("truncated operator regid")
		}
		opRegID := RegID(buf[pos : pos+20])
		pos += 20
		var sigLen uint64
		if sigLen, n, err = decodeVarint(buf[pos:]); err != nil {
			return nil, fmt.Errorf("operator sig length: %w", err)
		}
		pos += n
		if pos+int(sigLen) > len(buf) {
			return nil, fmt.Errorf("truncated operator signature")
		}
		if opRegID != ZeroRegID || sigLen != 0 {
			sig := make([]byte, sigLen)
			copy(sig, buf[pos:pos+int(sigLen)])
			tx.OperatorSig = &SignaturePair{RegID: opRegID, Signature: sig}
		}
		pos += int(sigLen)
	}

	var sigLen uint64
	if sigLen, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("payer sig length: %w", err)
	}
	pos += n
	if pos+int(sigLen) > len(buf) {
		return nil, fmt.Errorf("truncated payer signature")
	}
	tx.Envelope.Signature = make([]byte, sigLen)
	copy(tx.Envelope.Signature, buf[pos:pos+int(sigLen)])

	return tx, nil
}
