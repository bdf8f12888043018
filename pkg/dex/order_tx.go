package dex

import (
	"fmt"
)

// OrderTx is the tagged-variant representation of a concrete order
// transaction: a single struct carrying a TxKind discriminator
// plus the OrderFields projection, rather than eight separate classes in a
// virtual-dispatch hierarchy. Kind() drives every side/type-specific
// decision in Digest/Encode/Decode and in ProcessOrder.
type OrderTx struct {
	kind   TxKind
	Fields OrderFields
}

// NewBuyLimitTx, NewBuyLimitExTx, ... construct the eight concrete order
// kinds. They are thin constructors over the single tagged OrderTx
// representation; Fields.OrderType/OrderSide must already be set
// consistently with the kind (Validate checks this).
func NewBuyLimitTx(f OrderFields) *OrderTx     { f.Kind = KindBuyLimit; return &OrderTx{kind: KindBuyLimit, Fields: f} }
func NewBuyLimitExTx(f OrderFields) *OrderTx   { f.Kind = KindBuyLimitEx; return &OrderTx{kind: KindBuyLimitEx, Fields: f} }
func NewSellLimitTx(f OrderFields) *OrderTx    { f.Kind = KindSellLimit; return &OrderTx{kind: KindSellLimit, Fields: f} }
func NewSellLimitExTx(f OrderFields) *OrderTx  { f.Kind = KindSellLimitEx; return &OrderTx{kind: KindSellLimitEx, Fields: f} }
func NewBuyMarketTx(f OrderFields) *OrderTx    { f.Kind = KindBuyMarket; return &OrderTx{kind: KindBuyMarket, Fields: f} }
func NewBuyMarketExTx(f OrderFields) *OrderTx  { f.Kind = KindBuyMarketEx; return &OrderTx{kind: KindBuyMarketEx, Fields: f} }
func NewSellMarketTx(f OrderFields) *OrderTx   { f.Kind = KindSellMarket; return &OrderTx{kind: KindSellMarket, Fields: f} }
func NewSellMarketExTx(f OrderFields) *OrderTx { f.Kind = KindSellMarketEx; return &OrderTx{kind: KindSellMarketEx, Fields: f} }

func (tx *OrderTx) Kind() TxKind { return tx.kind }

// expectedShape reports the (side, type) an OrderTx's kind implies, so
// Validate can catch a Fields struct that was assembled inconsistently with
// the kind it was tagged with.
func (k TxKind) expectedShape() (OrderSide, OrderType, bool) {
	switch k {
	case KindBuyLimit, KindBuyLimitEx:
		return OrderSideBuy, OrderTypeLimit, true
	case KindSellLimit, KindSellLimitEx:
		return OrderSideSell, OrderTypeLimit, true
	case KindBuyMarket, KindBuyMarketEx:
		return OrderSideBuy, OrderTypeMarket, true
	case KindSellMarket, KindSellMarketEx:
		return OrderSideSell, OrderTypeMarket, true
	default:
		return 0, 0, false
	}
}

// Validate checks the tx's kind/side/type/ex-variant tagging is internally
// consistent, independent of any store lookup. ProcessOrder calls this
// before anything else.
func (tx *OrderTx) Validate() error {
	side, typ, ok := tx.kind.expectedShape()
	if !ok {
		return reject(ReasonInvalidOrderOpt, "unrecognized order tx kind %d", tx.kind)
	}
	if tx.Fields.OrderSide != side || tx.Fields.OrderType != typ {
		return reject(ReasonInvalidOrderOpt, "kind %d requires side=%s type=%s, got side=%s type=%s",
			tx.kind, side, typ, tx.Fields.OrderSide, tx.Fields.OrderType)
	}
	if !tx.kind.IsExVariant() {
		if tx.Fields.Memo != "" {
			return reject(ReasonInvalidOrderOpt, "basic order kind %d must not carry a memo", tx.kind)
		}
		if tx.Fields.OperatorSig != nil {
			return reject(ReasonInvalidOrderOpt, "basic order kind %d must not carry an operator signature", tx.kind)
		}
		if tx.Fields.DexID != DexReservedID {
			return reject(ReasonInvalidOrderOpt, "basic order kind %d must target the reserved dex", tx.kind)
		}
	}
	return nil
}

// Digest computes the signature hash over the order's canonical fields:
// version, the tx_type kind byte, and every remaining field except the
// payer's own signature, in the fixed field order. Beyond the common
// envelope, every kind hashes one order_type byte and one order_side byte,
// coin_symbol, asset_symbol, and its side/type amounts (asset_amount and
// price for a limit order, coin_amount for buy-market, asset_amount for
// sell-market); a basic (non-Ex) kind hashes nothing more. order_opt,
// dex_id, match_fee_ratio (only when OrderOpt has the fee-ratio bit), memo,
// and the operator signature pair exist only on Ex variants. The operator RegID of
// an Ex-variant's co-signature IS included (it is part of what the payer
// is agreeing to); the operator's raw signature bytes are not, since they
// cannot exist yet at payer-signing time.
func (tx *OrderTx) Digest() ([32]byte, error) {
	w := &byteWriter{}
	f := &tx.Fields
	w.varint(f.Envelope.Version).
		u8(byte(tx.kind)).
		varint(f.Envelope.ValidHeight).
		fixed(f.Envelope.PayerUID.Bytes()).
		str(f.Envelope.FeeSymbol).
		varint(f.Envelope.FeeAmount).
		u8(byte(f.OrderType)).
		u8(byte(f.OrderSide)).
		str(f.CoinSymbol).
		str(f.AssetSymbol)

	switch f.OrderSide {
	case OrderSideBuy:
		if f.OrderType == OrderTypeLimit {
			w.varint(f.AssetAmount).varint(f.Price)
		} else {
			w.varint(f.CoinAmount)
		}
	case OrderSideSell:
		w.varint(f.AssetAmount)
		if f.OrderType == OrderTypeLimit {
			w.varint(f.Price)
		}
	}

	if tx.kind.IsExVariant() {
		w.u8(byte(f.OrderOpt)).varint(uint64(f.DexID))
		if f.OrderOpt.HasFeeRatio() {
			w.varint(f.MatchFeeRatio)
		}
		w.str(f.Memo)
		if f.OperatorSig != nil {
			w.fixed(f.OperatorSig.RegID.Bytes())
		} else {
			w.fixed(ZeroRegID.Bytes())
		}
	}

	return keccak(w.Bytes()), nil
}

// Encode produces the full wire encoding: the digest-covered fields
// followed by the payer's signature and, for Ex variants, the operator's
// co-signature.
func (tx *OrderTx) Encode() ([]byte, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	w := &byteWriter{}
	f := &tx.Fields
	w.u8(byte(tx.kind)).
		varint(f.Envelope.Version).
		varint(f.Envelope.ValidHeight).
		fixed(f.Envelope.PayerUID.Bytes()).
		str(f.Envelope.FeeSymbol).
		varint(f.Envelope.FeeAmount).
		u8(byte(f.OrderType)).
		u8(byte(f.OrderSide)).
		str(f.CoinSymbol).
		str(f.AssetSymbol)

	switch f.OrderSide {
	case OrderSideBuy:
		if f.OrderType == OrderTypeLimit {
			w.varint(f.AssetAmount).varint(f.Price)
		} else {
			w.varint(f.CoinAmount)
		}
	case OrderSideSell:
		w.varint(f.AssetAmount)
		if f.OrderType == OrderTypeLimit {
			w.varint(f.Price)
		}
	}

	if tx.kind.IsExVariant() {
		w.u8(byte(f.OrderOpt)).varint(uint64(f.DexID))
		if f.OrderOpt.HasFeeRatio() {
			w.varint(f.MatchFeeRatio)
		}
		w.str(f.Memo)
		if f.OperatorSig != nil {
			w.fixed(f.OperatorSig.RegID.Bytes()).varint(uint64(len(f.OperatorSig.Signature))).bytesRaw(f.OperatorSig.Signature)
		} else {
			w.fixed(ZeroRegID.Bytes()).varint(0)
		}
	}

	w.varint(uint64(len(f.Envelope.Signature))).bytesRaw(f.Envelope.Signature)
	return w.Bytes(), nil
}

// DecodeOrderTx parses the wire encoding produced by Encode, reading the
// leading kind byte to select the side/type/ex-variant shape before parsing
// the rest of the fields.
func DecodeOrderTx(buf []byte) (*OrderTx, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("empty order tx buffer")
	}
	kind := TxKind(buf[0])
	side, typ, ok := kind.expectedShape()
	if !ok {
		return nil, fmt.Errorf("unrecognized order tx kind byte %d", buf[0])
	}
	pos := 1
	f := OrderFields{Kind: kind, OrderSide: side, OrderType: typ}

	var n int
	var err error

	if f.Envelope.Version, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	pos += n
	if f.Envelope.ValidHeight, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("valid_height: %w", err)
	}
	pos += n
	if pos+20 > len(buf) {
		return nil, fmt.Errorf("truncated payer_uid")
	}
	f.Envelope.PayerUID = RegID(buf[pos : pos+20])
	pos += 20
	if f.Envelope.FeeSymbol, n, err = decodeString(buf[pos:]); err != nil {
		return nil, fmt.Errorf("fee_symbol: %w", err)
	}
	pos += n
	if f.Envelope.FeeAmount, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("fee_amount: %w", err)
	}
	pos += n

	if pos+2 > len(buf) {
		return nil, fmt.Errorf("truncated order_type/order_side")
	}
	if OrderType(buf[pos]) != typ {
		return nil, fmt.Errorf("order_type mismatch for kind byte %d", kind)
	}
	pos++
	if OrderSide(buf[pos]) != side {
		return nil, fmt.Errorf("order_side mismatch for kind byte %d", kind)
	}
	pos++

	if f.CoinSymbol, n, err = decodeString(buf[pos:]); err != nil {
		return nil, fmt.Errorf("coin_symbol: %w", err)
	}
	pos += n
	if f.AssetSymbol, n, err = decodeString(buf[pos:]); err != nil {
		return nil, fmt.Errorf("asset_symbol: %w", err)
	}
	pos += n

	switch side {
	case OrderSideBuy:
		if typ == OrderTypeLimit {
			if f.AssetAmount, n, err = decodeVarint(buf[pos:]); err != nil {
				return nil, fmt.Errorf("asset_amount: %w", err)
			}
			pos += n
			if f.Price, n, err = decodeVarint(buf[pos:]); err != nil {
				return nil, fmt.Errorf("price: %w", err)
			}
			pos += n
		} else {
			if f.CoinAmount, n, err = decodeVarint(buf[pos:]); err != nil {
				return nil, fmt.Errorf("coin_amount: %w", err)
			}
			pos += n
		}
	case OrderSideSell:
		if f.AssetAmount, n, err = decodeVarint(buf[pos:]); err != nil {
			return nil, fmt.Errorf("asset_amount: %w", err)
		}
		pos += n
		if typ == OrderTypeLimit {
			if f.Price, n, err = decodeVarint(buf[pos:]); err != nil {
				return nil, fmt.Errorf("price: %w", err)
			}
			pos += n
		}
	}

	if kind.IsExVariant() {
		if pos+1 > len(buf) {
			return nil, fmt.Errorf("truncated order_opt")
		}
		f.OrderOpt = OrderOpt(buf[pos])
		pos++
		var dexID uint64
		if dexID, n, err = decodeVarint(buf[pos:]); err != nil {
			return nil, fmt.Errorf("dex_id: %w", err)
		}
		f.DexID = DexID(dexID)
		pos += n
		if f.OrderOpt.HasFeeRatio() {
			if f.MatchFeeRatio, n, err = decodeVarint(buf[pos:]); err != nil {
				return nil, fmt.Errorf("match_fee_ratio: %w", err)
			}
			pos += n
		}

		if f.Memo, n, err = decodeString(buf[pos:]); err != nil {
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
			f.OperatorSig = &SignaturePair{RegID: opRegID, Signature: sig}
		}
		pos += int(sigLen)
	} else {
		// basic kinds always target the reserved dex as public orders,
		// matching the hardcoded defaults a basic constructor uses.
		f.OrderOpt = OptIsPublic
		f.DexID = DexReservedID
	}

	var sigLen uint64
	if sigLen, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, fmt.Errorf("payer sig length: %w", err)
	}
	pos += n
	if pos+int(sigLen) > len(buf) {
		return nil, fmt.Errorf("truncated payer signature")
	}
	f.Envelope.Signature = make([]byte, sigLen)
	copy(f.Envelope.Signature, buf[pos:pos+int(sigLen)])

	return &OrderTx{kind: kind, Fields: f}, nil
}
