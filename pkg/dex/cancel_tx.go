package dex

// CancelTx cancels an open order, returning its residual to the owner's
// free balance.
type CancelTx struct {
	Envelope Envelope
	OrderID  OrderID
}

func (tx *CancelTx) Kind() TxKind { return KindCancel }

// Digest hashes the version, tx_type, and envelope plus the target order
// id, excluding the payer's own signature.
func (tx *CancelTx) Digest() [32]byte {
	w := &byteWriter{}
	w.varint(tx.Envelope.Version).
		u8(byte(KindCancel)).
		varint(tx.Envelope.ValidHeight).
		fixed(tx.Envelope.PayerUID.Bytes()).
		str(tx.Envelope.FeeSymbol).
		varint(tx.Envelope.FeeAmount).
		fixed(tx.OrderID[:])
	return keccak(w.Bytes())
}

// Encode produces the wire form: digest-covered fields followed by the
// payer's signature.
func (tx *CancelTx) Encode() []byte {
	w := &byteWriter{}
	w.u8(byte(KindCancel)).
		varint(tx.Envelope.Version).
		varint(tx.Envelope.ValidHeight).
		fixed(tx.Envelope.PayerUID.Bytes()).
		str(tx.Envelope.FeeSymbol).
		varint(tx.Envelope.FeeAmount).
		fixed(tx.OrderID[:]).
		varint(uint64(len(tx.Envelope.Signature))).
		bytesRaw(tx.Envelope.Signature)
	return w.Bytes()
}

// DecodeCancelTx parses the wire form produced by Encode.
func DecodeCancelTx(buf []byte) (*CancelTx, error) {
	if len(buf) < 1 || TxKind(buf[0]) != KindCancel {
		return nil, reject(ReasonInvalidOrderOpt, "not a cancel tx")
	}
	pos := 1
	tx := &CancelTx{}
	var n int
	var err error
	if tx.Envelope.Version, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, err
	}
	pos += n
	if tx.Envelope.ValidHeight, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, err
	}
	pos += n
	if pos+20 > len(buf) {
		return nil, reject(ReasonInvalidOrderOpt, "truncated payer_uid")
	}
	tx.Envelope.PayerUID = RegID(buf[pos : pos+20])
	pos += 20
	if tx.Envelope.FeeSymbol, n, err = decodeString(buf[pos:]); err != nil {
		return nil, err
	}
	pos += n
	if tx.Envelope.FeeAmount, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, err
	}
	pos += n
	if pos+32 > len(buf) {
		return nil, reject(ReasonInvalidOrderOpt, "truncated order_id")
	}
	copy(tx.OrderID[:], buf[pos:pos+32])
	pos += 32
	var sigLen uint64
	if sigLen, n, err = decodeVarint(buf[pos:]); err != nil {
		return nil, err
	}
	pos += n
	if pos+int(sigLen) > len(buf) {
		return nil, reject(ReasonInvalidOrderOpt, "truncated signature")
	}
	tx.Envelope.Signature = make([]byte, sigLen)
	copy(tx.Envelope.Signature, buf[pos:pos+int(sigLen)])
	return tx, nil
}

// ExecuteCancel applies a cancel transaction against cw:
// the payer's signature over the tx digest is verified, its flat
// transaction fee is charged, the order must exist, the caller must be its
// owner (or, when the order was placed under a non-reserved dex, the
// dex's operator owner), and its residual is returned to the owner's free
// balance before the order is erased.
func ExecuteCancel(cw *CacheWrapper, tx *CancelTx, callerRegID RegID, verifyPayerSig func(payer RegID, digest [32]byte, signature []byte) error) error {
	if verifyPayerSig != nil {
		if err := verifyPayerSig(tx.Envelope.PayerUID, tx.Digest(), tx.Envelope.Signature); err != nil {
			return err
		}
	}
	if err := cw.ChargeFee(tx.Envelope.PayerUID, tx.Envelope.FeeSymbol, tx.Envelope.FeeAmount, ZeroRegID); err != nil {
		return err
	}

	order, ok := cw.GetOrder(tx.OrderID)
	if !ok {
		return reject(ReasonOrderNotFound, "order_id %x", tx.OrderID)
	}
	if callerRegID != order.OwnerRegID {
		allowed := false
		if order.DexID != DexReservedID {
			if op, ok := cw.Operator(order.DexID); ok && op.OwnerRegID == callerRegID {
				allowed = true
			}
		}
		if !allowed {
			return reject(ReasonPayerAuthFailed, "caller %s is not order %x's owner", callerRegID.Hex(), tx.OrderID)
		}
	}

	symbol, amount := orderFreezeSymbolAmount(order)
	if err := cw.Unfreeze(order.OwnerRegID, symbol, amount); err != nil {
		return err
	}
	cw.EraseOrder(tx.OrderID)
	return nil
}

// orderFreezeSymbolAmount returns the (symbol, amount) still frozen for an
// open order: its residual on the side that was originally frozen.
func orderFreezeSymbolAmount(o *OrderDetail) (string, uint64) {
	if o.OrderSide == OrderSideBuy {
		return o.CoinSymbol, o.ResidualCoinAmount
	}
	return o.AssetSymbol, o.ResidualAssetAmount
}
