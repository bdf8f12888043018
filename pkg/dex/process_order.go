package dex

// ProcessOrder runs the shared acceptance pipeline every
// concrete order transaction kind goes through: the
// side/type-specific branching lives entirely in OrderFields.Derive and the
// switch statements inside Digest/Encode, not in a second copy of this
// pipeline per kind.
//
//  1. payer signature verification over the tx digest
//  2. charge the flat transaction fee
//  3. envelope checks (valid-height window)
//  4. symbol validation (registered, distinct, permitted pair)
//  5. field validation by side x type (amount/price shape)
//  6. amount/price range checks against registered metadata
//  7. operator resolution and permission checks
//  8. operator co-signature verification (Ex variants on non-reserved dex,
//     required unless the order is public)
//  9. freeze the submitter's funds
//  10. persist the resulting OrderDetail
//
// A non-nil error can leave cw partly mutated (the flat fee is charged
// before the later checks run); the caller discards cw without calling
// Commit, so a rejected order never reaches the backing stores.
func ProcessOrder(cw *CacheWrapper, assets AssetRegistry, tx *OrderTx, currentHeight uint64, orderID OrderID, verifyOperatorSig func(tx *OrderTx, op DexOperator) error, verifyPayerSig func(payer RegID, digest [32]byte, signature []byte) error) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	f := &tx.Fields

	// 1. payer signature; orderID is the tx's own digest, computed once by
	// the caller that decoded it.
	if verifyPayerSig != nil {
		if err := verifyPayerSig(f.Envelope.PayerUID, [32]byte(orderID), f.Envelope.Signature); err != nil {
			return err
		}
	}

	// 2. flat transaction fee, charged to the system fee pool
	if err := cw.ChargeFee(f.Envelope.PayerUID, f.Envelope.FeeSymbol, f.Envelope.FeeAmount, ZeroRegID); err != nil {
		return err
	}

	// 3. envelope
	if err := f.Envelope.CheckHeight(currentHeight); err != nil {
		return err
	}

	// 4. symbols
	pair, err := CheckOrderSymbols(assets, f.CoinSymbol, f.AssetSymbol)
	if err != nil {
		return err
	}

	// 5. side x type field shape, deriving the non-authoritative amount
	if err := f.Derive(); err != nil {
		return err
	}

	// 6. range checks
	coinMeta, _ := assets.Asset(f.CoinSymbol)
	assetMeta, _ := assets.Asset(f.AssetSymbol)
	if f.OrderType == OrderTypeLimit {
		if err := CheckOrderPriceRange("order", pair, f.Price); err != nil {
			return err
		}
	}
	if f.OrderSide == OrderSideSell || f.OrderType == OrderTypeLimit {
		if err := CheckOrderAmountRange("order", assetMeta, f.AssetAmount); err != nil {
			return err
		}
	}
	if f.OrderSide == OrderSideBuy && f.OrderType == OrderTypeMarket {
		if err := CheckOrderAmountRange("order", coinMeta, f.CoinAmount); err != nil {
			return err
		}
	}

	// 7. operator resolution
	var op DexOperator
	hasFeeRatio := f.OrderOpt.HasFeeRatio()
	if f.DexID != DexReservedID {
		op, err = CheckDexOperatorExist(cw, f.DexID)
		if err != nil {
			return err
		}
		if err := CheckOrderOperator(op, f.OrderOpt, f.MatchFeeRatio); err != nil {
			return err
		}

		// 8. operator co-signature: required on Ex variants placing an order
		// against a non-reserved dex unless the order is public, in which
		// case a carried signature is still verified
		if tx.Kind().IsExVariant() {
			if !f.OrderOpt.IsPublic() && (f.OperatorSig == nil || f.OperatorSig.RegID != op.OwnerRegID) {
				return reject(ReasonOperatorAuthFailed, "dex_id %d requires a co-signature from %s", f.DexID, op.OwnerRegID.Hex())
			}
			if f.OperatorSig != nil {
				if f.OperatorSig.RegID != op.OwnerRegID {
					return reject(ReasonOperatorAuthFailed, "dex_id %d co-signature does not match operator %s", f.DexID, op.OwnerRegID.Hex())
				}
				if verifyOperatorSig != nil {
					if err := verifyOperatorSig(tx, op); err != nil {
						return err
					}
				}
			}
		}
	}

	resolvedFeeRatio, hasRatio := resolveOrderFeeRatio(f, op, hasFeeRatio)

	// 9. freeze
	symbol, amount := f.FreezeAmountSymbol()
	if err := cw.Freeze(f.Envelope.PayerUID, symbol, amount); err != nil {
		return err
	}

	// 10. persist
	detail := f.ToOrderDetail(orderID, currentHeight, resolvedFeeRatio, hasRatio)
	cw.PutOrder(detail)
	return nil
}

// resolveOrderFeeRatio applies the fee-ratio precedence at
// order-acceptance time: an explicit per-order match_fee_ratio (bounded by
// the operator's max on a non-reserved dex) takes precedence over the operator's default maker
// ratio, which is resolved later from the taker/maker side at settle time
// if no explicit ratio was supplied.
func resolveOrderFeeRatio(f *OrderFields, op DexOperator, hasExplicit bool) (uint64, bool) {
	if hasExplicit {
		return f.MatchFeeRatio, true
	}
	if f.DexID == DexReservedID {
		return 0, false
	}
	return 0, false
}
