package dex

import (
	dexcrypto "github.com/dexchain/dexcore/pkg/crypto"
)

// VerifyOrderOperatorSig checks that an Ex-variant order's OperatorSig was
// produced by the expected operator over the order's digest. It is the
// default verifyOperatorSig passed to ProcessOrder outside of tests.
func VerifyOrderOperatorSig(tx *OrderTx, op DexOperator) error {
	if tx.Fields.OperatorSig == nil {
		return reject(ReasonOperatorAuthFailed, "missing operator signature")
	}
	digest, err := tx.Digest()
	if err != nil {
		return err
	}
	if !dexcrypto.VerifySignature(op.OwnerRegID, digest[:], tx.Fields.OperatorSig.Signature) {
		return reject(ReasonOperatorAuthFailed, "operator signature does not verify for dex_id %d", op.DexID)
	}
	return nil
}

// VerifyPayerSignature checks the envelope's payer signature against a
// transaction digest. It is passed as the verifyPayerSig callback of
// ProcessOrder/ExecuteCancel/ExecuteSettle, which call it before any
// mutation.
func VerifyPayerSignature(payer RegID, digest [32]byte, signature []byte) error {
	if !dexcrypto.VerifySignature(payer, digest[:], signature) {
		return reject(ReasonPayerAuthFailed, "payer signature does not verify for %s", payer.Hex())
	}
	return nil
}

// VerifySettleOperatorSig mirrors VerifyOrderOperatorSig for SettleExTx.
func VerifySettleOperatorSig(tx *SettleTx, op DexOperator) error {
	if tx.OperatorSig == nil {
		return reject(ReasonOperatorAuthFailed, "missing operator signature")
	}
	digest := tx.Digest()
	if !dexcrypto.VerifySignature(op.OwnerRegID, digest[:], tx.OperatorSig.Signature) {
		return reject(ReasonOperatorAuthFailed, "operator signature does not verify for dex_id %d", op.DexID)
	}
	return nil
}
