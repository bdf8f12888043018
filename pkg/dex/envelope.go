package dex

import "github.com/ethereum/go-ethereum/common"

// RegID is the compact on-chain account identifier this package operates
// over. The node's registration layer (out of scope here) maps RegID to a
// public key; we reuse a 20-byte EVM-style address as the
// concrete representation.
type RegID = common.Address

// ZeroRegID is the null/unset RegID.
var ZeroRegID = RegID{}

// OrderID identifies an order on the wire and in the order-book store. It
// is the originating transaction's digest.
type OrderID [32]byte

// DexID identifies a DEX operator namespace. DexReservedID is the system
// default, always present and always enabled.
type DexID uint64

const DexReservedID DexID = 0

// OrderType distinguishes limit orders (fixed price) from market orders
// (best available price, price field must be zero).
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota + 1
	OrderTypeMarket
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// OrderSide distinguishes the buy side (spends coin, receives asset) from
// the sell side (spends asset, receives coin).
type OrderSide uint8

const (
	OrderSideBuy OrderSide = iota + 1
	OrderSideSell
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderOpt is the order-level option bitfield.
type OrderOpt uint8

const (
	OptIsPublic    OrderOpt = 1 << 0
	OptHasFeeRatio OrderOpt = 1 << 1
)

func (o OrderOpt) IsPublic() bool    { return o&OptIsPublic != 0 }
func (o OrderOpt) HasFeeRatio() bool { return o&OptHasFeeRatio != 0 }

// TxKind tags the concrete transaction kind, replacing the source's virtual
// dispatch with a closed set of constants switched on
// explicitly by Digest/Encode/Decode and the mempool classifier.
type TxKind uint8

const (
	KindBuyLimit TxKind = iota + 1
	KindBuyLimitEx
	KindSellLimit
	KindSellLimitEx
	KindBuyMarket
	KindBuyMarketEx
	KindSellMarket
	KindSellMarketEx
	KindCancel
	KindSettle
	KindSettleEx
)

// SignaturePair binds an operator RegID to the signature it produced over a
// transaction's digest. Only the RegID is included in the digest; the
// signature itself rides on the wire only.
type SignaturePair struct {
	RegID     RegID
	Signature []byte
}

// Envelope is the common transaction header shared by every concrete kind:
// version, valid-height window, payer, fee, and the payer's
// signature (appended on the wire, excluded from the digest).
type Envelope struct {
	Version     uint64
	ValidHeight uint64
	PayerUID    RegID
	FeeSymbol   string
	FeeAmount   uint64
	Signature   []byte
}

// CheckHeight validates the transaction's ValidHeight against the current
// chain height: the tx is valid starting at ValidHeight, and no upper bound
// is checked.
func (e Envelope) CheckHeight(currentHeight uint64) error {
	if currentHeight < e.ValidHeight {
		return reject(ReasonInvalidHeight, "tx valid at height %d, current height %d", e.ValidHeight, currentHeight)
	}
	return nil
}
