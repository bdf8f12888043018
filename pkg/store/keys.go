// Package store provides the concrete AccountView, OrderBookStore, and
// OperatorRegistry implementations dex.ProcessOrder/ExecuteCancel/
// ExecuteSettle operate over: an in-memory map for tests and a
// Pebble-backed store for a running node, using a prefix-per-entity
// key schema (':'-joined components, lexicographic range
// scans via keyUpperBound).
package store

import (
	"fmt"

	"github.com/dexchain/dexcore/pkg/dex"
)

// Key prefixes, one per entity this package persists: "bal:" covers a
// free/frozen balance per (owner, symbol), with no separate account/
// position split.
const (
	prefixBalance  = "bal:"
	prefixOrder    = "ord:"
	prefixOperator = "op:"
	prefixAsset    = "asset:"
	prefixPair     = "pair:"
)

// balanceKey: "bal:{owner}:{symbol}"
func balanceKey(owner dex.RegID, symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, owner.Hex(), symbol))
}

// balancePrefix: "bal:{owner}:" - all balances of one owner.
func balancePrefix(owner dex.RegID) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixBalance, owner.Hex()))
}

// orderKey: "ord:{orderID}"
func orderKey(id dex.OrderID) []byte {
	return append([]byte(prefixOrder), id[:]...)
}

// operatorKey: "op:{dexID}", dexID zero-padded to 20 digits for
// lexicographic iteration order matching numeric order.
func operatorKey(id dex.DexID) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOperator, uint64(id)))
}

// assetKey: "asset:{symbol}"
func assetKey(symbol string) []byte {
	return []byte(prefixAsset + symbol)
}

// pairKey: "pair:{coin}:{asset}"
func pairKey(coin, asset string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixPair, coin, asset))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan:
// increment the last byte of the prefix.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
