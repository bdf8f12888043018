// Package mempool orders pending DEX transactions before they are applied,
// grouping them into priority buckets so a batch of settlements always lands
// ahead of the cancels and new order placements that arrived alongside it.
package mempool

import (
	"sync"

	"github.com/dexchain/dexcore/pkg/dex"
)

// TxType classifies a raw, wire-encoded transaction by its leading kind byte.
type TxType int

const (
	TxUnknown TxType = iota
	TxSettle
	TxCancel
	TxOrder
)

// ClassifyRaw inspects the leading TxKind byte of a wire-encoded transaction
// without fully decoding it. An empty or unrecognized payload classifies as
// TxUnknown so the caller can reject it outright instead of misrouting it.
func ClassifyRaw(b []byte) TxType {
	if len(b) == 0 {
		return TxUnknown
	}
	switch dex.TxKind(b[0]) {
	case dex.KindSettle, dex.KindSettleEx:
		return TxSettle
	case dex.KindCancel:
		return TxCancel
	case dex.KindBuyLimit, dex.KindBuyLimitEx, dex.KindSellLimit, dex.KindSellLimitEx,
		dex.KindBuyMarket, dex.KindBuyMarketEx, dex.KindSellMarket, dex.KindSellMarketEx:
		return TxOrder
	default:
		return TxUnknown
	}
}

// Mempool maintains three FIFO queues, selected for proposal in a fixed
// priority order: settlements first (they retire existing residuals),
// then cancels, then new order placements.
type Mempool struct {
	mu      sync.Mutex
	settle  [][]byte
	cancel  [][]byte
	order   [][]byte
	dropped int
}

func NewMempool() *Mempool {
	return &Mempool{}
}

// PushRaw classifies and enqueues a tx. Unrecognized payloads are counted
// and dropped rather than silently misrouted into the order queue.
func (m *Mempool) PushRaw(b []byte) {
	cp := append([]byte(nil), b...)
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ClassifyRaw(b) {
	case TxSettle:
		m.settle = append(m.settle, cp)
	case TxCancel:
		m.cancel = append(m.cancel, cp)
	case TxOrder:
		m.order = append(m.order, cp)
	default:
		m.dropped++
	}
}

// SelectForProposal returns up to maxBytes worth of txs in priority order,
// removing selected txs from the mempool. maxBytes <= 0 means unbounded.
func (m *Mempool) SelectForProposal(maxBytes int64) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out [][]byte
	var used int64

	pull := func(q *[][]byte) {
		for len(*q) > 0 {
			tx := (*q)[0]
			n := int64(len(tx))
			if maxBytes > 0 && used+n > maxBytes {
				return
			}
			out = append(out, tx)
			used += n
			*q = (*q)[1:]
		}
	}

	pull(&m.settle)
	pull(&m.cancel)
	pull(&m.order)

	return out
}

// Len returns the total number of pending, classified txs.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.settle) + len(m.cancel) + len(m.order)
}

// Dropped returns the count of pushed txs that failed to classify.
func (m *Mempool) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
