package mempool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexchain/dexcore/pkg/dex"
)

var payer = common.HexToAddress("0xAAAA000000000000000000000000000000AAAA")

func sampleOrderBytes(t *testing.T) []byte {
	t.Helper()
	tx := dex.NewBuyLimitTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: payer, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		DexID:       dex.DexReservedID,
	})
	b, err := tx.Encode()
	if err != nil {
		t.Fatalf("encode order: %v", err)
	}
	return b
}

func sampleCancelBytes() []byte {
	tx := &dex.CancelTx{Envelope: dex.Envelope{Version: 1, PayerUID: payer, FeeSymbol: "WUSD"}}
	return tx.Encode()
}

func sampleSettleBytes() []byte {
	tx := &dex.SettleTx{Envelope: dex.Envelope{Version: 1, PayerUID: payer, FeeSymbol: "WUSD"}, DexID: dex.DexReservedID}
	return tx.Encode()
}

func TestClassifyRaw(t *testing.T) {
	if got := ClassifyRaw(sampleOrderBytes(t)); got != TxOrder {
		t.Errorf("ClassifyRaw(order) = %v, want TxOrder", got)
	}
	if got := ClassifyRaw(sampleCancelBytes()); got != TxCancel {
		t.Errorf("ClassifyRaw(cancel) = %v, want TxCancel", got)
	}
	if got := ClassifyRaw(sampleSettleBytes()); got != TxSettle {
		t.Errorf("ClassifyRaw(settle) = %v, want TxSettle", got)
	}
	if got := ClassifyRaw(nil); got != TxUnknown {
		t.Errorf("ClassifyRaw(nil) = %v, want TxUnknown", got)
	}
	if got := ClassifyRaw([]byte{0xff}); got != TxUnknown {
		t.Errorf("ClassifyRaw(garbage) = %v, want TxUnknown", got)
	}
}

func TestMempool_Ordering(t *testing.T) {
	m := NewMempool()

	order1 := sampleOrderBytes(t)
	cancel1 := sampleCancelBytes()
	settle1 := sampleSettleBytes()

	// Push in mixed order; selection must come back settle -> cancel -> order
	// regardless of push order.
	m.PushRaw(order1)
	m.PushRaw(cancel1)
	m.PushRaw(settle1)

	txs := m.SelectForProposal(0)
	if len(txs) != 3 {
		t.Fatalf("expected 3 txs, got %d", len(txs))
	}
	if ClassifyRaw(txs[0]) != TxSettle {
		t.Errorf("tx[0] kind = %v, want TxSettle", ClassifyRaw(txs[0]))
	}
	if ClassifyRaw(txs[1]) != TxCancel {
		t.Errorf("tx[1] kind = %v, want TxCancel", ClassifyRaw(txs[1]))
	}
	if ClassifyRaw(txs[2]) != TxOrder {
		t.Errorf("tx[2] kind = %v, want TxOrder", ClassifyRaw(txs[2]))
	}
	if m.Len() != 0 {
		t.Errorf("mempool should be drained after selection, got %d remaining", m.Len())
	}
}

func TestMempool_MaxBytes(t *testing.T) {
	m := NewMempool()

	m.PushRaw(sampleCancelBytes())
	m.PushRaw(sampleCancelBytes())
	m.PushRaw(sampleCancelBytes())

	one := len(sampleCancelBytes())
	txs := m.SelectForProposal(int64(one*2 + 1))

	if len(txs) != 2 {
		t.Errorf("expected 2 txs under the byte budget, got %d", len(txs))
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 tx remaining, got %d", m.Len())
	}
}

func TestMempool_DropsUnrecognized(t *testing.T) {
	m := NewMempool()
	m.PushRaw([]byte{0xff, 0x01, 0x02})
	if m.Len() != 0 {
		t.Errorf("unrecognized tx should not enter any queue, got len %d", m.Len())
	}
	if m.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", m.Dropped())
	}
}
