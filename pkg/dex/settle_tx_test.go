package dex_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexchain/dexcore/pkg/dex"
	"github.com/dexchain/dexcore/pkg/store"
)

var bob = common.HexToAddress("0xBBBB000000000000000000000000000000BBBB")

func TestSettleTxEncodeDecodeRoundTrip(t *testing.T) {
	var buyID, sellID dex.OrderID
	buyID[0], sellID[0] = 0x11, 0x22
	tx := &dex.SettleTx{
		Envelope: dex.Envelope{
			Version:     1,
			ValidHeight: 100,
			PayerUID:    alice,
			FeeSymbol:   "WUSD",
			FeeAmount:   10,
			Signature:   []byte{0xaa, 0xbb, 0xcc},
		},
		DexID: 5,
		Deals: []dex.DealItem{
			{BuyOrderID: buyID, SellOrderID: sellID, DealPrice: dex.PriceScale, DealCoinAmount: 1000, DealAssetAmount: 1000},
		},
		IsEx: true,
		Memo: "ex settlement batch",
		OperatorSig: &dex.SignaturePair{
			RegID:     common.HexToAddress("0xC000000000000000000000000000000000000C"),
			Signature: []byte{1, 2, 3, 4},
		},
	}

	encoded := tx.Encode()
	decoded, err := dex.DecodeSettleTx(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.DexID != tx.DexID || len(decoded.Deals) != 1 {
		t.Fatalf("settle tx round trip mismatch: %+v", decoded)
	}
	if decoded.Deals[0].DealCoinAmount != 1000 || decoded.Deals[0].DealAssetAmount != 1000 {
		t.Fatalf("deal item round trip mismatch: %+v", decoded.Deals[0])
	}
	if decoded.Memo != tx.Memo {
		t.Fatalf("memo round trip mismatch: got %q, want %q", decoded.Memo, tx.Memo)
	}
	if decoded.OperatorSig == nil || decoded.OperatorSig.RegID != tx.OperatorSig.RegID {
		t.Fatalf("operator sig round trip mismatch: %+v", decoded.OperatorSig)
	}

	if tx.Digest() != decoded.Digest() {
		t.Fatalf("digest changed after round trip")
	}
}

func setupSettleFixture(t *testing.T) (*store.MemAccountStore, *store.MemOrderBookStore, dex.AssetRegistry, dex.OrderID, dex.OrderID) {
	t.Helper()
	accounts := store.NewMemAccountStore()
	accounts.Deposit(alice, "WUSD", 10_000_000)
	accounts.Deposit(bob, "WICC", 10_000)
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()

	var buyID, sellID dex.OrderID
	buyID[0], sellID[0] = 1, 2

	cw := dex.NewCacheWrapper(accounts, books, operators)
	buyTx := dex.NewBuyLimitTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		DexID:       dex.DexReservedID,
	})
	if err := dex.ProcessOrder(cw, registry, buyTx, 10, buyID, nil, nil); err != nil {
		t.Fatalf("place buy: %v", err)
	}
	sellTx := dex.NewSellLimitTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: bob, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideSell,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		DexID:       dex.DexReservedID,
	})
	if err := dex.ProcessOrder(cw, registry, sellTx, 11, sellID, nil, nil); err != nil {
		t.Fatalf("place sell: %v", err)
	}
	if err := cw.Commit(); err != nil {
		t.Fatalf("commit fixture: %v", err)
	}
	return accounts, books, registry, buyID, sellID
}

func TestExecuteSettle_FullFillTransfersAndErasesBothOrders(t *testing.T) {
	accounts, books, registry, buyID, sellID := setupSettleFixture(t)
	operators := store.NewMemOperatorRegistry()
	cw := dex.NewCacheWrapper(accounts, books, operators)

	settleTx := &dex.SettleTx{
		Envelope: dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		DexID:    dex.DexReservedID,
		Deals: []dex.DealItem{{
			BuyOrderID:      buyID,
			SellOrderID:     sellID,
			DealPrice:       2 * dex.PriceScale,
			DealCoinAmount:  2_000,
			DealAssetAmount: 1_000,
		}},
	}
	if err := dex.ExecuteSettle(cw, registry, settleTx, nil, nil); err != nil {
		t.Fatalf("ExecuteSettle: %v", err)
	}
	if err := cw.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got := accounts.FreeBalance(bob, "WUSD"); got != 2_000 {
		t.Fatalf("seller WUSD proceeds = %d, want 2000 (reserved dex has no fee)", got)
	}
	if got := accounts.FreeBalance(alice, "WICC"); got != 1_000 {
		t.Fatalf("buyer WICC proceeds = %d, want 1000", got)
	}
	if _, ok := books.Get(buyID); ok {
		t.Fatalf("buy order should be erased once fully filled")
	}
	if _, ok := books.Get(sellID); ok {
		t.Fatalf("sell order should be erased once fully filled")
	}
}

func TestExecuteSettle_RejectsInconsistentDealAmount(t *testing.T) {
	accounts, books, registry, buyID, sellID := setupSettleFixture(t)
	operators := store.NewMemOperatorRegistry()
	cw := dex.NewCacheWrapper(accounts, books, operators)

	settleTx := &dex.SettleTx{
		Envelope: dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		DexID:    dex.DexReservedID,
		Deals: []dex.DealItem{{
			BuyOrderID:      buyID,
			SellOrderID:     sellID,
			DealPrice:       2 * dex.PriceScale,
			DealCoinAmount:  9_999, // inconsistent with price*assetAmount
			DealAssetAmount: 1_000,
		}},
	}
	err := dex.ExecuteSettle(cw, registry, settleTx, nil, nil)
	if err == nil {
		t.Fatalf("expected DEAL_AMOUNT_INCONSISTENT rejection")
	}
	rerr, ok := err.(*dex.RejectError)
	if !ok || rerr.Reason != dex.ReasonDealAmountBad {
		t.Fatalf("got error %v, want DEAL_AMOUNT_INCONSISTENT", err)
	}
}

func TestExecuteSettle_RejectsResidualExceeded(t *testing.T) {
	accounts, books, registry, buyID, sellID := setupSettleFixture(t)
	operators := store.NewMemOperatorRegistry()
	cw := dex.NewCacheWrapper(accounts, books, operators)

	settleTx := &dex.SettleTx{
		Envelope: dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		DexID:    dex.DexReservedID,
		Deals: []dex.DealItem{{
			BuyOrderID:      buyID,
			SellOrderID:     sellID,
			DealPrice:       2 * dex.PriceScale,
			DealCoinAmount:  4_000,
			DealAssetAmount: 2_000, // exceeds both orders' 1000-asset residual
		}},
	}
	err := dex.ExecuteSettle(cw, registry, settleTx, nil, nil)
	if err == nil {
		t.Fatalf("expected DEAL_RESIDUAL_EXCEEDED rejection")
	}
	rerr, ok := err.(*dex.RejectError)
	if !ok || rerr.Reason != dex.ReasonDealResidualExc {
		t.Fatalf("got error %v, want DEAL_RESIDUAL_EXCEEDED", err)
	}
}

func TestGetTakerOrderSide(t *testing.T) {
	buy := &dex.OrderDetail{OrderSide: dex.OrderSideBuy, GeneratedHeight: 10}
	sell := &dex.OrderDetail{OrderSide: dex.OrderSideSell, GeneratedHeight: 5}
	if got := dex.GetTakerOrderSide(buy, sell); got != dex.OrderSideBuy {
		t.Fatalf("taker = %v, want buy (later generated_height)", got)
	}

	tieBuy := &dex.OrderDetail{OrderSide: dex.OrderSideBuy, GeneratedHeight: 7}
	tieSell := &dex.OrderDetail{OrderSide: dex.OrderSideSell, GeneratedHeight: 7}
	if got := dex.GetTakerOrderSide(tieBuy, tieSell); got != dex.OrderSideSell {
		t.Fatalf("taker on tie = %v, want sell", got)
	}
}

func TestExecuteSettle_AppliesOperatorMakerTakerFees(t *testing.T) {
	accounts := store.NewMemAccountStore()
	accounts.Deposit(alice, "WUSD", 10_000_000)
	accounts.Deposit(bob, "WICC", 10_000)
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()

	op := dex.DexOperator{
		DexID:            1,
		OwnerRegID:       common.HexToAddress("0xC000000000000000000000000000000000000C"),
		FeeReceiverRegID: common.HexToAddress("0xFEE0000000000000000000000000000000FEE0"),
		MakerFeeRatio:    dex.FeeRatioScale / 1000, // 0.1%
		TakerFeeRatio:    dex.FeeRatioScale / 200,  // 0.5%
		MaxFeeRatio:      dex.FeeRatioScale / 100,
		AllowPublic:      true,
		Enabled:          true,
	}
	operators.Register(op)

	var buyID, sellID dex.OrderID
	buyID[0], sellID[0] = 3, 4

	cw := dex.NewCacheWrapper(accounts, books, operators)
	buyTx := dex.NewBuyLimitExTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		OrderOpt:    dex.OptIsPublic,
		DexID:       1,
	})
	if err := dex.ProcessOrder(cw, registry, buyTx, 10, buyID, nil, nil); err != nil {
		t.Fatalf("place buy: %v", err)
	}
	// sell order generated at a later height, so GetTakerOrderSide marks it
	// as the taker and the buy order as the maker
	sellTx := dex.NewSellLimitExTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: bob, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideSell,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		OrderOpt:    dex.OptIsPublic,
		DexID:       1,
	})
	if err := dex.ProcessOrder(cw, registry, sellTx, 20, sellID, nil, nil); err != nil {
		t.Fatalf("place sell: %v", err)
	}
	if err := cw.Commit(); err != nil {
		t.Fatalf("commit fixture: %v", err)
	}

	cw2 := dex.NewCacheWrapper(accounts, books, operators)
	settleTx := &dex.SettleTx{
		Envelope: dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		DexID:    1,
		Deals: []dex.DealItem{{
			BuyOrderID:      buyID,
			SellOrderID:     sellID,
			DealPrice:       2 * dex.PriceScale,
			DealCoinAmount:  2_000,
			DealAssetAmount: 1_000,
		}},
	}
	if err := dex.ExecuteSettle(cw2, registry, settleTx, nil, nil); err != nil {
		t.Fatalf("ExecuteSettle: %v", err)
	}
	if err := cw2.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// the buy order rested first (height 10) and is the maker: 0.1% of the
	// 1000 asset it receives = 1
	if got := accounts.FreeBalance(alice, "WICC"); got != 999 {
		t.Fatalf("buyer WICC proceeds = %d, want 999 after maker fee", got)
	}
	// the sell order crossed the book later (height 20) and is the taker:
	// 0.5% of the 2000 coin it receives = 10
	if got := accounts.FreeBalance(bob, "WUSD"); got != 1_990 {
		t.Fatalf("seller WUSD proceeds = %d, want 1990 after taker fee", got)
	}
	if got := accounts.FreeBalance(op.FeeReceiverRegID, "WICC"); got != 1 {
		t.Fatalf("fee receiver WICC = %d, want 1", got)
	}
	if got := accounts.FreeBalance(op.FeeReceiverRegID, "WUSD"); got != 10 {
		t.Fatalf("fee receiver WUSD = %d, want 10", got)
	}
}

func TestExecuteSettle_PublicExSettleOnNonReservedDexSkipsCoSignature(t *testing.T) {
	accounts := store.NewMemAccountStore()
	accounts.Deposit(alice, "WUSD", 10_000_000)
	accounts.Deposit(bob, "WICC", 10_000)
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()

	op := dex.DexOperator{
		DexID:            9,
		OwnerRegID:       common.HexToAddress("0xC000000000000000000000000000000000000C"),
		FeeReceiverRegID: common.HexToAddress("0xFEE0000000000000000000000000000000FEE0"),
		MaxFeeRatio:      dex.FeeRatioScale / 100,
		AllowPublic:      true,
		Enabled:          true,
	}
	operators.Register(op)

	var buyID, sellID dex.OrderID
	buyID[0], sellID[0] = 5, 6

	cw := dex.NewCacheWrapper(accounts, books, operators)
	buyTx := dex.NewBuyLimitExTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		OrderOpt:    dex.OptIsPublic,
		DexID:       9,
	})
	if err := dex.ProcessOrder(cw, registry, buyTx, 10, buyID, nil, nil); err != nil {
		t.Fatalf("place buy: %v", err)
	}
	sellTx := dex.NewSellLimitExTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: bob, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideSell,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		OrderOpt:    dex.OptIsPublic,
		DexID:       9,
	})
	if err := dex.ProcessOrder(cw, registry, sellTx, 11, sellID, nil, nil); err != nil {
		t.Fatalf("place sell: %v", err)
	}
	if err := cw.Commit(); err != nil {
		t.Fatalf("commit fixture: %v", err)
	}

	cw2 := dex.NewCacheWrapper(accounts, books, operators)
	settleTx := &dex.SettleTx{
		Envelope: dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		DexID:    9,
		Deals: []dex.DealItem{{
			BuyOrderID:      buyID,
			SellOrderID:     sellID,
			DealPrice:       2 * dex.PriceScale,
			DealCoinAmount:  2_000,
			DealAssetAmount: 1_000,
		}},
		IsEx:        true,
		Public:      true,
		OperatorSig: nil,
	}
	if err := dex.ExecuteSettle(cw2, registry, settleTx, dex.VerifySettleOperatorSig, nil); err != nil {
		t.Fatalf("ExecuteSettle: %v, want success for public settlement with no operator signature", err)
	}
}
