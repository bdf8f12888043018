package dex_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexchain/dexcore/pkg/dex"
	"github.com/dexchain/dexcore/pkg/store"
)

func newTestRegistry() *store.MemAssetRegistry {
	reg := store.NewMemAssetRegistry()
	reg.RegisterAsset(dex.AssetMeta{Symbol: "WUSD", MinAmount: 1})
	reg.RegisterAsset(dex.AssetMeta{Symbol: "WICC", MinAmount: 1})
	reg.RegisterPair(dex.TradingPair{Coin: "WUSD", Asset: "WICC", MinPrice: 1})
	return reg
}

var alice = common.HexToAddress("0xAAAA000000000000000000000000000000AAAA")

func TestProcessOrder_BuyLimitFreezesCoin(t *testing.T) {
	accounts := store.NewMemAccountStore()
	accounts.Deposit(alice, "WUSD", 1_000_000)
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()

	cw := dex.NewCacheWrapper(accounts, books, operators)
	tx := dex.NewBuyLimitTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, ValidHeight: 0, PayerUID: alice, FeeSymbol: "WUSD", FeeAmount: 0},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		DexID:       dex.DexReservedID,
	})

	var orderID dex.OrderID
	orderID[0] = 1
	if err := dex.ProcessOrder(cw, registry, tx, 10, orderID, nil, nil); err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}
	if err := cw.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if got := accounts.FreeBalance(alice, "WUSD"); got != 998_000 {
		t.Fatalf("free balance = %d, want 998000", got)
	}
	if got := accounts.FrozenBalance(alice, "WUSD"); got != 2_000 {
		t.Fatalf("frozen balance = %d, want 2000", got)
	}

	stored, ok := books.Get(orderID)
	if !ok {
		t.Fatalf("order not persisted")
	}
	if stored.ResidualCoinAmount != 2_000 {
		t.Fatalf("residual coin = %d, want 2000", stored.ResidualCoinAmount)
	}
}

func TestProcessOrder_RejectsInsufficientBalance(t *testing.T) {
	accounts := store.NewMemAccountStore()
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()
	cw := dex.NewCacheWrapper(accounts, books, operators)

	tx := dex.NewSellMarketTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeMarket,
		OrderSide:   dex.OrderSideSell,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 500,
		DexID:       dex.DexReservedID,
	})

	var orderID dex.OrderID
	orderID[0] = 2
	err := dex.ProcessOrder(cw, registry, tx, 10, orderID, nil, nil)
	if err == nil {
		t.Fatalf("expected rejection for unfunded seller")
	}
	rerr, ok := err.(*dex.RejectError)
	if !ok || rerr.Reason != dex.ReasonInsufficientBal {
		t.Fatalf("got error %v, want INSUFFICIENT_BALANCE", err)
	}
}

func TestProcessOrder_ChargesFlatFeeToSystemPool(t *testing.T) {
	accounts := store.NewMemAccountStore()
	accounts.Deposit(alice, "WUSD", 1_000_000)
	accounts.Deposit(alice, "FEE", 500)
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()

	cw := dex.NewCacheWrapper(accounts, books, operators)
	tx := dex.NewBuyLimitTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "FEE", FeeAmount: 30},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		DexID:       dex.DexReservedID,
	})

	var orderID dex.OrderID
	orderID[0] = 9
	if err := dex.ProcessOrder(cw, registry, tx, 10, orderID, nil, nil); err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}
	if err := cw.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if got := accounts.FreeBalance(alice, "FEE"); got != 470 {
		t.Fatalf("payer FEE free balance = %d, want 470 (500 - 30 fee)", got)
	}
	if got := accounts.FreeBalance(dex.ZeroRegID, "FEE"); got != 30 {
		t.Fatalf("system fee pool FEE free balance = %d, want 30", got)
	}
}

func TestProcessOrder_PublicExOrderOnNonReservedDexSkipsCoSignature(t *testing.T) {
	accounts := store.NewMemAccountStore()
	accounts.Deposit(alice, "WUSD", 1_000_000)
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()

	op := dex.DexOperator{
		DexID:            7,
		OwnerRegID:       common.HexToAddress("0xC000000000000000000000000000000000000C"),
		FeeReceiverRegID: common.HexToAddress("0xFEE0000000000000000000000000000000FEE0"),
		MaxFeeRatio:      dex.FeeRatioScale / 100,
		AllowPublic:      true,
		Enabled:          true,
	}
	operators.Register(op)

	cw := dex.NewCacheWrapper(accounts, books, operators)
	tx := dex.NewBuyLimitExTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "WICC",
		AssetAmount: 1_000,
		Price:       2 * dex.PriceScale,
		OrderOpt:    dex.OptIsPublic,
		DexID:       7,
	})

	var orderID dex.OrderID
	orderID[0] = 11
	if err := dex.ProcessOrder(cw, registry, tx, 10, orderID, dex.VerifyOrderOperatorSig, nil); err != nil {
		t.Fatalf("ProcessOrder: %v, want success for public order with no operator signature", err)
	}
	if err := cw.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	stored, ok := books.Get(orderID)
	if !ok {
		t.Fatalf("order not persisted")
	}
	if stored.DexID != 7 {
		t.Fatalf("order dex_id = %d, want 7", stored.DexID)
	}
}

func TestProcessOrder_RejectsUnregisteredPair(t *testing.T) {
	accounts := store.NewMemAccountStore()
	accounts.Deposit(alice, "WUSD", 1_000_000)
	books := store.NewMemOrderBookStore()
	operators := store.NewMemOperatorRegistry()
	registry := newTestRegistry()
	cw := dex.NewCacheWrapper(accounts, books, operators)

	tx := dex.NewBuyLimitTx(dex.OrderFields{
		Envelope:    dex.Envelope{Version: 1, PayerUID: alice, FeeSymbol: "WUSD"},
		OrderType:   dex.OrderTypeLimit,
		OrderSide:   dex.OrderSideBuy,
		CoinSymbol:  "WUSD",
		AssetSymbol: "NOPE",
		AssetAmount: 1_000,
		Price:       dex.PriceScale,
		DexID:       dex.DexReservedID,
	})

	var orderID dex.OrderID
	if err := dex.ProcessOrder(cw, registry, tx, 10, orderID, nil, nil); err == nil {
		t.Fatalf("expected rejection for unregistered asset symbol")
	}
}
