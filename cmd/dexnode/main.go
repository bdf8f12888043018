// Command dexnode applies a scripted sequence of DEX order/cancel/settle
// transactions against a Pebble-backed store, seeding the registered
// assets/pairs/operators from config first. Scripted transactions pass
// through a mempool bucket pass (settle, then cancel, then order) before
// being applied, the same priority a block proposer would give them. It is
// a batch driver, not a consensus node: the consensus/networking layer that
// would propose and order these transactions across validators is out of
// scope here.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/dexchain/dexcore/pkg/app/core/mempool"
	"github.com/dexchain/dexcore/pkg/config"
	"github.com/dexchain/dexcore/pkg/dex"
	"github.com/dexchain/dexcore/pkg/dexlog"
	"github.com/dexchain/dexcore/pkg/store"
	"github.com/dexchain/dexcore/pkg/util"
)

func main() {
	envPath := flag.String("env", "", "path to .env file (optional)")
	scriptPath := flag.String("script", "", "path to a JSON file of scripted transactions to apply")
	height := flag.Uint64("height", 1, "current chain height to apply the script at")
	flag.Parse()

	cfg := config.LoadFromEnv(*envPath)

	logger, err := dexlog.NewWithFile(cfg.Storage.LogPath)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	runID := uuid.NewString()
	sugar := logger.Sugar().With("run_id", runID)

	db, err := store.OpenPebbleStore(cfg.Storage.DBPath)
	if err != nil {
		sugar.Fatalw("pebble_open_failed", "err", err)
	}
	defer db.Close()

	for _, a := range cfg.Assets {
		if err := db.RegisterAsset(dex.AssetMeta{Symbol: a.Symbol, MinAmount: a.MinAmount, MaxAmount: a.MaxAmount}); err != nil {
			sugar.Fatalw("register_asset_failed", "symbol", a.Symbol, "err", err)
		}
	}
	for _, p := range cfg.Pairs {
		if err := db.RegisterPair(dex.TradingPair{Coin: p.Coin, Asset: p.Asset, MinPrice: p.MinPrice, MaxPrice: p.MaxPrice}); err != nil {
			sugar.Fatalw("register_pair_failed", "pair", p.Coin+"/"+p.Asset, "err", err)
		}
	}
	for _, o := range cfg.Operators {
		op := dex.DexOperator{
			DexID:            dex.DexID(o.DexID),
			OwnerRegID:       common.HexToAddress(o.OwnerRegID),
			FeeReceiverRegID: common.HexToAddress(o.FeeReceiverRegID),
			MakerFeeRatio:    o.MakerFeeRatio,
			TakerFeeRatio:    o.TakerFeeRatio,
			MaxFeeRatio:      o.MaxFeeRatio,
			AllowPublic:      o.AllowPublic,
			Enabled:          true,
		}
		if err := db.RegisterOperator(op); err != nil {
			sugar.Fatalw("register_operator_failed", "dex_id", o.DexID, "err", err)
		}
	}
	sugar.Infow("seeded_registry", "assets", len(cfg.Assets), "pairs", len(cfg.Pairs), "operators", len(cfg.Operators))

	if *scriptPath == "" {
		sugar.Info("no -script given, registry seeded, exiting")
		return
	}

	data, err := os.ReadFile(*scriptPath)
	if err != nil {
		sugar.Fatalw("read_script_failed", "err", err)
	}
	// The script file is a JSON array of base64-encoded, wire-encoded
	// transactions (the same bytes OrderTx/CancelTx/SettleTx.Encode produces);
	// encoding/json decodes a []byte field from base64 automatically, so a
	// [][]byte target is exactly the array-of-base64-strings shape on disk.
	var script [][]byte
	if err := json.Unmarshal(data, &script); err != nil {
		sugar.Fatalw("parse_script_failed", "err", err)
	}

	pool := mempool.NewMempool()
	for _, raw := range script {
		pool.PushRaw(raw)
	}
	if dropped := pool.Dropped(); dropped > 0 {
		sugar.Warnw("script_contained_unrecognized_tx", "dropped", dropped)
	}

	var clock util.Clock = util.RealClock{}
	started := clock.Now()

	ordered := pool.SelectForProposal(0)
	for i, raw := range ordered {
		kind := mempool.ClassifyRaw(raw)
		cw := dex.NewCacheWrapper(db, db, db)
		if err := applyRawTx(cw, db, kind, raw, *height); err != nil {
			sugar.Errorw("tx_rejected", "index", i, "kind", kind, "err", err)
			continue
		}
		if err := cw.Commit(); err != nil {
			sugar.Errorw("tx_commit_failed", "index", i, "kind", kind, "err", err)
			continue
		}
		sugar.Infow("tx_applied", "index", i, "kind", kind)
	}
	sugar.Infow("script_done", "txs", len(ordered), "elapsed", clock.Now().Sub(started).String())
}

// applyRawTx decodes a single wire-encoded transaction by its mempool-
// classified kind and runs it through the matching core operation.
func applyRawTx(cw *dex.CacheWrapper, assets dex.AssetRegistry, kind mempool.TxType, raw []byte, height uint64) error {
	switch kind {
	case mempool.TxOrder:
		tx, err := dex.DecodeOrderTx(raw)
		if err != nil {
			return fmt.Errorf("decode order tx: %w", err)
		}
		digest, err := tx.Digest()
		if err != nil {
			return err
		}
		var orderID dex.OrderID
		copy(orderID[:], digest[:])
		return dex.ProcessOrder(cw, assets, tx, height, orderID, dex.VerifyOrderOperatorSig, dex.VerifyPayerSignature)

	case mempool.TxCancel:
		tx, err := dex.DecodeCancelTx(raw)
		if err != nil {
			return fmt.Errorf("decode cancel tx: %w", err)
		}
		return dex.ExecuteCancel(cw, tx, tx.Envelope.PayerUID, dex.VerifyPayerSignature)

	case mempool.TxSettle:
		tx, err := dex.DecodeSettleTx(raw)
		if err != nil {
			return fmt.Errorf("decode settle tx: %w", err)
		}
		return dex.ExecuteSettle(cw, assets, tx, dex.VerifySettleOperatorSig, dex.VerifyPayerSignature)

	default:
		return fmt.Errorf("unrecognized tx kind byte %d", raw[0])
	}
}
