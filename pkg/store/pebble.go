package store

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/dexchain/dexcore/pkg/dex"
)

// PebbleStore persists balances, orders, operators, and registered
// asset/pair metadata in a single Pebble database: JSON-encoded values
// behind prefixed keys,
// pebble.Sync on every write since these are consensus-critical records.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebbleStore(dbPath string) (*PebbleStore, error) {
	opts := &pebble.Options{
		Cache:         pebble.NewCache(128 << 20),
		MemTableSize:  64 << 20,
		MaxOpenFiles:  1000,
		BytesPerSync:  512 << 10,
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", dbPath, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

type pebbleBalance struct {
	Free, Frozen uint64
}

func (s *PebbleStore) loadBalance(owner dex.RegID, symbol string) pebbleBalance {
	data, closer, err := s.db.Get(balanceKey(owner, symbol))
	if err == pebble.ErrNotFound {
		return pebbleBalance{}
	}
	if err != nil {
		panic(fmt.Errorf("load balance: %w", err))
	}
	defer closer.Close()
	var b pebbleBalance
	if err := json.Unmarshal(data, &b); err != nil {
		panic(fmt.Errorf("unmarshal balance: %w", err))
	}
	return b
}

func (s *PebbleStore) saveBalance(owner dex.RegID, symbol string, b pebbleBalance) {
	data, err := json.Marshal(b)
	if err != nil {
		panic(fmt.Errorf("marshal balance: %w", err))
	}
	if err := s.db.Set(balanceKey(owner, symbol), data, pebble.Sync); err != nil {
		panic(fmt.Errorf("save balance: %w", err))
	}
}

func (s *PebbleStore) FreeBalance(owner dex.RegID, symbol string) uint64 {
	return s.loadBalance(owner, symbol).Free
}

func (s *PebbleStore) FrozenBalance(owner dex.RegID, symbol string) uint64 {
	return s.loadBalance(owner, symbol).Frozen
}

func (s *PebbleStore) Freeze(owner dex.RegID, symbol string, amount uint64) error {
	b := s.loadBalance(owner, symbol)
	if b.Free < amount {
		return dex.NewRejectError(dex.ReasonInsufficientBal)
	}
	b.Free -= amount
	b.Frozen += amount
	s.saveBalance(owner, symbol, b)
	return nil
}

func (s *PebbleStore) Unfreeze(owner dex.RegID, symbol string, amount uint64) error {
	b := s.loadBalance(owner, symbol)
	if b.Frozen < amount {
		return dex.NewRejectError(dex.ReasonInsufficientBal)
	}
	b.Frozen -= amount
	b.Free += amount
	s.saveBalance(owner, symbol, b)
	return nil
}

func (s *PebbleStore) TransferFrozen(from, to dex.RegID, symbol string, amount uint64) error {
	src := s.loadBalance(from, symbol)
	if src.Frozen < amount {
		return dex.NewRejectError(dex.ReasonInsufficientBal)
	}
	src.Frozen -= amount
	s.saveBalance(from, symbol, src)
	dst := s.loadBalance(to, symbol)
	dst.Free += amount
	s.saveBalance(to, symbol, dst)
	return nil
}

func (s *PebbleStore) SetBalance(owner dex.RegID, symbol string, free, frozen uint64) {
	s.saveBalance(owner, symbol, pebbleBalance{Free: free, Frozen: frozen})
}

// Deposit credits an owner's free balance, for node bootstrap / external
// deposit wiring (not part of dex.AccountView; the core tx set never mints
// funds on its own).
func (s *PebbleStore) Deposit(owner dex.RegID, symbol string, amount uint64) {
	b := s.loadBalance(owner, symbol)
	b.Free += amount
	s.saveBalance(owner, symbol, b)
}

// Put/Get/Erase implement dex.OrderBookStore.
func (s *PebbleStore) Put(order *dex.OrderDetail) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	return s.db.Set(orderKey(order.OrderID), data, pebble.Sync)
}

func (s *PebbleStore) Get(id dex.OrderID) (*dex.OrderDetail, bool) {
	data, closer, err := s.db.Get(orderKey(id))
	if err == pebble.ErrNotFound {
		return nil, false
	}
	if err != nil {
		panic(fmt.Errorf("get order: %w", err))
	}
	defer closer.Close()
	var o dex.OrderDetail
	if err := json.Unmarshal(data, &o); err != nil {
		panic(fmt.Errorf("unmarshal order: %w", err))
	}
	return &o, true
}

func (s *PebbleStore) Erase(id dex.OrderID) error {
	return s.db.Delete(orderKey(id), pebble.Sync)
}

// ListOrdersByOwner range-scans every order belonging to owner. Orders are
// not keyed by owner in this schema (order_id is globally unique and is
// the only lookup ProcessOrder/ExecuteSettle/ExecuteCancel need), so this
// is a full-table scan filtered in process; it exists for operator/CLI
// tooling, not the hot transaction-execution path.
func (s *PebbleStore) ListOrdersByOwner(owner dex.RegID) ([]*dex.OrderDetail, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixOrder),
		UpperBound: keyUpperBound([]byte(prefixOrder)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []*dex.OrderDetail
	for iter.First(); iter.Valid(); iter.Next() {
		var o dex.OrderDetail
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			continue
		}
		if o.OwnerRegID == owner {
			out = append(out, &o)
		}
	}
	return out, nil
}

// Operator implements dex.OperatorRegistry.
func (s *PebbleStore) Operator(id dex.DexID) (dex.DexOperator, bool) {
	data, closer, err := s.db.Get(operatorKey(id))
	if err == pebble.ErrNotFound {
		return dex.DexOperator{}, false
	}
	if err != nil {
		panic(fmt.Errorf("get operator: %w", err))
	}
	defer closer.Close()
	var op dex.DexOperator
	if err := json.Unmarshal(data, &op); err != nil {
		panic(fmt.Errorf("unmarshal operator: %w", err))
	}
	return op, true
}

// RegisterOperator persists operator configuration. Governance of who may
// call this is out of scope for this package.
func (s *PebbleStore) RegisterOperator(op dex.DexOperator) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operator: %w", err)
	}
	return s.db.Set(operatorKey(op.DexID), data, pebble.Sync)
}

// Asset/Pair implement dex.AssetRegistry.
func (s *PebbleStore) Asset(symbol string) (dex.AssetMeta, bool) {
	data, closer, err := s.db.Get(assetKey(symbol))
	if err == pebble.ErrNotFound {
		return dex.AssetMeta{}, false
	}
	if err != nil {
		panic(fmt.Errorf("get asset: %w", err))
	}
	defer closer.Close()
	var meta dex.AssetMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		panic(fmt.Errorf("unmarshal asset: %w", err))
	}
	return meta, true
}

func (s *PebbleStore) RegisterAsset(meta dex.AssetMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}
	return s.db.Set(assetKey(meta.Symbol), data, pebble.Sync)
}

func (s *PebbleStore) Pair(coin, asset string) (dex.TradingPair, bool) {
	data, closer, err := s.db.Get(pairKey(coin, asset))
	if err == pebble.ErrNotFound {
		return dex.TradingPair{}, false
	}
	if err != nil {
		panic(fmt.Errorf("get pair: %w", err))
	}
	defer closer.Close()
	var pair dex.TradingPair
	if err := json.Unmarshal(data, &pair); err != nil {
		panic(fmt.Errorf("unmarshal pair: %w", err))
	}
	return pair, true
}

func (s *PebbleStore) RegisterPair(pair dex.TradingPair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal pair: %w", err)
	}
	return s.db.Set(pairKey(pair.Coin, pair.Asset), data, pebble.Sync)
}

var (
	_ dex.AccountView      = (*PebbleStore)(nil)
	_ dex.OrderBookStore   = (*PebbleStore)(nil)
	_ dex.OperatorRegistry = (*PebbleStore)(nil)
	_ dex.AssetRegistry    = (*PebbleStore)(nil)
	_ dex.BalanceSetter    = (*PebbleStore)(nil)
)
