package store

import (
	"sync"

	"github.com/dexchain/dexcore/pkg/dex"
)

type balanceEntry struct {
	free, frozen uint64
}

// MemAccountStore is an in-memory AccountView, used in tests and as the
// backing store for a single-process node without persistence, guarded by
// a mutex.
type MemAccountStore struct {
	mu sync.Mutex
	m  map[string]*balanceEntry
}

func NewMemAccountStore() *MemAccountStore {
	return &MemAccountStore{m: make(map[string]*balanceEntry)}
}

func (s *MemAccountStore) key(owner dex.RegID, symbol string) string {
	return owner.Hex() + ":" + symbol
}

func (s *MemAccountStore) entry(owner dex.RegID, symbol string) *balanceEntry {
	k := s.key(owner, symbol)
	e, ok := s.m[k]
	if !ok {
		e = &balanceEntry{}
		s.m[k] = e
	}
	return e
}

func (s *MemAccountStore) FreeBalance(owner dex.RegID, symbol string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry(owner, symbol).free
}

func (s *MemAccountStore) FrozenBalance(owner dex.RegID, symbol string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry(owner, symbol).frozen
}

func (s *MemAccountStore) Freeze(owner dex.RegID, symbol string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(owner, symbol)
	if e.free < amount {
		return dex.NewRejectError(dex.ReasonInsufficientBal)
	}
	e.free -= amount
	e.frozen += amount
	return nil
}

func (s *MemAccountStore) Unfreeze(owner dex.RegID, symbol string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(owner, symbol)
	if e.frozen < amount {
		return dex.NewRejectError(dex.ReasonInsufficientBal)
	}
	e.frozen -= amount
	e.free += amount
	return nil
}

func (s *MemAccountStore) TransferFrozen(from, to dex.RegID, symbol string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.entry(from, symbol)
	if src.frozen < amount {
		return dex.NewRejectError(dex.ReasonInsufficientBal)
	}
	src.frozen -= amount
	s.entry(to, symbol).free += amount
	return nil
}

// SetBalance implements dex.BalanceSetter, letting a CacheWrapper commit a
// reconciled (free, frozen) pair in one write.
func (s *MemAccountStore) SetBalance(owner dex.RegID, symbol string, free, frozen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(owner, symbol)
	e.free = free
	e.frozen = frozen
}

// Deposit credits an owner's free balance. Not part of AccountView (the
// core transaction set never mints funds out of nothing); exported for
// test setup and for whatever external deposit/withdraw mechanism seeds
// balances in a real deployment.
func (s *MemAccountStore) Deposit(owner dex.RegID, symbol string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(owner, symbol).free += amount
}

// MemOrderBookStore is an in-memory OrderBookStore.
type MemOrderBookStore struct {
	mu sync.Mutex
	m  map[dex.OrderID]*dex.OrderDetail
}

func NewMemOrderBookStore() *MemOrderBookStore {
	return &MemOrderBookStore{m: make(map[dex.OrderID]*dex.OrderDetail)}
}

func (s *MemOrderBookStore) Put(order *dex.OrderDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.m[order.OrderID] = &cp
	return nil
}

func (s *MemOrderBookStore) Get(id dex.OrderID) (*dex.OrderDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (s *MemOrderBookStore) Erase(id dex.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

// MemOperatorRegistry is an in-memory OperatorRegistry.
type MemOperatorRegistry struct {
	mu sync.RWMutex
	m  map[dex.DexID]dex.DexOperator
}

func NewMemOperatorRegistry() *MemOperatorRegistry {
	return &MemOperatorRegistry{m: make(map[dex.DexID]dex.DexOperator)}
}

func (r *MemOperatorRegistry) Register(op dex.DexOperator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[op.DexID] = op
}

func (r *MemOperatorRegistry) Operator(id dex.DexID) (dex.DexOperator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.m[id]
	return op, ok
}

// MemAssetRegistry is an in-memory AssetRegistry.
type MemAssetRegistry struct {
	mu     sync.RWMutex
	assets map[string]dex.AssetMeta
	pairs  map[string]dex.TradingPair
}

func NewMemAssetRegistry() *MemAssetRegistry {
	return &MemAssetRegistry{
		assets: make(map[string]dex.AssetMeta),
		pairs:  make(map[string]dex.TradingPair),
	}
}

func (r *MemAssetRegistry) RegisterAsset(meta dex.AssetMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[meta.Symbol] = meta
}

func (r *MemAssetRegistry) RegisterPair(pair dex.TradingPair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[pair.Coin+"/"+pair.Asset] = pair
}

func (r *MemAssetRegistry) Asset(symbol string) (dex.AssetMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.assets[symbol]
	return m, ok
}

func (r *MemAssetRegistry) Pair(coin, asset string) (dex.TradingPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pairs[coin+"/"+asset]
	return p, ok
}

var (
	_ dex.AccountView      = (*MemAccountStore)(nil)
	_ dex.BalanceSetter    = (*MemAccountStore)(nil)
	_ dex.OrderBookStore   = (*MemOrderBookStore)(nil)
	_ dex.OperatorRegistry = (*MemOperatorRegistry)(nil)
	_ dex.AssetRegistry    = (*MemAssetRegistry)(nil)
)
