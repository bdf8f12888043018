package dex

// accountKey identifies one (owner, token symbol) ledger entry.
type accountKey struct {
	owner  RegID
	symbol string
}

type balanceDelta struct {
	free, frozen uint64
	touched      bool
}

// CacheWrapper is the single-transaction scoped view: every balance and
// order-book mutation a transaction makes is buffered here; Commit flushes
// it to the backing stores atomically (as atomically as the backing stores
// allow). No step inside ProcessOrder/Settle/Cancel writes directly to the
// backing AccountView/OrderBookStore — they only ever go through a
// CacheWrapper, an in-memory-cache-over-backing-store pattern generalized
// from a single account store to the three stores this core needs.
type CacheWrapper struct {
	accounts  AccountView
	books     OrderBookStore
	operators OperatorRegistry

	balances    map[accountKey]*balanceDelta
	orderPuts   map[OrderID]*OrderDetail
	orderErased map[OrderID]bool
}

// NewCacheWrapper opens a scoped view over the given backing stores.
func NewCacheWrapper(accounts AccountView, books OrderBookStore, operators OperatorRegistry) *CacheWrapper {
	return &CacheWrapper{
		accounts:    accounts,
		books:       books,
		operators:   operators,
		balances:    make(map[accountKey]*balanceDelta),
		orderPuts:   make(map[OrderID]*OrderDetail),
		orderErased: make(map[OrderID]bool),
	}
}

func (cw *CacheWrapper) entry(owner RegID, symbol string) *balanceDelta {
	k := accountKey{owner, symbol}
	e, ok := cw.balances[k]
	if !ok {
		e = &balanceDelta{
			free:   cw.accounts.FreeBalance(owner, symbol),
			frozen: cw.accounts.FrozenBalance(owner, symbol),
		}
		cw.balances[k] = e
	}
	return e
}

func (cw *CacheWrapper) FreeBalance(owner RegID, symbol string) uint64 {
	return cw.entry(owner, symbol).free
}

func (cw *CacheWrapper) FrozenBalance(owner RegID, symbol string) uint64 {
	return cw.entry(owner, symbol).frozen
}

func (cw *CacheWrapper) Freeze(owner RegID, symbol string, amount uint64) error {
	e := cw.entry(owner, symbol)
	if e.free < amount {
		return reject(ReasonInsufficientBal, "owner=%s symbol=%s free=%d need=%d", owner.Hex(), symbol, e.free, amount)
	}
	e.free -= amount
	e.frozen += amount
	e.touched = true
	return nil
}

func (cw *CacheWrapper) Unfreeze(owner RegID, symbol string, amount uint64) error {
	e := cw.entry(owner, symbol)
	if e.frozen < amount {
		return reject(ReasonInsufficientBal, "owner=%s symbol=%s frozen=%d need=%d", owner.Hex(), symbol, e.frozen, amount)
	}
	e.frozen -= amount
	e.free += amount
	e.touched = true
	return nil
}

// ChargeFee debits amount of symbol directly from payer's free balance and
// credits it to receiver's free balance, used for the envelope's flat
// transaction fee. Unlike Freeze, the amount never passes through the
// payer's frozen balance: it leaves circulation from the payer's side in
// the same step it lands on the receiver's.
func (cw *CacheWrapper) ChargeFee(payer RegID, symbol string, amount uint64, receiver RegID) error {
	if amount == 0 {
		return nil
	}
	e := cw.entry(payer, symbol)
	if e.free < amount {
		return reject(ReasonInsufficientBal, "owner=%s symbol=%s free=%d need=%d", payer.Hex(), symbol, e.free, amount)
	}
	e.free -= amount
	e.touched = true
	r := cw.entry(receiver, symbol)
	r.free += amount
	r.touched = true
	return nil
}

func (cw *CacheWrapper) TransferFrozen(from, to RegID, symbol string, amount uint64) error {
	src := cw.entry(from, symbol)
	if src.frozen < amount {
		return reject(ReasonInsufficientBal, "owner=%s symbol=%s frozen=%d need=%d", from.Hex(), symbol, src.frozen, amount)
	}
	src.frozen -= amount
	src.touched = true
	dst := cw.entry(to, symbol)
	dst.free += amount
	dst.touched = true
	return nil
}

// GetOrder reads an order, honoring buffered puts/erasures from earlier in
// this transaction before falling through to the backing store.
func (cw *CacheWrapper) GetOrder(id OrderID) (*OrderDetail, bool) {
	if cw.orderErased[id] {
		return nil, false
	}
	if o, ok := cw.orderPuts[id]; ok {
		cp := *o
		return &cp, true
	}
	return cw.books.Get(id)
}

// PutOrder buffers an order upsert.
func (cw *CacheWrapper) PutOrder(order *OrderDetail) {
	cp := *order
	delete(cw.orderErased, order.OrderID)
	cw.orderPuts[order.OrderID] = &cp
}

// EraseOrder buffers an order removal.
func (cw *CacheWrapper) EraseOrder(id OrderID) {
	delete(cw.orderPuts, id)
	cw.orderErased[id] = true
}

func (cw *CacheWrapper) Operator(id DexID) (DexOperator, bool) {
	return cw.operators.Operator(id)
}

// Commit flushes every buffered mutation to the backing stores. Callers
// must only call Commit after every validation/execution step of the
// transaction has succeeded; a failing step should instead let the
// CacheWrapper go out of scope unused (there is no separate discard step,
// since nothing was written until Commit).
func (cw *CacheWrapper) Commit() error {
	for k, e := range cw.balances {
		if !e.touched {
			continue
		}
		if err := applyBalance(cw.accounts, k.owner, k.symbol, e.free, e.frozen); err != nil {
			return err
		}
	}
	for _, order := range cw.orderPuts {
		if err := cw.books.Put(order); err != nil {
			return err
		}
	}
	for id := range cw.orderErased {
		if err := cw.books.Erase(id); err != nil {
			return err
		}
	}
	return nil
}

// applyBalance reconciles a cached (free, frozen) pair back onto the
// backing AccountView's Freeze/Unfreeze primitives so that stores which
// only expose those two operations (rather than a raw setter) stay
// internally consistent.
func applyBalance(av AccountView, owner RegID, symbol string, wantFree, wantFrozen uint64) error {
	if setter, ok := av.(BalanceSetter); ok {
		setter.SetBalance(owner, symbol, wantFree, wantFrozen)
		return nil
	}
	curFree := av.FreeBalance(owner, symbol)
	curFrozen := av.FrozenBalance(owner, symbol)
	if wantFrozen > curFrozen {
		if err := av.Freeze(owner, symbol, wantFrozen-curFrozen); err != nil {
			return err
		}
	} else if wantFrozen < curFrozen {
		if err := av.Unfreeze(owner, symbol, curFrozen-wantFrozen); err != nil {
			return err
		}
	}
	_ = curFree
	return nil
}

// BalanceSetter is an optional fast path a backing AccountView may
// implement to apply a reconciled (free, frozen) pair in one write instead
// of via Freeze/Unfreeze deltas.
type BalanceSetter interface {
	SetBalance(owner RegID, symbol string, free, frozen uint64)
}
