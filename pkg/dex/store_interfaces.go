package dex

// AccountView is the accessor over the account store the core needs:
// balance reads, freezes, unfreezes, and transfers, scoped to one (owner,
// token symbol) pair at a time. Implementations own the actual ledger;
// pkg/store provides an in-memory and a Pebble-backed one.
type AccountView interface {
	// FreeBalance returns the spendable (unfrozen) balance of symbol held
	// by owner.
	FreeBalance(owner RegID, symbol string) uint64
	// FrozenBalance returns the frozen balance of symbol held by owner.
	FrozenBalance(owner RegID, symbol string) uint64
	// Freeze moves amount from owner's free balance to frozen. Fails with
	// INSUFFICIENT_BALANCE if the free balance is short.
	Freeze(owner RegID, symbol string, amount uint64) error
	// Unfreeze moves amount from owner's frozen balance back to free.
	Unfreeze(owner RegID, symbol string, amount uint64) error
	// TransferFrozen moves amount out of from's frozen balance directly
	// into to's free balance, without passing through from's free balance.
	// Used by settlement, which unfreezes and transfers in one step.
	TransferFrozen(from, to RegID, symbol string, amount uint64) error
}

// OrderBookStore is the persistent index keyed by order id: put, get,
// erase. An OrderDetail exists in the store iff it has strictly positive
// residuals.
type OrderBookStore interface {
	Put(order *OrderDetail) error
	Get(id OrderID) (*OrderDetail, bool)
	Erase(id OrderID) error
}
