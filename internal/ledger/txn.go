package ledger

import (
	"errors"
	"fmt"

	"StudentIntro/internal/address"
)

var (
	// ErrNotLocked is returned when a transaction touches an address outside
	// the set it declared.
	ErrNotLocked = errors.New("address not declared by transaction")

	// ErrAccountExists is returned by Create when the address is occupied.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountMissing is returned by Put and Delete on an absent account.
	ErrAccountMissing = errors.New("account does not exist")
)

// Reader gives read access to accounts. Both the committed ledger and an
// open transaction satisfy it.
type Reader interface {
	// Get returns a copy of the account at addr, or nil if absent.
	Get(addr address.Address) (*Account, error)
}

// Txn is a private overlay of account writes. Nothing reaches storage until
// the owning Exec call commits it; a failed instruction leaves no trace.
type Txn struct {
	store    *accountStore
	declared map[address.Address]struct{}
	writes   map[address.Address]*Account // nil value marks a deletion
	order    []address.Address            // order is first-write order, for deterministic batches
}

// newTxn creates an overlay restricted to the declared addresses.
func newTxn(store *accountStore, addrs []address.Address) *Txn {
	declared := make(map[address.Address]struct{}, len(addrs))
	for _, a := range addrs {
		declared[a] = struct{}{}
	}

	return &Txn{
		store:    store,
		declared: declared,
		writes:   make(map[address.Address]*Account),
	}
}

// Get returns a copy of the account as seen by this transaction.
func (t *Txn) Get(addr address.Address) (*Account, error) {
	if err := t.check(addr); err != nil {
		return nil, err
	}

	if acc, ok := t.writes[addr]; ok {
		if acc == nil {
			return nil, nil
		}
		return acc.Clone(), nil
	}

	return t.store.get(addr)
}

// Exists reports whether an account is present at addr.
func (t *Txn) Exists(addr address.Address) (bool, error) {
	acc, err := t.Get(addr)
	if err != nil {
		return false, err
	}

	return acc != nil, nil
}

// Create allocates a zeroed account at an unoccupied address.
func (t *Txn) Create(addr, owner address.Address, space int) (*Account, error) {
	exists, err := t.Exists(addr)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}

	acc, err := NewAccount(owner, space)
	if err != nil {
		return nil, err
	}

	t.record(addr, acc.Clone())

	return acc, nil
}

// Put replaces an existing account with acc.
func (t *Txn) Put(addr address.Address, acc *Account) error {
	exists, err := t.Exists(addr)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s", ErrAccountMissing, addr)
	}

	if acc.Space() > MaxSpace {
		return fmt.Errorf("%w: %d (max %d)", ErrSpaceExceeded, acc.Space(), MaxSpace)
	}

	t.record(addr, acc.Clone())

	return nil
}

// Delete removes the account and all of its data.
func (t *Txn) Delete(addr address.Address) error {
	exists, err := t.Exists(addr)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s", ErrAccountMissing, addr)
	}

	t.record(addr, nil)

	return nil
}

// record stores a pending write, remembering first-write order.
func (t *Txn) record(addr address.Address, acc *Account) {
	if _, seen := t.writes[addr]; !seen {
		t.order = append(t.order, addr)
	}

	t.writes[addr] = acc
}

// check rejects addresses outside the declared set.
func (t *Txn) check(addr address.Address) error {
	if _, ok := t.declared[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrNotLocked, addr)
	}

	return nil
}
