package program

import (
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
)

// createRecord allocates a record sized to its payload at IntroAddress(owner, name).
func createRecord(txn *ledger.Txn, owner address.Address, name, message string) (*IntroRecord, error) {
	addr, err := IntroAddress(owner, name)
	if err != nil {
		return nil, err
	}

	exists, err := txn.Exists(addr)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, addr)
	}

	space := recordSpace(name, message)

	acc, err := txn.Create(addr, ProgramID, space)
	if err != nil {
		return nil, fmt.Errorf("allocate record:\n%w", err)
	}

	if err := encodeRecord(acc.Data, owner, name, message); err != nil {
		return nil, err
	}

	if err := txn.Put(addr, acc); err != nil {
		return nil, err
	}

	return &IntroRecord{Address: addr, Owner: owner, Name: name, Message: message, Space: space}, nil
}

// loadOwned loads the record at addr and checks that actor owns it and
// that addr really derives from (owner, name).
func loadOwned(txn *ledger.Txn, actor, addr address.Address, name string) (*ledger.Account, *IntroRecord, error) {
	acc, err := txn.Get(addr)
	if err != nil {
		return nil, nil, err
	}

	if acc == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}

	rec, err := decodeRecord(addr, acc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if rec.Owner != actor {
		return nil, nil, fmt.Errorf("%w: %s owns %s", ErrUnauthorized, rec.Owner, addr)
	}

	if rec.Name != name {
		return nil, nil, fmt.Errorf("%w: record %s is named %q, not %q", ErrInvalidInput, addr.Short(), rec.Name, name)
	}

	return acc, rec, nil
}

// updateRecord replaces the message, growing the account to exactly fit
// when the new payload is larger. The account never shrinks here.
func updateRecord(txn *ledger.Txn, actor, addr address.Address, name, message string) (*IntroRecord, int, error) {
	acc, rec, err := loadOwned(txn, actor, addr, name)
	if err != nil {
		return nil, 0, err
	}

	oldSpace := acc.Space()

	if need := recordSpace(rec.Name, message); need > oldSpace {
		if err := acc.Realloc(need, true); err != nil {
			return nil, 0, fmt.Errorf("realloc record:\n%w", err)
		}
	}

	if err := encodeRecord(acc.Data, rec.Owner, rec.Name, message); err != nil {
		return nil, 0, err
	}

	if err := txn.Put(addr, acc); err != nil {
		return nil, 0, err
	}

	rec.Message = message
	rec.Space = acc.Space()

	return rec, oldSpace, nil
}

// deleteRecord removes the record account entirely.
func deleteRecord(txn *ledger.Txn, actor, addr address.Address, name string) (*IntroRecord, error) {
	_, rec, err := loadOwned(txn, actor, addr, name)
	if err != nil {
		return nil, err
	}

	if err := txn.Delete(addr); err != nil {
		return nil, err
	}

	return rec, nil
}

// fetchRecord reads the record at addr.
func fetchRecord(r ledger.Reader, addr address.Address) (*IntroRecord, error) {
	acc, err := r.Get(addr)
	if err != nil {
		return nil, err
	}

	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}

	rec, err := decodeRecord(addr, acc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return rec, nil
}
