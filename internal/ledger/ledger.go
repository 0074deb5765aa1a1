package ledger

import (
	"errors"
	"fmt"
	"sync/atomic"

	"StudentIntro/internal/address"
	"StudentIntro/internal/storage"
)

// Ledger is the account state. Work runs through Exec, which serializes
// transactions per address and commits each one atomically.
type Ledger struct {
	db    *storage.Storage // db is the backing Pebble store
	store *accountStore    // store reads committed accounts
	locks *lockTable       // locks serializes transactions per address

	commits atomic.Uint64 // commits counts batches that wrote something
}

// ErrAlreadyProcessed is returned by ExecTx for a transaction hash that was
// already consumed.
var ErrAlreadyProcessed = errors.New("transaction already processed")

// New creates a ledger over the given storage.
func New(db *storage.Storage) *Ledger {
	return &Ledger{
		db:    db,
		store: newAccountStore(db),
		locks: newLockTable(),
	}
}

// Get returns the committed account at addr, or nil if absent.
func (l *Ledger) Get(addr address.Address) (*Account, error) {
	return l.store.get(addr)
}

// Each visits every committed account in address order.
func (l *Ledger) Each(fn func(addr address.Address, acc *Account) error) error {
	return l.store.each(fn)
}

// Exec locks addrs, runs fn against a fresh overlay restricted to them, and
// commits the overlay in one batch if fn succeeds. When fn fails nothing is
// written and its error is returned unchanged.
func (l *Ledger) Exec(addrs []address.Address, fn func(txn *Txn) error) error {
	release := l.locks.acquire(addrs)
	defer release()

	txn := newTxn(l.store, addrs)

	if err := fn(txn); err != nil {
		return err
	}

	if err := l.commit(txn, nil); err != nil {
		return fmt.Errorf("commit:\n%w", err)
	}

	return nil
}

// ExecTx is Exec for a signed transaction identified by hash. The hash is
// consumed in the same batch as the writes, or on its own when fn fails, so
// the same transaction never runs twice. A consumed hash is rejected with
// ErrAlreadyProcessed before fn runs.
func (l *Ledger) ExecTx(hash [32]byte, addrs []address.Address, fn func(txn *Txn) error) error {
	// The hash is locked like an address so concurrent copies serialize.
	locked := make([]address.Address, 0, len(addrs)+1)
	locked = append(locked, addrs...)
	locked = append(locked, address.Address(hash))

	release := l.locks.acquire(locked)
	defer release()

	done, err := l.Executed(hash)
	if err != nil {
		return fmt.Errorf("check executed:\n%w", err)
	}

	if done {
		return fmt.Errorf("%w: %x", ErrAlreadyProcessed, hash[:8])
	}

	txn := newTxn(l.store, addrs)

	if err := fn(txn); err != nil {
		if cerr := l.commit(newTxn(l.store, nil), &hash); cerr != nil {
			return errors.Join(err, fmt.Errorf("consume hash:\n%w", cerr))
		}
		return err
	}

	if err := l.commit(txn, &hash); err != nil {
		return fmt.Errorf("commit:\n%w", err)
	}

	return nil
}

// Executed reports whether the transaction hash has been consumed.
func (l *Ledger) Executed(hash [32]byte) (bool, error) {
	return l.db.Has(ExecutedKey(hash))
}

// EachExecuted visits every consumed transaction hash in byte order.
func (l *Ledger) EachExecuted(fn func(hash [32]byte) error) error {
	return l.db.IteratePrefix(ExecutedKeyPrefix, func(key, _ []byte) error {
		var hash [32]byte
		if copy(hash[:], key[len(ExecutedKeyPrefix):]) != len(hash) {
			return nil
		}

		return fn(hash)
	})
}

// Commits returns the number of batches that changed state.
func (l *Ledger) Commits() uint64 {
	return l.commits.Load()
}

// commit writes the overlay, plus the consumed hash if given, as one storage
// batch, bumping versions.
func (l *Ledger) commit(txn *Txn, hash *[32]byte) error {
	b := l.db.NewBatch()
	defer b.Close()

	for _, addr := range txn.order {
		acc := txn.writes[addr]
		key := AccountKey(addr)

		if acc == nil {
			if err := b.Delete(key); err != nil {
				return err
			}
			continue
		}

		prev, err := l.store.get(addr)
		if err != nil {
			return err
		}

		acc.Version = 1
		if prev != nil {
			acc.Version = prev.Version + 1
		}

		if err := b.Set(key, encodeAccount(acc)); err != nil {
			return err
		}
	}

	if hash != nil {
		if err := b.Set(ExecutedKey(*hash), []byte{}); err != nil {
			return err
		}
	}

	if b.Count() == 0 {
		return nil
	}

	if err := b.Commit(); err != nil {
		return err
	}

	l.commits.Add(1)

	return nil
}
