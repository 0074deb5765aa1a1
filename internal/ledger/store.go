package ledger

import (
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/storage"
)

var (
	// AccountKeyPrefix is the Pebble key prefix for account entries.
	AccountKeyPrefix = []byte("a:")

	// ExecutedKeyPrefix is the Pebble key prefix for consumed transaction hashes.
	ExecutedKeyPrefix = []byte("t:")
)

// accountStore holds accounts indexed by address, backed by persistent storage.
type accountStore struct {
	db *storage.Storage // db is the underlying Pebble storage
}

// newAccountStore creates an account store backed by the given storage.
func newAccountStore(db *storage.Storage) *accountStore {
	return &accountStore{db: db}
}

// get retrieves an account. Returns nil, nil if absent.
func (s *accountStore) get(addr address.Address) (*Account, error) {
	raw, err := s.db.Get(AccountKey(addr))
	if err != nil {
		return nil, fmt.Errorf("read account %s:\n%w", addr.Short(), err)
	}

	if raw == nil {
		return nil, nil
	}

	acc, err := decodeAccount(raw)
	if err != nil {
		return nil, fmt.Errorf("decode account %s:\n%w", addr.Short(), err)
	}

	return acc, nil
}

// each calls fn for every stored account in address order.
func (s *accountStore) each(fn func(addr address.Address, acc *Account) error) error {
	return s.db.IteratePrefix(AccountKeyPrefix, func(key, value []byte) error {
		addr, err := address.FromBytes(key[len(AccountKeyPrefix):])
		if err != nil {
			return nil
		}

		acc, err := decodeAccount(value)
		if err != nil {
			return fmt.Errorf("decode account %s:\n%w", addr.Short(), err)
		}

		return fn(addr, acc)
	})
}

// AccountKey builds the Pebble key for an account: "a:" + address bytes.
func AccountKey(addr address.Address) []byte {
	key := make([]byte, len(AccountKeyPrefix)+address.Size)
	copy(key, AccountKeyPrefix)
	copy(key[len(AccountKeyPrefix):], addr[:])

	return key
}

// ExecutedKey builds the Pebble key for a consumed transaction: "t:" + hash.
func ExecutedKey(hash [32]byte) []byte {
	key := make([]byte, len(ExecutedKeyPrefix)+len(hash))
	copy(key, ExecutedKeyPrefix)
	copy(key[len(ExecutedKeyPrefix):], hash[:])

	return key
}
