package ledger

import (
	"bytes"
	"sort"
	"sync"

	"StudentIntro/internal/address"
)

// lockTable serializes work per address. Entries exist only while held or
// awaited, so the table does not grow with the number of accounts.
type lockTable struct {
	mu    sync.Mutex
	locks map[address.Address]*addrLock
}

// addrLock is one address mutex with its holder/waiter count.
type addrLock struct {
	mu   sync.Mutex
	refs int
}

// newLockTable creates an empty lock table.
func newLockTable() *lockTable {
	return &lockTable{locks: make(map[address.Address]*addrLock)}
}

// acquire locks every address in ascending byte order and returns the
// release function. Duplicates are locked once.
func (t *lockTable) acquire(addrs []address.Address) func() {
	ordered := sortedUnique(addrs)
	held := make([]*addrLock, 0, len(ordered))

	for _, a := range ordered {
		t.mu.Lock()
		l := t.locks[a]
		if l == nil {
			l = &addrLock{}
			t.locks[a] = l
		}
		l.refs++
		t.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			l := held[i]
			l.mu.Unlock()

			t.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(t.locks, ordered[i])
			}
			t.mu.Unlock()
		}
	}
}

// size returns the number of live entries.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.locks)
}

// sortedUnique returns addrs sorted ascending without duplicates.
func sortedUnique(addrs []address.Address) []address.Address {
	out := make([]address.Address, len(addrs))
	copy(out, addrs)

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})

	n := 0
	for i, a := range out {
		if i > 0 && a == out[n-1] {
			continue
		}
		out[n] = a
		n++
	}

	return out[:n]
}
