package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"StudentIntro/internal/address"
)

const (
	// MaxSpace is the largest data allocation an account may hold.
	MaxSpace = 10 * 1024

	// headerSize is owner (32) + version (8).
	headerSize = address.Size + 8
)

// ErrSpaceExceeded is returned when an allocation would exceed MaxSpace.
var ErrSpaceExceeded = errors.New("account space exceeded")

// Account is a ledger entry. Owner is the program allowed to write Data;
// len(Data) is the allocated space.
type Account struct {
	Owner   address.Address // Owner is the owning program
	Version uint64          // Version increments on every committed write
	Data    []byte          // Data is the program-defined payload
}

// NewAccount allocates a zeroed account of the given space.
func NewAccount(owner address.Address, space int) (*Account, error) {
	if space < 0 || space > MaxSpace {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrSpaceExceeded, space, MaxSpace)
	}

	return &Account{Owner: owner, Data: make([]byte, space)}, nil
}

// Space returns the allocated data size.
func (a *Account) Space() int {
	return len(a.Data)
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)

	return &Account{Owner: a.Owner, Version: a.Version, Data: data}
}

// Realloc resizes the data buffer to size. Growth copies the existing bytes
// into a new buffer and zero-fills the extension; shrinking truncates.
// With zero set, bytes past the old length are cleared even when the backing
// array is reused.
func (a *Account) Realloc(size int, zero bool) error {
	if size < 0 || size > MaxSpace {
		return fmt.Errorf("%w: %d (max %d)", ErrSpaceExceeded, size, MaxSpace)
	}

	old := len(a.Data)

	switch {
	case size > cap(a.Data):
		grown := make([]byte, size)
		copy(grown, a.Data)
		a.Data = grown
	case size > old:
		a.Data = a.Data[:size]
		if zero {
			clear(a.Data[old:])
		}
	default:
		a.Data = a.Data[:size]
	}

	return nil
}

// encodeAccount serializes an account: owner[32] | version u64 LE | data.
func encodeAccount(a *Account) []byte {
	buf := make([]byte, headerSize+len(a.Data))
	copy(buf[:address.Size], a.Owner[:])
	binary.LittleEndian.PutUint64(buf[address.Size:headerSize], a.Version)
	copy(buf[headerSize:], a.Data)

	return buf
}

// decodeAccount parses bytes produced by encodeAccount.
func decodeAccount(buf []byte) (*Account, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("account record too short: %d bytes", len(buf))
	}

	a := &Account{
		Version: binary.LittleEndian.Uint64(buf[address.Size:headerSize]),
		Data:    make([]byte, len(buf)-headerSize),
	}
	copy(a.Owner[:], buf[:address.Size])
	copy(a.Data, buf[headerSize:])

	return a, nil
}

// EncodeAccount exposes the stored form for snapshots.
func EncodeAccount(a *Account) []byte {
	return encodeAccount(a)
}

// DecodeAccount parses the stored form for snapshots.
func DecodeAccount(buf []byte) (*Account, error) {
	return decodeAccount(buf)
}
