// Package token implements the ledger's fungible-token primitives: mint
// accounts, per-owner token accounts at associated addresses, and
// authority-checked minting. Programs call it the way they would call a
// native runtime program.
package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
)

var (
	// ProgramID owns every mint and token account.
	ProgramID = address.Named("token-program")

	// AssociatedProgramID is the program under which associated token
	// account addresses are derived.
	AssociatedProgramID = address.Named("associated-token-program")
)

const (
	// MintSize is initialized (1) + authority (32) + decimals (1) + supply (8).
	MintSize = 1 + address.Size + 1 + 8

	// AccountSize is mint (32) + owner (32) + amount (8).
	AccountSize = address.Size + address.Size + 8

	// MaxDecimals bounds the precision so 10^decimals fits in a uint64.
	MaxDecimals = 19
)

var (
	// ErrMintExists is returned when initializing an occupied mint address.
	ErrMintExists = errors.New("mint already initialized")

	// ErrMintMissing is returned when a mint account does not exist.
	ErrMintMissing = errors.New("mint not found")

	// ErrInvalidAuthority is returned when the signer is not the mint authority.
	ErrInvalidAuthority = errors.New("invalid mint authority")

	// ErrAccountMismatch is returned when a token account belongs to another mint or owner.
	ErrAccountMismatch = errors.New("token account mismatch")

	// ErrInvalidAccount is returned for accounts not owned by the token program
	// or with a malformed layout.
	ErrInvalidAccount = errors.New("invalid token account")

	// ErrOverflow is returned when a balance or supply would wrap.
	ErrOverflow = errors.New("amount overflow")

	// ErrInvalidDecimals is returned for precisions above MaxDecimals.
	ErrInvalidDecimals = errors.New("invalid decimals")
)

// Mint is the decoded state of a mint account.
type Mint struct {
	Authority address.Address // Authority is the only address allowed to mint
	Decimals  uint8           // Decimals is the display precision
	Supply    uint64          // Supply is the total amount minted, in base units
}

// Account is the decoded state of a token account.
type Account struct {
	Mint   address.Address // Mint is the token type held
	Owner  address.Address // Owner is the wallet the balance belongs to
	Amount uint64          // Amount is the balance in base units
}

// Signer is a program-derived authority: the address is accepted only if it
// re-derives from Seeds under Program, which proves the calling program
// produced it.
type Signer struct {
	Program address.Address // Program is the calling program
	Seeds   [][]byte        // Seeds derive the authority address, bump included
}

// Address re-derives the signer address.
func (s Signer) Address() (address.Address, error) {
	return address.CreateProgramAddress(s.Seeds, s.Program)
}

// AssociatedAddress returns the canonical token account address for
// (owner, mint).
func AssociatedAddress(owner, mint address.Address) (address.Address, error) {
	addr, _, err := address.FindProgramAddress(
		[][]byte{owner[:], ProgramID[:], mint[:]},
		AssociatedProgramID,
	)
	if err != nil {
		return address.Address{}, fmt.Errorf("derive associated account:\n%w", err)
	}

	return addr, nil
}

// Scale returns whole * 10^decimals, failing on overflow.
func Scale(whole uint64, decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}

	result := whole
	for i := uint8(0); i < decimals; i++ {
		next := result * 10
		if result != 0 && next/10 != result {
			return 0, fmt.Errorf("%w: %d * 10^%d", ErrOverflow, whole, decimals)
		}
		result = next
	}

	return result, nil
}

// encodeMint serializes a mint: initialized u8 | authority | decimals u8 | supply u64 LE.
func encodeMint(m *Mint, buf []byte) {
	buf[0] = 1
	copy(buf[1:1+address.Size], m.Authority[:])
	buf[1+address.Size] = m.Decimals
	binary.LittleEndian.PutUint64(buf[2+address.Size:MintSize], m.Supply)
}

// decodeMint parses a mint account.
func decodeMint(acc *ledger.Account) (*Mint, error) {
	if acc.Owner != ProgramID || len(acc.Data) < MintSize || acc.Data[0] != 1 {
		return nil, fmt.Errorf("%w: not a mint", ErrInvalidAccount)
	}

	m := &Mint{
		Decimals: acc.Data[1+address.Size],
		Supply:   binary.LittleEndian.Uint64(acc.Data[2+address.Size : MintSize]),
	}
	copy(m.Authority[:], acc.Data[1:1+address.Size])

	return m, nil
}

// encodeAccount serializes a token account: mint | owner | amount u64 LE.
func encodeAccount(a *Account, buf []byte) {
	copy(buf[:address.Size], a.Mint[:])
	copy(buf[address.Size:2*address.Size], a.Owner[:])
	binary.LittleEndian.PutUint64(buf[2*address.Size:AccountSize], a.Amount)
}

// decodeAccount parses a token account.
func decodeAccount(acc *ledger.Account) (*Account, error) {
	if acc.Owner != ProgramID || len(acc.Data) != AccountSize {
		return nil, fmt.Errorf("%w: not a token account", ErrInvalidAccount)
	}

	a := &Account{Amount: binary.LittleEndian.Uint64(acc.Data[2*address.Size:])}
	copy(a.Mint[:], acc.Data[:address.Size])
	copy(a.Owner[:], acc.Data[address.Size:2*address.Size])

	return a, nil
}
