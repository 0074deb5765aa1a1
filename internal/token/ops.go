package token

import (
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
)

// InitializeMint creates a mint account at mintAddr.
func InitializeMint(txn *ledger.Txn, mintAddr, authority address.Address, decimals uint8) (*Mint, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}

	exists, err := txn.Exists(mintAddr)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("%w: %s", ErrMintExists, mintAddr)
	}

	acc, err := txn.Create(mintAddr, ProgramID, MintSize)
	if err != nil {
		return nil, err
	}

	m := &Mint{Authority: authority, Decimals: decimals}
	encodeMint(m, acc.Data)

	if err := txn.Put(mintAddr, acc); err != nil {
		return nil, err
	}

	return m, nil
}

// GetMint reads the mint at addr. Returns ErrMintMissing if absent.
func GetMint(r ledger.Reader, addr address.Address) (*Mint, error) {
	acc, err := r.Get(addr)
	if err != nil {
		return nil, err
	}

	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrMintMissing, addr)
	}

	return decodeMint(acc)
}

// GetAccount reads the token account at addr. Returns nil, nil if absent.
func GetAccount(r ledger.Reader, addr address.Address) (*Account, error) {
	acc, err := r.Get(addr)
	if err != nil || acc == nil {
		return nil, err
	}

	return decodeAccount(acc)
}

// Balance returns the owner's balance of mint, zero when the associated
// account does not exist yet.
func Balance(r ledger.Reader, owner, mint address.Address) (uint64, error) {
	addr, err := AssociatedAddress(owner, mint)
	if err != nil {
		return 0, err
	}

	acc, err := GetAccount(r, addr)
	if err != nil || acc == nil {
		return 0, err
	}

	return acc.Amount, nil
}

// EnsureAssociatedAccount returns the associated token account address for
// (owner, mint), creating an empty account there if none exists.
func EnsureAssociatedAccount(txn *ledger.Txn, owner, mint address.Address) (address.Address, bool, error) {
	addr, err := AssociatedAddress(owner, mint)
	if err != nil {
		return address.Address{}, false, err
	}

	existing, err := GetAccount(txn, addr)
	if err != nil {
		return address.Address{}, false, err
	}

	if existing != nil {
		if existing.Mint != mint || existing.Owner != owner {
			return address.Address{}, false, fmt.Errorf("%w: %s", ErrAccountMismatch, addr)
		}
		return addr, false, nil
	}

	acc, err := txn.Create(addr, ProgramID, AccountSize)
	if err != nil {
		return address.Address{}, false, err
	}

	encodeAccount(&Account{Mint: mint, Owner: owner}, acc.Data)

	if err := txn.Put(addr, acc); err != nil {
		return address.Address{}, false, err
	}

	return addr, true, nil
}

// MintTo credits amount to the token account dest and raises the supply.
// The signer must re-derive to the mint authority.
func MintTo(txn *ledger.Txn, mintAddr, dest address.Address, signer Signer, amount uint64) error {
	authority, err := signer.Address()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAuthority, err)
	}

	mintAcc, err := txn.Get(mintAddr)
	if err != nil {
		return err
	}

	if mintAcc == nil {
		return fmt.Errorf("%w: %s", ErrMintMissing, mintAddr)
	}

	m, err := decodeMint(mintAcc)
	if err != nil {
		return err
	}

	if m.Authority != authority {
		return fmt.Errorf("%w: got %s, want %s", ErrInvalidAuthority, authority, m.Authority)
	}

	destAcc, err := txn.Get(dest)
	if err != nil {
		return err
	}

	if destAcc == nil {
		return fmt.Errorf("%w: destination %s missing", ErrInvalidAccount, dest)
	}

	holder, err := decodeAccount(destAcc)
	if err != nil {
		return err
	}

	if holder.Mint != mintAddr {
		return fmt.Errorf("%w: destination holds %s", ErrAccountMismatch, holder.Mint)
	}

	// Overflow check: neither supply nor balance may wrap
	if m.Supply+amount < m.Supply {
		return fmt.Errorf("%w: supply=%d + amount=%d", ErrOverflow, m.Supply, amount)
	}

	if holder.Amount+amount < holder.Amount {
		return fmt.Errorf("%w: balance=%d + amount=%d", ErrOverflow, holder.Amount, amount)
	}

	m.Supply += amount
	holder.Amount += amount

	encodeMint(m, mintAcc.Data)
	encodeAccount(holder, destAcc.Data)

	if err := txn.Put(mintAddr, mintAcc); err != nil {
		return err
	}

	return txn.Put(dest, destAcc)
}
