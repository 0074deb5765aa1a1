package token

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/storage"
)

var testProgram = address.Named("token-test-program")

// newTestLedger creates a ledger over a temporary Pebble store.
func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return ledger.New(db)
}

// testMint derives a program-signed mint whose authority is itself.
func testMint(t *testing.T) (address.Address, Signer) {
	t.Helper()

	seed := []byte("mint")

	addr, bump, err := address.FindProgramAddress([][]byte{seed}, testProgram)
	if err != nil {
		t.Fatalf("derive mint: %v", err)
	}

	return addr, Signer{Program: testProgram, Seeds: [][]byte{seed, {bump}}}
}

// setupMint initializes the test mint with 6 decimals.
func setupMint(t *testing.T, l *ledger.Ledger) (address.Address, Signer) {
	t.Helper()

	mint, signer := testMint(t)

	err := l.Exec([]address.Address{mint}, func(txn *ledger.Txn) error {
		_, err := InitializeMint(txn, mint, mint, 6)
		return err
	})
	if err != nil {
		t.Fatalf("InitializeMint failed: %v", err)
	}

	return mint, signer
}

func TestInitializeMint(t *testing.T) {
	l := newTestLedger(t)
	mint, _ := setupMint(t, l)

	m, err := GetMint(l, mint)
	if err != nil {
		t.Fatalf("GetMint failed: %v", err)
	}

	if m.Authority != mint || m.Decimals != 6 || m.Supply != 0 {
		t.Errorf("unexpected mint: %+v", m)
	}

	err = l.Exec([]address.Address{mint}, func(txn *ledger.Txn) error {
		_, err := InitializeMint(txn, mint, mint, 9)
		return err
	})
	if !errors.Is(err, ErrMintExists) {
		t.Errorf("expected ErrMintExists, got %v", err)
	}

	// The failed re-initialization did not overwrite the precision.
	m, _ = GetMint(l, mint)
	if m.Decimals != 6 {
		t.Errorf("decimals = %d after failed re-init, want 6", m.Decimals)
	}
}

func TestGetMintMissing(t *testing.T) {
	l := newTestLedger(t)

	if _, err := GetMint(l, address.Named("nothing")); !errors.Is(err, ErrMintMissing) {
		t.Errorf("expected ErrMintMissing, got %v", err)
	}
}

func TestMintToAssociatedAccount(t *testing.T) {
	l := newTestLedger(t)
	mint, signer := setupMint(t, l)
	owner := address.Named("wallet")

	dest, err := AssociatedAddress(owner, mint)
	if err != nil {
		t.Fatalf("AssociatedAddress failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := l.Exec([]address.Address{mint, dest}, func(txn *ledger.Txn) error {
			addr, created, err := EnsureAssociatedAccount(txn, owner, mint)
			if err != nil {
				return err
			}

			if created != (i == 0) {
				t.Errorf("round %d: created = %v", i, created)
			}

			return MintTo(txn, mint, addr, signer, 10_000_000)
		})
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
	}

	balance, err := Balance(l, owner, mint)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}

	if balance != 20_000_000 {
		t.Errorf("balance = %d, want 20000000", balance)
	}

	m, _ := GetMint(l, mint)
	if m.Supply != 20_000_000 {
		t.Errorf("supply = %d, want 20000000", m.Supply)
	}
}

// TestMintToWrongSigner verifies only the derived authority can mint.
func TestMintToWrongSigner(t *testing.T) {
	l := newTestLedger(t)
	mint, signer := setupMint(t, l)
	owner := address.Named("wallet")
	dest, _ := AssociatedAddress(owner, mint)

	forged := Signer{Program: address.Named("other-program"), Seeds: signer.Seeds}

	err := l.Exec([]address.Address{mint, dest}, func(txn *ledger.Txn) error {
		addr, _, err := EnsureAssociatedAccount(txn, owner, mint)
		if err != nil {
			return err
		}
		return MintTo(txn, mint, addr, forged, 1)
	})
	if !errors.Is(err, ErrInvalidAuthority) {
		t.Errorf("expected ErrInvalidAuthority, got %v", err)
	}

	if balance, _ := Balance(l, owner, mint); balance != 0 {
		t.Errorf("balance = %d after rejected mint, want 0", balance)
	}
}

func TestMintToOverflow(t *testing.T) {
	l := newTestLedger(t)
	mint, signer := setupMint(t, l)
	owner := address.Named("wallet")
	dest, _ := AssociatedAddress(owner, mint)
	addrs := []address.Address{mint, dest}

	mintAmount := func(amount uint64) error {
		return l.Exec(addrs, func(txn *ledger.Txn) error {
			addr, _, err := EnsureAssociatedAccount(txn, owner, mint)
			if err != nil {
				return err
			}
			return MintTo(txn, mint, addr, signer, amount)
		})
	}

	if err := mintAmount(math.MaxUint64); err != nil {
		t.Fatalf("first mint failed: %v", err)
	}

	if err := mintAmount(1); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestScale(t *testing.T) {
	got, err := Scale(10, 6)
	if err != nil {
		t.Fatalf("Scale failed: %v", err)
	}

	if got != 10_000_000 {
		t.Errorf("Scale(10, 6) = %d, want 10000000", got)
	}

	if _, err := Scale(math.MaxUint64/5, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}

	if _, err := Scale(1, MaxDecimals+1); !errors.Is(err, ErrInvalidDecimals) {
		t.Errorf("expected ErrInvalidDecimals, got %v", err)
	}
}
