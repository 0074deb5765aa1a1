package snapshot

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/storage"
	"StudentIntro/internal/types"
)

var testOwner = address.Named("snapshot-test-program")

// newTestStorage creates a temporary Pebble store.
func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seed writes n accounts with distinct payloads.
func seed(t *testing.T, l *ledger.Ledger, n int) []address.Address {
	t.Helper()

	addrs := make([]address.Address, n)
	for i := range addrs {
		addrs[i] = address.Named(string(rune('a' + i)))
	}

	err := l.Exec(addrs, func(txn *ledger.Txn) error {
		for i, addr := range addrs {
			acc, err := txn.Create(addr, testOwner, i+1)
			if err != nil {
				return err
			}

			for j := range acc.Data {
				acc.Data[j] = byte(i)
			}

			if err := txn.Put(addr, acc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	return addrs
}

func TestExportRestoreRoundTrip(t *testing.T) {
	src := ledger.New(newTestStorage(t))
	addrs := seed(t, src, 5)

	now := time.UnixMilli(1_700_000_000_000)

	data, info, err := Export(src, now)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if info.Accounts != 5 || !info.CreatedAt.Equal(now) {
		t.Errorf("unexpected export info: %+v", info)
	}

	dstDB := newTestStorage(t)

	restored, err := Restore(dstDB, data)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if restored.Accounts != 5 || restored.Version != formatVersion {
		t.Errorf("unexpected restore info: %+v", restored)
	}

	dst := ledger.New(dstDB)

	for _, addr := range addrs {
		want, _ := src.Get(addr)
		got, err := dst.Get(addr)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if got == nil {
			t.Fatalf("account %s missing after restore", addr)
		}

		if got.Owner != want.Owner || got.Version != want.Version || !bytes.Equal(got.Data, want.Data) {
			t.Errorf("account %s differs after restore", addr)
		}
	}
}

func TestExportDeterministic(t *testing.T) {
	l := ledger.New(newTestStorage(t))
	seed(t, l, 3)

	now := time.UnixMilli(42)

	a, _, err := Export(l, now)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	b, _, err := Export(l, now)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Error("exports of the same state differ")
	}
}

func TestRestoreRejectsTamperedSnapshot(t *testing.T) {
	l := ledger.New(newTestStorage(t))
	seed(t, l, 2)

	data, _, err := Export(l, time.UnixMilli(1000))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	raw, err := Decompress(data)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	if !types.GetRootAsSnapshot(raw, 0).MutateCreatedAt(2000) {
		t.Fatal("failed to mutate createdAt")
	}

	tampered, err := Compress(raw)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	_, err = Restore(newTestStorage(t), tampered)
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
}

func TestRestoreRejectsNonEmptyLedger(t *testing.T) {
	l := ledger.New(newTestStorage(t))
	seed(t, l, 1)

	data, _, err := Export(l, time.Now())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := newTestStorage(t)
	seed(t, ledger.New(dst), 1)

	if _, err := Restore(dst, data); !errors.Is(err, ErrNotEmpty) {
		t.Errorf("expected ErrNotEmpty, got %v", err)
	}
}

func TestRestoreGarbage(t *testing.T) {
	db := newTestStorage(t)

	if _, err := Restore(db, []byte("not zstd")); err == nil {
		t.Error("expected error for non-zstd input")
	}

	junk, err := Compress([]byte("definitely not a snapshot"))
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	if _, err := Restore(db, junk); err == nil {
		t.Error("expected error for garbage snapshot")
	}
}

func TestRestoreCarriesExecutedHashes(t *testing.T) {
	src := ledger.New(newTestStorage(t))
	addr := address.Named("signed")
	hash := [32]byte{0xab, 0xcd}

	err := src.ExecTx(hash, []address.Address{addr}, func(txn *ledger.Txn) error {
		_, err := txn.Create(addr, testOwner, 1)
		return err
	})
	if err != nil {
		t.Fatalf("ExecTx failed: %v", err)
	}

	data, info, err := Export(src, time.UnixMilli(5000))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if info.Accounts != 1 || info.Executed != 1 {
		t.Errorf("unexpected export info: %+v", info)
	}

	dstDB := newTestStorage(t)

	restored, err := Restore(dstDB, data)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if restored.Executed != 1 {
		t.Errorf("restored executed = %d, want 1", restored.Executed)
	}

	dst := ledger.New(dstDB)

	if done, err := dst.Executed(hash); err != nil || !done {
		t.Errorf("Executed after restore = %v, %v; want true", done, err)
	}

	err = dst.ExecTx(hash, []address.Address{addr}, func(*ledger.Txn) error { return nil })
	if !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed on restored node, got %v", err)
	}
}
