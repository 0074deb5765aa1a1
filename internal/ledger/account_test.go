package ledger

import (
	"bytes"
	"errors"
	"testing"

	"StudentIntro/internal/address"
)

// TestReallocGrowPreserves verifies growth keeps existing bytes and zero-fills the tail.
func TestReallocGrowPreserves(t *testing.T) {
	acc, err := NewAccount(testOwner, 4)
	if err != nil {
		t.Fatalf("NewAccount failed: %v", err)
	}
	copy(acc.Data, "Ivan")

	if err := acc.Realloc(10, true); err != nil {
		t.Fatalf("Realloc failed: %v", err)
	}

	if acc.Space() != 10 {
		t.Errorf("space = %d, want 10", acc.Space())
	}

	if !bytes.Equal(acc.Data[:4], []byte("Ivan")) {
		t.Errorf("prefix = %q, want Ivan", acc.Data[:4])
	}

	if !bytes.Equal(acc.Data[4:], make([]byte, 6)) {
		t.Errorf("tail not zeroed: %x", acc.Data[4:])
	}
}

// TestReallocShrinkThenGrowZeroes verifies reused capacity is cleared when zero is set.
func TestReallocShrinkThenGrowZeroes(t *testing.T) {
	acc, _ := NewAccount(testOwner, 8)
	copy(acc.Data, "abcdefgh")

	if err := acc.Realloc(2, false); err != nil {
		t.Fatalf("shrink failed: %v", err)
	}

	if err := acc.Realloc(6, true); err != nil {
		t.Fatalf("grow failed: %v", err)
	}

	want := []byte{'a', 'b', 0, 0, 0, 0}
	if !bytes.Equal(acc.Data, want) {
		t.Errorf("data = %q, want %q", acc.Data, want)
	}
}

func TestReallocLimit(t *testing.T) {
	acc, _ := NewAccount(testOwner, 0)

	if err := acc.Realloc(MaxSpace+1, true); !errors.Is(err, ErrSpaceExceeded) {
		t.Errorf("expected ErrSpaceExceeded, got %v", err)
	}

	if _, err := NewAccount(testOwner, MaxSpace+1); !errors.Is(err, ErrSpaceExceeded) {
		t.Errorf("expected ErrSpaceExceeded, got %v", err)
	}
}

func TestAccountEncoding(t *testing.T) {
	in := &Account{Owner: address.Named("o"), Version: 7, Data: []byte("payload")}

	out, err := decodeAccount(encodeAccount(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if out.Owner != in.Owner || out.Version != in.Version || !bytes.Equal(out.Data, in.Data) {
		t.Errorf("decoded %+v, want %+v", out, in)
	}

	if _, err := decodeAccount(make([]byte, headerSize-1)); err == nil {
		t.Error("expected error for truncated record")
	}
}

func TestSortedUnique(t *testing.T) {
	a := address.Address{1}
	b := address.Address{2}

	got := sortedUnique([]address.Address{b, a, b, a})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("sortedUnique = %v", got)
	}
}
