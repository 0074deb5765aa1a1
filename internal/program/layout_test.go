package program

import (
	"errors"
	"testing"

	"StudentIntro/internal/ledger"
)

func TestRecordEncoding(t *testing.T) {
	acc := &ledger.Account{Owner: ProgramID, Data: make([]byte, recordSpace("Ivan", "Hello")+5)}

	// Fill with garbage to check the tail is cleared.
	for i := range acc.Data {
		acc.Data[i] = 0xAA
	}

	if err := encodeRecord(acc.Data, ivan, "Ivan", "Hello"); err != nil {
		t.Fatalf("encodeRecord failed: %v", err)
	}

	for _, b := range acc.Data[recordSpace("Ivan", "Hello"):] {
		if b != 0 {
			t.Fatalf("tail not zeroed: %x", acc.Data)
		}
	}

	rec, err := decodeRecord(ivan, acc)
	if err != nil {
		t.Fatalf("decodeRecord failed: %v", err)
	}

	if rec.Owner != ivan || rec.Name != "Ivan" || rec.Message != "Hello" || rec.Space != len(acc.Data) {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestEncodeRecordTooSmall(t *testing.T) {
	if err := encodeRecord(make([]byte, recordOverhead), ivan, "Ivan", "Hello"); err == nil {
		t.Error("expected error for undersized buffer")
	}
}

func TestDecodeRecordRejectsForeignAccounts(t *testing.T) {
	data := make([]byte, recordSpace("Ivan", "Hello"))
	if err := encodeRecord(data, ivan, "Ivan", "Hello"); err != nil {
		t.Fatalf("encodeRecord failed: %v", err)
	}

	if _, err := decodeRecord(ivan, &ledger.Account{Owner: maria, Data: data}); err == nil {
		t.Error("expected error for account owned by another program")
	}

	bad := append([]byte(nil), data...)
	bad[0] ^= 0xFF
	if _, err := decodeRecord(ivan, &ledger.Account{Owner: ProgramID, Data: bad}); err == nil {
		t.Error("expected error for wrong discriminator")
	}

	truncated := data[:recordOverhead+2]
	if _, err := decodeRecord(ivan, &ledger.Account{Owner: ProgramID, Data: truncated}); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestErrorCodes(t *testing.T) {
	wrapped := []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrAlreadyExists,
		ErrUnauthorized,
		ErrAlreadyInitialized,
		ErrMintNotInitialized,
	}

	seen := make(map[uint32]bool)

	for _, sentinel := range wrapped {
		code := Code(errors.Join(errors.New("context"), sentinel))
		if code < codeBase {
			t.Errorf("%v: code %d below base", sentinel, code)
		}

		if seen[code] {
			t.Errorf("duplicate code %d", code)
		}
		seen[code] = true

		if !errors.Is(FromCode(code), sentinel) {
			t.Errorf("FromCode(%d) = %v, want %v", code, FromCode(code), sentinel)
		}
	}

	if Code(errors.New("disk on fire")) != 0 {
		t.Error("non-program error should map to 0")
	}

	if FromCode(42) != nil || FromCode(codeBase+100) != nil {
		t.Error("unknown codes should map to nil")
	}
}

func TestMintAddressStable(t *testing.T) {
	a, bumpA, err := MintAddress()
	if err != nil {
		t.Fatalf("MintAddress failed: %v", err)
	}

	b, bumpB, _ := MintAddress()
	if a != b || bumpA != bumpB {
		t.Error("mint address is not deterministic")
	}

	signer, err := mintSigner(bumpA).Address()
	if err != nil {
		t.Fatalf("mint signer derivation failed: %v", err)
	}

	if signer != a {
		t.Errorf("mint signer = %s, want %s", signer, a)
	}

	rec, _ := IntroAddress(ivan, "mint")
	if rec == a {
		t.Error("record named mint collides with the mint singleton")
	}
}
