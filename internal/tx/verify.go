package tx

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"StudentIntro/internal/address"
	"StudentIntro/internal/types"
)

const (
	// hashSize is the expected size of a transaction hash.
	hashSize = 32

	// signatureSize is the expected size of an Ed25519 signature.
	signatureSize = 64

	// maxAccounts is the maximum number of explicit account addresses.
	maxAccounts = 8

	// maxFunctionName bounds the method name length.
	maxFunctionName = 64
)

var (
	// ErrMalformed is returned for transactions that fail structural checks.
	ErrMalformed = errors.New("malformed transaction")

	// ErrBadHash is returned when the declared hash does not match the content.
	ErrBadHash = errors.New("transaction hash mismatch")

	// ErrBadSignature is returned when the signature does not verify.
	ErrBadSignature = errors.New("invalid transaction signature")
)

// Signed is a transaction whose hash and signature have been verified.
type Signed struct {
	Hash     [32]byte          // Hash identifies the transaction
	Sender   address.Address   // Sender is the verified signer
	Program  address.Address   // Program is the target program id
	Method   string            // Method is the instruction name
	Args     []byte            // Args are the raw Borsh arguments
	Accounts []address.Address // Accounts are the explicit account addresses
	Nonce    uint64            // Nonce as sent
}

// Verify parses raw Transaction bytes and checks field sizes, hash and
// signature.
func Verify(data []byte) (signed *Signed, retErr error) {
	// FlatBuffers panics on malformed data, recover gracefully
	defer func() {
		if r := recover(); r != nil {
			signed = nil
			retErr = fmt.Errorf("%w: unreadable buffer", ErrMalformed)
		}
	}()

	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}

	t := types.GetRootAsTransaction(data, 0)

	if err := validateFieldSizes(t); err != nil {
		return nil, err
	}

	if err := validateHash(t); err != nil {
		return nil, err
	}

	if !ed25519.Verify(t.SenderBytes(), t.HashBytes(), t.SignatureBytes()) {
		return nil, ErrBadSignature
	}

	return toSigned(t)
}

// validateFieldSizes checks that all fixed-size fields have the correct length.
func validateFieldSizes(t *types.Transaction) error {
	if n := len(t.HashBytes()); n != hashSize {
		return fmt.Errorf("%w: hash size %d, want %d", ErrMalformed, n, hashSize)
	}

	if n := len(t.SenderBytes()); n != address.Size {
		return fmt.Errorf("%w: sender size %d, want %d", ErrMalformed, n, address.Size)
	}

	if n := len(t.SignatureBytes()); n != signatureSize {
		return fmt.Errorf("%w: signature size %d, want %d", ErrMalformed, n, signatureSize)
	}

	if n := len(t.ProgramBytes()); n != address.Size {
		return fmt.Errorf("%w: program size %d, want %d", ErrMalformed, n, address.Size)
	}

	if n := len(t.FunctionName()); n == 0 || n > maxFunctionName {
		return fmt.Errorf("%w: function name length %d", ErrMalformed, n)
	}

	accounts := t.AccountsBytes()
	if len(accounts)%address.Size != 0 {
		return fmt.Errorf("%w: accounts length %d is not a multiple of %d", ErrMalformed, len(accounts), address.Size)
	}

	if n := len(accounts) / address.Size; n > maxAccounts {
		return fmt.Errorf("%w: %d accounts (max %d)", ErrMalformed, n, maxAccounts)
	}

	return nil
}

// validateHash recomputes the transaction hash and compares it to the declared hash.
func validateHash(t *types.Transaction) error {
	unsigned := unsignedTxBytes(
		t.SenderBytes(),
		t.ProgramBytes(),
		string(t.FunctionName()),
		t.ArgsBytes(),
		t.AccountsBytes(),
		t.Nonce(),
	)
	expected := blake3.Sum256(unsigned)

	if !bytes.Equal(t.HashBytes(), expected[:]) {
		return ErrBadHash
	}

	return nil
}

// toSigned copies the verified fields out of the FlatBuffers table.
func toSigned(t *types.Transaction) (*Signed, error) {
	s := &Signed{
		Method: string(t.FunctionName()),
		Args:   append([]byte(nil), t.ArgsBytes()...),
		Nonce:  t.Nonce(),
	}

	copy(s.Hash[:], t.HashBytes())
	copy(s.Sender[:], t.SenderBytes())
	copy(s.Program[:], t.ProgramBytes())

	raw := t.AccountsBytes()
	for i := 0; i < len(raw); i += address.Size {
		a, err := address.FromBytes(raw[i : i+address.Size])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		s.Accounts = append(s.Accounts, a)
	}

	return s, nil
}
