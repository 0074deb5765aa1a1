package address

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

const (
	// Size is the byte length of an address.
	Size = 32

	// MaxSeedLength is the maximum length of a single derivation seed.
	MaxSeedLength = 32

	// MaxSeeds is the maximum number of seeds, bump included.
	MaxSeeds = 16
)

// pdaMarker domain-separates program-derived addresses from other blake3 uses.
var pdaMarker = []byte("ProgramDerivedAddress")

var (
	// ErrSeedTooLong is returned when a seed exceeds MaxSeedLength.
	ErrSeedTooLong = errors.New("seed too long")

	// ErrTooManySeeds is returned when more than MaxSeeds seeds are supplied.
	ErrTooManySeeds = errors.New("too many seeds")

	// ErrOnCurve is returned when a derivation lands on the ed25519 curve.
	ErrOnCurve = errors.New("derived address is on curve")

	// ErrNoViableBump is returned when no bump yields an off-curve address.
	ErrNoViableBump = errors.New("no viable bump seed")
)

// Address is a 32-byte account identifier: either an ed25519 public key or
// a program-derived address that no private key can sign for.
type Address [Size]byte

// Zero is the all-zero address.
var Zero Address

// FromBytes copies b into an Address. b must be exactly Size bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("invalid address length: got %d, want %d", len(b), Size)
	}

	copy(a[:], b)

	return a, nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode base58 %q:\n%w", s, err)
	}

	return FromBytes(raw)
}

// Named returns the fixed address for a well-known component name.
func Named(name string) Address {
	return blake3.Sum256([]byte(name))
}

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Short returns the first 8 base58 characters, for logs.
func (a Address) Short() string {
	s := a.String()
	if len(s) > 8 {
		return s[:8]
	}

	return s
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])

	return b
}

// MarshalText implements encoding.TextMarshaler using base58.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using base58.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// IsOnCurve reports whether b decodes to a valid ed25519 point.
func IsOnCurve(b [Size]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}

// CreateProgramAddress derives blake3(seeds... || programID || marker) and
// rejects results that lie on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, fmt.Errorf("%w: %d (max %d)", ErrTooManySeeds, len(seeds), MaxSeeds)
	}

	h := blake3.New()

	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, fmt.Errorf("%w: seed %d is %d bytes (max %d)", ErrSeedTooLong, i, len(seed), MaxSeedLength)
		}
		_, _ = h.Write(seed)
	}

	_, _ = h.Write(programID[:])
	_, _ = h.Write(pdaMarker)

	var out Address
	copy(out[:], h.Sum(nil))

	if IsOnCurve(out) {
		return Address{}, ErrOnCurve
	}

	return out, nil
}

// FindProgramAddress searches bumps from 255 down to 0, appended as a final
// one-byte seed, and returns the first off-curve address with its bump.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, fmt.Errorf("%w: %d (max %d with bump)", ErrTooManySeeds, len(seeds), MaxSeeds-1)
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	bump := []byte{0}

	for b := 255; b >= 0; b-- {
		bump[0] = uint8(b)
		withBump[len(seeds)] = bump

		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(b), nil
		}

		if !errors.Is(err, ErrOnCurve) {
			return Address{}, 0, err
		}
	}

	return Address{}, 0, ErrNoViableBump
}
