package program

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
)

const (
	// MaxNameLength is the maximum name size in bytes.
	MaxNameLength = 20

	// MaxMessageLength is the maximum message size in bytes.
	MaxMessageLength = 50

	// discriminatorSize is the account type tag length.
	discriminatorSize = 8

	// recordOverhead is discriminator + owner + two u32 length prefixes.
	recordOverhead = discriminatorSize + address.Size + 4 + 4
)

// recordDiscriminator tags intro record accounts.
var recordDiscriminator = discriminator("account:IntroRecord")

// discriminator returns the first 8 bytes of blake3(name).
func discriminator(name string) [discriminatorSize]byte {
	sum := blake3.Sum256([]byte(name))

	var d [discriminatorSize]byte
	copy(d[:], sum[:discriminatorSize])

	return d
}

// IntroRecord is a student introduction as stored on the ledger.
type IntroRecord struct {
	Address address.Address `json:"address"` // Address is where the record lives
	Owner   address.Address `json:"owner"`   // Owner created the record and controls it
	Name    string          `json:"name"`    // Name is part of the address derivation
	Message string          `json:"message"` // Message is the mutable payload
	Space   int             `json:"space"`   // Space is the allocated account size
}

// recordSpace returns the exact account size for a record.
func recordSpace(name, message string) int {
	return recordOverhead + len(name) + len(message)
}

// validateName checks the name bound and encoding.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidInput)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name too long (%d > %d bytes)", ErrInvalidInput, len(name), MaxNameLength)
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidInput)
	}

	return nil
}

// validateMessage checks the message bound and encoding.
func validateMessage(message string) error {
	if len(message) > MaxMessageLength {
		return fmt.Errorf("%w: message too long (%d > %d bytes)", ErrInvalidInput, len(message), MaxMessageLength)
	}

	if !utf8.ValidString(message) {
		return fmt.Errorf("%w: message is not valid UTF-8", ErrInvalidInput)
	}

	return nil
}

// encodeRecord writes the record into buf and zeroes any unused tail:
// discriminator[8] | owner[32] | u32 len | name | u32 len | message.
func encodeRecord(buf []byte, owner address.Address, name, message string) error {
	need := recordSpace(name, message)
	if len(buf) < need {
		return fmt.Errorf("record buffer too small: %d < %d", len(buf), need)
	}

	off := copy(buf, recordDiscriminator[:])
	off += copy(buf[off:], owner[:])

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(name)))
	off += 4
	off += copy(buf[off:], name)

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(message)))
	off += 4
	off += copy(buf[off:], message)

	clear(buf[off:])

	return nil
}

// decodeRecord parses an intro record account.
func decodeRecord(addr address.Address, acc *ledger.Account) (*IntroRecord, error) {
	data := acc.Data

	if acc.Owner != ProgramID {
		return nil, fmt.Errorf("account %s is not owned by the intro program", addr.Short())
	}

	if len(data) < recordOverhead || [discriminatorSize]byte(data[:discriminatorSize]) != recordDiscriminator {
		return nil, fmt.Errorf("account %s is not an intro record", addr.Short())
	}

	rec := &IntroRecord{Address: addr, Space: len(data)}
	off := copy(rec.Owner[:], data[discriminatorSize:discriminatorSize+address.Size]) + discriminatorSize

	name, off, err := readString(data, off)
	if err != nil {
		return nil, fmt.Errorf("read name:\n%w", err)
	}

	message, _, err := readString(data, off)
	if err != nil {
		return nil, fmt.Errorf("read message:\n%w", err)
	}

	rec.Name = name
	rec.Message = message

	return rec, nil
}

// readString reads a u32-length-prefixed string at off.
func readString(data []byte, off int) (string, int, error) {
	if len(data) < off+4 {
		return "", off, fmt.Errorf("truncated length at %d", off)
	}

	n := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4

	if n > len(data)-off {
		return "", off, fmt.Errorf("length %d exceeds remaining %d bytes", n, len(data)-off)
	}

	return string(data[off : off+n]), off + n, nil
}
