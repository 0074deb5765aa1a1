package tx

import (
	"encoding/binary"
	"fmt"
)

// maxArgString bounds any string argument before program-level checks run.
const maxArgString = 1024

// EncodeIntroArgs encodes (name, message) in Borsh format.
// Format: u32 len + name bytes + u32 len + message bytes
func EncodeIntroArgs(name, message string) []byte {
	buf := make([]byte, 0, 8+len(name)+len(message))
	buf = appendString(buf, name)
	buf = appendString(buf, message)

	return buf
}

// DecodeIntroArgs decodes arguments produced by EncodeIntroArgs.
func DecodeIntroArgs(data []byte) (name, message string, err error) {
	name, rest, err := readString(data)
	if err != nil {
		return "", "", fmt.Errorf("name: %w", err)
	}

	message, rest, err = readString(rest)
	if err != nil {
		return "", "", fmt.Errorf("message: %w", err)
	}

	if len(rest) != 0 {
		return "", "", fmt.Errorf("%d trailing bytes", len(rest))
	}

	return name, message, nil
}

// EncodeNameArgs encodes a single name in Borsh format.
// Format: u32 len + name bytes
func EncodeNameArgs(name string) []byte {
	return appendString(make([]byte, 0, 4+len(name)), name)
}

// DecodeNameArgs decodes arguments produced by EncodeNameArgs.
func DecodeNameArgs(data []byte) (string, error) {
	name, rest, err := readString(data)
	if err != nil {
		return "", fmt.Errorf("name: %w", err)
	}

	if len(rest) != 0 {
		return "", fmt.Errorf("%d trailing bytes", len(rest))
	}

	return name, nil
}

// appendString appends a Borsh string (u32 LE length prefix + bytes).
func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// readString reads a Borsh string and returns the remaining bytes.
func readString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("truncated length prefix")
	}

	n := binary.LittleEndian.Uint32(data[:4])
	if n > maxArgString {
		return "", nil, fmt.Errorf("string length %d exceeds %d", n, maxArgString)
	}

	if uint32(len(data)-4) < n {
		return "", nil, fmt.Errorf("string length %d exceeds remaining %d bytes", n, len(data)-4)
	}

	return string(data[4 : 4+n]), data[4+n:], nil
}
