package program

import "errors"

var (
	// ErrInvalidInput is returned for length or format violations.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when no record exists at the derived address.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when creating over an occupied address.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrUnauthorized is returned when the caller does not own the record.
	ErrUnauthorized = errors.New("caller is not the record owner")

	// ErrAlreadyInitialized is returned on a second mint initialization.
	ErrAlreadyInitialized = errors.New("reward mint already initialized")

	// ErrMintNotInitialized is returned when rewards are issued before mint setup.
	ErrMintNotInitialized = errors.New("reward mint not initialized")
)

// codeBase is the first program error code; lower codes are reserved for
// the runtime.
const codeBase = 6000

// errorCodes assigns stable wire codes. Order is part of the wire format.
var errorCodes = []error{
	ErrInvalidInput,
	ErrNotFound,
	ErrAlreadyExists,
	ErrUnauthorized,
	ErrAlreadyInitialized,
	ErrMintNotInitialized,
}

// Code returns the numeric code of a program error, or 0 if err is not one.
func Code(err error) uint32 {
	for i, sentinel := range errorCodes {
		if errors.Is(err, sentinel) {
			return uint32(codeBase + i)
		}
	}

	return 0
}

// FromCode returns the sentinel for a wire code, or nil if unknown.
func FromCode(code uint32) error {
	if code < codeBase || int(code-codeBase) >= len(errorCodes) {
		return nil
	}

	return errorCodes[code-codeBase]
}
