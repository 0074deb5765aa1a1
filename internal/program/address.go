package program

import (
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/token"
)

// ProgramID identifies the intro program; it owns every intro record and
// is the derivation base for record and mint addresses.
var ProgramID = address.Named("student-intro-program")

// mintSeed is the constant seed of the reward mint singleton.
var mintSeed = []byte("mint")

// IntroAddress derives the record address for (owner, name) from the seeds
// [name, owner].
func IntroAddress(owner address.Address, name string) (address.Address, error) {
	if err := validateName(name); err != nil {
		return address.Address{}, err
	}

	addr, _, err := address.FindProgramAddress([][]byte{[]byte(name), owner[:]}, ProgramID)
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return addr, nil
}

// MintAddress derives the reward mint singleton address and its bump.
func MintAddress() (address.Address, uint8, error) {
	return address.FindProgramAddress([][]byte{mintSeed}, ProgramID)
}

// mintSigner is the program's signature over the mint authority.
func mintSigner(bump uint8) token.Signer {
	return token.Signer{
		Program: ProgramID,
		Seeds:   [][]byte{mintSeed, {bump}},
	}
}
