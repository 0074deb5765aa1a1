package program

import (
	"errors"
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/token"
)

// MintState is the reward mint singleton as seen by collaborators.
type MintState struct {
	Address   address.Address `json:"address"`   // Address is the mint identity
	Authority address.Address `json:"authority"` // Authority is the program-derived mint authority
	Decimals  uint8           `json:"decimals"`  // Decimals is the token precision
	Supply    uint64          `json:"supply"`    // Supply is the total issued, in base units
}

// initializeMint creates the mint singleton with itself as authority, so
// only this program can sign for new supply.
func initializeMint(txn *ledger.Txn, mint address.Address, decimals uint8) (*MintState, error) {
	exists, err := txn.Exists(mint)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, mint)
	}

	m, err := token.InitializeMint(txn, mint, mint, decimals)
	if err != nil {
		return nil, fmt.Errorf("initialize mint:\n%w", err)
	}

	return &MintState{Address: mint, Authority: m.Authority, Decimals: m.Decimals, Supply: m.Supply}, nil
}

// fetchMint reads the mint singleton, mapping absence to ErrMintNotInitialized.
func fetchMint(r ledger.Reader, mint address.Address) (*MintState, error) {
	m, err := token.GetMint(r, mint)
	if errors.Is(err, token.ErrMintMissing) {
		return nil, ErrMintNotInitialized
	}

	if err != nil {
		return nil, fmt.Errorf("read mint:\n%w", err)
	}

	return &MintState{Address: mint, Authority: m.Authority, Decimals: m.Decimals, Supply: m.Supply}, nil
}
