package program

import (
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/token"
)

// reward describes one issuance.
type reward struct {
	account address.Address // account is the recipient's associated token account
	amount  uint64          // amount is in base units
	created bool            // created is true when the token account was opened for this issuance
}

// issueReward mints the fixed reward into the recipient's associated token
// account, opening that account first if needed.
func (p *Program) issueReward(txn *ledger.Txn, recipient address.Address) (*reward, error) {
	m, err := fetchMint(txn, p.mint)
	if err != nil {
		return nil, err
	}

	amount, err := token.Scale(p.cfg.RewardTokens, m.Decimals)
	if err != nil {
		return nil, fmt.Errorf("reward amount:\n%w", err)
	}

	dest, created, err := token.EnsureAssociatedAccount(txn, recipient, p.mint)
	if err != nil {
		return nil, fmt.Errorf("open reward account:\n%w", err)
	}

	if err := token.MintTo(txn, p.mint, dest, mintSigner(p.mintBump), amount); err != nil {
		return nil, fmt.Errorf("mint reward:\n%w", err)
	}

	return &reward{account: dest, amount: amount, created: created}, nil
}
