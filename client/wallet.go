package client

import (
	"crypto/ed25519"
	"fmt"
	"os"
)

// LoadWallet reads a raw Ed25519 private key from path, creating and saving
// a new one if the file does not exist.
func LoadWallet(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		w := NewWallet()

		if err := os.WriteFile(path, w.privKey, 0600); err != nil {
			return nil, fmt.Errorf("save key to %s:\n%w", path, err)
		}

		return w, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return WalletFromKey(ed25519.PrivateKey(data)), nil
}
