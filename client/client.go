package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"StudentIntro/internal/address"
	"StudentIntro/internal/program"
	"StudentIntro/internal/tx"
)

// Client connects to a student intro node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
}

// Wallet holds a keypair and signs program calls.
type Wallet struct {
	privKey ed25519.PrivateKey // privKey is the Ed25519 private key
	pubKey  ed25519.PublicKey  // pubKey is the Ed25519 public key
	nonce   atomic.Uint64      // nonce separates otherwise identical calls
}

// TxResult is the node's report of an executed transaction.
type TxResult struct {
	Signature string               `json:"signature"`        // Signature is the base58 transaction hash
	Method    string               `json:"method"`           // Method is the executed instruction
	Accounts  []address.Address    `json:"accounts"`         // Accounts are the touched addresses
	Logs      []string             `json:"logs"`             // Logs are the program's log lines
	Record    *program.IntroRecord `json:"record,omitempty"` // Record is the record after the call
	Mint      *program.MintState   `json:"mint,omitempty"`   // Mint is set by initializeTokenMint
	Reward    uint64               `json:"reward,omitempty"` // Reward is the minted amount, base units
}

// Balance is a wallet's reward token holding.
type Balance struct {
	Owner        address.Address `json:"owner"`        // Owner is the wallet
	TokenAccount address.Address `json:"tokenAccount"` // TokenAccount is the associated token account
	Amount       uint64          `json:"amount"`       // Amount is in base units
}

// NewClient creates a client for the node at nodeAddr and checks it is up.
func NewClient(nodeAddr string) (*Client, error) {
	var health struct {
		Status string `json:"status"`
	}

	if err := httpGet("http://"+nodeAddr+"/health", &health); err != nil {
		return nil, fmt.Errorf("get health:\n%w", err)
	}

	if health.Status != "ok" {
		return nil, fmt.Errorf("node unhealthy: %q", health.Status)
	}

	return &Client{nodeAddr: nodeAddr}, nil
}

// NewWallet creates a new wallet with a random Ed25519 keypair.
func NewWallet() *Wallet {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	return newWallet(priv, pub)
}

// WalletFromKey wraps an existing private key.
func WalletFromKey(priv ed25519.PrivateKey) *Wallet {
	return newWallet(priv, priv.Public().(ed25519.PublicKey))
}

// newWallet seeds the nonce from the clock. The node refuses a transaction
// hash it has already consumed, so a restarted wallet must not repeat one.
func newWallet(priv ed25519.PrivateKey, pub ed25519.PublicKey) *Wallet {
	w := &Wallet{privKey: priv, pubKey: pub}
	w.nonce.Store(uint64(time.Now().UnixNano()))

	return w
}

// Address returns the wallet's address.
func (w *Wallet) Address() address.Address {
	var a address.Address
	copy(a[:], w.pubKey)

	return a
}

// IntroAddress returns where the wallet's record for name lives.
func (w *Wallet) IntroAddress(name string) (address.Address, error) {
	return program.IntroAddress(w.Address(), name)
}

// send signs call and submits it.
func (w *Wallet) send(c *Client, call tx.Call) (*TxResult, error) {
	call.Nonce = w.nonce.Add(1)

	txBytes, _ := tx.Build(w.privKey, call)

	var res TxResult
	if err := submitTx(c.nodeAddr, txBytes, &res); err != nil {
		return nil, fmt.Errorf("submit %s tx:\n%w", call.Method, err)
	}

	return &res, nil
}

// InitializeMint creates the reward mint. It succeeds once per ledger.
func (w *Wallet) InitializeMint(c *Client) (*TxResult, error) {
	return w.send(c, tx.InitializeTokenMint(0))
}

// AddIntro creates the wallet's record for name and collects the reward.
func (w *Wallet) AddIntro(c *Client, name, message string) (*TxResult, error) {
	return w.send(c, tx.AddStudentIntro(name, message, 0))
}

// UpdateIntro replaces the message of the wallet's record for name.
func (w *Wallet) UpdateIntro(c *Client, name, message string) (*TxResult, error) {
	return w.send(c, tx.UpdateStudentIntro(name, message, address.Zero, 0))
}

// UpdateIntroAt updates the record at target, which the wallet must own.
func (w *Wallet) UpdateIntroAt(c *Client, target address.Address, name, message string) (*TxResult, error) {
	return w.send(c, tx.UpdateStudentIntro(name, message, target, 0))
}

// DeleteIntro removes the wallet's record for name.
func (w *Wallet) DeleteIntro(c *Client, name string) (*TxResult, error) {
	return w.send(c, tx.DeleteStudentIntro(name, address.Zero, 0))
}

// DeleteIntroAt removes the record at target, which the wallet must own.
func (w *Wallet) DeleteIntroAt(c *Client, target address.Address, name string) (*TxResult, error) {
	return w.send(c, tx.DeleteStudentIntro(name, target, 0))
}

// GetIntro fetches the record at addr.
func (c *Client) GetIntro(addr address.Address) (*program.IntroRecord, error) {
	var rec program.IntroRecord

	if err := httpGet("http://"+c.nodeAddr+"/intro/"+addr.String(), &rec); err != nil {
		return nil, fmt.Errorf("get intro:\n%w", err)
	}

	return &rec, nil
}

// GetIntroByName fetches owner's record for name.
func (c *Client) GetIntroByName(owner address.Address, name string) (*program.IntroRecord, error) {
	var rec program.IntroRecord

	u := "http://" + c.nodeAddr + "/intro/" + owner.String() + "/" + url.PathEscape(name)
	if err := httpGet(u, &rec); err != nil {
		return nil, fmt.Errorf("get intro:\n%w", err)
	}

	return &rec, nil
}

// GetMint fetches the reward mint.
func (c *Client) GetMint() (*program.MintState, error) {
	var m program.MintState

	if err := httpGet("http://"+c.nodeAddr+"/mint", &m); err != nil {
		return nil, fmt.Errorf("get mint:\n%w", err)
	}

	return &m, nil
}

// Balance fetches owner's reward balance.
func (c *Client) Balance(owner address.Address) (*Balance, error) {
	var b Balance

	if err := httpGet("http://"+c.nodeAddr+"/balance/"+owner.String(), &b); err != nil {
		return nil, fmt.Errorf("get balance:\n%w", err)
	}

	return &b, nil
}

// Snapshot downloads a compressed ledger snapshot.
func (c *Client) Snapshot() ([]byte, error) {
	data, err := httpGetRaw("http://" + c.nodeAddr + "/snapshot")
	if err != nil {
		return nil, fmt.Errorf("get snapshot:\n%w", err)
	}

	return data, nil
}
