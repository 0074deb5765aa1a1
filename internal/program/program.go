package program

import (
	"fmt"
	"time"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/logger"
	"StudentIntro/internal/token"
)

// Instruction method names.
const (
	MethodInitializeTokenMint = "initializeTokenMint"
	MethodAddStudentIntro     = "addStudentIntro"
	MethodUpdateStudentIntro  = "updateStudentIntro"
	MethodDeleteStudentIntro  = "deleteStudentIntro"
)

const (
	// DefaultRewardTokens is the whole-token reward per created intro.
	DefaultRewardTokens = 10

	// DefaultDecimals is the reward mint precision.
	DefaultDecimals = 6
)

// Config holds the program's fixed policy.
type Config struct {
	RewardTokens uint64 // RewardTokens is minted per addStudentIntro, in whole tokens
	Decimals     uint8  // Decimals is the precision given to the mint at initialization
}

// DefaultConfig returns the standard policy: 10 tokens at 6 decimals.
func DefaultConfig() Config {
	return Config{
		RewardTokens: DefaultRewardTokens,
		Decimals:     DefaultDecimals,
	}
}

// Instruction is one decoded program call.
type Instruction struct {
	Caller  address.Address // Caller is the transaction signer
	Method  string          // Method is one of the Method* constants
	Name    string          // Name is the record key (unused by initializeTokenMint)
	Message string          // Message is the record payload (add/update only)
	Target  address.Address // Target optionally names the record for update/delete
	TxHash  [32]byte        // TxHash is the signed transaction hash, zero for local calls
}

// Result reports what an instruction did.
type Result struct {
	Method   string            `json:"method"`
	Accounts []address.Address `json:"accounts"`         // Accounts is the locked address set
	Record   *IntroRecord      `json:"record,omitempty"` // Record is the record after the call
	Mint     *MintState        `json:"mint,omitempty"`   // Mint is set by initializeTokenMint
	Reward   uint64            `json:"reward,omitempty"` // Reward is the amount minted, base units
	Logs     []string          `json:"logs"`             // Logs are the program's log lines
}

// logf appends a program log line.
func (r *Result) logf(format string, args ...any) {
	r.Logs = append(r.Logs, fmt.Sprintf(format, args...))
}

// Program is the student intro program bound to a ledger.
type Program struct {
	ledger   *ledger.Ledger  // ledger holds every account
	cfg      Config          // cfg is the reward policy
	mint     address.Address // mint is the reward mint singleton address
	mintBump uint8           // mintBump completes the mint signer seeds
}

// New binds the program to a ledger.
func New(l *ledger.Ledger, cfg Config) (*Program, error) {
	if cfg.Decimals > token.MaxDecimals {
		return nil, fmt.Errorf("decimals %d exceed %d", cfg.Decimals, token.MaxDecimals)
	}

	if _, err := token.Scale(cfg.RewardTokens, cfg.Decimals); err != nil {
		return nil, fmt.Errorf("reward policy:\n%w", err)
	}

	mint, bump, err := MintAddress()
	if err != nil {
		return nil, fmt.Errorf("derive mint address:\n%w", err)
	}

	return &Program{ledger: l, cfg: cfg, mint: mint, mintBump: bump}, nil
}

// Mint returns the reward mint address.
func (p *Program) Mint() address.Address {
	return p.mint
}

// Execute validates and runs one instruction. Every check happens before
// anything is written, and the instruction's writes commit together or not
// at all.
func (p *Program) Execute(ins Instruction) (*Result, error) {
	start := time.Now()

	res, err := p.dispatch(ins)
	if err != nil {
		logger.Debug("instruction failed",
			"method", ins.Method,
			"caller", ins.Caller.Short(),
			"code", Code(err),
			"error", err,
		)
		return nil, err
	}

	for _, line := range res.Logs {
		logger.Debug("program log", "msg", line)
	}

	logger.Info("instruction executed",
		"method", ins.Method,
		"caller", ins.Caller.Short(),
		logger.Timed(start),
	)

	return res, nil
}

// dispatch routes to the method handler.
func (p *Program) dispatch(ins Instruction) (*Result, error) {
	switch ins.Method {
	case MethodInitializeTokenMint:
		return p.initializeTokenMint(ins)
	case MethodAddStudentIntro:
		return p.addStudentIntro(ins)
	case MethodUpdateStudentIntro:
		return p.updateStudentIntro(ins)
	case MethodDeleteStudentIntro:
		return p.deleteStudentIntro(ins)
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidInput, ins.Method)
	}
}

// initializeTokenMint creates the reward mint singleton.
func (p *Program) initializeTokenMint(ins Instruction) (*Result, error) {
	res := &Result{Method: ins.Method, Accounts: []address.Address{p.mint}}

	err := p.exec(ins, res.Accounts, func(txn *ledger.Txn) error {
		m, err := initializeMint(txn, p.mint, p.cfg.Decimals)
		if err != nil {
			return err
		}

		res.Mint = m
		res.logf("Token mint initialized")
		res.logf("Mint: %s", m.Address)
		res.logf("Decimals: %d", m.Decimals)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// addStudentIntro creates the caller's record and rewards the caller.
func (p *Program) addStudentIntro(ins Instruction) (*Result, error) {
	if err := validateName(ins.Name); err != nil {
		return nil, err
	}

	if err := validateMessage(ins.Message); err != nil {
		return nil, err
	}

	addr, err := IntroAddress(ins.Caller, ins.Name)
	if err != nil {
		return nil, err
	}

	rewardAccount, err := token.AssociatedAddress(ins.Caller, p.mint)
	if err != nil {
		return nil, err
	}

	res := &Result{Method: ins.Method, Accounts: []address.Address{addr, p.mint, rewardAccount}}

	err = p.exec(ins, res.Accounts, func(txn *ledger.Txn) error {
		rec, err := createRecord(txn, ins.Caller, ins.Name, ins.Message)
		if err != nil {
			return err
		}

		res.logf("Student Intro Account Created")
		res.logf("Name: %s", rec.Name)
		res.logf("Message: %s", rec.Message)

		r, err := p.issueReward(txn, ins.Caller)
		if err != nil {
			return err
		}

		if r.created {
			res.logf("Reward account opened: %s", r.account)
		}
		res.logf("Minted %d reward base units to %s", r.amount, r.account)

		res.Record = rec
		res.Reward = r.amount

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// updateStudentIntro replaces the message of a record the caller owns.
func (p *Program) updateStudentIntro(ins Instruction) (*Result, error) {
	if err := validateName(ins.Name); err != nil {
		return nil, err
	}

	if err := validateMessage(ins.Message); err != nil {
		return nil, err
	}

	addr, err := p.target(ins)
	if err != nil {
		return nil, err
	}

	res := &Result{Method: ins.Method, Accounts: []address.Address{addr}}

	err = p.exec(ins, res.Accounts, func(txn *ledger.Txn) error {
		rec, oldSpace, err := updateRecord(txn, ins.Caller, addr, ins.Name, ins.Message)
		if err != nil {
			return err
		}

		res.logf("Student Intro Account Updated")
		if rec.Space != oldSpace {
			res.logf("Student Intro Account space reallocated: %d -> %d", oldSpace, rec.Space)
		}
		res.logf("Name: %s", rec.Name)
		res.logf("Message: %s", rec.Message)

		res.Record = rec

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// deleteStudentIntro removes a record the caller owns.
func (p *Program) deleteStudentIntro(ins Instruction) (*Result, error) {
	if err := validateName(ins.Name); err != nil {
		return nil, err
	}

	addr, err := p.target(ins)
	if err != nil {
		return nil, err
	}

	res := &Result{Method: ins.Method, Accounts: []address.Address{addr}}

	err = p.exec(ins, res.Accounts, func(txn *ledger.Txn) error {
		rec, err := deleteRecord(txn, ins.Caller, addr, ins.Name)
		if err != nil {
			return err
		}

		res.logf("Student Intro %s deleted", rec.Name)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// exec runs fn through the ledger. Signed instructions consume their hash,
// so a transaction is executed at most once.
func (p *Program) exec(ins Instruction, addrs []address.Address, fn func(txn *ledger.Txn) error) error {
	if ins.TxHash == ([32]byte{}) {
		return p.ledger.Exec(addrs, fn)
	}

	return p.ledger.ExecTx(ins.TxHash, addrs, fn)
}

// Processed reports whether a signed transaction hash was already consumed.
func (p *Program) Processed(hash [32]byte) (bool, error) {
	return p.ledger.Executed(hash)
}

// target returns the explicit record address or derives the caller's own.
func (p *Program) target(ins Instruction) (address.Address, error) {
	if !ins.Target.IsZero() {
		return ins.Target, nil
	}

	return IntroAddress(ins.Caller, ins.Name)
}

// InitializeTokenMint runs initializeTokenMint for caller.
func (p *Program) InitializeTokenMint(caller address.Address) (*Result, error) {
	return p.Execute(Instruction{Caller: caller, Method: MethodInitializeTokenMint})
}

// AddStudentIntro runs addStudentIntro for caller.
func (p *Program) AddStudentIntro(caller address.Address, name, message string) (*Result, error) {
	return p.Execute(Instruction{Caller: caller, Method: MethodAddStudentIntro, Name: name, Message: message})
}

// UpdateStudentIntro runs updateStudentIntro on the caller's own record.
func (p *Program) UpdateStudentIntro(caller address.Address, name, message string) (*Result, error) {
	return p.Execute(Instruction{Caller: caller, Method: MethodUpdateStudentIntro, Name: name, Message: message})
}

// DeleteStudentIntro runs deleteStudentIntro on the caller's own record.
func (p *Program) DeleteStudentIntro(caller address.Address, name string) (*Result, error) {
	return p.Execute(Instruction{Caller: caller, Method: MethodDeleteStudentIntro, Name: name})
}

// FetchIntro returns the record at addr or ErrNotFound.
func (p *Program) FetchIntro(addr address.Address) (*IntroRecord, error) {
	return fetchRecord(p.ledger, addr)
}

// FetchMint returns the mint singleton or ErrMintNotInitialized.
func (p *Program) FetchMint() (*MintState, error) {
	return fetchMint(p.ledger, p.mint)
}

// RewardBalance returns the owner's reward token account and balance. The
// balance is zero when the account has not been opened yet.
func (p *Program) RewardBalance(owner address.Address) (address.Address, uint64, error) {
	addr, err := token.AssociatedAddress(owner, p.mint)
	if err != nil {
		return address.Address{}, 0, err
	}

	amount, err := token.Balance(p.ledger, owner, p.mint)
	if err != nil {
		return address.Address{}, 0, fmt.Errorf("read reward balance:\n%w", err)
	}

	return addr, amount, nil
}
