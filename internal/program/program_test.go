package program

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/storage"
)

var (
	ivan  = address.Named("wallet-ivan")
	maria = address.Named("wallet-maria")
)

// newTestProgram creates a program over a temporary Pebble store.
func newTestProgram(t *testing.T) (*Program, *ledger.Ledger) {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	l := ledger.New(db)

	p, err := New(l, DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create program: %v", err)
	}

	return p, l
}

// newInitializedProgram creates a program with the reward mint set up.
func newInitializedProgram(t *testing.T) *Program {
	t.Helper()

	p, _ := newTestProgram(t)

	if _, err := p.InitializeTokenMint(ivan); err != nil {
		t.Fatalf("InitializeTokenMint failed: %v", err)
	}

	return p
}

// mustIntroAddress derives a record address or fails the test.
func mustIntroAddress(t *testing.T, owner address.Address, name string) address.Address {
	t.Helper()

	addr, err := IntroAddress(owner, name)
	if err != nil {
		t.Fatalf("IntroAddress failed: %v", err)
	}

	return addr
}

// rewardOf returns the owner's reward balance.
func rewardOf(t *testing.T, p *Program, owner address.Address) uint64 {
	t.Helper()

	_, amount, err := p.RewardBalance(owner)
	if err != nil {
		t.Fatalf("RewardBalance failed: %v", err)
	}

	return amount
}

// TestIntroLifecycle walks the add, update-with-realloc, delete scenario.
func TestIntroLifecycle(t *testing.T) {
	p := newInitializedProgram(t)
	addr := mustIntroAddress(t, ivan, "Ivan")

	res, err := p.AddStudentIntro(ivan, "Ivan", "Hello students!")
	if err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	if res.Record.Address != addr {
		t.Errorf("record address = %s, want %s", res.Record.Address, addr)
	}

	rec, err := p.FetchIntro(addr)
	if err != nil {
		t.Fatalf("FetchIntro failed: %v", err)
	}

	if rec.Owner != ivan || rec.Name != "Ivan" || rec.Message != "Hello students!" {
		t.Errorf("unexpected record: %+v", rec)
	}

	if rec.Space != recordSpace("Ivan", "Hello students!") {
		t.Errorf("space = %d, want %d", rec.Space, recordSpace("Ivan", "Hello students!"))
	}

	if got := rewardOf(t, p, ivan); got != 10_000_000 {
		t.Errorf("reward balance = %d, want 10000000", got)
	}

	if _, err := p.UpdateStudentIntro(ivan, "Ivan", "Hello students! realloc"); err != nil {
		t.Fatalf("UpdateStudentIntro failed: %v", err)
	}

	rec, err = p.FetchIntro(addr)
	if err != nil {
		t.Fatalf("FetchIntro after update failed: %v", err)
	}

	if rec.Message != "Hello students! realloc" || rec.Name != "Ivan" || rec.Owner != ivan {
		t.Errorf("unexpected record after update: %+v", rec)
	}

	if rec.Space != recordSpace("Ivan", "Hello students! realloc") {
		t.Errorf("space after grow = %d, want exact fit %d", rec.Space, recordSpace("Ivan", "Hello students! realloc"))
	}

	if _, err := p.DeleteStudentIntro(ivan, "Ivan"); err != nil {
		t.Fatalf("DeleteStudentIntro failed: %v", err)
	}

	if _, err := p.FetchIntro(addr); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Update and delete do not reward.
	if got := rewardOf(t, p, ivan); got != 10_000_000 {
		t.Errorf("reward balance = %d after update/delete, want 10000000", got)
	}
}

func TestAddBeforeMintInitialized(t *testing.T) {
	p, l := newTestProgram(t)

	_, err := p.AddStudentIntro(ivan, "Ivan", "Hello students!")
	if !errors.Is(err, ErrMintNotInitialized) {
		t.Fatalf("expected ErrMintNotInitialized, got %v", err)
	}

	// No partial record is left behind.
	addr := mustIntroAddress(t, ivan, "Ivan")
	if acc, _ := l.Get(addr); acc != nil {
		t.Error("record created despite failed reward")
	}

	if _, err := p.FetchMint(); !errors.Is(err, ErrMintNotInitialized) {
		t.Errorf("expected ErrMintNotInitialized from FetchMint, got %v", err)
	}
}

func TestInitializeTokenMintOnce(t *testing.T) {
	p := newInitializedProgram(t)

	m, err := p.FetchMint()
	if err != nil {
		t.Fatalf("FetchMint failed: %v", err)
	}

	if m.Address != p.Mint() || m.Authority != p.Mint() || m.Decimals != DefaultDecimals || m.Supply != 0 {
		t.Errorf("unexpected mint: %+v", m)
	}

	if _, err := p.InitializeTokenMint(maria); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestAddDuplicate(t *testing.T) {
	p := newInitializedProgram(t)

	if _, err := p.AddStudentIntro(ivan, "Ivan", "first"); err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	_, err := p.AddStudentIntro(ivan, "Ivan", "second")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	rec, _ := p.FetchIntro(mustIntroAddress(t, ivan, "Ivan"))
	if rec.Message != "first" {
		t.Errorf("message = %q, want first", rec.Message)
	}

	// The failed retry did not reward a second time.
	if got := rewardOf(t, p, ivan); got != 10_000_000 {
		t.Errorf("reward balance = %d, want 10000000", got)
	}
}

// TestSameNameDifferentOwners verifies records are keyed by (owner, name).
func TestSameNameDifferentOwners(t *testing.T) {
	p := newInitializedProgram(t)

	if _, err := p.AddStudentIntro(ivan, "Alex", "from ivan"); err != nil {
		t.Fatalf("add for ivan failed: %v", err)
	}

	if _, err := p.AddStudentIntro(maria, "Alex", "from maria"); err != nil {
		t.Fatalf("add for maria failed: %v", err)
	}

	a := mustIntroAddress(t, ivan, "Alex")
	b := mustIntroAddress(t, maria, "Alex")

	if a == b {
		t.Fatal("different owners derived the same address")
	}

	ra, _ := p.FetchIntro(a)
	rb, _ := p.FetchIntro(b)

	if ra.Message != "from ivan" || rb.Message != "from maria" {
		t.Errorf("records mixed up: %q / %q", ra.Message, rb.Message)
	}

	m, _ := p.FetchMint()
	if m.Supply != 20_000_000 {
		t.Errorf("supply = %d, want 20000000", m.Supply)
	}
}

func TestInputBounds(t *testing.T) {
	p := newInitializedProgram(t)

	longName := strings.Repeat("n", MaxNameLength+1)
	longMessage := strings.Repeat("m", MaxMessageLength+1)

	cases := []struct {
		name    string
		message string
	}{
		{longName, "hi"},
		{"", "hi"},
		{"Ivan", longMessage},
		{"bad\xff", "hi"},
		{"Ivan", "bad\xff"},
	}

	for _, c := range cases {
		if _, err := p.AddStudentIntro(ivan, c.name, c.message); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("add(%q, %q): expected ErrInvalidInput, got %v", c.name, c.message, err)
		}
	}

	// Exactly at the bounds is accepted.
	name := strings.Repeat("n", MaxNameLength)
	message := strings.Repeat("m", MaxMessageLength)

	if _, err := p.AddStudentIntro(ivan, name, message); err != nil {
		t.Fatalf("add at bounds failed: %v", err)
	}

	if _, err := p.UpdateStudentIntro(ivan, name, longMessage); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("update with long message: expected ErrInvalidInput, got %v", err)
	}

	if _, err := IntroAddress(ivan, longName); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("IntroAddress with long name: expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateMissing(t *testing.T) {
	p := newInitializedProgram(t)

	if _, err := p.UpdateStudentIntro(ivan, "Ghost", "boo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := p.DeleteStudentIntro(ivan, "Ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestUpdateShorterKeepsSpace verifies a shorter message does not shrink the account.
func TestUpdateShorterKeepsSpace(t *testing.T) {
	p := newInitializedProgram(t)
	addr := mustIntroAddress(t, ivan, "Ivan")

	if _, err := p.AddStudentIntro(ivan, "Ivan", "a fairly long first message"); err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	before, _ := p.FetchIntro(addr)

	res, err := p.UpdateStudentIntro(ivan, "Ivan", "short")
	if err != nil {
		t.Fatalf("UpdateStudentIntro failed: %v", err)
	}

	after, _ := p.FetchIntro(addr)

	if after.Message != "short" {
		t.Errorf("message = %q, want short", after.Message)
	}

	if after.Space != before.Space {
		t.Errorf("space changed from %d to %d on shrink", before.Space, after.Space)
	}

	for _, line := range res.Logs {
		if strings.Contains(line, "reallocated") {
			t.Errorf("unexpected realloc log: %q", line)
		}
	}

	// Growing again past the original size reallocates to the exact fit.
	long := strings.Repeat("x", MaxMessageLength)
	if _, err := p.UpdateStudentIntro(ivan, "Ivan", long); err != nil {
		t.Fatalf("grow failed: %v", err)
	}

	grown, _ := p.FetchIntro(addr)
	if grown.Message != long || grown.Space != recordSpace("Ivan", long) {
		t.Errorf("unexpected grown record: space=%d message=%q", grown.Space, grown.Message)
	}
}

// TestForeignCallerRejected verifies only the owner can update or delete.
func TestForeignCallerRejected(t *testing.T) {
	p := newInitializedProgram(t)
	addr := mustIntroAddress(t, ivan, "Ivan")

	if _, err := p.AddStudentIntro(ivan, "Ivan", "Hello students!"); err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	_, err := p.Execute(Instruction{
		Caller:  maria,
		Method:  MethodUpdateStudentIntro,
		Name:    "Ivan",
		Message: "hijacked",
		Target:  addr,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("update by non-owner: expected ErrUnauthorized, got %v", err)
	}

	_, err = p.Execute(Instruction{
		Caller: maria,
		Method: MethodDeleteStudentIntro,
		Name:   "Ivan",
		Target: addr,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("delete by non-owner: expected ErrUnauthorized, got %v", err)
	}

	rec, err := p.FetchIntro(addr)
	if err != nil {
		t.Fatalf("record gone after rejected calls: %v", err)
	}

	if rec.Message != "Hello students!" || rec.Owner != ivan {
		t.Errorf("record changed by rejected calls: %+v", rec)
	}

	// Without an explicit target the foreign caller derives its own, empty address.
	if _, err := p.UpdateStudentIntro(maria, "Ivan", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for the caller's own address, got %v", err)
	}
}

func TestTargetNameMismatch(t *testing.T) {
	p := newInitializedProgram(t)
	addr := mustIntroAddress(t, ivan, "Ivan")

	if _, err := p.AddStudentIntro(ivan, "Ivan", "hello"); err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	_, err := p.Execute(Instruction{
		Caller:  ivan,
		Method:  MethodUpdateStudentIntro,
		Name:    "Other",
		Message: "x",
		Target:  addr,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// TestRecreateAfterDelete verifies storage is reclaimed and creation rewards again.
func TestRecreateAfterDelete(t *testing.T) {
	p := newInitializedProgram(t)
	addr := mustIntroAddress(t, ivan, "Ivan")

	if _, err := p.AddStudentIntro(ivan, "Ivan", "first life"); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	if _, err := p.DeleteStudentIntro(ivan, "Ivan"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := p.AddStudentIntro(ivan, "Ivan", "again"); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}

	rec, err := p.FetchIntro(addr)
	if err != nil {
		t.Fatalf("FetchIntro failed: %v", err)
	}

	if rec.Message != "again" || rec.Space != recordSpace("Ivan", "again") {
		t.Errorf("unexpected re-created record: %+v", rec)
	}

	if got := rewardOf(t, p, ivan); got != 20_000_000 {
		t.Errorf("reward balance = %d, want 20000000", got)
	}
}

func TestUnknownMethod(t *testing.T) {
	p := newInitializedProgram(t)

	if _, err := p.Execute(Instruction{Caller: ivan, Method: "mintForMe"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAddLogs(t *testing.T) {
	p := newInitializedProgram(t)

	res, err := p.AddStudentIntro(ivan, "Ivan", "Hello students!")
	if err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	want := []string{"Student Intro Account Created", "Name: Ivan", "Message: Hello students!"}
	for i, line := range want {
		if i >= len(res.Logs) || res.Logs[i] != line {
			t.Fatalf("logs = %q, want prefix %q", res.Logs, want)
		}
	}

	if res.Reward != 10_000_000 {
		t.Errorf("reward = %d, want 10000000", res.Reward)
	}

	if len(res.Accounts) != 3 {
		t.Errorf("accounts = %d, want record, mint and reward account", len(res.Accounts))
	}
}

func TestNewRejectsOverflowingPolicy(t *testing.T) {
	_, l := newTestProgram(t)

	if _, err := New(l, Config{RewardTokens: 1 << 62, Decimals: 6}); err == nil {
		t.Error("expected error for a reward that overflows at the given precision")
	}
}

func TestSignedDeleteRunsOnce(t *testing.T) {
	p := newInitializedProgram(t)

	if _, err := p.AddStudentIntro(ivan, "Ivan", "first"); err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	del := Instruction{Caller: ivan, Method: MethodDeleteStudentIntro, Name: "Ivan", TxHash: [32]byte{0xde, 0x1e}}

	if _, err := p.Execute(del); err != nil {
		t.Fatalf("signed delete failed: %v", err)
	}

	if done, err := p.Processed(del.TxHash); err != nil || !done {
		t.Fatalf("Processed = %v, %v; want true", done, err)
	}

	if _, err := p.AddStudentIntro(ivan, "Ivan", "second"); err != nil {
		t.Fatalf("re-create failed: %v", err)
	}

	if _, err := p.Execute(del); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	rec, err := p.FetchIntro(mustIntroAddress(t, ivan, "Ivan"))
	if err != nil {
		t.Fatalf("re-created record is gone: %v", err)
	}

	if rec.Message != "second" {
		t.Errorf("message = %q, want second", rec.Message)
	}
}

func TestSignedFailureIsConsumed(t *testing.T) {
	p := newInitializedProgram(t)

	// Deleting a missing record fails, but the bytes must not work later.
	del := Instruction{Caller: ivan, Method: MethodDeleteStudentIntro, Name: "Ivan", TxHash: [32]byte{0xfa}}

	if _, err := p.Execute(del); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := p.AddStudentIntro(ivan, "Ivan", "hello"); err != nil {
		t.Fatalf("AddStudentIntro failed: %v", err)
	}

	if _, err := p.Execute(del); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	if _, err := p.FetchIntro(mustIntroAddress(t, ivan, "Ivan")); err != nil {
		t.Errorf("record must survive the stale delete: %v", err)
	}
}
