package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/logger"
	"StudentIntro/internal/program"
	"StudentIntro/internal/tx"
)

const (
	// maxTxSize is the maximum transaction size in bytes.
	maxTxSize = 64 << 10 // 64 KB
)

// Program executes instructions and serves program reads.
type Program interface {
	Execute(ins program.Instruction) (*program.Result, error)
	FetchIntro(addr address.Address) (*program.IntroRecord, error)
	FetchMint() (*program.MintState, error)
	RewardBalance(owner address.Address) (address.Address, uint64, error)
	Mint() address.Address
	Processed(hash [32]byte) (bool, error)
}

// Snapshotter produces compressed ledger snapshots.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// Server is the HTTP API server.
type Server struct {
	addr     string       // addr is the HTTP listen address
	program  Program      // program runs submitted instructions
	snapshot Snapshotter  // snapshot serves GET /snapshot (optional)
	server   *http.Server // server is the underlying HTTP server
	listener net.Listener // listener is bound by Start
	started  time.Time    // started is when the server was created

	executed atomic.Uint64 // executed counts successful transactions
	rejected atomic.Uint64 // rejected counts failed transactions
}

// New creates a new HTTP API server.
func New(addr string, p Program, snap Snapshotter) *Server {
	return &Server{
		addr:     addr,
		program:  p,
		snapshot: snap,
		started:  time.Now(),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tx", s.handleSubmitTx)
	mux.HandleFunc("GET /intro/{address}", s.handleIntro)
	mux.HandleFunc("GET /intro/{owner}/{name}", s.handleIntroByName)
	mux.HandleFunc("GET /mint", s.handleMint)
	mux.HandleFunc("GET /balance/{owner}", s.handleBalance)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	return mux
}

// Start binds the listen address and serves in a goroutine. A bind failure
// is returned to the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s:\n%w", s.addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", ln.Addr().String())

		if err := s.server.Serve(ln); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}

	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// txResponse is the body of a successful POST /tx.
type txResponse struct {
	Signature string               `json:"signature"`        // Signature is the base58 transaction hash
	Method    string               `json:"method"`           // Method is the executed instruction
	Accounts  []address.Address    `json:"accounts"`         // Accounts are the touched addresses
	Logs      []string             `json:"logs"`             // Logs are the program's log lines
	Record    *program.IntroRecord `json:"record,omitempty"` // Record is the record after the call
	Mint      *program.MintState   `json:"mint,omitempty"`   // Mint is set by initializeTokenMint
	Reward    uint64               `json:"reward,omitempty"` // Reward is the minted amount, base units
}

// handleSubmitTx handles POST /tx requests.
func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTxSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("failed to read body"))
		return
	}

	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty transaction"))
		return
	}

	signed, err := tx.Verify(body)
	if err != nil {
		s.rejected.Add(1)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	done, err := s.program.Processed(signed.Hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if done {
		s.rejected.Add(1)
		writeError(w, http.StatusConflict, fmt.Errorf("%w: %s", ledger.ErrAlreadyProcessed, base58.Encode(signed.Hash[:])))
		return
	}

	ins, err := signed.Instruction()
	if err != nil {
		s.rejected.Add(1)
		writeError(w, statusFor(err), err)
		return
	}

	res, err := s.program.Execute(ins)
	if err != nil {
		s.rejected.Add(1)
		logger.Debug("tx rejected", "hash", base58.Encode(signed.Hash[:8]), "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	s.executed.Add(1)

	writeJSON(w, http.StatusOK, txResponse{
		Signature: base58.Encode(signed.Hash[:]),
		Method:    res.Method,
		Accounts:  res.Accounts,
		Logs:      res.Logs,
		Record:    res.Record,
		Mint:      res.Mint,
		Reward:    res.Reward,
	})
}

// handleIntro handles GET /intro/{address} requests.
func (s *Server) handleIntro(w http.ResponseWriter, r *http.Request) {
	addr, err := address.Parse(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeIntro(w, addr)
}

// handleIntroByName handles GET /intro/{owner}/{name} requests.
func (s *Server) handleIntroByName(w http.ResponseWriter, r *http.Request) {
	owner, err := address.Parse(r.PathValue("owner"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	addr, err := program.IntroAddress(owner, r.PathValue("name"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.writeIntro(w, addr)
}

// writeIntro writes the record at addr.
func (s *Server) writeIntro(w http.ResponseWriter, addr address.Address) {
	rec, err := s.program.FetchIntro(addr)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleMint handles GET /mint requests.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	m, err := s.program.FetchMint()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// balanceResponse is the body of GET /balance/{owner}.
type balanceResponse struct {
	Owner        address.Address `json:"owner"`        // Owner is the queried wallet
	TokenAccount address.Address `json:"tokenAccount"` // TokenAccount is the owner's reward account
	Amount       uint64          `json:"amount"`       // Amount is the balance in base units
}

// handleBalance handles GET /balance/{owner} requests.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := address.Parse(r.PathValue("owner"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	account, amount, err := s.program.RewardBalance(owner)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{Owner: owner, TokenAccount: account, Amount: amount})
}

// handleSnapshot handles GET /snapshot requests.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("snapshots not available"))
		return
	}

	data, err := s.snapshot.Snapshot()
	if err != nil {
		logger.Error("snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, err := s.program.FetchMint()

	writeJSON(w, http.StatusOK, map[string]any{
		"programId":       program.ProgramID,
		"mint":            s.program.Mint(),
		"mintInitialized": err == nil,
		"executed":        s.executed.Load(),
		"rejected":        s.rejected.Load(),
		"uptimeSeconds":   int64(time.Since(s.started).Seconds()),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response carrying the program error code, if any.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"code":  program.Code(err),
	})
}
