package main

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"StudentIntro/internal/address"
	"StudentIntro/internal/api"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/logger"
	"StudentIntro/internal/program"
	"StudentIntro/internal/snapshot"
	"StudentIntro/internal/storage"
)

// Node wires storage, ledger, program and the HTTP API together.
type Node struct {
	cfg       *Config
	storage   *storage.Storage
	ledger    *ledger.Ledger
	program   *program.Program
	snapshots *snapshot.Manager
	api       *api.Server
}

// NewNode creates a node from the configuration.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, fmt.Errorf("init storage:\n%w", err)
	}

	if err := n.initProgram(); err != nil {
		n.Close()
		return nil, fmt.Errorf("init program:\n%w", err)
	}

	n.snapshots = snapshot.NewManager(n.ledger, cfg.SnapshotInterval.Duration, cfg.SnapshotPath)
	n.api = api.New(cfg.HTTPAddress, n.program, n.snapshots)

	return n, nil
}

// initStorage opens Pebble and restores a snapshot if one was given.
func (n *Node) initStorage() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data dir:\n%w", err)
	}

	db, err := storage.Open(filepath.Join(n.cfg.DataPath, "db"), n.cfg.storageOptions())
	if err != nil {
		return fmt.Errorf("open storage:\n%w", err)
	}

	n.storage = db

	if n.cfg.RestorePath == "" {
		return nil
	}

	info, err := snapshot.RestoreFile(db, n.cfg.RestorePath)
	if errors.Is(err, snapshot.ErrNotEmpty) {
		logger.Warn("ledger not empty, snapshot ignored", "path", n.cfg.RestorePath)
		return nil
	}

	if err != nil {
		db.Close()
		return fmt.Errorf("restore %s:\n%w", n.cfg.RestorePath, err)
	}

	logger.Info("snapshot restored",
		"path", n.cfg.RestorePath,
		"accounts", info.Accounts,
		"executed", info.Executed,
		"createdAt", info.CreatedAt,
	)

	return nil
}

// initProgram builds the ledger and binds the program to it.
func (n *Node) initProgram() error {
	n.ledger = ledger.New(n.storage)

	p, err := program.New(n.ledger, n.cfg.programConfig())
	if err != nil {
		return err
	}

	n.program = p

	return nil
}

// Run bootstraps if requested, serves the API and blocks until a signal.
func (n *Node) Run() error {
	if n.cfg.Bootstrap {
		if err := n.bootstrap(); err != nil {
			n.Close()
			return fmt.Errorf("bootstrap:\n%w", err)
		}
	}

	n.snapshots.Start()

	if err := n.api.Start(); err != nil {
		n.Close()
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown()
}

// bootstrap initializes the reward mint, signed by the node key. An
// existing mint is left as is.
func (n *Node) bootstrap() error {
	caller, err := address.FromBytes(n.cfg.PrivateKey.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}

	res, err := n.program.InitializeTokenMint(caller)
	if errors.Is(err, program.ErrAlreadyInitialized) {
		logger.Info("reward mint already initialized", "mint", n.program.Mint())
		return nil
	}

	if err != nil {
		return err
	}

	logger.Info("reward mint initialized",
		"mint", res.Mint.Address,
		"decimals", res.Mint.Decimals,
	)

	return nil
}

// waitForShutdown blocks until SIGINT or SIGTERM, then closes the node.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close stops every component and closes storage.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.snapshots != nil {
		n.snapshots.Stop()
	}

	if n.storage != nil {
		return n.storage.Close()
	}

	return nil
}
