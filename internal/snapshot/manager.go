package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"StudentIntro/internal/ledger"
	"StudentIntro/internal/logger"
	"StudentIntro/internal/storage"
)

const (
	// defaultInterval is the default interval between snapshots.
	defaultInterval = time.Minute
)

// Manager keeps a recent compressed snapshot of the ledger, refreshed
// periodically and on demand, and optionally mirrors it to a file.
type Manager struct {
	ledger   *ledger.Ledger // ledger is the state to capture
	interval time.Duration  // interval is the period of background snapshots
	path     string         // path is where snapshots are written ("" = memory only)

	mu      sync.Mutex
	current []byte // current is the latest compressed snapshot
	commits uint64 // commits is the ledger commit count current reflects

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a snapshot manager. A zero interval uses the default.
func NewManager(l *ledger.Ledger, interval time.Duration, path string) *Manager {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Manager{
		ledger:   l,
		interval: interval,
		path:     path,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic snapshot loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop stops the loop and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Snapshot returns a snapshot reflecting every commit made before the call.
func (m *Manager) Snapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refreshLocked(); err != nil {
		return nil, err
	}

	return m.current, nil
}

// loop runs the periodic snapshot creation.
func (m *Manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if err := m.refreshLocked(); err != nil {
				logger.Error("create snapshot", "error", err)
			}
			m.mu.Unlock()
		}
	}
}

// refreshLocked exports a new snapshot unless the ledger is unchanged.
func (m *Manager) refreshLocked() error {
	commits := m.ledger.Commits()

	if m.current != nil && commits == m.commits {
		return nil
	}

	start := time.Now()

	data, info, err := Export(m.ledger, start)
	if err != nil {
		return fmt.Errorf("export:\n%w", err)
	}

	if m.path != "" {
		if err := writeFile(m.path, data); err != nil {
			return fmt.Errorf("write %s:\n%w", m.path, err)
		}
	}

	m.current = data
	m.commits = commits

	logger.Debug("snapshot created",
		"accounts", info.Accounts,
		"commits", commits,
		"compressed", len(data),
		logger.Timed(start),
	)

	return nil
}

// writeFile replaces path with data via a temporary file and rename.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// RestoreFile restores the snapshot stored at path into db.
func RestoreFile(db *storage.Storage, path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot:\n%w", err)
	}

	return Restore(db, data)
}
