package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond

	// defaultCacheSize is the default block cache size.
	defaultCacheSize = 32 << 20
)

// ErrClosed is returned when a batch is used after commit or close.
var ErrClosed = errors.New("batch closed")

// KeyValue represents a key-value pair for batch operations.
type KeyValue struct {
	Key   []byte // Key is the key to store
	Value []byte // Value is the value to store
}

// Options tunes the underlying Pebble instance.
type Options struct {
	SyncInterval time.Duration // SyncInterval is the period of background WAL syncs (0 = default)
	CacheSize    int64         // CacheSize is the block cache size in bytes (0 = default)
}

// Storage provides a key-value store backed by Pebble.
// Writes are non-blocking (NoSync) and a background goroutine
// periodically syncs the WAL to disk for durability.
type Storage struct {
	db       *pebble.DB    // db is the underlying Pebble database
	interval time.Duration // interval is the WAL sync period
	stopSync chan struct{} // stopSync signals the sync goroutine to stop
	wg       sync.WaitGroup
}

// New opens a Storage at the given path with default options.
func New(path string) (*Storage, error) {
	return Open(path, Options{})
}

// Open opens a Storage at the given path and starts the WAL sync loop.
func Open(path string, opts Options) (*Storage, error) {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = defaultSyncInterval
	}

	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	db, err := pebble.Open(path, &pebble.Options{
		Cache:                       cache,
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 2,
	})
	if err != nil {
		return nil, err
	}

	s := &Storage{
		db:       db,
		interval: opts.SyncInterval,
		stopSync: make(chan struct{}),
	}

	s.startSyncLoop()

	return s, nil
}

// Get retrieves the value for the given key.
// Returns nil if the key does not exist.
func (s *Storage) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// Has reports whether the key exists.
func (s *Storage) Has(key []byte) (bool, error) {
	_, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	closer.Close()

	return true, nil
}

// Set stores a key-value pair.
func (s *Storage) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.NoSync)
}

// Delete removes a key from the store.
func (s *Storage) Delete(key []byte) error {
	return s.db.Delete(key, pebble.NoSync)
}

// SetBatch atomically stores multiple key-value pairs.
// Either all pairs are written or none.
func (s *Storage) SetBatch(pairs []KeyValue) error {
	b := s.NewBatch()
	defer b.Close()

	for _, kv := range pairs {
		if err := b.Set(kv.Key, kv.Value); err != nil {
			return err
		}
	}

	return b.Commit()
}

// Batch collects sets and deletes that are applied atomically on Commit.
type Batch struct {
	b *pebble.Batch // b is nil once committed or closed
}

// NewBatch starts an empty write batch.
func (s *Storage) NewBatch() *Batch {
	return &Batch{b: s.db.NewBatch()}
}

// Set queues a key-value write.
func (b *Batch) Set(key, value []byte) error {
	if b.b == nil {
		return ErrClosed
	}

	return b.b.Set(key, value, nil)
}

// Delete queues a key removal.
func (b *Batch) Delete(key []byte) error {
	if b.b == nil {
		return ErrClosed
	}

	return b.b.Delete(key, nil)
}

// Count returns the number of queued operations.
func (b *Batch) Count() uint32 {
	if b.b == nil {
		return 0
	}

	return b.b.Count()
}

// Commit applies every queued operation at once and releases the batch.
func (b *Batch) Commit() error {
	if b.b == nil {
		return ErrClosed
	}

	err := b.b.Commit(pebble.NoSync)
	b.Close()

	return err
}

// Close discards the batch. Safe to call after Commit.
func (b *Batch) Close() {
	if b.b == nil {
		return
	}

	_ = b.b.Close()
	b.b = nil
}

// Iterate calls fn for each key-value pair in the database.
// If fn returns an error, iteration stops and the error is returned.
// Keys are visited in lexicographic order.
func (s *Storage) Iterate(fn func(key, value []byte) error) error {
	return s.iterate(nil, fn)
}

// IteratePrefix calls fn for each key-value pair with the given prefix.
// The key and value slices are only valid during the callback.
func (s *Storage) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	return s.iterate(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	}, fn)
}

// iterate walks the keys selected by opts in order.
func (s *Storage) iterate(opts *pebble.IterOptions, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(opts)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}

// Close stops the sync goroutine and closes the database.
// It performs a final sync before closing.
func (s *Storage) Close() error {
	close(s.stopSync)
	s.wg.Wait()

	if err := s.sync(); err != nil {
		return err
	}

	return s.db.Close()
}

// startSyncLoop starts the background goroutine that periodically syncs the WAL.
func (s *Storage) startSyncLoop() {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.sync()
			case <-s.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (s *Storage) sync() error {
	return s.db.LogData(nil, pebble.Sync)
}
