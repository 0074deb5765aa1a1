package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"StudentIntro/internal/program"
	"StudentIntro/internal/storage"
	"StudentIntro/internal/token"
)

// Config holds the node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string `toml:"data"`

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string `toml:"http"`

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string `toml:"key"`

	// PrivateKey is the node's Ed25519 signing key.
	PrivateKey ed25519.PrivateKey `toml:"-"`

	// Bootstrap initializes the reward mint at startup, signed by the node key.
	Bootstrap bool `toml:"bootstrap"`

	// RewardTokens is the whole-token reward per created intro.
	RewardTokens uint64 `toml:"reward_tokens"`

	// Decimals is the reward mint precision.
	Decimals uint `toml:"decimals"`

	// RestorePath is a snapshot file loaded into an empty ledger at startup.
	RestorePath string `toml:"restore"`

	// SnapshotPath is where periodic snapshots are written ("" = memory only).
	SnapshotPath string `toml:"snapshot_path"`

	// SnapshotInterval is the period of background snapshots.
	SnapshotInterval duration `toml:"snapshot_interval"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `toml:"log_level"`

	// CacheSize is the Pebble block cache size in MiB.
	CacheSize int64 `toml:"cache_size"`

	// SyncInterval is the period of background WAL syncs.
	SyncInterval duration `toml:"sync_interval"`
}

// duration decodes TOML strings such as "30s" into a time.Duration.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = v

	return nil
}

// parseFlags parses command-line flags into Config. A -config file is loaded
// first; flags given on the command line override its values.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	var configPath string

	fs := flag.NewFlagSet("node", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "TOML configuration file")
	fs.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	fs.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	fs.StringVar(&cfg.KeyPath, "key", "", "Ed25519 private key path (generates new if missing)")
	fs.BoolVar(&cfg.Bootstrap, "bootstrap", false, "Initialize the reward mint at startup")
	fs.Uint64Var(&cfg.RewardTokens, "reward", program.DefaultRewardTokens, "Reward per intro, in whole tokens")
	fs.UintVar(&cfg.Decimals, "decimals", program.DefaultDecimals, "Reward mint decimals")
	fs.StringVar(&cfg.RestorePath, "restore", "", "Snapshot file to restore into an empty ledger")
	fs.StringVar(&cfg.SnapshotPath, "snapshot-path", "", "File to write periodic snapshots to")
	fs.DurationVar(&cfg.SnapshotInterval.Duration, "snapshot-interval", time.Minute, "Interval between snapshots")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.Int64Var(&cfg.CacheSize, "cache-size", 32, "Pebble block cache size in MiB")
	fs.DurationVar(&cfg.SyncInterval.Duration, "sync-interval", 100*time.Millisecond, "Interval between WAL syncs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath != "" {
		explicit := make(map[string]string)
		fs.Visit(func(f *flag.Flag) {
			explicit[f.Name] = f.Value.String()
		})

		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("load config %s:\n%w", configPath, err)
		}

		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return nil, fmt.Errorf("reapply flag -%s:\n%w", name, err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks value ranges.
func (c *Config) validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data path is required")
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive, got %d MiB", c.CacheSize)
	}

	if c.SyncInterval.Duration <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval.Duration)
	}

	if c.Decimals > token.MaxDecimals {
		return fmt.Errorf("decimals %d exceed %d", c.Decimals, token.MaxDecimals)
	}

	if _, err := token.Scale(c.RewardTokens, uint8(c.Decimals)); err != nil {
		return fmt.Errorf("reward %d at %d decimals:\n%w", c.RewardTokens, c.Decimals, err)
	}

	return nil
}

// programConfig returns the program policy.
func (c *Config) programConfig() program.Config {
	return program.Config{
		RewardTokens: c.RewardTokens,
		Decimals:     uint8(c.Decimals),
	}
}

// storageOptions returns the Pebble tuning.
func (c *Config) storageOptions() storage.Options {
	return storage.Options{
		SyncInterval: c.SyncInterval.Duration,
		CacheSize:    c.CacheSize << 20,
	}
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
