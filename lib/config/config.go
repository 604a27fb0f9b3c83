// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"filippo.io/age"
	"gopkg.in/yaml.v3"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
)

// Config is the master configuration for the token daemon.
type Config struct {
	// StateDir is the root directory for all daemon state: the ledger
	// database, the lock file guarding it, and (unless overridden
	// below) the journal and snapshot directories.
	StateDir string `yaml:"state_dir"`

	// Database is the path of the SQLite ledger database.
	// Empty derives ledger.db under StateDir.
	Database string `yaml:"database,omitempty"`

	// Socket is the Unix socket path the daemon serves requests on.
	// Default: /run/taxtoken/daemon.sock
	Socket string `yaml:"socket"`

	// LogLevel sets the daemon log verbosity.
	// Values: "debug", "info", "warn", "error"
	// Default: info
	LogLevel string `yaml:"log_level"`

	// LedgerAccount is the ledger's own account, where tax is
	// escrowed before the forwarding transfer moves it to the
	// proceeds account. Changing it on an existing ledger strands
	// any balance held under the old name.
	// Default: ledger
	LedgerAccount string `yaml:"ledger_account"`

	// Journal configures the append-only operation journal.
	Journal JournalConfig `yaml:"journal"`

	// Snapshot configures periodic and shutdown state exports.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Whale configures the large-holder transfer guard.
	// Absent means no guard is installed.
	Whale *WhaleConfig `yaml:"whale,omitempty"`
}

// JournalConfig configures the operation journal.
type JournalConfig struct {
	// Dir is the directory journal segments are written to.
	// Empty derives journal/ under StateDir.
	Dir string `yaml:"dir,omitempty"`

	// SegmentSize is the compressed size in bytes at which a segment
	// rotates. Zero uses the journal's built-in default.
	SegmentSize int64 `yaml:"segment_size,omitempty"`
}

// SnapshotConfig configures automatic state snapshots.
type SnapshotConfig struct {
	// Dir is the directory automatic snapshots are written to.
	// Empty derives snapshots/ under StateDir.
	Dir string `yaml:"dir,omitempty"`

	// Interval is how often a snapshot is taken, as a Go duration
	// string ("1h", "30m"). Empty disables periodic snapshots.
	Interval string `yaml:"interval,omitempty"`

	// OnShutdown takes a final snapshot during graceful shutdown.
	OnShutdown bool `yaml:"on_shutdown,omitempty"`

	// Recipients are age X25519 public keys (age1...) snapshots are
	// encrypted to. Empty means snapshots are written unencrypted.
	Recipients []string `yaml:"recipients,omitempty"`
}

// WhaleConfig configures the transfer guard that caps how large a share
// of the total supply any single account may accumulate.
type WhaleConfig struct {
	// Threshold is the maximum holding as a fraction of total supply,
	// written as a decimal ("0.1" for ten percent).
	Threshold string `yaml:"threshold"`

	// Allowlist names accounts exempt from the threshold, such as
	// pools and escrow accounts that legitimately concentrate funds.
	Allowlist []string `yaml:"allowlist,omitempty"`

	// Admin is the account allowed to change the guard at runtime.
	Admin string `yaml:"admin,omitempty"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		StateDir:      filepath.Join(homeDir, ".local", "state", "taxtoken"),
		Socket:        "/run/taxtoken/daemon.sock",
		LogLevel:      "info",
		LedgerAccount: "ledger",
	}
}

// Load loads configuration from the TAXTOKEND_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if TAXTOKEND_CONFIG is not set,
// this fails. This ensures deterministic, auditable configuration with
// no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("TAXTOKEND_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TAXTOKEND_CONFIG environment variable not set; " +
			"set it to the path of your taxtokend.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do
// not override config values - this ensures deterministic, auditable
// configuration. The only expansion performed is ${HOME} and similar path
// variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"STATE_DIR": c.StateDir,
		"HOME":      os.Getenv("HOME"),
	}

	c.StateDir = expandVars(c.StateDir, vars)
	vars["STATE_DIR"] = c.StateDir // Update for dependent paths.

	c.Database = expandVars(c.Database, vars)
	c.Socket = expandVars(c.Socket, vars)
	c.Journal.Dir = expandVars(c.Journal.Dir, vars)
	c.Snapshot.Dir = expandVars(c.Snapshot.Dir, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// DatabasePath returns the ledger database path. An explicit Database
// setting wins; otherwise the database lives under the state directory.
func (c *Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.StateDir, "ledger.db")
}

// JournalDir returns the journal directory, defaulting to journal/
// under the state directory.
func (c *Config) JournalDir() string {
	if c.Journal.Dir != "" {
		return c.Journal.Dir
	}
	return filepath.Join(c.StateDir, "journal")
}

// SnapshotDir returns the snapshot directory, defaulting to snapshots/
// under the state directory.
func (c *Config) SnapshotDir() string {
	if c.Snapshot.Dir != "" {
		return c.Snapshot.Dir
	}
	return filepath.Join(c.StateDir, "snapshots")
}

// LockPath returns the path of the lock file that guards the state
// directory against concurrent daemons.
func (c *Config) LockPath() string {
	return filepath.Join(c.StateDir, "lock")
}

// Level parses LogLevel into a slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	return level, nil
}

// SnapshotInterval parses Snapshot.Interval. Empty means periodic
// snapshots are disabled and returns zero.
func (c *Config) SnapshotInterval() (time.Duration, error) {
	if c.Snapshot.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Snapshot.Interval)
	if err != nil {
		return 0, fmt.Errorf("snapshot.interval %q: %w", c.Snapshot.Interval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("snapshot.interval %q: must not be negative", c.Snapshot.Interval)
	}
	return d, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.StateDir == "" {
		errs = append(errs, fmt.Errorf("state_dir is required"))
	}

	if c.Socket == "" {
		errs = append(errs, fmt.Errorf("socket is required"))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if _, err := addr.Parse(c.LedgerAccount); err != nil {
		errs = append(errs, fmt.Errorf("ledger_account: %v", err))
	}

	if c.Journal.SegmentSize < 0 {
		errs = append(errs, fmt.Errorf("journal.segment_size must not be negative"))
	}

	if _, err := c.SnapshotInterval(); err != nil {
		errs = append(errs, err)
	}
	for i, key := range c.Snapshot.Recipients {
		if _, err := age.ParseX25519Recipient(key); err != nil {
			errs = append(errs, fmt.Errorf("snapshot.recipients[%d]: %v", i, err))
		}
	}

	if c.Whale != nil {
		errs = append(errs, c.Whale.validate()...)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (w *WhaleConfig) validate() []error {
	var errs []error

	rate, err := amount.ParseRate(w.Threshold)
	if err != nil {
		errs = append(errs, fmt.Errorf("whale.threshold: %v", err))
	} else if !rate.Valid() {
		errs = append(errs, fmt.Errorf("whale.threshold must be between 0 and 1"))
	}

	for i, account := range w.Allowlist {
		if _, err := addr.Parse(account); err != nil {
			errs = append(errs, fmt.Errorf("whale.allowlist[%d]: %v", i, err))
		}
	}

	if w.Admin != "" {
		if _, err := addr.Parse(w.Admin); err != nil {
			errs = append(errs, fmt.Errorf("whale.admin: %v", err))
		}
	}

	return errs
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.StateDir,
		c.JournalDir(),
		c.SnapshotDir(),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
