// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fragwuerdig/cw20-taxed/genesis"
	"github.com/fragwuerdig/cw20-taxed/host"
	"github.com/fragwuerdig/cw20-taxed/journal"
	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/ledger/sqlite"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/lib/clock"
	"github.com/fragwuerdig/cw20-taxed/lib/config"
	"github.com/fragwuerdig/cw20-taxed/lib/service"
	"github.com/fragwuerdig/cw20-taxed/lib/version"
	"github.com/fragwuerdig/cw20-taxed/migrate"
	"github.com/fragwuerdig/cw20-taxed/snapshot"
	"github.com/fragwuerdig/cw20-taxed/whale"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		genesisPath  string
		restorePath  string
		identityPath string
		stateDir     string
		socketPath   string
		showVersion  bool
	)

	flag.StringVar(&configPath, "config", "", "path to the daemon config file (default: $TAXTOKEND_CONFIG)")
	flag.StringVar(&genesisPath, "genesis", "", "genesis document applied when the ledger is empty")
	flag.StringVar(&restorePath, "restore", "", "snapshot file imported when the ledger is empty")
	flag.StringVar(&identityPath, "restore-identity", "", "file holding age identities for an encrypted snapshot, one per line")
	flag.StringVar(&stateDir, "state-dir", "", "override the configured state directory")
	flag.StringVar(&socketPath, "socket", "", "override the configured socket path")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("taxtokend %s\n", version.Info())
		return nil
	}
	if genesisPath != "" && restorePath != "" {
		return fmt.Errorf("--genesis and --restore are mutually exclusive")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}
	if socketPath != "" {
		cfg.Socket = socketPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	lock, err := acquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := sqlite.OpenStore(sqlite.StoreConfig{
		Path:   cfg.DatabasePath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("opening ledger database: %w", err)
	}
	defer store.Close()

	if err := initializeState(ctx, store, genesisPath, restorePath, identityPath, logger); err != nil {
		return err
	}

	journalWriter, err := journal.OpenWriter(journal.Config{
		Dir:         cfg.JournalDir(),
		SegmentSize: cfg.Journal.SegmentSize,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := journalWriter.Close(); err != nil {
			logger.Error("closing journal", "error", err)
		}
	}()

	self, err := addr.Parse(cfg.LedgerAccount)
	if err != nil {
		return fmt.Errorf("ledger account: %w", err)
	}

	var hooks []ledger.TransferHook
	if cfg.Whale != nil {
		guard, err := buildWhaleGuard(cfg.Whale)
		if err != nil {
			return err
		}
		hooks = append(hooks, guard.Hook())
		logger.Info("whale guard enabled",
			"threshold", cfg.Whale.Threshold,
			"allowlisted", len(guard.Allowlist),
		)
	}

	clk := clock.Real()

	ledgerHost, err := host.New(host.Config{
		Store:         store,
		Self:          self,
		Hooks:         hooks,
		Clock:         clk,
		InitialHeight: journalWriter.LastHeight() + 1,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	interval, err := cfg.SnapshotInterval()
	if err != nil {
		return err
	}

	tokenService := &TokenService{
		host:               ledgerHost,
		store:              store,
		journal:            journalWriter,
		clock:              clk,
		logger:             logger,
		startedAt:          clk.Now(),
		snapshotDir:        cfg.SnapshotDir(),
		snapshotRecipients: cfg.Snapshot.Recipients,
	}

	socketServer := service.NewSocketServer(cfg.Socket, logger)
	tokenService.registerActions(socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	if interval > 0 {
		go tokenService.snapshotLoop(ctx, interval)
	}

	logger.Info("token daemon running",
		"socket", cfg.Socket,
		"database", cfg.DatabasePath(),
		"height", ledgerHost.Height(),
	)

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// Wait for the socket server to drain active connections.
	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}

	if cfg.Snapshot.OnShutdown {
		// The serving context is gone; the export gets its own.
		path, digest, _, err := tokenService.writeSnapshot(context.Background(), "", nil)
		if err != nil {
			logger.Error("shutdown snapshot failed", "error", err)
		} else {
			logger.Info("shutdown snapshot written", "path", path, "state_digest", digest.String())
		}
	}

	return nil
}

// loadConfig resolves the daemon configuration: an explicit --config
// path wins, then TAXTOKEND_CONFIG, then built-in defaults. The
// defaults alone are enough for a development daemon under $HOME.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("TAXTOKEND_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// initializeState brings the ledger to a bootable, current-release
// state. An empty ledger is seeded from --genesis or --restore; a
// populated one boots as-is after a migration check, and the seed
// flags are ignored then, so restarting with the same command line
// stays safe.
func initializeState(ctx context.Context, store *sqlite.Store, genesisPath, restorePath, identityPath string, logger *slog.Logger) error {
	_, populated, err := store.TokenInfo()
	if err != nil {
		return fmt.Errorf("reading token metadata: %w", err)
	}

	switch {
	case populated:
		if genesisPath != "" {
			logger.Debug("ledger already initialized, genesis file ignored", "genesis", genesisPath)
		}
		if restorePath != "" {
			logger.Debug("ledger already initialized, snapshot file ignored", "snapshot", restorePath)
		}
		return migrateIfNeeded(ctx, store, logger)

	case restorePath != "":
		return restoreSnapshot(ctx, store, restorePath, identityPath, logger)

	case genesisPath != "":
		return applyGenesis(ctx, store, genesisPath, logger)

	default:
		return fmt.Errorf("ledger is empty and neither --genesis nor --restore was given")
	}
}

func applyGenesis(ctx context.Context, store *sqlite.Store, genesisPath string, logger *slog.Logger) error {
	doc, err := genesis.ReadFile(genesisPath)
	if err != nil {
		return err
	}
	if err := store.Transact(ctx, func(s ledger.Store) error {
		return doc.Apply(s)
	}); err != nil {
		return fmt.Errorf("applying genesis %s: %w", genesisPath, err)
	}
	logger.Info("genesis applied",
		"genesis", genesisPath,
		"name", doc.Name,
		"symbol", doc.Symbol,
		"accounts", len(doc.Balances),
	)
	return nil
}

// restoreSnapshot imports a snapshot file into the empty ledger and
// immediately migrates the imported state to the current release, in
// one transaction. A snapshot from an older deployment either lands
// fully normalized or not at all.
func restoreSnapshot(ctx context.Context, store *sqlite.Store, path, identityPath string, logger *slog.Logger) error {
	identities, err := readIdentityFile(identityPath)
	if err != nil {
		return err
	}

	var digest snapshot.Digest
	var result migrate.Result
	if err := store.Transact(ctx, func(s ledger.Store) error {
		var err error
		digest, err = snapshot.ReadFile(path, s, snapshot.ImportOptions{Identities: identities})
		if err != nil {
			return err
		}
		result, err = migrate.Run(s, migrate.Options{Logger: logger})
		return err
	}); err != nil {
		return fmt.Errorf("restoring snapshot %s: %w", path, err)
	}

	logger.Info("snapshot restored",
		"snapshot", path,
		"state_digest", digest.String(),
		"origin", result.Origin,
	)
	return nil
}

// migrateIfNeeded normalizes a populated ledger whose stored lineage
// record is not the current release. Up-to-date state is left alone.
func migrateIfNeeded(ctx context.Context, store *sqlite.Store, logger *slog.Logger) error {
	record, ok, err := store.Version()
	if err != nil {
		return fmt.Errorf("reading version record: %w", err)
	}
	if ok && record == ledger.CurrentVersion {
		return nil
	}

	var result migrate.Result
	if err := store.Transact(ctx, func(s ledger.Store) error {
		var err error
		result, err = migrate.Run(s, migrate.Options{Logger: logger})
		return err
	}); err != nil {
		return fmt.Errorf("migrating ledger state: %w", err)
	}
	logger.Info("ledger state migrated", "origin", result.Origin)
	return nil
}

// readIdentityFile loads age identities, one per line. Blank lines
// and #-comments are skipped.
func readIdentityFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}
	var identities []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identities = append(identities, line)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("identity file %s holds no identities", path)
	}
	return identities, nil
}

// buildWhaleGuard materializes the configured guard. Validate has
// already checked the fields; parse errors here mean the config was
// mutated between validation and use, which is a bug.
func buildWhaleGuard(wc *config.WhaleConfig) (*whale.Guard, error) {
	threshold, err := amount.ParseRate(wc.Threshold)
	if err != nil {
		return nil, fmt.Errorf("whale threshold: %w", err)
	}
	guard := &whale.Guard{Threshold: threshold}
	for _, entry := range wc.Allowlist {
		account, err := addr.Parse(entry)
		if err != nil {
			return nil, fmt.Errorf("whale allowlist: %w", err)
		}
		guard.Allowlist = append(guard.Allowlist, account)
	}
	if wc.Admin != "" {
		admin, err := addr.Parse(wc.Admin)
		if err != nil {
			return nil, fmt.Errorf("whale admin: %w", err)
		}
		guard.Admin = admin
	}
	if err := guard.Validate(); err != nil {
		return nil, err
	}
	return guard, nil
}
