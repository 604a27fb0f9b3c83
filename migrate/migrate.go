// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package migrate normalizes imported ledger state.
//
// State can arrive from several predecessor deployments: terraport
// tokens that kept per-height balance snapshots, tax-aware ledgers
// from before the spender-keyed allowance mirror, and ledgers from
// before the tax map. Run reads the stored version record, classifies
// the origin once, applies exactly the normalization steps that origin
// needs, and stamps the current version last. The caller provides the
// transaction boundary, so a failed migration leaves the store as it
// was.
package migrate

import (
	"fmt"
	"log/slog"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// HistoryEntry is one per-height balance snapshot from a legacy
// export.
type HistoryEntry struct {
	Account addr.Address
	Height  uint64
	Value   amount.Amount
}

// SupplyEntry is one per-height total-supply snapshot.
type SupplyEntry struct {
	Height uint64
	Value  amount.Amount
}

// Options carries the optional inputs of a migration.
type Options struct {
	// TaxMap, when set, is the policy to backfill into state that has
	// none. Nil means the default policy: tax nothing, no admin.
	TaxMap *tax.Map

	// BalanceHistory holds the per-height balance snapshots of a
	// legacy export. Empty means the store's balances are already
	// current. Only a snapshot origin may carry history.
	BalanceHistory []HistoryEntry

	// SupplyHistory holds the per-height total-supply snapshots of a
	// legacy export.
	SupplyHistory []SupplyEntry

	// Logger receives one line per step. Nil discards.
	Logger *slog.Logger
}

// Result reports what a migration did.
type Result struct {
	Origin Origin

	// BalancesCollapsed is the number of accounts written from
	// snapshot history.
	BalancesCollapsed int

	// GrantsRewritten is the number of allowances written back by the
	// mirror rebuild.
	GrantsRewritten int

	// TaxMapBackfilled reports whether a tax map was written.
	TaxMapBackfilled bool
}

// Run migrates the store to the current release. The origin decides
// the steps; an unknown origin changes nothing and returns an error
// of kind unknown_origin.
func Run(store ledger.Store, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	record, ok, err := store.Version()
	if err != nil {
		return Result{}, fmt.Errorf("migrate: reading version record: %w", err)
	}
	if !ok {
		return Result{}, token.Errorf(token.KindUnknownOrigin, "state carries no version record")
	}

	origin := DetectOrigin(record)
	result := Result{Origin: origin}

	var collapse, rebuild, backfill bool
	switch origin {
	case OriginUnknown:
		return result, token.Errorf(token.KindUnknownOrigin,
			"%s %s is not a known migration path", record.Contract, record.Release)
	case OriginLegacySnapshot:
		collapse, rebuild, backfill = true, true, true
	case OriginTaxedPreMirror:
		rebuild, backfill = true, true
	case OriginTaxedPreTax:
		backfill = true
	case OriginTaxedCurrent:
		// Already normalized; only the stamp below.
	}
	if !collapse && (len(opts.BalanceHistory) > 0 || len(opts.SupplyHistory) > 0) {
		return result, fmt.Errorf("migrate: %s state does not carry snapshot history", origin)
	}

	logger.Info("migrating state",
		"contract", record.Contract, "release", record.Release, "origin", origin)

	if collapse {
		if result.BalancesCollapsed, err = CollapseBalanceHistory(store, opts.BalanceHistory); err != nil {
			return result, err
		}
		if err := applySupplyHistory(store, opts.SupplyHistory); err != nil {
			return result, err
		}
		logger.Info("balance history collapsed", "accounts", result.BalancesCollapsed)
	}
	if rebuild {
		if result.GrantsRewritten, err = RebuildAllowanceMirror(store); err != nil {
			return result, err
		}
		logger.Info("allowance mirror rebuilt", "grants", result.GrantsRewritten)
	}
	if backfill {
		if result.TaxMapBackfilled, err = EnsureTaxMap(store, opts.TaxMap); err != nil {
			return result, err
		}
		if result.TaxMapBackfilled {
			logger.Info("tax map backfilled", "explicit", opts.TaxMap != nil)
		}
	}

	if err := store.SetVersion(ledger.CurrentVersion); err != nil {
		return result, fmt.Errorf("migrate: stamping version: %w", err)
	}
	logger.Info("state migrated", "origin", origin, "release", ledger.CurrentVersion.Release)
	return result, nil
}

// CollapseBalanceHistory writes each account's balance at its highest
// recorded height. Among entries at equal height the later one wins,
// matching changelog order. It returns the number of accounts written.
func CollapseBalanceHistory(store ledger.Store, entries []HistoryEntry) (int, error) {
	latest := make(map[addr.Address]HistoryEntry, len(entries))
	for _, e := range entries {
		if e.Account.IsZero() {
			return 0, fmt.Errorf("migrate: balance history entry without an account")
		}
		if prev, ok := latest[e.Account]; !ok || e.Height >= prev.Height {
			latest[e.Account] = e
		}
	}
	for account, e := range latest {
		if err := store.SetBalance(account, e.Value); err != nil {
			return 0, fmt.Errorf("migrate: collapsing balance of %s: %w", account, err)
		}
	}
	return len(latest), nil
}

// applySupplyHistory sets the total supply to its value at the highest
// recorded height.
func applySupplyHistory(store ledger.Store, entries []SupplyEntry) error {
	if len(entries) == 0 {
		return nil
	}
	latest := entries[0]
	for _, e := range entries[1:] {
		if e.Height >= latest.Height {
			latest = e
		}
	}
	info, ok, err := store.TokenInfo()
	if err != nil {
		return fmt.Errorf("migrate: reading token metadata: %w", err)
	}
	if !ok {
		return fmt.Errorf("migrate: supply history for a store without token metadata")
	}
	info.TotalSupply = latest.Value
	if err := store.SetTokenInfo(info); err != nil {
		return fmt.Errorf("migrate: writing total supply: %w", err)
	}
	return nil
}

// RebuildAllowanceMirror writes every grant in the forward index back
// through SetAllowance, which maintains the spender mirror. The
// forward index is the truth; after the rebuild the mirror agrees with
// it. It returns the number of grants written.
func RebuildAllowanceMirror(store ledger.Store) (int, error) {
	grants, err := store.Grants()
	if err != nil {
		return 0, fmt.Errorf("migrate: reading grants: %w", err)
	}
	for _, g := range grants {
		if err := store.SetAllowance(g.Owner, g.Spender, g.Allowance); err != nil {
			return 0, fmt.Errorf("migrate: rewriting grant %s to %s: %w", g.Owner, g.Spender, err)
		}
	}
	return len(grants), nil
}

// EnsureTaxMap backfills a tax map into a store that has none. An
// existing map is kept untouched, whatever the explicit argument. The
// explicit map, or the default when explicit is nil, is validated
// before it is written. It reports whether a map was written.
func EnsureTaxMap(store ledger.Store, explicit *tax.Map) (bool, error) {
	if _, ok, err := store.TaxMap(); err != nil {
		return false, fmt.Errorf("migrate: reading tax map: %w", err)
	} else if ok {
		return false, nil
	}
	m := tax.DefaultMap()
	if explicit != nil {
		m = *explicit
	}
	if err := m.Validate(); err != nil {
		return false, fmt.Errorf("migrate: tax map: %w", err)
	}
	if err := store.SetTaxMap(m); err != nil {
		return false, fmt.Errorf("migrate: writing tax map: %w", err)
	}
	return true, nil
}
