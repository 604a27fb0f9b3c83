// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package whale caps how much of the supply a single account may
// accumulate.
//
// The guard runs as an engine transfer hook: it refuses an operation
// when the recipient's holding after the transfer would exceed a
// fraction of the total supply. Allowlisted accounts (pool contracts,
// the treasury) are exempt. The hook sees the pre-tax value, so the
// projected holding is an upper bound on what the recipient actually
// receives.
package whale

import (
	"fmt"
	"slices"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
)

// Guard holds the anti-concentration parameters.
type Guard struct {
	// Threshold is the share of the total supply one account may
	// hold, in [0, 1].
	Threshold amount.Rate `json:"threshold"`

	// Allowlist names the accounts exempt from the threshold.
	Allowlist []addr.Address `json:"allowlist,omitempty"`

	// Admin is the account allowed to change the guard.
	Admin addr.Address `json:"admin,omitzero"`
}

// Validate checks the guard's parameters.
func (g *Guard) Validate() error {
	if !g.Threshold.Valid() {
		return fmt.Errorf("whale threshold must be between 0 and 1")
	}
	for _, account := range g.Allowlist {
		if account.IsZero() {
			return fmt.Errorf("whale allowlist entry without an address")
		}
	}
	return nil
}

// Allowed reports whether account bypasses the threshold.
func (g *Guard) Allowed(account addr.Address) bool {
	return slices.ContainsFunc(g.Allowlist, account.Equal)
}

// Check refuses a holding above floor(supply × threshold). A holding
// exactly at the cap passes.
func (g *Guard) Check(store ledger.Store, account addr.Address, holding amount.Amount) error {
	if g.Allowed(account) {
		return nil
	}
	info, ok, err := store.TokenInfo()
	if err != nil {
		return fmt.Errorf("whale: reading token metadata: %w", err)
	}
	if !ok {
		return fmt.Errorf("whale: state is not initialized")
	}
	limit := g.Threshold.Of(info.TotalSupply)
	if holding.GreaterThan(limit) {
		return fmt.Errorf("whale: %s may hold at most %s, transfer results in %s", account, limit, holding)
	}
	return nil
}

// Hook adapts the guard to the engine's transfer hook, projecting the
// recipient's holding as current balance plus the full transfer value.
func (g *Guard) Hook() ledger.TransferHook {
	return func(store ledger.Store, _, recipient addr.Address, value amount.Amount) error {
		if g.Allowed(recipient) {
			return nil
		}
		balance, err := store.Balance(recipient)
		if err != nil {
			return fmt.Errorf("whale: reading balance of %s: %w", recipient, err)
		}
		holding, err := balance.Add(value)
		if err != nil {
			return fmt.Errorf("whale: projected holding of %s: %w", recipient, err)
		}
		return g.Check(store, recipient, holding)
	}
}
