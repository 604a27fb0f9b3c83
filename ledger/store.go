// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// Allowance is one stored grant: how much the spender may still move
// out of the owner's balance, and until when. The zero value (amount
// zero, never expires) is what an absent entry reads as.
type Allowance struct {
	Amount  amount.Amount
	Expires token.Expiration
}

// Grant is an allowance edge with both endpoints, as returned by the
// paging reads.
type Grant struct {
	Owner   addr.Address
	Spender addr.Address
	Allowance
}

// Version is the lineage record stamped into state: which contract
// family wrote it and at which release. Migration reads it once to
// classify the state's origin before touching anything else.
type Version struct {
	Contract string `json:"contract"`
	Release  string `json:"version"`
}

// CurrentVersion is the lineage record this release writes. The
// strings continue the deployed contract's lineage so that state
// stamped here is recognized by later migrations, and state stamped
// by the original deployments is recognized by this one.
var CurrentVersion = Version{
	Contract: "crates.io:cw20-base",
	Release:  "1.1.0+taxed001",
}

// Store is the state surface the engine reads and writes. Implementors
// keep the allowance forward index and its spender-keyed mirror in
// lockstep: SetAllowance and DeleteAllowance always touch both.
//
// Values passed in and handed out are shared, not copied. Callers
// replace whole values through the Set methods and never mutate
// through pointers or slices inside a returned value; that discipline
// is what lets MemStore roll back by snapshot.
type Store interface {
	// Balance returns the account's balance, zero when the account has
	// no entry.
	Balance(account addr.Address) (amount.Amount, error)

	// SetBalance writes the account's balance. Writing zero keeps the
	// entry, so accounts the ledger has touched stay enumerable.
	SetBalance(account addr.Address, value amount.Amount) error

	// Accounts returns addresses holding balance entries, ascending,
	// strictly after the given address. A zero address starts from the
	// beginning; a non-positive limit means no limit.
	Accounts(after addr.Address, limit int) ([]addr.Address, error)

	// Allowance returns the owner→spender grant. The second return is
	// false when no entry exists; the returned Allowance is then the
	// zero value.
	Allowance(owner, spender addr.Address) (Allowance, bool, error)

	// SetAllowance writes the grant to the forward index and the
	// mirror.
	SetAllowance(owner, spender addr.Address, grant Allowance) error

	// DeleteAllowance removes the grant from both indices.
	DeleteAllowance(owner, spender addr.Address) error

	// AllowancesByOwner returns the owner's grants, ascending by
	// spender, strictly after the given spender. A non-positive limit
	// means no limit.
	AllowancesByOwner(owner, after addr.Address, limit int) ([]Grant, error)

	// AllowancesBySpender returns the grants held by one spender,
	// ascending by owner, strictly after the given owner. Served from
	// the mirror index.
	AllowancesBySpender(spender, after addr.Address, limit int) ([]Grant, error)

	// Grants returns every grant in the forward index, ordered by
	// owner then spender. Snapshot export and migration read the whole
	// book through this.
	Grants() ([]Grant, error)

	// TokenInfo returns the token metadata. The second return is false
	// before genesis has been applied.
	TokenInfo() (token.Info, bool, error)

	// SetTokenInfo writes the token metadata.
	SetTokenInfo(info token.Info) error

	// Marketing returns the marketing block, false when none is
	// stored.
	Marketing() (token.Marketing, bool, error)

	// SetMarketing writes the marketing block.
	SetMarketing(marketing token.Marketing) error

	// DeleteMarketing removes the marketing block.
	DeleteMarketing() error

	// Logo returns the stored logo content, false when none is stored.
	Logo() (token.Logo, bool, error)

	// SetLogo writes the logo content.
	SetLogo(logo token.Logo) error

	// TaxMap returns the tax policy, false when none is stored. A
	// fully instantiated ledger always has one; absence means the
	// state predates tax support and needs migration.
	TaxMap() (tax.Map, bool, error)

	// SetTaxMap writes the tax policy. Callers validate first.
	SetTaxMap(m tax.Map) error

	// Version returns the lineage record, false when none is stored.
	Version() (Version, bool, error)

	// SetVersion writes the lineage record.
	SetVersion(v Version) error
}

// Transactor runs a function against a Store with all-or-nothing
// semantics. Both backing stores implement it; the host wraps every
// execute call in one Transact so that an operation and all its
// deferred actions commit or vanish together.
type Transactor interface {
	// Transact runs fn inside a write transaction. If fn returns an
	// error, every mutation it made is discarded and the error is
	// returned.
	Transact(ctx context.Context, fn func(Store) error) error

	// View runs fn against a read snapshot of the state. Mutating
	// through the store inside View is a programming error; backends
	// are not required to detect it.
	View(ctx context.Context, fn func(Store) error) error
}
