// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// grantKey identifies an allowance entry inside one index. first is
// that index's primary key: the owner in the forward index, the
// spender in the mirror.
type grantKey struct {
	first  addr.Address
	second addr.Address
}

// MemStore is a map-backed Store. Transact takes a full snapshot of
// the maps and restores it when the transaction function fails, which
// is cheap at test scale and exactly matches the all-or-nothing
// semantics the engine assumes.
//
// Construct with [NewMemStore]. Not safe for concurrent use; the host
// serializes operations.
type MemStore struct {
	balances   map[addr.Address]amount.Amount
	allowances map[grantKey]Allowance
	mirror     map[grantKey]Allowance
	info       *token.Info
	marketing  *token.Marketing
	logo       *token.Logo
	taxMap     *tax.Map
	version    *Version
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		balances:   make(map[addr.Address]amount.Amount),
		allowances: make(map[grantKey]Allowance),
		mirror:     make(map[grantKey]Allowance),
	}
}

// memSnapshot holds the rollback state for one transaction. Map
// entries are pure values and the singletons are replaced wholesale by
// the Set methods, so a shallow clone is a complete snapshot.
type memSnapshot struct {
	balances   map[addr.Address]amount.Amount
	allowances map[grantKey]Allowance
	mirror     map[grantKey]Allowance
	info       *token.Info
	marketing  *token.Marketing
	logo       *token.Logo
	taxMap     *tax.Map
	version    *Version
}

func (s *MemStore) snapshot() memSnapshot {
	return memSnapshot{
		balances:   maps.Clone(s.balances),
		allowances: maps.Clone(s.allowances),
		mirror:     maps.Clone(s.mirror),
		info:       s.info,
		marketing:  s.marketing,
		logo:       s.logo,
		taxMap:     s.taxMap,
		version:    s.version,
	}
}

func (s *MemStore) restore(saved memSnapshot) {
	s.balances = saved.balances
	s.allowances = saved.allowances
	s.mirror = saved.mirror
	s.info = saved.info
	s.marketing = saved.marketing
	s.logo = saved.logo
	s.taxMap = saved.taxMap
	s.version = saved.version
}

// Transact implements Transactor. On error every mutation fn made is
// rolled back.
func (s *MemStore) Transact(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	saved := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

// View implements Transactor. It runs fn against the live maps; the
// caller keeps to reads.
func (s *MemStore) View(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

func (s *MemStore) Balance(account addr.Address) (amount.Amount, error) {
	return s.balances[account], nil
}

func (s *MemStore) SetBalance(account addr.Address, value amount.Amount) error {
	s.balances[account] = value
	return nil
}

func (s *MemStore) Accounts(after addr.Address, limit int) ([]addr.Address, error) {
	var accounts []addr.Address
	for account := range s.balances {
		if !after.IsZero() && account.String() <= after.String() {
			continue
		}
		accounts = append(accounts, account)
	}
	slices.SortFunc(accounts, func(a, b addr.Address) int {
		return strings.Compare(a.String(), b.String())
	})
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (s *MemStore) Allowance(owner, spender addr.Address) (Allowance, bool, error) {
	grant, ok := s.allowances[grantKey{owner, spender}]
	return grant, ok, nil
}

func (s *MemStore) SetAllowance(owner, spender addr.Address, grant Allowance) error {
	s.allowances[grantKey{owner, spender}] = grant
	s.mirror[grantKey{spender, owner}] = grant
	return nil
}

func (s *MemStore) DeleteAllowance(owner, spender addr.Address) error {
	delete(s.allowances, grantKey{owner, spender})
	delete(s.mirror, grantKey{spender, owner})
	return nil
}

func (s *MemStore) AllowancesByOwner(owner, after addr.Address, limit int) ([]Grant, error) {
	var grants []Grant
	for key, grant := range s.allowances {
		if !key.first.Equal(owner) {
			continue
		}
		if !after.IsZero() && key.second.String() <= after.String() {
			continue
		}
		grants = append(grants, Grant{Owner: key.first, Spender: key.second, Allowance: grant})
	}
	slices.SortFunc(grants, func(a, b Grant) int {
		return strings.Compare(a.Spender.String(), b.Spender.String())
	})
	return clampGrants(grants, limit), nil
}

func (s *MemStore) AllowancesBySpender(spender, after addr.Address, limit int) ([]Grant, error) {
	var grants []Grant
	for key, grant := range s.mirror {
		if !key.first.Equal(spender) {
			continue
		}
		if !after.IsZero() && key.second.String() <= after.String() {
			continue
		}
		grants = append(grants, Grant{Owner: key.second, Spender: key.first, Allowance: grant})
	}
	slices.SortFunc(grants, func(a, b Grant) int {
		return strings.Compare(a.Owner.String(), b.Owner.String())
	})
	return clampGrants(grants, limit), nil
}

func (s *MemStore) Grants() ([]Grant, error) {
	grants := make([]Grant, 0, len(s.allowances))
	for key, grant := range s.allowances {
		grants = append(grants, Grant{Owner: key.first, Spender: key.second, Allowance: grant})
	}
	slices.SortFunc(grants, func(a, b Grant) int {
		if c := strings.Compare(a.Owner.String(), b.Owner.String()); c != 0 {
			return c
		}
		return strings.Compare(a.Spender.String(), b.Spender.String())
	})
	return grants, nil
}

func clampGrants(grants []Grant, limit int) []Grant {
	if limit > 0 && len(grants) > limit {
		return grants[:limit]
	}
	return grants
}

func (s *MemStore) TokenInfo() (token.Info, bool, error) {
	if s.info == nil {
		return token.Info{}, false, nil
	}
	return *s.info, true, nil
}

func (s *MemStore) SetTokenInfo(info token.Info) error {
	s.info = &info
	return nil
}

func (s *MemStore) Marketing() (token.Marketing, bool, error) {
	if s.marketing == nil {
		return token.Marketing{}, false, nil
	}
	return *s.marketing, true, nil
}

func (s *MemStore) SetMarketing(marketing token.Marketing) error {
	s.marketing = &marketing
	return nil
}

func (s *MemStore) DeleteMarketing() error {
	s.marketing = nil
	return nil
}

func (s *MemStore) Logo() (token.Logo, bool, error) {
	if s.logo == nil {
		return token.Logo{}, false, nil
	}
	return *s.logo, true, nil
}

func (s *MemStore) SetLogo(logo token.Logo) error {
	s.logo = &logo
	return nil
}

func (s *MemStore) TaxMap() (tax.Map, bool, error) {
	if s.taxMap == nil {
		return tax.Map{}, false, nil
	}
	return *s.taxMap, true, nil
}

func (s *MemStore) SetTaxMap(m tax.Map) error {
	s.taxMap = &m
	return nil
}

func (s *MemStore) Version() (Version, bool, error) {
	if s.version == nil {
		return Version{}, false, nil
	}
	return *s.version, true, nil
}

func (s *MemStore) SetVersion(v Version) error {
	s.version = &v
	return nil
}
