// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storetest exercises a ledger Store implementation against
// the contract the engine assumes. A store package runs the whole
// suite from one of its own tests:
//
//	func TestConformance(t *testing.T) {
//	    storetest.TestStore(t, func(t *testing.T) ledger.Store {
//	        return ledger.NewMemStore()
//	    })
//	}
//
// Stores that also implement Transactor get the transaction semantics
// checked as well.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// Factory returns a fresh, empty store for one subtest. Implementations
// register cleanup on t.
type Factory func(t *testing.T) ledger.Store

var (
	alice = addr.MustParse("alice")
	bob   = addr.MustParse("bob")
	carol = addr.MustParse("carol")
	dave  = addr.MustParse("dave")
)

// TestStore runs the conformance suite against stores built by
// factory.
func TestStore(t *testing.T, factory Factory) {
	t.Run("BalanceDefaultsZero", func(t *testing.T) { testBalanceDefaultsZero(t, factory(t)) })
	t.Run("ZeroBalanceKeepsEntry", func(t *testing.T) { testZeroBalanceKeepsEntry(t, factory(t)) })
	t.Run("AccountsPagination", func(t *testing.T) { testAccountsPagination(t, factory(t)) })
	t.Run("AllowancePairing", func(t *testing.T) { testAllowancePairing(t, factory(t)) })
	t.Run("AllowanceListings", func(t *testing.T) { testAllowanceListings(t, factory(t)) })
	t.Run("GrantsOrdered", func(t *testing.T) { testGrantsOrdered(t, factory(t)) })
	t.Run("Singletons", func(t *testing.T) { testSingletons(t, factory(t)) })
	t.Run("TransactorRollback", func(t *testing.T) { testTransactorRollback(t, factory(t)) })
}

func testBalanceDefaultsZero(t *testing.T, store ledger.Store) {
	got, err := store.Balance(alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("balance of an unknown account = %s, want 0", got)
	}

	if err := store.SetBalance(alice, amount.New(123)); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	got, err = store.Balance(alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !got.Equal(amount.New(123)) {
		t.Errorf("balance = %s, want 123", got)
	}
}

func testZeroBalanceKeepsEntry(t *testing.T, store ledger.Store) {
	if err := store.SetBalance(alice, amount.Zero()); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	accounts, err := store.Accounts(addr.Address{}, 0)
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 1 || !accounts[0].Equal(alice) {
		t.Errorf("Accounts = %v, want the zero-balance entry for alice", accounts)
	}
}

func testAccountsPagination(t *testing.T, store ledger.Store) {
	for _, account := range []addr.Address{dave, alice, carol, bob} {
		if err := store.SetBalance(account, amount.New(1)); err != nil {
			t.Fatalf("SetBalance: %v", err)
		}
	}

	// Ascending regardless of insertion order.
	accounts, err := store.Accounts(addr.Address{}, 0)
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	want := []addr.Address{alice, bob, carol, dave}
	if len(accounts) != len(want) {
		t.Fatalf("got %d accounts, want %d", len(accounts), len(want))
	}
	for i := range want {
		if !accounts[i].Equal(want[i]) {
			t.Errorf("accounts[%d] = %s, want %s", i, accounts[i], want[i])
		}
	}

	// The cursor is exclusive and the limit truncates.
	accounts, err = store.Accounts(alice, 2)
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 2 || !accounts[0].Equal(bob) || !accounts[1].Equal(carol) {
		t.Errorf("Accounts(after alice, limit 2) = %v, want [bob carol]", accounts)
	}
}

func testAllowancePairing(t *testing.T, store ledger.Store) {
	if _, ok, err := store.Allowance(alice, bob); err != nil || ok {
		t.Fatalf("Allowance on empty store: ok=%v err=%v", ok, err)
	}

	grant := ledger.Allowance{Amount: amount.New(50), Expires: token.AtHeight(77)}
	if err := store.SetAllowance(alice, bob, grant); err != nil {
		t.Fatalf("SetAllowance: %v", err)
	}
	got, ok, err := store.Allowance(alice, bob)
	if err != nil || !ok {
		t.Fatalf("Allowance: ok=%v err=%v", ok, err)
	}
	if got != grant {
		t.Errorf("Allowance = %+v, want %+v", got, grant)
	}

	// The grant is directional.
	if _, ok, _ := store.Allowance(bob, alice); ok {
		t.Error("reversed lookup found the grant")
	}

	// Both indices serve the write, and a delete clears both.
	byOwner, err := store.AllowancesByOwner(alice, addr.Address{}, 0)
	if err != nil {
		t.Fatalf("AllowancesByOwner: %v", err)
	}
	bySpender, err := store.AllowancesBySpender(bob, addr.Address{}, 0)
	if err != nil {
		t.Fatalf("AllowancesBySpender: %v", err)
	}
	if len(byOwner) != 1 || len(bySpender) != 1 {
		t.Fatalf("index sizes: owner=%d spender=%d, want 1 and 1", len(byOwner), len(bySpender))
	}
	if byOwner[0] != bySpender[0] {
		t.Errorf("indices disagree: %+v vs %+v", byOwner[0], bySpender[0])
	}

	if err := store.DeleteAllowance(alice, bob); err != nil {
		t.Fatalf("DeleteAllowance: %v", err)
	}
	if _, ok, _ := store.Allowance(alice, bob); ok {
		t.Error("deleted grant still readable")
	}
	byOwner, _ = store.AllowancesByOwner(alice, addr.Address{}, 0)
	bySpender, _ = store.AllowancesBySpender(bob, addr.Address{}, 0)
	if len(byOwner) != 0 || len(bySpender) != 0 {
		t.Errorf("after delete: owner=%d spender=%d entries, want none", len(byOwner), len(bySpender))
	}

	// Deleting an absent grant is not an error.
	if err := store.DeleteAllowance(alice, bob); err != nil {
		t.Errorf("DeleteAllowance of absent grant: %v", err)
	}
}

func testAllowanceListings(t *testing.T, store ledger.Store) {
	// alice grants to 12 spenders; carol grants to bob.
	var spenders []addr.Address
	for i := range 12 {
		spenders = append(spenders, addr.MustParse(fmt.Sprintf("sp-%02d", i)))
	}
	for i, spender := range spenders {
		grant := ledger.Allowance{Amount: amount.New(uint64(i + 1))}
		if err := store.SetAllowance(alice, spender, grant); err != nil {
			t.Fatalf("SetAllowance: %v", err)
		}
	}
	if err := store.SetAllowance(carol, spenders[0], ledger.Allowance{Amount: amount.New(99)}); err != nil {
		t.Fatalf("SetAllowance: %v", err)
	}

	// Owner listing: only alice's grants, ascending by spender,
	// exclusive cursor, limited.
	grants, err := store.AllowancesByOwner(alice, spenders[1], 3)
	if err != nil {
		t.Fatalf("AllowancesByOwner: %v", err)
	}
	if len(grants) != 3 {
		t.Fatalf("got %d grants, want 3", len(grants))
	}
	for i, g := range grants {
		if !g.Owner.Equal(alice) {
			t.Errorf("grants[%d].Owner = %s, want alice", i, g.Owner)
		}
		if !g.Spender.Equal(spenders[i+2]) {
			t.Errorf("grants[%d].Spender = %s, want %s", i, g.Spender, spenders[i+2])
		}
	}

	// Spender listing from the mirror: both owners granting to the
	// same spender, ascending by owner.
	bySpender, err := store.AllowancesBySpender(spenders[0], addr.Address{}, 0)
	if err != nil {
		t.Fatalf("AllowancesBySpender: %v", err)
	}
	if len(bySpender) != 2 {
		t.Fatalf("got %d grants, want 2", len(bySpender))
	}
	if !bySpender[0].Owner.Equal(alice) || !bySpender[1].Owner.Equal(carol) {
		t.Errorf("mirror order = [%s %s], want [alice carol]", bySpender[0].Owner, bySpender[1].Owner)
	}
}

func testGrantsOrdered(t *testing.T, store ledger.Store) {
	pairs := []struct{ owner, spender addr.Address }{
		{carol, alice},
		{alice, carol},
		{alice, bob},
		{bob, alice},
	}
	for _, p := range pairs {
		if err := store.SetAllowance(p.owner, p.spender, ledger.Allowance{Amount: amount.New(1)}); err != nil {
			t.Fatalf("SetAllowance: %v", err)
		}
	}

	grants, err := store.Grants()
	if err != nil {
		t.Fatalf("Grants: %v", err)
	}
	want := []struct{ owner, spender addr.Address }{
		{alice, bob},
		{alice, carol},
		{bob, alice},
		{carol, alice},
	}
	if len(grants) != len(want) {
		t.Fatalf("got %d grants, want %d", len(grants), len(want))
	}
	for i, w := range want {
		if !grants[i].Owner.Equal(w.owner) || !grants[i].Spender.Equal(w.spender) {
			t.Errorf("grants[%d] = %s→%s, want %s→%s",
				i, grants[i].Owner, grants[i].Spender, w.owner, w.spender)
		}
	}
}

func testSingletons(t *testing.T, store ledger.Store) {
	// All absent on a fresh store.
	if _, ok, err := store.TokenInfo(); err != nil || ok {
		t.Fatalf("TokenInfo on empty store: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Marketing(); err != nil || ok {
		t.Fatalf("Marketing on empty store: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Logo(); err != nil || ok {
		t.Fatalf("Logo on empty store: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.TaxMap(); err != nil || ok {
		t.Fatalf("TaxMap on empty store: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Version(); err != nil || ok {
		t.Fatalf("Version on empty store: ok=%v err=%v", ok, err)
	}

	limit := amount.New(1_000_000)
	info := token.Info{
		Name: "Cash Token", Symbol: "CASH", Decimals: 6,
		TotalSupply: amount.New(500),
		Minter:      &token.Minter{Address: carol, Cap: &limit},
	}
	if err := store.SetTokenInfo(info); err != nil {
		t.Fatalf("SetTokenInfo: %v", err)
	}
	gotInfo, ok, err := store.TokenInfo()
	if err != nil || !ok {
		t.Fatalf("TokenInfo: ok=%v err=%v", ok, err)
	}
	if gotInfo.Name != info.Name || gotInfo.Symbol != info.Symbol || gotInfo.Decimals != info.Decimals {
		t.Errorf("TokenInfo = %+v, want %+v", gotInfo, info)
	}
	if !gotInfo.TotalSupply.Equal(info.TotalSupply) {
		t.Errorf("TotalSupply = %s, want 500", gotInfo.TotalSupply)
	}
	if gotInfo.Minter == nil || !gotInfo.Minter.Address.Equal(carol) || gotInfo.Minter.Cap == nil || !gotInfo.Minter.Cap.Equal(limit) {
		t.Errorf("Minter = %+v, want carol with cap", gotInfo.Minter)
	}

	marketing := token.Marketing{Project: "Cash", Description: "taxed", Admin: alice}
	if err := store.SetMarketing(marketing); err != nil {
		t.Fatalf("SetMarketing: %v", err)
	}
	gotMarketing, ok, err := store.Marketing()
	if err != nil || !ok {
		t.Fatalf("Marketing: ok=%v err=%v", ok, err)
	}
	if gotMarketing != marketing {
		t.Errorf("Marketing = %+v, want %+v", gotMarketing, marketing)
	}
	if err := store.DeleteMarketing(); err != nil {
		t.Fatalf("DeleteMarketing: %v", err)
	}
	if _, ok, _ := store.Marketing(); ok {
		t.Error("deleted marketing block still readable")
	}

	logo := token.Logo{URL: "https://example.com/logo.png"}
	if err := store.SetLogo(logo); err != nil {
		t.Fatalf("SetLogo: %v", err)
	}
	gotLogo, ok, err := store.Logo()
	if err != nil || !ok {
		t.Fatalf("Logo: ok=%v err=%v", ok, err)
	}
	if gotLogo.URL != logo.URL {
		t.Errorf("Logo = %+v, want %+v", gotLogo, logo)
	}

	taxMap := tax.DefaultMap()
	taxMap.Admin = alice
	if err := store.SetTaxMap(taxMap); err != nil {
		t.Fatalf("SetTaxMap: %v", err)
	}
	gotMap, ok, err := store.TaxMap()
	if err != nil || !ok {
		t.Fatalf("TaxMap: ok=%v err=%v", ok, err)
	}
	if !gotMap.Admin.Equal(alice) {
		t.Errorf("TaxMap admin = %s, want alice", gotMap.Admin)
	}

	version := ledger.Version{Contract: "crates.io:cw20-base", Release: "1.1.0+taxed001"}
	if err := store.SetVersion(version); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	gotVersion, ok, err := store.Version()
	if err != nil || !ok {
		t.Fatalf("Version: ok=%v err=%v", ok, err)
	}
	if gotVersion != version {
		t.Errorf("Version = %+v, want %+v", gotVersion, version)
	}
}

func testTransactorRollback(t *testing.T, store ledger.Store) {
	transactor, ok := store.(ledger.Transactor)
	if !ok {
		t.Skip("store does not implement Transactor")
	}

	if err := store.SetBalance(alice, amount.New(100)); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}

	boom := errors.New("boom")
	err := transactor.Transact(context.Background(), func(s ledger.Store) error {
		if err := s.SetBalance(alice, amount.New(1)); err != nil {
			return err
		}
		if err := s.SetAllowance(alice, bob, ledger.Allowance{Amount: amount.New(5)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transact returned %v, want the inner error", err)
	}

	balance, err := store.Balance(alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Equal(amount.New(100)) {
		t.Errorf("balance after rollback = %s, want 100", balance)
	}
	if _, ok, _ := store.Allowance(alice, bob); ok {
		t.Error("allowance from the rolled-back transaction survived")
	}

	// A successful transaction commits.
	err = transactor.Transact(context.Background(), func(s ledger.Store) error {
		return s.SetBalance(bob, amount.New(7))
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	balance, err = store.Balance(bob)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Equal(amount.New(7)) {
		t.Errorf("committed balance = %s, want 7", balance)
	}
}
