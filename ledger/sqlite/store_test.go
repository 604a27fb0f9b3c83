// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/ledger/sqlite"
	"github.com/fragwuerdig/cw20-taxed/ledger/storetest"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// openTestStore opens a store on path and closes it when the test
// ends.
func openTestStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.OpenStore(sqlite.StoreConfig{
		Path:   path,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestConformance(t *testing.T) {
	storetest.TestStore(t, func(t *testing.T) ledger.Store {
		return openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	})
}

func TestOpenStoreRequiresLogger(t *testing.T) {
	_, err := sqlite.OpenStore(sqlite.StoreConfig{
		Path: filepath.Join(t.TempDir(), "ledger.db"),
	})
	if err == nil {
		t.Fatal("OpenStore without a logger succeeded")
	}
}

func TestReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	alice := addr.MustParse("alice")
	bob := addr.MustParse("bob")

	store, err := sqlite.OpenStore(sqlite.StoreConfig{
		Path:   path,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := store.SetBalance(alice, amount.New(1234)); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	grant := ledger.Allowance{Amount: amount.New(50), Expires: token.AtHeight(900)}
	if err := store.SetAllowance(alice, bob, grant); err != nil {
		t.Fatalf("SetAllowance: %v", err)
	}
	version := ledger.Version{Contract: "crates.io:cw20-base", Release: "1.1.0+taxed001"}
	if err := store.SetVersion(version); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openTestStore(t, path)

	balance, err := reopened.Balance(alice)
	if err != nil {
		t.Fatalf("Balance after reopen: %v", err)
	}
	if !balance.Equal(amount.New(1234)) {
		t.Errorf("balance after reopen = %s, want 1234", balance)
	}
	gotGrant, ok, err := reopened.Allowance(alice, bob)
	if err != nil || !ok {
		t.Fatalf("Allowance after reopen: ok=%v err=%v", ok, err)
	}
	if !gotGrant.Amount.Equal(grant.Amount) || gotGrant.Expires != grant.Expires {
		t.Errorf("allowance after reopen = %+v, want %+v", gotGrant, grant)
	}
	gotVersion, ok, err := reopened.Version()
	if err != nil || !ok {
		t.Fatalf("Version after reopen: ok=%v err=%v", ok, err)
	}
	if gotVersion != version {
		t.Errorf("version after reopen = %+v, want %+v", gotVersion, version)
	}
}

func TestTransactCommitPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	alice := addr.MustParse("alice")
	bob := addr.MustParse("bob")

	store, err := sqlite.OpenStore(sqlite.StoreConfig{
		Path:   path,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	err = store.Transact(context.Background(), func(s ledger.Store) error {
		if err := s.SetBalance(alice, amount.New(600)); err != nil {
			return err
		}
		return s.SetBalance(bob, amount.New(400))
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openTestStore(t, path)
	for _, tc := range []struct {
		account addr.Address
		want    amount.Amount
	}{
		{alice, amount.New(600)},
		{bob, amount.New(400)},
	} {
		got, err := reopened.Balance(tc.account)
		if err != nil {
			t.Fatalf("Balance(%s): %v", tc.account, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("balance of %s = %s, want %s", tc.account, got, tc.want)
		}
	}
}
