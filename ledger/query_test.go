// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger_test

import (
	"fmt"
	"testing"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func query(t *testing.T, engine *ledger.Engine, store ledger.Store, q token.Query) any {
	t.Helper()
	response, err := engine.Query(store, &q)
	if err != nil {
		t.Fatalf("Query(%s): %v", q.Name(), err)
	}
	return response
}

func TestQueryBalance(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), map[string]uint64{"alice": 777})
	engine := newEngine(t, ledger.Config{})

	response := query(t, engine, store, token.Query{Balance: &token.BalanceQuery{Address: alice}})
	if got := response.(token.BalanceResponse); !got.Balance.Equal(amount.New(777)) {
		t.Errorf("balance = %s, want 777", got.Balance)
	}

	// Unknown accounts answer zero, not an error.
	response = query(t, engine, store, token.Query{Balance: &token.BalanceQuery{Address: carol}})
	if got := response.(token.BalanceResponse); !got.Balance.IsZero() {
		t.Errorf("unknown account balance = %s, want 0", got.Balance)
	}
}

func TestQueryTokenInfoOmitsMinter(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), map[string]uint64{"alice": 1_000})
	setMinter(t, store, carol, nil)
	engine := newEngine(t, ledger.Config{})

	response := query(t, engine, store, token.Query{TokenInfo: &token.TokenInfoQuery{}})
	info := response.(token.Info)
	if info.Name != "Cash Token" || info.Symbol != "CASH" || info.Decimals != 6 {
		t.Errorf("info = %+v, want seeded metadata", info)
	}
	if !info.TotalSupply.Equal(amount.New(1_000)) {
		t.Errorf("total supply = %s, want 1000", info.TotalSupply)
	}
	if info.Minter != nil {
		t.Error("token info response leaks the minter, which has its own query")
	}
}

func TestQueryMinter(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), nil)
	engine := newEngine(t, ledger.Config{})

	// No minter: the response is a JSON null, not an error.
	response := query(t, engine, store, token.Query{Minter: &token.MinterQuery{}})
	if minter := response.(*token.Minter); minter != nil {
		t.Errorf("minter = %+v, want nil", minter)
	}

	limit := amount.New(5_000)
	setMinter(t, store, carol, &limit)
	response = query(t, engine, store, token.Query{Minter: &token.MinterQuery{}})
	minter := response.(*token.Minter)
	if minter == nil || !minter.Address.Equal(carol) {
		t.Fatalf("minter = %+v, want carol", minter)
	}
	if minter.Cap == nil || !minter.Cap.Equal(limit) {
		t.Errorf("cap = %v, want 5000", minter.Cap)
	}
}

func TestQueryAllowanceAbsent(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), nil)
	engine := newEngine(t, ledger.Config{})

	response := query(t, engine, store, token.Query{
		Allowance: &token.AllowanceQuery{Owner: alice, Spender: bob},
	})
	got := response.(token.AllowanceResponse)
	if !got.Allowance.IsZero() {
		t.Errorf("allowance = %s, want 0", got.Allowance)
	}
	if !got.Expires.IsNever() {
		t.Errorf("expires = %s, want never", got.Expires)
	}
}

func TestQueryAllAllowancesPagination(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), nil)
	engine := newEngine(t, ledger.Config{})

	// 12 spenders with sortable names: sp-00 through sp-11.
	for i := range 12 {
		spender := addr.MustParse(fmt.Sprintf("sp-%02d", i))
		grant := ledger.Allowance{Amount: amount.New(uint64(i + 1))}
		if err := store.SetAllowance(alice, spender, grant); err != nil {
			t.Fatalf("SetAllowance: %v", err)
		}
	}

	// Default page size is 10.
	response := query(t, engine, store, token.Query{
		AllAllowances: &token.AllAllowancesQuery{Owner: alice},
	})
	page := response.(token.AllAllowancesResponse)
	if len(page.Allowances) != 10 {
		t.Fatalf("default page has %d entries, want 10", len(page.Allowances))
	}
	if page.Allowances[0].Spender.String() != "sp-00" {
		t.Errorf("first spender = %s, want sp-00", page.Allowances[0].Spender)
	}

	// The cursor is exclusive: starting after the last entry of the
	// first page yields the remaining two.
	response = query(t, engine, store, token.Query{
		AllAllowances: &token.AllAllowancesQuery{Owner: alice, StartAfter: page.Allowances[9].Spender},
	})
	rest := response.(token.AllAllowancesResponse)
	if len(rest.Allowances) != 2 {
		t.Fatalf("second page has %d entries, want 2", len(rest.Allowances))
	}
	if rest.Allowances[0].Spender.String() != "sp-10" {
		t.Errorf("second page starts at %s, want sp-10", rest.Allowances[0].Spender)
	}

	// Requests over the maximum are clamped to 30.
	for i := range 40 {
		spender := addr.MustParse(fmt.Sprintf("zz-%02d", i))
		if err := store.SetAllowance(bob, spender, ledger.Allowance{Amount: amount.New(1)}); err != nil {
			t.Fatalf("SetAllowance: %v", err)
		}
	}
	response = query(t, engine, store, token.Query{
		AllAllowances: &token.AllAllowancesQuery{Owner: bob, Limit: 100},
	})
	clamped := response.(token.AllAllowancesResponse)
	if len(clamped.Allowances) != 30 {
		t.Errorf("clamped page has %d entries, want 30", len(clamped.Allowances))
	}
}

func TestQueryAllSpenderAllowances(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), nil)
	engine := newEngine(t, ledger.Config{})

	// Three owners grant to bob; one unrelated grant to carol.
	for _, owner := range []addr.Address{alice, carol, treasury} {
		if err := store.SetAllowance(owner, bob, ledger.Allowance{Amount: amount.New(5)}); err != nil {
			t.Fatalf("SetAllowance: %v", err)
		}
	}
	if err := store.SetAllowance(alice, carol, ledger.Allowance{Amount: amount.New(9)}); err != nil {
		t.Fatalf("SetAllowance: %v", err)
	}

	response := query(t, engine, store, token.Query{
		AllSpenderAllowances: &token.AllSpenderAllowancesQuery{Spender: bob},
	})
	page := response.(token.AllSpenderAllowancesResponse)
	if len(page.Allowances) != 3 {
		t.Fatalf("got %d entries, want 3", len(page.Allowances))
	}
	// Owner order is ascending: alice, carol, treasury.
	wantOwners := []addr.Address{alice, carol, treasury}
	for i, entry := range page.Allowances {
		if !entry.Owner.Equal(wantOwners[i]) {
			t.Errorf("entry[%d].Owner = %s, want %s", i, entry.Owner, wantOwners[i])
		}
	}
}

func TestQueryAllAccounts(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), map[string]uint64{
		"alice": 1, "bob": 2, "carol": 3, "dave": 4,
	})
	engine := newEngine(t, ledger.Config{})

	response := query(t, engine, store, token.Query{
		AllAccounts: &token.AllAccountsQuery{Limit: 2},
	})
	page := response.(token.AllAccountsResponse)
	if len(page.Accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(page.Accounts))
	}
	if page.Accounts[0].String() != "alice" || page.Accounts[1].String() != "bob" {
		t.Errorf("first page = %v, want [alice bob]", page.Accounts)
	}

	response = query(t, engine, store, token.Query{
		AllAccounts: &token.AllAccountsQuery{StartAfter: page.Accounts[1], Limit: 2},
	})
	next := response.(token.AllAccountsResponse)
	if len(next.Accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(next.Accounts))
	}
	if next.Accounts[0].String() != "carol" || next.Accounts[1].String() != "dave" {
		t.Errorf("second page = %v, want [carol dave]", next.Accounts)
	}
}

func TestQueryMarketingInfoAbsent(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), nil)
	engine := newEngine(t, ledger.Config{})

	response := query(t, engine, store, token.Query{MarketingInfo: &token.MarketingInfoQuery{}})
	marketing := response.(token.Marketing)
	if !marketing.IsEmpty() {
		t.Errorf("marketing = %+v, want the zero block", marketing)
	}
}

func TestQueryDownloadLogo(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), nil)
	engine := newEngine(t, ledger.Config{})

	// Nothing stored yet.
	if _, err := engine.Query(store, &token.Query{DownloadLogo: &token.DownloadLogoQuery{}}); err == nil {
		t.Fatal("download with no logo stored succeeded")
	}

	png := validPNG()
	if err := store.SetLogo(token.Logo{PNG: png}); err != nil {
		t.Fatalf("SetLogo: %v", err)
	}
	response := query(t, engine, store, token.Query{DownloadLogo: &token.DownloadLogoQuery{}})
	download := response.(token.DownloadLogoResponse)
	if download.MimeType != "image/png" {
		t.Errorf("mime type = %q, want image/png", download.MimeType)
	}
	if len(download.Data) != len(png) {
		t.Errorf("data is %d bytes, want %d", len(download.Data), len(png))
	}

	svg := []byte(`<?xml version="1.0"?><svg></svg>`)
	if err := store.SetLogo(token.Logo{SVG: svg}); err != nil {
		t.Fatalf("SetLogo: %v", err)
	}
	response = query(t, engine, store, token.Query{DownloadLogo: &token.DownloadLogoQuery{}})
	if got := response.(token.DownloadLogoResponse).MimeType; got != "image/svg+xml" {
		t.Errorf("mime type = %q, want image/svg+xml", got)
	}

	// A URL logo has no bytes to serve.
	if err := store.SetLogo(token.Logo{URL: "https://example.com/x.png"}); err != nil {
		t.Fatalf("SetLogo: %v", err)
	}
	if _, err := engine.Query(store, &token.Query{DownloadLogo: &token.DownloadLogoQuery{}}); err == nil {
		t.Fatal("download of a URL logo succeeded")
	}
}

func TestQueryTaxMap(t *testing.T) {
	store := newStore(t, tenPercentMap(), nil)
	engine := newEngine(t, ledger.Config{})

	response := query(t, engine, store, token.Query{TaxMap: &token.TaxMapQuery{}})
	m := response.(tax.Map)
	if !m.Admin.Equal(taxAdmin) {
		t.Errorf("admin = %s, want %s", m.Admin, taxAdmin)
	}
	if !m.OnTransfer.Proceeds.Equal(treasury) {
		t.Errorf("transfer proceeds = %s, want treasury", m.OnTransfer.Proceeds)
	}
}

func TestQueryValidates(t *testing.T) {
	store := newStore(t, tax.DefaultMap(), nil)
	engine := newEngine(t, ledger.Config{})

	if _, err := engine.Query(store, &token.Query{}); !token.IsKind(err, token.KindInvalidMsg) {
		t.Fatalf("empty query: got %v, want invalid msg", err)
	}
	twoVariants := token.Query{
		Balance:   &token.BalanceQuery{Address: alice},
		TokenInfo: &token.TokenInfoQuery{},
	}
	if _, err := engine.Query(store, &twoVariants); !token.IsKind(err, token.KindInvalidMsg) {
		t.Fatalf("two variants: got %v, want invalid msg", err)
	}
}
