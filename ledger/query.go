// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"

	"github.com/fragwuerdig/cw20-taxed/token"
)

// Listing page sizes. A request without a limit gets
// defaultQueryLimit entries, a request over maxQueryLimit is clamped.
const (
	defaultQueryLimit = 10
	maxQueryLimit     = 30
)

// Query answers a read request. The returned value is the typed
// response for the variant, ready for JSON encoding. Queries never
// mutate state and need no caller identity.
func (e *Engine) Query(store Store, q *token.Query) (any, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	switch {
	case q.Balance != nil:
		value, err := store.Balance(q.Balance.Address)
		if err != nil {
			return nil, err
		}
		return token.BalanceResponse{Balance: value}, nil

	case q.TokenInfo != nil:
		info, ok, err := store.TokenInfo()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ledger: token info not initialized")
		}
		// The mint role has its own query.
		info.Minter = nil
		return info, nil

	case q.Minter != nil:
		info, ok, err := store.TokenInfo()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ledger: token info not initialized")
		}
		return info.Minter, nil

	case q.Allowance != nil:
		grant, _, err := store.Allowance(q.Allowance.Owner, q.Allowance.Spender)
		if err != nil {
			return nil, err
		}
		return token.AllowanceResponse{Allowance: grant.Amount, Expires: grant.Expires}, nil

	case q.AllAllowances != nil:
		grants, err := store.AllowancesByOwner(
			q.AllAllowances.Owner, q.AllAllowances.StartAfter, clampQueryLimit(q.AllAllowances.Limit))
		if err != nil {
			return nil, err
		}
		entries := make([]token.AllowanceEntry, len(grants))
		for i, g := range grants {
			entries[i] = token.AllowanceEntry{Spender: g.Spender, Allowance: g.Amount, Expires: g.Expires}
		}
		return token.AllAllowancesResponse{Allowances: entries}, nil

	case q.AllSpenderAllowances != nil:
		grants, err := store.AllowancesBySpender(
			q.AllSpenderAllowances.Spender, q.AllSpenderAllowances.StartAfter, clampQueryLimit(q.AllSpenderAllowances.Limit))
		if err != nil {
			return nil, err
		}
		entries := make([]token.SpenderAllowanceEntry, len(grants))
		for i, g := range grants {
			entries[i] = token.SpenderAllowanceEntry{Owner: g.Owner, Allowance: g.Amount, Expires: g.Expires}
		}
		return token.AllSpenderAllowancesResponse{Allowances: entries}, nil

	case q.AllAccounts != nil:
		accounts, err := store.Accounts(q.AllAccounts.StartAfter, clampQueryLimit(q.AllAccounts.Limit))
		if err != nil {
			return nil, err
		}
		return token.AllAccountsResponse{Accounts: accounts}, nil

	case q.MarketingInfo != nil:
		// Absent answers the zero block, not an error.
		marketing, _, err := store.Marketing()
		if err != nil {
			return nil, err
		}
		return marketing, nil

	case q.DownloadLogo != nil:
		return downloadLogo(store)

	case q.TaxMap != nil:
		return loadTaxMap(store)
	}
	return nil, token.Errorf(token.KindInvalidMsg, "empty query")
}

// downloadLogo serves embedded logo bytes with their MIME type. Logos
// stored as URLs have no content here, callers follow the URL from
// marketing info instead.
func downloadLogo(store Store) (token.DownloadLogoResponse, error) {
	logo, ok, err := store.Logo()
	if err != nil {
		return token.DownloadLogoResponse{}, err
	}
	if !ok {
		return token.DownloadLogoResponse{}, fmt.Errorf("ledger: no logo is stored")
	}
	switch {
	case logo.PNG != nil:
		return token.DownloadLogoResponse{MimeType: "image/png", Data: logo.PNG}, nil
	case logo.SVG != nil:
		return token.DownloadLogoResponse{MimeType: "image/svg+xml", Data: logo.SVG}, nil
	}
	return token.DownloadLogoResponse{}, fmt.Errorf("ledger: logo is an external URL, nothing to download")
}

func clampQueryLimit(limit uint32) int {
	if limit == 0 {
		return defaultQueryLimit
	}
	return min(int(limit), maxQueryLimit)
}
