// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
)

// Query is a read request. Like Msg, exactly one variant is set and
// the wire form is a single-key snake_case object:
//
//	{"balance": {"address": "alice"}}
//	{"all_accounts": {"start_after": "bob", "limit": 20}}
type Query struct {
	Balance              *BalanceQuery              `json:"balance,omitempty"`
	TokenInfo            *TokenInfoQuery            `json:"token_info,omitempty"`
	Minter               *MinterQuery               `json:"minter,omitempty"`
	Allowance            *AllowanceQuery            `json:"allowance,omitempty"`
	AllAllowances        *AllAllowancesQuery        `json:"all_allowances,omitempty"`
	AllSpenderAllowances *AllSpenderAllowancesQuery `json:"all_spender_allowances,omitempty"`
	AllAccounts          *AllAccountsQuery          `json:"all_accounts,omitempty"`
	MarketingInfo        *MarketingInfoQuery        `json:"marketing_info,omitempty"`
	DownloadLogo         *DownloadLogoQuery         `json:"download_logo,omitempty"`
	TaxMap               *TaxMapQuery               `json:"tax_map,omitempty"`
}

// BalanceQuery asks for one account's balance. Unknown accounts answer
// zero.
type BalanceQuery struct {
	Address addr.Address `json:"address"`
}

// TokenInfoQuery asks for name, symbol, decimals, and total supply.
type TokenInfoQuery struct{}

// MinterQuery asks for the mint role holder and cap, if any.
type MinterQuery struct{}

// AllowanceQuery asks for one owner/spender grant. Absent grants
// answer zero with no expiration.
type AllowanceQuery struct {
	Owner   addr.Address `json:"owner"`
	Spender addr.Address `json:"spender"`
}

// AllAllowancesQuery pages through every grant issued by one owner,
// ordered by spender.
type AllAllowancesQuery struct {
	Owner      addr.Address `json:"owner"`
	StartAfter addr.Address `json:"start_after,omitzero"`
	Limit      uint32       `json:"limit,omitempty"`
}

// AllSpenderAllowancesQuery pages through every grant held by one
// spender, ordered by owner. Served from the mirror index.
type AllSpenderAllowancesQuery struct {
	Spender    addr.Address `json:"spender"`
	StartAfter addr.Address `json:"start_after,omitzero"`
	Limit      uint32       `json:"limit,omitempty"`
}

// AllAccountsQuery pages through every account with a balance entry,
// in address order.
type AllAccountsQuery struct {
	StartAfter addr.Address `json:"start_after,omitzero"`
	Limit      uint32       `json:"limit,omitempty"`
}

// MarketingInfoQuery asks for the marketing block. Answers the zero
// Marketing when none is stored.
type MarketingInfoQuery struct{}

// DownloadLogoQuery asks for embedded logo content.
type DownloadLogoQuery struct{}

// TaxMapQuery asks for the full tax map including the admin.
type TaxMapQuery struct{}

// Name returns the variant name for logs. Empty when no variant is
// set.
func (q *Query) Name() string {
	switch {
	case q.Balance != nil:
		return "balance"
	case q.TokenInfo != nil:
		return "token_info"
	case q.Minter != nil:
		return "minter"
	case q.Allowance != nil:
		return "allowance"
	case q.AllAllowances != nil:
		return "all_allowances"
	case q.AllSpenderAllowances != nil:
		return "all_spender_allowances"
	case q.AllAccounts != nil:
		return "all_accounts"
	case q.MarketingInfo != nil:
		return "marketing_info"
	case q.DownloadLogo != nil:
		return "download_logo"
	case q.TaxMap != nil:
		return "tax_map"
	}
	return ""
}

// Validate checks that exactly one variant is set and required
// addresses are present.
func (q *Query) Validate() error {
	count := 0
	for _, set := range []bool{
		q.Balance != nil, q.TokenInfo != nil, q.Minter != nil,
		q.Allowance != nil, q.AllAllowances != nil, q.AllSpenderAllowances != nil,
		q.AllAccounts != nil, q.MarketingInfo != nil, q.DownloadLogo != nil,
		q.TaxMap != nil,
	} {
		if set {
			count++
		}
	}
	if count != 1 {
		return Errorf(KindInvalidMsg, "want exactly one query variant, got %d", count)
	}

	switch {
	case q.Balance != nil:
		return requireAddrs(field{"address", q.Balance.Address})
	case q.Allowance != nil:
		return requireAddrs(
			field{"owner", q.Allowance.Owner},
			field{"spender", q.Allowance.Spender},
		)
	case q.AllAllowances != nil:
		return requireAddrs(field{"owner", q.AllAllowances.Owner})
	case q.AllSpenderAllowances != nil:
		return requireAddrs(field{"spender", q.AllSpenderAllowances.Spender})
	}
	return nil
}

// BalanceResponse answers BalanceQuery.
type BalanceResponse struct {
	Balance amount.Amount `json:"balance"`
}

// AllowanceResponse answers AllowanceQuery.
type AllowanceResponse struct {
	Allowance amount.Amount `json:"allowance"`
	Expires   Expiration    `json:"expires"`
}

// AllowanceEntry is one grant in an owner-keyed listing.
type AllowanceEntry struct {
	Spender   addr.Address  `json:"spender"`
	Allowance amount.Amount `json:"allowance"`
	Expires   Expiration    `json:"expires"`
}

// SpenderAllowanceEntry is one grant in a spender-keyed listing.
type SpenderAllowanceEntry struct {
	Owner     addr.Address  `json:"owner"`
	Allowance amount.Amount `json:"allowance"`
	Expires   Expiration    `json:"expires"`
}

// AllAllowancesResponse answers AllAllowancesQuery.
type AllAllowancesResponse struct {
	Allowances []AllowanceEntry `json:"allowances"`
}

// AllSpenderAllowancesResponse answers AllSpenderAllowancesQuery.
type AllSpenderAllowancesResponse struct {
	Allowances []SpenderAllowanceEntry `json:"allowances"`
}

// AllAccountsResponse answers AllAccountsQuery.
type AllAccountsResponse struct {
	Accounts []addr.Address `json:"accounts"`
}

// DownloadLogoResponse answers DownloadLogoQuery for embedded logos.
type DownloadLogoResponse struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}
