// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package genesis loads and applies the ledger's initial state.
// Genesis documents are authored as JSONC (JSON extended with
// comments and trailing commas) and keep the field names of the
// original instantiate message, so a deployment's instantiate JSON is
// a valid genesis document:
//
//	{
//	    "name": "Cash Token",
//	    "symbol": "CASH",
//	    "decimals": 6,
//	    "initial_balances": [
//	        {"address": "alice", "amount": "12340000"},
//	    ],
//	    // optional: mint, marketing, tax_map
//	}
//
// The typical flow is ReadFile, then Apply inside one store
// transaction. A missing tax_map means the default policy: tax
// nothing, no admin, frozen forever.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// Document is a parsed genesis document.
type Document struct {
	Name     string    `json:"name"`
	Symbol   string    `json:"symbol"`
	Decimals uint8     `json:"decimals"`
	Balances []Balance `json:"initial_balances"`

	// Minter, when present, may mint beyond the initial supply up to
	// its cap.
	Minter *token.Minter `json:"mint,omitempty"`

	// Marketing, when present, seeds the marketing block and
	// optionally the logo content.
	Marketing *MarketingInit `json:"marketing,omitempty"`

	// TaxMap, when present, is the tax policy from block one. Absent
	// means the default map.
	TaxMap *tax.Map `json:"tax_map,omitempty"`
}

// Balance is one initial account balance.
type Balance struct {
	Address addr.Address  `json:"address"`
	Amount  amount.Amount `json:"amount"`
}

// MarketingInit is the marketing block of a genesis document. Unlike
// the stored marketing record it carries full logo content, not just
// the indicator.
type MarketingInit struct {
	Project     string       `json:"project,omitempty"`
	Description string       `json:"description,omitempty"`
	Admin       addr.Address `json:"marketing,omitzero"`
	Logo        *token.Logo  `json:"logo,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Document. Parse does not validate;
// call Validate or Apply for that.
func Parse(data []byte) (*Document, error) {
	stripped := jsonc.ToJSON(data)

	var doc Document
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("parsing genesis: %w", err)
	}
	return &doc, nil
}

// ReadFile reads a JSONC genesis file from disk and parses it.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// TotalSupply sums the initial balances.
func (d *Document) TotalSupply() (amount.Amount, error) {
	total := amount.Zero()
	for _, b := range d.Balances {
		sum, err := total.Add(b.Amount)
		if err != nil {
			return amount.Zero(), fmt.Errorf("initial balances overflow at %s", b.Address)
		}
		total = sum
	}
	return total, nil
}

// Validate checks the document: token metadata shape, no duplicate or
// empty balance addresses, cap covering the initial supply, and a
// well-formed tax map and logo where present.
func (d *Document) Validate() error {
	info := token.Info{Name: d.Name, Symbol: d.Symbol, Decimals: d.Decimals}
	if err := info.Validate(); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	seen := make(map[addr.Address]bool, len(d.Balances))
	for _, b := range d.Balances {
		if b.Address.IsZero() {
			return fmt.Errorf("genesis: initial balance without an address")
		}
		if seen[b.Address] {
			return fmt.Errorf("genesis: duplicate account %s in initial balances", b.Address)
		}
		seen[b.Address] = true
	}

	total, err := d.TotalSupply()
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	if d.Minter != nil {
		if d.Minter.Address.IsZero() {
			return fmt.Errorf("genesis: mint block without a minter address")
		}
		if limit := d.Minter.Cap; limit != nil && limit.LessThan(total) {
			return fmt.Errorf("genesis: initial supply %s greater than cap %s", total, limit)
		}
	}

	if d.Marketing != nil && d.Marketing.Logo != nil {
		if err := d.Marketing.Logo.Validate(); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
	}
	if d.TaxMap != nil {
		if err := d.TaxMap.Validate(); err != nil {
			return fmt.Errorf("genesis: tax map: %w", err)
		}
	}
	return nil
}

// Apply writes the document into an empty store. The caller provides
// the transaction boundary; on error the transaction is expected to
// discard any partial writes.
func (d *Document) Apply(store ledger.Store) error {
	if _, ok, err := store.TokenInfo(); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("genesis: state is already initialized")
	}

	// The version stamp leads: it is what a later migration reads to
	// classify this state.
	if err := store.SetVersion(ledger.CurrentVersion); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	total := amount.Zero()
	for _, b := range d.Balances {
		if err := store.SetBalance(b.Address, b.Amount); err != nil {
			return err
		}
		sum, err := total.Add(b.Amount)
		if err != nil {
			return fmt.Errorf("genesis: initial balances overflow at %s", b.Address)
		}
		total = sum
	}

	info := token.Info{
		Name:        d.Name,
		Symbol:      d.Symbol,
		Decimals:    d.Decimals,
		TotalSupply: total,
		Minter:      d.Minter,
	}
	if err := store.SetTokenInfo(info); err != nil {
		return err
	}

	if d.Marketing != nil {
		marketing := token.Marketing{
			Project:     d.Marketing.Project,
			Description: d.Marketing.Description,
			Admin:       d.Marketing.Admin,
		}
		if logo := d.Marketing.Logo; logo != nil {
			if err := store.SetLogo(*logo); err != nil {
				return err
			}
			marketing.Logo = logo.Indicator()
		}
		if err := store.SetMarketing(marketing); err != nil {
			return err
		}
	}

	taxMap := tax.DefaultMap()
	if d.TaxMap != nil {
		taxMap = *d.TaxMap
	}
	return store.SetTaxMap(taxMap)
}
