// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func (e *Engine) mint(store Store, caller addr.Address, m *token.MintMsg) (*Result, error) {
	info, ok, err := store.TokenInfo()
	if err != nil {
		return nil, err
	}
	if !ok || info.Minter == nil {
		return nil, token.Errorf(token.KindUnauthorized, "no minter is configured")
	}
	if !info.Minter.Address.Equal(caller) {
		return nil, token.Errorf(token.KindUnauthorized, "account %s is not the minter", caller)
	}

	total, err := info.TotalSupply.Add(m.Amount)
	if err != nil {
		return nil, token.Errorf(token.KindOverflow, "total supply overflow")
	}
	if limit := info.Minter.Cap; limit != nil && limit.LessThan(total) {
		return nil, token.Errorf(token.KindCapExceeded, "supply %s would exceed the cap of %s", total, limit)
	}
	info.TotalSupply = total
	if err := store.SetTokenInfo(info); err != nil {
		return nil, err
	}
	if err := credit(store, m.Recipient, m.Amount); err != nil {
		return nil, err
	}

	return &Result{Attributes: []Attribute{
		{"action", "mint"},
		{"to", m.Recipient.String()},
		{"amount", m.Amount.String()},
	}}, nil
}

// burn needs no authorization: anyone may destroy their own tokens.
// Burns are never taxed.
func (e *Engine) burn(store Store, caller addr.Address, m *token.BurnMsg) (*Result, error) {
	if err := debit(store, caller, m.Amount); err != nil {
		return nil, err
	}
	if err := reduceSupply(store, m.Amount); err != nil {
		return nil, err
	}
	return &Result{Attributes: []Attribute{
		{"action", "burn"},
		{"from", caller.String()},
		{"amount", m.Amount.String()},
	}}, nil
}

func (e *Engine) burnFrom(store Store, env Env, caller addr.Address, m *token.BurnFromMsg) (*Result, error) {
	if err := deductAllowance(store, env, m.Owner, caller, m.Amount); err != nil {
		return nil, err
	}
	if err := debit(store, m.Owner, m.Amount); err != nil {
		return nil, err
	}
	if err := reduceSupply(store, m.Amount); err != nil {
		return nil, err
	}
	return &Result{Attributes: []Attribute{
		{"action", "burn_from"},
		{"from", m.Owner.String()},
		{"by", caller.String()},
		{"amount", m.Amount.String()},
	}}, nil
}

func (e *Engine) updateMinter(store Store, caller addr.Address, m *token.UpdateMinterMsg) (*Result, error) {
	info, ok, err := store.TokenInfo()
	if err != nil {
		return nil, err
	}
	if !ok || info.Minter == nil {
		return nil, token.Errorf(token.KindUnauthorized, "no minter is configured")
	}
	if !info.Minter.Address.Equal(caller) {
		return nil, token.Errorf(token.KindUnauthorized, "account %s is not the minter", caller)
	}

	// The cap survives a handover: a new minter inherits the old
	// ceiling, and a removed minter ends minting for good.
	newMinter := "None"
	if m.NewMinter == nil {
		info.Minter = nil
	} else {
		info.Minter = &token.Minter{Address: *m.NewMinter, Cap: info.Minter.Cap}
		newMinter = m.NewMinter.String()
	}
	if err := store.SetTokenInfo(info); err != nil {
		return nil, err
	}

	return &Result{Attributes: []Attribute{
		{"action", "update_minter"},
		{"new_minter", newMinter},
	}}, nil
}

func reduceSupply(store Store, value amount.Amount) error {
	info, ok, err := store.TokenInfo()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ledger: token info not initialized")
	}
	total, err := info.TotalSupply.Sub(value)
	if err != nil {
		return token.Errorf(token.KindOverflow, "total supply %s short of %s", info.TotalSupply, value)
	}
	info.TotalSupply = total
	return store.SetTokenInfo(info)
}
