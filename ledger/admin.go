// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func (e *Engine) setTaxMap(store Store, caller addr.Address, m *token.SetTaxMapMsg) (*Result, error) {
	current, err := loadTaxMap(store)
	if err != nil {
		return nil, err
	}
	if !current.Admin.Equal(caller) {
		return nil, token.Errorf(token.KindUnauthorized, "account %s is not the tax admin", caller)
	}

	var next tax.Map
	if m.TaxMap == nil {
		// Resetting to the default keeps the current admin, so
		// dropping all taxes does not lock the policy.
		next = tax.DefaultMap()
		next.Admin = current.Admin
	} else {
		// A supplied map is taken whole, admin included. Handing the
		// role to another account is one call, not two.
		next = *m.TaxMap
	}
	if err := next.Validate(); err != nil {
		return nil, token.Errorf(token.KindInvalidTaxMap, "%v", err)
	}
	if err := store.SetTaxMap(next); err != nil {
		return nil, err
	}

	return &Result{Attributes: []Attribute{{"admin", next.Admin.String()}}}, nil
}

func (e *Engine) setTaxAdmin(store Store, caller addr.Address, m *token.SetTaxAdminMsg) (*Result, error) {
	current, err := loadTaxMap(store)
	if err != nil {
		return nil, err
	}
	if !current.Admin.Equal(caller) {
		return nil, token.Errorf(token.KindUnauthorized, "account %s is not the tax admin", caller)
	}

	if m.TaxAdmin == nil {
		// Clearing the admin renounces tax control permanently. The
		// zero address never matches a caller again.
		current.Admin = addr.Address{}
	} else {
		current.Admin = *m.TaxAdmin
	}
	if err := store.SetTaxMap(current); err != nil {
		return nil, err
	}

	return &Result{Attributes: []Attribute{{"admin", current.Admin.String()}}}, nil
}
