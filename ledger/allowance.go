// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func (e *Engine) increaseAllowance(store Store, env Env, caller addr.Address, m *token.IncreaseAllowanceMsg) (*Result, error) {
	if m.Spender.Equal(caller) {
		return nil, token.Errorf(token.KindCannotSetOwnAccount, "cannot grant an allowance to your own account")
	}

	grant, _, err := store.Allowance(caller, m.Spender)
	if err != nil {
		return nil, err
	}
	if m.Expires != nil {
		if m.Expires.Expired(env.Height, env.Time) {
			return nil, token.Errorf(token.KindInvalidExpiration, "expiration %s has already passed", m.Expires)
		}
		grant.Expires = *m.Expires
	}
	sum, err := grant.Amount.Add(m.Amount)
	if err != nil {
		return nil, token.Errorf(token.KindOverflow, "allowance overflow for account %s", m.Spender)
	}
	grant.Amount = sum

	if err := store.SetAllowance(caller, m.Spender, grant); err != nil {
		return nil, err
	}
	return &Result{Attributes: []Attribute{
		{"action", "increase_allowance"},
		{"owner", caller.String()},
		{"spender", m.Spender.String()},
		{"amount", m.Amount.String()},
	}}, nil
}

func (e *Engine) decreaseAllowance(store Store, env Env, caller addr.Address, m *token.DecreaseAllowanceMsg) (*Result, error) {
	if m.Spender.Equal(caller) {
		return nil, token.Errorf(token.KindCannotSetOwnAccount, "cannot change an allowance on your own account")
	}

	grant, _, err := store.Allowance(caller, m.Spender)
	if err != nil {
		return nil, err
	}
	if m.Amount.LessThan(grant.Amount) {
		rest, err := grant.Amount.Sub(m.Amount)
		if err != nil {
			return nil, err
		}
		grant.Amount = rest
		if m.Expires != nil {
			if m.Expires.Expired(env.Height, env.Time) {
				return nil, token.Errorf(token.KindInvalidExpiration, "expiration %s has already passed", m.Expires)
			}
			grant.Expires = *m.Expires
		}
		if err := store.SetAllowance(caller, m.Spender, grant); err != nil {
			return nil, err
		}
	} else {
		// Decreasing past zero is legal: the grant is simply removed,
		// absent or not.
		if err := store.DeleteAllowance(caller, m.Spender); err != nil {
			return nil, err
		}
	}

	return &Result{Attributes: []Attribute{
		{"action", "decrease_allowance"},
		{"owner", caller.String()},
		{"spender", m.Spender.String()},
		{"amount", m.Amount.String()},
	}}, nil
}

// deductAllowance spends part of the owner→spender grant on the
// spender's behalf. Absent and expired grants fail before any balance
// moves. A grant that reaches exactly zero stays on the books: spent
// in full is distinct from never granted.
func deductAllowance(store Store, env Env, owner, spender addr.Address, value amount.Amount) error {
	grant, ok, err := store.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if !ok {
		return token.Errorf(token.KindNoAllowance, "account %s has no allowance from %s", spender, owner)
	}
	if grant.Expires.Expired(env.Height, env.Time) {
		return token.Errorf(token.KindExpired, "allowance for %s expired at %s", spender, grant.Expires)
	}
	rest, err := grant.Amount.Sub(value)
	if err != nil {
		return token.Errorf(token.KindOverflow, "allowance %s short of %s", grant.Amount, value)
	}
	grant.Amount = rest
	return store.SetAllowance(owner, spender, grant)
}
