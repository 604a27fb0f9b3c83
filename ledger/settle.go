// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// settlement carries one transfer-style operation through the shared
// escrow-then-forward path. The four variants differ only in their
// pre-steps (allowance deduction, payload delivery); the balance
// movement and tax handling are identical.
type settlement struct {
	action    string
	category  tax.Category
	caller    addr.Address
	payer     addr.Address
	recipient addr.Address
	value     amount.Amount

	// delegated deducts the payer→caller allowance before balances
	// move.
	delegated bool

	// notify delivers a receive notice carrying payload to the
	// recipient. Send variants set it even for an empty payload.
	notify  bool
	payload []byte
}

func (e *Engine) transfer(store Store, env Env, caller addr.Address, m *token.TransferMsg) (*Result, error) {
	return e.settle(store, env, settlement{
		action:    "transfer",
		category:  tax.OnTransfer,
		caller:    caller,
		payer:     caller,
		recipient: m.Recipient,
		value:     m.Amount,
	})
}

func (e *Engine) send(store Store, env Env, caller addr.Address, m *token.SendMsg) (*Result, error) {
	return e.settle(store, env, settlement{
		action:    "send",
		category:  tax.OnSend,
		caller:    caller,
		payer:     caller,
		recipient: m.Contract,
		value:     m.Amount,
		notify:    true,
		payload:   m.Payload,
	})
}

func (e *Engine) transferFrom(store Store, env Env, caller addr.Address, m *token.TransferFromMsg) (*Result, error) {
	return e.settle(store, env, settlement{
		action:    "transfer_from",
		category:  tax.OnTransferFrom,
		caller:    caller,
		payer:     m.Owner,
		recipient: m.Recipient,
		value:     m.Amount,
		delegated: true,
	})
}

func (e *Engine) sendFrom(store Store, env Env, caller addr.Address, m *token.SendFromMsg) (*Result, error) {
	return e.settle(store, env, settlement{
		action:    "send_from",
		category:  tax.OnSendFrom,
		caller:    caller,
		payer:     m.Owner,
		recipient: m.Contract,
		value:     m.Amount,
		delegated: true,
		notify:    true,
		payload:   m.Payload,
	})
}

// settle is the shared settlement path. Steps, in order: hooks, then
// allowance deduction for delegated variants, then the tax split, then
// the three balance moves (debit payer in full, credit self with the
// tax, credit recipient with the net), then the deferred actions. Any
// failure aborts; the surrounding transaction discards partial writes.
//
// The tax is not paid out here. It sits in the ledger's own account
// and a self-addressed transfer action forwards it to the proceeds
// account, where the rule's proceeds exemption keeps it from being
// taxed again.
func (e *Engine) settle(store Store, env Env, s settlement) (*Result, error) {
	for _, hook := range e.hooks {
		if err := hook(store, s.payer, s.recipient, s.value); err != nil {
			return nil, err
		}
	}

	if s.delegated {
		if err := deductAllowance(store, env, s.payer, s.caller, s.value); err != nil {
			return nil, err
		}
	}

	taxMap, err := loadTaxMap(store)
	if err != nil {
		return nil, err
	}
	rule := taxMap.Rule(s.category)
	net, taxed := rule.Deduct(e.classes, s.payer, s.recipient, s.value)

	if err := debit(store, s.payer, s.value); err != nil {
		return nil, err
	}
	if err := credit(store, e.self, taxed); err != nil {
		return nil, err
	}
	if err := credit(store, s.recipient, net); err != nil {
		return nil, err
	}

	attributes := []Attribute{
		{"action", s.action},
		{"from", s.payer.String()},
		{"to", s.recipient.String()},
	}
	if s.delegated {
		attributes = append(attributes, Attribute{"by", s.caller.String()})
	}
	attributes = append(attributes, Attribute{"amount", s.value.String()})

	var actions []Action
	if s.notify {
		actions = append(actions, Deliver{
			Contract: s.recipient,
			Notice: token.ReceiveNotice{
				Sender:  s.caller,
				Amount:  net,
				Payload: s.payload,
			},
		})
	}
	if !taxed.IsZero() {
		attributes = append(attributes,
			Attribute{"net", net.String()},
			Attribute{"tax", taxed.String()},
			Attribute{"proceeds", rule.Proceeds.String()},
		)
		actions = append(actions, SelfInvoke{
			Msg: token.Msg{Transfer: &token.TransferMsg{
				Recipient: rule.Proceeds,
				Amount:    taxed,
			}},
		})
		e.logger.Debug("tax withheld",
			"category", s.category.String(),
			"payer", s.payer.String(),
			"tax", taxed.String(),
			"proceeds", rule.Proceeds.String(),
		)
	}

	return &Result{Attributes: attributes, Actions: actions}, nil
}
