// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tax

import (
	"fmt"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
)

// Rule is the tax policy for one transfer category: a source condition
// evaluated against the payer, a destination condition evaluated
// against the recipient, and the proceeds account receiving the
// diverted tax.
type Rule struct {
	Src      Condition    `json:"src_cond"`
	Dst      Condition    `json:"dst_cond"`
	Proceeds addr.Address `json:"proceeds"`
}

// Applies reports whether a transfer from payer to recipient is taxed
// under the rule. The proceeds account is exempt as recipient, which
// is what lets the escrowed tax reach it without being taxed again.
func (r Rule) Applies(resolver ClassResolver, payer, recipient addr.Address) bool {
	return r.Src.Taxed(resolver, payer) &&
		r.Dst.Taxed(resolver, recipient) &&
		!r.Proceeds.Equal(recipient)
}

// Deduct splits gross into the net amount for the recipient and the
// tax diverted to proceeds. Untaxed transfers pass through whole. The
// rate is read from the source condition; validation guarantees the
// destination condition carries the same one.
func (r Rule) Deduct(resolver ClassResolver, payer, recipient addr.Address, gross amount.Amount) (net, tax amount.Amount) {
	if !r.Applies(resolver, payer, recipient) {
		return gross, amount.Zero()
	}
	return amount.SplitTax(gross, r.Src.RateFor(resolver, payer))
}

// Validate checks both conditions and, when both carry a rate, that
// the rates are equal. Deduct reads only the source rate, so unequal
// rates would silently apply the wrong one; rejecting the map at write
// time keeps the pair honest.
func (r Rule) Validate() error {
	if err := r.Src.Validate(); err != nil {
		return fmt.Errorf("src_cond: %w", err)
	}
	if err := r.Dst.Validate(); err != nil {
		return fmt.Errorf("dst_cond: %w", err)
	}
	srcRate, srcBearing := r.Src.fixedRate()
	dstRate, dstBearing := r.Dst.fixedRate()
	if srcBearing && dstBearing && !srcRate.Equal(dstRate) {
		return fmt.Errorf("src and dst rates differ: %s vs %s", srcRate, dstRate)
	}
	return nil
}

// Category addresses one of the four per-operation rules in a Map.
type Category uint8

const (
	OnTransfer Category = iota
	OnTransferFrom
	OnSend
	OnSendFrom
)

func (c Category) String() string {
	switch c {
	case OnTransfer:
		return "on_transfer"
	case OnTransferFrom:
		return "on_transfer_from"
	case OnSend:
		return "on_send"
	case OnSendFrom:
		return "on_send_from"
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Map is the complete tax policy: one rule per transfer category plus
// the admin account allowed to replace it. A zero Admin means the
// policy is frozen.
type Map struct {
	OnTransfer     Rule         `json:"on_transfer"`
	OnTransferFrom Rule         `json:"on_transfer_from"`
	OnSend         Rule         `json:"on_send"`
	OnSendFrom     Rule         `json:"on_send_from"`
	Admin          addr.Address `json:"admin"`
}

// DefaultMap returns the policy taxing nothing, with no admin.
func DefaultMap() Map {
	return Map{
		OnTransfer:     Rule{Src: NeverTaxed(), Dst: NeverTaxed()},
		OnTransferFrom: Rule{Src: NeverTaxed(), Dst: NeverTaxed()},
		OnSend:         Rule{Src: NeverTaxed(), Dst: NeverTaxed()},
		OnSendFrom:     Rule{Src: NeverTaxed(), Dst: NeverTaxed()},
	}
}

// Rule returns the rule for category. Panics on an unknown category;
// callers pass the named constants.
func (m Map) Rule(category Category) Rule {
	switch category {
	case OnTransfer:
		return m.OnTransfer
	case OnTransferFrom:
		return m.OnTransferFrom
	case OnSend:
		return m.OnSend
	case OnSendFrom:
		return m.OnSendFrom
	}
	panic("tax: unknown category " + category.String())
}

// Validate checks all four rules. An invalid map is rejected before
// persisting; the prior map stays in effect.
func (m Map) Validate() error {
	for _, entry := range []struct {
		category Category
		rule     Rule
	}{
		{OnTransfer, m.OnTransfer},
		{OnTransferFrom, m.OnTransferFrom},
		{OnSend, m.OnSend},
		{OnSendFrom, m.OnSendFrom},
	} {
		if err := entry.rule.Validate(); err != nil {
			return fmt.Errorf("%s: %w", entry.category, err)
		}
	}
	return nil
}
