// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tax

import (
	"fmt"
	"slices"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
)

// ClassResolver reports the contract class of an account, the external
// read behind class-gated conditions. Accounts that are not contracts
// report false. The host's handler registry implements this; tests use
// a map.
type ClassResolver interface {
	ContractClass(account addr.Address) (uint64, bool)
}

// Condition decides whether one side of a transfer attracts tax, and
// at what rate. Exactly one variant is set. The wire form keeps the
// variant keys of the deployed contract so existing tax maps load
// unchanged:
//
//	{"Never": {}}
//	{"Always": {"tax_rate": "0.1"}}
//	{"ContractCode": {"tax_rate": "0.1", "code_ids": [1, 7]}}
type Condition struct {
	Never  *NeverCondition  `json:"Never,omitempty"`
	Always *AlwaysCondition `json:"Always,omitempty"`
	Class  *ClassCondition  `json:"ContractCode,omitempty"`
}

// NeverCondition never taxes.
type NeverCondition struct{}

// AlwaysCondition taxes every account at a fixed rate.
type AlwaysCondition struct {
	Rate amount.Rate `json:"tax_rate"`
}

// ClassCondition taxes only accounts that resolve to a contract whose
// class is in the allow-list.
type ClassCondition struct {
	Classes []uint64    `json:"code_ids"`
	Rate    amount.Rate `json:"tax_rate"`
}

// NeverTaxed returns the condition that never taxes.
func NeverTaxed() Condition {
	return Condition{Never: &NeverCondition{}}
}

// AlwaysTaxed returns the condition taxing every account at rate.
func AlwaysTaxed(rate amount.Rate) Condition {
	return Condition{Always: &AlwaysCondition{Rate: rate}}
}

// ClassTaxed returns the condition taxing contracts of the listed
// classes at rate.
func ClassTaxed(rate amount.Rate, classes ...uint64) Condition {
	return Condition{Class: &ClassCondition{Classes: classes, Rate: rate}}
}

// Taxed reports whether account falls under the condition. For class
// conditions a failed resolution (not a contract, or nil resolver)
// means not taxed.
func (c Condition) Taxed(resolver ClassResolver, account addr.Address) bool {
	switch {
	case c.Never != nil:
		return false
	case c.Always != nil:
		return true
	case c.Class != nil:
		if resolver == nil {
			return false
		}
		class, ok := resolver.ContractClass(account)
		return ok && slices.Contains(c.Class.Classes, class)
	}
	return false
}

// RateFor returns the rate the condition applies to account: zero
// whenever Taxed would report false.
func (c Condition) RateFor(resolver ClassResolver, account addr.Address) amount.Rate {
	switch {
	case c.Always != nil:
		return c.Always.Rate
	case c.Class != nil:
		if c.Taxed(resolver, account) {
			return c.Class.Rate
		}
	}
	return amount.ZeroRate()
}

// fixedRate returns the configured rate and whether the condition
// carries one at all. Never conditions carry none.
func (c Condition) fixedRate() (amount.Rate, bool) {
	switch {
	case c.Always != nil:
		return c.Always.Rate, true
	case c.Class != nil:
		return c.Class.Rate, true
	}
	return amount.ZeroRate(), false
}

// Validate checks that exactly one variant is set and its rate is
// within [0, 1].
func (c Condition) Validate() error {
	count := 0
	if c.Never != nil {
		count++
	}
	if c.Always != nil {
		count++
	}
	if c.Class != nil {
		count++
	}
	if count != 1 {
		return fmt.Errorf("want exactly one condition variant, got %d", count)
	}
	if rate, ok := c.fixedRate(); ok && !rate.Valid() {
		return fmt.Errorf("rate %s outside [0, 1]", rate)
	}
	return nil
}
