// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger operation failure. Kinds are stable wire
// strings: the daemon includes them in error responses and clients may
// match on them.
type Kind string

// The closed set of failure kinds.
const (
	// KindUnauthorized: the caller does not hold the role the
	// operation requires (tax admin, minter, marketing admin).
	KindUnauthorized Kind = "unauthorized"

	// KindCannotSetOwnAccount: an allowance operation named the owner
	// itself as spender.
	KindCannotSetOwnAccount Kind = "cannot_set_own_account"

	// KindInvalidExpiration: an allowance expiration was already
	// expired at write time.
	KindInvalidExpiration Kind = "invalid_expiration"

	// KindExpired: a delegated operation tried to spend an expired
	// allowance.
	KindExpired Kind = "expired"

	// KindNoAllowance: a delegated operation found no allowance entry
	// for the owner/spender pair.
	KindNoAllowance Kind = "no_allowance"

	// KindInsufficientFunds: a balance or allowance was smaller than
	// the amount being deducted.
	KindInsufficientFunds Kind = "insufficient_funds"

	// KindOverflow: 128-bit arithmetic overflowed (supply, balance, or
	// allowance accumulation).
	KindOverflow Kind = "overflow"

	// KindCapExceeded: a mint would push total supply above the
	// configured cap.
	KindCapExceeded Kind = "cap_exceeded"

	// KindInvalidTaxMap: a proposed tax map failed validation. The
	// detail carries the specific rule and condition that failed.
	KindInvalidTaxMap Kind = "invalid_tax_map"

	// KindInvalidAddress: an address field failed boundary validation.
	KindInvalidAddress Kind = "invalid_address"

	// KindInvalidLogo: an uploaded logo failed verification (bad magic
	// bytes, malformed XML preamble, or over the embedded size cap).
	KindInvalidLogo Kind = "invalid_logo"

	// KindInvalidMsg: a request body was not a well-formed message
	// (zero or multiple variants set, or a missing required field).
	KindInvalidMsg Kind = "invalid_msg"

	// KindUnknownOrigin: migration could not classify the stored
	// version record.
	KindUnknownOrigin Kind = "unknown_origin"
)

// Error is a classified ledger failure. Callers use errors.As to
// extract the structured information:
//
//	var tokenErr *token.Error
//	if errors.As(err, &tokenErr) {
//	    if tokenErr.Kind == token.KindUnauthorized { ... }
//	}
//
// or the IsKind shorthand for a single-kind check.
type Error struct {
	// Kind is the failure classification.
	Kind Kind
	// Detail is the human-readable description.
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("token: %s: %s", e.Kind, e.Detail)
}

// Errorf constructs an *Error with a formatted detail message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsKind checks whether err is a *Error with the given kind.
func IsKind(err error, kind Kind) bool {
	var tokenErr *Error
	if errors.As(err, &tokenErr) {
		return tokenErr.Kind == kind
	}
	return false
}
