// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package addr provides the validated account address type used by the
// ledger. An address names a balance-holding account: an end user, an
// external contract, the ledger's own escrow account, or a proceeds
// account. Addresses arrive from the outside world (genesis documents,
// socket requests, CLI arguments) and are validated once at the
// boundary; everything past the boundary works with the typed form.
//
// Address implements encoding.TextMarshaler and TextUnmarshaler, so it
// can sit directly in JSON and CBOR structs. A zero-value Address
// marshals as the empty string — used where "no account" is a legal
// state (a cleared tax administrator, an absent minter).
package addr

import "fmt"

// maxAddressLength bounds address storage keys. 90 covers bech32-style
// identifiers with room to spare.
const maxAddressLength = 90

// allowedChars is the set of bytes permitted in an address: a-z, 0-9,
// and the symbols . _ - /.
var allowedChars [256]bool

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		allowedChars[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		allowedChars[c] = true
	}
	allowedChars['.'] = true
	allowedChars['_'] = true
	allowedChars['-'] = true
	allowedChars['/'] = true
}

// Address is a validated account identifier. The zero value is the
// "no account" sentinel; IsZero reports it and String returns "".
type Address struct {
	id string
}

// Parse validates a raw string and returns the typed address. Rules:
// non-empty, at most 90 bytes, characters restricted to a-z, 0-9,
// '.', '_', '-', '/', and the first character must be a letter or
// digit.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("invalid address: empty")
	}
	if len(raw) > maxAddressLength {
		return Address{}, fmt.Errorf("invalid address %q: %d bytes, maximum is %d", raw, len(raw), maxAddressLength)
	}
	for i := 0; i < len(raw); i++ {
		if !allowedChars[raw[i]] {
			return Address{}, fmt.Errorf("invalid address %q: character %q at position %d (allowed: a-z, 0-9, ., _, -, /)", raw, raw[i], i)
		}
	}
	first := raw[0]
	if !(first >= 'a' && first <= 'z' || first >= '0' && first <= '9') {
		return Address{}, fmt.Errorf("invalid address %q: must start with a letter or digit", raw)
	}
	return Address{id: raw}, nil
}

// MustParse is Parse for constant literals; it panics on error.
// Intended for tests and static defaults.
func MustParse(raw string) Address {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the address text, or "" for the zero value.
func (a Address) String() string { return a.id }

// IsZero reports whether this is the "no account" zero value.
func (a Address) IsZero() bool { return a.id == "" }

// Equal reports whether two addresses name the same account.
func (a Address) Equal(b Address) bool { return a.id == b.id }

// MarshalText implements encoding.TextMarshaler. The zero value
// marshals as the empty string.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value, the symmetric counterpart to MarshalText.
func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Address{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
