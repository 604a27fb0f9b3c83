// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package amount provides the unsigned 128-bit token amount and the
// fixed-point tax rate used throughout the ledger.
//
// Amounts are opaque value types backed by 256-bit integers but
// constrained to 128 bits, matching the wire format's string-encoded
// unsigned integers. All arithmetic is checked: Add fails on 128-bit
// overflow, Sub fails on underflow. There is no saturating or wrapping
// variant — a failed operation returns an error and the inputs are
// unchanged.
//
// Rates are decimal fractions with 18 fractional digits, stored as a
// numerator over 10^18. A rate used for taxation must be in [0, 1];
// Valid reports this, and the tax-map validator rejects anything else
// before it can be persisted.
package amount

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned by Add when the result does not fit in
// 128 bits, and by Parse for literals above the 128-bit range.
var ErrOverflow = errors.New("amount overflows 128 bits")

// ErrUnderflow is returned by Sub when the subtrahend exceeds the
// minuend.
var ErrUnderflow = errors.New("amount underflow")

// Amount is a non-negative 128-bit token quantity. The zero value is
// the amount 0 and is ready to use.
type Amount struct {
	v uint256.Int
}

// Zero returns the amount 0.
func Zero() Amount { return Amount{} }

// New returns the amount for a uint64 value.
func New(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// Parse converts a decimal string into an Amount. The string must be
// a plain base-10 unsigned integer no larger than 2^128-1.
func Parse(s string) (Amount, error) {
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if a.v.BitLen() > 128 {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, ErrOverflow)
	}
	return a, nil
}

// MustParse is Parse for compile-time-constant literals; it panics on
// error. Intended for tests and static defaults.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b, or ErrOverflow if the sum exceeds 128 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var sum Amount
	sum.v.Add(&a.v, &b.v)
	if sum.v.BitLen() > 128 {
		return Amount{}, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, or ErrUnderflow if b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Lt(&b.v) {
		return Amount{}, ErrUnderflow
	}
	var diff Amount
	diff.v.Sub(&a.v, &b.v)
	return diff, nil
}

// Cmp returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Equal reports a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.v.Gt(&b.v) }

// IsZero reports whether a is 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Uint64 returns the amount as a uint64. The second return is false
// when the amount does not fit.
func (a Amount) Uint64() (uint64, bool) {
	if a.v.BitLen() > 64 {
		return 0, false
	}
	return a.v.Uint64(), true
}

// String returns the plain decimal representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalText implements encoding.TextMarshaler. Amounts serialize as
// decimal strings, so JSON carries them quoted ("76543") — large
// values survive JSON number parsing in every client.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
