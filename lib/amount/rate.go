// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package amount

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// rateScale is the fixed-point denominator: rates carry 18 fractional
// digits.
const rateScale = 1_000_000_000_000_000_000

// Rate is a non-negative decimal fraction with 18 fractional digits.
// The zero value is the rate 0. Rates above 1 are representable (so a
// proposed tax map can be parsed before validation rejects it) but
// Valid reports false for them.
type Rate struct {
	num uint256.Int
}

// ZeroRate returns the rate 0.
func ZeroRate() Rate { return Rate{} }

// RatePercent returns p% as a Rate. RatePercent(10) is 0.1.
func RatePercent(p uint64) Rate {
	var r Rate
	r.num.Mul(uint256.NewInt(p), uint256.NewInt(rateScale/100))
	return r
}

// ParseRate converts a decimal string such as "0.015", "1", or ".5"
// into a Rate. At most 18 fractional digits are accepted; the value
// must be non-negative and fit in 128 bits of numerator.
func ParseRate(s string) (Rate, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return Rate{}, fmt.Errorf("parsing rate %q: empty", s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return Rate{}, fmt.Errorf("parsing rate %q: more than 18 fractional digits", s)
	}

	var wholePart uint256.Int
	if err := wholePart.SetFromDecimal(whole); err != nil {
		return Rate{}, fmt.Errorf("parsing rate %q: %w", s, err)
	}

	var fracPart uint256.Int
	if frac != "" {
		// Right-pad the fractional digits to the full 18-digit scale.
		padded := frac + strings.Repeat("0", 18-len(frac))
		if err := fracPart.SetFromDecimal(padded); err != nil {
			return Rate{}, fmt.Errorf("parsing rate %q: %w", s, err)
		}
	}

	var r Rate
	r.num.Mul(&wholePart, uint256.NewInt(rateScale))
	r.num.Add(&r.num, &fracPart)
	if r.num.BitLen() > 128 {
		return Rate{}, fmt.Errorf("parsing rate %q: %w", s, ErrOverflow)
	}
	return r, nil
}

// MustParseRate is ParseRate for constant literals; it panics on error.
func MustParseRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// IsZero reports whether r is 0.
func (r Rate) IsZero() bool { return r.num.IsZero() }

// Valid reports whether r is within [0, 1], the range a tax rate must
// occupy.
func (r Rate) Valid() bool {
	return r.num.CmpUint64(rateScale) <= 0
}

// Equal reports r == o.
func (r Rate) Equal(o Rate) bool { return r.num.Eq(&o.num) }

// Of returns floor(a × r). The 256-bit intermediate product cannot
// overflow for any 128-bit amount and 128-bit numerator.
func (r Rate) Of(a Amount) Amount {
	var product uint256.Int
	product.Mul(&a.v, &r.num)
	var result Amount
	result.v.Div(&product, uint256.NewInt(rateScale))
	return result
}

// String renders the rate as a decimal string with trailing zeros
// trimmed: "0.1", "0.015", "1".
func (r Rate) String() string {
	var whole, frac uint256.Int
	whole.DivMod(&r.num, uint256.NewInt(rateScale), &frac)
	if frac.IsZero() {
		return whole.Dec()
	}
	digits := fmt.Sprintf("%018s", frac.Dec())
	digits = strings.TrimRight(digits, "0")
	return whole.Dec() + "." + digits
}

// MarshalText implements encoding.TextMarshaler using the same decimal
// form String produces.
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rate) UnmarshalText(text []byte) error {
	parsed, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// SplitTax divides amount into the net delivered to a recipient and
// the tax diverted to a proceeds account: tax = floor(amount × rate),
// net = amount − tax. Net and tax always sum exactly to amount, and
// rounding favors the recipient (net takes the remainder). The rate
// must be within [0, 1]; tax is capped at amount so the identity holds
// even for an out-of-range rate.
func SplitTax(a Amount, rate Rate) (net Amount, tax Amount) {
	tax = rate.Of(a)
	if tax.GreaterThan(a) {
		tax = a
	}
	// Cannot underflow: tax <= a.
	net, _ = a.Sub(tax)
	return net, tax
}
