// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package amount_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fragwuerdig/cw20-taxed/lib/amount"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "zero", input: "0", want: "0"},
		{name: "small", input: "76543", want: "76543"},
		{name: "max-uint64", input: "18446744073709551615", want: "18446744073709551615"},
		{name: "above-uint64", input: "340282366920938463463374607431768211455", want: "340282366920938463463374607431768211455"},
		{name: "above-128-bits", input: "340282366920938463463374607431768211456", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "not-a-number", input: "12x4", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := amount.Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("String() = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestCheckedArithmetic(t *testing.T) {
	max128 := amount.MustParse("340282366920938463463374607431768211455")

	sum, err := amount.New(12263457).Add(amount.New(76543))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sum.Equal(amount.New(12340000)) {
		t.Errorf("Add = %v, want 12340000", sum)
	}

	if _, err := max128.Add(amount.New(1)); !errors.Is(err, amount.ErrOverflow) {
		t.Errorf("Add past 128 bits: err = %v, want ErrOverflow", err)
	}

	diff, err := amount.New(12340000).Sub(amount.New(76543))
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !diff.Equal(amount.New(12263457)) {
		t.Errorf("Sub = %v, want 12263457", diff)
	}

	if _, err := amount.New(5).Sub(amount.New(6)); !errors.Is(err, amount.ErrUnderflow) {
		t.Errorf("Sub below zero: err = %v, want ErrUnderflow", err)
	}

	// Failed operations leave the operands untouched.
	a := amount.New(5)
	if _, err := a.Sub(amount.New(6)); err == nil {
		t.Fatal("expected underflow")
	}
	if !a.Equal(amount.New(5)) {
		t.Errorf("operand mutated by failed Sub: %v", a)
	}
}

func TestAmountJSON(t *testing.T) {
	type payload struct {
		Amount amount.Amount `json:"amount"`
	}

	data, err := json.Marshal(payload{Amount: amount.New(76543)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"amount":"76543"}` {
		t.Errorf("Marshal = %s, want quoted decimal", data)
	}

	var decoded payload
	if err := json.Unmarshal([]byte(`{"amount":"12340000"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Amount.Equal(amount.New(12340000)) {
		t.Errorf("Unmarshal = %v, want 12340000", decoded.Amount)
	}

	if err := json.Unmarshal([]byte(`{"amount":"-3"}`), &decoded); err == nil {
		t.Error("Unmarshal accepted a negative amount")
	}
}

func TestRateParseAndString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		valid   bool
		wantErr bool
	}{
		{name: "zero", input: "0", want: "0", valid: true},
		{name: "one", input: "1", want: "1", valid: true},
		{name: "tenth", input: "0.1", want: "0.1", valid: true},
		{name: "bare-fraction", input: ".5", want: "0.5", valid: true},
		{name: "small", input: "0.015", want: "0.015", valid: true},
		{name: "full-precision", input: "0.123456789012345678", want: "0.123456789012345678", valid: true},
		{name: "above-one", input: "1.1", want: "1.1", valid: false},
		{name: "too-many-digits", input: "0.1234567890123456789", wantErr: true},
		{name: "negative", input: "-0.1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "0.1x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := amount.ParseRate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("String() = %q, want %q", got.String(), tt.want)
			}
			if got.Valid() != tt.valid {
				t.Errorf("Valid() = %v, want %v", got.Valid(), tt.valid)
			}
		})
	}
}

func TestRatePercent(t *testing.T) {
	if got := amount.RatePercent(10); !got.Equal(amount.MustParseRate("0.1")) {
		t.Errorf("RatePercent(10) = %v, want 0.1", got)
	}
	if got := amount.RatePercent(100); !got.Equal(amount.MustParseRate("1")) {
		t.Errorf("RatePercent(100) = %v, want 1", got)
	}
	if amount.RatePercent(110).Valid() {
		t.Error("RatePercent(110).Valid() = true, want false")
	}
}

func TestSplitTaxExactVector(t *testing.T) {
	// Reference scenario: 76,543 at 10% splits into net 68,889 and
	// tax 7,654. Rounding favors the recipient: 76,543 × 0.9 =
	// 68,888.7, delivered as 68,889.
	net, tax := amount.SplitTax(amount.New(76543), amount.RatePercent(10))
	if !net.Equal(amount.New(68889)) {
		t.Errorf("net = %v, want 68889", net)
	}
	if !tax.Equal(amount.New(7654)) {
		t.Errorf("tax = %v, want 7654", tax)
	}
}

func TestSplitTaxConservation(t *testing.T) {
	amounts := []amount.Amount{
		amount.Zero(),
		amount.New(1),
		amount.New(99),
		amount.New(100),
		amount.New(76543),
		amount.New(12340000),
		amount.MustParse("340282366920938463463374607431768211455"),
	}
	rates := []amount.Rate{
		amount.ZeroRate(),
		amount.MustParseRate("0.000000000000000001"),
		amount.MustParseRate("0.015"),
		amount.RatePercent(10),
		amount.MustParseRate("0.5"),
		amount.MustParseRate("0.999999999999999999"),
		amount.RatePercent(100),
	}
	for _, a := range amounts {
		for _, r := range rates {
			net, tax := amount.SplitTax(a, r)
			sum, err := net.Add(tax)
			if err != nil {
				t.Fatalf("net+tax overflow for %v @ %v: %v", a, r, err)
			}
			if !sum.Equal(a) {
				t.Errorf("net+tax = %v, want %v (rate %v)", sum, a, r)
			}
			if tax.GreaterThan(a) {
				t.Errorf("tax %v exceeds amount %v (rate %v)", tax, a, r)
			}
		}
	}
}

func TestSplitTaxBoundaryRates(t *testing.T) {
	// Rate 0: everything is net.
	net, tax := amount.SplitTax(amount.New(1000), amount.ZeroRate())
	if !net.Equal(amount.New(1000)) || !tax.IsZero() {
		t.Errorf("rate 0: net %v tax %v, want 1000/0", net, tax)
	}

	// Rate 1: everything is tax.
	net, tax = amount.SplitTax(amount.New(1000), amount.RatePercent(100))
	if !net.IsZero() || !tax.Equal(amount.New(1000)) {
		t.Errorf("rate 1: net %v tax %v, want 0/1000", net, tax)
	}

	// Flooring: 99 at 10% taxes 9 units, nets 90.
	net, tax = amount.SplitTax(amount.New(99), amount.RatePercent(10))
	if !net.Equal(amount.New(90)) || !tax.Equal(amount.New(9)) {
		t.Errorf("99 @ 10%%: net %v tax %v, want 90/9", net, tax)
	}
}

func TestRateOf(t *testing.T) {
	// Of floors: 0.015 of 1000 is 15; 0.015 of 99 is 1 (1.485 floored).
	if got := amount.MustParseRate("0.015").Of(amount.New(1000)); !got.Equal(amount.New(15)) {
		t.Errorf("0.015 of 1000 = %v, want 15", got)
	}
	if got := amount.MustParseRate("0.015").Of(amount.New(99)); !got.Equal(amount.New(1)) {
		t.Errorf("0.015 of 99 = %v, want 1", got)
	}
}
