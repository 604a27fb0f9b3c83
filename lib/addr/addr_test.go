// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package addr_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "alice"},
		{name: "with-digits", input: "addr0001"},
		{name: "with-dash", input: "tax-proceeds"},
		{name: "with-dot", input: "pool.main"},
		{name: "with-slash", input: "contract/market"},
		{name: "digit-first", input: "0xdeadbeef"},
		{name: "max-length", input: strings.Repeat("a", 90)},
		{name: "empty", input: "", wantErr: true},
		{name: "too-long", input: strings.Repeat("a", 91), wantErr: true},
		{name: "uppercase", input: "Alice", wantErr: true},
		{name: "space", input: "a lice", wantErr: true},
		{name: "leading-dot", input: ".hidden", wantErr: true},
		{name: "leading-slash", input: "/root", wantErr: true},
		{name: "at-sign", input: "alice@chain", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := addr.Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
			if got.IsZero() {
				t.Error("IsZero() = true for valid address")
			}
		})
	}
}

func TestZeroValue(t *testing.T) {
	var zero addr.Address
	if !zero.IsZero() {
		t.Error("zero value IsZero() = false")
	}
	if zero.String() != "" {
		t.Errorf("zero value String() = %q, want empty", zero.String())
	}
	if zero.Equal(addr.MustParse("alice")) {
		t.Error("zero value Equal(alice) = true")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Owner addr.Address `json:"owner"`
		Admin addr.Address `json:"admin,omitzero"`
	}

	data, err := json.Marshal(payload{Owner: addr.MustParse("alice")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"owner":"alice"}` {
		t.Errorf("Marshal = %s", data)
	}

	var decoded payload
	if err := json.Unmarshal([]byte(`{"owner":"bob","admin":""}`), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Owner.String() != "bob" {
		t.Errorf("Owner = %q, want bob", decoded.Owner)
	}
	if !decoded.Admin.IsZero() {
		t.Errorf("empty admin decoded as %q, want zero value", decoded.Admin)
	}

	if err := json.Unmarshal([]byte(`{"owner":"BAD ADDR"}`), &decoded); err == nil {
		t.Error("Unmarshal accepted an invalid address")
	}
}
