// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fragwuerdig/cw20-taxed/token"
)

func TestExpirationJSON(t *testing.T) {
	tests := []struct {
		name string
		e    token.Expiration
		want string
	}{
		{"never", token.Never(), `{"never":{}}`},
		{"at height", token.AtHeight(12345), `{"at_height":12345}`},
		{"at time", token.AtTime(time.Unix(0, 1571797419879305533)), `{"at_time":"1571797419879305533"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := json.Marshal(test.e)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(encoded) != test.want {
				t.Errorf("Marshal = %s, want %s", encoded, test.want)
			}

			var decoded token.Expiration
			if err := json.Unmarshal(encoded, &decoded); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if decoded != test.e {
				t.Errorf("round trip = %v, want %v", decoded, test.e)
			}
		})
	}
}

func TestExpirationJSONRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"two variants", `{"never":{},"at_height":5}`},
		{"no variants", `{}`},
		{"unknown variant", `{"at_block":5}`},
		{"at_time not a string", `{"at_time":123}`},
		{"at_time not a number", `{"at_time":"soon"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var e token.Expiration
			if err := json.Unmarshal([]byte(test.input), &e); err == nil {
				t.Errorf("Unmarshal(%s) succeeded, want error", test.input)
			}
		})
	}
}

func TestExpirationExpired(t *testing.T) {
	instant := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		e      token.Expiration
		height uint64
		now    time.Time
		want   bool
	}{
		{"never at any height", token.Never(), 1 << 40, instant, false},
		{"height before", token.AtHeight(100), 99, instant, false},
		{"height reached is inclusive", token.AtHeight(100), 100, instant, true},
		{"height after", token.AtHeight(100), 101, instant, true},
		{"time before", token.AtTime(instant), 1, instant.Add(-time.Nanosecond), false},
		{"time reached is inclusive", token.AtTime(instant), 1, instant, true},
		{"time after", token.AtTime(instant), 1, instant.Add(time.Hour), true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.e.Expired(test.height, test.now); got != test.want {
				t.Errorf("Expired(%d, %v) = %v, want %v", test.height, test.now, got, test.want)
			}
		})
	}
}

func TestExpirationText(t *testing.T) {
	tests := []struct {
		e    token.Expiration
		want string
	}{
		{token.Never(), "never"},
		{token.AtHeight(123), "height:123"},
		{token.AtTime(time.Unix(0, 456)), "time:456"},
	}
	for _, test := range tests {
		text, err := test.e.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		if string(text) != test.want {
			t.Errorf("MarshalText = %q, want %q", text, test.want)
		}

		var decoded token.Expiration
		if err := decoded.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if decoded != test.e {
			t.Errorf("text round trip = %v, want %v", decoded, test.e)
		}
	}

	var e token.Expiration
	if err := e.UnmarshalText([]byte("height:soon")); err == nil {
		t.Error("UnmarshalText accepted non-numeric height")
	}
}
