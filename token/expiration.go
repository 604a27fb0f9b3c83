// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type expirationKind uint8

const (
	expireNever expirationKind = iota
	expireAtHeight
	expireAtTime
)

// Expiration bounds the lifetime of an allowance. The zero value never
// expires. On the wire it is a single-key tagged object:
//
//	{"never": {}}
//	{"at_height": 12345}
//	{"at_time": "1571797419879305533"}
//
// matching the allowance expirations accepted by existing CW20
// tooling. at_time carries nanoseconds since the Unix epoch as a
// decimal string.
type Expiration struct {
	kind   expirationKind
	height uint64
	nanos  uint64
}

// Never returns the expiration that never expires. Equal to the zero
// value.
func Never() Expiration { return Expiration{} }

// AtHeight returns an expiration that elapses once the ledger height
// reaches h.
func AtHeight(h uint64) Expiration {
	return Expiration{kind: expireAtHeight, height: h}
}

// AtTime returns an expiration that elapses once the execution
// timestamp reaches t. Times before the Unix epoch are clamped to it.
func AtTime(t time.Time) Expiration {
	nanos := t.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	return Expiration{kind: expireAtTime, nanos: uint64(nanos)}
}

// IsNever reports whether the expiration never expires.
func (e Expiration) IsNever() bool { return e.kind == expireNever }

// Expired reports whether the expiration has elapsed at the given
// ledger height and execution timestamp. Height and time comparisons
// are inclusive: an allowance expiring at height 100 is unusable in
// the operation executed at height 100.
func (e Expiration) Expired(height uint64, now time.Time) bool {
	switch e.kind {
	case expireNever:
		return false
	case expireAtHeight:
		return height >= e.height
	case expireAtTime:
		nowNanos := now.UnixNano()
		if nowNanos < 0 {
			return false
		}
		return uint64(nowNanos) >= e.nanos
	}
	return false
}

// String returns a human-readable form for logs and CLI output.
func (e Expiration) String() string {
	switch e.kind {
	case expireAtHeight:
		return fmt.Sprintf("at height %d", e.height)
	case expireAtTime:
		return "at time " + time.Unix(0, int64(e.nanos)).UTC().Format(time.RFC3339Nano)
	}
	return "never"
}

// MarshalJSON emits the tagged single-key object form.
func (e Expiration) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case expireAtHeight:
		return json.Marshal(map[string]uint64{"at_height": e.height})
	case expireAtTime:
		return json.Marshal(map[string]string{"at_time": strconv.FormatUint(e.nanos, 10)})
	}
	return []byte(`{"never":{}}`), nil
}

// UnmarshalJSON parses the tagged single-key object form. Exactly one
// variant key must be present.
func (e *Expiration) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("expiration: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("expiration: want exactly one variant key, got %d", len(tagged))
	}
	for key, value := range tagged {
		switch key {
		case "never":
			*e = Expiration{}
		case "at_height":
			var height uint64
			if err := json.Unmarshal(value, &height); err != nil {
				return fmt.Errorf("expiration at_height: %w", err)
			}
			*e = AtHeight(height)
		case "at_time":
			var nanosText string
			if err := json.Unmarshal(value, &nanosText); err != nil {
				return fmt.Errorf("expiration at_time: %w", err)
			}
			nanos, err := strconv.ParseUint(nanosText, 10, 64)
			if err != nil {
				return fmt.Errorf("expiration at_time %q: %w", nanosText, err)
			}
			*e = Expiration{kind: expireAtTime, nanos: nanos}
		default:
			return fmt.Errorf("expiration: unknown variant %q", key)
		}
	}
	return nil
}

// MarshalText emits the compact form used in CBOR state and snapshots:
// "never", "height:N", or "time:N".
func (e Expiration) MarshalText() ([]byte, error) {
	switch e.kind {
	case expireAtHeight:
		return []byte("height:" + strconv.FormatUint(e.height, 10)), nil
	case expireAtTime:
		return []byte("time:" + strconv.FormatUint(e.nanos, 10)), nil
	}
	return []byte("never"), nil
}

// UnmarshalText parses the compact form.
func (e *Expiration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "never" || s == "" {
		*e = Expiration{}
		return nil
	}
	tag, digits, found := strings.Cut(s, ":")
	if !found {
		return fmt.Errorf("expiration: malformed %q", s)
	}
	value, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return fmt.Errorf("expiration %q: %w", s, err)
	}
	switch tag {
	case "height":
		*e = Expiration{kind: expireAtHeight, height: value}
	case "time":
		*e = Expiration{kind: expireAtTime, nanos: value}
	default:
		return fmt.Errorf("expiration: unknown tag %q", tag)
	}
	return nil
}
