// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the ledger's standard CBOR encoding
// configuration.
//
// The ledger uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: operation and query messages (the
//     CW20-compatible wire shapes), genesis documents, and CLI output.
//   - CBOR for internal bytes: state-store blobs, snapshot streams,
//     journal records, and the daemon socket protocol.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes — the property the BLAKE3 state digest depends on: two ledgers
// with equal state have equal digests.
//
// For buffer-oriented operations (state blobs, journal records):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets, snapshot files):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It never
//     appears in JSON. Examples: snapshot headers, journal records,
//     socket protocol envelopes.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. Examples: the operation and
//     query message types, which travel as JSON on the wire and as
//     CBOR inside journal records.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
