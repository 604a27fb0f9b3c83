// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package token defines the wire surface of the taxed-token ledger:
// execute messages, queries, responses, allowance expirations, token
// and marketing metadata, and the classified error type every
// operation returns.
//
// The JSON shapes are CW20-compatible (single-key snake_case tagged
// objects, decimal-string amounts, base64 payloads), so wallets and
// tooling written against CW20 contracts can drive the ledger without
// translation. The engine, daemon, CLI, and receive handlers all share
// these types; nothing here touches storage.
//
// Messages and queries decode leniently (unknown variants simply leave
// every field nil) and are then shape-checked with Validate, which is
// where zero-variant and missing-address requests are rejected.
// Semantic checks — authorization, balances, expirations — happen in
// the engine and come back as *Error values classified by Kind.
package token
