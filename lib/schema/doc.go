// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the request and response types of the token
// daemon's socket API. The daemon decodes requests into these types
// and the taxtoken CLI and watch tool encode them, so both sides of
// the socket agree on field names and CBOR tags by construction.
//
// The payload types inside a request are the token package's wire
// types: [token.Msg] for executes and [token.Query] for reads. This
// package adds only the envelope around them: caller identity, request
// correlation, and the daemon-level status and snapshot operations.
package schema
