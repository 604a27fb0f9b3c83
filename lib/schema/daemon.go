// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"github.com/fragwuerdig/cw20-taxed/token"
)

// ExecuteRequest asks the daemon to run one token operation. The
// response is an [ExecuteResponse]; refusals come back as the socket
// envelope's error string.
type ExecuteRequest struct {
	// Caller is the account the operation runs as. The daemon has no
	// account authentication; access to the socket is access to every
	// account.
	Caller string `cbor:"caller"`

	// Msg is the operation, in the same shape the genesis and journal
	// records use.
	Msg *token.Msg `cbor:"msg"`

	// RequestID correlates daemon log lines with the caller's own
	// records. Empty gets a generated one.
	RequestID string `cbor:"request_id,omitempty"`
}

// ExecuteResponse reports a committed operation.
type ExecuteResponse struct {
	// Height is the ledger height the operation committed at.
	Height uint64 `cbor:"height"`

	// Sequence is the operation's journal sequence number. Zero when
	// the journal append failed (the operation itself still committed).
	Sequence uint64 `cbor:"sequence,omitempty"`

	// Attributes are the engine's emitted key/value pairs, starting
	// with the "action" attribute.
	Attributes []Attribute `cbor:"attributes,omitempty"`
}

// Attribute is one emitted key/value pair.
type Attribute struct {
	Key   string `cbor:"key"`
	Value string `cbor:"value"`
}

// QueryRequest asks the daemon to answer one read-only query. The
// response is the token package's typed response for the variant
// (token.BalanceResponse for balance queries, token.Info for
// token_info, and so on).
type QueryRequest struct {
	Query *token.Query `cbor:"query"`
}

// StatusResponse reports the daemon's operational state.
type StatusResponse struct {
	Height      uint64 `cbor:"height"`
	TotalSupply string `cbor:"total_supply"`

	// StateDigest is the hex digest of the full committed state,
	// comparable against a snapshot file's trailer.
	StateDigest string `cbor:"state_digest"`

	UptimeSeconds float64 `cbor:"uptime_seconds"`
	Version       string  `cbor:"version"`
}

// SnapshotRequest asks the daemon to export its full state to a file
// on the daemon host.
type SnapshotRequest struct {
	// Path is where the daemon writes the snapshot. Empty picks a
	// height-named file in the daemon's configured snapshot directory.
	Path string `cbor:"path,omitempty"`

	// Recipients are age public keys overriding the daemon's
	// configured encryption recipients for this export only.
	Recipients []string `cbor:"recipients,omitempty"`
}

// SnapshotResponse reports a written snapshot.
type SnapshotResponse struct {
	Path        string `cbor:"path"`
	StateDigest string `cbor:"state_digest"`
	Height      uint64 `cbor:"height"`
}
