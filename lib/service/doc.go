// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service carries the daemon's Unix socket protocol: a CBOR
// request-response exchange, one request per connection.
//
// The client writes a single CBOR map whose "action" field names the
// operation; the server answers with a Response envelope ({ok, error,
// data}) and closes the connection. CBOR is self-delimiting, so there
// is no framing beyond the values themselves.
//
// SocketServer is the daemon side: action handlers are registered by
// name, connections are served concurrently, and shutdown waits for
// in-flight handlers to finish. Client is the caller side used by the
// command-line tools; each Call dials, sends, reads, and hangs up.
//
// The socket has no caller authentication. Filesystem permissions on
// the socket path decide who can reach the daemon.
package service
