// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Taxtokend is the taxed-token ledger daemon. It owns a SQLite-backed
// ledger, executes token operations through the tax engine, and serves
// CBOR requests on a local Unix socket.
//
// # Startup
//
// The daemon loads its YAML configuration (--config flag or the
// TAXTOKEND_CONFIG environment variable; flags override file values),
// takes an exclusive lock on the state directory, and opens the ledger
// database. An empty ledger is seeded from the --genesis document or
// restored from a --restore snapshot file; a populated one boots as-is,
// ignores both flags, and is migrated forward when its stored lineage
// record is behind the current release. The operation journal is opened
// last and fixes the height the daemon resumes counting from.
//
// # Socket API
//
// The CLI and other local clients connect to the daemon's Unix socket
// and send CBOR requests, one per connection:
//
//   - execute: run one token operation as a given caller
//   - query: read balances, allowances, metadata, tax policy
//   - status: height, total supply, state digest, uptime
//   - snapshot: export full state to a file on the daemon host
//
// Every successful execute is appended to the journal. Snapshots can
// also run on a configured interval and during shutdown.
package main
