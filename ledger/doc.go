// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger executes token operations against a balance store and
// applies the per-operation transfer tax.
//
// The Engine is pure policy: it validates a message, moves balances in
// a Store, and reports what else must happen as deferred Actions. It
// never talks to the network and never commits anything itself. The
// host package owns atomicity, running the operation and its deferred
// actions inside a single Transactor transaction.
//
// # Tax settlement
//
// The four transfer variants share one settlement path. The tax rule
// for the operation's category splits the amount into net and tax. The
// payer is debited in full, the tax is credited to the ledger's own
// escrow account, and the recipient receives the net. When tax was
// withheld, the result carries a self-invoked transfer that forwards
// the escrowed tax to the proceeds account, so escrow drains through
// the same audited path as any other transfer:
//
//	result, err := engine.Execute(store, env, caller, &msg)
//	for _, action := range result.Actions {
//	    // host dispatches: Deliver before SelfInvoke, depth-first
//	}
//
// The proceeds account is exempt from its own rule, which terminates
// the recursion: the forwarding transfer matches the rule whose
// proceeds account it pays, so it settles untaxed.
//
// # Stores
//
// Store is the state interface: balances, the dual-indexed allowance
// book, and the metadata singletons. MemStore keeps everything in maps
// and snapshots itself for rollback; the sqlite package persists the
// same interface. The storetest package exercises any implementation
// against the shared contract.
package ledger
