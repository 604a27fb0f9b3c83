// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of
// calling time.Now, time.After, time.NewTicker, or time.Sleep
// directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a deterministic clock that
// advances only when Advance is called.
//
// The ledger daemon has two time-dependent paths that make this
// worthwhile: allowance expirations compare against the execution
// timestamp (Clock.Now stamped into each operation's environment), and
// the snapshot loop runs off Clock.NewTicker. Both are exercised in
// tests by stepping a FakeClock rather than sleeping.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time:
//
//	type Daemon struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	d := &Daemon{clock: clock.Real()}
//
// In tests:
//
//	c := clock.FakeAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	d := &Daemon{clock: c}
//	// ... start goroutines ...
//	c.WaitForTimers(1)         // goroutine has registered its ticker
//	c.Advance(5 * time.Minute) // fire it deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls Sleep, After, or NewTicker on a FakeClock, it
// registers a pending waiter. Use WaitForTimers to block until a
// specific number of waiters are registered before calling Advance.
// This eliminates the race between waiter registration and time
// advancement that plagues tests using time.Sleep for synchronization.
package clock
