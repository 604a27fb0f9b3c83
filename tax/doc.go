// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tax models the per-operation transaction tax policy.
//
// A [Map] holds one [Rule] per transfer category (direct transfer,
// delegated transfer, send, delegated send) plus the admin account
// allowed to replace the map. Each rule pairs a source [Condition]
// (evaluated against the payer) with a destination condition
// (evaluated against the recipient) and names the proceeds account
// that receives diverted tax. A transfer is taxed only when both
// conditions hold and the recipient is not the proceeds account
// itself — the exemption that terminates the escrow-then-forward
// settlement chain.
//
// Conditions form a closed set: never taxed, always taxed at a fixed
// rate, or taxed only for contracts whose class appears in an
// allow-list (resolved through [ClassResolver] at evaluation time; an
// account that is not a contract is simply not taxed). The split
// arithmetic itself lives in lib/amount; this package decides whether
// and at which rate it runs.
//
// Maps validate before they persist: every rate within [0, 1], and
// matching rates whenever both conditions of a rule carry one, since
// evaluation reads only the source rate.
package tax
