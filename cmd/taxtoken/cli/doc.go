// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree the taxtoken binary is built
// from: hierarchical dispatch with typo suggestions, struct-tag flag
// binding on parameter structs, and shared --json output handling.
package cli
