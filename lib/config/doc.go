// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the token daemon.
//
// Configuration is loaded from a single file specified by either the
// TAXTOKEND_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${STATE_DIR}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with state paths, socket, journal,
//     snapshot, and whale-guard sections
//   - [Default] -- returns a Config rooted under the user state directory
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// Field validation parses whale thresholds, account addresses, and age
// recipients so a bad config fails at startup rather than mid-operation.
package config
