// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"github.com/blang/semver/v4"

	"github.com/fragwuerdig/cw20-taxed/ledger"
)

// Origin classifies where imported state came from. It is resolved
// once from the stored version record; everything migration does
// afterwards branches on the tag, never on version strings.
type Origin int

const (
	// OriginUnknown is state this release cannot migrate: a contract
	// family outside the lineage, an unparsable release, or a release
	// newer than this one.
	OriginUnknown Origin = iota

	// OriginLegacySnapshot is a terraport-token deployment. Balances
	// may arrive as per-height snapshot history, and the state
	// predates both the spender mirror and the tax map.
	OriginLegacySnapshot

	// OriginTaxedPreMirror is a cw20-base deployment from before the
	// spender-keyed allowance mirror existed.
	OriginTaxedPreMirror

	// OriginTaxedPreTax is a cw20-base deployment with the mirror but
	// no tax map.
	OriginTaxedPreTax

	// OriginTaxedCurrent is state already written by this release.
	// Migration only re-stamps the version record.
	OriginTaxedCurrent
)

func (o Origin) String() string {
	switch o {
	case OriginLegacySnapshot:
		return "legacy_snapshot"
	case OriginTaxedPreMirror:
		return "taxed_pre_mirror"
	case OriginTaxedPreTax:
		return "taxed_pre_tax"
	case OriginTaxedCurrent:
		return "taxed_current"
	}
	return "unknown"
}

// legacyContract is the name terraport deployments stamp. Only its
// 0.0.0 release ever shipped, so the match is exact strings.
const legacyContract = "crates.io:terraport-token"

var (
	mirrorRelease = semver.MustParse("0.14.0")
	taxedRelease  = semver.MustParse("1.1.0")
)

// DetectOrigin classifies a stored version record. The release string
// is parsed here and nowhere else.
//
// The 1.1.0 release needs its build metadata inspected: the lineage
// stamped plain "1.1.0" before the tax map existed and "1.1.0+taxed001"
// after, and semantic-version comparison ignores build metadata.
func DetectOrigin(record ledger.Version) Origin {
	if record.Contract == legacyContract && record.Release == "0.0.0" {
		return OriginLegacySnapshot
	}
	if record.Contract != ledger.CurrentVersion.Contract {
		return OriginUnknown
	}
	release, err := semver.Parse(record.Release)
	if err != nil {
		return OriginUnknown
	}
	switch {
	case release.LT(mirrorRelease):
		return OriginTaxedPreMirror
	case release.LT(taxedRelease):
		return OriginTaxedPreTax
	case release.EQ(taxedRelease):
		if len(release.Build) == 0 {
			return OriginTaxedPreTax
		}
		return OriginTaxedCurrent
	}
	// Newer than this release understands; migrating would be a
	// downgrade.
	return OriginUnknown
}
