// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"strings"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func (e *Engine) updateMarketing(store Store, caller addr.Address, m *token.UpdateMarketingMsg) (*Result, error) {
	marketing, ok, err := store.Marketing()
	if err != nil {
		return nil, err
	}
	if !ok || marketing.Admin.IsZero() {
		return nil, token.Errorf(token.KindUnauthorized, "no marketing admin is configured")
	}
	if !marketing.Admin.Equal(caller) {
		return nil, token.Errorf(token.KindUnauthorized, "account %s is not the marketing admin", caller)
	}

	// Nil leaves a field alone, a whitespace-only string clears it,
	// anything else replaces it verbatim.
	if m.Project != nil {
		marketing.Project = clearIfBlank(*m.Project)
	}
	if m.Description != nil {
		marketing.Description = clearIfBlank(*m.Description)
	}
	if m.Marketing != nil {
		if strings.TrimSpace(*m.Marketing) == "" {
			marketing.Admin = addr.Address{}
		} else {
			admin, err := addr.Parse(*m.Marketing)
			if err != nil {
				return nil, token.Errorf(token.KindInvalidAddress, "marketing admin: %v", err)
			}
			marketing.Admin = admin
		}
	}

	// Clearing the last field removes the whole block rather than
	// keeping an empty record around.
	if marketing.IsEmpty() {
		if err := store.DeleteMarketing(); err != nil {
			return nil, err
		}
	} else {
		if err := store.SetMarketing(marketing); err != nil {
			return nil, err
		}
	}

	return &Result{Attributes: []Attribute{{"action", "update_marketing"}}}, nil
}

// uploadLogo verifies the logo content before checking who sent it, so
// a malformed upload reports the format problem even to a caller who
// would be rejected anyway.
func (e *Engine) uploadLogo(store Store, caller addr.Address, logo *token.Logo) (*Result, error) {
	marketing, ok, err := store.Marketing()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, token.Errorf(token.KindUnauthorized, "no marketing admin is configured")
	}
	if err := logo.Validate(); err != nil {
		return nil, err
	}
	if marketing.Admin.IsZero() || !marketing.Admin.Equal(caller) {
		return nil, token.Errorf(token.KindUnauthorized, "account %s is not the marketing admin", caller)
	}

	if err := store.SetLogo(*logo); err != nil {
		return nil, err
	}
	marketing.Logo = logo.Indicator()
	if err := store.SetMarketing(marketing); err != nil {
		return nil, err
	}

	return &Result{Attributes: []Attribute{{"action", "upload_logo"}}}, nil
}

func clearIfBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
