// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
)

// Info describes the token and its current supply.
type Info struct {
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	Decimals    uint8         `json:"decimals"`
	TotalSupply amount.Amount `json:"total_supply"`

	// Minter is the account allowed to mint, if any. A nil Minter
	// means the supply is fixed.
	Minter *Minter `json:"mint,omitempty"`
}

// Minter grants one account the right to mint new tokens, optionally
// bounded by a total-supply cap.
type Minter struct {
	Address addr.Address `json:"minter"`

	// Cap is the hard ceiling on total supply. Nil means unlimited.
	Cap *amount.Amount `json:"cap,omitempty"`
}

// Validate checks the static token metadata: name 3-50 bytes, symbol
// 3-12 characters of [a-zA-Z-], decimals at most 18.
func (i Info) Validate() error {
	if n := len(i.Name); n < 3 || n > 50 {
		return fmt.Errorf("token name must be 3-50 bytes, got %d", n)
	}
	if !validSymbol(i.Symbol) {
		return fmt.Errorf("token symbol %q must match [a-zA-Z-]{3,12}", i.Symbol)
	}
	if i.Decimals > 18 {
		return fmt.Errorf("token decimals must not exceed 18, got %d", i.Decimals)
	}
	return nil
}

func validSymbol(symbol string) bool {
	if len(symbol) < 3 || len(symbol) > 12 {
		return false
	}
	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		if c != '-' && (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// Marketing holds the project metadata block. The zero value means no
// marketing record exists.
type Marketing struct {
	Project     string `json:"project,omitempty"`
	Description string `json:"description,omitempty"`

	// Admin may update this block and upload logos. Zero means no one
	// can (the block is frozen).
	Admin addr.Address `json:"marketing,omitzero"`

	// Logo indicates where the logo lives; the logo content itself is
	// stored separately and served by the download-logo query.
	Logo LogoInfo `json:"logo,omitzero"`
}

// IsEmpty reports whether every field is unset. An update that empties
// the block deletes the stored record entirely.
func (m Marketing) IsEmpty() bool {
	return m.Project == "" && m.Description == "" && m.Admin.IsZero() && m.Logo.IsZero()
}

// LogoInfo is the public indicator of the stored logo: an external URL
// or the literal string "embedded" when the content is stored in the
// ledger. The zero value means no logo.
type LogoInfo struct {
	URL      string
	Embedded bool
}

// IsZero reports whether no logo is set.
func (l LogoInfo) IsZero() bool { return !l.Embedded && l.URL == "" }

// MarshalJSON emits {"url": "..."} or the string "embedded".
func (l LogoInfo) MarshalJSON() ([]byte, error) {
	if l.Embedded {
		return []byte(`"embedded"`), nil
	}
	return json.Marshal(map[string]string{"url": l.URL})
}

// UnmarshalJSON accepts both wire forms.
func (l *LogoInfo) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return err
		}
		if tag != "embedded" {
			return fmt.Errorf("logo info: unknown variant %q", tag)
		}
		*l = LogoInfo{Embedded: true}
		return nil
	}
	var tagged struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("logo info: %w", err)
	}
	*l = LogoInfo{URL: tagged.URL}
	return nil
}

// MarshalText emits the compact form used in CBOR state: "embedded",
// "url:<url>", or "" for no logo.
func (l LogoInfo) MarshalText() ([]byte, error) {
	if l.Embedded {
		return []byte("embedded"), nil
	}
	if l.URL != "" {
		return []byte("url:" + l.URL), nil
	}
	return nil, nil
}

// UnmarshalText parses the compact form.
func (l *LogoInfo) UnmarshalText(text []byte) error {
	s := string(text)
	switch {
	case s == "":
		*l = LogoInfo{}
	case s == "embedded":
		*l = LogoInfo{Embedded: true}
	case len(s) > 4 && s[:4] == "url:":
		*l = LogoInfo{URL: s[4:]}
	default:
		return fmt.Errorf("logo info: malformed %q", s)
	}
	return nil
}

// logoSizeCap bounds embedded logo content.
const logoSizeCap = 5 * 1024

// pngHeader is the 8-byte PNG file signature.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// Logo is uploaded logo content: an external URL, or embedded PNG or
// SVG bytes. Exactly one variant is set. On the wire:
//
//	{"url": "https://example.com/logo.svg"}
//	{"embedded": {"png": "<base64>"}}
//	{"embedded": {"svg": "<base64>"}}
type Logo struct {
	URL string
	PNG []byte
	SVG []byte
}

// Validate checks that exactly one variant is set and that embedded
// content is verifiable: PNG must carry the PNG signature, SVG must
// open with an XML preamble, and both are capped at 5 KiB. URLs are
// accepted as-is.
func (l Logo) Validate() error {
	set := 0
	if l.URL != "" {
		set++
	}
	if l.PNG != nil {
		set++
	}
	if l.SVG != nil {
		set++
	}
	if set != 1 {
		return Errorf(KindInvalidLogo, "want exactly one of url, png, svg; got %d", set)
	}
	switch {
	case l.PNG != nil:
		if len(l.PNG) > logoSizeCap {
			return Errorf(KindInvalidLogo, "logo too big: %d bytes over %d cap", len(l.PNG), logoSizeCap)
		}
		if !bytes.HasPrefix(l.PNG, pngHeader) {
			return Errorf(KindInvalidLogo, "invalid png header")
		}
	case l.SVG != nil:
		if err := verifyXMLPreamble(l.SVG); err != nil {
			return err
		}
		if len(l.SVG) > logoSizeCap {
			return Errorf(KindInvalidLogo, "logo too big: %d bytes over %d cap", len(l.SVG), logoSizeCap)
		}
	}
	return nil
}

// verifyXMLPreamble checks that data opens with "<?xml ... ?>". The
// preamble is everything up to and including the first '>'.
func verifyXMLPreamble(data []byte) error {
	end := bytes.IndexByte(data, '>')
	if end < 0 {
		return Errorf(KindInvalidLogo, "invalid xml preamble")
	}
	preamble := data[:end+1]
	if !bytes.HasPrefix(preamble, []byte("<?xml ")) || !bytes.HasSuffix(preamble, []byte("?>")) {
		return Errorf(KindInvalidLogo, "invalid xml preamble")
	}
	return nil
}

// Indicator returns the public LogoInfo for this logo.
func (l Logo) Indicator() LogoInfo {
	if l.URL != "" {
		return LogoInfo{URL: l.URL}
	}
	return LogoInfo{Embedded: true}
}

// MarshalJSON emits the tagged wire form.
func (l Logo) MarshalJSON() ([]byte, error) {
	switch {
	case l.URL != "":
		return json.Marshal(map[string]string{"url": l.URL})
	case l.PNG != nil:
		return json.Marshal(map[string]map[string][]byte{"embedded": {"png": l.PNG}})
	case l.SVG != nil:
		return json.Marshal(map[string]map[string][]byte{"embedded": {"svg": l.SVG}})
	}
	return nil, fmt.Errorf("logo: no variant set")
}

// UnmarshalJSON parses the tagged wire form.
func (l *Logo) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("logo: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("logo: want exactly one variant key, got %d", len(tagged))
	}
	for key, value := range tagged {
		switch key {
		case "url":
			var url string
			if err := json.Unmarshal(value, &url); err != nil {
				return fmt.Errorf("logo url: %w", err)
			}
			*l = Logo{URL: url}
		case "embedded":
			var embedded map[string][]byte
			if err := json.Unmarshal(value, &embedded); err != nil {
				return fmt.Errorf("logo embedded: %w", err)
			}
			if len(embedded) != 1 {
				return fmt.Errorf("logo embedded: want exactly one of png, svg")
			}
			if png, ok := embedded["png"]; ok {
				*l = Logo{PNG: png}
			} else if svg, ok := embedded["svg"]; ok {
				*l = Logo{SVG: svg}
			} else {
				return fmt.Errorf("logo embedded: want png or svg")
			}
		default:
			return fmt.Errorf("logo: unknown variant %q", key)
		}
	}
	return nil
}
