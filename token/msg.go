// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
)

// Msg is an execute request. Exactly one variant field is set; on the
// wire it is a single-key snake_case object, so existing CW20 tooling
// can talk to the ledger unchanged:
//
//	{"transfer": {"recipient": "bob", "amount": "76543"}}
//	{"increase_allowance": {"spender": "carol", "amount": "1000", "expires": {"at_height": 500}}}
//
// Decode, then call Validate before dispatching.
type Msg struct {
	Transfer          *TransferMsg          `json:"transfer,omitempty"`
	Send              *SendMsg              `json:"send,omitempty"`
	TransferFrom      *TransferFromMsg      `json:"transfer_from,omitempty"`
	SendFrom          *SendFromMsg          `json:"send_from,omitempty"`
	IncreaseAllowance *IncreaseAllowanceMsg `json:"increase_allowance,omitempty"`
	DecreaseAllowance *DecreaseAllowanceMsg `json:"decrease_allowance,omitempty"`
	Burn              *BurnMsg              `json:"burn,omitempty"`
	BurnFrom          *BurnFromMsg          `json:"burn_from,omitempty"`
	Mint              *MintMsg              `json:"mint,omitempty"`
	UpdateMinter      *UpdateMinterMsg      `json:"update_minter,omitempty"`
	UpdateMarketing   *UpdateMarketingMsg   `json:"update_marketing,omitempty"`
	UploadLogo        *Logo                 `json:"upload_logo,omitempty"`
	SetTaxMap         *SetTaxMapMsg         `json:"set_tax_map,omitempty"`
	SetTaxAdmin       *SetTaxAdminMsg       `json:"set_tax_admin,omitempty"`
}

// TransferMsg moves tokens from the caller to a recipient.
type TransferMsg struct {
	Recipient addr.Address  `json:"recipient"`
	Amount    amount.Amount `json:"amount"`
}

// SendMsg moves tokens from the caller to a contract account and
// delivers a ReceiveNotice carrying the opaque payload.
type SendMsg struct {
	Contract addr.Address  `json:"contract"`
	Amount   amount.Amount `json:"amount"`
	Payload  []byte        `json:"msg"`
}

// TransferFromMsg moves tokens out of owner's account on the strength
// of an allowance granted to the caller.
type TransferFromMsg struct {
	Owner     addr.Address  `json:"owner"`
	Recipient addr.Address  `json:"recipient"`
	Amount    amount.Amount `json:"amount"`
}

// SendFromMsg is SendMsg on the strength of an allowance.
type SendFromMsg struct {
	Owner    addr.Address  `json:"owner"`
	Contract addr.Address  `json:"contract"`
	Amount   amount.Amount `json:"amount"`
	Payload  []byte        `json:"msg"`
}

// IncreaseAllowanceMsg raises the caller's grant to spender. A nil
// Expires leaves any existing expiration untouched.
type IncreaseAllowanceMsg struct {
	Spender addr.Address  `json:"spender"`
	Amount  amount.Amount `json:"amount"`
	Expires *Expiration   `json:"expires,omitempty"`
}

// DecreaseAllowanceMsg lowers the caller's grant to spender, clamping
// at zero. A nil Expires leaves any existing expiration untouched.
type DecreaseAllowanceMsg struct {
	Spender addr.Address  `json:"spender"`
	Amount  amount.Amount `json:"amount"`
	Expires *Expiration   `json:"expires,omitempty"`
}

// BurnMsg destroys tokens from the caller's balance, shrinking total
// supply.
type BurnMsg struct {
	Amount amount.Amount `json:"amount"`
}

// BurnFromMsg is BurnMsg against owner's balance on the strength of an
// allowance.
type BurnFromMsg struct {
	Owner  addr.Address  `json:"owner"`
	Amount amount.Amount `json:"amount"`
}

// MintMsg creates new tokens in recipient's balance. Caller must be
// the minter.
type MintMsg struct {
	Recipient addr.Address  `json:"recipient"`
	Amount    amount.Amount `json:"amount"`
}

// UpdateMinterMsg transfers or removes the mint role. A nil NewMinter
// removes it permanently; the cap carries over otherwise.
type UpdateMinterMsg struct {
	NewMinter *addr.Address `json:"new_minter,omitempty"`
}

// UpdateMarketingMsg edits the marketing block. Nil fields are left
// unchanged; whitespace-only strings clear the field.
type UpdateMarketingMsg struct {
	Project     *string `json:"project,omitempty"`
	Description *string `json:"description,omitempty"`
	Marketing   *string `json:"marketing,omitempty"`
}

// SetTaxMapMsg replaces the tax map. A nil TaxMap resets to the
// default (all transfers untaxed) while preserving the current admin.
type SetTaxMapMsg struct {
	TaxMap *tax.Map `json:"tax_map,omitempty"`
}

// SetTaxAdminMsg hands the tax-admin role to another account. A nil
// TaxAdmin clears the role permanently.
type SetTaxAdminMsg struct {
	TaxAdmin *addr.Address `json:"tax_admin,omitempty"`
}

// ReceiveNotice is delivered to the recipient of a send variant: who
// the tokens came from, the net amount credited, and the opaque
// payload the sender attached.
type ReceiveNotice struct {
	Sender  addr.Address  `json:"sender"`
	Amount  amount.Amount `json:"amount"`
	Payload []byte        `json:"msg"`
}

// Name returns the action name of the set variant ("transfer",
// "increase_allowance", ...) for attributes, logs, and the journal.
// Empty when no variant is set.
func (m *Msg) Name() string {
	switch {
	case m.Transfer != nil:
		return "transfer"
	case m.Send != nil:
		return "send"
	case m.TransferFrom != nil:
		return "transfer_from"
	case m.SendFrom != nil:
		return "send_from"
	case m.IncreaseAllowance != nil:
		return "increase_allowance"
	case m.DecreaseAllowance != nil:
		return "decrease_allowance"
	case m.Burn != nil:
		return "burn"
	case m.BurnFrom != nil:
		return "burn_from"
	case m.Mint != nil:
		return "mint"
	case m.UpdateMinter != nil:
		return "update_minter"
	case m.UpdateMarketing != nil:
		return "update_marketing"
	case m.UploadLogo != nil:
		return "upload_logo"
	case m.SetTaxMap != nil:
		return "set_tax_map"
	case m.SetTaxAdmin != nil:
		return "set_tax_admin"
	}
	return ""
}

// Validate checks that exactly one variant is set and that the
// variant's required address fields are present. Authorization and
// balance checks belong to the engine; this is pure shape validation.
func (m *Msg) Validate() error {
	count := 0
	for _, set := range []bool{
		m.Transfer != nil, m.Send != nil, m.TransferFrom != nil,
		m.SendFrom != nil, m.IncreaseAllowance != nil, m.DecreaseAllowance != nil,
		m.Burn != nil, m.BurnFrom != nil, m.Mint != nil,
		m.UpdateMinter != nil, m.UpdateMarketing != nil, m.UploadLogo != nil,
		m.SetTaxMap != nil, m.SetTaxAdmin != nil,
	} {
		if set {
			count++
		}
	}
	if count != 1 {
		return Errorf(KindInvalidMsg, "want exactly one message variant, got %d", count)
	}

	switch {
	case m.Transfer != nil:
		return requireAddrs(field{"recipient", m.Transfer.Recipient})
	case m.Send != nil:
		return requireAddrs(field{"contract", m.Send.Contract})
	case m.TransferFrom != nil:
		return requireAddrs(
			field{"owner", m.TransferFrom.Owner},
			field{"recipient", m.TransferFrom.Recipient},
		)
	case m.SendFrom != nil:
		return requireAddrs(
			field{"owner", m.SendFrom.Owner},
			field{"contract", m.SendFrom.Contract},
		)
	case m.IncreaseAllowance != nil:
		return requireAddrs(field{"spender", m.IncreaseAllowance.Spender})
	case m.DecreaseAllowance != nil:
		return requireAddrs(field{"spender", m.DecreaseAllowance.Spender})
	case m.BurnFrom != nil:
		return requireAddrs(field{"owner", m.BurnFrom.Owner})
	case m.Mint != nil:
		return requireAddrs(field{"recipient", m.Mint.Recipient})
	}
	return nil
}

type field struct {
	name  string
	value addr.Address
}

func requireAddrs(fields ...field) error {
	for _, f := range fields {
		if f.value.IsZero() {
			return Errorf(KindInvalidAddress, "%s address is required", f.name)
		}
	}
	return nil
}
