// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// Env is the execution environment stamped on each operation: the
// block height and time that allowance expirations are judged against.
type Env struct {
	Height uint64
	Time   time.Time
}

// Attribute is one observable key/value pair in an operation's result.
// Attributes are what clients and the journal see of an execution.
type Attribute struct {
	Key   string
	Value string
}

// Action is a deferred effect emitted by an operation. The host runs
// the actions of a successful operation in emitted order, inside the
// same atomic unit: a failing action discards the whole call tree.
type Action interface {
	isAction()
}

// SelfInvoke re-enters the engine with the ledger's own account as the
// caller. The tax forward emits it: escrowed tax leaves the ledger's
// account through the ordinary transfer path, so forwarded funds are
// bookkept exactly like any other transfer.
type SelfInvoke struct {
	Msg token.Msg
}

// Deliver hands a receive notice to the recipient of a send variant.
type Deliver struct {
	Contract addr.Address
	Notice   token.ReceiveNotice
}

func (SelfInvoke) isAction() {}
func (Deliver) isAction()    {}

// Result is what a successful operation returns: the attributes to
// emit and the deferred actions still to run.
type Result struct {
	Attributes []Attribute
	Actions    []Action
}

// TransferHook runs before a transfer-style operation touches any
// allowance or balance. A non-nil error aborts the operation. The
// whale guard is wired through this.
type TransferHook func(store Store, payer, recipient addr.Address, value amount.Amount) error

// Config holds the parameters for creating an engine.
type Config struct {
	// Self is the ledger's own account: tax is escrowed here before
	// the forwarding transfer moves it to the proceeds account.
	// Required.
	Self addr.Address

	// Classes resolves contract-class lookups for class-conditioned
	// tax rules. Nil means no address resolves, so class conditions
	// never match.
	Classes tax.ClassResolver

	// Hooks run before each transfer-style operation, in order.
	Hooks []TransferHook

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger
}

// Engine executes operations against a Store. It holds no state of its
// own beyond configuration; all ledger state lives in the store, so
// one engine can serve any number of transactions.
//
// Engine methods mutate the store directly and rely on the caller to
// provide atomicity: the host wraps Execute and the resulting actions
// in a single Transact.
type Engine struct {
	self    addr.Address
	classes tax.ClassResolver
	hooks   []TransferHook
	logger  *slog.Logger
}

// New returns an engine bound to the ledger's own account.
func New(cfg Config) (*Engine, error) {
	if cfg.Self.IsZero() {
		return nil, fmt.Errorf("ledger: Self is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		self:    cfg.Self,
		classes: cfg.Classes,
		hooks:   cfg.Hooks,
		logger:  logger,
	}, nil
}

// Self returns the ledger's own account.
func (e *Engine) Self() addr.Address { return e.self }

// Execute runs one operation. The message is shape-validated first;
// semantic failures (authorization, funds, allowances) surface as
// *token.Error values distinguished by Kind. On error the store may
// hold partial writes — the surrounding transaction discards them.
func (e *Engine) Execute(store Store, env Env, caller addr.Address, msg *token.Msg) (*Result, error) {
	if caller.IsZero() {
		return nil, token.Errorf(token.KindInvalidAddress, "caller address is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case msg.Transfer != nil:
		return e.transfer(store, env, caller, msg.Transfer)
	case msg.Send != nil:
		return e.send(store, env, caller, msg.Send)
	case msg.TransferFrom != nil:
		return e.transferFrom(store, env, caller, msg.TransferFrom)
	case msg.SendFrom != nil:
		return e.sendFrom(store, env, caller, msg.SendFrom)
	case msg.IncreaseAllowance != nil:
		return e.increaseAllowance(store, env, caller, msg.IncreaseAllowance)
	case msg.DecreaseAllowance != nil:
		return e.decreaseAllowance(store, env, caller, msg.DecreaseAllowance)
	case msg.Burn != nil:
		return e.burn(store, caller, msg.Burn)
	case msg.BurnFrom != nil:
		return e.burnFrom(store, env, caller, msg.BurnFrom)
	case msg.Mint != nil:
		return e.mint(store, caller, msg.Mint)
	case msg.UpdateMinter != nil:
		return e.updateMinter(store, caller, msg.UpdateMinter)
	case msg.UpdateMarketing != nil:
		return e.updateMarketing(store, caller, msg.UpdateMarketing)
	case msg.UploadLogo != nil:
		return e.uploadLogo(store, caller, msg.UploadLogo)
	case msg.SetTaxMap != nil:
		return e.setTaxMap(store, caller, msg.SetTaxMap)
	case msg.SetTaxAdmin != nil:
		return e.setTaxAdmin(store, caller, msg.SetTaxAdmin)
	}
	return nil, token.Errorf(token.KindInvalidMsg, "empty message")
}

// loadTaxMap reads the stored policy. Absence means the state was
// never instantiated or migrated, which no user input can cause.
func loadTaxMap(store Store) (tax.Map, error) {
	m, ok, err := store.TaxMap()
	if err != nil {
		return tax.Map{}, err
	}
	if !ok {
		return tax.Map{}, fmt.Errorf("ledger: tax map not initialized")
	}
	return m, nil
}

// debit removes value from the account's balance. An absent entry is a
// zero balance, so any nonzero debit of an unknown account fails.
func debit(store Store, account addr.Address, value amount.Amount) error {
	balance, err := store.Balance(account)
	if err != nil {
		return err
	}
	rest, err := balance.Sub(value)
	if err != nil {
		return token.Errorf(token.KindInsufficientFunds, "account %s holds %s, needs %s", account, balance, value)
	}
	return store.SetBalance(account, rest)
}

// credit adds value to the account's balance. A zero credit still
// writes the entry, so every account the ledger has touched shows up
// in account listings.
func credit(store Store, account addr.Address, value amount.Amount) error {
	balance, err := store.Balance(account)
	if err != nil {
		return err
	}
	sum, err := balance.Add(value)
	if err != nil {
		return token.Errorf(token.KindOverflow, "account %s: balance overflow", account)
	}
	return store.SetBalance(account, sum)
}
