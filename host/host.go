// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package host runs ledger operations atomically. The engine computes
// state changes and emits deferred actions; the host is what makes an
// operation and its whole action tree commit or vanish together, by
// running everything inside one store transaction.
//
// # Actions
//
// Actions run depth-first in emitted order. A Deliver hands the
// receive notice to the handler registered for the recipient account;
// accounts without a handler accept silently, so a send to a plain
// account is just a transfer. A SelfInvoke re-enters the engine with
// the ledger's own account as the caller, which is how escrowed tax
// drains to the proceeds account.
//
// Handlers may respond to a notice with follow-up messages, executed
// as the handler's own account inside the same transaction. The tax
// forward chain terminates on its own at depth two, because the
// forwarded transfer's recipient is the rule's proceeds account, which
// the rule exempts. The depth cap exists for handler loops, not for
// tax.
//
// # Height and time
//
// Each successful operation lands at its own height; failed operations
// leave the height untouched. Block time comes from the configured
// clock at execution start.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/clock"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// maxActionDepth bounds action recursion. Nothing the engine emits on
// its own exceeds depth two; the cap guards against handlers that
// answer a send with another send in a cycle.
const maxActionDepth = 8

// ReceiveHandler is a simulated contract account. Sends to its
// account deliver the notice to Receive; the returned messages run as
// the handler's account, inside the same atomic unit as the send that
// triggered them. Handlers never touch the ledger store directly.
type ReceiveHandler interface {
	// Class is the contract class that class-conditioned tax rules
	// match against.
	Class() uint64

	// Receive handles one delivered payload. An error aborts the
	// whole operation, send included.
	Receive(notice token.ReceiveNotice) ([]token.Msg, error)
}

// Config holds the parameters for creating a host.
type Config struct {
	// Store persists ledger state and provides the transaction
	// boundary. Required.
	Store ledger.Transactor

	// Self is the ledger's own account, where tax is escrowed before
	// forwarding. Required.
	Self addr.Address

	// Hooks run before each transfer-style operation, in order.
	Hooks []ledger.TransferHook

	// Clock stamps block time on executions. Required.
	Clock clock.Clock

	// InitialHeight is the height of the first executed operation.
	// Zero means 1.
	InitialHeight uint64

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger
}

// Host owns the engine, the store transaction boundary, and the
// receive-handler registry. It serializes execution: one operation
// and its actions run to completion before the next begins.
type Host struct {
	store  ledger.Transactor
	engine *ledger.Engine
	clock  clock.Clock
	logger *slog.Logger

	handlers *registry

	mu     sync.Mutex
	height uint64 // last committed height
}

// New returns a host executing against cfg.Store. The engine is built
// here so that class-conditioned tax rules resolve through the host's
// own handler registry.
func New(cfg Config) (*Host, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("host: Store is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("host: Clock is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	handlers := &registry{handlers: make(map[addr.Address]ReceiveHandler)}
	engine, err := ledger.New(ledger.Config{
		Self:    cfg.Self,
		Classes: handlers,
		Hooks:   cfg.Hooks,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	initialHeight := cfg.InitialHeight
	if initialHeight == 0 {
		initialHeight = 1
	}

	return &Host{
		store:    cfg.Store,
		engine:   engine,
		clock:    cfg.Clock,
		logger:   logger,
		handlers: handlers,
		height:   initialHeight - 1,
	}, nil
}

// Self returns the ledger's own account.
func (h *Host) Self() addr.Address { return h.engine.Self() }

// Height returns the height of the last committed operation.
func (h *Host) Height() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.height
}

// Register binds a receive handler to an account. Registering the
// same account twice is an error; simulated contracts do not move.
func (h *Host) Register(account addr.Address, handler ReceiveHandler) error {
	if account.IsZero() {
		return fmt.Errorf("host: handler account is required")
	}
	if handler == nil {
		return fmt.Errorf("host: handler for %s is nil", account)
	}
	return h.handlers.add(account, handler)
}

// Execute runs one operation and every action it gives rise to,
// inside a single store transaction. The returned result carries the
// operation's own attributes; nested executions keep theirs to
// themselves.
func (h *Host) Execute(ctx context.Context, caller addr.Address, msg *token.Msg) (*ledger.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env := ledger.Env{Height: h.height + 1, Time: h.clock.Now().UTC()}

	var result *ledger.Result
	err := h.store.Transact(ctx, func(store ledger.Store) error {
		res, err := h.engine.Execute(store, env, caller, msg)
		if err != nil {
			return err
		}
		if err := h.runActions(store, env, res.Actions, 0); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.height = env.Height
	h.logger.Debug("operation executed",
		"action", msg.Name(),
		"caller", caller,
		"height", env.Height,
	)
	return result, nil
}

// Query answers a read against a snapshot of committed state.
func (h *Host) Query(ctx context.Context, q *token.Query) (any, error) {
	var result any
	err := h.store.View(ctx, func(store ledger.Store) error {
		res, err := h.engine.Query(store, q)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runActions executes a result's deferred actions in order, recursing
// into the actions of nested executions.
func (h *Host) runActions(store ledger.Store, env ledger.Env, actions []ledger.Action, depth int) error {
	if len(actions) == 0 {
		return nil
	}
	if depth >= maxActionDepth {
		return fmt.Errorf("host: action recursion exceeds depth %d", maxActionDepth)
	}
	for _, action := range actions {
		switch a := action.(type) {
		case ledger.Deliver:
			if err := h.deliver(store, env, a, depth); err != nil {
				return err
			}
		case ledger.SelfInvoke:
			if err := h.invoke(store, env, h.engine.Self(), &a.Msg, depth); err != nil {
				return err
			}
		default:
			return fmt.Errorf("host: unknown action type %T", action)
		}
	}
	return nil
}

// deliver hands a notice to the recipient's handler and runs any
// follow-up messages the handler answers with.
func (h *Host) deliver(store ledger.Store, env ledger.Env, d ledger.Deliver, depth int) error {
	handler, ok := h.handlers.lookup(d.Contract)
	if !ok {
		// A plain account: the tokens are already credited and there
		// is nobody to notify.
		return nil
	}
	msgs, err := handler.Receive(d.Notice)
	if err != nil {
		return fmt.Errorf("host: receive by %s: %w", d.Contract, err)
	}
	for i := range msgs {
		if err := h.invoke(store, env, d.Contract, &msgs[i], depth); err != nil {
			return err
		}
	}
	return nil
}

// invoke re-enters the engine one level deeper.
func (h *Host) invoke(store ledger.Store, env ledger.Env, caller addr.Address, msg *token.Msg, depth int) error {
	res, err := h.engine.Execute(store, env, caller, msg)
	if err != nil {
		return err
	}
	return h.runActions(store, env, res.Actions, depth+1)
}

// registry maps accounts to their receive handlers. It doubles as the
// engine's class resolver: an account has a contract class exactly
// when a handler is registered for it.
type registry struct {
	mu       sync.RWMutex
	handlers map[addr.Address]ReceiveHandler
}

func (r *registry) add(account addr.Address, handler ReceiveHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[account]; exists {
		return fmt.Errorf("host: handler already registered for %s", account)
	}
	r.handlers[account] = handler
	return nil
}

func (r *registry) lookup(account addr.Address) (ReceiveHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[account]
	return handler, ok
}

// ContractClass implements tax.ClassResolver.
func (r *registry) ContractClass(account addr.Address) (uint64, bool) {
	handler, ok := r.lookup(account)
	if !ok {
		return 0, false
	}
	return handler.Class(), true
}
