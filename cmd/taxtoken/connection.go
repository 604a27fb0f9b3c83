// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/fragwuerdig/cw20-taxed/lib/schema"
	"github.com/fragwuerdig/cw20-taxed/lib/service"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// defaultSocket mirrors the daemon config default. TAXTOKEN_SOCKET
// overrides it for development daemons; --socket wins over both.
const defaultSocket = "/run/taxtoken/daemon.sock"

// callTimeout bounds one request/response round trip, including
// handler execution time on the daemon side.
const callTimeout = 30 * time.Second

// Connection is the embeddable parameter struct carrying the daemon
// socket flag. It implements [cli.FlagBinder] so every command that
// embeds it gets the same --socket flag.
type Connection struct {
	Socket string
}

// AddFlags binds the connection flags.
func (c *Connection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Socket, "socket", "", "daemon socket path (default: $TAXTOKEN_SOCKET or "+defaultSocket+")")
}

// client resolves the socket path and returns a client for it.
func (c *Connection) client() *service.Client {
	path := c.Socket
	if path == "" {
		path = os.Getenv("TAXTOKEN_SOCKET")
	}
	if path == "" {
		path = defaultSocket
	}
	return service.NewClient(path)
}

// callContext derives the per-call timeout context.
func callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, callTimeout)
}

// Caller is the embeddable parameter struct for commands that execute
// operations: the connection plus the account the operation runs as.
type Caller struct {
	Connection
	From string
}

// AddFlags binds the connection and caller flags.
func (c *Caller) AddFlags(flagSet *pflag.FlagSet) {
	c.Connection.AddFlags(flagSet)
	flagSet.StringVar(&c.From, "from", "", "account the operation runs as (default: $TAXTOKEN_FROM)")
}

// caller resolves the --from account, falling back to TAXTOKEN_FROM.
func (c *Caller) caller() (string, error) {
	from := c.From
	if from == "" {
		from = os.Getenv("TAXTOKEN_FROM")
	}
	if from == "" {
		return "", fmt.Errorf("--from is required (or set TAXTOKEN_FROM)")
	}
	return from, nil
}

// execute runs one operation as the resolved caller and returns the
// daemon's response.
func (c *Caller) execute(ctx context.Context, msg *token.Msg) (*schema.ExecuteResponse, error) {
	from, err := c.caller()
	if err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	var response schema.ExecuteResponse
	fields := map[string]any{"caller": from, "msg": msg}
	if err := c.client().Call(ctx, "execute", fields, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// runQuery sends one read-only query and decodes the typed response.
func runQuery[T any](ctx context.Context, connection *Connection, query *token.Query) (*T, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	var response T
	fields := map[string]any{"query": query}
	if err := connection.client().Call(ctx, "query", fields, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
