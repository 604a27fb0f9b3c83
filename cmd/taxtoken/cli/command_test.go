// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCommandExecuteDispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "taxtoken",
		Subcommands: []*Command{
			{
				Name: "balance",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "balance"
					return nil
				},
			},
			{
				Name: "transfer",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "transfer"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"transfer"}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "transfer" {
		t.Errorf("dispatched to %q, want %q", called, "transfer")
	}
}

func TestCommandExecuteNestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "taxtoken",
		Subcommands: []*Command{
			{
				Name: "allowance",
				Subcommands: []*Command{
					{
						Name: "increase",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							called = "allowance increase"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	err := root.Execute(context.Background(), []string{"allowance", "increase", "carol", "1000"}, testLogger())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "allowance increase" {
		t.Errorf("dispatched to %q, want %q", called, "allowance increase")
	}
	if len(receivedArgs) != 2 || receivedArgs[0] != "carol" || receivedArgs[1] != "1000" {
		t.Errorf("received args %v, want [carol 1000]", receivedArgs)
	}
}

func TestCommandExecuteUnknownSubcommandSuggests(t *testing.T) {
	root := &Command{
		Name: "taxtoken",
		Subcommands: []*Command{
			{Name: "transfer"},
			{Name: "balance"},
			{Name: "status"},
		},
	}

	err := root.Execute(context.Background(), []string{"transfr"}, testLogger())
	if err == nil {
		t.Fatal("Execute() with unknown subcommand succeeded")
	}
	if !strings.Contains(err.Error(), `"transfer"`) {
		t.Errorf("error %q does not suggest transfer", err)
	}
}

func TestCommandExecuteParsesParamsFlags(t *testing.T) {
	type params struct {
		JSONOutput
		Expires string `flag:"expires" desc:"expiration"`
		Limit   uint32 `flag:"limit" desc:"page size" default:"10"`
	}

	var got params
	command := &Command{
		Name:   "show",
		Params: func() any { return &got },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			return nil
		},
	}

	err := command.Execute(context.Background(), []string{"--expires", "height:500", "--json"}, testLogger())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got.Expires != "height:500" {
		t.Errorf("Expires = %q, want %q", got.Expires, "height:500")
	}
	if got.Limit != 10 {
		t.Errorf("Limit = %d, want default 10", got.Limit)
	}
	if !got.OutputJSON {
		t.Error("OutputJSON not set by --json")
	}
}

func TestCommandExecuteUnknownFlagSuggests(t *testing.T) {
	type params struct {
		Expires string `flag:"expires" desc:"expiration"`
	}
	var p params
	command := &Command{
		Name:   "increase",
		Params: func() any { return &p },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			return nil
		},
	}

	err := command.Execute(context.Background(), []string{"--expries", "height:1"}, testLogger())
	if err == nil {
		t.Fatal("Execute() with unknown flag succeeded")
	}
	if !strings.Contains(err.Error(), "--expires") {
		t.Errorf("error %q does not suggest --expires", err)
	}
}

func TestCommandPrintHelpListsSubcommands(t *testing.T) {
	root := &Command{
		Name:    "taxtoken",
		Summary: "token ledger client",
		Subcommands: []*Command{
			{Name: "balance", Summary: "Show an account balance"},
			{Name: "transfer", Summary: "Move tokens to another account"},
		},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	help := buffer.String()

	for _, want := range []string{"balance", "Show an account balance", "transfer"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}
