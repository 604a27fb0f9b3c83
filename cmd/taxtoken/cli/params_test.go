// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestBindFlagsTaggedFields(t *testing.T) {
	type params struct {
		Socket   string   `flag:"socket,s" desc:"daemon socket" default:"/run/taxtoken/daemon.sock"`
		Verbose  bool     `flag:"verbose" desc:"more output"`
		Limit    uint32   `flag:"limit" desc:"page size" default:"10"`
		Accounts []string `flag:"account" desc:"accounts to include"`
		Ignored  string   // no flag tag
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags() error: %v", err)
	}

	err := flagSet.Parse([]string{
		"-s", "/tmp/dev.sock",
		"--verbose",
		"--account", "alice", "--account", "bob",
	})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if p.Socket != "/tmp/dev.sock" {
		t.Errorf("Socket = %q, want /tmp/dev.sock", p.Socket)
	}
	if !p.Verbose {
		t.Error("Verbose not set")
	}
	if p.Limit != 10 {
		t.Errorf("Limit = %d, want default 10", p.Limit)
	}
	if len(p.Accounts) != 2 || p.Accounts[0] != "alice" || p.Accounts[1] != "bob" {
		t.Errorf("Accounts = %v, want [alice bob]", p.Accounts)
	}
	if flagSet.Lookup("ignored") != nil {
		t.Error("untagged field bound as a flag")
	}
}

func TestBindFlagsEmbeddedStruct(t *testing.T) {
	type common struct {
		Socket string `flag:"socket" desc:"daemon socket"`
	}
	type params struct {
		common
		Amount string `flag:"amount" desc:"token amount"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags() error: %v", err)
	}
	if err := flagSet.Parse([]string{"--socket", "/tmp/a.sock", "--amount", "100"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.Socket != "/tmp/a.sock" || p.Amount != "100" {
		t.Errorf("got %+v", p)
	}
}

type binderParams struct {
	added bool
}

func (b *binderParams) AddFlags(flagSet *pflag.FlagSet) {
	b.added = true
	flagSet.String("custom", "", "custom flag")
}

func TestBindFlagsFlagBinder(t *testing.T) {
	type params struct {
		Binder binderParams
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags() error: %v", err)
	}
	if !p.Binder.added {
		t.Error("FlagBinder.AddFlags not called")
	}
	if flagSet.Lookup("custom") == nil {
		t.Error("custom flag not registered")
	}
}

func TestBindFlagsRejectsNonStruct(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags("not a struct", flagSet); err == nil {
		t.Error("BindFlags() accepted a non-pointer")
	}
	value := 42
	if err := BindFlags(&value, flagSet); err == nil {
		t.Error("BindFlags() accepted a pointer to non-struct")
	}
}

func TestBindFlagsUnsupportedType(t *testing.T) {
	type params struct {
		Rate float32 `flag:"rate"`
	}
	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err == nil {
		t.Error("BindFlags() accepted an unsupported field type")
	}
}
