// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// taxtoken-watch is a terminal UI for watching a token ledger live:
// the account table with balances, total supply, height, and the
// state digest, refreshed over the daemon socket at a fixed interval.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fragwuerdig/cw20-taxed/lib/service"
	"github.com/fragwuerdig/cw20-taxed/lib/version"
)

const defaultSocket = "/run/taxtoken/daemon.sock"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var socketPath string
	var interval time.Duration

	flagSet := pflag.NewFlagSet("taxtoken-watch", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "daemon socket path (default: $TAXTOKEN_SOCKET or "+defaultSocket+")")
	flagSet.DurationVar(&interval, "interval", 2*time.Second, "refresh interval")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("taxtoken-watch %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	if socketPath == "" {
		socketPath = os.Getenv("TAXTOKEN_SOCKET")
	}
	if socketPath == "" {
		socketPath = defaultSocket
	}
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	fetcher := &socketFetcher{client: service.NewClient(socketPath)}
	model := newModel(fetcher.fetch, interval)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Live terminal view of a token ledger.

Shows the account table with balances alongside supply, height, and
the state digest, refreshed from the daemon socket every --interval.

Usage:
  taxtoken-watch [flags]

Keys:
  q, ctrl+c   quit
  r           refresh now
  up/down     move the account cursor

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
