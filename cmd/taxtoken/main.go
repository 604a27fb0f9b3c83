// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// taxtoken is the command-line client for the token daemon. It speaks
// the daemon's CBOR socket protocol: executing transfer operations,
// reading balances and allowances, and managing the tax policy.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fragwuerdig/cw20-taxed/cmd/taxtoken/cli"
	"github.com/fragwuerdig/cw20-taxed/lib/schema"
	"github.com/fragwuerdig/cw20-taxed/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := cli.NewCommandLogger()
	return rootCommand().Execute(ctx, os.Args[1:], logger)
}

// rootCommand assembles the complete taxtoken command tree.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "taxtoken",
		Description: `taxtoken: client for the tax-aware token ledger daemon.

Execute transfers, manage allowances, and inspect the tax policy over
the daemon's unix socket. Write operations run as the --from account
(or $TAXTOKEN_FROM); the socket grants access to every account, so
protect it with filesystem permissions.`,
		Subcommands: []*cli.Command{
			balanceCommand(),
			infoCommand(),
			accountsCommand(),
			transferCommand(),
			sendCommand(),
			transferFromCommand(),
			sendFromCommand(),
			allowanceCommand(),
			taxCommand(),
			mintCommand(),
			burnCommand(),
			burnFromCommand(),
			statusCommand(),
			snapshotCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("taxtoken %s\n", version.Info())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Show an account balance",
				Command:     "taxtoken balance alice",
			},
			{
				Description: "Transfer tokens (net of any configured tax)",
				Command:     "taxtoken transfer bob 76543 --from alice",
			},
			{
				Description: "Grant a spending allowance expiring at height 5000",
				Command:     "taxtoken allowance increase carol 77777 --expires height:5000 --from alice",
			},
			{
				Description: "Inspect the tax policy",
				Command:     "taxtoken tax show",
			},
		},
	}
}

// printExecuted reports a committed operation: the height it landed at
// and the engine's attributes, one per line.
func printExecuted(response *schema.ExecuteResponse) {
	fmt.Printf("committed at height %d\n", response.Height)
	for _, attribute := range response.Attributes {
		fmt.Printf("  %s: %s\n", attribute.Key, attribute.Value)
	}
}
