// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fragwuerdig/cw20-taxed/cmd/taxtoken/cli"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func taxCommand() *cli.Command {
	return &cli.Command{
		Name:    "tax",
		Summary: "Inspect and manage the tax policy",
		Subcommands: []*cli.Command{
			taxShowCommand(),
			taxSetMapCommand(),
			taxSetAdminCommand(),
		},
	}
}

// --- show ---

type taxShowParams struct {
	Connection
	cli.JSONOutput
}

func taxShowCommand() *cli.Command {
	var params taxShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show the current tax map",
		Usage:   "taxtoken tax show [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			taxMap, err := runQuery[tax.Map](ctx, &params.Connection,
				&token.Query{TaxMap: &token.TaxMapQuery{}})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(taxMap); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "CATEGORY\tSOURCE\tDESTINATION\tPROCEEDS")
			for _, entry := range []struct {
				category tax.Category
				rule     tax.Rule
			}{
				{tax.OnTransfer, taxMap.OnTransfer},
				{tax.OnTransferFrom, taxMap.OnTransferFrom},
				{tax.OnSend, taxMap.OnSend},
				{tax.OnSendFrom, taxMap.OnSendFrom},
			} {
				proceeds := entry.rule.Proceeds.String()
				if proceeds == "" {
					proceeds = "-"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					entry.category,
					describeCondition(entry.rule.Src),
					describeCondition(entry.rule.Dst),
					proceeds,
				)
			}
			if err := writer.Flush(); err != nil {
				return err
			}
			if !taxMap.Admin.IsZero() {
				fmt.Printf("admin: %s\n", taxMap.Admin)
			} else {
				fmt.Println("admin: none (policy frozen)")
			}
			return nil
		},
	}
}

// describeCondition renders one condition for the table view.
func describeCondition(condition tax.Condition) string {
	switch {
	case condition.Always != nil:
		return fmt.Sprintf("always @ %s", condition.Always.Rate)
	case condition.Class != nil:
		classes := make([]string, len(condition.Class.Classes))
		for i, class := range condition.Class.Classes {
			classes[i] = fmt.Sprint(class)
		}
		return fmt.Sprintf("classes [%s] @ %s", strings.Join(classes, " "), condition.Class.Rate)
	}
	return "never"
}

// --- set-map ---

type taxSetMapParams struct {
	Caller
	File string `flag:"file" desc:"JSON file holding the new tax map (omit to reset to untaxed)"`
}

func taxSetMapCommand() *cli.Command {
	var params taxSetMapParams

	return &cli.Command{
		Name:    "set-map",
		Summary: "Replace the tax map (tax admin only)",
		Description: `Replace the full tax policy with the map read from --file. Without
--file the policy resets to its default — no transfer is taxed — while
the admin role is preserved. The daemon validates the map before
persisting it; an invalid map leaves the prior policy in effect.`,
		Usage: "taxtoken tax set-map [flags]",
		Examples: []cli.Example{
			{Command: "taxtoken tax set-map --file policy.json --from admin"},
			{
				Description: "Reset all categories to untaxed",
				Command:     "taxtoken tax set-map --from admin",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			msg := &token.SetTaxMapMsg{}
			if params.File != "" {
				data, err := os.ReadFile(params.File)
				if err != nil {
					return fmt.Errorf("reading tax map: %w", err)
				}
				var taxMap tax.Map
				if err := json.Unmarshal(data, &taxMap); err != nil {
					return fmt.Errorf("parsing %s: %w", params.File, err)
				}
				// Validated client-side for a better error message; the
				// daemon validates again before persisting.
				if err := taxMap.Validate(); err != nil {
					return fmt.Errorf("invalid tax map: %w", err)
				}
				msg.TaxMap = &taxMap
			}

			response, err := params.execute(ctx, &token.Msg{SetTaxMap: msg})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}

// --- set-admin ---

type taxSetAdminParams struct {
	Caller
}

func taxSetAdminCommand() *cli.Command {
	var params taxSetAdminParams

	return &cli.Command{
		Name:    "set-admin",
		Summary: "Hand the tax-admin role to another account (tax admin only)",
		Description: `Reassign the account allowed to change the tax policy. Without an
argument the role is cleared permanently, freezing the current policy.`,
		Usage: "taxtoken tax set-admin [new-admin] [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 1 {
				return fmt.Errorf("want at most one new-admin argument, got %d", len(args))
			}
			msg := &token.SetTaxAdminMsg{}
			if len(args) == 1 {
				admin, err := addr.Parse(args[0])
				if err != nil {
					return fmt.Errorf("new admin: %w", err)
				}
				msg.TaxAdmin = &admin
			}

			response, err := params.execute(ctx, &token.Msg{SetTaxAdmin: msg})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}
