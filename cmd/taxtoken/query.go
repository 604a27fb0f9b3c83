// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/fragwuerdig/cw20-taxed/cmd/taxtoken/cli"
	"github.com/fragwuerdig/cw20-taxed/lib/schema"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// --- balance ---

type balanceParams struct {
	Connection
	cli.JSONOutput
}

func balanceCommand() *cli.Command {
	var params balanceParams

	return &cli.Command{
		Name:    "balance",
		Summary: "Show an account balance",
		Usage:   "taxtoken balance <address> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("want exactly one address argument, got %d", len(args))
			}

			query := &token.Query{Balance: &token.BalanceQuery{}}
			if err := query.Balance.Address.UnmarshalText([]byte(args[0])); err != nil {
				return err
			}

			response, err := runQuery[token.BalanceResponse](ctx, &params.Connection, query)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(response); done {
				return err
			}
			fmt.Println(response.Balance)
			return nil
		},
	}
}

// --- info ---

type infoParams struct {
	Connection
	cli.JSONOutput
}

// infoReport is the combined metadata the info command prints.
type infoReport struct {
	token.Info
	Minter    *token.Minter    `json:"mint,omitempty"`
	Marketing *token.Marketing `json:"marketing,omitempty"`
}

func infoCommand() *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "Show token metadata: name, symbol, supply, mint role",
		Usage:   "taxtoken info [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			info, err := runQuery[token.Info](ctx, &params.Connection,
				&token.Query{TokenInfo: &token.TokenInfoQuery{}})
			if err != nil {
				return err
			}

			var minter *token.Minter
			mintCtx, cancel := callContext(ctx)
			err = params.client().Call(mintCtx, "query",
				map[string]any{"query": &token.Query{Minter: &token.MinterQuery{}}}, &minter)
			cancel()
			if err != nil {
				return err
			}

			marketing, err := runQuery[token.Marketing](ctx, &params.Connection,
				&token.Query{MarketingInfo: &token.MarketingInfoQuery{}})
			if err != nil {
				return err
			}

			report := infoReport{Info: *info, Minter: minter}
			if !marketing.IsEmpty() {
				report.Marketing = marketing
			}

			if done, err := params.EmitJSON(report); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "name\t%s\n", report.Name)
			fmt.Fprintf(writer, "symbol\t%s\n", report.Symbol)
			fmt.Fprintf(writer, "decimals\t%d\n", report.Decimals)
			fmt.Fprintf(writer, "total supply\t%s\n", report.TotalSupply)
			if report.Minter != nil {
				fmt.Fprintf(writer, "minter\t%s\n", report.Minter.Address)
				if report.Minter.Cap != nil {
					fmt.Fprintf(writer, "supply cap\t%s\n", report.Minter.Cap)
				}
			}
			if report.Marketing != nil {
				if report.Marketing.Project != "" {
					fmt.Fprintf(writer, "project\t%s\n", report.Marketing.Project)
				}
				if report.Marketing.Description != "" {
					fmt.Fprintf(writer, "description\t%s\n", report.Marketing.Description)
				}
			}
			return writer.Flush()
		},
	}
}

// --- accounts ---

type accountsParams struct {
	Connection
	cli.JSONOutput
	StartAfter string `flag:"start-after" desc:"resume listing after this address"`
	Limit      uint32 `flag:"limit" desc:"page size (max 30)" default:"10"`
	All        bool   `flag:"all" desc:"page through every account"`
}

func accountsCommand() *cli.Command {
	var params accountsParams

	return &cli.Command{
		Name:    "accounts",
		Summary: "List accounts holding a balance entry",
		Usage:   "taxtoken accounts [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			accounts, err := collectAccounts(ctx, &params)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(accounts); done {
				return err
			}
			for _, account := range accounts {
				fmt.Println(account)
			}
			return nil
		},
	}
}

// collectAccounts fetches one page, or with --all follows the cursor
// until a short page ends the listing.
func collectAccounts(ctx context.Context, params *accountsParams) ([]string, error) {
	var accounts []string
	cursor := params.StartAfter
	for {
		query := &token.Query{AllAccounts: &token.AllAccountsQuery{Limit: params.Limit}}
		if cursor != "" {
			if err := query.AllAccounts.StartAfter.UnmarshalText([]byte(cursor)); err != nil {
				return nil, err
			}
		}

		page, err := runQuery[token.AllAccountsResponse](ctx, &params.Connection, query)
		if err != nil {
			return nil, err
		}
		for _, account := range page.Accounts {
			accounts = append(accounts, account.String())
		}

		if !params.All || len(page.Accounts) == 0 {
			return accounts, nil
		}
		cursor = page.Accounts[len(page.Accounts)-1].String()
	}
}

// --- status ---

type statusParams struct {
	Connection
	cli.JSONOutput
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show daemon height, supply, and state digest",
		Usage:   "taxtoken status [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			ctx, cancel := callContext(ctx)
			defer cancel()

			var response schema.StatusResponse
			if err := params.client().Call(ctx, "status", nil, &response); err != nil {
				return err
			}

			if done, err := params.EmitJSON(response); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "height\t%d\n", response.Height)
			fmt.Fprintf(writer, "total supply\t%s\n", response.TotalSupply)
			fmt.Fprintf(writer, "state digest\t%s\n", response.StateDigest)
			fmt.Fprintf(writer, "uptime\t%.0fs\n", response.UptimeSeconds)
			fmt.Fprintf(writer, "version\t%s\n", response.Version)
			return writer.Flush()
		},
	}
}
