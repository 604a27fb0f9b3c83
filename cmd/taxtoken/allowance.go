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
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func allowanceCommand() *cli.Command {
	return &cli.Command{
		Name:    "allowance",
		Summary: "Inspect and manage spending allowances",
		Subcommands: []*cli.Command{
			allowanceShowCommand(),
			allowanceListCommand(),
			allowanceBySpenderCommand(),
			allowanceIncreaseCommand(),
			allowanceDecreaseCommand(),
		},
	}
}

// parseExpires parses the --expires flag: "never", "height:N", or
// "time:N" (unix nanoseconds). An empty flag means nil, leaving any
// stored expiration untouched.
func parseExpires(raw string) (*token.Expiration, error) {
	if raw == "" {
		return nil, nil
	}
	var expires token.Expiration
	if err := expires.UnmarshalText([]byte(raw)); err != nil {
		return nil, err
	}
	return &expires, nil
}

// --- show ---

type allowanceShowParams struct {
	Connection
	cli.JSONOutput
}

func allowanceShowCommand() *cli.Command {
	var params allowanceShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one owner/spender allowance",
		Usage:   "taxtoken allowance show <owner> <spender> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("want <owner> <spender>, got %d args", len(args))
			}
			owner, err := addr.Parse(args[0])
			if err != nil {
				return fmt.Errorf("owner: %w", err)
			}
			spender, err := addr.Parse(args[1])
			if err != nil {
				return fmt.Errorf("spender: %w", err)
			}

			response, err := runQuery[token.AllowanceResponse](ctx, &params.Connection,
				&token.Query{Allowance: &token.AllowanceQuery{Owner: owner, Spender: spender}})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(response); done {
				return err
			}
			fmt.Printf("%s (expires %s)\n", response.Allowance, response.Expires)
			return nil
		},
	}
}

// --- list (by owner) ---

type allowanceListParams struct {
	Connection
	cli.JSONOutput
	StartAfter string `flag:"start-after" desc:"resume listing after this spender"`
	Limit      uint32 `flag:"limit" desc:"page size (max 30)" default:"10"`
}

func allowanceListCommand() *cli.Command {
	var params allowanceListParams

	return &cli.Command{
		Name:    "list",
		Summary: "List the allowances an owner has granted",
		Usage:   "taxtoken allowance list <owner> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("want exactly one owner argument, got %d", len(args))
			}
			owner, err := addr.Parse(args[0])
			if err != nil {
				return fmt.Errorf("owner: %w", err)
			}

			query := &token.Query{AllAllowances: &token.AllAllowancesQuery{Owner: owner, Limit: params.Limit}}
			if params.StartAfter != "" {
				if err := query.AllAllowances.StartAfter.UnmarshalText([]byte(params.StartAfter)); err != nil {
					return err
				}
			}

			response, err := runQuery[token.AllAllowancesResponse](ctx, &params.Connection, query)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(response.Allowances); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "SPENDER\tALLOWANCE\tEXPIRES")
			for _, entry := range response.Allowances {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Spender, entry.Allowance, entry.Expires)
			}
			return writer.Flush()
		},
	}
}

// --- by-spender (mirror index) ---

type allowanceBySpenderParams struct {
	Connection
	cli.JSONOutput
	StartAfter string `flag:"start-after" desc:"resume listing after this owner"`
	Limit      uint32 `flag:"limit" desc:"page size (max 30)" default:"10"`
}

func allowanceBySpenderCommand() *cli.Command {
	var params allowanceBySpenderParams

	return &cli.Command{
		Name:    "by-spender",
		Summary: "List the allowances granted to a spender",
		Usage:   "taxtoken allowance by-spender <spender> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("want exactly one spender argument, got %d", len(args))
			}
			spender, err := addr.Parse(args[0])
			if err != nil {
				return fmt.Errorf("spender: %w", err)
			}

			query := &token.Query{AllSpenderAllowances: &token.AllSpenderAllowancesQuery{
				Spender: spender, Limit: params.Limit}}
			if params.StartAfter != "" {
				if err := query.AllSpenderAllowances.StartAfter.UnmarshalText([]byte(params.StartAfter)); err != nil {
					return err
				}
			}

			response, err := runQuery[token.AllSpenderAllowancesResponse](ctx, &params.Connection, query)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(response.Allowances); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "OWNER\tALLOWANCE\tEXPIRES")
			for _, entry := range response.Allowances {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Owner, entry.Allowance, entry.Expires)
			}
			return writer.Flush()
		},
	}
}

// --- increase / decrease ---

type allowanceMutateParams struct {
	Caller
	Expires string `flag:"expires" desc:"new expiration: never, height:N, or time:N (unix nanos)"`
}

func (p *allowanceMutateParams) parse(args []string) (addr.Address, amount.Amount, *token.Expiration, error) {
	if len(args) != 2 {
		return addr.Address{}, amount.Amount{}, nil, fmt.Errorf("want <spender> <amount>, got %d args", len(args))
	}
	spender, err := addr.Parse(args[0])
	if err != nil {
		return addr.Address{}, amount.Amount{}, nil, fmt.Errorf("spender: %w", err)
	}
	value, err := amount.Parse(args[1])
	if err != nil {
		return addr.Address{}, amount.Amount{}, nil, fmt.Errorf("amount: %w", err)
	}
	expires, err := parseExpires(p.Expires)
	if err != nil {
		return addr.Address{}, amount.Amount{}, nil, err
	}
	return spender, value, expires, nil
}

func allowanceIncreaseCommand() *cli.Command {
	var params allowanceMutateParams

	return &cli.Command{
		Name:    "increase",
		Summary: "Raise the allowance granted to a spender",
		Usage:   "taxtoken allowance increase <spender> <amount> [flags]",
		Examples: []cli.Example{
			{Command: "taxtoken allowance increase carol 77777 --expires height:5000 --from alice"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			spender, value, expires, err := params.parse(args)
			if err != nil {
				return err
			}
			response, err := params.execute(ctx, &token.Msg{
				IncreaseAllowance: &token.IncreaseAllowanceMsg{Spender: spender, Amount: value, Expires: expires},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}

func allowanceDecreaseCommand() *cli.Command {
	var params allowanceMutateParams

	return &cli.Command{
		Name:    "decrease",
		Summary: "Lower the allowance granted to a spender, clamping at zero",
		Usage:   "taxtoken allowance decrease <spender> <amount> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			spender, value, expires, err := params.parse(args)
			if err != nil {
				return err
			}
			response, err := params.execute(ctx, &token.Msg{
				DecreaseAllowance: &token.DecreaseAllowanceMsg{Spender: spender, Amount: value, Expires: expires},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}
