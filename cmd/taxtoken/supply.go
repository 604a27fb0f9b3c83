// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fragwuerdig/cw20-taxed/cmd/taxtoken/cli"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/token"
)

type mintParams struct {
	Caller
}

func mintCommand() *cli.Command {
	var params mintParams

	return &cli.Command{
		Name:    "mint",
		Summary: "Mint new tokens to an account (minter only)",
		Usage:   "taxtoken mint <recipient> <amount> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			recipient, value, err := parseRecipientAmount(args, "recipient")
			if err != nil {
				return err
			}
			response, err := params.execute(ctx, &token.Msg{
				Mint: &token.MintMsg{Recipient: recipient, Amount: value},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}

type burnParams struct {
	Caller
}

func burnCommand() *cli.Command {
	var params burnParams

	return &cli.Command{
		Name:    "burn",
		Summary: "Destroy tokens from the --from account, shrinking supply",
		Usage:   "taxtoken burn <amount> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("want exactly one amount argument, got %d", len(args))
			}
			value, err := amount.Parse(args[0])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			response, err := params.execute(ctx, &token.Msg{
				Burn: &token.BurnMsg{Amount: value},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}

type burnFromParams struct {
	Caller
}

func burnFromCommand() *cli.Command {
	var params burnFromParams

	return &cli.Command{
		Name:    "burn-from",
		Summary: "Destroy tokens from another account against an allowance",
		Usage:   "taxtoken burn-from <owner> <amount> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("want <owner> <amount>, got %d args", len(args))
			}
			owner, err := addr.Parse(args[0])
			if err != nil {
				return fmt.Errorf("owner: %w", err)
			}
			value, err := amount.Parse(args[1])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			response, err := params.execute(ctx, &token.Msg{
				BurnFrom: &token.BurnFromMsg{Owner: owner, Amount: value},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}
