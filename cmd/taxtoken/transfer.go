// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fragwuerdig/cw20-taxed/cmd/taxtoken/cli"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// parseRecipientAmount parses the two positional args shared by the
// transfer-style commands.
func parseRecipientAmount(args []string, recipientName string) (addr.Address, amount.Amount, error) {
	if len(args) != 2 {
		return addr.Address{}, amount.Amount{}, fmt.Errorf("want <%s> <amount>, got %d args", recipientName, len(args))
	}
	recipient, err := addr.Parse(args[0])
	if err != nil {
		return addr.Address{}, amount.Amount{}, fmt.Errorf("%s: %w", recipientName, err)
	}
	value, err := amount.Parse(args[1])
	if err != nil {
		return addr.Address{}, amount.Amount{}, fmt.Errorf("amount: %w", err)
	}
	return recipient, value, nil
}

// --- transfer ---

type transferParams struct {
	Caller
}

func transferCommand() *cli.Command {
	var params transferParams

	return &cli.Command{
		Name:    "transfer",
		Summary: "Move tokens to another account",
		Description: `Move tokens from the --from account to a recipient. When the tax
policy taxes this transfer, the recipient receives the net amount and
the tax is diverted to the policy's proceeds account; the emitted
attributes show the split.`,
		Usage: "taxtoken transfer <recipient> <amount> [flags]",
		Examples: []cli.Example{
			{Command: "taxtoken transfer bob 76543 --from alice"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			recipient, value, err := parseRecipientAmount(args, "recipient")
			if err != nil {
				return err
			}
			response, err := params.execute(ctx, &token.Msg{
				Transfer: &token.TransferMsg{Recipient: recipient, Amount: value},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}

// --- send ---

type sendParams struct {
	Caller
	Payload     string `flag:"payload" desc:"payload delivered to the recipient contract (inline)"`
	PayloadFile string `flag:"payload-file" desc:"read the payload from this file"`
}

func (p *sendParams) payload() ([]byte, error) {
	if p.Payload != "" && p.PayloadFile != "" {
		return nil, fmt.Errorf("--payload and --payload-file are mutually exclusive")
	}
	if p.PayloadFile != "" {
		data, err := os.ReadFile(p.PayloadFile)
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		return data, nil
	}
	return []byte(p.Payload), nil
}

func sendCommand() *cli.Command {
	var params sendParams

	return &cli.Command{
		Name:    "send",
		Summary: "Move tokens to a contract account with a payload",
		Description: `Like transfer, but the recipient is a contract account and receives a
notice carrying the net amount and the payload. The notice is
delivered only after the transfer itself succeeds; if the recipient
rejects it, the whole operation is rolled back.`,
		Usage: "taxtoken send <contract> <amount> [flags]",
		Examples: []cli.Example{
			{Command: `taxtoken send pool 1000 --payload '{"deposit":{}}' --from alice`},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			contract, value, err := parseRecipientAmount(args, "contract")
			if err != nil {
				return err
			}
			payload, err := params.payload()
			if err != nil {
				return err
			}
			response, err := params.execute(ctx, &token.Msg{
				Send: &token.SendMsg{Contract: contract, Amount: value, Payload: payload},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}

// --- transfer-from ---

type transferFromParams struct {
	Caller
}

func transferFromCommand() *cli.Command {
	var params transferFromParams

	return &cli.Command{
		Name:    "transfer-from",
		Summary: "Move tokens out of another account against an allowance",
		Description: `Move tokens from the owner's account to a recipient, spending the
allowance the owner granted to the --from account. Fails when the
allowance is missing, expired, or smaller than the amount.`,
		Usage: "taxtoken transfer-from <owner> <recipient> <amount> [flags]",
		Examples: []cli.Example{
			{Command: "taxtoken transfer-from alice bob 44444 --from carol"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 3 {
				return fmt.Errorf("want <owner> <recipient> <amount>, got %d args", len(args))
			}
			owner, err := addr.Parse(args[0])
			if err != nil {
				return fmt.Errorf("owner: %w", err)
			}
			recipient, value, err := parseRecipientAmount(args[1:], "recipient")
			if err != nil {
				return err
			}
			response, err := params.execute(ctx, &token.Msg{
				TransferFrom: &token.TransferFromMsg{Owner: owner, Recipient: recipient, Amount: value},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}

// --- send-from ---

type sendFromParams struct {
	sendParams
}

func sendFromCommand() *cli.Command {
	var params sendFromParams

	return &cli.Command{
		Name:    "send-from",
		Summary: "Send tokens with a payload out of another account",
		Usage:   "taxtoken send-from <owner> <contract> <amount> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 3 {
				return fmt.Errorf("want <owner> <contract> <amount>, got %d args", len(args))
			}
			owner, err := addr.Parse(args[0])
			if err != nil {
				return fmt.Errorf("owner: %w", err)
			}
			contract, value, err := parseRecipientAmount(args[1:], "contract")
			if err != nil {
				return err
			}
			payload, err := params.payload()
			if err != nil {
				return err
			}
			response, err := params.execute(ctx, &token.Msg{
				SendFrom: &token.SendFromMsg{Owner: owner, Contract: contract, Amount: value, Payload: payload},
			})
			if err != nil {
				return err
			}
			printExecuted(response)
			return nil
		},
	}
}
