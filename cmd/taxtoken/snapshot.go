// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fragwuerdig/cw20-taxed/cmd/taxtoken/cli"
	"github.com/fragwuerdig/cw20-taxed/lib/schema"
)

type snapshotParams struct {
	Connection
	cli.JSONOutput
	Path       string   `flag:"path" desc:"file the daemon writes the snapshot to (default: its snapshot directory)"`
	Recipients []string `flag:"recipient" desc:"age public key to encrypt to (repeatable; overrides daemon config)"`
}

func snapshotCommand() *cli.Command {
	var params snapshotParams

	return &cli.Command{
		Name:    "snapshot",
		Summary: "Ask the daemon to export its full state to a file",
		Description: `Export the complete ledger state — balances, allowances, metadata,
and the tax map — to a snapshot file on the daemon host. The reported
state digest matches what "taxtoken status" shows at the same height,
which is how an export is verified against the live ledger.`,
		Usage: "taxtoken snapshot [flags]",
		Examples: []cli.Example{
			{Command: "taxtoken snapshot --path /var/backups/ledger.snap"},
			{
				Description: "Encrypted export for an operator key",
				Command:     "taxtoken snapshot --recipient age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			ctx, cancel := callContext(ctx)
			defer cancel()

			request := map[string]any{}
			if params.Path != "" {
				request["path"] = params.Path
			}
			if len(params.Recipients) > 0 {
				request["recipients"] = params.Recipients
			}

			var response schema.SnapshotResponse
			if err := params.client().Call(ctx, "snapshot", request, &response); err != nil {
				return err
			}

			if done, err := params.EmitJSON(response); done {
				return err
			}
			fmt.Printf("snapshot written to %s\n", response.Path)
			fmt.Printf("  height: %d\n", response.Height)
			fmt.Printf("  state digest: %s\n", response.StateDigest)
			return nil
		},
	}
}
