// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fragwuerdig/cw20-taxed/host"
	"github.com/fragwuerdig/cw20-taxed/journal"
	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/lib/clock"
	"github.com/fragwuerdig/cw20-taxed/lib/codec"
	"github.com/fragwuerdig/cw20-taxed/lib/schema"
	"github.com/fragwuerdig/cw20-taxed/lib/service"
	"github.com/fragwuerdig/cw20-taxed/lib/testutil"
	"github.com/fragwuerdig/cw20-taxed/snapshot"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

var (
	alice = addr.MustParse("alice")
	bob   = addr.MustParse("bob")
)

// testEnv holds the service and the pieces tests reach into.
type testEnv struct {
	svc        *TokenService
	store      *ledger.MemStore
	clock      *clock.FakeClock
	journalDir string
}

// newTestService builds a TokenService over a MemStore holding one
// million tokens on alice, with an untaxed default policy.
func newTestService(t *testing.T) *testEnv {
	t.Helper()

	store := ledger.NewMemStore()
	if err := store.SetTokenInfo(token.Info{
		Name:        "Cash Token",
		Symbol:      "CASH",
		Decimals:    6,
		TotalSupply: amount.New(1_000_000),
	}); err != nil {
		t.Fatalf("SetTokenInfo: %v", err)
	}
	if err := store.SetBalance(alice, amount.New(1_000_000)); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if err := store.SetTaxMap(tax.DefaultMap()); err != nil {
		t.Fatalf("SetTaxMap: %v", err)
	}

	journalDir := t.TempDir()
	writer, err := journal.OpenWriter(journal.Config{Dir: journalDir})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	t.Cleanup(func() { writer.Close() })

	testClock := clock.FakeAt(time.Unix(1_770_000_000, 0).UTC())
	ledgerHost, err := host.New(host.Config{
		Store: store,
		Self:  addr.MustParse("ledger"),
		Clock: testClock,
	})
	if err != nil {
		t.Fatalf("host.New: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	return &testEnv{
		svc: &TokenService{
			host:        ledgerHost,
			store:       store,
			journal:     writer,
			clock:       testClock,
			logger:      logger,
			startedAt:   testClock.Now(),
			snapshotDir: t.TempDir(),
		},
		store:      store,
		clock:      testClock,
		journalDir: journalDir,
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := codec.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func checkBalance(t *testing.T, store ledger.Store, account addr.Address, want uint64) {
	t.Helper()
	got, err := store.Balance(account)
	if err != nil {
		t.Fatalf("Balance(%s): %v", account, err)
	}
	if !got.Equal(amount.New(want)) {
		t.Errorf("balance of %s = %s, want %d", account, got, want)
	}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	for range 500 {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("socket %s did not appear within timeout", path)
}

func TestExecuteTransfer(t *testing.T) {
	env := newTestService(t)

	raw := mustMarshal(t, schema.ExecuteRequest{
		Caller:    "alice",
		Msg:       &token.Msg{Transfer: &token.TransferMsg{Recipient: bob, Amount: amount.New(250)}},
		RequestID: "req-1",
	})
	res, err := env.svc.handleExecute(t.Context(), raw)
	if err != nil {
		t.Fatalf("handleExecute: %v", err)
	}
	response, ok := res.(schema.ExecuteResponse)
	if !ok {
		t.Fatalf("handleExecute returned %T", res)
	}
	if response.Height != 1 || response.Sequence != 1 {
		t.Errorf("response height %d sequence %d, want 1 1", response.Height, response.Sequence)
	}
	var action string
	for _, attribute := range response.Attributes {
		if attribute.Key == "action" {
			action = attribute.Value
		}
	}
	if action != "transfer" {
		t.Errorf("action attribute = %q, want transfer", action)
	}

	checkBalance(t, env.store, alice, 999_750)
	checkBalance(t, env.store, bob, 250)

	// Close flushes the open frame so the replay below sees it.
	if err := env.svc.journal.Close(); err != nil {
		t.Fatalf("journal close: %v", err)
	}
	var records []journal.Record
	err = journal.Replay(env.journalDir, func(r journal.Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("journal holds %d records, want 1", len(records))
	}
	record := records[0]
	if record.Height != 1 || !record.Caller.Equal(alice) {
		t.Errorf("journal record = height %d caller %s, want 1 alice", record.Height, record.Caller)
	}
	if record.Msg.Transfer == nil || !record.Msg.Transfer.Amount.Equal(amount.New(250)) {
		t.Errorf("journal record msg = %+v, want the transfer", record.Msg)
	}
}

func TestExecuteRejectsBadRequests(t *testing.T) {
	env := newTestService(t)

	if _, err := env.svc.handleExecute(t.Context(), mustMarshal(t, schema.ExecuteRequest{
		Caller: "Not An Account",
		Msg:    &token.Msg{Transfer: &token.TransferMsg{Recipient: bob, Amount: amount.New(1)}},
	})); err == nil {
		t.Error("expected error for an invalid caller")
	}

	if _, err := env.svc.handleExecute(t.Context(), mustMarshal(t, schema.ExecuteRequest{
		Caller: "alice",
	})); err == nil {
		t.Error("expected error for a missing msg")
	}
}

func TestExecuteRefusalLeavesNoTrace(t *testing.T) {
	env := newTestService(t)

	raw := mustMarshal(t, schema.ExecuteRequest{
		Caller: "alice",
		Msg:    &token.Msg{Transfer: &token.TransferMsg{Recipient: bob, Amount: amount.New(2_000_000)}},
	})
	if _, err := env.svc.handleExecute(t.Context(), raw); err == nil {
		t.Fatal("expected the overdraft to be refused")
	}

	if got := env.svc.host.Height(); got != 0 {
		t.Errorf("height advanced to %d on a refused operation", got)
	}
	if got := env.svc.journal.NextSequence(); got != 1 {
		t.Errorf("journal sequence advanced to %d on a refused operation", got)
	}
	checkBalance(t, env.store, alice, 1_000_000)
	checkBalance(t, env.store, bob, 0)
}

func TestQueryBalance(t *testing.T) {
	env := newTestService(t)

	raw := mustMarshal(t, schema.QueryRequest{
		Query: &token.Query{Balance: &token.BalanceQuery{Address: alice}},
	})
	res, err := env.svc.handleQuery(t.Context(), raw)
	if err != nil {
		t.Fatalf("handleQuery: %v", err)
	}
	response, ok := res.(token.BalanceResponse)
	if !ok {
		t.Fatalf("handleQuery returned %T", res)
	}
	if !response.Balance.Equal(amount.New(1_000_000)) {
		t.Errorf("balance = %s, want 1000000", response.Balance)
	}

	if _, err := env.svc.handleQuery(t.Context(), mustMarshal(t, schema.QueryRequest{})); err == nil {
		t.Error("expected error for a missing query")
	}
}

func TestStatus(t *testing.T) {
	env := newTestService(t)
	env.clock.Advance(90 * time.Second)

	res, err := env.svc.handleStatus(t.Context(), nil)
	if err != nil {
		t.Fatalf("handleStatus: %v", err)
	}
	status, ok := res.(schema.StatusResponse)
	if !ok {
		t.Fatalf("handleStatus returned %T", res)
	}
	if status.Height != 0 {
		t.Errorf("height = %d, want 0 before any operation", status.Height)
	}
	if status.TotalSupply != "1000000" {
		t.Errorf("total supply = %q, want 1000000", status.TotalSupply)
	}
	if len(status.StateDigest) != 64 {
		t.Errorf("state digest %q is not 32 hex bytes", status.StateDigest)
	}
	if status.UptimeSeconds != 90 {
		t.Errorf("uptime = %v, want 90", status.UptimeSeconds)
	}
	if status.Version == "" {
		t.Error("version is empty")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	env := newTestService(t)

	if _, err := env.svc.handleExecute(t.Context(), mustMarshal(t, schema.ExecuteRequest{
		Caller: "alice",
		Msg:    &token.Msg{Transfer: &token.TransferMsg{Recipient: bob, Amount: amount.New(250)}},
	})); err != nil {
		t.Fatalf("handleExecute: %v", err)
	}

	res, err := env.svc.handleSnapshot(t.Context(), mustMarshal(t, schema.SnapshotRequest{}))
	if err != nil {
		t.Fatalf("handleSnapshot: %v", err)
	}
	response, ok := res.(schema.SnapshotResponse)
	if !ok {
		t.Fatalf("handleSnapshot returned %T", res)
	}
	if response.Height != 1 {
		t.Errorf("snapshot height = %d, want 1", response.Height)
	}
	if filepath.Dir(response.Path) != env.svc.snapshotDir {
		t.Errorf("snapshot path %s is outside the snapshot directory", response.Path)
	}
	if !strings.HasSuffix(response.Path, "00000000000000000001.snap") {
		t.Errorf("snapshot path %s is not height-named", response.Path)
	}

	restored := ledger.NewMemStore()
	digest, err := snapshot.ReadFile(response.Path, restored, snapshot.ImportOptions{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if digest.String() != response.StateDigest {
		t.Errorf("imported digest %s, response said %s", digest, response.StateDigest)
	}
	checkBalance(t, restored, bob, 250)
	checkBalance(t, restored, alice, 999_750)
}

func TestSnapshotExplicitPath(t *testing.T) {
	env := newTestService(t)

	target := filepath.Join(t.TempDir(), "manual.snap")
	res, err := env.svc.handleSnapshot(t.Context(), mustMarshal(t, schema.SnapshotRequest{Path: target}))
	if err != nil {
		t.Fatalf("handleSnapshot: %v", err)
	}
	if got := res.(schema.SnapshotResponse).Path; got != target {
		t.Errorf("snapshot path = %s, want %s", got, target)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
}

func TestSnapshotLoopTicks(t *testing.T) {
	env := newTestService(t)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go env.svc.snapshotLoop(ctx, time.Hour)

	env.clock.WaitForTimers(1)
	env.clock.Advance(time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for {
		files, err := filepath.Glob(filepath.Join(env.svc.snapshotDir, "*.snap"))
		if err != nil {
			t.Fatalf("Glob: %v", err)
		}
		if len(files) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no snapshot appeared after a tick")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSocketEndToEnd(t *testing.T) {
	env := newTestService(t)

	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	server := service.NewSocketServer(socketPath, slog.New(slog.DiscardHandler))
	env.svc.registerActions(server)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ctx) }()
	waitForSocket(t, socketPath)

	client := service.NewClient(socketPath)

	var status schema.StatusResponse
	if err := client.Call(ctx, "status", nil, &status); err != nil {
		t.Fatalf("status call: %v", err)
	}
	if status.TotalSupply != "1000000" {
		t.Errorf("total supply = %q, want 1000000", status.TotalSupply)
	}

	var executed schema.ExecuteResponse
	err := client.Call(ctx, "execute", map[string]any{
		"caller": "alice",
		"msg": map[string]any{
			"transfer": map[string]any{"recipient": "bob", "amount": "4000"},
		},
	}, &executed)
	if err != nil {
		t.Fatalf("execute call: %v", err)
	}
	if executed.Height != 1 {
		t.Errorf("execute height = %d, want 1", executed.Height)
	}

	var balance token.BalanceResponse
	err = client.Call(context.Background(), "query", map[string]any{
		"query": map[string]any{"balance": map[string]any{"address": "bob"}},
	}, &balance)
	if err != nil {
		t.Fatalf("query call: %v", err)
	}
	if !balance.Balance.Equal(amount.New(4000)) {
		t.Errorf("queried balance = %s, want 4000", balance.Balance)
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 2*time.Second, "socket server shutdown"); err != nil {
		t.Errorf("Serve returned %v", err)
	}
}
