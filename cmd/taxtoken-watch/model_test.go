// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/lib/schema"
	"github.com/fragwuerdig/cw20-taxed/token"
)

func testData() watchData {
	return watchData{
		Status: schema.StatusResponse{
			Height:      42,
			TotalSupply: "1000000",
			StateDigest: "deadbeefdeadbeefdeadbeef",
		},
		Info: token.Info{
			Name:        "Test Token",
			Symbol:      "TEST",
			Decimals:    6,
			TotalSupply: amount.New(1000000),
		},
		Accounts: []accountRow{
			{Address: "alice", Balance: amount.New(600000)},
			{Address: "bob", Balance: amount.New(400000)},
		},
		FetchedAt: time.Now(),
	}
}

func staticFetch(data watchData, err error) fetchFunc {
	return func(context.Context) (watchData, error) {
		return data, err
	}
}

func updateModel(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return updated, cmd
}

func TestModelViewBeforeFirstRefresh(t *testing.T) {
	m := newModel(staticFetch(testData(), nil), time.Second)

	view := m.View()
	if !strings.Contains(view, "connecting") {
		t.Errorf("initial view should show the connecting header, got:\n%s", view)
	}
	if !strings.Contains(view, "waiting for first refresh") {
		t.Errorf("initial view should show the waiting status, got:\n%s", view)
	}
}

func TestModelDataMsgPopulatesTable(t *testing.T) {
	m := newModel(staticFetch(testData(), nil), time.Second)

	m, _ = updateModel(t, m, dataMsg{data: testData()})

	view := m.View()
	for _, want := range []string{"Test Token", "TEST", "height 42", "alice", "bob", "600000"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q, got:\n%s", want, view)
		}
	}
	if !strings.Contains(view, "deadbeefdead") {
		t.Errorf("view should show the shortened digest, got:\n%s", view)
	}
	if strings.Contains(view, "deadbeefdeadb") {
		t.Errorf("digest should be truncated to twelve characters, got:\n%s", view)
	}
}

func TestModelFetchErrorKeepsLastData(t *testing.T) {
	m := newModel(staticFetch(testData(), nil), time.Second)
	m, _ = updateModel(t, m, dataMsg{data: testData()})

	m, _ = updateModel(t, m, dataMsg{err: errors.New("socket gone")})

	view := m.View()
	if !strings.Contains(view, "refresh failed") {
		t.Errorf("view should surface the fetch error, got:\n%s", view)
	}
	if !strings.Contains(view, "alice") {
		t.Error("stale accounts should remain visible after a failed refresh")
	}
}

func TestModelQuitKeys(t *testing.T) {
	m := newModel(staticFetch(testData(), nil), time.Second)

	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := updateModel(t, m, k)
		if cmd == nil {
			t.Fatalf("key %v should produce a command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("key %v did not produce a quit message", k)
		}
	}
}

func TestModelRefreshKeyTriggersFetch(t *testing.T) {
	called := false
	fetch := func(context.Context) (watchData, error) {
		called = true
		return testData(), nil
	}
	m := newModel(fetch, time.Second)

	_, cmd := updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil {
		t.Fatal("refresh key should produce a command")
	}
	msg := cmd()
	if !called {
		t.Error("refresh command should invoke the fetcher")
	}
	data, ok := msg.(dataMsg)
	if !ok {
		t.Fatalf("refresh produced %T, want dataMsg", msg)
	}
	if data.data.Info.Name != "Test Token" {
		t.Errorf("fetched token name = %q, want %q", data.data.Info.Name, "Test Token")
	}
}

func TestModelTickSchedulesRefresh(t *testing.T) {
	m := newModel(staticFetch(testData(), nil), time.Millisecond)

	_, cmd := updateModel(t, m, tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should schedule a refresh and the next tick")
	}
}

func TestModelWindowResize(t *testing.T) {
	m := newModel(staticFetch(testData(), nil), time.Second)

	m, _ = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if m.height != 24 {
		t.Errorf("stored height = %d, want 24", m.height)
	}

	// Tiny windows clamp the table rather than going negative.
	m, _ = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 4})
	if m.table.Height() < 3 {
		t.Errorf("table height = %d, should be clamped to at least 3", m.table.Height())
	}
}
