// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/lib/schema"
	"github.com/fragwuerdig/cw20-taxed/lib/service"
	"github.com/fragwuerdig/cw20-taxed/token"
)

// accountPageSize is the page size used when walking the account
// index. Matches the server-side maximum so each page is one call.
const accountPageSize = 30

// maxAccounts caps how many accounts one refresh will load. A watch
// view of the first N accounts is enough; unbounded walks would turn
// every refresh into a full table scan on large ledgers.
const maxAccounts = 300

// fetchTimeout bounds one full refresh (status + info + account walk).
const fetchTimeout = 20 * time.Second

// accountRow is one line of the account table.
type accountRow struct {
	Address string
	Balance amount.Amount
}

// watchData is everything one refresh pulls from the daemon.
type watchData struct {
	Status    schema.StatusResponse
	Info      token.Info
	Accounts  []accountRow
	Truncated bool
	FetchedAt time.Time
}

// fetchFunc loads a watchData snapshot. Injected so model tests can
// run without a daemon.
type fetchFunc func(ctx context.Context) (watchData, error)

// socketFetcher loads watch data over the daemon socket.
type socketFetcher struct {
	client *service.Client
}

func (f *socketFetcher) fetch(ctx context.Context) (watchData, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var data watchData

	if err := f.client.Call(ctx, "status", nil, &data.Status); err != nil {
		return watchData{}, err
	}
	if err := f.query(ctx, &token.Query{TokenInfo: &token.TokenInfoQuery{}}, &data.Info); err != nil {
		return watchData{}, err
	}

	var cursor addr.Address
	for len(data.Accounts) < maxAccounts {
		var page token.AllAccountsResponse
		query := &token.Query{AllAccounts: &token.AllAccountsQuery{
			StartAfter: cursor,
			Limit:      accountPageSize,
		}}
		if err := f.query(ctx, query, &page); err != nil {
			return watchData{}, err
		}
		if len(page.Accounts) == 0 {
			break
		}
		for _, account := range page.Accounts {
			if len(data.Accounts) >= maxAccounts {
				data.Truncated = true
				break
			}
			var balance token.BalanceResponse
			balanceQuery := &token.Query{Balance: &token.BalanceQuery{Address: account}}
			if err := f.query(ctx, balanceQuery, &balance); err != nil {
				return watchData{}, err
			}
			data.Accounts = append(data.Accounts, accountRow{
				Address: account.String(),
				Balance: balance.Balance,
			})
		}
		if len(page.Accounts) < accountPageSize {
			break
		}
		cursor = page.Accounts[len(page.Accounts)-1]
	}

	data.FetchedAt = time.Now()
	return data, nil
}

func (f *socketFetcher) query(ctx context.Context, query *token.Query, result any) error {
	return f.client.Call(ctx, "query", map[string]any{"query": query}, result)
}

// Messages.

type tickMsg time.Time

type dataMsg struct {
	data watchData
	err  error
}

// keymap holds the active key bindings.
type keymap struct {
	Quit    key.Binding
	Refresh key.Binding
}

func defaultKeymap() keymap {
	return keymap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)
)

// model is the bubbletea model for the watch view.
type model struct {
	fetch    fetchFunc
	interval time.Duration
	keys     keymap

	table  table.Model
	data   watchData
	err    error
	loaded bool
	width  int
	height int
}

func newModel(fetch fetchFunc, interval time.Duration) model {
	columns := []table.Column{
		{Title: "ACCOUNT", Width: 44},
		{Title: "BALANCE", Width: 24},
	}
	accountTable := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("57"))
	accountTable.SetStyles(styles)

	return model{
		fetch:    fetch,
		interval: interval,
		keys:     defaultKeymap(),
		table:    accountTable,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.tickCmd())
}

func (m model) refreshCmd() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		data, err := fetch(context.Background())
		return dataMsg{data: data, err: err}
	}
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refreshCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Header, status line, and help line take four rows; the
		// table header and border take three more.
		tableHeight := msg.Height - 7
		if tableHeight < 3 {
			tableHeight = 3
		}
		m.table.SetHeight(tableHeight)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), m.tickCmd())

	case dataMsg:
		m.err = msg.err
		if msg.err == nil {
			m.data = msg.data
			m.loaded = true
			m.table.SetRows(accountRows(msg.data.Accounts))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func accountRows(accounts []accountRow) []table.Row {
	rows := make([]table.Row, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, table.Row{account.Address, account.Balance.String()})
	}
	return rows
}

func (m model) View() string {
	header := headerStyle.Render(m.headerLine())
	status := statusStyle.Render(m.statusLine())

	body := m.table.View()
	if m.err != nil {
		body = errorStyle.Render(fmt.Sprintf("refresh failed: %v", m.err)) + "\n" + body
	}

	help := helpStyle.Render("q quit · r refresh · up/down move")
	return header + "\n" + status + "\n" + body + "\n" + help
}

func (m model) headerLine() string {
	if !m.loaded {
		return "taxtoken-watch · connecting"
	}
	return fmt.Sprintf("%s (%s) · supply %s",
		m.data.Info.Name, m.data.Info.Symbol, m.data.Info.TotalSupply.String())
}

func (m model) statusLine() string {
	if !m.loaded {
		return "waiting for first refresh"
	}
	digest := m.data.Status.StateDigest
	if len(digest) > 12 {
		digest = digest[:12]
	}
	line := fmt.Sprintf("height %d · digest %s · %d accounts",
		m.data.Status.Height, digest, len(m.data.Accounts))
	if m.data.Truncated {
		line += fmt.Sprintf(" (first %d)", maxAccounts)
	}
	return line
}
