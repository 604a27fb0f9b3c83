// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlite persists ledger state in a SQLite database. It
// implements both ledger.Store and ledger.Transactor: plain method
// calls each borrow a pooled connection, while Transact binds one
// connection for the whole closure so the engine's reads and writes
// land in a single IMMEDIATE transaction.
//
// Balances and allowances are relational tables keyed by address
// strings, whose bytewise ordering gives the paging reads their
// ascending order for free. One allowances table serves both lookup
// directions; the spender-keyed index is the mirror. The singleton
// records (token info, marketing, logo, tax map, version) are stored
// as canonical CBOR blobs, amounts and expirations in their text
// forms.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/lib/codec"
	"github.com/fragwuerdig/cw20-taxed/lib/sqlitepool"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

const schema = `
	CREATE TABLE IF NOT EXISTS balances (
		account TEXT PRIMARY KEY,
		value   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS allowances (
		owner   TEXT NOT NULL,
		spender TEXT NOT NULL,
		amount  TEXT NOT NULL,
		expires TEXT NOT NULL,
		PRIMARY KEY (owner, spender)
	);
	CREATE INDEX IF NOT EXISTS idx_allowances_spender
		ON allowances(spender, owner);

	CREATE TABLE IF NOT EXISTS singletons (
		name  TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
`

// Singleton row names.
const (
	keyTokenInfo = "token_info"
	keyMarketing = "marketing"
	keyLogo      = "logo"
	keyTaxMap    = "tax_map"
	keyVersion   = "version"
)

// StoreConfig holds the parameters for opening a ledger store.
type StoreConfig struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Logger receives operational messages.
	Logger *slog.Logger
}

// Store is a SQLite-backed ledger store.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// OpenStore opens the database at cfg.Path, creating the file and the
// schema if they do not exist.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("ledger store: Logger is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: %w", err)
	}

	return &Store{pool: pool, logger: cfg.Logger}, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Transact runs fn inside an IMMEDIATE transaction on one pooled
// connection. If fn returns an error the transaction rolls back and
// the error is returned.
func (s *Store) Transact(ctx context.Context, fn func(ledger.Store) error) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("ledger store: transact: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("ledger store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = fn(connStore{conn})
	return err
}

// View runs fn against a savepoint on one pooled connection, so all
// of fn's reads see the same state even with concurrent writers.
func (s *Store) View(ctx context.Context, fn func(ledger.Store) error) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("ledger store: view: %w", err)
	}
	defer s.pool.Put(conn)

	defer sqlitex.Save(conn)(&err)
	err = fn(connStore{conn})
	return err
}

// The plain Store methods serve callers outside a transaction, each
// on a connection of its own. They block on pool capacity, not on
// writers: WAL mode keeps readers unblocked.

func (s *Store) Balance(account addr.Address) (amount.Amount, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return amount.Zero(), err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.Balance(account)
}

func (s *Store) SetBalance(account addr.Address, value amount.Amount) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.SetBalance(account, value)
}

func (s *Store) Accounts(after addr.Address, limit int) ([]addr.Address, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.Accounts(after, limit)
}

func (s *Store) Allowance(owner, spender addr.Address) (ledger.Allowance, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return ledger.Allowance{}, false, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.Allowance(owner, spender)
}

func (s *Store) SetAllowance(owner, spender addr.Address, grant ledger.Allowance) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.SetAllowance(owner, spender, grant)
}

func (s *Store) DeleteAllowance(owner, spender addr.Address) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.DeleteAllowance(owner, spender)
}

func (s *Store) AllowancesByOwner(owner, after addr.Address, limit int) ([]ledger.Grant, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.AllowancesByOwner(owner, after, limit)
}

func (s *Store) AllowancesBySpender(spender, after addr.Address, limit int) ([]ledger.Grant, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.AllowancesBySpender(spender, after, limit)
}

func (s *Store) Grants() ([]ledger.Grant, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.Grants()
}

func (s *Store) TokenInfo() (token.Info, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return token.Info{}, false, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.TokenInfo()
}

func (s *Store) SetTokenInfo(info token.Info) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.SetTokenInfo(info)
}

func (s *Store) Marketing() (token.Marketing, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return token.Marketing{}, false, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.Marketing()
}

func (s *Store) SetMarketing(marketing token.Marketing) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.SetMarketing(marketing)
}

func (s *Store) DeleteMarketing() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.DeleteMarketing()
}

func (s *Store) Logo() (token.Logo, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return token.Logo{}, false, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.Logo()
}

func (s *Store) SetLogo(logo token.Logo) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.SetLogo(logo)
}

func (s *Store) TaxMap() (tax.Map, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return tax.Map{}, false, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.TaxMap()
}

func (s *Store) SetTaxMap(m tax.Map) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.SetTaxMap(m)
}

func (s *Store) Version() (ledger.Version, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return ledger.Version{}, false, err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.Version()
}

func (s *Store) SetVersion(v ledger.Version) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return connStore{conn}.SetVersion(v)
}

// connStore implements ledger.Store on one borrowed connection. It is
// what Transact and View hand to their closures; the pooled Store
// methods above go through it too, one connection per call.
type connStore struct {
	conn *sqlite.Conn
}

func (cs connStore) Balance(account addr.Address) (amount.Amount, error) {
	value := amount.Zero()
	err := sqlitex.Execute(cs.conn,
		"SELECT value FROM balances WHERE account = ?",
		&sqlitex.ExecOptions{
			Args: []any{account.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				parsed, err := amount.Parse(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("balance of %s: %v", account, err)
				}
				value = parsed
				return nil
			},
		})
	if err != nil {
		return amount.Zero(), fmt.Errorf("ledger store: %w", err)
	}
	return value, nil
}

func (cs connStore) SetBalance(account addr.Address, value amount.Amount) error {
	err := sqlitex.Execute(cs.conn,
		`INSERT INTO balances (account, value) VALUES (?, ?)
		ON CONFLICT (account) DO UPDATE SET value = excluded.value`,
		&sqlitex.ExecOptions{
			Args: []any{account.String(), value.String()},
		})
	if err != nil {
		return fmt.Errorf("ledger store: set balance: %w", err)
	}
	return nil
}

func (cs connStore) Accounts(after addr.Address, limit int) ([]addr.Address, error) {
	var accounts []addr.Address
	err := sqlitex.Execute(cs.conn,
		"SELECT account FROM balances WHERE account > ? ORDER BY account LIMIT ?",
		&sqlitex.ExecOptions{
			Args: []any{after.String(), sqlLimit(limit)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				account, err := addr.Parse(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("account %q: %v", stmt.ColumnText(0), err)
				}
				accounts = append(accounts, account)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: accounts: %w", err)
	}
	return accounts, nil
}

func (cs connStore) Allowance(owner, spender addr.Address) (ledger.Allowance, bool, error) {
	var grant ledger.Allowance
	found := false
	err := sqlitex.Execute(cs.conn,
		"SELECT amount, expires FROM allowances WHERE owner = ? AND spender = ?",
		&sqlitex.ExecOptions{
			Args: []any{owner.String(), spender.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				parsed, err := scanAllowance(stmt, 0)
				if err != nil {
					return err
				}
				grant = parsed
				found = true
				return nil
			},
		})
	if err != nil {
		return ledger.Allowance{}, false, fmt.Errorf("ledger store: allowance: %w", err)
	}
	return grant, found, nil
}

func (cs connStore) SetAllowance(owner, spender addr.Address, grant ledger.Allowance) error {
	expires, err := grant.Expires.MarshalText()
	if err != nil {
		return fmt.Errorf("ledger store: set allowance: %w", err)
	}
	err = sqlitex.Execute(cs.conn,
		`INSERT INTO allowances (owner, spender, amount, expires) VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, spender)
		DO UPDATE SET amount = excluded.amount, expires = excluded.expires`,
		&sqlitex.ExecOptions{
			Args: []any{owner.String(), spender.String(), grant.Amount.String(), string(expires)},
		})
	if err != nil {
		return fmt.Errorf("ledger store: set allowance: %w", err)
	}
	return nil
}

func (cs connStore) DeleteAllowance(owner, spender addr.Address) error {
	err := sqlitex.Execute(cs.conn,
		"DELETE FROM allowances WHERE owner = ? AND spender = ?",
		&sqlitex.ExecOptions{
			Args: []any{owner.String(), spender.String()},
		})
	if err != nil {
		return fmt.Errorf("ledger store: delete allowance: %w", err)
	}
	return nil
}

func (cs connStore) AllowancesByOwner(owner, after addr.Address, limit int) ([]ledger.Grant, error) {
	var grants []ledger.Grant
	err := sqlitex.Execute(cs.conn,
		`SELECT owner, spender, amount, expires FROM allowances
		WHERE owner = ? AND spender > ? ORDER BY spender LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{owner.String(), after.String(), sqlLimit(limit)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				grant, err := scanGrant(stmt)
				if err != nil {
					return err
				}
				grants = append(grants, grant)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: allowances by owner: %w", err)
	}
	return grants, nil
}

func (cs connStore) AllowancesBySpender(spender, after addr.Address, limit int) ([]ledger.Grant, error) {
	var grants []ledger.Grant
	err := sqlitex.Execute(cs.conn,
		`SELECT owner, spender, amount, expires FROM allowances
		WHERE spender = ? AND owner > ? ORDER BY owner LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{spender.String(), after.String(), sqlLimit(limit)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				grant, err := scanGrant(stmt)
				if err != nil {
					return err
				}
				grants = append(grants, grant)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: allowances by spender: %w", err)
	}
	return grants, nil
}

func (cs connStore) Grants() ([]ledger.Grant, error) {
	var grants []ledger.Grant
	err := sqlitex.Execute(cs.conn,
		"SELECT owner, spender, amount, expires FROM allowances ORDER BY owner, spender",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				grant, err := scanGrant(stmt)
				if err != nil {
					return err
				}
				grants = append(grants, grant)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: grants: %w", err)
	}
	return grants, nil
}

func (cs connStore) TokenInfo() (token.Info, bool, error) {
	var info token.Info
	ok, err := cs.readSingleton(keyTokenInfo, &info)
	return info, ok, err
}

func (cs connStore) SetTokenInfo(info token.Info) error {
	return cs.writeSingleton(keyTokenInfo, info)
}

func (cs connStore) Marketing() (token.Marketing, bool, error) {
	var marketing token.Marketing
	ok, err := cs.readSingleton(keyMarketing, &marketing)
	return marketing, ok, err
}

func (cs connStore) SetMarketing(marketing token.Marketing) error {
	return cs.writeSingleton(keyMarketing, marketing)
}

func (cs connStore) DeleteMarketing() error {
	err := sqlitex.Execute(cs.conn,
		"DELETE FROM singletons WHERE name = ?",
		&sqlitex.ExecOptions{Args: []any{keyMarketing}})
	if err != nil {
		return fmt.Errorf("ledger store: delete %s: %w", keyMarketing, err)
	}
	return nil
}

func (cs connStore) Logo() (token.Logo, bool, error) {
	var logo token.Logo
	ok, err := cs.readSingleton(keyLogo, &logo)
	return logo, ok, err
}

func (cs connStore) SetLogo(logo token.Logo) error {
	return cs.writeSingleton(keyLogo, logo)
}

func (cs connStore) TaxMap() (tax.Map, bool, error) {
	var m tax.Map
	ok, err := cs.readSingleton(keyTaxMap, &m)
	return m, ok, err
}

func (cs connStore) SetTaxMap(m tax.Map) error {
	return cs.writeSingleton(keyTaxMap, m)
}

func (cs connStore) Version() (ledger.Version, bool, error) {
	var v ledger.Version
	ok, err := cs.readSingleton(keyVersion, &v)
	return v, ok, err
}

func (cs connStore) SetVersion(v ledger.Version) error {
	return cs.writeSingleton(keyVersion, v)
}

// readSingleton decodes the named row into out. The second return is
// false when no row exists; out is then untouched.
func (cs connStore) readSingleton(name string, out any) (bool, error) {
	var blob []byte
	found := false
	err := sqlitex.Execute(cs.conn,
		"SELECT value FROM singletons WHERE name = ?",
		&sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				blob = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, blob)
				found = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("ledger store: read %s: %w", name, err)
	}
	if !found {
		return false, nil
	}
	if err := codec.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("ledger store: decode %s: %w", name, err)
	}
	return true, nil
}

func (cs connStore) writeSingleton(name string, v any) error {
	blob, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("ledger store: encode %s: %w", name, err)
	}
	err = sqlitex.Execute(cs.conn,
		`INSERT INTO singletons (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`,
		&sqlitex.ExecOptions{Args: []any{name, blob}})
	if err != nil {
		return fmt.Errorf("ledger store: write %s: %w", name, err)
	}
	return nil
}

// scanGrant reads a full (owner, spender, amount, expires) row.
func scanGrant(stmt *sqlite.Stmt) (ledger.Grant, error) {
	owner, err := addr.Parse(stmt.ColumnText(0))
	if err != nil {
		return ledger.Grant{}, fmt.Errorf("owner %q: %v", stmt.ColumnText(0), err)
	}
	spender, err := addr.Parse(stmt.ColumnText(1))
	if err != nil {
		return ledger.Grant{}, fmt.Errorf("spender %q: %v", stmt.ColumnText(1), err)
	}
	grant, err := scanAllowance(stmt, 2)
	if err != nil {
		return ledger.Grant{}, err
	}
	return ledger.Grant{Owner: owner, Spender: spender, Allowance: grant}, nil
}

// scanAllowance reads an (amount, expires) column pair starting at
// the given column index.
func scanAllowance(stmt *sqlite.Stmt, column int) (ledger.Allowance, error) {
	value, err := amount.Parse(stmt.ColumnText(column))
	if err != nil {
		return ledger.Allowance{}, fmt.Errorf("allowance amount: %v", err)
	}
	var expires token.Expiration
	if err := expires.UnmarshalText([]byte(stmt.ColumnText(column + 1))); err != nil {
		return ledger.Allowance{}, fmt.Errorf("allowance expiration: %v", err)
	}
	return ledger.Allowance{Amount: value, Expires: expires}, nil
}

// sqlLimit maps the Store convention (non-positive means no limit) to
// the SQLite one (negative LIMIT means no limit).
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
