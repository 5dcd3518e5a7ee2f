// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestConfig_PostgresDataSourceIsAssembledFromFields(t *testing.T) {
	cfg := Config{Host: "db", User: "solana", Password: "pw", DBName: "ledger"}
	dsn, err := cfg.DataSource()
	if err != nil {
		t.Fatalf("failed to build data source: %v", err)
	}
	if want, got := "host=db port=5432 user=solana password=pw dbname=ledger sslmode=disable", dsn; want != got {
		t.Errorf("unexpected data source: want %q, got %q", want, got)
	}
}

func TestConfig_ExplicitDsnTakesPrecedence(t *testing.T) {
	cfg := Config{Driver: SQLite, DBName: "ignored", DSN: "file::memory:"}
	dsn, err := cfg.DataSource()
	if err != nil {
		t.Fatalf("failed to build data source: %v", err)
	}
	if want, got := "file::memory:", dsn; want != got {
		t.Errorf("unexpected data source: want %q, got %q", want, got)
	}
}

func TestConfig_UnknownDriverIsRejected(t *testing.T) {
	_, err := Config{Driver: "oracle"}.DataSource()
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDB_RebindNumbersPlaceholdersForPostgres(t *testing.T) {
	pg := &DB{driver: Postgres}
	if want, got := "SELECT a FROM t WHERE x = $1 AND y = $2", pg.Rebind("SELECT a FROM t WHERE x = ? AND y = ?"); want != got {
		t.Errorf("unexpected query: want %q, got %q", want, got)
	}
	lite := &DB{driver: SQLite}
	if want, got := "SELECT ?", lite.Rebind("SELECT ?"); want != got {
		t.Errorf("unexpected query: want %q, got %q", want, got)
	}
}

func TestOpenSQLite_CreatesAllTables(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if want, got := SQLite, db.Driver(); want != got {
		t.Errorf("unexpected driver: want %v, got %v", want, got)
	}
	for _, table := range []string{"entry", "replay", "merkle_tree_proof"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
	// creating tables again is a no-op
	if err := db.CreateTables(ctx); err != nil {
		t.Errorf("failed to re-create tables: %v", err)
	}
}
