// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package sqldb manages the relational database shared by the record,
// checkpoint and root stores. SQLite is used for local deployments and
// tests, PostgreSQL for the production shred store.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	SQLite   Driver = "sqlite3"
	Postgres Driver = "postgres"
)

const ErrUnsupportedDriver = common.ConstError("unsupported database driver")

// Config describes how to reach the database. Either DSN is given directly,
// or it is assembled from the individual connection fields.
type Config struct {
	Driver   Driver `json:"driver"`
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	DSN      string `json:"dsn,omitempty"`
}

// DataSource returns the driver specific data source name.
func (c Config) DataSource() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.driver() {
	case Postgres:
		port := c.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, port, c.User, c.Password, c.DBName), nil
	case SQLite:
		if c.DBName == "" {
			return "", fmt.Errorf("sqlite database requires a file name in dbname")
		}
		return "file:" + c.DBName, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
}

func (c Config) driver() Driver {
	if c.Driver == "" {
		return Postgres
	}
	return c.Driver
}

var (
	// See https://www.sqlite.org/pragma.html
	kConfigureSQLite = []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
)

const (
	kCreateEntryTableSQLite   = "CREATE TABLE IF NOT EXISTS entry (slot BIGINT NOT NULL, entry_index BIGINT NOT NULL, entry BLOB NOT NULL, parent_slot BIGINT, is_full_slot BOOLEAN NOT NULL DEFAULT FALSE, updated_on TIMESTAMP NOT NULL, PRIMARY KEY (slot, entry_index))"
	kCreateEntryTablePostgres = "CREATE TABLE IF NOT EXISTS entry (slot BIGINT NOT NULL, entry_index BIGINT NOT NULL, entry BYTEA NOT NULL, parent_slot BIGINT, is_full_slot BOOL NOT NULL DEFAULT FALSE, updated_on TIMESTAMP NOT NULL, PRIMARY KEY (slot, entry_index))"
	kCreateReplayTable        = "CREATE TABLE IF NOT EXISTS replay (slot BIGINT NOT NULL PRIMARY KEY, entry_index BIGINT NOT NULL DEFAULT 0, verified_on TIMESTAMP NOT NULL)"
	kCreateRootTable          = "CREATE TABLE IF NOT EXISTS merkle_tree_proof (slot BIGINT NOT NULL PRIMARY KEY, root_hash TEXT NOT NULL, updated_on TIMESTAMP NOT NULL)"
)

// DB is a database handle aware of the dialect of its driver.
type DB struct {
	*sql.DB
	driver Driver
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dsn, err := cfg.DataSource()
	if err != nil {
		return nil, err
	}
	driver := cfg.driver()
	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database; %w", driver, err)
	}
	if driver == SQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
		for _, cmd := range kConfigureSQLite {
			if _, err := db.ExecContext(ctx, cmd); err != nil {
				return nil, errors.Join(fmt.Errorf("failed to configure connection with %s; %w", cmd, err), db.Close())
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to %s database; %w", driver, err), db.Close())
	}
	return &DB{DB: db, driver: driver}, nil
}

// OpenSQLite opens (and creates if needed) an SQLite database file including
// all tables.
func OpenSQLite(ctx context.Context, file string) (*DB, error) {
	db, err := Open(ctx, Config{Driver: SQLite, DBName: file})
	if err != nil {
		return nil, err
	}
	if err := db.CreateTables(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

// Driver returns the driver the database was opened with.
func (db *DB) Driver() Driver {
	return db.driver
}

// CreateTables creates the entry, replay and merkle_tree_proof tables if
// they are missing.
func (db *DB) CreateTables(ctx context.Context) error {
	entry := kCreateEntryTableSQLite
	if db.driver == Postgres {
		entry = kCreateEntryTablePostgres
	}
	for name, stmt := range map[string]string{
		"entry":             entry,
		"replay":            kCreateReplayTable,
		"merkle_tree_proof": kCreateRootTable,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s table; %w", name, err)
		}
	}
	return nil
}

// Rebind rewrites ?-placeholders into the numbered form used by PostgreSQL.
// Queries must not contain literal question marks.
func (db *DB) Rebind(query string) string {
	if db.driver != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Prepare prepares a statement written with ?-placeholders.
func (db *DB) Prepare(query string) (*sql.Stmt, error) {
	return db.DB.Prepare(db.Rebind(query))
}
