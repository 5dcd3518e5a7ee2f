// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package sqlstore persists verification checkpoints in the replay table and
// Merkle roots in the merkle_tree_proof table.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/sqldb"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

const (
	kLoadLastStmt       = "SELECT slot, verified_on FROM replay ORDER BY slot DESC LIMIT 1"
	kAppendStmt         = "INSERT INTO replay (slot, entry_index, verified_on) VALUES (?,0,?)"
	kAppendRootStmt     = "INSERT INTO merkle_tree_proof (slot, root_hash, updated_on) VALUES (?,?,?)"
	kLatestRootStmt     = "SELECT slot, root_hash, updated_on FROM merkle_tree_proof ORDER BY slot DESC LIMIT 1"
	kRootAtStmt         = "SELECT slot, root_hash, updated_on FROM merkle_tree_proof WHERE slot = ?"
	kLastReplaySlotStmt = "SELECT slot FROM replay ORDER BY slot DESC LIMIT 1"
	kLastRootSlotStmt   = "SELECT slot FROM merkle_tree_proof ORDER BY slot DESC LIMIT 1"
)

// Store implements checkpoint.Store and checkpoint.RootStore.
type Store struct {
	db             *sqldb.DB
	ownsDB         bool
	loadLast       *sql.Stmt
	append         *sql.Stmt
	appendRoot     *sql.Stmt
	latestRoot     *sql.Stmt
	rootAt         *sql.Stmt
	lastReplaySlot *sql.Stmt
	lastRootSlot   *sql.Stmt
}

// NewStore creates a store on an already opened database. The database is
// not closed when the store is closed.
func NewStore(db *sqldb.DB) (*Store, error) {
	s := &Store{db: db}
	for _, stmt := range []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.loadLast, kLoadLastStmt},
		{&s.append, kAppendStmt},
		{&s.appendRoot, kAppendRootStmt},
		{&s.latestRoot, kLatestRootStmt},
		{&s.rootAt, kRootAtStmt},
		{&s.lastReplaySlot, kLastReplaySlotStmt},
		{&s.lastRootSlot, kLastRootSlotStmt},
	} {
		prepared, err := db.Prepare(stmt.query)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to prepare %q; %w", stmt.query, err), s.closeStatements())
		}
		*stmt.dst = prepared
	}
	return s, nil
}

// OpenSQLite opens a store backed by its own SQLite file.
func OpenSQLite(ctx context.Context, file string) (*Store, error) {
	db, err := sqldb.OpenSQLite(ctx, file)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	s.ownsDB = true
	return s, nil
}

func (s *Store) LoadLast(ctx context.Context) (checkpoint.VerificationCheckpoint, bool, error) {
	var cp checkpoint.VerificationCheckpoint
	err := s.loadLast.QueryRowContext(ctx).Scan(&cp.Slot, &cp.VerifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cp, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("failed to load last checkpoint; %w", err)
	}
	return cp, true, nil
}

// Append checks monotonicity and inserts within one transaction.
func (s *Store) Append(ctx context.Context, cp checkpoint.VerificationCheckpoint) error {
	return s.appendMonotonic(ctx, s.lastReplaySlot, s.append, cp.Slot, cp.VerifiedAt.UTC())
}

func (s *Store) AppendRoot(ctx context.Context, root checkpoint.MerkleRootRecord) error {
	return s.appendMonotonic(ctx, s.lastRootSlot, s.appendRoot, root.Slot, root.RootHash.Hex(), root.UpdatedOn.UTC())
}

func (s *Store) appendMonotonic(ctx context.Context, last, insert *sql.Stmt, slot uint64, rest ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction; %w", err)
	}
	defer tx.Rollback()

	var lastSlot uint64
	err = tx.StmtContext(ctx, last).QueryRowContext(ctx).Scan(&lastSlot)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read last slot; %w", err)
	}
	if err == nil && lastSlot >= slot {
		return fmt.Errorf("%w: slot %d after %d", checkpoint.ErrNonMonotonic, slot, lastSlot)
	}
	args := append([]any{slot}, rest...)
	if _, err := tx.StmtContext(ctx, insert).ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("failed to insert slot %d; %w", slot, err)
	}
	return tx.Commit()
}

func (s *Store) LatestRoot(ctx context.Context) (checkpoint.MerkleRootRecord, bool, error) {
	return scanRoot(s.latestRoot.QueryRowContext(ctx))
}

func (s *Store) RootAt(ctx context.Context, slot uint64) (checkpoint.MerkleRootRecord, bool, error) {
	return scanRoot(s.rootAt.QueryRowContext(ctx, slot))
}

func scanRoot(row *sql.Row) (checkpoint.MerkleRootRecord, bool, error) {
	var (
		res  checkpoint.MerkleRootRecord
		hash string
	)
	err := row.Scan(&res.Slot, &hash, &res.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return res, false, nil
	}
	if err != nil {
		return res, false, fmt.Errorf("failed to read root; %w", err)
	}
	if res.RootHash, err = common.HashFromHex(hash); err != nil {
		return res, false, fmt.Errorf("corrupted root of slot %d; %w", res.Slot, err)
	}
	return res, true, nil
}

func (s *Store) Close() error {
	err := s.closeStatements()
	if s.ownsDB {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

func (s *Store) closeStatements() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.loadLast, s.append, s.appendRoot, s.latestRoot, s.rootAt, s.lastReplaySlot, s.lastRootSlot} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	return errors.Join(errs...)
}
