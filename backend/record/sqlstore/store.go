// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package sqlstore implements the record store on top of the entry table of
// the shred database.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/sqldb"
	"github.com/Eclipse-Laboratories-Inc/execution/common/immutable"
)

const (
	kQuerySlotStmt = "SELECT entry_index, entry, parent_slot, is_full_slot, updated_on FROM entry WHERE slot = ? ORDER BY slot, entry_index"
	kHasSlotStmt   = "SELECT 1 FROM entry WHERE slot = ? LIMIT 1"
	kAppendStmt    = "INSERT INTO entry (slot, entry_index, entry, parent_slot, is_full_slot, updated_on) VALUES (?,?,?,?,?,?) ON CONFLICT (slot, entry_index) DO NOTHING"
	kLastSlotStmt  = "SELECT slot FROM entry ORDER BY slot DESC LIMIT 1"
)

// Store reads and writes shred records through prepared statements.
type Store struct {
	db           *sqldb.DB
	ownsDB       bool
	querySlot    *sql.Stmt
	hasSlot      *sql.Stmt
	appendRecord *sql.Stmt
	lastSlot     *sql.Stmt
}

// NewStore creates a store on an already opened database. The database is
// not closed when the store is closed.
func NewStore(db *sqldb.DB) (*Store, error) {
	s := &Store{db: db}
	for _, stmt := range []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.querySlot, kQuerySlotStmt},
		{&s.hasSlot, kHasSlotStmt},
		{&s.appendRecord, kAppendStmt},
		{&s.lastSlot, kLastSlotStmt},
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

func (s *Store) QuerySlot(ctx context.Context, slot uint64) ([]record.ShredRecord, error) {
	rows, err := s.querySlot.QueryContext(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %d: %w", record.ErrRecordQueryFailed, slot, err)
	}
	defer rows.Close()

	var res []record.ShredRecord
	for rows.Next() {
		var (
			index   uint64
			payload []byte
			parent  sql.NullInt64
			full    bool
			updated time.Time
		)
		if err := rows.Scan(&index, &payload, &parent, &full, &updated); err != nil {
			return nil, fmt.Errorf("%w: slot %d: %w", record.ErrRecordQueryFailed, slot, err)
		}
		res = append(res, record.ShredRecord{
			Slot:       slot,
			EntryIndex: index,
			Payload:    immutable.NewBytes(payload),
			ParentSlot: uint64(parent.Int64),
			HasParent:  parent.Valid,
			IsFullSlot: full,
			UpdatedOn:  updated,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: slot %d: %w", record.ErrRecordQueryFailed, slot, err)
	}
	return res, nil
}

func (s *Store) HasSlot(ctx context.Context, slot uint64) (bool, error) {
	var one int
	err := s.hasSlot.QueryRowContext(ctx, slot).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: probing slot %d: %w", record.ErrRecordQueryFailed, slot, err)
	}
	return true, nil
}

func (s *Store) Append(ctx context.Context, rec record.ShredRecord) error {
	parent := sql.NullInt64{Int64: int64(rec.ParentSlot), Valid: rec.HasParent}
	updated := rec.UpdatedOn
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.appendRecord.ExecContext(ctx, rec.Slot, rec.EntryIndex, rec.Payload.ToBytes(), parent, rec.IsFullSlot, updated.UTC())
	if err != nil {
		return fmt.Errorf("failed to append entry %d of slot %d; %w", rec.EntryIndex, rec.Slot, err)
	}
	return nil
}

func (s *Store) LastSlot(ctx context.Context) (uint64, bool, error) {
	var slot uint64
	err := s.lastSlot.QueryRowContext(ctx).Scan(&slot)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", record.ErrRecordQueryFailed, err)
	}
	return slot, true, nil
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
	for _, stmt := range []*sql.Stmt{s.querySlot, s.hasSlot, s.appendRecord, s.lastSlot} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	return errors.Join(errs...)
}
