// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package blockstore implements the local append-only ledger store into
// which persisted shreds are replayed. The store tracks per-slot metadata
// to decide whether slots are complete and connected to their parents.
package blockstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

//go:generate mockgen -source blockstore.go -destination blockstore_mocks.go -package blockstore

const (
	// ErrConflictingShred is returned when a shred is inserted under an
	// existing (slot, index) key with a different payload, or beyond the
	// last index of a slot.
	ErrConflictingShred = common.ConstError("conflicting shred")
	ErrClosed           = common.ConstError("blockstore is closed")
)

// GenesisFileName is the name of the genesis file copied into a new ledger.
const GenesisFileName = "genesis.bin"

// Sink is the write side of the ledger used by the replay engine.
type Sink interface {
	// Insert adds a shred to the ledger. Re-inserting an identical shred is
	// a no-op.
	Insert(shred record.ShredRecord) error

	// SlotRangeConnected reports whether every slot on the parent chain from
	// 'to' back to 'from' is full and the chain reaches 'from'.
	SlotRangeConnected(from, to uint64) (bool, error)

	// SlotMeta returns the metadata of a slot, if any shred of it is present.
	SlotMeta(slot uint64) (SlotMeta, bool, error)

	// HighestSlot returns the highest slot for which a shred was inserted.
	HighestSlot() (uint64, bool, error)

	// Flush makes all inserted shreds durable.
	Flush() error

	io.Closer
}

// Opener opens a ledger located in the given directory.
type Opener func(path string) (*Ledger, error)

// OpenLedger opens the ledger in the given directory. If the directory does
// not exist yet, a new ledger is initialized and the genesis file, if given,
// is copied into it. The directory stays locked until the ledger is closed.
func OpenLedger(dir, genesis string, open Opener) (*Ledger, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := initLedger(dir, genesis); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to access ledger directory %s; %w", dir, err)
	}
	lock, err := LockDirectory(dir)
	if err != nil {
		return nil, err
	}
	ledger, err := open(filepath.Join(dir, "blockstore"))
	if err != nil {
		return nil, errors.Join(err, lock.Release())
	}
	ledger.release = lock.Release
	return ledger, nil
}

func initLedger(dir, genesis string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create ledger directory; %w", err)
	}
	if genesis == "" {
		return nil
	}
	in, err := os.Open(genesis)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to open genesis file; %w", err), os.RemoveAll(dir))
	}
	defer in.Close()
	out, err := os.Create(filepath.Join(dir, GenesisFileName))
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create genesis copy; %w", err), os.RemoveAll(dir))
	}
	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(fmt.Errorf("failed to copy genesis file; %w", err), out.Close(), os.RemoveAll(dir))
	}
	return out.Close()
}
