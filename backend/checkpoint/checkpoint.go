// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package checkpoint persists the two progress timelines of the replayer:
// the slots at which the replayed ledger was verified and snapshotted, and
// the Merkle roots of the account state at the end of each slot.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

//go:generate mockgen -source checkpoint.go -destination checkpoint_mocks.go -package checkpoint

// ErrNonMonotonic is returned when appending an entry whose slot is not
// larger than the slot of the last entry.
const ErrNonMonotonic = common.ConstError("slot is not beyond the last recorded slot")

// VerificationCheckpoint marks a slot up to which the replayed ledger was
// verified and for which a snapshot was created.
type VerificationCheckpoint struct {
	Slot       uint64
	VerifiedAt time.Time
}

// MerkleRootRecord is the root of the account state after a slot.
type MerkleRootRecord struct {
	Slot      uint64
	RootHash  common.Hash
	UpdatedOn time.Time
}

// Store is the append-only log of verification checkpoints.
type Store interface {
	// LoadLast returns the checkpoint with the highest slot, if any.
	LoadLast(ctx context.Context) (VerificationCheckpoint, bool, error)

	// Append records a new checkpoint. Its slot must be larger than the slot
	// of any checkpoint recorded before.
	Append(ctx context.Context, cp VerificationCheckpoint) error
}

// RootStore is the append-only log of per-slot Merkle roots.
type RootStore interface {
	// AppendRoot records the root of a slot. The slot must be larger than the
	// slot of any root recorded before.
	AppendRoot(ctx context.Context, root MerkleRootRecord) error

	// LatestRoot returns the root with the highest slot, if any.
	LatestRoot(ctx context.Context) (MerkleRootRecord, bool, error)

	// RootAt returns the root recorded for exactly the given slot.
	RootAt(ctx context.Context, slot uint64) (MerkleRootRecord, bool, error)
}

// ResumeSlot returns the first slot a replay has to process, which is the
// slot following the last checkpoint or 1 if there is none.
func ResumeSlot(ctx context.Context, store Store) (uint64, error) {
	last, found, err := store.LoadLast(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load last checkpoint; %w", err)
	}
	if !found {
		return 1, nil
	}
	return last.Slot + 1, nil
}
