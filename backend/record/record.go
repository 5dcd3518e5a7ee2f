// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package record

import (
	"context"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/common/immutable"
)

//go:generate mockgen -source record.go -destination record_mocks.go -package record

// ErrRecordQueryFailed is reported when the shred store can not be read.
const ErrRecordQueryFailed = common.ConstError("record query failed")

// ShredRecord is a single persisted shred entry. (Slot, EntryIndex) is the
// natural key of a record.
type ShredRecord struct {
	Slot       uint64
	EntryIndex uint64
	Payload    immutable.Bytes
	ParentSlot uint64
	HasParent  bool
	IsFullSlot bool
	UpdatedOn  time.Time
}

// Parent returns the parent slot of the record. Records stored without
// parent information are assumed to extend the previous slot.
func (r *ShredRecord) Parent() uint64 {
	if r.HasParent || r.Slot == 0 {
		return r.ParentSlot
	}
	return r.Slot - 1
}

// Store provides read access to persisted shreds in slot order and allows
// to append new ones.
type Store interface {
	// QuerySlot returns all records of the given slot ordered by entry index.
	// An empty result means the slot is not (yet) present in the store.
	QuerySlot(ctx context.Context, slot uint64) ([]ShredRecord, error)

	// HasSlot checks whether any record of the given slot is present.
	HasSlot(ctx context.Context, slot uint64) (bool, error)

	// Append adds a record. Appending a record with an existing key is a no-op.
	Append(ctx context.Context, rec ShredRecord) error

	// LastSlot returns the highest slot present in the store.
	LastSlot(ctx context.Context) (uint64, bool, error)

	Close() error
}
