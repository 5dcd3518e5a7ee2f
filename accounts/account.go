// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package accounts

import (
	"encoding/binary"
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

// AccountInfo is the state of an account as reported by the validator after
// an update in a slot.
type AccountInfo struct {
	Pubkey       [32]byte
	Lamports     uint64
	RentEpoch    uint64
	Owner        [32]byte
	Data         []byte
	Executable   bool
	Slot         uint64
	WriteVersion uint64
}

// AccountUpdateEvent is a hashed account update consumed by the Worker.
type AccountUpdateEvent struct {
	Slot        uint64
	Key         common.Hash
	ValueHash   common.Hash
	IsTombstone bool
}

func (e AccountUpdateEvent) String() string {
	return fmt.Sprintf("slot %d: %v -> %v", e.Slot, e.Key, e.ValueHash)
}

// AccountKey maps an account identity to its position in the accumulator.
func AccountKey(pubkey [32]byte) common.Hash {
	return common.Blake2b(pubkey[:])
}

// AccountValueHash hashes the lamports, rent epoch, data and executable flag
// of an account. Accounts without lamports are deleted and hash to zero.
func AccountValueHash(a *AccountInfo) common.Hash {
	if a.Lamports == 0 {
		return common.Hash{}
	}
	var numbers [16]byte
	binary.LittleEndian.PutUint64(numbers[:8], a.Lamports)
	binary.LittleEndian.PutUint64(numbers[8:], a.RentEpoch)
	executable := []byte{0}
	if a.Executable {
		executable[0] = 1
	}
	return common.Blake2b(numbers[:8], numbers[8:], a.Data, executable)
}

// ToEvent converts the account into the update event for its slot.
func (a *AccountInfo) ToEvent() AccountUpdateEvent {
	return AccountUpdateEvent{
		Slot:        a.Slot,
		Key:         AccountKey(a.Pubkey),
		ValueHash:   AccountValueHash(a),
		IsTombstone: a.Lamports == 0,
	}
}
