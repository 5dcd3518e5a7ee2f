// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint"
)

// Store keeps verification checkpoints and Merkle roots in memory. It
// implements both checkpoint.Store and checkpoint.RootStore.
type Store struct {
	mu          sync.Mutex
	checkpoints []checkpoint.VerificationCheckpoint
	roots       []checkpoint.MerkleRootRecord
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) LoadLast(ctx context.Context) (checkpoint.VerificationCheckpoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.checkpoints) == 0 {
		return checkpoint.VerificationCheckpoint{}, false, nil
	}
	return s.checkpoints[len(s.checkpoints)-1], true, nil
}

func (s *Store) Append(ctx context.Context, cp checkpoint.VerificationCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.checkpoints); n > 0 && s.checkpoints[n-1].Slot >= cp.Slot {
		return fmt.Errorf("%w: checkpoint %d after %d", checkpoint.ErrNonMonotonic, cp.Slot, s.checkpoints[n-1].Slot)
	}
	s.checkpoints = append(s.checkpoints, cp)
	return nil
}

// Checkpoints returns a copy of all recorded checkpoints in order.
func (s *Store) Checkpoints() []checkpoint.VerificationCheckpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]checkpoint.VerificationCheckpoint(nil), s.checkpoints...)
}

func (s *Store) AppendRoot(ctx context.Context, root checkpoint.MerkleRootRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.roots); n > 0 && s.roots[n-1].Slot >= root.Slot {
		return fmt.Errorf("%w: root of slot %d after %d", checkpoint.ErrNonMonotonic, root.Slot, s.roots[n-1].Slot)
	}
	s.roots = append(s.roots, root)
	return nil
}

func (s *Store) LatestRoot(ctx context.Context) (checkpoint.MerkleRootRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.roots) == 0 {
		return checkpoint.MerkleRootRecord{}, false, nil
	}
	return s.roots[len(s.roots)-1], true, nil
}

func (s *Store) RootAt(ctx context.Context, slot uint64) (checkpoint.MerkleRootRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, root := range s.roots {
		if root.Slot == slot {
			return root, true, nil
		}
	}
	return checkpoint.MerkleRootRecord{}, false, nil
}

// Roots returns a copy of all recorded roots in order.
func (s *Store) Roots() []checkpoint.MerkleRootRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]checkpoint.MerkleRootRecord(nil), s.roots...)
}
