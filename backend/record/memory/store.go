// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package memory provides an in-memory record store, used for tests and for
// embedding the replay pipeline into other processes.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"golang.org/x/exp/maps"
)

type Store struct {
	mu    sync.RWMutex
	slots map[uint64]map[uint64]record.ShredRecord
}

func NewStore() *Store {
	return &Store{slots: map[uint64]map[uint64]record.ShredRecord{}}
}

func (s *Store) QuerySlot(ctx context.Context, slot uint64) ([]record.ShredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.slots[slot]
	res := maps.Values(entries)
	slices.SortFunc(res, func(a, b record.ShredRecord) int {
		return cmp.Compare(a.EntryIndex, b.EntryIndex)
	})
	return res, nil
}

func (s *Store) HasSlot(ctx context.Context, slot uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots[slot]) > 0, nil
}

func (s *Store) Append(ctx context.Context, rec record.ShredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, found := s.slots[rec.Slot]
	if !found {
		entries = map[uint64]record.ShredRecord{}
		s.slots[rec.Slot] = entries
	}
	if _, exists := entries[rec.EntryIndex]; !exists {
		entries[rec.EntryIndex] = rec
	}
	return nil
}

func (s *Store) LastSlot(ctx context.Context) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.slots) == 0 {
		return 0, false, nil
	}
	return slices.Max(maps.Keys(s.slots)), true, nil
}

func (s *Store) Close() error {
	return nil
}
