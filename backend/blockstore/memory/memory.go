// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package memory provides a ledger kept entirely in memory.
package memory

import (
	"sync"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
)

// New creates an empty in-memory ledger.
func New() *blockstore.Ledger {
	ledger, err := blockstore.NewLedger(newKV(), blockstore.Options{})
	if err != nil {
		// only cache construction can fail and no cache is requested
		panic(err)
	}
	return ledger
}

// Open ignores the path and creates an in-memory ledger; it satisfies
// blockstore.Opener.
func Open(string) (*blockstore.Ledger, error) {
	return New(), nil
}

type kv struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newKV() *kv {
	return &kv{data: map[string][]byte{}}
}

func (s *kv) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, found := s.data[string(key)]
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *kv) Write(entries []blockstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.data[string(entry.Key)] = append([]byte(nil), entry.Value...)
	}
	return nil
}

func (s *kv) Flush() error {
	return nil
}

func (s *kv) Close() error {
	return nil
}
