// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package badger provides a ledger persisted in a Badger database.
package badger

import (
	"errors"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
	"github.com/dgraph-io/badger/v2"
)

// Open opens or creates a Badger backed ledger at the given path.
func Open(path string) (*blockstore.Ledger, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	ledger, err := blockstore.NewLedger(&kv{db: db}, blockstore.Options{})
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return ledger, nil
}

type kv struct {
	db *badger.DB
}

func (s *kv) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *kv) Write(entries []blockstore.Entry) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, entry := range entries {
			if err := txn.Set(entry.Key, entry.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *kv) Flush() error {
	return s.db.Sync()
}

func (s *kv) Close() error {
	return s.db.Close()
}
