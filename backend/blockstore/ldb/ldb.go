// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ldb provides a ledger persisted in LevelDB. Shred payloads are
// stored snappy-compressed and slot metadata is cached.
package ldb

import (
	"errors"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// DefaultMetaCacheSize is the number of slot metas cached by default.
const DefaultMetaCacheSize = 1 << 14

var flushMarkerKey = []byte{'F'}

// Open opens or creates a LevelDB backed ledger at the given path.
func Open(path string) (*blockstore.Ledger, error) {
	return OpenWithOptions(path, &opt.Options{}, DefaultMetaCacheSize)
}

// OpenWithOptions opens a ledger with custom LevelDB options.
func OpenWithOptions(path string, options *opt.Options, metaCacheSize int) (*blockstore.Ledger, error) {
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, err
	}
	ledger, err := blockstore.NewLedger(&kv{db: db}, blockstore.Options{
		Compress:      true,
		MetaCacheSize: metaCacheSize,
	})
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return ledger, nil
}

type kv struct {
	db *leveldb.DB
}

func (s *kv) Get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *kv) Write(entries []blockstore.Entry) error {
	batch := new(leveldb.Batch)
	for _, entry := range entries {
		batch.Put(entry.Key, entry.Value)
	}
	return s.db.Write(batch, nil)
}

// Flush issues a synchronous write, which forces the journal to disk.
func (s *kv) Flush() error {
	return s.db.Put(flushMarkerKey, nil, &opt.WriteOptions{Sync: true})
}

func (s *kv) Close() error {
	return s.db.Close()
}
