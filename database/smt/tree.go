// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package smt implements a binary sparse Merkle tree over 256-bit keys and
// values. Absent keys map to the all-zero value, which also makes the
// all-zero hash the root of the empty tree. The tree supports inclusion and
// exclusion proofs and constant time snapshots.
package smt

import (
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

const (
	ErrMalformedKey   = common.ConstError("malformed key")
	ErrMalformedValue = common.ConstError("malformed value")
)

// Tree is a mutable sparse Merkle tree. It is not safe for concurrent use;
// concurrent readers should work on snapshots.
type Tree struct {
	root node
	size int
}

func NewTree() *Tree {
	return &Tree{}
}

// Update binds the 32-byte key to the 32-byte value. A zero value removes
// the key. On error the tree is not modified.
func (t *Tree) Update(key, value []byte) error {
	k, err := common.BytesToHash(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	v, err := common.BytesToHash(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedValue, err)
	}
	t.Set(k, v)
	return nil
}

// Set binds key to value; a zero value removes the key.
func (t *Tree) Set(key, value common.Hash) {
	if value.IsZero() {
		var removed bool
		t.root, removed = remove(t.root, 0, key)
		if removed {
			t.size--
		}
		return
	}
	var added bool
	t.root, added = set(t.root, 0, key, value)
	if added {
		t.size++
	}
}

// Root returns the root hash of the tree.
func (t *Tree) Root() common.Hash {
	return hashOf(t.root)
}

// Get returns the value bound to the key or the zero hash.
func (t *Tree) Get(key common.Hash) common.Hash {
	return get(t.root, key)
}

// Len returns the number of keys with a non-zero value.
func (t *Tree) Len() int {
	return t.size
}

// Proof creates a proof for the current values of the given keys.
func (t *Tree) Proof(keys []common.Hash) (*MerkleProof, error) {
	return createProof(t.root, keys)
}

// Snapshot returns an immutable view of the current state of the tree.
// Later updates of the tree are not visible in the snapshot.
func (t *Tree) Snapshot() *Snapshot {
	return &Snapshot{root: t.root, size: t.size}
}

// Snapshot is an immutable state of a tree. It is safe for concurrent use.
type Snapshot struct {
	root node
	size int
}

func (s *Snapshot) Root() common.Hash {
	return hashOf(s.root)
}

func (s *Snapshot) Get(key common.Hash) common.Hash {
	return get(s.root, key)
}

func (s *Snapshot) Len() int {
	return s.size
}

func (s *Snapshot) Proof(keys []common.Hash) (*MerkleProof, error) {
	return createProof(s.root, keys)
}
