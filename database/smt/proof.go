// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smt

import (
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

const ErrProofMismatch = common.ConstError("proof does not match root")

// Leaf is a key/value pair claimed to be part of a tree. A zero value claims
// that the key is absent.
type Leaf struct {
	Key   common.Hash `json:"key"`
	Value common.Hash `json:"value"`
}

// MerkleProof proves the values of a set of keys against a root.
type MerkleProof struct {
	Paths []KeyPath `json:"paths"`
}

// KeyPath is the path from the root towards a single key. Siblings are
// listed from the root downwards. The path ends either in an empty subtree
// or in a leaf, which is the key's own leaf for inclusion or another key's
// leaf sharing the path for exclusion.
type KeyPath struct {
	Key      common.Hash   `json:"key"`
	Siblings []common.Hash `json:"siblings"`
	Terminal *Leaf         `json:"terminal,omitempty"`
}

func createProof(root node, keys []common.Hash) (*MerkleProof, error) {
	res := &MerkleProof{}
	seen := map[common.Hash]struct{}{}
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		res.Paths = append(res.Paths, createPath(root, key))
	}
	return res, nil
}

func createPath(n node, key common.Hash) KeyPath {
	path := KeyPath{Key: key}
	for depth := 0; ; depth++ {
		switch cur := n.(type) {
		case nil:
			return path
		case *leafNode:
			path.Terminal = &Leaf{Key: cur.key, Value: cur.value}
			return path
		case *branchNode:
			bit := key.Bit(depth)
			path.Siblings = append(path.Siblings, hashOf(cur.child(1-bit)))
			n = cur.child(bit)
		}
	}
}

// Verify checks that the proof shows the given leaves to be part of the tree
// with the given root. Leaves with a non-zero value are checked for
// inclusion, leaves with a zero value for exclusion.
func (p *MerkleProof) Verify(root common.Hash, leaves []Leaf) error {
	paths := make(map[common.Hash]*KeyPath, len(p.Paths))
	for i := range p.Paths {
		paths[p.Paths[i].Key] = &p.Paths[i]
	}
	for _, leaf := range leaves {
		path, found := paths[leaf.Key]
		if !found {
			return fmt.Errorf("%w: no path for key %v", ErrProofMismatch, leaf.Key)
		}
		if err := path.verify(root, leaf.Value); err != nil {
			return err
		}
	}
	return nil
}

func (p *KeyPath) verify(root, value common.Hash) error {
	if len(p.Siblings) > 8*common.HashSize {
		return fmt.Errorf("%w: path of key %v exceeds key length", ErrProofMismatch, p.Key)
	}
	var cur common.Hash
	switch {
	case !value.IsZero():
		if p.Terminal == nil || p.Terminal.Key != p.Key || p.Terminal.Value != value {
			return fmt.Errorf("%w: key %v is not bound to %v", ErrProofMismatch, p.Key, value)
		}
		cur = hashLeaf(p.Key, value)
	case p.Terminal == nil:
		// the path of the key ends in an empty subtree
	default:
		other := p.Terminal
		if other.Key == p.Key || other.Value.IsZero() || !sharesPrefix(other.Key, p.Key, len(p.Siblings)) {
			return fmt.Errorf("%w: key %v is not shown to be absent", ErrProofMismatch, p.Key)
		}
		cur = hashLeaf(other.Key, other.Value)
	}
	for depth := len(p.Siblings) - 1; depth >= 0; depth-- {
		if p.Key.Bit(depth) == 0 {
			cur = hashBranch(cur, p.Siblings[depth])
		} else {
			cur = hashBranch(p.Siblings[depth], cur)
		}
	}
	if cur != root {
		return fmt.Errorf("%w: key %v resolves to root %v, expected %v", ErrProofMismatch, p.Key, cur, root)
	}
	return nil
}

func sharesPrefix(a, b common.Hash, bits int) bool {
	for i := 0; i < bits; i++ {
		if a.Bit(i) != b.Bit(i) {
			return false
		}
	}
	return true
}
