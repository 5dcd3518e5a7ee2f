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
	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

// Nodes are immutable once created. Updates copy the nodes along the
// modified path and share all other subtrees with previous versions, which
// makes snapshots free.
//
// The tree is kept in its canonical compact form: a subtree holding no key
// is empty (nil), a subtree holding a single key is that key's leaf, and
// only subtrees holding two or more keys are represented by branches.
// Hence the shape and root of the tree depend only on the stored key set.
type node interface {
	hash() common.Hash
}

var (
	leafTag   = []byte{0x00}
	branchTag = []byte{0x01}
)

type leafNode struct {
	key, value common.Hash
	digest     common.Hash
}

func newLeaf(key, value common.Hash) *leafNode {
	return &leafNode{key: key, value: value, digest: hashLeaf(key, value)}
}

func (n *leafNode) hash() common.Hash {
	return n.digest
}

type branchNode struct {
	left, right node
	digest      common.Hash
}

func newBranch(left, right node) *branchNode {
	return &branchNode{left: left, right: right, digest: hashBranch(hashOf(left), hashOf(right))}
}

func (n *branchNode) hash() common.Hash {
	return n.digest
}

func (n *branchNode) child(bit int) node {
	if bit == 0 {
		return n.left
	}
	return n.right
}

func hashOf(n node) common.Hash {
	if n == nil {
		return common.Hash{}
	}
	return n.hash()
}

func hashLeaf(key, value common.Hash) common.Hash {
	return common.Blake2b(leafTag, key[:], value[:])
}

func hashBranch(left, right common.Hash) common.Hash {
	return common.Blake2b(branchTag, left[:], right[:])
}

// set returns the subtree rooted at n with key bound to value. The second
// result reports whether the key was newly added.
func set(n node, depth int, key, value common.Hash) (node, bool) {
	switch cur := n.(type) {
	case nil:
		return newLeaf(key, value), true
	case *leafNode:
		if cur.key == key {
			if cur.value == value {
				return cur, false
			}
			return newLeaf(key, value), false
		}
		return split(depth, cur, newLeaf(key, value)), true
	case *branchNode:
		if key.Bit(depth) == 0 {
			left, added := set(cur.left, depth+1, key, value)
			if left == cur.left {
				return cur, added
			}
			return newBranch(left, cur.right), added
		}
		right, added := set(cur.right, depth+1, key, value)
		if right == cur.right {
			return cur, added
		}
		return newBranch(cur.left, right), added
	}
	panic("unknown node type")
}

// split creates the subtree at the given depth holding two distinct leaves.
func split(depth int, a, b *leafNode) node {
	bitA, bitB := a.key.Bit(depth), b.key.Bit(depth)
	if bitA != bitB {
		if bitA == 0 {
			return newBranch(a, b)
		}
		return newBranch(b, a)
	}
	inner := split(depth+1, a, b)
	if bitA == 0 {
		return newBranch(inner, nil)
	}
	return newBranch(nil, inner)
}

// remove returns the subtree rooted at n without the given key. The second
// result reports whether the key was present.
func remove(n node, depth int, key common.Hash) (node, bool) {
	switch cur := n.(type) {
	case nil:
		return nil, false
	case *leafNode:
		if cur.key == key {
			return nil, true
		}
		return cur, false
	case *branchNode:
		left, right := cur.left, cur.right
		var removed bool
		if key.Bit(depth) == 0 {
			left, removed = remove(left, depth+1, key)
		} else {
			right, removed = remove(right, depth+1, key)
		}
		if !removed {
			return cur, false
		}
		// a single remaining leaf moves up to keep the tree compact
		if _, isLeaf := right.(*leafNode); left == nil && (right == nil || isLeaf) {
			return right, true
		}
		if _, isLeaf := left.(*leafNode); right == nil && isLeaf {
			return left, true
		}
		return newBranch(left, right), true
	}
	panic("unknown node type")
}

func get(n node, key common.Hash) common.Hash {
	for depth := 0; ; depth++ {
		switch cur := n.(type) {
		case nil:
			return common.Hash{}
		case *leafNode:
			if cur.key == key {
				return cur.value
			}
			return common.Hash{}
		case *branchNode:
			n = cur.child(key.Bit(depth))
		}
	}
}
