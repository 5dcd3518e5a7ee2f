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
	"encoding/json"
	"errors"
	"testing"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/stretchr/testify/require"
)

func TestProof_InclusionOfAllKeys(t *testing.T) {
	tree := NewTree()
	var keys []common.Hash
	var leaves []Leaf
	for i := 0; i < 64; i++ {
		tree.Set(key(i), value(i))
		keys = append(keys, key(i))
		leaves = append(leaves, Leaf{Key: key(i), Value: value(i)})
	}
	proof, err := tree.Proof(keys)
	require.NoError(t, err)
	require.NoError(t, proof.Verify(tree.Root(), leaves))
}

func TestProof_ExclusionOfAbsentKeys(t *testing.T) {
	tests := map[string]int{
		"empty tree":  0,
		"single leaf": 1,
		"many leaves": 50,
	}
	for name, size := range tests {
		t.Run(name, func(t *testing.T) {
			tree := NewTree()
			for i := 0; i < size; i++ {
				tree.Set(key(i), value(i))
			}
			var keys []common.Hash
			var leaves []Leaf
			for i := 1000; i < 1020; i++ {
				keys = append(keys, key(i))
				leaves = append(leaves, Leaf{Key: key(i)})
			}
			proof, err := tree.Proof(keys)
			require.NoError(t, err)
			require.NoError(t, proof.Verify(tree.Root(), leaves))
		})
	}
}

func TestProof_WrongValueIsRejected(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 10; i++ {
		tree.Set(key(i), value(i))
	}
	proof, err := tree.Proof([]common.Hash{key(3)})
	require.NoError(t, err)

	err = proof.Verify(tree.Root(), []Leaf{{Key: key(3), Value: value(4)}})
	require.ErrorIs(t, err, ErrProofMismatch)

	// claiming absence of a present key must fail as well
	err = proof.Verify(tree.Root(), []Leaf{{Key: key(3)}})
	require.ErrorIs(t, err, ErrProofMismatch)
}

func TestProof_OutdatedRootIsRejected(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 10; i++ {
		tree.Set(key(i), value(i))
	}
	oldRoot := tree.Root()
	tree.Set(key(3), value(30))

	proof, err := tree.Proof([]common.Hash{key(3)})
	require.NoError(t, err)
	require.NoError(t, proof.Verify(tree.Root(), []Leaf{{Key: key(3), Value: value(30)}}))
	require.ErrorIs(t, proof.Verify(oldRoot, []Leaf{{Key: key(3), Value: value(30)}}), ErrProofMismatch)
}

func TestProof_TamperedSiblingIsRejected(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 10; i++ {
		tree.Set(key(i), value(i))
	}
	proof, err := tree.Proof([]common.Hash{key(5)})
	require.NoError(t, err)
	require.NotEmpty(t, proof.Paths[0].Siblings)
	proof.Paths[0].Siblings[0][0] ^= 0xFF
	require.ErrorIs(t, proof.Verify(tree.Root(), []Leaf{{Key: key(5), Value: value(5)}}), ErrProofMismatch)
}

func TestProof_ExclusionWithUnrelatedLeafIsRejected(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 10; i++ {
		tree.Set(key(i), value(i))
	}
	absent := key(500)
	proof, err := tree.Proof([]common.Hash{absent})
	require.NoError(t, err)
	require.NoError(t, proof.Verify(tree.Root(), []Leaf{{Key: absent}}))

	// replace the terminal by a leaf off the key's path
	require.NotEmpty(t, proof.Paths[0].Siblings)
	other := absent
	other[0] ^= 0x80
	proof.Paths[0].Terminal = &Leaf{Key: other, Value: value(1)}
	require.ErrorIs(t, proof.Verify(tree.Root(), []Leaf{{Key: absent}}), ErrProofMismatch)
}

func TestProof_MissingKeyIsRejected(t *testing.T) {
	tree := NewTree()
	tree.Set(key(1), value(1))
	proof, err := tree.Proof([]common.Hash{key(1)})
	require.NoError(t, err)
	err = proof.Verify(tree.Root(), []Leaf{{Key: key(2)}})
	if !errors.Is(err, ErrProofMismatch) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProof_SnapshotProofsVerifyAgainstSnapshotRoot(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 10; i++ {
		tree.Set(key(i), value(i))
	}
	snapshot := tree.Snapshot()
	tree.Set(key(2), common.Hash{})

	proof, err := snapshot.Proof([]common.Hash{key(2), key(2)})
	require.NoError(t, err)
	require.Len(t, proof.Paths, 1)
	require.NoError(t, proof.Verify(snapshot.Root(), []Leaf{{Key: key(2), Value: value(2)}}))
}

func TestProof_SurvivesJsonEncoding(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 10; i++ {
		tree.Set(key(i), value(i))
	}
	proof, err := tree.Proof([]common.Hash{key(1), key(99)})
	require.NoError(t, err)
	data, err := json.Marshal(proof)
	require.NoError(t, err)

	var restored MerkleProof
	require.NoError(t, json.Unmarshal(data, &restored))
	require.NoError(t, restored.Verify(tree.Root(), []Leaf{
		{Key: key(1), Value: value(1)},
		{Key: key(99)},
	}))
}
