// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

var blake2bPool = sync.Pool{New: func() any {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for keys longer than 64 bytes
		panic(err)
	}
	return h
}}

// Blake2b computes the BLAKE2b-256 hash of the concatenation of the given parts.
func Blake2b(parts ...[]byte) Hash {
	h := blake2bPool.Get().(hash.Hash)
	h.Reset()
	for _, part := range parts {
		h.Write(part)
	}
	var res Hash
	h.Sum(res[:0])
	blake2bPool.Put(h)
	return res
}
