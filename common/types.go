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
	"fmt"
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashSize is the number of bytes of a Hash.
const HashSize = 32

// Hash is a 32 byte digest. It is used for account keys, account value
// hashes and Merkle roots. The all-zero hash denotes an absent value.
type Hash [HashSize]byte

// IsZero reports whether all bytes of the hash are zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hex returns the lower-case hex encoding of the hash without a 0x prefix.
// This is the format root hashes are persisted in.
func (h Hash) Hex() string {
	return gethcommon.Bytes2Hex(h[:])
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

// Bit returns the i-th bit of the hash, counting from the most significant
// bit of the first byte.
func (h Hash) Bit(i int) int {
	return int(h[i/8]>>(7-uint(i%8))) & 1
}

// BytesToHash converts a slice of exactly HashSize bytes into a Hash.
func BytesToHash(b []byte) (Hash, error) {
	var res Hash
	if len(b) != HashSize {
		return res, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashSize)
	}
	copy(res[:], b)
	return res, nil
}

// HashFromHex parses a hex encoded hash, with or without 0x prefix.
func HashFromHex(s string) (Hash, error) {
	b, err := hexutil.Decode("0x" + strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return BytesToHash(b)
}

// MarshalText encodes the hash as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

func (h *Hash) UnmarshalText(text []byte) error {
	res, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = res
	return nil
}
