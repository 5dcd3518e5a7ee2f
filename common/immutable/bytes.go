// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package immutable

import "fmt"

// Bytes is an immutable byte payload. Values are comparable with == and can
// be copied freely; the underlying content can never be modified. Shred
// payloads are passed between stores as Bytes to make accidental mutation of
// already-persisted records impossible.
type Bytes struct {
	data string
}

// NewBytes creates a new Bytes holding a copy of the given slice.
func NewBytes(data []byte) Bytes {
	return Bytes{data: string(data)}
}

// ToBytes returns a fresh copy of the content.
func (b Bytes) ToBytes() []byte {
	return []byte(b.data)
}

// Len returns the number of bytes in the payload.
func (b Bytes) Len() int {
	return len(b.data)
}

// IsEmpty reports whether the payload has no content.
func (b Bytes) IsEmpty() bool {
	return len(b.data) == 0
}

func (b Bytes) String() string {
	if len(b.data) > 16 {
		return fmt.Sprintf("0x%x...(%d bytes)", b.data[:16], len(b.data))
	}
	return fmt.Sprintf("0x%x", b.data)
}
