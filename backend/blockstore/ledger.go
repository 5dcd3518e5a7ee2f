// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package blockstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"github.com/Eclipse-Laboratories-Inc/execution/common/immutable"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TableSpace divides the key-value storage of a ledger into spaces by
// prefixing keys.
type TableSpace byte

const (
	// ShredKey is the table space of shred payloads keyed by (slot, index).
	ShredKey TableSpace = 'S'
	// SlotMetaKey is the table space of per-slot metadata keyed by slot.
	SlotMetaKey TableSpace = 'M'
	// HighestSlotKey holds the single highest-slot entry.
	HighestSlotKey TableSpace = 'H'
)

func shredKey(slot, index uint64) []byte {
	res := make([]byte, 17)
	res[0] = byte(ShredKey)
	binary.BigEndian.PutUint64(res[1:], slot)
	binary.BigEndian.PutUint64(res[9:], index)
	return res
}

func slotMetaKey(slot uint64) []byte {
	res := make([]byte, 9)
	res[0] = byte(SlotMetaKey)
	binary.BigEndian.PutUint64(res[1:], slot)
	return res
}

var highestSlotKey = []byte{byte(HighestSlotKey)}

// KV is the minimal key-value storage a ledger is built on.
type KV interface {
	// Get returns the value of a key. The second result is false if the key
	// is not present.
	Get(key []byte) ([]byte, bool, error)

	// Write atomically stores all given key/value pairs.
	Write(entries []Entry) error

	Flush() error
	Close() error
}

// Entry is a key/value pair written to a KV.
type Entry struct {
	Key, Value []byte
}

// SlotMeta summarizes the shreds of a slot present in the ledger.
type SlotMeta struct {
	Slot       uint64
	ParentSlot uint64
	// Received is the number of distinct shreds of the slot.
	Received uint64
	// MaxIndex is the highest index received so far.
	MaxIndex uint64
	// LastIndex is the index of the shred completing the slot; only valid
	// if HasLast is set.
	LastIndex uint64
	HasLast   bool
}

// IsFull reports whether the last shred of the slot and all shreds before
// it are present.
func (m *SlotMeta) IsFull() bool {
	return m.HasLast && m.Received == m.LastIndex+1
}

const slotMetaSize = 8*5 + 1

func (m *SlotMeta) encode() []byte {
	res := make([]byte, slotMetaSize)
	binary.BigEndian.PutUint64(res[0:], m.Slot)
	binary.BigEndian.PutUint64(res[8:], m.ParentSlot)
	binary.BigEndian.PutUint64(res[16:], m.Received)
	binary.BigEndian.PutUint64(res[24:], m.MaxIndex)
	binary.BigEndian.PutUint64(res[32:], m.LastIndex)
	if m.HasLast {
		res[40] = 1
	}
	return res
}

func decodeSlotMeta(data []byte) (SlotMeta, error) {
	if len(data) != slotMetaSize {
		return SlotMeta{}, fmt.Errorf("invalid slot meta encoding of length %d", len(data))
	}
	return SlotMeta{
		Slot:       binary.BigEndian.Uint64(data[0:]),
		ParentSlot: binary.BigEndian.Uint64(data[8:]),
		Received:   binary.BigEndian.Uint64(data[16:]),
		MaxIndex:   binary.BigEndian.Uint64(data[24:]),
		LastIndex:  binary.BigEndian.Uint64(data[32:]),
		HasLast:    data[40] == 1,
	}, nil
}

// Options configures a Ledger.
type Options struct {
	// Compress stores shred payloads snappy-compressed.
	Compress bool
	// MetaCacheSize is the number of slot metas kept in memory; 0 disables
	// the cache.
	MetaCacheSize int
}

// Ledger implements Sink on top of a KV. It is safe for concurrent use,
// although all writes are serialized.
type Ledger struct {
	mu      sync.Mutex
	kv      KV
	options Options
	metas   *lru.Cache[uint64, SlotMeta]
	closed  bool
	release func() error // optional, invoked after closing the kv
}

// NewLedger creates a ledger on the given storage.
func NewLedger(kv KV, options Options) (*Ledger, error) {
	res := &Ledger{kv: kv, options: options}
	if options.MetaCacheSize > 0 {
		cache, err := lru.New[uint64, SlotMeta](options.MetaCacheSize)
		if err != nil {
			return nil, err
		}
		res.metas = cache
	}
	return res, nil
}

func (l *Ledger) Insert(shred record.ShredRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	key := shredKey(shred.Slot, shred.EntryIndex)
	payload := shred.Payload.ToBytes()
	existing, found, err := l.kv.Get(key)
	if err != nil {
		return err
	}
	if found {
		present, err := l.decodePayload(existing)
		if err != nil {
			return err
		}
		if !bytes.Equal(present, payload) {
			return fmt.Errorf("%w: slot %d index %d already holds a different payload", ErrConflictingShred, shred.Slot, shred.EntryIndex)
		}
		return nil
	}

	meta, found, err := l.slotMeta(shred.Slot)
	if err != nil {
		return err
	}
	if !found {
		meta = SlotMeta{Slot: shred.Slot, ParentSlot: shred.Parent()}
	}
	if meta.HasLast && shred.EntryIndex > meta.LastIndex {
		return fmt.Errorf("%w: slot %d index %d is beyond last index %d", ErrConflictingShred, shred.Slot, shred.EntryIndex, meta.LastIndex)
	}
	if shred.IsFullSlot {
		if meta.Received > 0 && meta.MaxIndex > shred.EntryIndex {
			return fmt.Errorf("%w: slot %d completed at index %d but index %d is present", ErrConflictingShred, shred.Slot, shred.EntryIndex, meta.MaxIndex)
		}
		meta.HasLast = true
		meta.LastIndex = shred.EntryIndex
	}
	if meta.Received == 0 || shred.EntryIndex > meta.MaxIndex {
		meta.MaxIndex = shred.EntryIndex
	}
	meta.Received++

	entries := []Entry{
		{Key: key, Value: l.encodePayload(payload)},
		{Key: slotMetaKey(shred.Slot), Value: meta.encode()},
	}
	highest, found, err := l.highestSlot()
	if err != nil {
		return err
	}
	if !found || shred.Slot > highest {
		entries = append(entries, Entry{Key: highestSlotKey, Value: binary.BigEndian.AppendUint64(nil, shred.Slot)})
	}
	if err := l.kv.Write(entries); err != nil {
		if l.metas != nil {
			l.metas.Remove(shred.Slot)
		}
		return err
	}
	if l.metas != nil {
		l.metas.Add(shred.Slot, meta)
	}
	return nil
}

// Shred returns the payload stored for the given slot and index.
func (l *Ledger) Shred(slot, index uint64) (immutable.Bytes, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return immutable.Bytes{}, false, ErrClosed
	}
	data, found, err := l.kv.Get(shredKey(slot, index))
	if err != nil || !found {
		return immutable.Bytes{}, false, err
	}
	payload, err := l.decodePayload(data)
	if err != nil {
		return immutable.Bytes{}, false, err
	}
	return immutable.NewBytes(payload), true, nil
}

func (l *Ledger) SlotRangeConnected(from, to uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, ErrClosed
	}
	if from > to {
		return false, nil
	}
	cur := to
	for {
		meta, found, err := l.slotMeta(cur)
		if err != nil {
			return false, err
		}
		if !found || !meta.IsFull() {
			return false, nil
		}
		if cur == from {
			return true, nil
		}
		// parents precede their children; anything else is a broken chain
		if meta.ParentSlot < from || meta.ParentSlot >= cur {
			return false, nil
		}
		cur = meta.ParentSlot
	}
}

func (l *Ledger) SlotMeta(slot uint64) (SlotMeta, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return SlotMeta{}, false, ErrClosed
	}
	return l.slotMeta(slot)
}

func (l *Ledger) slotMeta(slot uint64) (SlotMeta, bool, error) {
	if l.metas != nil {
		if meta, found := l.metas.Get(slot); found {
			return meta, true, nil
		}
	}
	data, found, err := l.kv.Get(slotMetaKey(slot))
	if err != nil || !found {
		return SlotMeta{}, false, err
	}
	meta, err := decodeSlotMeta(data)
	if err != nil {
		return SlotMeta{}, false, err
	}
	if l.metas != nil {
		l.metas.Add(slot, meta)
	}
	return meta, true, nil
}

func (l *Ledger) HighestSlot() (uint64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, false, ErrClosed
	}
	return l.highestSlot()
}

func (l *Ledger) highestSlot() (uint64, bool, error) {
	data, found, err := l.kv.Get(highestSlotKey)
	if err != nil || !found {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("invalid highest slot encoding of length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return l.kv.Flush()
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.kv.Close()
	if l.release != nil {
		err = errors.Join(err, l.release())
	}
	return err
}

func (l *Ledger) encodePayload(payload []byte) []byte {
	if l.options.Compress {
		return snappy.Encode(nil, payload)
	}
	return payload
}

func (l *Ledger) decodePayload(data []byte) ([]byte, error) {
	if !l.options.Compress {
		return data, nil
	}
	res, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress shred; %w", err)
	}
	return res, nil
}
