// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package replay implements the engine pulling persisted shreds in slot
// order, replaying them into the local ledger, and periodically verifying
// and snapshotting the ledger.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/common/interrupt"
	"github.com/Eclipse-Laboratories-Inc/execution/ledgertool"
	"github.com/Eclipse-Laboratories-Inc/execution/metrics"
	"github.com/ethereum/go-ethereum/log"
)

const (
	ErrRecordQueryFailed  = record.ErrRecordQueryFailed
	ErrInsertionFailed    = common.ConstError("shred insertion failed")
	ErrVerificationFailed = common.ConstError("ledger verification failed")
	ErrSnapshotFailed     = common.ConstError("ledger snapshot failed")
	ErrCheckpointFailed   = common.ConstError("checkpoint could not be recorded")
	ErrRangeDisconnected  = common.ConstError("replayed slot range is not connected")
)

// SlotError reports the slot at which the engine failed.
type SlotError struct {
	Slot uint64
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %d: %v", e.Slot, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// Engine replays shreds from a record store into a ledger. An engine runs
// on a single goroutine; only Cursor may be called concurrently.
type Engine struct {
	config      Config
	records     record.Store
	sink        blockstore.Sink
	verifier    ledgertool.Verifier
	checkpoints checkpoint.Store
	log         log.Logger
	metrics     *metrics.Replay
	cursor      atomic.Uint64
}

func NewEngine(
	config Config,
	records record.Store,
	sink blockstore.Sink,
	verifier ledgertool.Verifier,
	checkpoints checkpoint.Store,
) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid replay configuration; %w", err)
	}
	if records == nil || sink == nil || verifier == nil || checkpoints == nil {
		return nil, fmt.Errorf("replay engine requires a record store, a sink, a verifier and a checkpoint store")
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Root()
	}
	m := config.Metrics
	if m == nil {
		m = metrics.NewReplay(nil)
	}
	return &Engine{
		config:      config,
		records:     records,
		sink:        sink,
		verifier:    verifier,
		checkpoints: checkpoints,
		log:         logger.New("component", "replay"),
		metrics:     m,
	}, nil
}

// Cursor returns the slot the engine is processing, or the slot it would
// have continued with once stopped.
func (e *Engine) Cursor() uint64 {
	return e.cursor.Load()
}

// Run resumes replaying after the last verification checkpoint.
func (e *Engine) Run(ctx context.Context) error {
	start, err := checkpoint.ResumeSlot(ctx, e.checkpoints)
	if err != nil {
		return err
	}
	return e.RunFrom(ctx, start)
}

// RunFrom replays slots starting at the given slot until the context is
// cancelled or an unrecoverable error occurs. Cancellation is reported as
// interrupt.ErrCanceled.
func (e *Engine) RunFrom(ctx context.Context, start uint64) error {
	lastVerified := start - 1
	if start == 0 {
		lastVerified = 0
	}
	last, found, err := e.checkpoints.LoadLast(ctx)
	if err != nil {
		return fmt.Errorf("failed to load last checkpoint; %w", err)
	}
	if found && last.Slot > lastVerified {
		lastVerified = last.Slot
	}
	e.log.Info("Starting replay", "slot", start, "lastVerified", lastVerified,
		"verifyInterval", e.config.VerifyInterval, "policy", e.config.ErrorPolicy)

	slot := start
	queryFailures := 0
	for {
		e.cursor.Store(slot)
		e.metrics.CurrentSlot.Set(float64(slot))
		if interrupt.IsCancelled(ctx) {
			e.log.Info("Replay stopped", "slot", slot)
			return interrupt.ErrCanceled
		}

		records, advance, err := e.fetch(ctx, slot)
		if err != nil {
			queryFailures++
			e.metrics.QueryFailures.Inc()
			e.log.Warn("Failed to query record store", "slot", slot, "attempt", queryFailures, "err", err)
			if queryFailures >= e.config.MaxQueryAttempts {
				err = &SlotError{Slot: slot, Err: errors.Join(ErrRecordQueryFailed, err)}
				if e.config.ErrorPolicy.Abort() {
					return err
				}
				e.log.Error("Record store keeps failing, continuing", "slot", slot, "err", err)
				queryFailures = 0
			}
			e.sleep(ctx, e.config.Backoff)
			continue
		}
		queryFailures = 0

		if len(records) == 0 {
			if advance {
				e.log.Debug("Skipping empty slot", "slot", slot)
				e.metrics.SkippedSlots.Inc()
				slot++
				continue
			}
			e.log.Debug("Waiting for new shreds", "slot", slot, "backoff", e.config.Backoff)
			e.sleep(ctx, e.config.Backoff)
			continue
		}

		if err := e.insertSlot(ctx, slot, records); err != nil {
			if interrupt.IsCancelled(ctx) {
				continue
			}
			if e.config.ErrorPolicy.Abort() || errors.Is(err, blockstore.ErrConflictingShred) {
				return err
			}
			e.log.Error("Failed to insert slot, retrying later", "slot", slot, "err", err)
			e.sleep(ctx, e.config.Backoff)
			continue
		}
		e.metrics.ReplayedSlots.Inc()

		if slot >= lastVerified+e.config.VerifyInterval {
			if err := e.verifyAndCheckpoint(ctx, slot); err != nil {
				return err
			}
			lastVerified = slot
		}
		slot++
	}
}

// fetch loads the records of a slot. For an empty slot it reports whether
// the next slot has records, in which case the slot is skipped. Larger gaps
// are waited on, since shreds of missing slots may still arrive.
func (e *Engine) fetch(ctx context.Context, slot uint64) ([]record.ShredRecord, bool, error) {
	records, err := e.records.QuerySlot(ctx, slot)
	if err != nil || len(records) > 0 {
		return records, false, err
	}
	next, err := e.records.HasSlot(ctx, slot+1)
	return nil, next, err
}

func (e *Engine) insertSlot(ctx context.Context, slot uint64, records []record.ShredRecord) error {
	for _, rec := range records {
		var err error
		for attempt := 1; attempt <= e.config.MaxInsertAttempts; attempt++ {
			if err = e.sink.Insert(rec); err == nil {
				break
			}
			if errors.Is(err, blockstore.ErrConflictingShred) {
				break
			}
			e.log.Warn("Failed to insert shred", "slot", slot, "index", rec.EntryIndex, "attempt", attempt, "err", err)
			if attempt < e.config.MaxInsertAttempts {
				e.metrics.InsertRetries.Inc()
				if !e.sleep(ctx, e.config.RetryBackoff) {
					return interrupt.ErrCanceled
				}
			}
		}
		if err != nil {
			return &SlotError{Slot: slot, Err: errors.Join(ErrInsertionFailed, err)}
		}
		e.metrics.InsertedShreds.Inc()
	}
	return nil
}

func (e *Engine) verifyAndCheckpoint(ctx context.Context, slot uint64) error {
	if err := e.sink.Flush(); err != nil {
		return &SlotError{Slot: slot, Err: errors.Join(ErrVerificationFailed, err)}
	}
	// a started verification runs to completion; shutdown is only honoured
	// between iterations
	ctx = context.WithoutCancel(ctx)
	e.log.Info("Verifying ledger", "slot", slot)
	if err := e.verifier.Verify(ctx, e.config.LedgerPath, slot); err != nil {
		return &SlotError{Slot: slot, Err: errors.Join(ErrVerificationFailed, err)}
	}
	snapshotSlot := slot - e.config.SnapshotOffset
	if err := e.verifier.CreateSnapshot(ctx, e.config.LedgerPath, snapshotSlot, e.config.SnapshotDir); err != nil {
		return &SlotError{Slot: slot, Err: errors.Join(ErrSnapshotFailed, err)}
	}
	cp := checkpoint.VerificationCheckpoint{Slot: slot, VerifiedAt: time.Now()}
	if err := e.checkpoints.Append(ctx, cp); err != nil {
		return &SlotError{Slot: slot, Err: errors.Join(ErrCheckpointFailed, err)}
	}
	e.metrics.Checkpoints.Inc()
	e.metrics.LastCheckpoint.Set(float64(slot))
	e.log.Info("Checkpoint recorded", "slot", slot, "snapshot", snapshotSlot)
	return nil
}

// ReplayRange inserts all slots in [from, to] without verification and
// checks that the resulting ledger connects the range.
func (e *Engine) ReplayRange(ctx context.Context, from, to uint64) error {
	if from > to {
		return fmt.Errorf("invalid slot range [%d,%d]", from, to)
	}
	e.log.Info("Replaying slot range", "from", from, "to", to)
	for slot := from; slot <= to; slot++ {
		if interrupt.IsCancelled(ctx) {
			return interrupt.ErrCanceled
		}
		e.cursor.Store(slot)
		e.metrics.CurrentSlot.Set(float64(slot))

		records, err := e.queryWithRetry(ctx, slot)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			e.log.Debug("Skipping empty slot", "slot", slot)
			e.metrics.SkippedSlots.Inc()
			continue
		}
		if err := e.insertSlot(ctx, slot, records); err != nil {
			return err
		}
		e.metrics.ReplayedSlots.Inc()
	}
	if err := e.sink.Flush(); err != nil {
		return err
	}
	connected, err := e.sink.SlotRangeConnected(from, to)
	if err != nil {
		return err
	}
	if !connected {
		return fmt.Errorf("%w: [%d,%d]", ErrRangeDisconnected, from, to)
	}
	e.log.Info("Slot range replayed", "from", from, "to", to)
	return nil
}

func (e *Engine) queryWithRetry(ctx context.Context, slot uint64) ([]record.ShredRecord, error) {
	var err error
	for attempt := 1; attempt <= e.config.MaxQueryAttempts; attempt++ {
		var records []record.ShredRecord
		if records, err = e.records.QuerySlot(ctx, slot); err == nil {
			return records, nil
		}
		e.metrics.QueryFailures.Inc()
		e.log.Warn("Failed to query record store", "slot", slot, "attempt", attempt, "err", err)
		if attempt < e.config.MaxQueryAttempts && !e.sleep(ctx, e.config.Backoff) {
			return nil, interrupt.ErrCanceled
		}
	}
	return nil, &SlotError{Slot: slot, Err: errors.Join(ErrRecordQueryFailed, err)}
}

// sleep pauses for d and reports false if the context was cancelled first.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !interrupt.IsCancelled(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
