// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint"
	cpmemory "github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint/memory"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/common/ticker"
	"github.com/Eclipse-Laboratories-Inc/execution/database/smt"
	"github.com/Eclipse-Laboratories-Inc/execution/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	keyA = common.Hash{0xA}
	keyB = common.Hash{0xB}
	keyC = common.Hash{0xC}
	h1   = common.Hash{1}
	h2   = common.Hash{2}
	h3   = common.Hash{3}
)

func testWorkerConfig() WorkerConfig {
	return WorkerConfig{
		QueueSize:   100,
		ErrorPolicy: common.AbortOnError,
	}
}

func newWorker(t *testing.T, config WorkerConfig, roots checkpoint.RootStore) *Worker {
	t.Helper()
	worker, err := NewWorker(config, roots)
	if err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}
	return worker
}

// runToCompletion submits the events, closes the worker and runs it until the
// queue is drained.
func runToCompletion(t *testing.T, worker *Worker, events ...AccountUpdateEvent) error {
	t.Helper()
	for _, ev := range events {
		if err := worker.Submit(context.Background(), ev); err != nil {
			t.Fatalf("failed to submit event: %v", err)
		}
	}
	if err := worker.Close(); err != nil {
		t.Fatalf("failed to close worker: %v", err)
	}
	return worker.Run(context.Background())
}

func rootOf(entries map[common.Hash]common.Hash) common.Hash {
	tree := smt.NewTree()
	for key, value := range entries {
		tree.Set(key, value)
	}
	return tree.Root()
}

func TestWorker_FlushesRootWhenSlotAdvances(t *testing.T) {
	roots := cpmemory.NewStore()
	worker := newWorker(t, testWorkerConfig(), roots)

	err := runToCompletion(t, worker,
		AccountUpdateEvent{Slot: 1, Key: keyA, ValueHash: h1},
		AccountUpdateEvent{Slot: 1, Key: keyB, ValueHash: h2},
		AccountUpdateEvent{Slot: 2, Key: keyA, ValueHash: h3},
	)
	require.NoError(t, err)

	records := roots.Roots()
	require.Len(t, records, 2)
	require.Equal(t, uint64(1), records[0].Slot)
	require.Equal(t, rootOf(map[common.Hash]common.Hash{keyA: h1, keyB: h2}), records[0].RootHash)
	require.Equal(t, uint64(2), records[1].Slot)
	require.Equal(t, rootOf(map[common.Hash]common.Hash{keyA: h3, keyB: h2}), records[1].RootHash)

	latest, found := worker.Latest()
	require.True(t, found)
	require.Equal(t, records[1], latest)
}

func TestWorker_SlotRootIsWrittenBeforeNextSlotIsApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	roots := checkpoint.NewMockRootStore(ctrl)
	slot1 := rootOf(map[common.Hash]common.Hash{keyA: h1, keyB: h2})
	slot2 := rootOf(map[common.Hash]common.Hash{keyA: h3, keyB: h2})

	gomock.InOrder(
		roots.EXPECT().AppendRoot(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, rec checkpoint.MerkleRootRecord) error {
				require.Equal(t, uint64(1), rec.Slot)
				require.Equal(t, slot1, rec.RootHash)
				return nil
			}),
		roots.EXPECT().AppendRoot(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, rec checkpoint.MerkleRootRecord) error {
				require.Equal(t, uint64(2), rec.Slot)
				require.Equal(t, slot2, rec.RootHash)
				return nil
			}),
	)

	worker := newWorker(t, testWorkerConfig(), roots)
	err := runToCompletion(t, worker,
		AccountUpdateEvent{Slot: 1, Key: keyA, ValueHash: h1},
		AccountUpdateEvent{Slot: 1, Key: keyB, ValueHash: h2},
		AccountUpdateEvent{Slot: 2, Key: keyA, ValueHash: h3},
	)
	require.NoError(t, err)
}

func TestWorker_OlderSlotEventsAreDropped(t *testing.T) {
	roots := cpmemory.NewStore()
	worker := newWorker(t, testWorkerConfig(), roots)

	err := runToCompletion(t, worker,
		AccountUpdateEvent{Slot: 2, Key: keyA, ValueHash: h1},
		AccountUpdateEvent{Slot: 1, Key: keyB, ValueHash: h2},
		AccountUpdateEvent{Slot: 2, Key: keyC, ValueHash: h3},
	)
	require.NoError(t, err)

	records := roots.Roots()
	require.Len(t, records, 1)
	require.Equal(t, uint64(2), records[0].Slot)
	require.Equal(t, rootOf(map[common.Hash]common.Hash{keyA: h1, keyC: h3}), records[0].RootHash)

	stats := worker.Stats()
	require.Equal(t, uint64(1), stats.Dropped)
	require.Equal(t, uint64(2), stats.Processed)
	require.Equal(t, uint64(1), stats.Flushed)
}

func TestWorker_SkippedSlotsProduceNoRoots(t *testing.T) {
	roots := cpmemory.NewStore()
	worker := newWorker(t, testWorkerConfig(), roots)

	err := runToCompletion(t, worker,
		AccountUpdateEvent{Slot: 3, Key: keyA, ValueHash: h1},
		AccountUpdateEvent{Slot: 7, Key: keyB, ValueHash: h2},
		AccountUpdateEvent{Slot: 5, Key: keyC, ValueHash: h3},
	)
	require.NoError(t, err)

	var slots []uint64
	for _, rec := range roots.Roots() {
		slots = append(slots, rec.Slot)
	}
	require.Equal(t, []uint64{3, 7}, slots)
	require.Equal(t, uint64(1), worker.Stats().Dropped)
}

func TestWorker_TombstonesRemoveAccounts(t *testing.T) {
	roots := cpmemory.NewStore()
	worker := newWorker(t, testWorkerConfig(), roots)

	err := runToCompletion(t, worker,
		AccountUpdateEvent{Slot: 1, Key: keyA, ValueHash: h1},
		AccountUpdateEvent{Slot: 1, Key: keyB, ValueHash: h2},
		AccountUpdateEvent{Slot: 2, Key: keyB, ValueHash: h3, IsTombstone: true},
	)
	require.NoError(t, err)

	records := roots.Roots()
	require.Len(t, records, 2)
	require.Equal(t, rootOf(map[common.Hash]common.Hash{keyA: h1}), records[1].RootHash)
	require.Equal(t, 1, worker.Snapshot().Len())
}

func TestWorker_CancellationFlushesPartialSlot(t *testing.T) {
	roots := cpmemory.NewStore()
	worker := newWorker(t, testWorkerConfig(), roots)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- worker.Run(ctx) }()

	require.NoError(t, worker.Submit(ctx, AccountUpdateEvent{Slot: 4, Key: keyA, ValueHash: h1}))
	require.NoError(t, worker.Submit(ctx, AccountUpdateEvent{Slot: 4, Key: keyB, ValueHash: h2}))
	require.Eventually(t, func() bool { return worker.Stats().Processed == 2 }, 5*time.Second, time.Millisecond)
	require.Empty(t, roots.Roots())

	cancel()
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	records := roots.Roots()
	require.Len(t, records, 1)
	require.Equal(t, uint64(4), records[0].Slot)
	require.Equal(t, rootOf(map[common.Hash]common.Hash{keyA: h1, keyB: h2}), records[0].RootHash)
}

func TestWorker_ShutdownWithoutEventsWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	roots := checkpoint.NewMockRootStore(ctrl)
	worker := newWorker(t, testWorkerConfig(), roots)
	require.NoError(t, runToCompletion(t, worker))
	_, found := worker.Latest()
	require.False(t, found)
	require.Equal(t, smt.NewTree().Root(), worker.Snapshot().Root())
}

func TestWorker_TrySubmitReportsFullQueue(t *testing.T) {
	config := testWorkerConfig()
	config.QueueSize = 1
	worker := newWorker(t, config, cpmemory.NewStore())

	require.NoError(t, worker.TrySubmit(AccountUpdateEvent{Slot: 1, Key: keyA}))
	require.ErrorIs(t, worker.TrySubmit(AccountUpdateEvent{Slot: 1, Key: keyB}), ErrQueueFull)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, worker.Submit(ctx, AccountUpdateEvent{Slot: 1, Key: keyB}), context.DeadlineExceeded)
	require.Equal(t, 1, worker.Stats().QueueDepth)
}

func TestWorker_BlockedSubmitIsReleasedByClose(t *testing.T) {
	config := testWorkerConfig()
	config.QueueSize = 1
	worker := newWorker(t, config, cpmemory.NewStore())
	require.NoError(t, worker.TrySubmit(AccountUpdateEvent{Slot: 1, Key: keyA}))

	result := make(chan error, 1)
	go func() { result <- worker.Submit(context.Background(), AccountUpdateEvent{Slot: 1, Key: keyB}) }()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, worker.Close())

	select {
	case err := <-result:
		require.ErrorIs(t, err, ErrWorkerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("submission was not released")
	}
	require.ErrorIs(t, worker.TrySubmit(AccountUpdateEvent{Slot: 1, Key: keyC}), ErrWorkerClosed)
	require.ErrorIs(t, worker.Submit(context.Background(), AccountUpdateEvent{Slot: 1, Key: keyC}), ErrWorkerClosed)
}

func TestWorker_FlushFailureHandlingFollowsPolicy(t *testing.T) {
	injected := errors.New("injected")
	events := []AccountUpdateEvent{
		{Slot: 1, Key: keyA, ValueHash: h1},
		{Slot: 2, Key: keyB, ValueHash: h2},
		{Slot: 3, Key: keyC, ValueHash: h3},
	}

	t.Run("abort", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		roots := checkpoint.NewMockRootStore(ctrl)
		roots.EXPECT().AppendRoot(gomock.Any(), gomock.Any()).Return(injected)

		worker := newWorker(t, testWorkerConfig(), roots)
		err := runToCompletion(t, worker, events...)
		require.ErrorIs(t, err, ErrRootPersistenceFailed)
		require.ErrorIs(t, err, injected)
		_, found := worker.Latest()
		require.False(t, found)
	})

	t.Run("continue", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		roots := checkpoint.NewMockRootStore(ctrl)
		gomock.InOrder(
			roots.EXPECT().AppendRoot(gomock.Any(), gomock.Any()).Return(injected),
			roots.EXPECT().AppendRoot(gomock.Any(), gomock.Any()).Return(nil).Times(2),
		)

		config := testWorkerConfig()
		config.ErrorPolicy = common.LogAndContinue
		worker := newWorker(t, config, roots)
		require.NoError(t, runToCompletion(t, worker, events...))

		stats := worker.Stats()
		require.Equal(t, uint64(1), stats.FlushFailures)
		require.Equal(t, uint64(2), stats.Flushed)
		latest, found := worker.Latest()
		require.True(t, found)
		require.Equal(t, uint64(3), latest.Slot)
	})
}

func TestWorker_FinalFlushFailureFollowsPolicy(t *testing.T) {
	injected := errors.New("injected")
	for _, policy := range []common.ErrorPolicy{common.AbortOnError, common.LogAndContinue} {
		t.Run(policy.String(), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			roots := checkpoint.NewMockRootStore(ctrl)
			roots.EXPECT().AppendRoot(gomock.Any(), gomock.Any()).Return(injected)

			config := testWorkerConfig()
			config.ErrorPolicy = policy
			worker := newWorker(t, config, roots)
			err := runToCompletion(t, worker, AccountUpdateEvent{Slot: 1, Key: keyA, ValueHash: h1})
			if policy.Abort() {
				require.ErrorIs(t, err, ErrRootPersistenceFailed)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, uint64(1), worker.Stats().FlushFailures)
			_, found := worker.Latest()
			require.False(t, found)
		})
	}
}

func TestWorker_PublishedSnapshotProvesPersistedRoot(t *testing.T) {
	worker := newWorker(t, testWorkerConfig(), cpmemory.NewStore())
	require.NoError(t, runToCompletion(t, worker,
		AccountUpdateEvent{Slot: 1, Key: keyA, ValueHash: h1},
		AccountUpdateEvent{Slot: 1, Key: keyB, ValueHash: h2},
	))

	latest, found := worker.Latest()
	require.True(t, found)
	snapshot := worker.Snapshot()
	require.Equal(t, latest.RootHash, snapshot.Root())

	proof, err := snapshot.Proof([]common.Hash{keyA, keyC})
	require.NoError(t, err)
	require.NoError(t, proof.Verify(latest.RootHash, []smt.Leaf{{Key: keyA, Value: h1}, {Key: keyC}}))
}

func TestWorker_RunCannotBeStartedTwice(t *testing.T) {
	worker := newWorker(t, testWorkerConfig(), cpmemory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- worker.Run(ctx) }()

	require.Eventually(t, func() bool { return worker.running.Load() }, 5*time.Second, time.Millisecond)
	require.ErrorIs(t, worker.Run(ctx), ErrWorkerRunning)
	cancel()
	require.NoError(t, <-result)
}

func TestWorker_ReportsProgressOnTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := make(chan time.Time)
	var c <-chan time.Time = ticks
	tick := ticker.NewMockTicker(ctrl)
	tick.EXPECT().C().Return(c).AnyTimes()
	tick.EXPECT().Stop()

	config := testWorkerConfig()
	config.ReportInterval = time.Hour
	config.Metrics = metrics.NewAccounts(nil)
	config.TickerFactory = func(interval time.Duration) ticker.Ticker {
		require.Equal(t, time.Hour, interval)
		return tick
	}
	worker := newWorker(t, config, cpmemory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- worker.Run(ctx) }()

	require.NoError(t, worker.Submit(ctx, AccountUpdateEvent{Slot: 1, Key: keyA, ValueHash: h1}))
	require.NoError(t, worker.Submit(ctx, AccountUpdateEvent{Slot: 1, Key: keyB, ValueHash: h2}))
	require.Eventually(t, func() bool { return worker.Stats().Processed == 2 }, 5*time.Second, time.Millisecond)

	ticks <- time.Now()
	require.Eventually(t, func() bool { return testutil.ToFloat64(config.Metrics.TreeSize) == 2 }, 5*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-result)
	require.Equal(t, float64(2), testutil.ToFloat64(config.Metrics.ProcessedEvents))
	require.Equal(t, float64(1), testutil.ToFloat64(config.Metrics.FlushedRoots))
}

func TestNewWorker_RejectsInvalidConfiguration(t *testing.T) {
	tests := map[string]func(*WorkerConfig){
		"empty queue":     func(c *WorkerConfig) { c.QueueSize = 0 },
		"unset policy":    func(c *WorkerConfig) { c.ErrorPolicy = common.PolicyUnset },
		"negative period": func(c *WorkerConfig) { c.ReportInterval = -time.Second },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			config := testWorkerConfig()
			modify(&config)
			_, err := NewWorker(config, cpmemory.NewStore())
			require.Error(t, err)
		})
	}
	_, err := NewWorker(testWorkerConfig(), nil)
	require.Error(t, err)
}
