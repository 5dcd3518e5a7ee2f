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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/common/ticker"
	"github.com/Eclipse-Laboratories-Inc/execution/database/smt"
	"github.com/Eclipse-Laboratories-Inc/execution/metrics"
	"github.com/ethereum/go-ethereum/log"
)

const (
	ErrQueueFull             = common.ConstError("account update queue is full")
	ErrWorkerClosed          = common.ConstError("account update worker is closed")
	ErrWorkerRunning         = common.ConstError("account update worker is already running")
	ErrRootPersistenceFailed = common.ConstError("failed to persist merkle root")
)

type WorkerConfig struct {
	// QueueSize is the capacity of the event queue.
	QueueSize int
	// ReportInterval is the period of progress reports, zero disables them.
	ReportInterval time.Duration
	// ErrorPolicy decides whether a failed root flush stops the worker.
	ErrorPolicy common.ErrorPolicy

	Logger  log.Logger
	Metrics *metrics.Accounts
	// TickerFactory creates the report ticker, defaults to a time ticker.
	TickerFactory ticker.Factory
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		QueueSize:      100,
		ReportInterval: time.Minute,
	}
}

func (c *WorkerConfig) Validate() error {
	var errs []error
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue size must be at least 1"))
	}
	if c.ReportInterval < 0 {
		errs = append(errs, fmt.Errorf("report interval must not be negative"))
	}
	if c.ErrorPolicy == common.PolicyUnset {
		errs = append(errs, fmt.Errorf("error policy must be set explicitly"))
	}
	return errors.Join(errs...)
}

// Stats summarizes the progress of a Worker.
type Stats struct {
	Slot          uint64
	Processed     uint64
	Dropped       uint64
	Flushed       uint64
	FlushFailures uint64
	QueueDepth    int
}

// Worker accumulates account updates into a sparse Merkle tree and records
// the root of every slot once the stream moves past it.
//
// Events are consumed by a single goroutine running Run. The tree is owned by
// that goroutine; other goroutines observe the accumulator through the
// immutable copies returned by Latest and Snapshot.
type Worker struct {
	config  WorkerConfig
	roots   checkpoint.RootStore
	log     log.Logger
	metrics *metrics.Accounts

	queue   chan AccountUpdateEvent
	mu      sync.RWMutex // guards closed against in-flight submissions
	closed  bool
	closing chan struct{}
	drain   chan struct{}
	once    sync.Once
	running atomic.Bool

	// owned by Run
	tree    *smt.Tree
	slot    uint64
	started bool

	latest        atomic.Pointer[checkpoint.MerkleRootRecord]
	snapshot      atomic.Pointer[smt.Snapshot]
	currentSlot   atomic.Uint64
	processed     atomic.Uint64
	dropped       atomic.Uint64
	flushed       atomic.Uint64
	flushFailures atomic.Uint64
}

func NewWorker(config WorkerConfig, roots checkpoint.RootStore) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid account worker configuration; %w", err)
	}
	if roots == nil {
		return nil, fmt.Errorf("account worker requires a root store")
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Root()
	}
	m := config.Metrics
	if m == nil {
		m = metrics.NewAccounts(nil)
	}
	w := &Worker{
		config:  config,
		roots:   roots,
		log:     logger.New("component", "accounts"),
		metrics: m,
		queue:   make(chan AccountUpdateEvent, config.QueueSize),
		closing: make(chan struct{}),
		drain:   make(chan struct{}),
		tree:    smt.NewTree(),
	}
	w.snapshot.Store(w.tree.Snapshot())
	return w, nil
}

// Submit enqueues an event, blocking while the queue is full.
func (w *Worker) Submit(ctx context.Context, ev AccountUpdateEvent) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.queue <- ev:
		w.metrics.QueueDepth.Set(float64(len(w.queue)))
		return nil
	case <-w.closing:
		return ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues an event if the queue has room.
func (w *Worker) TrySubmit(ev AccountUpdateEvent) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.queue <- ev:
		w.metrics.QueueDepth.Set(float64(len(w.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events. A running Run processes the events still
// queued, flushes the current slot and returns.
func (w *Worker) Close() error {
	w.once.Do(func() {
		close(w.closing)
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.drain)
	})
	return nil
}

// Run consumes events until the worker is closed or the context is
// cancelled. In both cases the root of the current slot is flushed before
// returning, even if not all updates of that slot have arrived.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWorkerRunning
	}
	defer w.running.Store(false)

	report := w.newTicker()
	defer report.Stop()

	w.log.Info("Account worker started", "queueSize", w.config.QueueSize, "policy", w.config.ErrorPolicy)
	for {
		select {
		case ev := <-w.queue:
			if err := w.process(ctx, ev); err != nil {
				return err
			}
		case <-report.C():
			w.report()
		case <-w.drain:
			for {
				select {
				case ev := <-w.queue:
					if err := w.process(ctx, ev); err != nil {
						return err
					}
				default:
					return w.shutdown(ctx)
				}
			}
		case <-ctx.Done():
			return w.shutdown(ctx)
		}
	}
}

func (w *Worker) newTicker() ticker.Ticker {
	if w.config.ReportInterval <= 0 {
		return ticker.NeverTicker{}
	}
	factory := w.config.TickerFactory
	if factory == nil {
		factory = ticker.NewTimeTickerFactory
	}
	return factory(w.config.ReportInterval)
}

func (w *Worker) process(ctx context.Context, ev AccountUpdateEvent) error {
	w.metrics.QueueDepth.Set(float64(len(w.queue)))
	if !w.started {
		w.started = true
		w.setSlot(ev.Slot)
	}
	switch {
	case ev.Slot < w.slot:
		w.dropped.Add(1)
		w.metrics.DroppedEvents.Inc()
		w.log.Warn("Dropping account update for flushed slot", "slot", ev.Slot, "current", w.slot, "key", ev.Key)
		return nil
	case ev.Slot > w.slot:
		if err := w.flush(ctx); err != nil && w.config.ErrorPolicy.Abort() {
			return err
		}
		w.setSlot(ev.Slot)
	}

	value := ev.ValueHash
	if ev.IsTombstone {
		value = common.Hash{}
	}
	w.tree.Set(ev.Key, value)
	w.processed.Add(1)
	w.metrics.ProcessedEvents.Inc()
	return nil
}

func (w *Worker) setSlot(slot uint64) {
	w.slot = slot
	w.currentSlot.Store(slot)
	w.metrics.CurrentSlot.Set(float64(slot))
}

// flush records the root of the current slot and publishes it.
func (w *Worker) flush(ctx context.Context) error {
	rec := checkpoint.MerkleRootRecord{
		Slot:      w.slot,
		RootHash:  w.tree.Root(),
		UpdatedOn: time.Now().UTC(),
	}
	if err := w.roots.AppendRoot(ctx, rec); err != nil {
		w.flushFailures.Add(1)
		w.metrics.FlushFailures.Inc()
		w.log.Error("Failed to persist merkle root", "slot", rec.Slot, "root", rec.RootHash, "err", err)
		return fmt.Errorf("%w for slot %d: %w", ErrRootPersistenceFailed, rec.Slot, err)
	}
	w.latest.Store(&rec)
	w.snapshot.Store(w.tree.Snapshot())
	w.flushed.Add(1)
	w.metrics.FlushedRoots.Inc()
	w.metrics.TreeSize.Set(float64(w.tree.Len()))
	w.log.Debug("Merkle root recorded", "slot", rec.Slot, "root", rec.RootHash, "accounts", w.tree.Len())
	return nil
}

func (w *Worker) shutdown(ctx context.Context) error {
	defer w.log.Info("Account worker stopped", "slot", w.slot, "processed", w.processed.Load())
	if !w.started {
		return nil
	}
	// the final root is recorded even though shutdown was requested
	if err := w.flush(context.WithoutCancel(ctx)); err != nil && w.config.ErrorPolicy.Abort() {
		return err
	}
	return nil
}

func (w *Worker) report() {
	stats := w.Stats()
	w.metrics.QueueDepth.Set(float64(stats.QueueDepth))
	w.metrics.TreeSize.Set(float64(w.tree.Len()))
	w.log.Info("Account worker progress", "slot", stats.Slot, "processed", stats.Processed,
		"dropped", stats.Dropped, "flushed", stats.Flushed, "queue", stats.QueueDepth, "accounts", w.tree.Len())
}

// Latest returns the most recently persisted root.
func (w *Worker) Latest() (checkpoint.MerkleRootRecord, bool) {
	rec := w.latest.Load()
	if rec == nil {
		return checkpoint.MerkleRootRecord{}, false
	}
	return *rec, true
}

// Snapshot returns the accumulator state of the most recently persisted root.
func (w *Worker) Snapshot() *smt.Snapshot {
	return w.snapshot.Load()
}

func (w *Worker) Stats() Stats {
	return Stats{
		Slot:          w.currentSlot.Load(),
		Processed:     w.processed.Load(),
		Dropped:       w.dropped.Load(),
		Flushed:       w.flushed.Load(),
		FlushFailures: w.flushFailures.Load(),
		QueueDepth:    len(w.queue),
	}
}
