// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package metrics defines the Prometheus collectors of the replay and
// account pipelines.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replayer"

// Replay holds the collectors of the replay engine.
type Replay struct {
	CurrentSlot    prometheus.Gauge
	ReplayedSlots  prometheus.Counter
	SkippedSlots   prometheus.Counter
	InsertedShreds prometheus.Counter
	InsertRetries  prometheus.Counter
	QueryFailures  prometheus.Counter
	Checkpoints    prometheus.Counter
	LastCheckpoint prometheus.Gauge
}

// Accounts holds the collectors of the account update worker.
type Accounts struct {
	ProcessedEvents prometheus.Counter
	DroppedEvents   prometheus.Counter
	FlushedRoots    prometheus.Counter
	FlushFailures   prometheus.Counter
	CurrentSlot     prometheus.Gauge
	QueueDepth      prometheus.Gauge
	TreeSize        prometheus.Gauge
}

// NewReplay registers the replay collectors. A nil registerer creates
// unregistered collectors.
func NewReplay(reg prometheus.Registerer) *Replay {
	factory := promauto.With(reg)
	return &Replay{
		CurrentSlot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "replay", Name: "current_slot",
			Help: "Slot the replay engine is processing.",
		}),
		ReplayedSlots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "replay", Name: "slots_total",
			Help: "Number of slots inserted into the ledger.",
		}),
		SkippedSlots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "replay", Name: "skipped_slots_total",
			Help: "Number of empty slots skipped.",
		}),
		InsertedShreds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "replay", Name: "shreds_total",
			Help: "Number of shreds inserted into the ledger.",
		}),
		InsertRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "replay", Name: "insert_retries_total",
			Help: "Number of retried shred insertions.",
		}),
		QueryFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "replay", Name: "query_failures_total",
			Help: "Number of failed record store queries.",
		}),
		Checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "replay", Name: "checkpoints_total",
			Help: "Number of verification checkpoints written.",
		}),
		LastCheckpoint: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "replay", Name: "last_checkpoint_slot",
			Help: "Slot of the last verification checkpoint.",
		}),
	}
}

// NewAccounts registers the account worker collectors. A nil registerer
// creates unregistered collectors.
func NewAccounts(reg prometheus.Registerer) *Accounts {
	factory := promauto.With(reg)
	return &Accounts{
		ProcessedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "events_total",
			Help: "Number of account updates applied to the tree.",
		}),
		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "dropped_events_total",
			Help: "Number of account updates dropped for referring to an older slot.",
		}),
		FlushedRoots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "roots_total",
			Help: "Number of Merkle roots persisted.",
		}),
		FlushFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "flush_failures_total",
			Help: "Number of failed attempts to persist a Merkle root.",
		}),
		CurrentSlot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "current_slot",
			Help: "Slot the account worker is accumulating.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "queue_depth",
			Help: "Number of account updates waiting in the queue.",
		}),
		TreeSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "accounts", Name: "tree_size",
			Help: "Number of accounts in the Merkle tree.",
		}),
	}
}

// Serve exposes the metrics of the gatherer on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shut down metrics server", "err", err)
		}
	}()

	log.Info("Serving metrics", "addr", addr)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}
