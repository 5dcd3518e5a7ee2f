// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eclipse-Laboratories-Inc/execution/accounts"
	"github.com/Eclipse-Laboratories-Inc/execution/common/interrupt"
	"github.com/Eclipse-Laboratories-Inc/execution/metrics"
	"github.com/Eclipse-Laboratories-Inc/execution/notifier"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var Accumulate = cli.Command{
	Action:    addPerformanceDiagnoses(accumulate),
	Name:      "accumulate",
	Usage:     "feeds account updates through the configured notifier and records a merkle root per slot",
	ArgsUsage: "<file with JSON account updates, - for stdin>",
}

// accountUpdate is the JSON form of an account update.
type accountUpdate struct {
	Pubkey       hexutil.Bytes `json:"pubkey"`
	Lamports     uint64        `json:"lamports"`
	RentEpoch    uint64        `json:"rent_epoch"`
	Owner        hexutil.Bytes `json:"owner"`
	Data         hexutil.Bytes `json:"data"`
	Executable   bool          `json:"executable"`
	Slot         uint64        `json:"slot"`
	WriteVersion uint64        `json:"write_version"`
}

func (u *accountUpdate) toAccountInfo() (*accounts.AccountInfo, error) {
	if len(u.Pubkey) != 32 {
		return nil, fmt.Errorf("pubkey must have 32 bytes, got %d", len(u.Pubkey))
	}
	if len(u.Owner) != 0 && len(u.Owner) != 32 {
		return nil, fmt.Errorf("owner must have 32 bytes, got %d", len(u.Owner))
	}
	res := &accounts.AccountInfo{
		Lamports:     u.Lamports,
		RentEpoch:    u.RentEpoch,
		Data:         u.Data,
		Executable:   u.Executable,
		Slot:         u.Slot,
		WriteVersion: u.WriteVersion,
	}
	copy(res.Pubkey[:], u.Pubkey)
	copy(res.Owner[:], u.Owner)
	return res, nil
}

func accumulate(context *cli.Context) (err error) {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing account update file")
	}
	in := io.Reader(os.Stdin)
	if name := context.Args().Get(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}

	ctx, cancel := interrupt.RegisterWithCancel(context.Context)
	defer cancel()
	cfg, err := loadConfig(context, true)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, env.Close()) }()
	env.serveMetrics(ctx)

	workerConfig := cfg.WorkerConfig()
	workerConfig.Metrics = metrics.NewAccounts(env.registry)
	worker, err := accounts.NewWorker(workerConfig, env.checkpoints)
	if err != nil {
		return err
	}
	persisting, err := notifier.NewPersisting(notifier.EntrySelector{SelectAll: cfg.Notifier.SelectAllEntries}, env.records, worker, nil)
	if err != nil {
		return err
	}
	notify, err := notifier.New(cfg.Notifier, notifier.Deps{
		Records: env.records,
		Events:  worker,
		Targets: []notifier.Target{{Name: "accumulator", Notifier: persisting}},
	})
	if err != nil {
		return err
	}
	if cfg.Notifier.Kind == notifier.KindNoop {
		log.Warn("Notifier discards account updates, no roots will be recorded")
	}

	done := make(chan error, 1)
	go func() {
		// a failed worker must not leave the feed blocked on a full queue
		defer cancel()
		done <- worker.Run(ctx)
	}()

	feedErr := feed(ctx, in, notify)
	if errors.Is(feedErr, interrupt.ErrCanceled) {
		feedErr = nil
	}
	if err := errors.Join(feedErr, notify.Close(), worker.Close(), <-done); err != nil {
		return err
	}
	if latest, found := worker.Latest(); found {
		fmt.Printf("Latest root at slot %d: %v\n", latest.Slot, latest.RootHash)
	}
	stats := worker.Stats()
	fmt.Printf("Processed %d account updates, dropped %d, recorded %d roots\n", stats.Processed, stats.Dropped, stats.Flushed)
	return nil
}

// feed decodes a stream of JSON account updates and notifies each of them.
func feed(ctx context.Context, in io.Reader, notify notifier.Notifier) error {
	decoder := json.NewDecoder(in)
	decoder.DisallowUnknownFields()
	for count := 0; ; count++ {
		if interrupt.IsCancelled(ctx) {
			return interrupt.ErrCanceled
		}
		var update accountUpdate
		if err := decoder.Decode(&update); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode account update %d; %w", count, err)
		}
		account, err := update.toAccountInfo()
		if err != nil {
			return fmt.Errorf("invalid account update %d; %w", count, err)
		}
		if err := notify.NotifyAccountUpdate(ctx, account); err != nil {
			if interrupt.IsCancelled(ctx) {
				return interrupt.ErrCanceled
			}
			return err
		}
	}
}
