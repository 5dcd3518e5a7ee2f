// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package notifier

import (
	"context"
	"errors"

	"github.com/Eclipse-Laboratories-Inc/execution/accounts"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"github.com/ethereum/go-ethereum/log"
)

// Target is a named notifier receiving forwarded notifications.
type Target struct {
	Name     string
	Notifier Notifier
}

// Forwarding passes every notification to a fixed list of targets. A failing
// target is logged and does not keep the others from being notified.
type Forwarding struct {
	targets []Target
	log     log.Logger
}

func NewForwarding(logger log.Logger, targets ...Target) *Forwarding {
	if logger == nil {
		logger = log.Root()
	}
	return &Forwarding{
		targets: targets,
		log:     logger.New("component", "notifier"),
	}
}

func (f *Forwarding) NotifyEntry(ctx context.Context, entry record.ShredRecord) error {
	for _, target := range f.targets {
		if err := target.Notifier.NotifyEntry(ctx, entry); err != nil {
			f.log.Error("Failed to notify entry", "target", target.Name, "slot", entry.Slot, "index", entry.EntryIndex, "err", err)
			continue
		}
		f.log.Trace("Notified entry", "target", target.Name, "slot", entry.Slot, "index", entry.EntryIndex)
	}
	return nil
}

func (f *Forwarding) NotifyAccountUpdate(ctx context.Context, account *accounts.AccountInfo) error {
	for _, target := range f.targets {
		if err := target.Notifier.NotifyAccountUpdate(ctx, account); err != nil {
			f.log.Error("Failed to notify account update", "target", target.Name, "slot", account.Slot, "err", err)
			continue
		}
		f.log.Trace("Notified account update", "target", target.Name, "slot", account.Slot)
	}
	return nil
}

func (f *Forwarding) Close() error {
	var errs []error
	for _, target := range f.targets {
		errs = append(errs, target.Notifier.Close())
	}
	return errors.Join(errs...)
}
