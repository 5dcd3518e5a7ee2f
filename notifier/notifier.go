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

//go:generate mockgen -source notifier.go -destination notifier_mocks.go -package notifier

import (
	"context"
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/accounts"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/ethereum/go-ethereum/log"
)

const ErrUnknownKind = common.ConstError("unknown notifier kind")

// Notifier receives the entries and account updates produced by a validator.
type Notifier interface {
	// NotifyEntry is called for every entry of a replayed or produced slot.
	NotifyEntry(ctx context.Context, entry record.ShredRecord) error
	// NotifyAccountUpdate is called for every account written in a slot.
	NotifyAccountUpdate(ctx context.Context, account *accounts.AccountInfo) error
	Close() error
}

// EventSink accepts account update events, typically an accounts.Worker.
type EventSink interface {
	Submit(ctx context.Context, ev accounts.AccountUpdateEvent) error
}

type Kind string

const (
	KindNoop    Kind = "noop"
	KindForward Kind = "forward"
	KindPersist Kind = "persist"
)

type Config struct {
	Kind             Kind `json:"kind"`
	SelectAllEntries bool `json:"select_all_entries"`
}

func (c *Config) Validate() error {
	switch c.Kind {
	case KindNoop, KindForward, KindPersist:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
}

// Deps are the collaborators a notifier may forward to.
type Deps struct {
	Records record.Store
	Events  EventSink
	Targets []Target
	Logger  log.Logger
}

// New creates the notifier variant selected by the configuration.
func New(config Config, deps Deps) (Notifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Kind {
	case KindForward:
		return NewForwarding(deps.Logger, deps.Targets...), nil
	case KindPersist:
		return NewPersisting(EntrySelector{SelectAll: config.SelectAllEntries}, deps.Records, deps.Events, deps.Logger)
	}
	return Noop{}, nil
}

// EntrySelector decides which entries are of interest.
type EntrySelector struct {
	SelectAll bool
}

func (s EntrySelector) IsSelected(record.ShredRecord) bool {
	return s.SelectAll
}

// Noop ignores all notifications.
type Noop struct{}

func (Noop) NotifyEntry(context.Context, record.ShredRecord) error { return nil }

func (Noop) NotifyAccountUpdate(context.Context, *accounts.AccountInfo) error { return nil }

func (Noop) Close() error { return nil }
