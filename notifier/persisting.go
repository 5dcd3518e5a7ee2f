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
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/accounts"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/record"
	"github.com/ethereum/go-ethereum/log"
)

// Persisting stores selected entries in a record store and queues account
// updates for accumulation.
type Persisting struct {
	selector EntrySelector
	records  record.Store
	events   EventSink
	log      log.Logger
}

func NewPersisting(selector EntrySelector, records record.Store, events EventSink, logger log.Logger) (*Persisting, error) {
	if selector.SelectAll && records == nil {
		return nil, fmt.Errorf("persisting selected entries requires a record store")
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Persisting{
		selector: selector,
		records:  records,
		events:   events,
		log:      logger.New("component", "notifier"),
	}, nil
}

func (p *Persisting) NotifyEntry(ctx context.Context, entry record.ShredRecord) error {
	if !p.selector.IsSelected(entry) {
		return nil
	}
	if err := p.records.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist entry %d of slot %d: %w", entry.EntryIndex, entry.Slot, err)
	}
	return nil
}

func (p *Persisting) NotifyAccountUpdate(ctx context.Context, account *accounts.AccountInfo) error {
	if p.events == nil {
		return nil
	}
	return p.events.Submit(ctx, account.ToEvent())
}

func (p *Persisting) Close() error {
	return nil
}
