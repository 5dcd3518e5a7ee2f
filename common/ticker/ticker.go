// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ticker

import "time"

//go:generate mockgen -source ticker.go -destination ticker_mocks.go -package ticker

// Ticker delivers ticks on a channel until it is stopped. The account
// worker uses it to schedule its progress reports; tests substitute a mock
// to control when reports are produced.
type Ticker interface {
	// C returns the channel on which the ticks are delivered.
	C() <-chan time.Time

	// Stop turns off a ticker. After Stop, no more ticks will be sent.
	Stop()
}

// Factory creates a ticker firing at the given interval.
type Factory func(interval time.Duration) Ticker

// TimeTicker is a Ticker backed by a time.Ticker.
type TimeTicker struct {
	ticker *time.Ticker
}

// NewTimeTicker creates a ticker firing every d.
func NewTimeTicker(d time.Duration) TimeTicker {
	return TimeTicker{time.NewTicker(d)}
}

// NewTimeTickerFactory is a Factory producing TimeTickers.
func NewTimeTickerFactory(d time.Duration) Ticker {
	return NewTimeTicker(d)
}

func (t TimeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t TimeTicker) Stop() {
	t.ticker.Stop()
}

// NeverTicker is a Ticker that never fires. It is used when periodic
// reports are disabled.
type NeverTicker struct{}

func (NeverTicker) C() <-chan time.Time { return nil }

func (NeverTicker) Stop() {}
