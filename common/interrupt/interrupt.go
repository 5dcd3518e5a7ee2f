// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interrupt

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/ethereum/go-ethereum/log"
)

// ErrCanceled is reported by long running loops stopped through their context.
const ErrCanceled = common.ConstError("interrupted")

// IsCancelled returns true if the given context's CancelFunc has been called.
// Otherwise, returns false.
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Register catches SIGTERM and SIGINT signals and cancels the returned
// context, giving the replay engine and the account worker the chance to
// finish their current iteration and flush their state. The signal watcher
// lives until a signal arrives or the parent is done; use RegisterWithCancel
// to release it earlier.
func Register(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			log.Warn("Shutdown requested, finishing current iteration", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}

// RegisterWithCancel is like Register but also returns the cancel function
// of the derived context so callers can stop it on other conditions.
func RegisterWithCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	return Register(ctx), cancel
}
