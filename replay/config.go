// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package replay

import (
	"errors"
	"fmt"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/metrics"
	"github.com/ethereum/go-ethereum/log"
)

// Config parameterizes the replay engine.
type Config struct {
	// LedgerPath is the ledger directory handed to the verifier.
	LedgerPath string
	// SnapshotDir receives the snapshots created at checkpoints.
	SnapshotDir string

	// VerifyInterval is the number of slots between verifications.
	VerifyInterval uint64
	// SnapshotOffset is the distance of the snapshot slot below the
	// verified slot. It must be smaller than VerifyInterval.
	SnapshotOffset uint64

	// Backoff is the pause when the record store is exhausted or failing.
	Backoff time.Duration
	// RetryBackoff is the pause between attempts to insert a shred.
	RetryBackoff time.Duration
	// MaxInsertAttempts bounds the attempts to insert a single shred.
	MaxInsertAttempts int
	// MaxQueryAttempts bounds consecutive failed record store queries.
	MaxQueryAttempts int

	// ErrorPolicy decides whether exhausted retries terminate the engine.
	ErrorPolicy common.ErrorPolicy

	Logger  log.Logger
	Metrics *metrics.Replay
}

// DefaultConfig returns the default replay configuration. The error policy
// is left unset and has to be chosen by the caller.
func DefaultConfig() Config {
	return Config{
		VerifyInterval:    50,
		SnapshotOffset:    10,
		Backoff:           10 * time.Second,
		RetryBackoff:      time.Second,
		MaxInsertAttempts: 5,
		MaxQueryAttempts:  5,
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.VerifyInterval == 0 {
		errs = append(errs, fmt.Errorf("verify interval must be positive"))
	}
	if c.SnapshotOffset >= c.VerifyInterval {
		errs = append(errs, fmt.Errorf("snapshot offset %d must be smaller than verify interval %d", c.SnapshotOffset, c.VerifyInterval))
	}
	if c.MaxInsertAttempts < 1 {
		errs = append(errs, fmt.Errorf("max insert attempts must be at least 1"))
	}
	if c.MaxQueryAttempts < 1 {
		errs = append(errs, fmt.Errorf("max query attempts must be at least 1"))
	}
	if c.ErrorPolicy == common.PolicyUnset {
		errs = append(errs, fmt.Errorf("error policy must be set explicitly"))
	}
	if c.Backoff < 0 || c.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("backoff durations must not be negative"))
	}
	return errors.Join(errs...)
}
