// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ledgertool drives the external ledger tool used to verify the
// replayed ledger and to create snapshots of it.
package ledgertool

import (
	"context"
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

//go:generate mockgen -source ledgertool.go -destination ledgertool_mocks.go -package ledgertool

const (
	ErrVerifyFailed   = common.ConstError("ledger verification failed")
	ErrSnapshotFailed = common.ConstError("snapshot creation failed")
)

// Verifier checks a ledger and materializes snapshots of it. Cancelling the
// context prevents an operation from starting but does not abort one that is
// already running.
type Verifier interface {
	// Verify checks the ledger at ledgerPath up to and including haltAtSlot.
	Verify(ctx context.Context, ledgerPath string, haltAtSlot uint64) error

	// CreateSnapshot creates a snapshot of the ledger state at the given
	// slot inside outputDir.
	CreateSnapshot(ctx context.Context, ledgerPath string, atSlot uint64, outputDir string) error
}

// ToolError describes a failed invocation of the ledger tool.
type ToolError struct {
	Op       string
	Slot     uint64
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("ledger tool %s at slot %d failed with exit code %d: %v\n%s", e.Op, e.Slot, e.ExitCode, e.Err, e.Output)
}

// Unwrap exposes the failure cause and the sentinel error of the operation.
func (e *ToolError) Unwrap() []error {
	sentinel := ErrVerifyFailed
	if e.Op == opSnapshot {
		sentinel = ErrSnapshotFailed
	}
	return []error{sentinel, e.Err}
}
