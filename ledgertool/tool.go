// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledgertool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/utils"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
)

const (
	opVerify   = "verify"
	opSnapshot = "create-snapshot"

	stagingPrefix = ".staging-"
	// ManifestFile is written into every snapshot directory.
	ManifestFile = "snapshot.json"
	// maxOutput bounds the tool output kept in errors.
	maxOutput = 8 << 10
)

// Manifest describes a snapshot created by the tool.
type Manifest struct {
	Slot      uint64    `json:"slot"`
	Ledger    string    `json:"ledger"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotDir returns the directory holding the snapshot of the given slot.
func SnapshotDir(outputDir string, slot uint64) string {
	return filepath.Join(outputDir, "snapshot-"+strconv.FormatUint(slot, 10))
}

// Tool runs an external ledger tool executable.
type Tool struct {
	path string
	log  log.Logger
}

func NewTool(path string, logger log.Logger) *Tool {
	if logger == nil {
		logger = log.Root()
	}
	return &Tool{path: path, log: logger.New("component", "ledgertool")}
}

// Verify runs '<tool> -l <ledger> verify --halt-at-slot <slot>'.
func (t *Tool) Verify(ctx context.Context, ledgerPath string, haltAtSlot uint64) error {
	slot := strconv.FormatUint(haltAtSlot, 10)
	return t.run(ctx, opVerify, haltAtSlot, "-l", ledgerPath, opVerify, "--halt-at-slot", slot)
}

// CreateSnapshot runs '<tool> -l <ledger> create-snapshot <slot> <dir>' into
// a staging directory, which is moved to SnapshotDir(outputDir, slot) once
// the tool succeeded. A failed run leaves no trace in outputDir.
func (t *Tool) CreateSnapshot(ctx context.Context, ledgerPath string, atSlot uint64, outputDir string) error {
	fail := func(err error) error {
		return &ToolError{Op: opSnapshot, Slot: atSlot, ExitCode: -1, Err: err}
	}
	if err := os.MkdirAll(outputDir, 0700); err != nil {
		return fail(err)
	}
	if err := removeStaging(outputDir); err != nil {
		return fail(err)
	}
	staging := filepath.Join(outputDir, stagingPrefix+uuid.NewString())
	if err := os.Mkdir(staging, 0700); err != nil {
		return fail(err)
	}
	if err := t.run(ctx, opSnapshot, atSlot, "-l", ledgerPath, opSnapshot, strconv.FormatUint(atSlot, 10), staging); err != nil {
		return errors.Join(err, os.RemoveAll(staging))
	}
	manifest := Manifest{Slot: atSlot, Ledger: ledgerPath, CreatedAt: time.Now().UTC()}
	if err := utils.WriteJsonFile(filepath.Join(staging, ManifestFile), manifest); err != nil {
		return errors.Join(fail(err), os.RemoveAll(staging))
	}
	target := SnapshotDir(outputDir, atSlot)
	// a snapshot of the same slot left by an earlier run is replaced
	if err := os.RemoveAll(target); err != nil {
		return errors.Join(fail(err), os.RemoveAll(staging))
	}
	if err := os.Rename(staging, target); err != nil {
		return errors.Join(fail(err), os.RemoveAll(staging))
	}
	t.log.Info("Snapshot created", "slot", atSlot, "dir", target)
	return nil
}

// run executes the tool once. The context is only consulted before the tool
// starts: a running invocation is never interrupted.
func (t *Tool) run(ctx context.Context, op string, slot uint64, args ...string) error {
	if err := ctx.Err(); err != nil {
		return &ToolError{Op: op, Slot: slot, ExitCode: -1, Err: err}
	}
	cmd := exec.Command(t.path, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	t.log.Info("Running ledger tool", "op", op, "slot", slot)
	err := cmd.Run()
	t.log.Debug("Ledger tool output", "op", op, "slot", slot, "output", output.String())
	if err == nil {
		t.log.Info("Ledger tool finished", "op", op, "slot", slot, "elapsed", time.Since(start))
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	res := &ToolError{Op: op, Slot: slot, ExitCode: exitCode, Output: tail(output.String()), Err: err}
	t.log.Error("Ledger tool failed", "op", op, "slot", slot, "exitCode", exitCode, "err", err)
	return res
}

func removeStaging(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), stagingPrefix) {
			if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("failed to remove stale staging directory; %w", err)
			}
		}
	}
	return nil
}

func tail(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	return "..." + s[len(s)-maxOutput:]
}
