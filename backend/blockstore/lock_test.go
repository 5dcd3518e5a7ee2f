// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package blockstore_test

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore/memory"
)

func TestDirectoryLock_DefaultLockIsInvalid(t *testing.T) {
	lock := blockstore.DirectoryLock{}
	if lock.Valid() {
		t.Errorf("default lock should be invalid")
	}
	if err := lock.Release(); err == nil {
		t.Errorf("releasing an invalid lock should fail")
	}
}

func TestDirectoryLock_CanBeAcquiredAndReleased(t *testing.T) {
	dir := t.TempDir()
	lock, err := blockstore.LockDirectory(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if !lock.Valid() {
		t.Errorf("acquired lock is not valid")
	}
	if _, err := os.Stat(filepath.Join(dir, blockstore.LockFileName)); err != nil {
		t.Errorf("lock file should exist while acquired: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	if lock.Valid() {
		t.Errorf("released lock is still valid")
	}
	if err := lock.Release(); err == nil {
		t.Errorf("second release should have failed")
	}
}

func TestDirectoryLock_LocksAreExclusive(t *testing.T) {
	dir := t.TempDir()
	lockA, err := blockstore.LockDirectory(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if _, err := blockstore.LockDirectory(dir); !errors.Is(err, blockstore.ErrLedgerLocked) {
		t.Errorf("should not be able to acquire an occupied lock, got %v", err)
	}
	if err := lockA.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	lockB, err := blockstore.LockDirectory(dir)
	if err != nil {
		t.Fatalf("should be able to acquire a released lock: %v", err)
	}
	if err := lockB.Release(); err != nil {
		t.Errorf("failed to release lock: %v", err)
	}
}

func TestDirectoryLock_MissingDirectoryFails(t *testing.T) {
	if _, err := blockstore.LockDirectory(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("locking a missing directory should fail")
	}
}

func TestDirectoryLock_GovernsExclusiveAccessForSingleProcess(t *testing.T) {
	const N = 8
	dir := t.TempDir()
	timesAcquired := atomic.Int32{}
	numOwners := atomic.Int32{}

	var wg sync.WaitGroup
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				lock, err := blockstore.LockDirectory(dir)
				if err != nil {
					continue
				}
				timesAcquired.Add(1)
				if owners := numOwners.Add(1); owners > 1 {
					t.Errorf("invalid number of lock owners: %d", owners)
				}
				numOwners.Add(-1)
				if err := lock.Release(); err != nil {
					t.Errorf("failed to release lock: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if timesAcquired.Load() < 1 {
		t.Errorf("lock was never acquired")
	}
}

const lockedDirEnv = "REPLAYER_LOCKED_LEDGER_DIR"

func TestDirectoryLock_IsVisibleToOtherProcesses(t *testing.T) {
	if dir := os.Getenv(lockedDirEnv); dir != "" {
		// running as sub-process, the parent holds the lock
		if _, err := blockstore.LockDirectory(dir); !errors.Is(err, blockstore.ErrLedgerLocked) {
			t.Fatalf("lock held by parent process was acquired, err: %v", err)
		}
		return
	}

	dir := t.TempDir()
	lock, err := blockstore.LockDirectory(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	defer lock.Release()

	path, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to resolve path to test binary: %v", err)
	}
	cmd := exec.Command(path, "-test.run", "^TestDirectoryLock_IsVisibleToOtherProcesses$")
	cmd.Env = append(os.Environ(), lockedDirEnv+"="+dir)
	out := new(bytes.Buffer)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		t.Errorf("sub-process failed: %v\n%s", err, out.String())
	}
}

func TestOpenLedger_LocksDirectoryUntilClosed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	ledger, err := blockstore.OpenLedger(dir, "", memory.Open)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	if _, err := blockstore.OpenLedger(dir, "", memory.Open); !errors.Is(err, blockstore.ErrLedgerLocked) {
		t.Errorf("ledger in use should not be opened twice, got %v", err)
	}
	if err := ledger.Close(); err != nil {
		t.Fatalf("failed to close ledger: %v", err)
	}
	reopened, err := blockstore.OpenLedger(dir, "", memory.Open)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	if err := reopened.Close(); err != nil {
		t.Errorf("failed to close ledger: %v", err)
	}
}
