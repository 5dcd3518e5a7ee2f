// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package blockstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/Eclipse-Laboratories-Inc/execution/common"
)

const ErrLedgerLocked = common.ConstError("ledger is in use by another process")

// LockFileName is the name of the lock file in a ledger directory.
const LockFileName = "replayer.lock"

// DirectoryLock grants a process exclusive use of a ledger directory. The
// lock is an advisory lock on a file in the directory, so the operating
// system releases it when the owning process dies.
type DirectoryLock struct {
	path           string
	fileDescriptor int
}

// LockDirectory acquires the lock of the given directory, failing with
// ErrLedgerLocked if another owner holds it.
func LockDirectory(dir string) (*DirectoryLock, error) {
	path := filepath.Join(dir, LockFileName)
	fd, err := syscall.Open(path, syscall.O_CREAT|syscall.O_RDWR|syscall.O_CLOEXEC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		closeErr := syscall.Close(fd)
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLedgerLocked, path)
		}
		return nil, errors.Join(fmt.Errorf("failed to acquire lock: %w", err), closeErr)
	}
	// the owner's pid helps operators to find the process holding the ledger
	pid := []byte(strconv.Itoa(syscall.Getpid()) + "\n")
	if err := syscall.Ftruncate(fd, 0); err == nil {
		_, _ = syscall.Pwrite(fd, pid, 0)
	}
	return &DirectoryLock{path: path, fileDescriptor: fd}, nil
}

func (l *DirectoryLock) Valid() bool {
	return l.fileDescriptor > 0
}

// Release gives up the lock. Each lock may only be released once.
func (l *DirectoryLock) Release() error {
	if !l.Valid() {
		return fmt.Errorf("unable to release invalid lock")
	}
	if err := syscall.Close(l.fileDescriptor); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.fileDescriptor = 0
	return nil
}
