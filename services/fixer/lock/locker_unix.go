// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

package lock

import (
	"os"
	"syscall"
)

// UnixFileLocker backs FileLocker with flock(2) advisory locks.
//
// # Description
//
// Advisory locking is enough here: every path that rewrites a PHP source
// file goes through this package, so two fix runs on the same project
// exclude each other without kernel-enforced mandatory locks. The lock
// dies with the file descriptor, so a killed run never leaves a project
// locked — only a stale lock file, which acquisition cleans up via the
// recorded PID.
//
// # Thread Safety
//
// Stateless; safe for concurrent use on distinct files.
type UnixFileLocker struct{}

// Lock takes an exclusive non-blocking flock on f.
//
// # Inputs
//
//   - f: Open lock file handle.
//
// # Outputs
//
//   - error: ErrFileLocked when another fix run holds the lock, a raw
//     syscall error on anything else.
func (l *UnixFileLocker) Lock(f *os.File) error {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if err == syscall.EWOULDBLOCK {
			return ErrFileLocked
		}
		return err
	}
	return nil
}

// Unlock drops the flock on f. Unlocking a file that was never locked is
// harmless.
func (l *UnixFileLocker) Unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

// isProcessAlive reports whether the PID recorded in a lock file still
// belongs to a running process. Signal 0 checks existence without
// delivering anything; permission errors count as dead because another
// user's process cannot be one of our fix runs.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// newPlatformLocker returns the flock-based locker.
func newPlatformLocker() FileLocker {
	return &UnixFileLocker{}
}
