// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lock

import (
	"os"
	"time"
)

// DefaultLockDir is the lock directory relative to the project root.
const DefaultLockDir = ".phpfixer/locks"

// LockInfo describes an acquired lock, persisted beside the lock for
// debugging and stale detection.
type LockInfo struct {
	// FilePath is the absolute path of the locked file.
	FilePath string `json:"file_path"`

	// PID is the process holding the lock.
	PID int `json:"pid"`

	// SessionID identifies the fix run holding the lock.
	SessionID string `json:"session_id"`

	// LockedAt is when the lock was acquired.
	LockedAt time.Time `json:"locked_at"`

	// ExpiresAt is when the lock becomes stale regardless of the holder.
	ExpiresAt time.Time `json:"expires_at"`

	// Reason is a human-readable acquisition reason.
	Reason string `json:"reason"`
}

// IsExpired reports whether the lock has passed its TTL.
func (l *LockInfo) IsExpired() bool {
	return time.Now().After(l.ExpiresAt)
}

// ManagerConfig configures a FileLockManager.
type ManagerConfig struct {
	// LockDir is where lock info files are kept. Defaults to
	// DefaultLockDir resolved against the working directory.
	LockDir string

	// SessionID identifies this fix run in lock info files.
	SessionID string

	// DefaultTTL bounds how long a lock is honored after its holder
	// stops responding. Defaults to one hour.
	DefaultTTL time.Duration

	// CleanupOnInit removes stale locks from crashed processes when the
	// manager is created.
	CleanupOnInit bool

	// WatchLocked watches locked files for external modification and
	// fires registered callbacks. Off by default because the fixer's own
	// commits rename over locked files.
	WatchLocked bool
}

// DefaultManagerConfig returns the standard configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		LockDir:       DefaultLockDir,
		DefaultTTL:    time.Hour,
		CleanupOnInit: true,
	}
}

// lockEntry tracks one lock held by this manager.
type lockEntry struct {
	file     *os.File
	path     string
	lockPath string
	info     *LockInfo
}

// ChangeType classifies an external modification to a locked file.
type ChangeType string

const (
	ChangeWrite  ChangeType = "write"
	ChangeDelete ChangeType = "delete"
	ChangeRename ChangeType = "rename"
)

// String returns the change type name.
func (c ChangeType) String() string {
	return string(c)
}

// ExternalChangeEvent reports an external modification to a locked file.
type ExternalChangeEvent struct {
	// Path is the modified file.
	Path string

	// EventType classifies the modification.
	EventType ChangeType
}
