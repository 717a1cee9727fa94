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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileLockManager manages file locks for safe fixer file operations.
//
// # Description
//
// A fix run locks every file it is about to rewrite, plus a per-project
// run sentinel so two fixer processes never interleave edits on the same
// project. Provides:
// - Advisory locks via syscall.Flock (Unix) or LockFileEx (Windows)
// - External change detection via fsnotify while a file is locked
// - Stale lock cleanup via PID checks and TTL expiration
// - Lock info files for debugging and visibility
//
// # Thread Safety
//
// All public methods are safe for concurrent use from multiple goroutines.
type FileLockManager struct {
	lockDir     string
	sessionID   string
	defaultTTL  time.Duration
	watchLocked bool
	locker      FileLocker
	locks       map[string]*lockEntry
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	watcherMu   sync.Mutex
	callbacks   map[string][]func(ExternalChangeEvent)
}

// NewFileLockManager creates a new file lock manager.
//
// # Description
//
// Creates a manager with the specified configuration. If CleanupOnInit is
// true, stale locks from crashed processes are cleaned up on creation.
//
// # Inputs
//
//   - config: Manager configuration. Use DefaultManagerConfig() for defaults.
//
// # Outputs
//
//   - *FileLockManager: Ready-to-use lock manager.
//   - error: Non-nil if setup fails (e.g., can't create lock directory).
func NewFileLockManager(config ManagerConfig) (*FileLockManager, error) {
	if config.LockDir == "" {
		config.LockDir = DefaultLockDir
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = time.Hour
	}

	if err := os.MkdirAll(config.LockDir, 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory %s: %w", config.LockDir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	m := &FileLockManager{
		lockDir:     config.LockDir,
		sessionID:   config.SessionID,
		defaultTTL:  config.DefaultTTL,
		watchLocked: config.WatchLocked,
		locker:      newFileLocker(),
		locks:       make(map[string]*lockEntry),
		watcher:     watcher,
		callbacks:   make(map[string][]func(ExternalChangeEvent)),
	}

	go m.watchLoop()

	if config.CleanupOnInit {
		cleaned, err := m.CleanupStaleLocks()
		if err != nil {
			slog.Warn("Failed to cleanup stale locks on init",
				"error", err)
		} else if cleaned > 0 {
			slog.Info("Cleaned up stale locks on init",
				"count", cleaned)
		}
	}

	return m, nil
}

// AcquireLock acquires an exclusive lock on a file.
//
// # Description
//
// Attempts to acquire an exclusive lock on the specified file.
// Non-blocking: returns immediately if the file is already locked.
// Creates a .lock info file in the lock directory for visibility.
// The target file is created if it does not exist, so run sentinels can
// be locked the same way as source files.
//
// # Inputs
//
//   - filePath: Absolute or relative path to the file to lock.
//   - reason: Human-readable reason for the lock (for debugging).
//
// # Outputs
//
//   - error: nil on success, FileLockError if already locked, other
//     errors on failure.
func (m *FileLockManager) AcquireLock(filePath, reason string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("resolving path %s: %w", filePath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Already locked by us: refresh the reason only.
	if entry, ok := m.locks[absPath]; ok {
		entry.info.Reason = reason
		return nil
	}

	if err := m.ensureLockDir(); err != nil {
		return err
	}

	// Check if another process holds the lock.
	lockPath := m.lockPath(absPath)
	existingLock, err := m.readLockInfo(lockPath)
	if err == nil && existingLock != nil {
		if !existingLock.IsExpired() && IsProcessAlive(existingLock.PID) {
			return &FileLockError{
				Path:   absPath,
				Holder: existingLock,
				Err:    ErrFileLocked,
			}
		}
		// Stale lock, clean it up.
		slog.Info("Removing stale lock",
			"path", absPath,
			"old_pid", existingLock.PID)
		_ = os.Remove(lockPath)
	}

	f, err := os.OpenFile(absPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening file for lock %s: %w", absPath, err)
	}

	if err := m.locker.Lock(f); err != nil {
		f.Close()
		if err == ErrFileLocked {
			return &FileLockError{
				Path: absPath,
				Err:  ErrFileLocked,
			}
		}
		return fmt.Errorf("acquiring lock on %s: %w", absPath, err)
	}

	now := time.Now()
	info := &LockInfo{
		FilePath:  absPath,
		PID:       os.Getpid(),
		SessionID: m.sessionID,
		LockedAt:  now,
		ExpiresAt: now.Add(m.defaultTTL),
		Reason:    reason,
	}

	if err := m.writeLockInfo(lockPath, info); err != nil {
		m.locker.Unlock(f)
		f.Close()
		return fmt.Errorf("writing lock info: %w", err)
	}

	// The fixer's own commits rename over locked files, which would read
	// as external changes, so watching is opt-in.
	if m.watchLocked {
		m.addWatch(absPath)
	}

	m.locks[absPath] = &lockEntry{
		file:     f,
		path:     absPath,
		lockPath: lockPath,
		info:     info,
	}

	slog.Debug("Acquired lock",
		"path", absPath,
		"reason", reason,
		"expires_at", info.ExpiresAt.Format(time.RFC3339))

	return nil
}

// AcquireLockWait acquires a lock, waiting for the current holder.
//
// # Description
//
// Like AcquireLock, but when the file is locked it waits for lock
// releases instead of returning. Lock directory changes are watched via
// fsnotify, with a polling ticker as a fallback for missed events.
//
// # Inputs
//
//   - ctx: Context bounding the wait.
//   - filePath: Path to the file to lock.
//   - reason: Human-readable reason for the lock.
//
// # Outputs
//
//   - error: nil on success, ErrWaitTimeout wrapping the context error
//     when the wait was abandoned.
func (m *FileLockManager) AcquireLockWait(ctx context.Context, filePath, reason string) error {
	err := m.AcquireLock(filePath, reason)
	if err == nil || !errors.Is(err, ErrFileLocked) {
		return err
	}

	// Watch the lock directory so releases wake us promptly.
	dirWatcher, watchErr := fsnotify.NewWatcher()
	if watchErr == nil {
		if addErr := dirWatcher.Add(m.lockDir); addErr != nil {
			dirWatcher.Close()
			dirWatcher = nil
		}
	} else {
		dirWatcher = nil
	}
	if dirWatcher != nil {
		defer dirWatcher.Close()
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		var events <-chan fsnotify.Event
		if dirWatcher != nil {
			events = dirWatcher.Events
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrWaitTimeout, ctx.Err())
		case <-events:
		case <-ticker.C:
		}

		err = m.AcquireLock(filePath, reason)
		if err == nil || !errors.Is(err, ErrFileLocked) {
			return err
		}
	}
}

// ReleaseLock releases a lock on a file.
//
// # Description
//
// Releases a previously acquired lock. Safe to call on unlocked files
// (returns ErrLockNotHeld). Removes the .lock info file.
//
// # Inputs
//
//   - filePath: Path to the file to unlock (must match path used in
//     AcquireLock).
//
// # Outputs
//
//   - error: nil on success, ErrLockNotHeld if not locked by this manager.
func (m *FileLockManager) ReleaseLock(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("resolving path %s: %w", filePath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[absPath]
	if !ok {
		return ErrLockNotHeld
	}

	return m.releaseLockEntry(absPath, entry)
}

// releaseLockEntry releases a lock entry (must be called with mu held).
func (m *FileLockManager) releaseLockEntry(absPath string, entry *lockEntry) error {
	m.removeWatch(absPath)

	if err := m.locker.Unlock(entry.file); err != nil {
		slog.Warn("Failed to unlock file",
			"path", absPath,
			"error", err)
	}
	entry.file.Close()

	if err := os.Remove(entry.lockPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove lock file",
			"path", entry.lockPath,
			"error", err)
	}

	delete(m.locks, absPath)

	slog.Debug("Released lock",
		"path", absPath)

	return nil
}

// ReleaseAll releases all locks held by this manager.
//
// # Outputs
//
//   - error: First error encountered (continues releasing on error).
func (m *FileLockManager) ReleaseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for path, entry := range m.locks {
		if err := m.releaseLockEntry(path, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IsLocked checks if a file is locked by any process.
//
// # Description
//
// Checks both our internal state and lock info files to determine
// if a file is locked. Useful for pre-flight checks.
//
// # Inputs
//
//   - filePath: Path to check.
//
// # Outputs
//
//   - bool: True if file is locked.
//   - *LockInfo: Information about the lock holder (nil if not locked).
//   - error: Non-nil on failure to check.
func (m *FileLockManager) IsLocked(filePath string) (bool, *LockInfo, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return false, nil, fmt.Errorf("resolving path %s: %w", filePath, err)
	}

	m.mu.Lock()
	if entry, ok := m.locks[absPath]; ok {
		m.mu.Unlock()
		return true, entry.info, nil
	}
	m.mu.Unlock()

	lockPath := m.lockPath(absPath)
	info, err := m.readLockInfo(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}
		return false, nil, err
	}

	if info == nil {
		return false, nil, nil
	}

	if info.IsExpired() || !IsProcessAlive(info.PID) {
		return false, nil, nil // Stale lock
	}

	return true, info, nil
}

// CleanupStaleLocks removes locks from dead processes.
//
// # Description
//
// Scans the lock directory for lock files from processes that have
// exited or locks that have expired. Removes stale lock files.
//
// # Outputs
//
//   - int: Number of stale locks cleaned up.
//   - error: Non-nil on failure to scan directory.
func (m *FileLockManager) CleanupStaleLocks() (int, error) {
	entries, err := os.ReadDir(m.lockDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading lock directory: %w", err)
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lock" {
			continue
		}

		lockPath := filepath.Join(m.lockDir, entry.Name())
		info, err := m.readLockInfo(lockPath)
		if err != nil {
			slog.Warn("Failed to read lock info",
				"path", lockPath,
				"error", err)
			continue
		}

		if info == nil {
			continue
		}

		if info.IsExpired() || !IsProcessAlive(info.PID) {
			slog.Info("Cleaning up stale lock",
				"path", info.FilePath,
				"pid", info.PID,
				"expired", info.IsExpired())
			if err := os.Remove(lockPath); err != nil {
				slog.Warn("Failed to remove stale lock",
					"path", lockPath,
					"error", err)
			} else {
				cleaned++
			}
		}
	}

	return cleaned, nil
}

// RegisterCallback registers a callback for external file changes.
//
// # Description
//
// The callback is invoked when a locked file is modified externally.
// Multiple callbacks can be registered for the same file.
//
// # Inputs
//
//   - filePath: Path to monitor.
//   - callback: Function to call on change.
func (m *FileLockManager) RegisterCallback(filePath string, callback func(ExternalChangeEvent)) {
	absPath, _ := filepath.Abs(filePath)

	m.addWatch(absPath)

	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()

	m.callbacks[absPath] = append(m.callbacks[absPath], callback)
}

// Close shuts down the lock manager.
//
// # Description
//
// Releases all locks and stops the file watcher.
// Should be called when the manager is no longer needed.
//
// # Outputs
//
//   - error: First error encountered during shutdown.
func (m *FileLockManager) Close() error {
	if err := m.ReleaseAll(); err != nil {
		slog.Warn("Error releasing locks during close",
			"error", err)
	}

	return m.watcher.Close()
}

// =============================================================================
// Internal helpers
// =============================================================================

// lockPath generates the lock file path for a given file.
// Uses SHA256[:16] for collision resistance.
func (m *FileLockManager) lockPath(absPath string) string {
	hash := sha256.Sum256([]byte(absPath))
	hashStr := hex.EncodeToString(hash[:])[:16]
	return filepath.Join(m.lockDir, hashStr+".lock")
}

// ensureLockDir ensures the lock directory exists.
func (m *FileLockManager) ensureLockDir() error {
	if err := os.MkdirAll(m.lockDir, 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	return nil
}

// writeLockInfo writes lock metadata to a JSON file.
func (m *FileLockManager) writeLockInfo(lockPath string, info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(lockPath, data, 0644)
}

// readLockInfo reads lock metadata from a JSON file.
func (m *FileLockManager) readLockInfo(lockPath string) (*LockInfo, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// addWatch adds a file to the watcher.
func (m *FileLockManager) addWatch(path string) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()

	if err := m.watcher.Add(path); err != nil {
		slog.Warn("Failed to watch file",
			"path", path,
			"error", err)
	}
}

// removeWatch removes a file from the watcher.
func (m *FileLockManager) removeWatch(path string) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()

	if err := m.watcher.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			slog.Debug("Note: file was not being watched",
				"path", path)
		}
	}

	delete(m.callbacks, path)
}

// watchLoop handles fsnotify events.
func (m *FileLockManager) watchLoop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleWatchEvent(event)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error",
				"error", err)
		}
	}
}

// handleWatchEvent processes a single fsnotify event.
func (m *FileLockManager) handleWatchEvent(event fsnotify.Event) {
	var changeType ChangeType
	switch {
	case event.Op&fsnotify.Write != 0:
		changeType = ChangeWrite
	case event.Op&fsnotify.Remove != 0:
		changeType = ChangeDelete
	case event.Op&fsnotify.Rename != 0:
		changeType = ChangeRename
	default:
		return
	}

	absPath, _ := filepath.Abs(event.Name)

	m.mu.Lock()
	_, weHoldLock := m.locks[absPath]
	m.mu.Unlock()

	if !weHoldLock {
		return
	}

	slog.Warn("External modification detected on locked file",
		"path", absPath,
		"event", changeType.String())

	m.watcherMu.Lock()
	callbacks := m.callbacks[absPath]
	m.watcherMu.Unlock()

	changeEvent := ExternalChangeEvent{
		Path:      absPath,
		EventType: changeType,
	}

	for _, cb := range callbacks {
		cb(changeEvent)
	}
}
