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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestManager(t *testing.T, tmpDir string) *FileLockManager {
	t.Helper()
	config := DefaultManagerConfig()
	config.LockDir = filepath.Join(tmpDir, "locks")
	config.SessionID = "test-session"
	config.CleanupOnInit = false

	manager, err := NewFileLockManager(config)
	if err != nil {
		t.Fatalf("NewFileLockManager failed: %v", err)
	}
	return manager
}

func TestNewFileLockManager(t *testing.T) {
	t.Run("creates manager with defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		config := DefaultManagerConfig()
		config.LockDir = filepath.Join(tmpDir, "locks")
		config.SessionID = "test-session"
		config.CleanupOnInit = false

		manager, err := NewFileLockManager(config)
		if err != nil {
			t.Fatalf("NewFileLockManager failed: %v", err)
		}
		defer manager.Close()

		if _, err := os.Stat(config.LockDir); os.IsNotExist(err) {
			t.Error("Lock directory was not created")
		}
	})

	t.Run("fails with invalid lock directory", func(t *testing.T) {
		config := DefaultManagerConfig()
		config.LockDir = "/proc/invalid/lock/path"
		config.CleanupOnInit = false

		_, err := NewFileLockManager(config)
		if err == nil {
			t.Error("Expected error for invalid lock directory")
		}
	})
}

func TestFileLockManager_AcquireRelease(t *testing.T) {
	t.Run("acquire and release lock successfully", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager := createTestManager(t, tmpDir)
		defer manager.Close()

		testFile := filepath.Join(tmpDir, "User.php")
		if err := os.WriteFile(testFile, []byte("<?php"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		err := manager.AcquireLock(testFile, "applying type fixes")
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		locked, info, err := manager.IsLocked(testFile)
		if err != nil {
			t.Fatalf("IsLocked failed: %v", err)
		}
		if !locked {
			t.Error("Expected file to be locked")
		}
		if info == nil {
			t.Error("Expected lock info")
		} else {
			if info.Reason != "applying type fixes" {
				t.Errorf("Expected reason 'applying type fixes', got %q", info.Reason)
			}
			if info.PID != os.Getpid() {
				t.Errorf("Expected PID %d, got %d", os.Getpid(), info.PID)
			}
			if info.SessionID != "test-session" {
				t.Errorf("Expected session 'test-session', got %q", info.SessionID)
			}
		}

		if err := manager.ReleaseLock(testFile); err != nil {
			t.Fatalf("ReleaseLock failed: %v", err)
		}

		locked, _, err = manager.IsLocked(testFile)
		if err != nil {
			t.Fatalf("IsLocked failed: %v", err)
		}
		if locked {
			t.Error("Expected file to be unlocked")
		}
	})

	t.Run("double acquire same file succeeds", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager := createTestManager(t, tmpDir)
		defer manager.Close()

		testFile := filepath.Join(tmpDir, "User.php")
		if err := os.WriteFile(testFile, []byte("<?php"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		if err := manager.AcquireLock(testFile, "first"); err != nil {
			t.Fatalf("First AcquireLock failed: %v", err)
		}
		if err := manager.AcquireLock(testFile, "second"); err != nil {
			t.Fatalf("Second AcquireLock failed: %v", err)
		}

		_, info, err := manager.IsLocked(testFile)
		if err != nil {
			t.Fatalf("IsLocked failed: %v", err)
		}
		if info.Reason != "second" {
			t.Errorf("Expected reason to be updated to 'second', got %q", info.Reason)
		}
	})

	t.Run("creates missing sentinel file", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager := createTestManager(t, tmpDir)
		defer manager.Close()

		sentinel := filepath.Join(tmpDir, ".phpfixer.run")
		if err := manager.AcquireLock(sentinel, "fix run"); err != nil {
			t.Fatalf("AcquireLock on sentinel failed: %v", err)
		}

		if _, err := os.Stat(sentinel); err != nil {
			t.Errorf("Sentinel file not created: %v", err)
		}
	})

	t.Run("release without acquire returns ErrLockNotHeld", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager := createTestManager(t, tmpDir)
		defer manager.Close()

		err := manager.ReleaseLock(filepath.Join(tmpDir, "never.php"))
		if !errors.Is(err, ErrLockNotHeld) {
			t.Errorf("Expected ErrLockNotHeld, got %v", err)
		}
	})
}

func TestFileLockManager_Conflict(t *testing.T) {
	t.Run("second manager sees existing lock", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager1 := createTestManager(t, tmpDir)
		defer manager1.Close()

		testFile := filepath.Join(tmpDir, "User.php")
		if err := os.WriteFile(testFile, []byte("<?php"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		if err := manager1.AcquireLock(testFile, "holder"); err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		// A second manager sharing the lock dir must refuse.
		config := DefaultManagerConfig()
		config.LockDir = filepath.Join(tmpDir, "locks")
		config.SessionID = "other-session"
		config.CleanupOnInit = false
		manager2, err := NewFileLockManager(config)
		if err != nil {
			t.Fatalf("NewFileLockManager failed: %v", err)
		}
		defer manager2.Close()

		err = manager2.AcquireLock(testFile, "contender")
		if !errors.Is(err, ErrFileLocked) {
			t.Fatalf("Expected ErrFileLocked, got %v", err)
		}

		var lockErr *FileLockError
		if !errors.As(err, &lockErr) {
			t.Fatalf("Expected FileLockError, got %T", err)
		}
		if lockErr.Holder == nil || lockErr.Holder.SessionID != "test-session" {
			t.Errorf("Holder info missing or wrong: %+v", lockErr.Holder)
		}
	})
}

func TestFileLockManager_StaleLocks(t *testing.T) {
	t.Run("expired lock is cleaned up", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager := createTestManager(t, tmpDir)
		defer manager.Close()

		testFile := filepath.Join(tmpDir, "User.php")
		if err := os.WriteFile(testFile, []byte("<?php"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		// Plant an expired lock info file from a (long dead) process.
		stale := &LockInfo{
			FilePath:  testFile,
			PID:       99999999,
			SessionID: "dead-session",
			LockedAt:  time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-1 * time.Hour),
			Reason:    "crashed run",
		}
		data, _ := json.Marshal(stale)
		lockPath := manager.lockPath(testFile)
		if err := os.WriteFile(lockPath, data, 0644); err != nil {
			t.Fatalf("Failed to plant stale lock: %v", err)
		}

		cleaned, err := manager.CleanupStaleLocks()
		if err != nil {
			t.Fatalf("CleanupStaleLocks failed: %v", err)
		}
		if cleaned != 1 {
			t.Errorf("Expected 1 cleaned lock, got %d", cleaned)
		}
		if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
			t.Error("Stale lock file still present")
		}
	})

	t.Run("stale lock does not block acquisition", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager := createTestManager(t, tmpDir)
		defer manager.Close()

		testFile := filepath.Join(tmpDir, "User.php")
		if err := os.WriteFile(testFile, []byte("<?php"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		stale := &LockInfo{
			FilePath:  testFile,
			PID:       99999999,
			SessionID: "dead-session",
			LockedAt:  time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-1 * time.Hour),
		}
		data, _ := json.Marshal(stale)
		if err := os.WriteFile(manager.lockPath(testFile), data, 0644); err != nil {
			t.Fatalf("Failed to plant stale lock: %v", err)
		}

		if err := manager.AcquireLock(testFile, "new run"); err != nil {
			t.Errorf("AcquireLock over stale lock failed: %v", err)
		}
	})
}

func TestFileLockManager_ReleaseAll(t *testing.T) {
	tmpDir := t.TempDir()
	manager := createTestManager(t, tmpDir)
	defer manager.Close()

	for _, name := range []string{"a.php", "b.php", "c.php"} {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte("<?php"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := manager.AcquireLock(path, "batch"); err != nil {
			t.Fatalf("AcquireLock(%s) failed: %v", name, err)
		}
	}

	if err := manager.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll failed: %v", err)
	}

	for _, name := range []string{"a.php", "b.php", "c.php"} {
		locked, _, err := manager.IsLocked(filepath.Join(tmpDir, name))
		if err != nil {
			t.Fatalf("IsLocked failed: %v", err)
		}
		if locked {
			t.Errorf("%s still locked after ReleaseAll", name)
		}
	}
}

func TestFileLockManager_AcquireLockWait(t *testing.T) {
	t.Run("succeeds after holder releases", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager1 := createTestManager(t, tmpDir)
		defer manager1.Close()

		testFile := filepath.Join(tmpDir, "User.php")
		if err := os.WriteFile(testFile, []byte("<?php"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := manager1.AcquireLock(testFile, "holder"); err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		config := DefaultManagerConfig()
		config.LockDir = filepath.Join(tmpDir, "locks")
		config.SessionID = "waiter"
		config.CleanupOnInit = false
		manager2, err := NewFileLockManager(config)
		if err != nil {
			t.Fatal(err)
		}
		defer manager2.Close()

		go func() {
			time.Sleep(200 * time.Millisecond)
			manager1.ReleaseLock(testFile)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := manager2.AcquireLockWait(ctx, testFile, "waited"); err != nil {
			t.Fatalf("AcquireLockWait failed: %v", err)
		}
	})

	t.Run("gives up when context expires", func(t *testing.T) {
		tmpDir := t.TempDir()
		manager1 := createTestManager(t, tmpDir)
		defer manager1.Close()

		testFile := filepath.Join(tmpDir, "User.php")
		if err := os.WriteFile(testFile, []byte("<?php"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := manager1.AcquireLock(testFile, "holder"); err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		config := DefaultManagerConfig()
		config.LockDir = filepath.Join(tmpDir, "locks")
		config.SessionID = "waiter"
		config.CleanupOnInit = false
		manager2, err := NewFileLockManager(config)
		if err != nil {
			t.Fatal(err)
		}
		defer manager2.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		err = manager2.AcquireLockWait(ctx, testFile, "waited")
		if !errors.Is(err, ErrWaitTimeout) {
			t.Errorf("Expected ErrWaitTimeout, got %v", err)
		}
	})
}
