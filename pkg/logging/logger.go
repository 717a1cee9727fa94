// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for the phpstan-fixer tool.
//
// All components log through log/slog. This package owns handler setup:
// a human-readable text handler on stderr, plus an optional JSON handler
// writing to a log file. Both are fanned out through a single multiHandler
// so one logger call reaches every sink.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Level is the logging verbosity level.
type Level int

const (
	// LevelDebug enables all log output including per-diagnostic detail.
	LevelDebug Level = iota

	// LevelInfo is the default level for normal operation.
	LevelInfo

	// LevelWarn limits output to warnings and errors.
	LevelWarn

	// LevelError limits output to errors only.
	LevelError
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name to a Level.
//
// Unknown names fall back to LevelInfo so a typo in a config file
// degrades verbosity rather than failing startup.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	// Level is the minimum level emitted.
	Level Level

	// JSON switches the stderr handler from text to JSON format.
	JSON bool

	// FilePath, when non-empty, adds a JSON handler appending to this file.
	// The directory is created if missing. File handler failures are
	// reported on stderr but never fatal.
	FilePath string

	// Writer overrides the stderr destination (used by tests).
	Writer io.Writer
}

// New builds a *slog.Logger from the config.
//
// Description:
//
//	Creates the stderr handler (text or JSON per Config.JSON) and, when
//	FilePath is set, a JSON file handler. Both handlers receive every
//	record at or above Config.Level.
//
// Outputs:
//
//	*slog.Logger - Ready-to-use logger, never nil.
//
// Thread Safety: The returned logger is safe for concurrent use.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}

	var primary slog.Handler
	if cfg.JSON {
		primary = slog.NewJSONHandler(w, opts)
	} else {
		primary = slog.NewTextHandler(w, opts)
	}

	handlers := []slog.Handler{primary}

	if cfg.FilePath != "" {
		if fh, err := openFileHandler(cfg.FilePath, opts); err != nil {
			fmt.Fprintf(os.Stderr, "logging: file handler disabled: %v\n", err)
		} else {
			handlers = append(handlers, fh)
		}
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(&multiHandler{handlers: handlers})
}

// Setup builds a logger from the config and installs it as slog.Default.
func Setup(cfg Config) *slog.Logger {
	logger := New(cfg)
	slog.SetDefault(logger)
	return logger
}

func openFileHandler(path string, opts *slog.HandlerOptions) (slog.Handler, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.NewJSONHandler(f, opts), nil
}

// multiHandler fans one record out to multiple slog handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sub := range h.handlers {
		if sub.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, sub := range h.handlers {
		if !sub.Enabled(ctx, r.Level) {
			continue
		}
		if err := sub.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, sub := range h.handlers {
		out[i] = sub.WithAttrs(attrs)
	}
	return &multiHandler{handlers: out}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, sub := range h.handlers {
		out[i] = sub.WithGroup(name)
	}
	return &multiHandler{handlers: out}
}
