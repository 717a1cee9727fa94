// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(id string, startedAt time.Time) Record {
	return Record{
		RunID:      id,
		StartedAt:  startedAt,
		Duration:   3 * time.Second,
		Passes:     2,
		PassCounts: []int{4, 1},
		FixedCount: 3,
		Messages:   []string{"no further improvement after pass 2"},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleRecord("run-1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	want.TouchedFiles = map[string]string{"/src/User.php": "/src/User.php.fixer-bak"}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.PassCounts, got.PassCounts)
	assert.Equal(t, want.TouchedFiles, got.TouchedFiles)
	assert.Equal(t, want.Messages, got.Messages)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "no-such-run")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, s.Save(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Hour))))
	}

	records, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "newest", records[0].RunID)
	assert.Equal(t, "middle", records[1].RunID)
	assert.Equal(t, "oldest", records[2].RunID)

	capped, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, "newest", capped[0].RunID)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleRecord("stale", now.Add(-72*time.Hour))))
	require.NoError(t, s.Save(ctx, sampleRecord("fresh", now.Add(-1*time.Hour))))

	pruned, err := s.Prune(ctx, 48*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = s.Get(ctx, "stale")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestRecordOf(t *testing.T) {
	full := &fixer.FixResult{
		RunID:        "run-9",
		StartedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Duration:     time.Second,
		Passes:       1,
		PassCounts:   []int{2},
		TouchedFiles: map[string]string{"/src/a.php": ""},
		Messages:     []string{"all diagnostics resolved after 1 pass(es)"},
		DryRun:       true,
	}

	rec := RecordOf(full)
	assert.Equal(t, "run-9", rec.RunID)
	assert.Equal(t, 1, rec.Passes)
	assert.Equal(t, []int{2}, rec.PassCounts)
	assert.Equal(t, 0, rec.FixedCount)
	assert.True(t, rec.DryRun)
}
