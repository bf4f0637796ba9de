package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/disclosure-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Source:    "chunks",
			Status:    model.RunStatusComplete,
			Entities:  12,
			Failed:    1,
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Source:    "/data/reports/2024/utilities/chunk-files",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "ENTITIES")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, "/data/reports")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{ID: "1", Status: model.RunStatusComplete, Entities: 10, Failed: 1, CreatedAt: now, UpdatedAt: now.Add(2 * time.Minute)},
		{ID: "2", Status: model.RunStatusComplete, Entities: 5, CreatedAt: now, UpdatedAt: now.Add(3 * time.Minute)},
		{ID: "3", Status: model.RunStatusFailed, Entities: 4, Failed: 4, CreatedAt: now, UpdatedAt: now.Add(time.Second)},
		{ID: "4", Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 19, s.Entities)
	assert.Equal(t, 5, s.FailedEntities)
	// (120s + 180s) / 2
	assert.InDelta(t, 150.0, s.AvgDurSecs, 0.1)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.Contains(t, buf.String(), "Entities scored:")
	assert.Contains(t, buf.String(), "14")
	assert.Contains(t, buf.String(), "150.0s")
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, runStats{}, s)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestRunsSince(t *testing.T) {
	cutoff := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{ID: "old", CreatedAt: cutoff.Add(-time.Hour)},
		{ID: "edge", CreatedAt: cutoff},
		{ID: "new", CreatedAt: cutoff.Add(time.Hour)},
	}

	got := runsSince(runs, cutoff)
	assert.Len(t, got, 2)
	assert.Equal(t, "edge", got[0].ID)
	assert.Equal(t, "new", got[1].ID)
	assert.Len(t, runs, 3)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
