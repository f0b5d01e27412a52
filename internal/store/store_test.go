package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:   "creates database successfully",
			dbPath: filepath.Join(t.TempDir(), "test.db"),
		},
		{
			name:   "handles in-memory database",
			dbPath: ":memory:",
		},
		{
			name:   "creates parent directories if needed",
			dbPath: filepath.Join(t.TempDir(), "nested", "dir", "history.db"),
		},
		{
			name:    "returns error when parent is a file",
			dbPath:  filepath.Join(writeBlocker(t), "history.db"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			version, err := s.GetLatestVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(migrations), version)
			assert.Equal(t, tt.dbPath, s.Path())
		})
	}
}

func writeBlocker(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations(context.Background()))
	require.NoError(t, s.Close())

	s, err = NewStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	versions, err := s.GetAppliedVersions(context.Background())
	require.NoError(t, err)
	require.Len(t, versions, len(migrations))
	for i, v := range versions {
		assert.Equal(t, i+1, v.Version)
	}
}

func TestSaveRun_AssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		Command: "batch",
		Source:  "tasks.yaml",
		Summary: "2 batches, 2 agents",
		Report:  `{"batches":[["A","C"],["B"]]}`,
		Tasks: []TaskRecord{
			{TaskID: "A", Batch: 0, Agent: "agent-1", EndMinute: 10, Critical: true},
			{TaskID: "C", Batch: 0, Agent: "agent-2", EndMinute: 5},
			{TaskID: "B", Batch: 1, Agent: "agent-1", StartMinute: 10, EndMinute: 30, Critical: true},
		},
	}
	require.NoError(t, s.SaveRun(ctx, run))

	assert.Len(t, run.ID, 36)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Equal(t, 3, run.TaskCount)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "batch", got.Command)
	assert.Equal(t, "tasks.yaml", got.Source)
	assert.Equal(t, run.Report, got.Report)
	assert.Equal(t, run.Tasks, got.Tasks)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestSaveRun_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.SaveRun(ctx, nil))
	assert.Error(t, s.SaveRun(ctx, &Run{}))

	run := &Run{ID: "fixed", Command: "graph"}
	require.NoError(t, s.SaveRun(ctx, run))
	assert.Equal(t, "{}", run.Report)
	assert.Error(t, s.SaveRun(ctx, &Run{ID: "fixed", Command: "graph"}), "duplicate ids must fail")
}

func TestGetRun_Prefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, &Run{ID: "abc123", Command: "graph"}))
	require.NoError(t, s.SaveRun(ctx, &Run{ID: "abd456", Command: "analyze"}))
	require.NoError(t, s.SaveRun(ctx, &Run{ID: "ab", Command: "progress"}))

	run, err := s.GetRun(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", run.ID)
	assert.Nil(t, run.Tasks)

	// An exact match wins over longer ids sharing the prefix
	run, err = s.GetRun(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, "progress", run.Command)

	s2 := newTestStore(t)
	require.NoError(t, s2.SaveRun(ctx, &Run{ID: "abc123", Command: "graph"}))
	require.NoError(t, s2.SaveRun(ctx, &Run{ID: "abd456", Command: "graph"}))
	_, err = s2.GetRun(ctx, "ab")
	assert.True(t, errors.Is(err, ErrAmbiguousRunID), "got %v", err)

	_, err = s.GetRun(ctx, "zzz")
	assert.True(t, errors.Is(err, ErrRunNotFound), "got %v", err)

	_, err = s.GetRun(ctx, "  ")
	assert.True(t, errors.Is(err, ErrRunNotFound), "got %v", err)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, cmd := range []string{"graph", "batch", "batch", "conflicts"} {
		require.NoError(t, s.SaveRun(ctx, &Run{
			ID:        string(rune('a' + i)),
			Command:   cmd,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := s.ListRuns(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, []string{"d", "c", "b", "a"}, runIDs(runs))

	runs, err = s.ListRuns(ctx, ListOptions{Command: "batch"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, runIDs(runs))

	runs, err = s.ListRuns(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, runIDs(runs))

	runs, err = s.ListRuns(ctx, ListOptions{Command: "progress"})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func runIDs(runs []*Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func TestDeleteRunsBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.SaveRun(ctx, &Run{ID: "old", Command: "batch", CreatedAt: old,
		Tasks: []TaskRecord{{TaskID: "A"}}}))
	require.NoError(t, s.SaveRun(ctx, &Run{ID: "new", Command: "batch"}))

	n, err := s.DeleteRunsBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetRun(ctx, "old")
	assert.ErrorIs(t, err, ErrRunNotFound)

	var orphaned int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM run_tasks WHERE run_id = 'old'`).Scan(&orphaned))
	assert.Zero(t, orphaned)
}

func TestExportRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		Command:   "analyze",
		Summary:   "speedup 1.50x",
		Report:    `{"speedup":1.5,"critical_path":["A","B"]}`,
		Objective: "minimize_time",
		Tasks:     []TaskRecord{{TaskID: "A", Critical: true}},
	}
	require.NoError(t, s.SaveRun(ctx, run))
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "out", "run.json")
		_, err := s.ExportRun(ctx, run.ID[:8], path, "")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, run.ID, doc["id"])
		assert.Equal(t, "analyze", doc["command"])
		report := doc["report"].(map[string]interface{})
		assert.Equal(t, 1.5, report["speedup"])

		_, err = os.Stat(path + ".lock")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "run.yaml")
		_, err := s.ExportRun(ctx, run.ID, path, "")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var doc map[string]interface{}
		require.NoError(t, yaml.Unmarshal(data, &doc))
		assert.Equal(t, run.ID, doc["id"])
		assert.Equal(t, "minimize_time", doc["objective"])
		assert.Contains(t, doc, "report")
		assert.Contains(t, doc, "tasks")
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := s.ExportRun(ctx, "missing", filepath.Join(dir, "x.json"), "")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := s.ExportRun(ctx, run.ID, filepath.Join(dir, "x.csv"), "csv")
		assert.ErrorContains(t, err, "unsupported export format")
	})
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, "yaml", FormatForPath("run.YAML"))
	assert.Equal(t, "yaml", FormatForPath("run.yml"))
	assert.Equal(t, "json", FormatForPath("run.json"))
	assert.Equal(t, "json", FormatForPath("run"))
}

func TestEncodeRun_BadReport(t *testing.T) {
	_, err := EncodeRun(&Run{ID: "x", Report: "{"}, "json")
	assert.ErrorContains(t, err, "decode stored report")
}
