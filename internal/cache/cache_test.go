// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/paper-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(types.CacheConfig{Enabled: true, Dir: filepath.Join(t.TempDir(), "paper_cache")}, nil)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func writeRecord(t *testing.T, s *Store, topic, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(s.dir, 0o755))
	require.NoError(t, os.WriteFile(s.Path(topic), []byte(contents), 0o644))
}

func TestKey(t *testing.T) {
	k1 := Key("Quantum Error Correction")
	k2 := Key("Quantum Error Correction")
	k3 := Key("Quantum Error Correction ")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3, "topics differing only in whitespace are distinct")
	assert.Len(t, k1, 64)
}

func TestNew_CreatesDirectory(t *testing.T) {
	s := testStore(t)
	info, err := os.Stat(s.dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveThenLookup(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save("Quantum Error Correction", "\\documentclass{article}"))

	res := s.Lookup("Quantum Error Correction")
	require.Equal(t, Hit, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, "Quantum Error Correction", res.Entry.Topic)
	assert.Equal(t, "\\documentclass{article}", res.Entry.Document)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), res.Entry.Timestamp)
}

func TestSave_RecordFormat(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save("topic", "doc"))

	data, err := os.ReadFile(s.Path("topic"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "topic", raw["topic"])
	assert.Equal(t, "doc", raw["document"])
	assert.Equal(t, "2026-03-01T12:00:00Z", raw["timestamp"])

	// No temp files are left behind.
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_Overwrites(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save("topic", "first"))
	require.NoError(t, s.Save("topic", "second"))

	res := s.Lookup("topic")
	require.Equal(t, Hit, res.Status)
	assert.Equal(t, "second", res.Entry.Document)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, s *Store)
		status Status
	}{
		{
			name:   "absent record",
			setup:  func(*testing.T, *Store) {},
			status: Miss,
		},
		{
			name: "corrupt record",
			setup: func(t *testing.T, s *Store) {
				writeRecord(t, s, "topic", "{not json")
			},
			status: Error,
		},
		{
			name: "empty document",
			setup: func(t *testing.T, s *Store) {
				writeRecord(t, s, "topic", `{"topic":"topic","document":"","timestamp":"2026-03-01T12:00:00Z"}`)
			},
			status: Miss,
		},
		{
			name: "stored topic differs",
			setup: func(t *testing.T, s *Store) {
				writeRecord(t, s, "topic", `{"topic":"another topic","document":"doc","timestamp":"2026-03-01T12:00:00Z"}`)
			},
			status: Miss,
		},
		{
			name: "unreadable record",
			setup: func(t *testing.T, s *Store) {
				require.NoError(t, os.MkdirAll(s.Path("topic"), 0o755))
			},
			status: Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			tt.setup(t, s)

			res := s.Lookup("topic")
			assert.Equal(t, tt.status, res.Status)
			if tt.status == Error {
				assert.Error(t, res.Err)
			} else {
				assert.NoError(t, res.Err)
			}
		})
	}
}

func TestLookup_ErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := New(types.CacheConfig{Enabled: true, Dir: t.TempDir()}, zap.New(core))
	writeRecord(t, s, "topic", "garbage")

	res := s.Lookup("topic")
	assert.Equal(t, Error, res.Status)
	assert.Equal(t, 1, logs.FilterMessage("cache record corrupt").Len())
}

func TestDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	s := New(types.CacheConfig{Enabled: false, Dir: dir}, nil)

	assert.False(t, s.Enabled())
	require.NoError(t, s.Save("topic", "doc"))
	assert.Equal(t, Miss, s.Lookup("topic").Status)

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "disabled store must not touch the filesystem")
}

func TestSave_WriteFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions differ on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	s := testStore(t)
	require.NoError(t, os.Chmod(s.dir, 0o500))
	t.Cleanup(func() { os.Chmod(s.dir, 0o755) })

	assert.Error(t, s.Save("topic", "doc"))
	assert.Equal(t, Miss, s.Lookup("topic").Status)
}

func TestPurge(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save("a", "doc a"))
	require.NoError(t, s.Save("b", "doc b"))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("keep"), 0o644))

	n, err := s.Purge()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, Miss, s.Lookup("a").Status)
	assert.FileExists(t, filepath.Join(s.dir, "notes.txt"))
}

func TestPurge_MissingDirectory(t *testing.T) {
	s := New(types.CacheConfig{Enabled: false, Dir: filepath.Join(t.TempDir(), "missing")}, nil)
	n, err := s.Purge()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "hit", Hit.String())
	assert.Equal(t, "miss", Miss.String())
	assert.Equal(t, "error", Error.String())
}
