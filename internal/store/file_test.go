package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inference", "temperatures.jsonl")
	ts := time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC)

	s, err := OpenFileStore(path, time.UTC, zap.NewNop())
	require.NoError(t, err)

	recorded, err := s.Record(ctx, ts, 61)
	require.NoError(t, err)
	assert.True(t, recorded)
	recorded, err = s.Record(ctx, ts.Add(10*time.Minute), 99)
	require.NoError(t, err)
	assert.False(t, recorded)
	_, err = s.Record(ctx, ts.Add(-time.Hour), 60)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore(path, time.UTC, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.Len())
	v, ok, err := reopened.Lookup(ctx, ts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 61.0, v)

	// Still first-write-wins after replay.
	recorded, err = reopened.Record(ctx, ts, 12)
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestFileStoreTruncatesPartialTrailingLine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "temperatures.jsonl")
	content := `{"year":2024,"month":1,"day":2,"hour":3,"temperature":30.5,"timestamp":"2024-01-02T03:00:00Z"}` + "\n" +
		`{"year":2024,"month":1,"day":2,"hour":4,"temp`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := OpenFileStore(path, time.UTC, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	_, err = s.Record(ctx, time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), 31)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore(path, time.UTC, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 2, reopened.Len())
}

func TestFileStoreRejectsCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temperatures.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	_, err := OpenFileStore(path, time.UTC, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestFileStoreRecordAfterClose(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "t.jsonl"), time.UTC, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Record(context.Background(), time.Now(), 1)
	assert.Error(t, err)
}
