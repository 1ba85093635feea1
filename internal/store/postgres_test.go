package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("WEATHER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WEATHER_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := OpenPostgresStore(ctx, dsn, time.UTC)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.ExecContext(ctx, `DELETE FROM temperatures WHERE year = 1999`)
	require.NoError(t, err)

	ts := time.Date(1999, 12, 31, 23, 15, 0, 0, time.UTC)
	recorded, err := s.Record(ctx, ts, 20)
	require.NoError(t, err)
	assert.True(t, recorded)
	recorded, err = s.Record(ctx, ts, 25)
	require.NoError(t, err)
	assert.False(t, recorded)

	v, ok, err := s.Lookup(ctx, ts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20.0, v)

	lags, err := s.LookupLags(ctx, ts.Add(time.Hour), 2)
	require.NoError(t, err)
	require.NotNil(t, lags[0])
	assert.Nil(t, lags[1])

	obs, err := s.Range(ctx, ts.Add(-time.Hour), ts)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 23, obs[0].Timestamp.Hour())
}
