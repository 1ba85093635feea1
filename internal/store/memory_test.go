package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.UTC)
	ts := time.Date(2024, 7, 4, 13, 12, 0, 0, time.UTC)

	recorded, err := s.Record(ctx, ts, 71.5)
	require.NoError(t, err)
	assert.True(t, recorded)

	// Same hour, different minute and value.
	recorded, err = s.Record(ctx, ts.Add(40*time.Minute), 80)
	require.NoError(t, err)
	assert.False(t, recorded)

	v, ok, err := s.Lookup(ctx, time.Date(2024, 7, 4, 13, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 71.5, v)
}

func TestMemoryStoreLookupLagsEmpty(t *testing.T) {
	s := NewMemoryStore(time.UTC)

	lags, err := s.LookupLags(context.Background(), time.Now(), 5)
	require.NoError(t, err)
	require.Len(t, lags, 5)
	for _, l := range lags {
		assert.Nil(t, l)
	}
}

func TestMemoryStoreLookupLagsWithGaps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.UTC)
	now := time.Date(2024, 1, 1, 2, 30, 0, 0, time.UTC)

	_, _ = s.Record(ctx, now.Add(-1*time.Hour), 50)
	_, _ = s.Record(ctx, now.Add(-3*time.Hour), 48.5) // crosses midnight

	lags, err := s.LookupLags(ctx, now, 3)
	require.NoError(t, err)
	require.NotNil(t, lags[0])
	assert.Equal(t, 50.0, *lags[0])
	assert.Nil(t, lags[1])
	require.NotNil(t, lags[2])
	assert.Equal(t, 48.5, *lags[2])
}

func TestMemoryStoreKeysOnConfiguredZone(t *testing.T) {
	ctx := context.Background()
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	s := NewMemoryStore(chicago)

	utc := time.Date(2024, 7, 4, 18, 5, 0, 0, time.UTC)
	_, err = s.Record(ctx, utc, 70)
	require.NoError(t, err)

	v, ok, err := s.Lookup(ctx, utc.In(chicago))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 70.0, v)

	obs, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, obs.Timestamp.Hour())
	assert.Equal(t, chicago, obs.Timestamp.Location())
}

func TestMemoryStoreLagsStepClockHoursAcrossFallBack(t *testing.T) {
	ctx := context.Background()
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	s := NewMemoryStore(chicago)

	for _, rec := range []struct {
		at   time.Time
		temp float64
	}{
		{time.Date(2024, 11, 2, 23, 0, 0, 0, chicago), 59},
		{time.Date(2024, 11, 3, 0, 0, 0, 0, chicago), 60},
		{time.Date(2024, 11, 3, 1, 0, 0, 0, chicago), 61},
	} {
		_, err := s.Record(ctx, rec.at, rec.temp)
		require.NoError(t, err)
	}

	// 02:00 CST is two elapsed hours after 01:00 CDT; the lags still walk
	// 01:00, 00:00, 23:00 on the wall clock.
	now := time.Date(2024, 11, 3, 8, 0, 0, 0, time.UTC)
	require.Equal(t, 2, now.In(chicago).Hour())

	lags, err := s.LookupLags(ctx, now, 3)
	require.NoError(t, err)
	for i, want := range []float64{61, 60, 59} {
		require.NotNil(t, lags[i], "lag %d", i+1)
		assert.Equal(t, want, *lags[i], "lag %d", i+1)
	}
}

func TestMemoryStoreRangeAndLatest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.UTC)

	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 5; i >= 0; i-- {
		_, err := s.Record(ctx, base.Add(time.Duration(i)*time.Hour), float64(40+i))
		require.NoError(t, err)
	}

	obs, err := s.Range(ctx, base.Add(time.Hour), base.Add(3*time.Hour+30*time.Minute))
	require.NoError(t, err)
	require.Len(t, obs, 3)
	assert.Equal(t, 41.0, obs[0].Temperature)
	assert.Equal(t, 43.0, obs[2].Temperature)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45.0, latest.Temperature)

	_, err = s.Range(ctx, base.Add(48*time.Hour), base.Add(49*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}
