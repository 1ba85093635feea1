package history

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archiveCSV = `station,valid,tmpf
DSM,2022-07-04 13:54,85.0
DSM,2022-07-04 13:59,99.0
DSM,2022-07-04 14:54,M
DSM,2023-07-04 13:54,80.1
DSM,2023-07-05 00:54,70.0
DSM,bad-date,10
DSM,2024-07-04 13:54,88.0
`

func TestReadArchive(t *testing.T) {
	a, err := ReadArchive(strings.NewReader(archiveCSV))
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023, 2022}, a.Years())
	assert.Equal(t, 4, a.Len())
}

func TestReadArchiveNeedsColumns(t *testing.T) {
	_, err := ReadArchive(strings.NewReader("station,time,temp\n"))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	a, err := ReadArchive(strings.NewReader(archiveCSV))
	require.NoError(t, err)

	start := time.Date(2024, 7, 4, 13, 0, 0, 0, time.UTC)
	r := a.Compare(start, 24, 5)

	require.Equal(t, StatusOK, r.Status)
	require.Len(t, r.Years, 2)
	assert.Equal(t, 2023, r.Years[0].Year)
	assert.Equal(t, 2022, r.Years[1].Year)

	y23 := r.Years[0].Temperatures
	require.Len(t, y23, 24)
	require.NotNil(t, y23[0])
	assert.Equal(t, 80.1, *y23[0])
	// 2023-07-05 00:00 is step 11.
	require.NotNil(t, y23[11])
	assert.Equal(t, 70.0, *y23[11])
	assert.Nil(t, y23[1])

	y22 := r.Years[1].Temperatures
	require.NotNil(t, y22[0])
	assert.Equal(t, 85.0, *y22[0], "first row of the hour wins")
	assert.Nil(t, y22[1], "missing marker")
}

func TestCompareLimitsYears(t *testing.T) {
	a, err := ReadArchive(strings.NewReader(archiveCSV))
	require.NoError(t, err)

	r := a.Compare(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 24, 2)
	require.Equal(t, StatusOK, r.Status)
	require.Len(t, r.Years, 2)
	assert.Equal(t, 2024, r.Years[0].Year)
}

func TestCompareEmpty(t *testing.T) {
	a, err := ReadArchive(strings.NewReader(archiveCSV))
	require.NoError(t, err)

	r := a.Compare(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), 24, 5)
	assert.Equal(t, StatusEmpty, r.Status)
	assert.NotEmpty(t, r.Reason)
	assert.Empty(t, r.Years)
}
