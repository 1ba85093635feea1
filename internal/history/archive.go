// Package history compares a forecast window with the same hours in
// previous years of the raw station archive.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-forecast/internal/weather"
)

var validLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// Archive indexes hourly temperatures from the raw weather export.
type Archive struct {
	temps map[weather.HourKey]float64
	years []int // descending
}

// LoadArchive reads a CSV with at least the "valid" (timestamp) and "tmpf"
// (Fahrenheit) columns. Rows with an unparseable timestamp or a missing
// temperature ("M") are skipped; the first row of each hour wins.
func LoadArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return ReadArchive(f)
}

// ReadArchive parses the CSV from r.
func ReadArchive(r io.Reader) (*Archive, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read archive header: %w", err)
	}
	validCol, tmpfCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "valid":
			validCol = i
		case "tmpf":
			tmpfCol = i
		}
	}
	if validCol < 0 || tmpfCol < 0 {
		return nil, fmt.Errorf("archive needs valid and tmpf columns, got %v", header)
	}

	a := &Archive{temps: make(map[weather.HourKey]float64)}
	yearSet := make(map[int]bool)

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		if validCol >= len(rec) || tmpfCol >= len(rec) {
			continue
		}

		ts, ok := parseValid(rec[validCol])
		if !ok {
			continue
		}
		temp, err := strconv.ParseFloat(strings.TrimSpace(rec[tmpfCol]), 64)
		if err != nil {
			continue
		}

		k := weather.KeyOf(ts)
		if _, dup := a.temps[k]; !dup {
			a.temps[k] = temp
		}
		yearSet[k.Year] = true
	}

	for y := range yearSet {
		a.years = append(a.years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(a.years)))
	return a, nil
}

func parseValid(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range validLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Years returns the archive's years, newest first.
func (a *Archive) Years() []int {
	return append([]int(nil), a.years...)
}

// Len is the number of indexed hours.
func (a *Archive) Len() int {
	return len(a.temps)
}

// At returns the temperature recorded for an hour.
func (a *Archive) At(k weather.HourKey) (float64, bool) {
	v, ok := a.temps[k]
	return v, ok
}
