package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

// fileRecord is one line of the observation log.
type fileRecord struct {
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Day         int       `json:"day"`
	Hour        int       `json:"hour"`
	Temperature float64   `json:"temperature"`
	Timestamp   time.Time `json:"timestamp"`
}

// FileStore is an append-only, line-delimited JSON log of hourly
// observations. The log is replayed into a MemoryStore on open; every
// Record is fsynced before it becomes visible to readers.
type FileStore struct {
	*MemoryStore

	mu     sync.Mutex
	path   string
	f      *os.File
	size   int64
	logger *zap.Logger
}

// OpenFileStore opens (or creates) the log at path. A trailing partial line
// left by an interrupted write is truncated away.
func OpenFileStore(path string, loc *time.Location, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	s := &FileStore{
		MemoryStore: NewMemoryStore(loc),
		path:        path,
		f:           f,
		logger:      logger,
	}

	if err := s.replay(); err != nil {
		f.Close()
		return nil, err
	}

	logger.Info("temperature store opened",
		zap.String("path", path),
		zap.Int("observations", s.Len()))
	return s, nil
}

func (s *FileStore) replay() error {
	r := bufio.NewReader(s.f)
	var offset int64
	lineNo := 0

	for {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(bytes.TrimSpace(line)) > 0 {
				s.logger.Warn("truncating partial trailing record",
					zap.String("path", s.path),
					zap.Int64("offset", offset))
				if err := s.f.Truncate(offset); err != nil {
					return fmt.Errorf("truncate store %s: %w", s.path, err)
				}
			}
			break
		}
		if err != nil {
			return fmt.Errorf("read store %s: %w", s.path, err)
		}
		lineNo++

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var rec fileRecord
			if err := json.Unmarshal(trimmed, &rec); err != nil {
				return fmt.Errorf("store %s line %d: %w", s.path, lineNo, err)
			}
			k := weather.HourKey{Year: rec.Year, Month: time.Month(rec.Month), Day: rec.Day, Hour: rec.Hour}
			s.put(k, rec.Temperature, rec.Timestamp)
		}
		offset += int64(len(line))
	}

	if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek store %s: %w", s.path, err)
	}
	s.size = offset
	return nil
}

// Record appends the observation for the hour of t unless one exists.
// The write is flushed to disk before Record returns; on failure the log is
// cut back to its previous length and nothing is recorded.
func (s *FileStore) Record(_ context.Context, t time.Time, temperature float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return false, fmt.Errorf("store %s is closed", s.path)
	}
	if s.has(t) {
		return false, nil
	}

	k := s.key(t)
	line, err := json.Marshal(fileRecord{
		Year:        k.Year,
		Month:       int(k.Month),
		Day:         k.Day,
		Hour:        k.Hour,
		Temperature: temperature,
		Timestamp:   t,
	})
	if err != nil {
		return false, fmt.Errorf("encode observation: %w", err)
	}
	line = append(line, '\n')

	if err := s.append(line); err != nil {
		if terr := s.f.Truncate(s.size); terr != nil {
			s.logger.Error("failed to roll back partial write",
				zap.String("path", s.path),
				zap.Error(terr))
		}
		if _, serr := s.f.Seek(s.size, io.SeekStart); serr != nil {
			s.logger.Error("failed to reposition store", zap.Error(serr))
		}
		return false, fmt.Errorf("write store %s: %w", s.path, err)
	}

	s.size += int64(len(line))
	return s.put(k, temperature, t), nil
}

func (s *FileStore) append(line []byte) error {
	if _, err := s.f.Write(line); err != nil {
		return err
	}
	return s.f.Sync()
}

// Path returns the log location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
