package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/i474232898/weather-forecast/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS temperatures (
	year        INTEGER NOT NULL,
	month       INTEGER NOT NULL,
	day         INTEGER NOT NULL,
	hour        INTEGER NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (year, month, day, hour)
)`

type temperatureRow struct {
	weather.HourKey
	Temperature float64   `db:"temperature"`
	ObservedAt  time.Time `db:"observed_at"`
}

// PostgresStore keeps observations in a Postgres table keyed by
// (year, month, day, hour). The insert commits before Record returns.
type PostgresStore struct {
	db  *sqlx.DB
	loc *time.Location
}

// OpenPostgresStore connects to dsn and ensures the table exists.
func OpenPostgresStore(ctx context.Context, dsn string, loc *time.Location) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create temperatures table: %w", err)
	}
	return NewPostgresStore(db, loc), nil
}

// NewPostgresStore wraps an existing connection.
func NewPostgresStore(db *sqlx.DB, loc *time.Location) *PostgresStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{db: db, loc: loc}
}

func (s *PostgresStore) key(t time.Time) weather.HourKey {
	return weather.KeyOf(t.In(s.loc))
}

func (s *PostgresStore) Record(ctx context.Context, t time.Time, temperature float64) (bool, error) {
	k := s.key(t)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO temperatures (year, month, day, hour, temperature, observed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (year, month, day, hour) DO NOTHING`,
		k.Year, int(k.Month), k.Day, k.Hour, temperature, t)
	if err != nil {
		return false, fmt.Errorf("insert observation %s: %w", k, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert observation %s: %w", k, err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, t time.Time) (float64, bool, error) {
	return s.lookupKey(ctx, s.key(t))
}

func (s *PostgresStore) lookupKey(ctx context.Context, k weather.HourKey) (float64, bool, error) {
	var temperature float64
	err := s.db.GetContext(ctx, &temperature,
		`SELECT temperature FROM temperatures
		 WHERE year = $1 AND month = $2 AND day = $3 AND hour = $4`,
		k.Year, int(k.Month), k.Day, k.Hour)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup observation %s: %w", k, err)
	}
	return temperature, true, nil
}

func (s *PostgresStore) LookupLags(ctx context.Context, t time.Time, count int) ([]*float64, error) {
	k := s.key(t)
	lags := make([]*float64, count)
	for i := 1; i <= count; i++ {
		v, ok, err := s.lookupKey(ctx, k.Sub(i))
		if err != nil {
			return nil, err
		}
		if ok {
			lags[i-1] = &v
		}
	}
	return lags, nil
}

func (s *PostgresStore) Range(ctx context.Context, from, to time.Time) ([]weather.Observation, error) {
	lo, hi := s.key(from), s.key(to)
	var rows []temperatureRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT year, month, day, hour, temperature, observed_at FROM temperatures
		 WHERE (year, month, day, hour) >= ($1, $2, $3, $4)
		   AND (year, month, day, hour) <= ($5, $6, $7, $8)
		 ORDER BY year, month, day, hour`,
		lo.Year, int(lo.Month), lo.Day, lo.Hour,
		hi.Year, int(hi.Month), hi.Day, hi.Hour)
	if err != nil {
		return nil, fmt.Errorf("range observations: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	result := make([]weather.Observation, 0, len(rows))
	for _, r := range rows {
		result = append(result, s.observation(r))
	}
	return result, nil
}

func (s *PostgresStore) Latest(ctx context.Context) (weather.Observation, error) {
	var r temperatureRow
	err := s.db.GetContext(ctx, &r,
		`SELECT year, month, day, hour, temperature, observed_at FROM temperatures
		 ORDER BY year DESC, month DESC, day DESC, hour DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Observation{}, ErrNotFound
	}
	if err != nil {
		return weather.Observation{}, fmt.Errorf("latest observation: %w", err)
	}
	return s.observation(r), nil
}

func (s *PostgresStore) observation(r temperatureRow) weather.Observation {
	return weather.Observation{
		Timestamp:   r.HourKey.Time(s.loc),
		Temperature: r.Temperature,
		ObservedAt:  r.ObservedAt,
	}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
