// Package store holds the hour-keyed temperature stores.
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

var (
	_ weather.Store = (*MemoryStore)(nil)
	_ weather.Store = (*FileStore)(nil)
	_ weather.Store = (*PostgresStore)(nil)
)

// Options selects and configures a store backend.
type Options struct {
	Backend  string // file, postgres or memory
	Path     string
	DSN      string
	Location *time.Location
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (weather.Store, error) {
	switch opts.Backend {
	case "", "file":
		return OpenFileStore(opts.Path, opts.Location, logger)
	case "postgres":
		return OpenPostgresStore(ctx, opts.DSN, opts.Location)
	case "memory":
		logger.Warn("using non-durable in-memory temperature store")
		return NewMemoryStore(opts.Location), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
