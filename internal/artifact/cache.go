// Package artifact keeps externally produced files (model, metrics,
// raw data) loaded in memory and reloads them when their modification time
// changes.
package artifact

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/telemetry"
)

// ErrUnavailable is returned when an artifact cannot be located and nothing
// has been loaded yet.
var ErrUnavailable = errors.New("artifact unavailable")

// LoadError reports a failure to produce an artifact.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Prober resolves a dataset name to its file and modification time.
type Prober interface {
	Path(name string) (string, error)
	Stat(name string) (string, time.Time, error)
}

// Loader deserializes the artifact stored at path.
type Loader[T any] func(path string) (T, error)

// Entry is an immutable loaded artifact plus its freshness token.
type Entry[T any] struct {
	Value    T
	Token    time.Time
	Path     string
	LoadedAt time.Time
}

// Cache holds the current Entry for one dataset. Readers get the published
// entry without locking; reloads are serialized.
type Cache[T any] struct {
	name   string
	prober Prober
	load   Loader[T]
	logger *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[Entry[T]]
}

// NewCache creates a cache for dataset name. Nothing is loaded until Get.
func NewCache[T any](name string, prober Prober, load Loader[T], logger *zap.Logger) *Cache[T] {
	return &Cache[T]{
		name:   name,
		prober: prober,
		load:   load,
		logger: logger,
	}
}

// Name returns the dataset name.
func (c *Cache[T]) Name() string {
	return c.name
}

// Path returns the dataset file path.
func (c *Cache[T]) Path() (string, error) {
	return c.prober.Path(c.name)
}

// Peek returns the cached entry without probing, or nil.
func (c *Cache[T]) Peek() *Entry[T] {
	return c.current.Load()
}

// Get returns the cached entry when the artifact's modification time is
// unchanged (or cannot be determined) and reloads it otherwise.
func (c *Cache[T]) Get() (*Entry[T], error) {
	path, token, err := c.prober.Stat(c.name)
	cur := c.current.Load()

	if err != nil {
		if cur != nil {
			c.logger.Debug("artifact probe failed, serving cached entry",
				zap.String("dataset", c.name),
				zap.Error(err))
			return cur, nil
		}
		return nil, &LoadError{Name: c.name, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	if cur != nil && cur.Token.Equal(token) && cur.Path == path {
		return cur, nil
	}
	return c.reload(path, token)
}

// Warm loads the artifact if it changed. It is used by Watcher.
func (c *Cache[T]) Warm() error {
	_, err := c.Get()
	return err
}

func (c *Cache[T]) reload(path string, token time.Time) (*Entry[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have finished the same reload while we waited.
	if cur := c.current.Load(); cur != nil && cur.Token.Equal(token) && cur.Path == path {
		return cur, nil
	}

	start := time.Now()
	v, err := c.load(path)
	if err != nil {
		telemetry.ArtifactReloads.WithLabelValues(c.name, "error").Inc()
		c.logger.Error("artifact load failed",
			zap.String("dataset", c.name),
			zap.String("path", path),
			zap.Error(err))
		return nil, &LoadError{Name: c.name, Err: err}
	}

	e := &Entry[T]{
		Value:    v,
		Token:    token,
		Path:     path,
		LoadedAt: time.Now(),
	}
	c.current.Store(e)

	telemetry.ArtifactReloads.WithLabelValues(c.name, "success").Inc()
	c.logger.Info("artifact loaded",
		zap.String("dataset", c.name),
		zap.String("path", path),
		zap.Time("mtime", token),
		zap.Duration("took", time.Since(start)))
	return e, nil
}
