package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Warmable is anything Watcher can refresh when its file changes.
type Warmable interface {
	Name() string
	Path() (string, error)
	Warm() error
}

// Watcher reloads caches as soon as their files are rewritten, so the first
// request after retraining does not pay for deserialization. Caches stay
// correct without it.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu      sync.Mutex
	targets map[string][]Warmable
	dirs    map[string]bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates an idle watcher.
func NewWatcher(logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create artifact watcher: %w", err)
	}
	return &Watcher{
		watcher: w,
		logger:  logger,
		targets: make(map[string][]Warmable),
		dirs:    make(map[string]bool),
		stop:    make(chan struct{}),
	}, nil
}

// Add watches the directory holding target's file. Training pipelines
// usually replace files by rename, so the directory is watched rather than
// the file.
func (w *Watcher) Add(target Warmable) error {
	path, err := target.Path()
	if err != nil {
		return err
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.targets[path] = append(w.targets[path], target)
	return nil
}

// Run processes events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handle(filepath.Clean(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(path string) {
	w.mu.Lock()
	targets := append([]Warmable(nil), w.targets[path]...)
	w.mu.Unlock()

	for _, t := range targets {
		if err := t.Warm(); err != nil {
			// A half-written file fails here and loads on the next event or request.
			w.logger.Debug("artifact warm-up failed",
				zap.String("dataset", t.Name()),
				zap.Error(err))
			continue
		}
		w.logger.Debug("artifact warmed", zap.String("dataset", t.Name()))
	}
}

// Close stops the watcher. Calling it more than once is a no-op.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}
