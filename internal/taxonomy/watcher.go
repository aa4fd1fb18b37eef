package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a taxonomy file must stay unchanged before
// it is re-applied.
const DefaultSettleDelay = 250 * time.Millisecond

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	SettleDelay time.Duration
	// OnApply is called after every re-import attempt.
	OnApply func(Result, error)
}

// Watcher re-applies a taxonomy file whenever it is written. Editors that
// save by rename are handled by watching the parent directory.
type Watcher struct {
	path     string
	importer *Importer
	logger   *slog.Logger
	opts     WatcherOptions
	fs       *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	// reloadMu keeps re-imports from overlapping when one outlasts the
	// settle delay.
	reloadMu sync.Mutex
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, importer *Importer, logger *slog.Logger, opts WatcherOptions) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve taxonomy path: %w", err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		importer: importer,
		logger:   logger.With("component", "taxonomy_watcher", "path", abs),
		opts:     opts,
		fs:       fs,
	}, nil
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching taxonomy file")
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule(ctx)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("taxonomy watcher error", "error", err)
		}
	}
}

// schedule (re)starts the settle timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.reload(ctx) })
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload(ctx context.Context) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	res, err := w.apply(ctx)
	if err != nil {
		w.logger.Error("taxonomy re-import failed", "error", err)
	} else {
		w.logger.Info("taxonomy re-imported", "created", res.Created, "skipped", res.Skipped)
	}
	if w.opts.OnApply != nil {
		w.opts.OnApply(res, err)
	}
}

func (w *Watcher) apply(ctx context.Context) (Result, error) {
	seeds, err := Load(w.path)
	if err != nil {
		return Result{}, err
	}
	return w.importer.Apply(ctx, seeds)
}

// Close releases the underlying watch.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.fs.Close()
}

// Shutdown closes the watcher.
func (w *Watcher) Shutdown() error {
	return w.Close()
}
