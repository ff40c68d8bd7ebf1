// File: lixenwraith/layerconf/watch.go
package layerconf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc re-resolves the module of key.
type ReloadFunc func(ctx context.Context, key string) error

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce is the quiet period after the last change of a key before reloading it
	Debounce time.Duration

	// RetryInterval is how often missing directories are checked for reappearance
	RetryInterval time.Duration

	// ReloadTimeout bounds each triggered reload
	ReloadTimeout time.Duration
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:      DefaultDebounce,
		RetryInterval: DefaultRetryInterval,
		ReloadTimeout: DefaultReloadTimeout,
	}
}

func (o WatchOptions) withDefaults() WatchOptions {
	d := DefaultWatchOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = d.RetryInterval
	}
	if o.ReloadTimeout <= 0 {
		o.ReloadTimeout = d.ReloadTimeout
	}
	return o
}

// Watcher observes configuration directories and reloads the key of every
// changed file once its writes have settled. Failures are logged; the
// watcher keeps running until Stop.
type Watcher struct {
	// Filter, when set, drops change events for keys it rejects
	Filter func(key string) bool

	dirs   []string
	reload ReloadFunc
	opts   WatchOptions
	logger *slog.Logger

	mu       sync.Mutex
	fs       *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	armed    map[string]bool
	timers   map[string]*time.Timer
	stopped  bool
	inflight sync.WaitGroup
	done     chan struct{}
	watching atomic.Bool
}

// NewWatcher creates a Watcher over dirs. Empty and duplicate dirs are ignored.
func NewWatcher(dirs []string, reload ReloadFunc, logger *slog.Logger, opts WatchOptions) *Watcher {
	var cleaned []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		dir = filepath.Clean(dir)
		if !slices.Contains(cleaned, dir) {
			cleaned = append(cleaned, dir)
		}
	}

	return &Watcher{
		dirs:   cleaned,
		reload: reload,
		opts:   opts.withDefaults(),
		logger: loggerOrDiscard(logger),
	}
}

// Start subscribes to the directories. Directories that do not exist yet are
// picked up once they appear. Starting a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fs != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	w.fs = fsw
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.armed = make(map[string]bool, len(w.dirs))
	w.timers = make(map[string]*time.Timer)
	w.stopped = false
	w.done = make(chan struct{})

	for _, dir := range w.dirs {
		w.armLocked(dir, false)
	}

	w.watching.Store(true)
	go w.watchLoop(fsw, w.ctx, w.done)
	return nil
}

// Stop releases the subscription, cancels pending and running reloads and
// waits up to ShutdownTimeout for them to finish. Safe to call repeatedly.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fs == nil {
		w.mu.Unlock()
		return
	}

	w.stopped = true
	w.cancel()
	for key, timer := range w.timers {
		timer.Stop()
		delete(w.timers, key)
	}
	if err := w.fs.Close(); err != nil {
		w.logger.Warn("failed to close file watcher", "error", err)
	}
	w.fs = nil
	done := w.done
	w.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		<-done
		w.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(ShutdownTimeout):
		w.logger.Warn("file watcher shutdown timed out")
	}
	w.watching.Store(false)
}

// IsWatching returns true between Start and Stop
func (w *Watcher) IsWatching() bool {
	return w.watching.Load()
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return append([]string(nil), w.dirs...)
}

// watchLoop is the main event loop
func (w *Watcher) watchLoop(fsw *fsnotify.Watcher, ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-ticker.C:
			w.rearm()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Clean(event.Name)

	// A watched directory itself went away
	if slices.Contains(w.dirs, name) {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			w.mu.Lock()
			w.armed[name] = false
			w.mu.Unlock()
			w.logger.Warn("config directory removed, waiting for it to reappear", "dir", name)
		}
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if !slices.Contains(w.dirs, filepath.Dir(name)) {
		return
	}

	key, ok := keyFromFile(name)
	if !ok || (w.Filter != nil && !w.Filter(key)) {
		return
	}

	w.logger.Debug("config file changed", "key", key, "path", name, "op", event.Op.String())
	w.schedule(key)
}

// schedule (re)starts the debounce timer of key.
func (w *Watcher) schedule(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if timer, exists := w.timers[key]; exists {
		timer.Stop()
	}
	w.timers[key] = time.AfterFunc(w.opts.Debounce, func() {
		w.fire(key)
	})
}

func (w *Watcher) fire(key string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.timers, key)
	parent := w.ctx
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	ctx, cancel := context.WithTimeout(parent, w.opts.ReloadTimeout)
	defer cancel()

	if err := w.reload(ctx, key); err != nil {
		w.logger.Error("hot reload failed", "key", key, "error", err)
		return
	}
	w.logger.Debug("hot reload applied", "key", key)
}

// rearm retries directories that could not be watched. When one comes back,
// every key found in it is reloaded since its files may predate the watch.
func (w *Watcher) rearm() {
	w.mu.Lock()
	var revived []string
	for _, dir := range w.dirs {
		if !w.armed[dir] && w.armLocked(dir, true) {
			revived = append(revived, dir)
		}
	}
	w.mu.Unlock()

	for _, dir := range revived {
		entries, err := os.ReadDir(dir)
		if err != nil {
			w.logger.Warn("failed to list config directory", "dir", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			key, ok := keyFromFile(entry.Name())
			if ok && (w.Filter == nil || w.Filter(key)) {
				w.schedule(key)
			}
		}
	}
}

// armLocked adds dir to the subscription and reports success.
func (w *Watcher) armLocked(dir string, retry bool) bool {
	if w.fs == nil {
		return false
	}
	if err := w.fs.Add(dir); err != nil {
		if !retry {
			w.logger.Warn("config directory not watchable yet", "dir", dir, "error", err)
		}
		w.armed[dir] = false
		return false
	}
	if retry {
		w.logger.Info("config directory watched again", "dir", dir)
	}
	w.armed[dir] = true
	return true
}

// keyFromFile derives the module key from a configuration file name.
func keyFromFile(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if !slices.Contains(Extensions, ext) {
		return "", false
	}
	key := strings.TrimSuffix(base, ext)
	if key == "" || strings.HasPrefix(key, ".") {
		return "", false
	}
	return key, true
}
