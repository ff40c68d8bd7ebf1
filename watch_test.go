// File: lixenwraith/layerconf/watch_test.go
package layerconf

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reloadRecorder counts triggered reloads per key.
type reloadRecorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]int // key -> remaining failures
}

func (r *reloadRecorder) reload(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)
	if r.fail[key] > 0 {
		r.fail[key]--
		return errors.New("injected failure")
	}
	return nil
}

func (r *reloadRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.calls {
		if k == key {
			n++
		}
	}
	return n
}

func (r *reloadRecorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func fastWatchOptions(debounce time.Duration) WatchOptions {
	return WatchOptions{
		Debounce:      debounce,
		RetryInterval: 50 * time.Millisecond,
		ReloadTimeout: time.Second,
	}
}

func startWatcher(t *testing.T, dirs []string, rec *reloadRecorder, logger *slog.Logger, debounce time.Duration) *Watcher {
	t.Helper()
	w := NewWatcher(dirs, rec.reload, logger, fastWatchOptions(debounce))
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherReloadsChangedKey(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{}
	startWatcher(t, []string{dir}, rec, nil, 20*time.Millisecond)

	writeFile(t, dir, "db.yaml", "host: a\n")
	assert.Eventually(t, func() bool {
		return rec.count("db") >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherDebounce(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{}
	startWatcher(t, []string{dir}, rec, nil, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		writeFile(t, dir, "db.yaml", "host: burst\n")
	}

	assert.Eventually(t, func() bool {
		return rec.count("db") == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, rec.count("db"))
}

func TestWatcherFiltersFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{}
	w := NewWatcher([]string{dir}, rec.reload, nil, fastWatchOptions(20*time.Millisecond))
	w.Filter = func(key string) bool { return key == "db" }
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, dir, "other.yaml", "x: 1\n")
	writeFile(t, dir, "notes.txt", "x\n")
	writeFile(t, dir, ".hidden.yaml", "x: 1\n")
	writeFile(t, dir, "db.json", "{}")

	assert.Eventually(t, func() bool {
		return rec.count("db") >= 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	for _, key := range rec.keys() {
		assert.Equal(t, "db", key)
	}
}

func TestWatcherRemovalTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "db.yaml", "host: a\n")
	rec := &reloadRecorder{}
	startWatcher(t, []string{dir}, rec, nil, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return rec.count("db") >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherMissingDirectory(t *testing.T) {
	t.Run("PickedUpWhenCreated", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "later")
		rec := &reloadRecorder{}
		logger, logs := newRecordingLogger()
		w := startWatcher(t, []string{dir}, rec, logger, 20*time.Millisecond)
		assert.True(t, w.IsWatching())
		assert.Len(t, logs.records(slog.LevelWarn, "not watchable"), 1)

		writeFile(t, dir, "cache.yaml", "ttl: 1\n")
		assert.Eventually(t, func() bool {
			return rec.count("cache") >= 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("RemovedAndRecreated", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "conf")
		require.NoError(t, os.MkdirAll(dir, 0755))
		rec := &reloadRecorder{}
		logger, logs := newRecordingLogger()
		startWatcher(t, []string{dir}, rec, logger, 20*time.Millisecond)

		require.NoError(t, os.RemoveAll(dir))
		assert.Eventually(t, func() bool {
			return len(logs.records(slog.LevelWarn, "directory removed")) == 1
		}, 2*time.Second, 10*time.Millisecond)

		writeFile(t, dir, "queue.toml", "size = 1\n")
		assert.Eventually(t, func() bool {
			return rec.count("queue") >= 1
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestWatcherSurvivesReloadErrors(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{fail: map[string]int{"db": 1}}
	logger, logs := newRecordingLogger()
	startWatcher(t, []string{dir}, rec, logger, 20*time.Millisecond)

	writeFile(t, dir, "db.yaml", "host: a\n")
	assert.Eventually(t, func() bool {
		return len(logs.records(slog.LevelError, "hot reload failed")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "db.yaml", "host: b\n")
	assert.Eventually(t, func() bool {
		return rec.count("db") >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherLifecycle(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{}
	w := NewWatcher([]string{dir, dir + "/", ""}, rec.reload, nil, WatchOptions{})
	assert.Equal(t, []string{filepath.Clean(dir)}, w.Dirs())

	w.Stop()
	assert.False(t, w.IsWatching())

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	assert.True(t, w.IsWatching())

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())

	writeFile(t, dir, "db.yaml", "host: a\n")
	time.Sleep(DefaultDebounce + 100*time.Millisecond)
	assert.Zero(t, rec.count("db"))
}

func TestKeyFromFile(t *testing.T) {
	tests := []struct {
		path string
		key  string
		ok   bool
	}{
		{"/etc/app/db.yaml", "db", true},
		{"db.yml", "db", true},
		{"cache.json", "cache", true},
		{"queue.toml", "queue", true},
		{"module.deep.yaml", "module.deep", true},
		{"db.yaml.swp", "", false},
		{"README.md", "", false},
		{".yaml", "", false},
		{".db.yaml", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			key, ok := keyFromFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestServiceHotReload(t *testing.T) {
	f := newServiceFixture(t)
	writeFile(t, f.defaults, "r.yaml", "timeout: 1\n")
	require.NoError(t, os.MkdirAll(f.overrides, 0755))

	updates, cancel := f.bus.Subscribe(TopicUpdated)
	defer cancel()

	svc := f.start(t, f.builder().
		WithHotReload(true).
		WithWatchOptions(fastWatchOptions(50*time.Millisecond)).
		WithModule("r", NewStructSchema(retrySettings{})))
	require.True(t, svc.Watching())

	writeFile(t, f.overrides, "r.yaml", "timeout: 42\n")
	assert.Eventually(t, func() bool {
		got, err := Get[retrySettings](svc, "r")
		return err == nil && got.Timeout == 42
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case ev := <-updates:
		assert.Equal(t, []string{"timeout"}, ev.Payload.(*UpdateEvent).ChangedPaths)
	case <-time.After(time.Second):
		t.Fatal("no update event")
	}

	// An invalid edit is rejected and the last good value stays
	version := svc.Repository().Version("r")
	writeFile(t, f.overrides, "r.yaml", "retryCount: 1000\n")
	assert.Eventually(t, func() bool {
		return len(f.rec.records(slog.LevelError, "hot reload failed")) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, version, svc.Repository().Version("r"))

	svc.Close()
	assert.False(t, svc.Watching())
}
