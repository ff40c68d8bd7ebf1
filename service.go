// File: lixenwraith/layerconf/service.go
package layerconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle position of one key.
type State int

const (
	StateUnregistered State = iota
	StateLoading
	StateReady
	StateReloading
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateReloading:
		return "reloading"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Service resolves every registered module at Start, serves the published
// snapshots and republishes a module on Reload.
type Service struct {
	registry  *Registry
	loader    *Loader
	repo      *Repository
	publisher Publisher
	logger    *slog.Logger
	opts      Options

	states  sync.Map // key -> State
	locks   sync.Map // key -> *sync.Mutex
	started atomic.Bool
	now     func() time.Time

	mu      sync.Mutex
	watcher *Watcher
}

// New creates a Service over registry. Nothing is loaded until Start.
func New(registry *Registry, opts Options) *Service {
	logger := loggerOrDiscard(opts.Logger)
	opts.Logger = logger
	if registry == nil {
		registry = NewRegistry(logger)
	}

	return &Service{
		registry:  registry,
		loader:    NewLoader(registry, opts),
		repo:      NewRepository(opts.TagName),
		publisher: opts.Publisher,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Registry returns the module registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Repository returns the snapshot repository.
func (s *Service) Repository() *Repository {
	return s.repo
}

// Start loads every registered module once. A module that fails is logged and
// left unavailable; the others are published with version 1. Start returns
// after all modules were attempted, then starts the watcher if HotReload is set.
// If ctx ends first, the remaining modules are marked failed and Start returns
// the context error; Start cannot be retried, but Reload loads them later.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	modules := s.registry.Modules()
	var failed int
	for i, m := range modules {
		if err := ctx.Err(); err != nil {
			for _, rest := range modules[i:] {
				s.abandon(rest.Key)
			}
			return fmt.Errorf("configuration startup interrupted: %w", err)
		}

		if !s.startModule(ctx, m) {
			failed++
		}
	}

	s.logger.Info("configuration modules loaded",
		"total", len(s.registry.Keys()),
		"failed", failed)

	if s.opts.HotReload {
		if err := s.startWatcher(); err != nil {
			// Hot reload is optional; the loaded configuration stays usable
			s.logger.Error("failed to start config watcher", "error", err)
		}
	}

	return nil
}

// startModule performs the initial load of m. A Reload of the same key that
// published first wins, so startup never moves a key back to an older version.
func (s *Service) startModule(ctx context.Context, m Module) bool {
	lock := s.keyLock(m.Key)
	lock.Lock()
	defer lock.Unlock()

	if s.repo.Has(m.Key) {
		s.logger.Debug("configuration module already published by reload", "key", m.Key)
		return true
	}

	s.states.Store(m.Key, StateLoading)
	value, err := s.loader.Load(ctx, m)
	if err != nil {
		s.states.Store(m.Key, StateFailed)
		s.logger.Error("failed to load configuration module", "key", m.Key, "error", err)
		return false
	}

	event := s.publish(m, value, nil)
	s.states.Store(m.Key, StateReady)
	s.notify(TopicLoaded, event)
	return true
}

// abandon marks a key that startup never attempted as failed, unless a
// Reload has published it meanwhile. Reload can still recover it.
func (s *Service) abandon(key string) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if !s.repo.Has(key) {
		s.states.Store(key, StateFailed)
	}
}

// Close stops the watcher, if any. Published snapshots remain readable.
func (s *Service) Close() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

// Value returns a detached copy of the current value of key.
func (s *Service) Value(key string) (any, error) {
	snap, ok := s.repo.Get(key)
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return snap.Value, nil
}

// Get returns the current value of key as T.
func Get[T any](s *Service, key string) (T, error) {
	var zero T
	value, err := s.Value(key)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q holds %T, not %s", ErrTypeMismatch, key, value, reflect.TypeFor[T]())
	}
	return typed, nil
}

// MustGet is like Get but panics on error
func MustGet[T any](s *Service, key string) T {
	value, err := Get[T](s, key)
	if err != nil {
		panic(fmt.Sprintf("config get failed: %v", err))
	}
	return value
}

// Snapshot returns a detached copy of the current snapshot of key.
func (s *Service) Snapshot(key string) (Snapshot, bool) {
	return s.repo.Get(key)
}

// Keys returns the keys that currently have a snapshot.
func (s *Service) Keys() []string {
	return s.repo.Keys()
}

// State returns the lifecycle state of key.
func (s *Service) State(key string) State {
	if v, ok := s.states.Load(key); ok {
		return v.(State)
	}
	if s.registry.Has(key) {
		// Registered but Start has not reached it
		return StateLoading
	}
	return StateUnregistered
}

// Reload re-resolves key and publishes the result as the next version.
// Reloads of one key are serialized; on failure the previous snapshot stays
// authoritative and the error is returned unchanged.
func (s *Service) Reload(ctx context.Context, key string) (*UpdateEvent, error) {
	m, ok := s.registry.Lookup(key)
	if !ok {
		return nil, &NotFoundError{Key: key}
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	prev, hadPrev := s.repo.load(key)
	if hadPrev {
		s.states.Store(key, StateReloading)
	} else {
		s.states.Store(key, StateLoading)
	}

	value, err := s.loader.Load(ctx, m)
	if err != nil {
		if hadPrev {
			s.states.Store(key, StateReady)
		} else {
			s.states.Store(key, StateFailed)
		}
		s.logger.Warn("configuration reload failed, keeping last good value",
			"key", key, "version", s.repo.Version(key), "error", err)
		return nil, err
	}

	event := s.publish(m, value, prev)
	s.states.Store(key, StateReady)
	s.logger.Info("configuration reloaded", "key", key, "version", event.Version, "changed", len(event.ChangedPaths))
	s.notify(TopicUpdated, event)
	return event, nil
}

// publish stores value as the successor of prev and builds the matching event.
func (s *Service) publish(m Module, value any, prev *stored) *UpdateEvent {
	version := uint64(1)
	var oldValue any
	var oldTree map[string]any
	if prev != nil {
		version = prev.snap.Version + 1
		oldValue = deepCopy(prev.snap.Value)
		oldTree = prev.tree
	}

	now := s.now()
	s.repo.save(m.Key, Snapshot{Value: value, Version: version, UpdatedAt: now}, s.tagFor(m))

	current, _ := s.repo.load(m.Key)
	return &UpdateEvent{
		Key:          m.Key,
		Value:        deepCopy(current.snap.Value),
		OldValue:     oldValue,
		Version:      version,
		ChangedPaths: changedPaths(oldTree, current.tree),
		UpdatedAt:    now,
	}
}

func (s *Service) notify(topic string, event *UpdateEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(topic, event)
}

func (s *Service) tagFor(m Module) string {
	if t, ok := m.Schema.(tagged); ok {
		return t.Tag()
	}
	return s.repo.tag
}

func (s *Service) keyLock(key string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *Service) startWatcher() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	w := NewWatcher(
		[]string{s.opts.DefaultsPath, s.opts.OverridesPath},
		func(ctx context.Context, key string) error {
			_, err := s.Reload(ctx, key)
			return err
		},
		s.logger,
		s.opts.Watch,
	)
	w.Filter = s.registry.Has

	if err := w.Start(); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// Watching reports whether hot reload is active.
func (s *Service) Watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watcher != nil && s.watcher.IsWatching()
}

// changedPaths lists dot paths that differ between two trees.
func changedPaths(oldTree, newTree map[string]any) []string {
	oldFlat := flattenMap(oldTree, "")
	newFlat := flattenMap(newTree, "")

	var changed []string
	for path, newVal := range newFlat {
		if oldVal, existed := oldFlat[path]; !existed || !reflect.DeepEqual(oldVal, newVal) {
			changed = append(changed, path)
		}
	}
	for path := range oldFlat {
		if _, exists := newFlat[path]; !exists {
			changed = append(changed, path)
		}
	}

	sort.Strings(changed)
	return changed
}

// IsNotFound reports whether err means the key has no published configuration.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
