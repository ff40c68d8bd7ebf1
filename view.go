// File: lixenwraith/layerconf/view.go
package layerconf

import (
	"fmt"
	"reflect"
)

// View is a live read-only handle on one key. Every call reads the snapshot
// current at that moment, so a long-lived View observes every reload.
type View[T any] struct {
	svc *Service
	key string
}

// ViewOf returns a live view of key typed as T. It fails with NotFoundError
// only if key is unregistered; reads fail until the key has been loaded.
func ViewOf[T any](s *Service, key string) (*View[T], error) {
	if !s.registry.Has(key) {
		return nil, &NotFoundError{Key: key}
	}
	return &View[T]{svc: s, key: key}, nil
}

// View returns an untyped live view of key.
func (s *Service) View(key string) (*View[any], error) {
	return ViewOf[any](s, key)
}

// Key returns the viewed key.
func (v *View[T]) Key() string {
	return v.key
}

// Get returns a detached copy of the current value.
func (v *View[T]) Get() (T, error) {
	return Get[T](v.svc, v.key)
}

// Snapshot returns the current snapshot.
func (v *View[T]) Snapshot() (Snapshot, error) {
	snap, ok := v.svc.repo.Get(v.key)
	if !ok {
		return Snapshot{}, &NotFoundError{Key: v.key}
	}
	return snap, nil
}

// Version returns the current version, zero before the first load.
func (v *View[T]) Version() uint64 {
	return v.svc.repo.Version(v.key)
}

// Lookup returns a detached copy of the value at a dot path of the current
// snapshot, e.g. "server.port". An empty path returns the whole tree.
func (v *View[T]) Lookup(path string) (any, error) {
	value, loaded, found := v.svc.repo.lookup(v.key, path)
	if !loaded {
		return nil, &NotFoundError{Key: v.key}
	}
	if !found {
		return nil, fmt.Errorf("path %q not found in %q", path, v.key)
	}
	return value, nil
}

// Has reports whether path exists in the current snapshot.
func (v *View[T]) Has(path string) bool {
	_, _, found := v.svc.repo.lookup(v.key, path)
	return found
}

// Set always fails: configuration is only changed through its sources.
func (v *View[T]) Set(path string, value any) error {
	return fmt.Errorf("%w: cannot set %q in %q", ErrImmutable, path, v.key)
}

// Scan decodes the section at path of the current snapshot into target,
// a non-nil pointer to a struct or map. A missing section decodes as empty.
func (v *View[T]) Scan(path string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	section, loaded, found := v.svc.repo.lookup(v.key, path)
	if !loaded {
		return &NotFoundError{Key: v.key}
	}
	if !found || section == nil {
		section = map[string]any{}
	}

	m, _ := v.svc.registry.Lookup(v.key)
	if err := decodeInto(section, target, v.svc.tagFor(m), false); err != nil {
		return fmt.Errorf("failed to scan %q of %q into %T: %w", path, v.key, target, err)
	}
	return nil
}
