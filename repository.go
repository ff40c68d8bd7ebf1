// File: lixenwraith/layerconf/repository.go
package layerconf

import (
	"sort"
	"sync"
	"time"
)

// Snapshot is one published, versioned value of a module.
type Snapshot struct {
	Key       string
	Value     any
	Version   uint64
	UpdatedAt time.Time
}

// stored is the repository's private, never-mutated form of a snapshot.
type stored struct {
	snap Snapshot
	tree map[string]any
}

// public returns a copy of the snapshot whose Value shares nothing with the store.
func (s *stored) public() Snapshot {
	out := s.snap
	out.Value = deepCopy(s.snap.Value)
	return out
}

// Repository keeps the latest snapshot per key. Save replaces a key's
// snapshot in one atomic step; readers never block and never see a partial value.
type Repository struct {
	snapshots sync.Map // key -> *stored
	tag       string
}

// NewRepository creates an empty Repository. tag is the struct tag used to
// address fields of struct values by path, DefaultTagName if empty.
func NewRepository(tag string) *Repository {
	if tag == "" {
		tag = DefaultTagName
	}
	return &Repository{tag: tag}
}

// Save freezes snap and stores it under key, replacing any previous snapshot.
// Callers keep full ownership of snap.Value; later changes to it are not visible.
func (r *Repository) Save(key string, snap Snapshot) {
	r.save(key, snap, r.tag)
}

func (r *Repository) save(key string, snap Snapshot, tag string) {
	snap.Key = key
	snap.Value = deepCopy(snap.Value)
	r.snapshots.Store(key, &stored{
		snap: snap,
		tree: valueTree(snap.Value, tag),
	})
}

// Get returns a detached copy of the current snapshot for key.
func (r *Repository) Get(key string) (Snapshot, bool) {
	s, ok := r.load(key)
	if !ok {
		return Snapshot{}, false
	}
	return s.public(), true
}

// Has reports whether key has a snapshot.
func (r *Repository) Has(key string) bool {
	_, ok := r.snapshots.Load(key)
	return ok
}

// Keys returns every stored key in sorted order.
func (r *Repository) Keys() []string {
	var keys []string
	r.snapshots.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Version returns the current version of key, zero if none is stored.
func (r *Repository) Version(key string) uint64 {
	s, ok := r.load(key)
	if !ok {
		return 0
	}
	return s.snap.Version
}

// lookup returns a detached copy of the value at path within key's snapshot.
func (r *Repository) lookup(key, path string) (any, bool, bool) {
	value, loaded, found := r.peek(key, path)
	if !found {
		return nil, loaded, false
	}
	return deepCopy(value), true, true
}

// peek is lookup without the copy. The result aliases stored state and must
// only be read.
func (r *Repository) peek(key, path string) (any, bool, bool) {
	s, ok := r.load(key)
	if !ok {
		return nil, false, false
	}
	if s.tree == nil {
		return nil, true, false
	}
	value, found := navigateToPath(s.tree, path)
	return value, true, found
}

func (r *Repository) load(key string) (*stored, bool) {
	v, ok := r.snapshots.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*stored), true
}
