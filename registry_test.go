// File: lixenwraith/layerconf/registry_test.go
package layerconf

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("RegisterAndLookup", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.Register(Module{Key: "b", Schema: passthrough}))
		require.NoError(t, r.Register(Module{Key: "a", Schema: passthrough}))

		m, ok := r.Lookup("a")
		assert.True(t, ok)
		assert.Equal(t, "a", m.Key)
		assert.True(t, r.Has("b"))
		assert.False(t, r.Has("c"))
		assert.Equal(t, []string{"b", "a"}, r.Keys())
		assert.Len(t, r.Modules(), 2)
	})

	t.Run("RejectsIncompleteModules", func(t *testing.T) {
		r := NewRegistry(nil)
		assert.Error(t, r.Register(Module{Schema: passthrough}))
		assert.Error(t, r.Register(Module{Key: "x"}))
		assert.Empty(t, r.Keys())
	})

	t.Run("FirstRegistrationWins", func(t *testing.T) {
		logger, rec := newRecordingLogger()
		r := NewRegistry(logger)

		first := SchemaFunc(func(map[string]any) (any, error) { return "first", nil })
		second := SchemaFunc(func(map[string]any) (any, error) { return "second", nil })

		require.NoError(t, r.Register(Module{Key: "dup", Schema: first}))
		err := r.Register(Module{Key: "dup", Schema: second})
		assert.True(t, errors.Is(err, ErrDuplicateKey))

		m, _ := r.Lookup("dup")
		got, _ := m.Schema.Parse(nil)
		assert.Equal(t, "first", got)
		assert.Equal(t, []string{"dup"}, r.Keys())

		warnings := rec.records(slog.LevelWarn, "duplicate")
		require.Len(t, warnings, 1)
		assert.Equal(t, "dup", warnings[0]["key"])
	})
}
