// File: lixenwraith/layerconf/env_test.go
package layerconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func staticEnv(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestScopedPrefix(t *testing.T) {
	assert.Equal(t, "APP__MYMOD__", ScopedPrefix("mymod", "APP__"))
	assert.Equal(t, "APP__MODULE_DEEP_TEST__", ScopedPrefix("module.deep.test", "APP__"))
	assert.Equal(t, "X_HTTP_SERVER__", ScopedPrefix("http-server", "X_"))
	assert.Equal(t, "MYMOD__", ScopedPrefix("mymod", ""))
}

func TestEnvironmentExtraction(t *testing.T) {
	t.Run("NestedPathsAndCamelCase", func(t *testing.T) {
		src := &EnvSource{Environ: staticEnv(
			"APP__MYMOD__RETRY_COUNT=7",
			"APP__MYMOD__DATABASE__MAX_IDLE_CONNS=4",
			"APP__MYMOD__DATABASE__HOST=db.local",
			"APP__OTHER__RETRY_COUNT=1",
			"UNRELATED=1",
		)}

		got := src.Extract("mymod", "APP__")
		assert.Equal(t, map[string]any{
			"retryCount": int64(7),
			"database": map[string]any{
				"maxIdleConns": int64(4),
				"host":         "db.local",
			},
		}, got)
	})

	t.Run("ValueCoercion", func(t *testing.T) {
		src := &EnvSource{Environ: staticEnv(
			"APP__K__ON=true",
			"APP__K__OFF=false",
			"APP__K__TRUE_UPPER=TRUE",
			"APP__K__INT=-42",
			"APP__K__FLOAT=2.5",
			"APP__K__QUOTED=\"123\"",
			"APP__K__WORD=hello",
			"APP__K__NAN=NaN",
			"APP__K__EMPTY=",
			"APP__K__WITH_EQUALS=a=b",
		)}

		got := src.Extract("k", "APP__")
		assert.Equal(t, true, got["on"])
		assert.Equal(t, false, got["off"])
		assert.Equal(t, "TRUE", got["trueUpper"])
		assert.Equal(t, int64(-42), got["int"])
		assert.Equal(t, 2.5, got["float"])
		assert.Equal(t, "123", got["quoted"])
		assert.Equal(t, "hello", got["word"])
		assert.Equal(t, "NaN", got["nan"])
		assert.Equal(t, "", got["empty"])
		assert.Equal(t, "a=b", got["withEquals"])
	})

	t.Run("DottedAndDashedKeys", func(t *testing.T) {
		src := &EnvSource{Environ: staticEnv("APP__MODULE_DEEP_TEST__LEVEL=3")}
		assert.Equal(t, map[string]any{"level": int64(3)}, src.Extract("module.deep-test", "APP__"))
	})

	t.Run("MalformedNamesSkipped", func(t *testing.T) {
		src := &EnvSource{Environ: staticEnv(
			"APP__K__=1",
			"APP__K__A____B=2",
			"APP__K__OK=3",
		)}
		assert.Equal(t, map[string]any{"ok": int64(3)}, src.Extract("k", "APP__"))
	})

	t.Run("LeafExtendedAsObjectLastWriteWins", func(t *testing.T) {
		// Variables are applied in name order: A is written first, then A__B replaces it with an object.
		src := &EnvSource{Environ: staticEnv(
			"APP__K__A__B=2",
			"APP__K__A=1",
		)}
		assert.Equal(t, map[string]any{"a": map[string]any{"b": int64(2)}}, src.Extract("k", "APP__"))
	})

	t.Run("NoMatchesYieldsEmptyObject", func(t *testing.T) {
		src := &EnvSource{Environ: staticEnv("PATH=/bin")}
		assert.Equal(t, map[string]any{}, src.Extract("k", "APP__"))
	})
}

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"RETRY_COUNT":    "retryCount",
		"HOST":           "host",
		"MAX_IDLE_CONNS": "maxIdleConns",
		"V2_NAME":        "v2Name",
		"_LEADING":       "leading",
		"":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, snakeToCamel(in), in)
	}
}
