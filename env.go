// File: lixenwraith/layerconf/env.go
package layerconf

import (
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// EnvDelimiter separates the key scope and the nested path segments of a variable name.
const EnvDelimiter = "__"

// EnvSource reconstructs a nested object from flattened environment variables
// of the form PREFIX + KEY + "__" + PATH__TO__FIELD.
type EnvSource struct {
	// Environ returns the environment as "NAME=value" pairs. Defaults to os.Environ.
	Environ func() []string
	Logger  *slog.Logger
}

// NewEnvSource creates an EnvSource over the process environment.
func NewEnvSource(logger *slog.Logger) *EnvSource {
	return &EnvSource{Environ: os.Environ, Logger: logger}
}

// ScopedPrefix returns the variable name prefix owned by key, e.g. "APP__" and
// "module.deep-test" give "APP__MODULE_DEEP_TEST__".
func ScopedPrefix(key, prefix string) string {
	scope := strings.NewReplacer(".", "_", "-", "_").Replace(key)
	return prefix + strings.ToUpper(scope) + EnvDelimiter
}

// Extract returns the nested object built from every variable scoped to key.
// Conflicting paths resolve by last write in variable name order.
func (e *EnvSource) Extract(key, prefix string) map[string]any {
	scoped := ScopedPrefix(key, prefix)
	result := make(map[string]any)

	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}

	entries := environ()
	sort.Strings(entries)

	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, scoped) {
			continue
		}

		if len(value) > MaxValueSize {
			e.logger().Warn("skipping oversized environment value", "key", key, "var", name, "size", len(value))
			continue
		}

		segments, ok := envPathSegments(strings.TrimPrefix(name, scoped))
		if !ok {
			e.logger().Debug("skipping malformed environment variable", "key", key, "var", name)
			continue
		}

		setNestedValue(result, segments, parseValue(value))
	}

	return result
}

func (e *EnvSource) logger() *slog.Logger {
	if e.Logger == nil {
		return discardLogger
	}
	return e.Logger
}

// envPathSegments splits the unscoped remainder of a variable name into field names.
func envPathSegments(rest string) ([]string, bool) {
	if rest == "" {
		return nil, false
	}
	raw := strings.Split(rest, EnvDelimiter)
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		field := snakeToCamel(segment)
		if field == "" {
			return nil, false
		}
		segments = append(segments, field)
	}
	return segments, true
}

// snakeToCamel converts UPPER_SNAKE_CASE into lowerCamelCase.
func snakeToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := false
	for _, r := range s {
		if r == '_' {
			upperNext = b.Len() > 0
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// parseValue coerces a raw environment string: "true"/"false" become bools,
// fully numeric strings become int64 or float64, a double-quoted value is
// kept as its unquoted string, anything else stays a string.
func parseValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}

	return s
}
