// File: lixenwraith/layerconf/options.go
package layerconf

import (
	"log/slog"
	"time"
)

// Options configures the engine.
type Options struct {
	// DefaultsPath is the directory holding {key}.{yaml|yml|json|toml} defaults
	DefaultsPath string
	// OverridesPath is the directory holding files that take precedence over defaults
	OverridesPath string
	// EnvPrefix is prepended to every key scope, e.g. "APP__" gives APP__MYMOD__FIELD
	EnvPrefix string
	// HotReload starts a file watcher on both directories
	HotReload bool

	// LoadTimeout bounds a single module load
	LoadTimeout time.Duration
	// MaxFileSize limits configuration files; zero keeps DefaultMaxFileSize, negative disables
	MaxFileSize int64
	// TagName is the struct tag used for path lookups on struct values without their own schema tag
	TagName string
	Watch   WatchOptions

	Logger    *slog.Logger
	Publisher Publisher
	// Environ overrides the process environment, mainly for tests
	Environ func() []string
}

// DefaultOptions returns the standard engine options
func DefaultOptions() Options {
	return Options{
		DefaultsPath:  "config/defaults",
		OverridesPath: "config/overrides",
		EnvPrefix:     "APP__",
		HotReload:     false,
		LoadTimeout:   DefaultLoadTimeout,
		TagName:       DefaultTagName,
		Watch:         DefaultWatchOptions(),
	}
}
