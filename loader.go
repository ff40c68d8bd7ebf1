// File: lixenwraith/layerconf/loader.go
package layerconf

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Source names one layer of a module's configuration, used in logs.
type Source string

const (
	// SourceDefaults is the defaults directory file
	SourceDefaults Source = "defaults"
	// SourceOverrides is the overrides directory file
	SourceOverrides Source = "overrides"
	// SourceEnv is the key-scoped environment variables
	SourceEnv Source = "env"
)

// Loader resolves a module by reading, merging and validating its sources.
// It never touches shared state; each call is a function of the files and
// environment at call time.
type Loader struct {
	Files        *FileSource
	Env          *EnvSource
	Registry     *Registry
	DefaultsDir  string
	OverridesDir string
	EnvPrefix    string
	// Timeout bounds a single Load; zero or negative disables the bound
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewLoader creates a Loader for the directories and prefix in opts.
func NewLoader(registry *Registry, opts Options) *Loader {
	logger := loggerOrDiscard(opts.Logger)
	env := NewEnvSource(logger)
	if opts.Environ != nil {
		env.Environ = opts.Environ
	}
	files := NewFileSource(logger)
	if opts.MaxFileSize != 0 {
		files.MaxFileSize = opts.MaxFileSize
	}

	return &Loader{
		Files:        files,
		Env:          env,
		Registry:     registry,
		DefaultsDir:  opts.DefaultsPath,
		OverridesDir: opts.OverridesPath,
		EnvPrefix:    opts.EnvPrefix,
		Timeout:      opts.LoadTimeout,
		Logger:       logger,
	}
}

type loadResult struct {
	value any
	err   error
}

// Load runs defaults, overrides, env, merge and validate for m, in that order.
// Validation failures are returned as *ValidationError; every other failure,
// including exceeding Timeout or ctx cancellation, as *LoaderError.
func (l *Loader) Load(ctx context.Context, m Module) (any, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	done := make(chan loadResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- loadResult{err: &LoaderError{Key: m.Key, Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		value, err := l.resolve(m)
		done <- loadResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && !isConfigError(res.err) {
			return nil, &LoaderError{Key: m.Key, Err: res.err}
		}
		return res.value, res.err
	case <-ctx.Done():
		return nil, &LoaderError{Key: m.Key, Err: ctx.Err()}
	}
}

// Reload re-runs Load for the registered module of key.
func (l *Loader) Reload(ctx context.Context, key string) (any, error) {
	m, ok := l.Registry.Lookup(key)
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return l.Load(ctx, m)
}

func (l *Loader) resolve(m Module) (any, error) {
	defaults, err := l.Files.Read(l.DefaultsDir, m.Key)
	if err != nil {
		return nil, &LoaderError{Key: m.Key, Err: fmt.Errorf("%s: %w", SourceDefaults, err)}
	}

	overrides, err := l.Files.Read(l.OverridesDir, m.Key)
	if err != nil {
		return nil, &LoaderError{Key: m.Key, Err: fmt.Errorf("%s: %w", SourceOverrides, err)}
	}

	env := l.Env.Extract(m.Key, l.EnvPrefix)

	loggerOrDiscard(l.Logger).Debug("resolved configuration sources",
		"key", m.Key,
		string(SourceDefaults), len(defaults),
		string(SourceOverrides), len(overrides),
		string(SourceEnv), len(env))

	return validate(m.Key, Merge(defaults, overrides, env), m.Schema)
}
