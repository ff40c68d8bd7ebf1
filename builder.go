// File: lixenwraith/layerconf/builder.go
package layerconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ValidatorFunc checks the started Service as a whole, e.g. that modules
// other components depend on were loaded.
type ValidatorFunc func(s *Service) error

// Builder provides a fluent interface for building a Service
type Builder struct {
	opts       Options
	modules    []Module
	validators []ValidatorFunc
}

// NewBuilder creates a new builder with DefaultOptions
func NewBuilder() *Builder {
	return &Builder{
		opts:       DefaultOptions(),
		validators: make([]ValidatorFunc, 0),
	}
}

// WithOptions replaces all options at once
func (b *Builder) WithOptions(opts Options) *Builder {
	b.opts = opts
	return b
}

// WithDefaultsPath sets the defaults directory
func (b *Builder) WithDefaultsPath(dir string) *Builder {
	b.opts.DefaultsPath = dir
	return b
}

// WithOverridesPath sets the overrides directory
func (b *Builder) WithOverridesPath(dir string) *Builder {
	b.opts.OverridesPath = dir
	return b
}

// WithEnvPrefix sets the global environment variable prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.opts.EnvPrefix = prefix
	return b
}

// WithHotReload enables or disables the file watcher
func (b *Builder) WithHotReload(enabled bool) *Builder {
	b.opts.HotReload = enabled
	return b
}

// WithWatchOptions sets the watcher timing
func (b *Builder) WithWatchOptions(opts WatchOptions) *Builder {
	b.opts.Watch = opts
	return b
}

// WithLoadTimeout bounds each module load
func (b *Builder) WithLoadTimeout(d time.Duration) *Builder {
	b.opts.LoadTimeout = d
	return b
}

// WithMaxFileSize limits configuration file size
func (b *Builder) WithMaxFileSize(n int64) *Builder {
	b.opts.MaxFileSize = n
	return b
}

// WithLogger sets the structured logger
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.opts.Logger = logger
	return b
}

// WithPublisher sets where load and reload notifications go
func (b *Builder) WithPublisher(p Publisher) *Builder {
	b.opts.Publisher = p
	return b
}

// WithEnviron replaces the process environment
func (b *Builder) WithEnviron(environ func() []string) *Builder {
	b.opts.Environ = environ
	return b
}

// WithModule registers a module by key and schema
func (b *Builder) WithModule(key string, schema Schema) *Builder {
	return b.WithModules(Module{Key: key, Schema: schema})
}

// WithModules registers module descriptors in order
func (b *Builder) WithModules(modules ...Module) *Builder {
	b.modules = append(b.modules, modules...)
	return b
}

// WithValidator adds a check run by BuildAndStart after all modules were attempted.
// Multiple validators run in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build registers the modules and creates the Service without loading anything.
// Duplicate keys are logged and skipped; the first registration wins.
func (b *Builder) Build() (*Service, error) {
	registry := NewRegistry(b.opts.Logger)
	for _, m := range b.modules {
		if err := registry.Register(m); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				continue
			}
			return nil, fmt.Errorf("failed to register module: %w", err)
		}
	}

	return New(registry, b.opts), nil
}

// BuildAndStart builds the Service, loads every module and runs the validators.
func (b *Builder) BuildAndStart(ctx context.Context) (*Service, error) {
	svc, err := b.Build()
	if err != nil {
		return nil, err
	}

	if err := svc.Start(ctx); err != nil {
		svc.Close()
		return nil, err
	}

	for _, validator := range b.validators {
		if err := validator(svc); err != nil {
			svc.Close()
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return svc, nil
}

// MustBuildAndStart is like BuildAndStart but panics on error
func (b *Builder) MustBuildAndStart(ctx context.Context) *Service {
	svc, err := b.BuildAndStart(ctx)
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return svc
}
