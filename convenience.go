// File: lixenwraith/layerconf/convenience.go
package layerconf

import (
	"context"
	"fmt"
)

// Quick builds and starts a Service over the given directories with the
// remaining options at their defaults.
func Quick(ctx context.Context, envPrefix, defaultsPath, overridesPath string, modules ...Module) (*Service, error) {
	return NewBuilder().
		WithEnvPrefix(envPrefix).
		WithDefaultsPath(defaultsPath).
		WithOverridesPath(overridesPath).
		WithModules(modules...).
		BuildAndStart(ctx)
}

// MustQuick is like Quick but panics on error
func MustQuick(ctx context.Context, envPrefix, defaultsPath, overridesPath string, modules ...Module) *Service {
	svc, err := Quick(ctx, envPrefix, defaultsPath, overridesPath, modules...)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return svc
}

// Required returns a ValidatorFunc that fails unless every key was loaded.
func Required(keys ...string) ValidatorFunc {
	return func(s *Service) error {
		for _, key := range keys {
			if !s.repo.Has(key) {
				return &NotFoundError{Key: key}
			}
		}
		return nil
	}
}
