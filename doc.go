// File: lixenwraith/layerconf/doc.go

// Package layerconf resolves independently registered configuration modules
// from layered sources and publishes each as an immutable, versioned snapshot,
// with optional hot reload when backing files change.
//
// Features:
//   - One module per key, each with its own schema
//   - Fixed precedence: defaults file < overrides file < environment
//   - YAML, JSON (comments allowed) and TOML files
//   - Struct schemas decoded with mapstructure and checked with validator tags
//   - Lock-free reads of detached copies; reloads replace a snapshot atomically
//   - Live views that always read the latest version
//   - Debounced file watching with per-key reload
//
// Quick Start:
//
//	type Retry struct {
//	    RetryCount int `yaml:"retryCount" validate:"min=0"`
//	    Timeout    int `yaml:"timeout" validate:"required"`
//	}
//
//	svc, err := layerconf.NewBuilder().
//	    WithDefaultsPath("config/defaults").
//	    WithOverridesPath("config/overrides").
//	    WithEnvPrefix("APP__").
//	    WithHotReload(true).
//	    WithModule("mymod", layerconf.NewStructSchema(Retry{RetryCount: 3})).
//	    BuildAndStart(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	retry, err := layerconf.Get[Retry](svc, "mymod")
//
// Sources for key "mymod" (lowest to highest precedence):
//  1. config/defaults/mymod.yaml (or .yml, .json, .toml)
//  2. config/overrides/mymod.yaml
//  3. APP__MYMOD__RETRY_COUNT=7 style variables; path segments are separated
//     by "__" and converted to lowerCamelCase field names
//
// Missing files contribute nothing. Unparsable files are logged and contribute
// nothing. A module whose merged data fails validation is logged at startup and
// stays unavailable; Get reports NotFoundError for it while other modules work.
//
// Thread Safety:
// All operations are safe for concurrent use. Reads never block; reloads of the
// same key are serialized, reloads of different keys run independently.
package layerconf
