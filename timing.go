// File: lixenwraith/layerconf/timing.go
package layerconf

import "time"

// Core timing constants for production use.
const (
	ShutdownTimeout      = 500 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce      = 250 * time.Millisecond // File change coalescence period
	DefaultRetryInterval = 2 * time.Second        // Re-arm period for missing watch directories
	DefaultLoadTimeout   = 5 * time.Second        // Upper bound for a single module load
	DefaultReloadTimeout = 5 * time.Second        // Upper bound for a watcher-triggered reload
)

// Size limits applied to raw inputs.
const (
	DefaultMaxFileSize = 10 << 20 // 10 MiB per configuration file
	MaxValueSize       = 1 << 20  // 1 MiB per environment value
)
