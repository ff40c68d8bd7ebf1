// File: lixenwraith/layerconf/log.go
package layerconf

import "log/slog"

// discardLogger is used wherever no logger was injected.
var discardLogger = slog.New(slog.DiscardHandler)

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return discardLogger
	}
	return logger
}
