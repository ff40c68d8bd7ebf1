// File: lixenwraith/layerconf/source.go
package layerconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions probed for a key, in lookup order.
var Extensions = []string{".yaml", ".yml", ".json", ".toml"}

// FileSource reads the per-key file of a configuration layer.
type FileSource struct {
	// MaxFileSize rejects larger files; zero or negative disables the check
	MaxFileSize int64
	Logger      *slog.Logger
}

// NewFileSource creates a FileSource with the default size limit.
func NewFileSource(logger *slog.Logger) *FileSource {
	return &FileSource{MaxFileSize: DefaultMaxFileSize, Logger: logger}
}

// Read returns the parsed contents of {dir}/{key}.{ext} for the first extension
// that exists. A missing file yields an empty map. A file that cannot be parsed
// is logged and also yields an empty map; only I/O failures are returned.
func (f *FileSource) Read(dir, key string) (map[string]any, error) {
	if dir == "" {
		return map[string]any{}, nil
	}

	path, err := resolveFile(dir, key)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return map[string]any{}, nil
	}

	data, err := f.readFile(path)
	if err != nil {
		return nil, err
	}

	parsed, err := parseDocument(detectFileFormat(path), data)
	if err != nil {
		loggerOrDiscard(f.Logger).Warn("ignoring unparsable config file", "key", key, "path", path, "error", err)
		return map[string]any{}, nil
	}

	return parsed, nil
}

// resolveFile returns the first existing candidate path for key, or "" if none exists.
func resolveFile(dir, key string) (string, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, key+ext)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
				continue
			}
			return "", fmt.Errorf("failed to stat config file '%s': %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		return path, nil
	}
	return "", nil
}

func (f *FileSource) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Removed between stat and open
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if f.MaxFileSize > 0 {
		// One extra byte distinguishes "exactly at limit" from "over limit"
		reader = io.LimitReader(file, f.MaxFileSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if f.MaxFileSize > 0 && int64(len(data)) > f.MaxFileSize {
		return nil, fmt.Errorf("%w: '%s' exceeds %d bytes", ErrFileTooLarge, path, f.MaxFileSize)
	}

	return data, nil
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// parseDocument decodes data in the given format into a normalized tree.
// Empty documents decode to an empty map.
func parseDocument(format string, data []byte) (map[string]any, error) {
	doc := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.UseNumber() // Preserve integer precision
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if doc == nil {
		// A YAML document consisting only of "~" or comments
		return make(map[string]any), nil
	}
	return normalize(doc).(map[string]any), nil
}
