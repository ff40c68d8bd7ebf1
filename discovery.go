// File: lixenwraith/layerconf/discovery.go
package layerconf

import (
	"os"
	"path/filepath"
	"strings"
)

// Subdirectory names of a configuration root.
const (
	DefaultsDirName  = "defaults"
	OverridesDirName = "overrides"
)

// DirDiscoveryOptions configures automatic discovery of the configuration root,
// the directory holding the defaults and overrides subdirectories.
type DirDiscoveryOptions struct {
	// Name of the application, used for XDG lookups
	Name string

	// Environment variable holding an explicit root
	EnvVar string

	// Custom search paths (in addition to defaults)
	Paths []string

	// Whether to search in XDG config directories
	UseXDG bool

	// Whether to search ./config
	UseCurrentDir bool
}

// DefaultDirDiscoveryOptions returns sensible defaults
func DefaultDirDiscoveryOptions(appName string) DirDiscoveryOptions {
	return DirDiscoveryOptions{
		Name:          appName,
		EnvVar:        strings.ToUpper(strings.ReplaceAll(appName, "-", "_")) + "_CONFIG_DIR",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// DiscoverRoot returns the first root that contains a defaults or overrides
// directory. An explicit root from EnvVar is returned even if it is empty.
func DiscoverRoot(opts DirDiscoveryOptions) (string, bool) {
	if opts.EnvVar != "" {
		if root := os.Getenv(opts.EnvVar); root != "" {
			return root, true
		}
	}

	var searchPaths []string
	searchPaths = append(searchPaths, opts.Paths...)

	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			searchPaths = append(searchPaths, filepath.Join(cwd, "config"))
		}
	}

	if opts.UseXDG && opts.Name != "" {
		searchPaths = append(searchPaths, getXDGConfigPaths(opts.Name)...)
	}

	for _, root := range searchPaths {
		if isDir(filepath.Join(root, DefaultsDirName)) || isDir(filepath.Join(root, OverridesDirName)) {
			return root, true
		}
	}

	return "", false
}

// WithDirDiscovery points both layers at the discovered root. When nothing is
// found the current paths are kept: running on env vars and schema defaults is valid.
func (b *Builder) WithDirDiscovery(opts DirDiscoveryOptions) *Builder {
	if root, ok := DiscoverRoot(opts); ok {
		b.opts.DefaultsPath = filepath.Join(root, DefaultsDirName)
		b.opts.OverridesPath = filepath.Join(root, OverridesDirName)
	}
	return b
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// getXDGConfigPaths returns XDG-compliant config search paths
func getXDGConfigPaths(appName string) []string {
	var paths []string

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}

	return paths
}
