package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// otrSubdir is the name of otr's subdirectory within the OS cache directory.
const otrSubdir = "OTR"

// CacheDir returns otr's per-user cache/temp directory, creating it if it
// does not yet exist. Cutting workspaces (internal/cutter) live here.
func CacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigDirUnavailable, err)
	}
	dir := filepath.Join(base, otrSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory %q: %w", dir, err)
	}
	return dir, nil
}

// FilePath returns the path of the JSON configuration file, without
// requiring it to exist.
func FilePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigDirUnavailable, err)
	}
	return filepath.Join(base, "otr", "otr.json"), nil
}
