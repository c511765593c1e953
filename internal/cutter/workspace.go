package cutter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// cuttingDirPrefix names the per-invocation workspace directory, mirroring
// the source project's "cutting-<file name>" convention but adding a UUID
// suffix so concurrent cut goroutines (spec §4.7's parallel cut fan-out)
// never collide on the same directory.
const cuttingDirPrefix = "cutting"

// newWorkspace creates a scoped temporary directory under cacheDir to hold
// an interval's part files (spec §4.6 "workspace discipline"). The caller
// must remove it on every exit path, including panics.
func newWorkspace(cacheDir, videoPath string) (string, error) {
	name := fmt.Sprintf("%s-%s-%s", cuttingDirPrefix, filepath.Base(videoPath), uuid.NewString())
	dir := filepath.Join(cacheDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create cutting workspace %q: %w", dir, err)
	}
	return dir, nil
}
