package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mipimipi/otr/internal/dirs"
	"github.com/mipimipi/otr/internal/log"
)

// stageDirKinds are scanned, in this order, when Collect falls back to
// directory scanning (spec §4.7 "or, if no path is supplied, from the four
// stage directories").
var stageDirKinds = []dirs.Kind{dirs.Root, dirs.Encoded, dirs.Decoded, dirs.Cut}

// Collect gathers recordings, preferring explicit paths over directory
// scanning, and returns them sorted by key ascending, status descending
// (spec §4.7 step 1). Every collected recording is moved into its
// corresponding stage directory first. A path that is not a valid
// recording file name is logged and skipped rather than failing the run.
func Collect(workingDir string, paths []string) ([]*Recording, error) {
	logger := log.WithComponent("recording")

	var recordings []*Recording

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("could not canonicalize path, skipping")
			continue
		}
		r, err := FromPath(abs)
		if err != nil {
			logger.Warn().Str("path", abs).Msg("not a valid recording file name, skipping")
			continue
		}
		moved, err := MoveToWorkingDir(workingDir, r)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, moved)
	}

	if len(recordings) == 0 {
		for _, kind := range stageDirKinds {
			found, err := collectFromDir(workingDir, kind)
			if err != nil {
				return nil, err
			}
			recordings = append(recordings, found...)
		}
	}

	sort.Slice(recordings, func(i, j int) bool { return recordings[i].Less(recordings[j]) })

	if len(recordings) == 0 {
		logger.Info().Msg("no recordings found")
	}

	return recordings, nil
}

func collectFromDir(workingDir string, kind dirs.Kind) ([]*Recording, error) {
	logger := log.WithComponent("recording")

	dir, err := dirs.Resolve(workingDir, kind)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read %s directory %q: %w", kind, dir, err)
	}

	var recordings []*Recording
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		r, err := FromPath(path)
		if err != nil {
			logger.Warn().Str("path", path).Msg("not a valid recording file name, skipping")
			continue
		}
		moved, err := MoveToWorkingDir(workingDir, r)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, moved)
	}
	return recordings, nil
}

// DedupeByKey removes duplicate keys from a slice already sorted by
// Recording.Less (key ascending, status descending), keeping
// the first (highest-status) recording per key (spec §4.7 step 2): a key
// that exists both Decoded and Cut keeps only the Cut record, the lower-
// status file is left untouched on disk.
func DedupeByKey(recordings []*Recording) []*Recording {
	deduped := make([]*Recording, 0, len(recordings))
	seen := make(map[string]bool, len(recordings))
	for _, r := range recordings {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		deduped = append(deduped, r)
	}
	return deduped
}

// move renames oldPath to newPath, creating newPath's parent directory if
// necessary.
func move(oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return err
	}
	return os.Rename(oldPath, newPath)
}

// Archive moves a stage-transition's predecessor file into Decoded/Archive/
// (spec §4.7 step 3: "move the predecessor file to the archive directory")
// and returns its new path.
func Archive(workingDir string, predecessor *Recording) (string, error) {
	archiveDir, err := dirs.Resolve(workingDir, dirs.Archive)
	if err != nil {
		return "", err
	}
	target := filepath.Join(archiveDir, predecessor.FileName())
	if err := move(predecessor.path, target); err != nil {
		return "", fmt.Errorf("could not archive %q: %w", predecessor.path, err)
	}
	return target, nil
}
