package recording

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mipimipi/otr/internal/dirs"
)

// statusDir maps a recording's status to its stage directory kind.
func statusDir(s Status) dirs.Kind {
	switch s {
	case Encoded:
		return dirs.Encoded
	case Decoded:
		return dirs.Decoded
	default:
		return dirs.Cut
	}
}

// DecodedFromEncoded derives the Recording that enc's decoded output will
// become: same key, Decoded status, located in the working directory's
// Decoded/ sub-directory, with the ".otrkey" suffix stripped from the file
// name (spec §4.7 "stage transitions").
func DecodedFromEncoded(workingDir string, enc *Recording) (*Recording, error) {
	if enc.status != Encoded {
		return nil, fmt.Errorf("recording: %s is not Encoded, cannot derive a Decoded recording from it", enc.FileName())
	}
	decodedDir, err := dirs.Resolve(workingDir, dirs.Decoded)
	if err != nil {
		return nil, err
	}
	fileName := strings.TrimSuffix(enc.FileName(), filepath.Ext(enc.FileName()))
	return &Recording{
		path:   filepath.Join(decodedDir, fileName),
		key:    enc.key,
		status: Decoded,
	}, nil
}

// CutFromDecoded derives the Recording that dec's cut output will become:
// same key, Cut status, located in the working directory's Cut/
// sub-directory, with a ".cut" component inserted before the extension
// (spec §4.7 "stage transitions").
func CutFromDecoded(workingDir string, dec *Recording) (*Recording, error) {
	if dec.status != Decoded {
		return nil, fmt.Errorf("recording: %s is not Decoded, cannot derive a Cut recording from it", dec.FileName())
	}
	cutDir, err := dirs.Resolve(workingDir, dirs.Cut)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(dec.FileName())
	base := strings.TrimSuffix(dec.FileName(), ext)
	fileName := base + ".cut" + ext
	return &Recording{
		path:   filepath.Join(cutDir, fileName),
		key:    dec.key,
		status: Cut,
	}, nil
}

// MoveToWorkingDir moves r's file into the working-directory sub-directory
// matching its status (spec §4.7's "newly discovered recordings are moved
// into their corresponding stage directory before processing"), returning
// a Recording with the adjusted path. A recording already in the right
// place is returned unchanged.
func MoveToWorkingDir(workingDir string, r *Recording) (*Recording, error) {
	targetDir, err := dirs.Resolve(workingDir, statusDir(r.status))
	if err != nil {
		return nil, err
	}
	targetPath := filepath.Join(targetDir, r.FileName())

	if filepath.Dir(r.path) == targetDir {
		return r, nil
	}

	if err := move(r.path, targetPath); err != nil {
		return nil, fmt.Errorf("could not move %q to working directory: %w", r.path, err)
	}

	return &Recording{path: targetPath, key: r.key, status: r.status}, nil
}
