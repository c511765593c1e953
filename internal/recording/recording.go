// Package recording classifies and tracks OTR recordings as they move
// through the pipeline's three stages (spec §6, §4.7): Encoded (still
// OTRKEY-wrapped), Decoded (plaintext, uncut), and Cut (final output).
package recording

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Status is a recording's pipeline stage. Status is ordered
// Encoded < Decoded < Cut (spec §4.7 "sort by status descending").
type Status int

const (
	Encoded Status = iota
	Decoded
	Cut
)

func (s Status) String() string {
	switch s {
	case Encoded:
		return "Encoded"
	case Decoded:
		return "Decoded"
	case Cut:
		return "Cut"
	default:
		return "Unknown"
	}
}

// reUncut matches an encoded or decoded recording's file name: the key,
// a container extension, an optional quality marker, and an optional
// ".otrkey" suffix that marks it still encoded.
var reUncut = regexp.MustCompile(`^([^.]+_\d{2}\.\d{2}\.\d{2}_\d{2}-\d{2}_[^_]+_\d+_TVOON_DE)\.[^.]+(?P<fmt>\.(HQ|HD))?(?P<ext>\.[^.]+)(?P<encext>\.otrkey)?$`)

// reCut matches a cut recording's file name: the key followed by an
// arbitrary "....cut.EXT" suffix.
var reCut = regexp.MustCompile(`^([^.]+_\d{2}\.\d{2}\.\d{2}_\d{2}-\d{2}_[^_]+_\d+_TVOON_DE)\.(.*cut\..+)$`)

// Recording is one video file at some point in the pipeline, identified by
// a stable key shared across all three of its possible on-disk forms.
type Recording struct {
	path   string
	key    string
	status Status
}

// FromPath classifies path by file name, returning an error if it matches
// neither the cut nor the uncut recording grammar (spec §6 "Recording
// file-name grammar"). The cut pattern is tried first since a cut file can
// also incidentally match the uncut pattern.
func FromPath(path string) (*Recording, error) {
	name := filepath.Base(path)

	if m := reCut.FindStringSubmatch(name); m != nil {
		appendix := strings.NewReplacer("cut.", "", ".mpg", "").Replace("." + m[2])
		key := m[1]
		if !strings.HasPrefix(appendix, ".") {
			key += "."
		}
		key += appendix
		return &Recording{path: path, key: key, status: Cut}, nil
	}

	if m := reUncut.FindStringSubmatch(name); m != nil {
		names := reUncut.SubexpNames()
		group := func(n string) string {
			for i, nm := range names {
				if nm == n && i < len(m) {
					return m[i]
				}
			}
			return ""
		}
		key := m[1] + group("fmt") + group("ext")
		status := Decoded
		if group("encext") != "" {
			status = Encoded
		}
		return &Recording{path: path, key: key, status: status}, nil
	}

	return nil, fmt.Errorf("%q is not a valid recording file name", name)
}

// Key returns the recording's key, stable across all three of its forms.
func (r *Recording) Key() string { return r.key }

// Status returns the recording's pipeline stage.
func (r *Recording) Status() Status { return r.status }

// Path returns the recording's current on-disk path.
func (r *Recording) Path() string { return r.path }

// FileName returns the base name of the recording's current path.
func (r *Recording) FileName() string { return filepath.Base(r.path) }

// Less orders recordings by key ascending, then status descending (spec
// §4.7 step 1), so that for equal keys the most advanced recording sorts
// first — ready for DedupeByKey to keep just that one.
func (r *Recording) Less(other *Recording) bool {
	if r.key != other.key {
		return r.key < other.key
	}
	return r.status > other.status
}
