package cutter

import "errors"

var (
	// ErrNoIntervals classifies a cut list that has neither frame- nor
	// time-indexed intervals usable for the video at hand.
	ErrNoIntervals = errors.New("cutter: cut list has no usable intervals for this video")

	// ErrNoParts classifies a cutting workspace that ended up with zero
	// part files after extraction — concatenation has nothing to work with.
	ErrNoParts = errors.New("cutter: no interval part files were produced")

	// ErrToolFailed classifies a non-zero exit of an external media tool
	// (ffmpeg, mkvmerge).
	ErrToolFailed = errors.New("cutter: external media tool failed")

	// ErrNotInstalled classifies a muxer whose backing binary cannot be
	// located or invoked at all.
	ErrNotInstalled = errors.New("cutter: external media tool is not installed")
)
