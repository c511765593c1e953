// Package interval implements the typed interval algebra of spec §4.1:
// frame and timestamp boundaries, intervals over either, and the bracket
// string grammar used by the "cut" subcommand's --cutlist flag.
//
// Boundary is modeled as a small sealed interface (Frame | Timestamp) per
// the design note on polymorphic boundaries; FrameTable/KeyFrameTable are
// the narrow interfaces internal/metadata.Metadata satisfies, so this
// package never imports it (accept interfaces, return structs).
package interval

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// FrameTable is the subset of media metadata needed to convert between
// frame numbers and timestamps.
type FrameTable interface {
	FrameToTime(f Frame) (Timestamp, error)
	TimeToFrame(t Timestamp) (Frame, error)
	HasFrames() bool
}

// KeyFrameTable is the subset of media metadata needed for key-frame
// bounded lookups (spec §4.2).
type KeyFrameTable interface {
	KeyFrameLE(f, limit Frame) (Frame, bool)
	KeyFrameGE(f, limit Frame) (Frame, bool)
}

// Boundary is an interval endpoint: a Frame or a Timestamp.
type Boundary interface {
	ToFrame(tbl FrameTable) (Frame, error)
	ToTimestamp(tbl FrameTable) (Timestamp, error)
	Float64() float64
	String() string
}

// Frame is a non-negative index into a media file's frame sequence.
type Frame uint64

func (f Frame) String() string    { return strconv.FormatUint(uint64(f), 10) }
func (f Frame) Float64() float64  { return float64(f) }
func (f Frame) Add(d Frame) Frame { return f + d }

// Sub subtracts d from f. Callers must ensure f >= d; this mirrors the
// source's "non-negative results" invariant rather than enforcing it, since
// every call site in this repo only subtracts after checking ordering.
func (f Frame) Sub(d Frame) Frame { return f - d }

func (f Frame) ToFrame(FrameTable) (Frame, error) { return f, nil }

func (f Frame) ToTimestamp(tbl FrameTable) (Timestamp, error) {
	return tbl.FrameToTime(f)
}

// FrameFromFloat64 converts a floating-point frame number, taking the
// absolute value per spec §4.1 ("parsing from floating-point takes
// absolute value").
func FrameFromFloat64(f float64) Frame {
	return Frame(uint64(math.Abs(f)))
}

// ParseFrame parses a frame number string (plain integer or float text).
func ParseFrame(s string) (Frame, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse a frame number from %q: %w", s, err)
	}
	return FrameFromFloat64(f), nil
}

// Timestamp is a non-negative duration in microseconds.
type Timestamp uint64

// String renders the timestamp as seconds with six fractional digits.
func (t Timestamp) String() string {
	return strconv.FormatFloat(float64(t)/1e6, 'f', 6, 64)
}

func (t Timestamp) Float64() float64 { return float64(t) / 1e6 }

func (t Timestamp) Add(d Timestamp) Timestamp { return t + d }
func (t Timestamp) Sub(d Timestamp) Timestamp { return t - d }

func (t Timestamp) ToTimestamp(FrameTable) (Timestamp, error) { return t, nil }

func (t Timestamp) ToFrame(tbl FrameTable) (Frame, error) {
	if !tbl.HasFrames() {
		return 0, fmt.Errorf("cannot turn time boundary into frame boundary: video has no frames")
	}
	f, err := tbl.TimeToFrame(t)
	if err != nil {
		return 0, fmt.Errorf("cannot turn time boundary %s into frame boundary: %w", t, err)
	}
	return f, nil
}

// TimestampFromSeconds converts seconds (absolute value taken) to a
// Timestamp, rounding to the nearest microsecond per spec §4.1.
func TimestampFromSeconds(secs float64) Timestamp {
	return Timestamp(uint64(math.Round(math.Abs(secs) * 1e6)))
}

// reTime matches "H+:MM:SS[.ssssss]" — hours of any digit count, minutes
// and seconds exactly two digits each in [00,59], optional up to six
// fractional-second digits.
var reTime = regexp.MustCompile(`^(?P<hours>\d+):(?P<mins>[0-5]\d):(?P<secs>[0-5]\d)(\.(?P<subs>\d{1,6}))?$`)

// ParseTimestamp parses a time string per the strict grammar of spec §3:
// hours unbounded in digit count but numerically 0..23, minutes/seconds
// two digits each <= 59, optional sub-second part of at most six digits.
func ParseTimestamp(s string) (Timestamp, error) {
	m := reTime.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%q is not a valid time string", s)
	}
	names := reTime.SubexpNames()
	group := func(name string) string {
		for i, n := range names {
			if n == name {
				return m[i]
			}
		}
		return ""
	}

	hours, err := strconv.ParseFloat(group("hours"), 64)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("hours in %q are not valid", s)
	}
	mins, _ := strconv.ParseFloat(group("mins"), 64)
	secs, _ := strconv.ParseFloat(group("secs"), 64)

	var subs float64
	if subsStr := group("subs"); subsStr != "" {
		v, err := strconv.ParseFloat(subsStr, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse sub-seconds in %q: %w", s, err)
		}
		subs = v * math.Pow(10, -float64(len(subsStr)))
	}

	total := hours*3600 + mins*60 + secs + subs
	return TimestampFromSeconds(total), nil
}
