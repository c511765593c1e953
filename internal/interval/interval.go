package interval

import (
	"fmt"
	"regexp"
	"strings"
)

// Interval is a pair (from, to) of same-typed boundaries with from <= to.
type Interval[B Boundary] struct {
	from B
	to   B
}

// NewFromTo creates an interval from the two boundaries, swapping them if
// necessary so that From() <= To(). Accepts intervals of any length,
// including zero (spec §9 design note / Open Question 2).
func NewFromTo[B Boundary](from, to B) Interval[B] {
	if from.Float64() > to.Float64() {
		from, to = to, from
	}
	return Interval[B]{from: from, to: to}
}

// NewFromStartDuration creates an interval [start, start+duration].
// Like NewFromTo, it accepts any length including zero.
func NewFromStartDuration[B Boundary](start, duration B) Interval[B] {
	return Interval[B]{from: start, to: addBoundary(start, duration)}
}

func addBoundary[B Boundary](a, b B) B {
	switch va := any(a).(type) {
	case Frame:
		return any(va.Add(any(b).(Frame))).(B)
	case Timestamp:
		return any(va.Add(any(b).(Timestamp))).(B)
	default:
		panic("interval: unsupported boundary type")
	}
}

func (iv Interval[B]) From() B { return iv.from }
func (iv Interval[B]) To() B   { return iv.to }

// Len returns the interval's length in the boundary's native float64 unit
// (frames, or seconds for timestamps) — matching the source, which also
// reports length as f64 regardless of boundary kind.
func (iv Interval[B]) Len() float64 { return iv.to.Float64() - iv.from.Float64() }

func (iv Interval[B]) IsEmpty() bool { return iv.Len() == 0 }

func (iv Interval[B]) String() string {
	return fmt.Sprintf("[%s,%s]", iv.from, iv.to)
}

// ToFrames converts an interval to frame boundaries via tbl.
func ToFrames[B Boundary](iv Interval[B], tbl FrameTable) (Interval[Frame], error) {
	from, err := iv.from.ToFrame(tbl)
	if err != nil {
		return Interval[Frame]{}, fmt.Errorf("could not convert interval %s into frames: %w", iv, err)
	}
	to, err := iv.to.ToFrame(tbl)
	if err != nil {
		return Interval[Frame]{}, fmt.Errorf("could not convert interval %s into frames: %w", iv, err)
	}
	return Interval[Frame]{from: from, to: to}, nil
}

// ToTimes converts an interval to timestamp boundaries via tbl.
func ToTimes[B Boundary](iv Interval[B], tbl FrameTable) (Interval[Timestamp], error) {
	from, err := iv.from.ToTimestamp(tbl)
	if err != nil {
		return Interval[Timestamp]{}, fmt.Errorf("could not convert interval %s into times: %w", iv, err)
	}
	to, err := iv.to.ToTimestamp(tbl)
	if err != nil {
		return Interval[Timestamp]{}, fmt.Errorf("could not convert interval %s into times: %w", iv, err)
	}
	return Interval[Timestamp]{from: from, to: to}, nil
}

// ToKeyFrames returns the largest key-frame-aligned sub-interval
// [kfLeft,kfRight] with iv.From() <= kfLeft <= kfRight <= iv.To(), or false
// if no key frame lies within iv (spec §4.1).
func ToKeyFrames(iv Interval[Frame], tbl KeyFrameTable) (Interval[Frame], bool) {
	from, ok := tbl.KeyFrameGE(iv.from, iv.to)
	if !ok {
		return Interval[Frame]{}, false
	}
	to, ok := tbl.KeyFrameLE(iv.to, iv.from)
	if !ok {
		return Interval[Frame]{}, false
	}
	return Interval[Frame]{from: from, to: to}, true
}

var reInterval = regexp.MustCompile(`^\[([^\[\],]+),([^\[\],]+)\]$`)

func parseInterval[B Boundary](s string, parse func(string) (B, error)) (Interval[B], error) {
	m := reInterval.FindStringSubmatch(s)
	if m == nil {
		return Interval[B]{}, fmt.Errorf("%q is not a valid interval", s)
	}
	from, err := parse(m[1])
	if err != nil {
		return Interval[B]{}, err
	}
	to, err := parse(m[2])
	if err != nil {
		return Interval[B]{}, err
	}
	return NewFromTo(from, to), nil
}

var reIntervals = regexp.MustCompile(`^(\[[^\[\],]+,[^\[\],]+\])+$`)

// parseIntervalList parses "[a,b][c,d]...[y,z]" into a slice of intervals,
// dropping any zero-length interval (spec §9, Open Question 2: parsing
// always rejects empty intervals, unlike the builder constructors above).
func parseIntervalList[B Boundary](s string, parse func(string) (B, error)) ([]Interval[B], error) {
	if !reIntervals.MatchString(s) {
		return nil, fmt.Errorf("%q is not a valid list of intervals", s)
	}

	var out []Interval[B]
	for _, piece := range splitIntervalPieces(s) {
		iv, err := parseInterval(piece, parse)
		if err != nil {
			return nil, fmt.Errorf("could not convert %q into intervals: %w", piece, err)
		}
		if !iv.IsEmpty() {
			out = append(out, iv)
		}
	}
	return out, nil
}

// splitIntervalPieces splits "[a,b][c,d]" into ["[a,b]", "[c,d]"], mirroring
// Rust's split_inclusive(']').
func splitIntervalPieces(s string) []string {
	var pieces []string
	start := 0
	for i, r := range s {
		if r == ']' {
			pieces = append(pieces, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		pieces = append(pieces, s[start:])
	}
	return pieces
}

// ParseFrameIntervals parses a bracket list of frame intervals, e.g.
// "[123,45667][48345,679868]".
func ParseFrameIntervals(s string) ([]Interval[Frame], error) {
	return parseIntervalList(s, ParseFrame)
}

// ParseTimeIntervals parses a bracket list of time intervals, e.g.
// "[0:05:30,0:20:59.45]".
func ParseTimeIntervals(s string) ([]Interval[Timestamp], error) {
	return parseIntervalList(s, ParseTimestamp)
}

// ParseBracketList parses the CLI/cutlist "T:[a,b]..." grammar of spec
// §4.1, where T is "frames" or "time". Exactly one of the two return
// slices is non-nil.
func ParseBracketList(s string) (frames []Interval[Frame], times []Interval[Timestamp], err error) {
	switch {
	case strings.HasPrefix(s, "frames:"):
		frames, err = ParseFrameIntervals(strings.TrimPrefix(s, "frames:"))
	case strings.HasPrefix(s, "time:"):
		times, err = ParseTimeIntervals(strings.TrimPrefix(s, "time:"))
	default:
		err = fmt.Errorf("%q does not start with \"frames:\" or \"time:\"", s)
	}
	return frames, times, err
}
