// Package cutlist models a cut list — the set of intervals to keep (or,
// equivalently, the complement of what to cut) for one recording — and its
// INI-shaped wire format (spec §4.3/§4.4).
//
// A Cutlist carries frame intervals, time intervals, or both; at least one
// of the two must be present. When both are present they must describe the
// same number of cuts, since a downstream consumer picks whichever kind
// the video's metadata can honor.
package cutlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mipimipi/otr/internal/interval"
)

// Kind distinguishes how a cut list's intervals are expressed.
type Kind string

const (
	KindFrames Kind = "frames"
	KindTimes  Kind = "times"
)

func parseKind(s string) (Kind, error) {
	switch s {
	case "frames":
		return KindFrames, nil
	case "times":
		return KindTimes, nil
	default:
		return "", fmt.Errorf("%q is not a valid cut list kind", s)
	}
}

// INI section/attribute names used by cutlist.at's wire format.
const (
	sectionGeneral = "General"
	sectionInfo    = "Info"
	sectionMeta    = "Meta"
	sectionCut     = "Cut"

	attrApplication     = "Application"
	attrVersion         = "Version"
	attrIntendedCutApp  = "IntendedCutApplicationName"
	attrApplyToFile     = "ApplyToFile"
	attrOrigFileSize    = "OriginalFileSizeBytes"
	attrNumOfCuts       = "NoOfCuts"
	attrCutlistID       = "CutlistId"
	attrRatingByAuthor  = "RatingByAuthor"
	attrTimeStart       = "Start"
	attrTimeDuration    = "Duration"
	attrFramesStart     = "StartFrame"
	attrFramesDuration  = "DurationFrames"
)

func attrStart(k Kind) string {
	if k == KindFrames {
		return attrFramesStart
	}
	return attrTimeStart
}

func attrDuration(k Kind) string {
	if k == KindFrames {
		return attrFramesDuration
	}
	return attrTimeDuration
}

// Cutlist is a set of cut intervals for one recording, optionally tagged
// with the provider ID it was retrieved under.
type Cutlist struct {
	ID             uint64
	HasID          bool
	FrameIntervals []interval.Interval[interval.Frame]
	TimeIntervals  []interval.Interval[interval.Timestamp]
}

// HasFrameIntervals reports whether the cut list carries frame intervals.
func (c *Cutlist) HasFrameIntervals() bool { return c.FrameIntervals != nil }

// HasTimeIntervals reports whether the cut list carries time intervals.
func (c *Cutlist) HasTimeIntervals() bool { return c.TimeIntervals != nil }

// Len returns the number of cuts (frame and time interval counts always
// agree once Validate has passed).
func (c *Cutlist) Len() int {
	if c.HasFrameIntervals() {
		return len(c.FrameIntervals)
	}
	if c.HasTimeIntervals() {
		return len(c.TimeIntervals)
	}
	return 0
}

// FromIntervalsString creates a cut list from the "frames:[a,b]..." or
// "time:[a,b]..." bracket grammar accepted by the "cut" subcommand's
// --cutlist flag (spec §4.3).
func FromIntervalsString(s string) (*Cutlist, error) {
	frames, times, err := interval.ParseBracketList(s)
	if err != nil {
		return nil, fmt.Errorf("could not create cut list from intervals string %q: %w", s, err)
	}

	cl := &Cutlist{}
	if frames != nil {
		cl.FrameIntervals = frames
	} else {
		cl.TimeIntervals = times
	}

	if err := cl.Validate(); err != nil {
		return nil, fmt.Errorf("%q does not represent a valid cut list: %w", s, err)
	}
	return cl, nil
}

// Validate checks that the cut list has at least one set of intervals,
// that frame and time interval counts agree when both are present, and
// that no interval overlaps the one before it (spec §4.3, resolving Design
// Notes Open Question 1: overlap is checked against the genuinely
// preceding interval, not a stale slot).
func (c *Cutlist) Validate() error {
	if !c.HasFrameIntervals() && !c.HasTimeIntervals() {
		return fmt.Errorf("cut list does not contain any intervals")
	}
	if c.HasFrameIntervals() && c.HasTimeIntervals() && len(c.FrameIntervals) != len(c.TimeIntervals) {
		return fmt.Errorf("cut list has both frame and time intervals, but their counts differ (%d vs %d)",
			len(c.FrameIntervals), len(c.TimeIntervals))
	}
	if c.HasFrameIntervals() {
		if err := validateOrder(c.FrameIntervals); err != nil {
			return fmt.Errorf("frame intervals of cut list are invalid: %w", err)
		}
	}
	if c.HasTimeIntervals() {
		if err := validateOrder(c.TimeIntervals); err != nil {
			return fmt.Errorf("time intervals of cut list are invalid: %w", err)
		}
	}
	return nil
}

func validateOrder[B interval.Boundary](ivs []interval.Interval[B]) error {
	var prev *interval.Interval[B]
	for i := range ivs {
		iv := ivs[i]
		if iv.From().Float64() > iv.To().Float64() {
			return fmt.Errorf("interval %s has from after to", iv)
		}
		if prev != nil && prev.To().Float64() > iv.From().Float64() {
			return fmt.Errorf("intervals overlap: %s and %s", *prev, iv)
		}
		prev = &ivs[i]
	}
	return nil
}

// ParseINI reads a cut list in cutlist.at's INI wire format. Cut 0 decides
// which of frame/time views the list carries (spec §4.3): every later cut
// that supplies a frame or time interval must match a view established at
// cut 0, or parsing fails.
func ParseINI(r io.Reader) (*Cutlist, error) {
	sections, err := parseINISections(r)
	if err != nil {
		return nil, fmt.Errorf("could not parse cut list as INI: %w", err)
	}

	cl := &Cutlist{}

	if meta, ok := sections[sectionMeta]; ok {
		if idStr, ok := meta[attrCutlistID]; ok {
			id, err := strconv.ParseUint(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cut list id %q does not have the correct format: %w", idStr, err)
			}
			cl.ID, cl.HasID = id, true
		}
	}

	general, ok := sections[sectionGeneral]
	if !ok {
		return nil, fmt.Errorf("could not find section %q in cut list", sectionGeneral)
	}
	numCutsStr, ok := general[attrNumOfCuts]
	if !ok {
		return nil, fmt.Errorf("could not find attribute %q in cut list", attrNumOfCuts)
	}
	numCuts, err := strconv.Atoi(numCutsStr)
	if err != nil {
		return nil, fmt.Errorf("could not parse attribute %q in cut list: %w", attrNumOfCuts, err)
	}

	for i := 0; i < numCuts; i++ {
		section, ok := sections[fmt.Sprintf("%s%d", sectionCut, i)]
		if !ok {
			return nil, fmt.Errorf("could not find section for cut no %d", i)
		}

		frameIv, frameOK, err := intervalFromSection[interval.Frame](section, KindFrames, interval.ParseFrame, i)
		if err != nil {
			return nil, err
		}
		if frameOK {
			if i == 0 || cl.HasFrameIntervals() {
				cl.FrameIntervals = append(cl.FrameIntervals, frameIv)
			} else {
				return nil, fmt.Errorf("cannot add frame interval to cut list since it had no frame intervals so far (cut no %d)", i)
			}
		}

		timeIv, timeOK, err := intervalFromSection[interval.Timestamp](section, KindTimes, parseINITimestamp, i)
		if err != nil {
			return nil, err
		}
		if timeOK {
			if i == 0 || cl.HasTimeIntervals() {
				cl.TimeIntervals = append(cl.TimeIntervals, timeIv)
			} else {
				return nil, fmt.Errorf("cannot add time interval to cut list since it had no time intervals so far (cut no %d)", i)
			}
		}
	}

	if err := cl.Validate(); err != nil {
		return nil, fmt.Errorf("INI data does not represent a valid cut list: %w", err)
	}
	return cl, nil
}

// parseINITimestamp parses a cut list's Start/Duration time value: a plain
// decimal number of seconds (e.g. "10.000000"), unlike the strict
// "H:MM:SS[.ssssss]" grammar ParseTimestamp enforces for the CLI's
// "cut --cutlist time:[...]" bracket syntax.
func parseINITimestamp(s string) (interval.Timestamp, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse a time value from %q: %w", s, err)
	}
	return interval.TimestampFromSeconds(secs), nil
}

// intervalFromSection reads a (start, duration) pair out of one "CutN"
// section and turns it into an interval, returning ok=false if the
// duration is zero (spec §9, Open Question 2: parsed zero-length
// intervals are always dropped).
func intervalFromSection[B interval.Boundary](section map[string]string, kind Kind, parse func(string) (B, error), cutNo int) (interval.Interval[B], bool, error) {
	startStr, ok := section[attrStart(kind)]
	if !ok {
		var zero interval.Interval[B]
		return zero, false, nil
	}
	durationStr, ok := section[attrDuration(kind)]
	if !ok {
		var zero interval.Interval[B]
		return zero, false, fmt.Errorf("could not find attribute %q for cut no %d", attrDuration(kind), cutNo)
	}

	start, err := parse(startStr)
	if err != nil {
		var zero interval.Interval[B]
		return zero, false, fmt.Errorf("could not parse start of cut no %d: %w", cutNo, err)
	}
	duration, err := parse(durationStr)
	if err != nil {
		var zero interval.Interval[B]
		return zero, false, fmt.Errorf("could not parse duration of cut no %d: %w", cutNo, err)
	}
	if duration.Float64() <= 0 {
		var zero interval.Interval[B]
		return zero, false, nil
	}
	return interval.NewFromStartDuration(start, duration), true, nil
}

// ToINI renders the cut list in cutlist.at's INI wire format for
// submission. videoName and videoSize populate the General section;
// rating populates Info/RatingByAuthor (spec §4.4).
func (c *Cutlist) ToINI(videoName string, videoSize int64, rating uint8) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s]\n", sectionGeneral)
	fmt.Fprintf(&b, "%s=otr\n", attrApplication)
	fmt.Fprintf(&b, "%s=1.0.0\n", attrVersion)
	fmt.Fprintf(&b, "%s=ffmpeg\n", attrIntendedCutApp)
	fmt.Fprintf(&b, "%s=%d\n", attrNumOfCuts, c.Len())
	fmt.Fprintf(&b, "%s=%s\n", attrApplyToFile, videoName)
	fmt.Fprintf(&b, "%s=%d\n", attrOrigFileSize, videoSize)
	b.WriteByte('\n')

	for i := 0; i < c.Len(); i++ {
		fmt.Fprintf(&b, "[%s%d]\n", sectionCut, i)
		if c.HasFrameIntervals() {
			iv := c.FrameIntervals[i]
			fmt.Fprintf(&b, "%s=%s\n", attrStart(KindFrames), iv.From())
			fmt.Fprintf(&b, "%s=%g\n", attrDuration(KindFrames), iv.Len())
		}
		if c.HasTimeIntervals() {
			iv := c.TimeIntervals[i]
			fmt.Fprintf(&b, "%s=%s\n", attrStart(KindTimes), iv.From())
			fmt.Fprintf(&b, "%s=%g\n", attrDuration(KindTimes), iv.Len())
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "[%s]\n", sectionInfo)
	fmt.Fprintf(&b, "%s=%d\n", attrRatingByAuthor, rating)

	return b.String()
}

// parseINISections is a minimal INI reader for the flat, single-level
// "[section]\nkey=value" shape cutlist.at uses. There is no suitable
// third-party INI library in the example corpus, so this is hand-rolled
// (documented as a stdlib choice in the design ledger).
func parseINISections(r io.Reader) (map[string]map[string]string, error) {
	sections := make(map[string]map[string]string)
	var current string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = line[1 : len(line)-1]
			if _, ok := sections[current]; !ok {
				sections[current] = make(map[string]string)
			}
			continue
		}
		if current == "" {
			return nil, fmt.Errorf("key=value pair %q outside of any section", line)
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		sections[current][strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return sections, scanner.Err()
}

// ReadFile loads and parses a cut list in cutlist.at's INI format from a
// local file.
func ReadFile(path string) (*Cutlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read cut list file %q: %w", path, err)
	}
	defer f.Close()

	cl, err := ParseINI(f)
	if err != nil {
		return nil, fmt.Errorf("%q does not contain a valid cut list: %w", path, err)
	}
	return cl, nil
}

// SortHeadersByRating is used by cutlistprovider to rank candidate cut
// lists ascending by rating, matching the source's Ord on ProviderHeader.
func SortHeadersByRating(headers []Header) {
	sort.SliceStable(headers, func(i, j int) bool { return headers[i].Rating < headers[j].Rating })
}

// Header describes one candidate cut list offered by a provider, before
// its full body has been fetched.
type Header struct {
	ID     uint64
	Rating float64
}
