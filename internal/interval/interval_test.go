package interval

import (
	"errors"
	"testing"
)

type fakeTable struct {
	fps    float64 // frames per second
	frames bool
}

func (t fakeTable) HasFrames() bool { return t.frames }

func (t fakeTable) FrameToTime(f Frame) (Timestamp, error) {
	if !t.frames {
		return 0, errors.New("no frames")
	}
	return TimestampFromSeconds(float64(f) / t.fps), nil
}

func (t fakeTable) TimeToFrame(ts Timestamp) (Frame, error) {
	if !t.frames {
		return 0, errors.New("no frames")
	}
	return Frame(uint64(ts.Float64() * t.fps)), nil
}

func TestParseFrame(t *testing.T) {
	cases := []struct {
		in   string
		want Frame
	}{
		{"0", 0},
		{"1234", 1234},
		{"-1234", 1234}, // absolute value taken
		{"45.9", 45},
	}
	for _, c := range cases {
		got, err := ParseFrame(c.in)
		if err != nil {
			t.Fatalf("ParseFrame(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseFrame(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseFrameInvalid(t *testing.T) {
	if _, err := ParseFrame("not-a-number"); err == nil {
		t.Fatal("expected error for non-numeric frame")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want Timestamp
	}{
		{"0:00:00", 0},
		{"0:00:01", 1_000_000},
		{"1:02:03", (1*3600 + 2*60 + 3) * 1_000_000},
		{"0:00:00.5", 500_000},
		{"0:00:00.000001", 1},
		{"23:59:59", (23*3600 + 59*60 + 59) * 1_000_000},
	}
	for _, c := range cases {
		got, err := ParseTimestamp(c.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseTimestamp(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseTimestampRejectsInvalid(t *testing.T) {
	invalid := []string{
		"24:00:00", // hours > 23
		"0:60:00",  // minutes > 59
		"0:00:60",  // seconds > 59
		"0:0:00",   // minutes not two digits
		"abc",
		"0:00:00.1234567", // more than six fractional digits
	}
	for _, s := range invalid {
		if _, err := ParseTimestamp(s); err == nil {
			t.Errorf("ParseTimestamp(%q): expected error, got none", s)
		}
	}
}

func TestNewFromToNormalizesOrder(t *testing.T) {
	iv := NewFromTo(Frame(100), Frame(10))
	if iv.From() != 10 || iv.To() != 100 {
		t.Fatalf("NewFromTo did not normalize order: from=%d to=%d", iv.From(), iv.To())
	}
}

func TestNewFromToAcceptsZeroLength(t *testing.T) {
	iv := NewFromTo(Frame(10), Frame(10))
	if !iv.IsEmpty() {
		t.Fatal("expected zero-length interval to report IsEmpty")
	}
}

func TestNewFromStartDuration(t *testing.T) {
	iv := NewFromStartDuration(Frame(10), Frame(5))
	if iv.From() != 10 || iv.To() != 15 {
		t.Fatalf("got [%d,%d], want [10,15]", iv.From(), iv.To())
	}
}

func TestParseFrameIntervals(t *testing.T) {
	got, err := ParseFrameIntervals("[123,45667][48345,679868]")
	if err != nil {
		t.Fatalf("ParseFrameIntervals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d intervals, want 2", len(got))
	}
	if got[0].From() != 123 || got[0].To() != 45667 {
		t.Errorf("first interval = %s, want [123,45667]", got[0])
	}
	if got[1].From() != 48345 || got[1].To() != 679868 {
		t.Errorf("second interval = %s, want [48345,679868]", got[1])
	}
}

func TestParseFrameIntervalsDropsZeroLength(t *testing.T) {
	got, err := ParseFrameIntervals("[10,10][20,30]")
	if err != nil {
		t.Fatalf("ParseFrameIntervals: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d intervals, want 1 (zero-length dropped)", len(got))
	}
	if got[0].From() != 20 || got[0].To() != 30 {
		t.Errorf("got %s, want [20,30]", got[0])
	}
}

func TestParseTimeIntervals(t *testing.T) {
	got, err := ParseTimeIntervals("[0:05:30,0:20:59.45]")
	if err != nil {
		t.Fatalf("ParseTimeIntervals: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d intervals, want 1", len(got))
	}
}

func TestParseBracketList(t *testing.T) {
	frames, times, err := ParseBracketList("frames:[1,2]")
	if err != nil {
		t.Fatalf("ParseBracketList: %v", err)
	}
	if len(frames) != 1 || times != nil {
		t.Fatalf("expected one frame interval and no time intervals, got frames=%v times=%v", frames, times)
	}

	frames, times, err = ParseBracketList("time:[0:00:01,0:00:02]")
	if err != nil {
		t.Fatalf("ParseBracketList: %v", err)
	}
	if len(times) != 1 || frames != nil {
		t.Fatalf("expected one time interval and no frame intervals, got frames=%v times=%v", frames, times)
	}

	if _, _, err := ParseBracketList("bogus:[1,2]"); err == nil {
		t.Fatal("expected error for unknown prefix")
	}
}

func TestToFramesAndToTimes(t *testing.T) {
	tbl := fakeTable{fps: 25, frames: true}

	timeIv := NewFromTo(Timestamp(0), TimestampFromSeconds(4))
	frameIv, err := ToFrames(timeIv, tbl)
	if err != nil {
		t.Fatalf("ToFrames: %v", err)
	}
	if frameIv.From() != 0 || frameIv.To() != 100 {
		t.Fatalf("ToFrames = %s, want [0,100]", frameIv)
	}

	back, err := ToTimes(frameIv, tbl)
	if err != nil {
		t.Fatalf("ToTimes: %v", err)
	}
	if back.From() != 0 {
		t.Errorf("ToTimes.From() = %v, want 0", back.From())
	}
}

func TestToFrameWithoutFramesFails(t *testing.T) {
	tbl := fakeTable{frames: false}
	_, err := Timestamp(1_000_000).ToFrame(tbl)
	if err == nil {
		t.Fatal("expected error converting time to frame when video has no frames")
	}
}

type keyFrameTable struct {
	keyFrames []Frame
}

func (k keyFrameTable) KeyFrameLE(f, limit Frame) (Frame, bool) {
	if f < limit {
		panic("KeyFrameLE: limit is above f")
	}
	var best Frame
	found := false
	for _, kf := range k.keyFrames {
		if kf <= f && kf >= limit {
			if !found || kf > best {
				best = kf
				found = true
			}
		}
	}
	return best, found
}

func (k keyFrameTable) KeyFrameGE(f, limit Frame) (Frame, bool) {
	if f > limit {
		panic("KeyFrameGE: limit is below f")
	}
	var best Frame
	found := false
	for _, kf := range k.keyFrames {
		if kf >= f && kf <= limit {
			if !found || kf < best {
				best = kf
				found = true
			}
		}
	}
	return best, found
}

func TestToKeyFrames(t *testing.T) {
	tbl := keyFrameTable{keyFrames: []Frame{0, 50, 100, 150}}
	iv := NewFromTo(Frame(10), Frame(140))

	got, ok := ToKeyFrames(iv, tbl)
	if !ok {
		t.Fatal("expected a key-frame-aligned interval")
	}
	if got.From() != 50 || got.To() != 100 {
		t.Fatalf("got %s, want [50,100]", got)
	}
}

func TestToKeyFramesNoneFound(t *testing.T) {
	tbl := keyFrameTable{keyFrames: []Frame{0, 1000}}
	iv := NewFromTo(Frame(10), Frame(20))

	if _, ok := ToKeyFrames(iv, tbl); ok {
		t.Fatal("expected no key-frame-aligned interval")
	}
}
