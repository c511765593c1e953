package cutlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromIntervalsStringFrames(t *testing.T) {
	cl, err := FromIntervalsString("frames:[100,200][300,400]")
	require.NoError(t, err)
	require.True(t, cl.HasFrameIntervals())
	assert.False(t, cl.HasTimeIntervals())
	assert.Equal(t, 2, cl.Len())
}

func TestFromIntervalsStringTimes(t *testing.T) {
	cl, err := FromIntervalsString("time:[0:00:10,0:00:20]")
	require.NoError(t, err)
	require.True(t, cl.HasTimeIntervals())
	assert.Equal(t, 1, cl.Len())
}

func TestFromIntervalsStringRejectsOverlap(t *testing.T) {
	_, err := FromIntervalsString("frames:[100,300][200,400]")
	assert.Error(t, err)
}

func TestFromIntervalsStringEmpty(t *testing.T) {
	_, err := FromIntervalsString("frames:")
	assert.Error(t, err)
}

const sampleINI = `[General]
Application=otr
Version=1.0.0
IntendedCutApplicationName=ffmpeg
NoOfCuts=2
ApplyToFile=example.avi
OriginalFileSizeBytes=1234

[Cut0]
Start=10.000000
Duration=5.000000
StartFrame=250
DurationFrames=125

[Cut1]
Start=30.000000
Duration=2.000000
StartFrame=750
DurationFrames=50

[Meta]
CutlistId=42

[Info]
RatingByAuthor=4
`

func TestParseINI(t *testing.T) {
	cl, err := ParseINI(strings.NewReader(sampleINI))
	require.NoError(t, err)

	assert.True(t, cl.HasID)
	assert.Equal(t, uint64(42), cl.ID)
	require.True(t, cl.HasFrameIntervals())
	require.True(t, cl.HasTimeIntervals())
	assert.Equal(t, 2, cl.Len())

	assert.Equal(t, 250, int(cl.FrameIntervals[0].From()))
	assert.Equal(t, 375, int(cl.FrameIntervals[0].To()))
}

func TestParseINIMissingSection(t *testing.T) {
	_, err := ParseINI(strings.NewReader("[Meta]\nCutlistId=1\n"))
	assert.Error(t, err)
}

func TestParseINIDropsZeroDurationCut(t *testing.T) {
	ini := `[General]
NoOfCuts=2
ApplyToFile=x.avi
OriginalFileSizeBytes=1

[Cut0]
Start=10.000000
Duration=5.000000

[Cut1]
Start=20.000000
Duration=0.000000
`
	cl, err := ParseINI(strings.NewReader(ini))
	require.NoError(t, err)
	require.True(t, cl.HasTimeIntervals())
	assert.Equal(t, 1, cl.Len())
}

func TestParseINITimeValuesAreDecimalSeconds(t *testing.T) {
	ini := `[General]
NoOfCuts=1
ApplyToFile=x.avi
OriginalFileSizeBytes=1

[Cut0]
Start=10.000000
Duration=5.000000
`
	cl, err := ParseINI(strings.NewReader(ini))
	require.NoError(t, err)
	require.True(t, cl.HasTimeIntervals())
	assert.InDelta(t, 10.0, cl.TimeIntervals[0].From().Float64(), 1e-6)
	assert.InDelta(t, 15.0, cl.TimeIntervals[0].To().Float64(), 1e-6)
}

func TestParseINIRejectsViewNotEstablishedAtCutZero(t *testing.T) {
	ini := `[General]
NoOfCuts=2
ApplyToFile=x.avi
OriginalFileSizeBytes=1

[Cut0]
StartFrame=100
DurationFrames=50

[Cut1]
Start=20.000000
Duration=5.000000
`
	_, err := ParseINI(strings.NewReader(ini))
	assert.Error(t, err, "cut 1 introduces a time interval that cut 0 never established")
}

func TestToINIRoundTrip(t *testing.T) {
	cl, err := FromIntervalsString("frames:[100,200]")
	require.NoError(t, err)

	ini := cl.ToINI("example.avi", 1234, 5)
	assert.Contains(t, ini, "NoOfCuts=1")
	assert.Contains(t, ini, "ApplyToFile=example.avi")
	assert.Contains(t, ini, "RatingByAuthor=5")

	reparsed, err := ParseINI(strings.NewReader(ini))
	require.NoError(t, err)
	require.True(t, reparsed.HasFrameIntervals())
	assert.Equal(t, cl.FrameIntervals[0].From(), reparsed.FrameIntervals[0].From())
}

func TestValidateRejectsMismatchedCounts(t *testing.T) {
	cl := &Cutlist{}
	fIv, err := FromIntervalsString("frames:[1,2][3,4]")
	require.NoError(t, err)
	tIv, err := FromIntervalsString("time:[0:00:01,0:00:02]")
	require.NoError(t, err)
	cl.FrameIntervals = fIv.FrameIntervals
	cl.TimeIntervals = tIv.TimeIntervals

	assert.Error(t, cl.Validate())
}

func TestSortHeadersByRating(t *testing.T) {
	headers := []Header{{ID: 1, Rating: 3}, {ID: 2, Rating: 1}, {ID: 3, Rating: 2}}
	SortHeadersByRating(headers)
	assert.Equal(t, []uint64{2, 3, 1}, []uint64{headers[0].ID, headers[1].ID, headers[2].ID})
}
