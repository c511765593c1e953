package cutter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mipimipi/otr/internal/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartFileName(t *testing.T) {
	assert.Equal(t, "part-001-2.mkv", partFileName("/tmp/video.mkv", 1, 2))
	assert.Equal(t, "part-012-1.mp4", partFileName("/tmp/video.mp4", 12, 1))
}

func TestTailLines(t *testing.T) {
	assert.Equal(t, "a | b", tailLines("a\nb\n", 5))
	assert.Equal(t, "b | c", tailLines("a\nb\nc", 2))
	assert.Equal(t, "", tailLines("", 5))
}

func TestMkvmergeTime(t *testing.T) {
	ts := interval.TimestampFromSeconds(3661.5)
	assert.Equal(t, "01:01:01.500000", mkvmergeTime(ts))
}

func TestFrameSplitString(t *testing.T) {
	ivs := []interval.Interval[interval.Frame]{
		interval.NewFromTo(interval.Frame(10), interval.Frame(20)),
		interval.NewFromTo(interval.Frame(30), interval.Frame(40)),
	}
	assert.Equal(t, "parts-frames:10-20,+30-40", frameSplitString(ivs))
}

func TestTimeSplitString(t *testing.T) {
	ivs := []interval.Interval[interval.Timestamp]{
		interval.NewFromTo(interval.TimestampFromSeconds(0), interval.TimestampFromSeconds(1)),
	}
	assert.Equal(t, "parts:00:00:00.000000-00:00:01.000000", timeSplitString(ivs))
}

func TestConcatenateIntervalsSinglePart(t *testing.T) {
	dir := t.TempDir()
	partPath := filepath.Join(dir, "part-001-2.mkv")
	require.NoError(t, os.WriteFile(partPath, []byte("data"), 0o644))

	outPath := filepath.Join(dir, "out.mkv")
	require.NoError(t, concatenateIntervals(context.Background(), dir, outPath))

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
	_, err = os.Stat(partPath)
	assert.True(t, os.IsNotExist(err), "single part file should have been renamed away")
}

func TestConcatenateIntervalsNoParts(t *testing.T) {
	dir := t.TempDir()
	err := concatenateIntervals(context.Background(), dir, filepath.Join(dir, "out.mkv"))
	assert.ErrorIs(t, err, ErrNoParts)
}

func TestConcatenateIntervalsIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	err := concatenateIntervals(context.Background(), dir, filepath.Join(dir, "out.mkv"))
	assert.ErrorIs(t, err, ErrNoParts)
}

func TestNewWorkspaceCreatesUniqueDirs(t *testing.T) {
	cacheDir := t.TempDir()

	a, err := newWorkspace(cacheDir, "/videos/show.mkv")
	require.NoError(t, err)
	b, err := newWorkspace(cacheDir, "/videos/show.mkv")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "concurrent cut invocations must not collide on the same workspace")
	info, err := os.Stat(a)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
