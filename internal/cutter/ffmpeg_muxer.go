package cutter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mipimipi/otr/internal/cutlist"
	"github.com/mipimipi/otr/internal/interval"
	"github.com/mipimipi/otr/internal/log"
	"github.com/mipimipi/otr/internal/metadata"
)

// ffmpegMuxer implements Muxer by extracting each interval into its own
// part file (stream-copying the key-frame-aligned core, re-encoding any
// leading/trailing fragment that falls short of a key frame) and
// concatenating the parts, grounded on otr-utils' cutting/ffmpeg.rs.
type ffmpegMuxer struct {
	cacheDir string
}

func newFFmpegMuxer(cacheDir string) *ffmpegMuxer { return &ffmpegMuxer{cacheDir: cacheDir} }

func (m *ffmpegMuxer) Name() string { return "ffmpeg" }

func (m *ffmpegMuxer) IsInstalled(ctx context.Context) bool {
	return isInstalled(ctx, "ffmpeg", "-h")
}

// Cut tries frame-indexed intervals first (when the video has a frame
// index), then falls back to time-indexed intervals, matching spec §4.6's
// fall-back rule.
func (m *ffmpegMuxer) Cut(ctx context.Context, videoPath, outPath string, meta *metadata.Metadata, cl *cutlist.Cutlist) error {
	logger := log.WithComponent("cutter")

	if cl.HasFrameIntervals() && meta.HasFrames() {
		if err := m.cutWithIntervals(ctx, videoPath, outPath, meta, cl.FrameIntervals); err != nil {
			logger.Warn().Err(err).Str("video", videoPath).Msg("ffmpeg: could not cut with frame intervals")
		} else {
			return nil
		}
	}

	if cl.HasTimeIntervals() {
		if err := m.cutWithIntervals(ctx, videoPath, outPath, meta, cl.TimeIntervals); err != nil {
			logger.Warn().Err(err).Str("video", videoPath).Msg("ffmpeg: could not cut with time intervals")
			return err
		}
		return nil
	}

	return ErrNoIntervals
}

func (m *ffmpegMuxer) cutWithIntervals(ctx context.Context, videoPath, outPath string, meta *metadata.Metadata, ivs any) error {
	switch v := ivs.(type) {
	case []interval.Interval[interval.Frame]:
		return cutWithIntervalsOf(ctx, videoPath, outPath, m.cacheDir, meta, v)
	case []interval.Interval[interval.Timestamp]:
		return cutWithIntervalsOf(ctx, videoPath, outPath, m.cacheDir, meta, v)
	default:
		return fmt.Errorf("cutter: unsupported interval slice type %T", ivs)
	}
}

func cutWithIntervalsOf[B interval.Boundary](ctx context.Context, videoPath, outPath, cacheDir string, meta *metadata.Metadata, ivs []interval.Interval[B]) error {
	workDir, err := newWorkspace(cacheDir, videoPath)
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	for i, iv := range ivs {
		if err := extractInterval(ctx, videoPath, workDir, meta, iv, i+1); err != nil {
			return fmt.Errorf("could not extract interval %d (%s): %w", i+1, iv, err)
		}
	}

	return concatenateIntervals(ctx, workDir, outPath)
}

// extractInterval implements the Pre/Main/Post decomposition of spec §4.6.
func extractInterval[B interval.Boundary](ctx context.Context, videoPath, workDir string, meta *metadata.Metadata, iv interval.Interval[B], intervalNo int) error {
	if !meta.HasFrames() {
		times, err := interval.ToTimes(iv, meta)
		if err != nil {
			return err
		}
		return copyInterval(ctx, videoPath, workDir, times, intervalNo)
	}

	ivF, err := interval.ToFrames(iv, meta)
	if err != nil {
		return err
	}

	ivKF, ok := interval.ToKeyFrames(ivF, meta)
	if !ok {
		// No key frame lies within the interval: re-encode it whole.
		times, err := interval.ToTimes(ivF, meta)
		if err != nil {
			return err
		}
		return encodeInterval(ctx, videoPath, workDir, meta, times, intervalNo, 2)
	}

	if ivF.From() < ivKF.From() {
		pre := interval.NewFromTo(ivF.From(), ivKF.From().Sub(1))
		times, err := interval.ToTimes(pre, meta)
		if err != nil {
			return err
		}
		if err := encodeInterval(ctx, videoPath, workDir, meta, times, intervalNo, 1); err != nil {
			return err
		}
	}

	mainTimes, err := interval.ToTimes(ivKF, meta)
	if err != nil {
		return err
	}
	if err := copyInterval(ctx, videoPath, workDir, mainTimes, intervalNo); err != nil {
		return err
	}

	if ivF.To() > ivKF.To() {
		post := interval.NewFromTo(ivKF.To().Add(1), ivF.To())
		times, err := interval.ToTimes(post, meta)
		if err != nil {
			return err
		}
		if err := encodeInterval(ctx, videoPath, workDir, meta, times, intervalNo, 3); err != nil {
			return err
		}
	}

	return nil
}

// partFileName renders the "part-{NNN}-{S}.{ext}" name of spec §4.6.
func partFileName(videoPath string, intervalNo, segment int) string {
	ext := strings.TrimPrefix(filepath.Ext(videoPath), ".")
	return fmt.Sprintf("part-%03d-%d.%s", intervalNo, segment, ext)
}

func copyInterval(ctx context.Context, videoPath, workDir string, iv interval.Interval[interval.Timestamp], intervalNo int) error {
	out := filepath.Join(workDir, partFileName(videoPath, intervalNo, 2))
	return run(ctx, "ffmpeg",
		"-ss", iv.From().String(),
		"-t", strconv.FormatFloat(iv.Len(), 'f', 6, 64),
		"-i", videoPath,
		"-c", "copy",
		out,
	)
}

func encodeInterval(ctx context.Context, videoPath, workDir string, meta *metadata.Metadata, iv interval.Interval[interval.Timestamp], intervalNo, segment int) error {
	args := []string{
		"-ss", iv.From().String(),
		"-t", strconv.FormatFloat(iv.Len(), 'f', 6, 64),
		"-i", videoPath,
	}
	for _, stream := range meta.Streams() {
		args = append(args, fmt.Sprintf("-c:%d", stream.Index))
		if stream.Codec == "" {
			args = append(args, "copy")
		} else {
			args = append(args, stream.Codec)
		}
	}
	args = append(args, filepath.Join(workDir, partFileName(videoPath, intervalNo, segment)))

	return run(ctx, "ffmpeg", args...)
}

// reIntervalFileName matches the part files produced by copyInterval and
// encodeInterval.
var reIntervalFileName = regexp.MustCompile(`^part-\d{3}-\d\..*$`)

// concatenateIntervals gathers the part files of workDir in lexicographic
// order (which also sorts them by interval and segment number) and joins
// them into outPath: a single part is simply renamed, multiple parts are
// concatenated via ffmpeg's concat demuxer (spec §4.6 "workspace
// discipline").
func concatenateIntervals(ctx context.Context, workDir, outPath string) error {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return fmt.Errorf("could not read cutting workspace %q: %w", workDir, err)
	}

	var parts []string
	for _, e := range entries {
		if e.Type().IsRegular() && reIntervalFileName.MatchString(e.Name()) {
			parts = append(parts, e.Name())
		}
	}
	sort.Strings(parts)

	switch len(parts) {
	case 0:
		return ErrNoParts
	case 1:
		return os.Rename(filepath.Join(workDir, parts[0]), outPath)
	default:
		indexPath := filepath.Join(workDir, "index.txt")
		var b strings.Builder
		for _, p := range parts {
			fmt.Fprintf(&b, "file '%s'\n", p)
		}
		if err := os.WriteFile(indexPath, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("could not write concat index file: %w", err)
		}

		return run(ctx, "ffmpeg", "-f", "concat", "-safe", "0", "-i", indexPath, "-c", "copy", outPath)
	}
}
