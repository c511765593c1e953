// Package metadata retrieves per-video stream and frame information needed
// by the cutting planner (spec §4.2): a frame/timestamp lookup table, a
// sorted key-frame list, and the list of audio/video streams.
//
// Metadata shells out to two external tools rather than linking against a
// media library: ffprobe for stream information and ffmsindex for the
// frame/timestamp/key-frame index. Both are invoked through os/exec, in the
// same style as the ffmpeg invocations in internal/cutter.
package metadata

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/mipimipi/otr/internal/interval"
	"github.com/mipimipi/otr/internal/log"
)

// StreamType classifies a media stream.
type StreamType string

const (
	StreamAudio   StreamType = "audio"
	StreamVideo   StreamType = "video"
	StreamUnknown StreamType = "unknown"
)

func parseStreamType(codecType string) StreamType {
	switch codecType {
	case "audio":
		return StreamAudio
	case "video":
		return StreamVideo
	default:
		return StreamUnknown
	}
}

// Stream describes one stream of the media container.
type Stream struct {
	Index int
	Type  StreamType
	Codec string // empty if ffprobe reported none
}

// Metadata holds the data needed to translate between frames and
// timestamps and to find key frames, for one video file.
type Metadata struct {
	streams   []Stream
	times     []interval.Timestamp // times[f] is the timestamp of frame f, ascending
	keyFrames []interval.Frame     // ascending
}

// ffms2 index file extensions, appended to the video's own path.
const (
	extIndex     = "ffindex"
	extTimes     = "ffindex_track00.tc.txt"
	extKeyFrames = "ffindex_track00.kf.txt"
)

// New retrieves metadata for a video by shelling out to ffprobe and
// ffmsindex. It returns an error if the video has neither an audio nor a
// video stream, mirroring otr-utils' Metadata::new.
func New(ctx context.Context, video string) (*Metadata, error) {
	logger := log.WithComponent("metadata")
	logger.Trace().Str("video", video).Msg("retrieving metadata")

	streams, err := probeStreams(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve stream metadata for %s: %w", video, err)
	}

	hasAudio, hasVideo := false, false
	for _, s := range streams {
		switch s.Type {
		case StreamAudio:
			hasAudio = true
		case StreamVideo:
			hasVideo = true
		}
	}
	if !hasAudio && !hasVideo {
		return nil, fmt.Errorf("%s has neither a video nor an audio stream", video)
	}

	times, keyFrames, err := retrieveIndexes(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve frame index for %s: %w", video, err)
	}

	logger.Trace().Str("video", video).Int("streams", len(streams)).Int("frames", len(times)).Msg("metadata retrieved")

	return &Metadata{streams: streams, times: times, keyFrames: keyFrames}, nil
}

// Streams returns the media's streams in ffprobe's reported order.
func (m *Metadata) Streams() []Stream {
	return m.streams
}

// HasFrames reports whether the video carries a frame index. Pure audio
// files may not.
func (m *Metadata) HasFrames() bool {
	return len(m.times) > 0
}

// FrameToTime implements interval.FrameTable.
func (m *Metadata) FrameToTime(f interval.Frame) (interval.Timestamp, error) {
	if int(f) >= len(m.times) {
		return 0, fmt.Errorf("video does not have a frame number %d", f)
	}
	return m.times[f], nil
}

// TimeToFrame implements interval.FrameTable. If there is no frame exactly
// at t, the first frame after t is returned, or the last frame if t lies
// past the end, matching the source's binary_search-with-fallback behavior.
func (m *Metadata) TimeToFrame(t interval.Timestamp) (interval.Frame, error) {
	if len(m.times) == 0 {
		return 0, fmt.Errorf("cannot determine frame number of time %s: video has no frames", t)
	}
	i := sort.Search(len(m.times), func(i int) bool { return m.times[i] >= t })
	if i == len(m.times) {
		i--
	}
	return interval.Frame(i), nil
}

// KeyFrameLE implements interval.KeyFrameTable: it returns the key frame
// kf with kf <= f and kf >= limit, preferring f itself if f is a key
// frame. It panics if limit > f, a contract violation by the caller
// (spec §4.2).
func (m *Metadata) KeyFrameLE(f, limit interval.Frame) (interval.Frame, bool) {
	if limit > f {
		panic("metadata: KeyFrameLE called with limit above f")
	}
	i := sort.Search(len(m.keyFrames), func(i int) bool { return m.keyFrames[i] >= f })
	if i < len(m.keyFrames) && m.keyFrames[i] == f {
		return f, true
	}
	if i > 0 && m.keyFrames[i-1] >= limit {
		return m.keyFrames[i-1], true
	}
	return 0, false
}

// KeyFrameGE implements interval.KeyFrameTable: it returns the key frame
// kf with kf >= f and kf <= limit, preferring f itself if f is a key
// frame. It panics if limit < f.
func (m *Metadata) KeyFrameGE(f, limit interval.Frame) (interval.Frame, bool) {
	if limit < f {
		panic("metadata: KeyFrameGE called with limit below f")
	}
	i := sort.Search(len(m.keyFrames), func(i int) bool { return m.keyFrames[i] >= f })
	if i < len(m.keyFrames) && m.keyFrames[i] == f {
		return f, true
	}
	if i < len(m.keyFrames) && m.keyFrames[i] <= limit {
		return m.keyFrames[i], true
	}
	return 0, false
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
}

func probeStreams(ctx context.Context, video string) ([]Stream, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-loglevel", "0",
		"-print_format", "json",
		"-show_streams",
		video,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("could not parse ffprobe output: %w", err)
	}

	streams := make([]Stream, 0, len(parsed.Streams))
	for _, s := range parsed.Streams {
		typ := parseStreamType(s.CodecType)
		if (typ == StreamAudio || typ == StreamVideo) && s.CodecName == "" {
			return nil, fmt.Errorf("stream %d has no codec assigned", s.Index)
		}
		streams = append(streams, Stream{Index: s.Index, Type: typ, Codec: s.CodecName})
	}
	return streams, nil
}

// retrieveIndexes runs ffmsindex to build the frame/timestamp and
// key-frame index files, reads them, and removes them before returning —
// mirroring the scopeguard-deferred cleanup of otr-utils' retrieve_indexes.
func retrieveIndexes(ctx context.Context, video string) (times []interval.Timestamp, keyFrames []interval.Frame, err error) {
	logger := log.WithComponent("metadata")

	indexPath := video + "." + extIndex
	timesPath := video + "." + extTimes
	keyFramesPath := video + "." + extKeyFrames

	defer func() {
		for _, p := range []string{indexPath, timesPath, keyFramesPath} {
			_ = os.Remove(p)
		}
		logger.Trace().Msg("removed ffms2 index files")
	}()

	cmd := exec.CommandContext(ctx, "ffmsindex", "-f", "-k", "-c", video)
	if combined, runErr := cmd.CombinedOutput(); runErr != nil {
		return nil, nil, fmt.Errorf("ffmsindex: %s: %w", string(combined), runErr)
	}

	times, err = readTimesIndex(timesPath)
	if err != nil {
		return nil, nil, err
	}
	keyFrames, err = readKeyFramesIndex(keyFramesPath)
	if err != nil {
		return nil, nil, err
	}
	return times, keyFrames, nil
}

func readTimesIndex(path string) ([]interval.Timestamp, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open times index %s: %w", path, err)
	}
	defer f.Close()

	var times []interval.Timestamp
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			// first line is a comment
			first = false
			continue
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		ms, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("could not convert %q into a timestamp: %w", line, err)
		}
		times = append(times, interval.TimestampFromSeconds(ms/1000.0))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

func readKeyFramesIndex(path string) ([]interval.Frame, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open key frames index %s: %w", path, err)
	}
	defer f.Close()

	var frames []interval.Frame
	scanner := bufio.NewScanner(f)
	skipped := 0
	for scanner.Scan() {
		if skipped < 2 {
			// first two lines are comments
			skipped++
			continue
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		fr, err := interval.ParseFrame(line)
		if err != nil {
			return nil, fmt.Errorf("could not convert %q into a frame number: %w", line, err)
		}
		frames = append(frames, fr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })
	return frames, nil
}
