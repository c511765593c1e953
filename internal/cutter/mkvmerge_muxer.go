package cutter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mipimipi/otr/internal/cutlist"
	"github.com/mipimipi/otr/internal/interval"
	"github.com/mipimipi/otr/internal/metadata"
)

// mkvmergeMuxer implements Muxer with a single mkvmerge invocation using
// its "--split parts[-frames]:" mode, grounded on
// otr-utils/src/cutting/mkvmerge.rs. Unlike ffmpegMuxer it performs no
// key-frame decomposition of its own — mkvmerge snaps split points to the
// nearest key frame internally — and needs no cutting workspace.
type mkvmergeMuxer struct{}

func newMkvmergeMuxer() *mkvmergeMuxer { return &mkvmergeMuxer{} }

func (m *mkvmergeMuxer) Name() string { return "mkvmerge" }

func (m *mkvmergeMuxer) IsInstalled(ctx context.Context) bool {
	return isInstalled(ctx, "mkvmerge", "-V")
}

func (m *mkvmergeMuxer) Cut(ctx context.Context, videoPath, outPath string, _ *metadata.Metadata, cl *cutlist.Cutlist) error {
	if cl.HasFrameIntervals() {
		if err := m.exec(ctx, videoPath, outPath, frameSplitString(cl.FrameIntervals)); err == nil {
			return nil
		}
	}
	if cl.HasTimeIntervals() {
		return m.exec(ctx, videoPath, outPath, timeSplitString(cl.TimeIntervals))
	}
	return ErrNoIntervals
}

func (m *mkvmergeMuxer) exec(ctx context.Context, videoPath, outPath, splitArg string) error {
	return run(ctx, "mkvmerge", "-o", outPath, "--split", splitArg, videoPath)
}

func frameSplitString(ivs []interval.Interval[interval.Frame]) string {
	var b strings.Builder
	b.WriteString("parts-frames:")
	for i, iv := range ivs {
		if i > 0 {
			b.WriteString(",+")
		}
		fmt.Fprintf(&b, "%s-%s", iv.From(), iv.To())
	}
	return b.String()
}

func timeSplitString(ivs []interval.Interval[interval.Timestamp]) string {
	var b strings.Builder
	b.WriteString("parts:")
	for i, iv := range ivs {
		if i > 0 {
			b.WriteString(",+")
		}
		fmt.Fprintf(&b, "%s-%s", mkvmergeTime(iv.From()), mkvmergeTime(iv.To()))
	}
	return b.String()
}

// mkvmergeTime renders a timestamp as mkvmerge's own "HH:MM:SS.ssssss"
// split-point syntax, distinct from interval.Timestamp.String()'s plain
// seconds rendering used for ffmpeg's "-ss".
func mkvmergeTime(t interval.Timestamp) string {
	micros := uint64(t)
	secs, subs := micros/1_000_000, micros%1_000_000
	hours, rest := secs/3600, secs%3600
	mins, rest := rest/60, rest%60
	return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, mins, rest, subs)
}
