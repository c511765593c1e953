// Package cutter implements the cutting planner (spec §4.6): given a
// decoded media file, its metadata, and a cut list, it produces the cut
// result file by driving an external media tool per interval.
//
// Two muxers are available: ffmpegMuxer extracts and concatenates one part
// file per interval, re-encoding only the fragments that fall short of a
// key frame; mkvmergeMuxer delegates the whole split to a single mkvmerge
// invocation (spec §4.6 supplement, grounded on
// otr-utils/src/cutting/mkvmerge.rs). ffmpeg is tried first; mkvmerge is
// the fall-back when ffmpeg is not installed or fails to cut the video.
package cutter

import (
	"context"
	"fmt"

	"github.com/mipimipi/otr/internal/cutlist"
	"github.com/mipimipi/otr/internal/log"
	"github.com/mipimipi/otr/internal/metadata"
)

// Muxer drives one external media tool to produce a cut result file.
type Muxer interface {
	Name() string
	IsInstalled(ctx context.Context) bool
	Cut(ctx context.Context, videoPath, outPath string, meta *metadata.Metadata, cl *cutlist.Cutlist) error
}

// Cutter cuts decoded videos according to a cut list, trying each of its
// muxers in order until one succeeds.
type Cutter struct {
	muxers []Muxer
}

// New returns a Cutter that tries ffmpeg before falling back to mkvmerge,
// using cacheDir (see internal/config.CacheDir) for ffmpeg's per-invocation
// cutting workspace.
func New(cacheDir string) *Cutter {
	return &Cutter{
		muxers: []Muxer{
			newFFmpegMuxer(cacheDir),
			newMkvmergeMuxer(),
		},
	}
}

// Cut retrieves videoPath's metadata and cuts it according to cl, writing
// the result to outPath.
func (c *Cutter) Cut(ctx context.Context, videoPath, outPath string, cl *cutlist.Cutlist) error {
	logger := log.WithComponent("cutter")

	if err := cl.Validate(); err != nil {
		return fmt.Errorf("cutter: cut list is invalid: %w", err)
	}

	meta, err := metadata.New(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("cutter: could not retrieve metadata for %s: %w", videoPath, err)
	}

	var lastErr error
	for _, m := range c.muxers {
		if !m.IsInstalled(ctx) {
			logger.Trace().Str("muxer", m.Name()).Msg("muxer not installed, skipping")
			continue
		}
		logger.Debug().Str("muxer", m.Name()).Str("video", videoPath).Msg("cutting video")
		if err := m.Cut(ctx, videoPath, outPath, meta, cl); err != nil {
			logger.Warn().Err(err).Str("muxer", m.Name()).Msg("muxer could not cut video")
			lastErr = err
			continue
		}
		logger.Info().Str("muxer", m.Name()).Str("video", videoPath).Msg("cut video successfully")
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: all muxers failed, last error: %v", ErrToolFailed, lastErr)
	}
	return fmt.Errorf("%w: no installed muxer could cut this video", ErrNotInstalled)
}
