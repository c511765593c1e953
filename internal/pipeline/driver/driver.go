// Package driver implements the pipeline driver (spec §4.7): it collects
// recordings, decodes the encoded ones, then cuts the decoded ones, with
// per-recording error isolation so one bad file never aborts the batch.
//
// Supplement from original_source/src/main.rs's process_videos: decode
// runs sequentially across recordings (it is network/key-exchange rate
// sensitive), while cut fans out onto a bounded worker pool sized to
// runtime.NumCPU() (CPU/IO bound, independent per recording), mirroring
// main.rs's into_par_iter() over the cut stage only.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/mipimipi/otr/internal/cutlist"
	"github.com/mipimipi/otr/internal/cutlistprovider"
	"github.com/mipimipi/otr/internal/cutter"
	"github.com/mipimipi/otr/internal/decoder"
	"github.com/mipimipi/otr/internal/log"
	"github.com/mipimipi/otr/internal/recording"
	"golang.org/x/sync/errgroup"
)

// Options configures a Driver.
type Options struct {
	WorkingDir  string
	CacheDir    string
	Credentials decoder.Credentials

	// Provider resolves cut lists for the auto-select path. Nil disables
	// cutting entirely: every decoded recording fails with KindNoCutlist.
	Provider  *cutlistprovider.Client
	MinRating uint8
}

// Result carries one collected recording through the pipeline along with
// whatever error, if any, stopped its progress.
type Result struct {
	Key       string
	Recording *recording.Recording
	Err       error
}

// Driver runs the collect → decode → cut pipeline over a batch of
// recordings.
type Driver struct {
	opts   Options
	cutter *cutter.Cutter
}

// New builds a Driver. CacheDir backs the cutter's per-invocation cutting
// workspaces (internal/config.CacheDir).
func New(opts Options) *Driver {
	return &Driver{
		opts:   opts,
		cutter: cutter.New(opts.CacheDir),
	}
}

// Run collects recordings from paths (or, if empty, the working
// directory's stage directories), then decodes and cuts them. It returns
// one Result per surviving recording (after dedup) and a non-nil error
// iff at least one recording failed (spec §4.7 step 4).
func (d *Driver) Run(ctx context.Context, paths []string) ([]Result, error) {
	ctx = log.ContextWithRunID(ctx, uuid.NewString())
	logger := log.WithContext(ctx, log.WithComponent("pipeline"))

	recordings, err := recording.Collect(d.opts.WorkingDir, paths)
	if err != nil {
		return nil, fmt.Errorf("could not collect recordings: %w", err)
	}
	recordings = recording.DedupeByKey(recordings)

	results := make([]Result, len(recordings))
	for i, r := range recordings {
		results[i] = Result{Key: r.Key(), Recording: r}
	}

	// Stage 1: decode, sequential.
	for i, r := range recordings {
		if r.Status() != recording.Encoded {
			continue
		}
		dec, derr := d.decodeOne(ctx, r)
		if derr != nil {
			logger.Error().Err(derr).Str("key", r.Key()).Msg("could not decode recording")
			results[i].Err = derr
			continue
		}
		recordings[i] = dec
		results[i].Recording = dec
		logger.Info().Str("key", dec.Key()).Msg("decoded")
	}

	// Stage 2: cut, bounded fan-out.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range recordings {
		if results[i].Err != nil {
			continue
		}
		r := recordings[i]
		switch r.Status() {
		case recording.Cut:
			logger.Info().Str("key", r.Key()).Msg("already processed")
			continue
		case recording.Decoded:
			// proceed below
		default:
			continue
		}

		i, r := i, r
		g.Go(func() error {
			cut, cerr := d.cutOne(gctx, r)
			if cerr != nil {
				logger.Error().Err(cerr).Str("key", r.Key()).Msg("could not cut recording")
				results[i].Err = cerr
				return nil
			}
			results[i].Recording = cut
			logger.Info().Str("key", cut.Key()).Msg("cut")
			return nil
		})
	}
	_ = g.Wait() // per-recording errors are recorded in results, not propagated

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d recordings failed", failed, len(results))
	}
	return results, nil
}

func (d *Driver) decodeOne(ctx context.Context, enc *recording.Recording) (*recording.Recording, error) {
	dec, err := recording.DecodedFromEncoded(d.opts.WorkingDir, enc)
	if err != nil {
		return nil, &Error{Kind: KindOther, Op: "derive decoded recording", Key: enc.Key(), Err: err}
	}
	if err := decoder.Decode(ctx, enc.Path(), dec.Path(), d.opts.Credentials); err != nil {
		return nil, classifyDecodeErr(enc.Key(), err)
	}
	return dec, nil
}

func (d *Driver) cutOne(ctx context.Context, dec *recording.Recording) (*recording.Recording, error) {
	cl, err := d.resolveCutlist(ctx, dec)
	if err != nil {
		return nil, err
	}

	cutRec, err := recording.CutFromDecoded(d.opts.WorkingDir, dec)
	if err != nil {
		return nil, &Error{Kind: KindOther, Op: "derive cut recording", Key: dec.Key(), Err: err}
	}

	if err := d.cutter.Cut(ctx, dec.Path(), cutRec.Path(), cl); err != nil {
		return nil, &Error{Kind: KindIOExternal, Op: "cut", Key: dec.Key(), Err: err}
	}

	// The cutter leaves its input untouched; the driver retires it once the
	// cut succeeds (spec §4.7 step 3, §6 filesystem layout).
	if _, err := recording.Archive(d.opts.WorkingDir, dec); err != nil {
		return nil, &Error{Kind: KindIOExternal, Op: "archive decoded predecessor", Key: dec.Key(), Err: err}
	}

	return cutRec, nil
}

// resolveCutlist drives C4's auto-select candidate search: headers ordered
// ascending by rating, tried best-first, skipping any candidate that
// fails to fetch or validate (spec §7 "the auto-select cut-list path
// tries candidates in descending rating").
func (d *Driver) resolveCutlist(ctx context.Context, dec *recording.Recording) (*cutlist.Cutlist, error) {
	if d.opts.Provider == nil {
		return nil, &Error{Kind: KindNoCutlist, Op: "resolve cut list", Key: dec.Key(), Err: cutlistprovider.ErrNoCutlist}
	}

	headers, err := d.opts.Provider.Headers(ctx, dec.FileName(), d.opts.MinRating)
	if err != nil {
		return nil, classifyProviderErr(dec.Key(), "fetch cut list headers", err)
	}

	for i := len(headers) - 1; i >= 0; i-- {
		cl, err := d.opts.Provider.ByID(ctx, headers[i].ID)
		if err != nil {
			continue
		}
		if err := cl.Validate(); err != nil {
			continue
		}
		return cl, nil
	}

	return nil, &Error{Kind: KindNoCutlist, Op: "resolve cut list", Key: dec.Key(), Err: cutlistprovider.ErrNoCutlist}
}
