// Command otr decodes and cuts OTR (Online TV Recorder) recordings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/mipimipi/otr/internal/config"
	"github.com/mipimipi/otr/internal/cutlist"
	"github.com/mipimipi/otr/internal/cutlistprovider"
	"github.com/mipimipi/otr/internal/cutter"
	"github.com/mipimipi/otr/internal/decoder"
	"github.com/mipimipi/otr/internal/log"
	"github.com/mipimipi/otr/internal/pipeline/driver"
	"github.com/mipimipi/otr/internal/recording"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "decode":
		err = runDecode(ctx, os.Args[2:])
	case "cut":
		err = runCut(ctx, os.Args[2:])
	case "process":
		err = runProcess(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "otr: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "otr: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: otr <command> [flags] [videos...]

commands:
  decode   decrypt an OTRKEY-encoded recording
  cut      cut a decoded recording according to a cut list
  process  decode and cut all recordings, from explicit paths or the working directories
`)
}

// verbosity implements flag.Value as a repeatable boolean counter, so
// "-v -v -v" raises the level three times (spec §6 "global verbosity").
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }
func (v *verbosity) Set(string) error {
	*v++
	return nil
}
func (v *verbosity) IsBoolFlag() bool { return true }

func addVerboseFlag(fs *flag.FlagSet) *verbosity {
	v := new(verbosity)
	fs.Var(v, "v", "increase verbosity (repeatable); default prints errors only")
	fs.Var(v, "verbose", "alias for -v")
	return v
}

func configureLogging(v int) {
	log.Configure(log.Config{Verbosity: v})
}

// loadConfig reads the JSON configuration file, tolerating its absence
// (every field has a usable zero value).
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		return cfg, fmt.Errorf("could not load configuration: %w", err)
	}
	return cfg, nil
}

func workingDir(cfg config.Config) (string, error) {
	if cfg.WorkingDir != "" {
		return cfg.WorkingDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine a default working directory: %w", err)
	}
	return filepath.Join(home, "Videos", "OTR"), nil
}

func credentialsFromFlags(cfg config.Config, user, password string) decoder.Credentials {
	creds := decoder.Credentials{User: cfg.Decoding.User, Password: cfg.Decoding.Password}
	if user != "" {
		creds.User = user
	}
	if password != "" {
		creds.Password = password
	}
	return creds
}

func newCutlistClient() *cutlistprovider.Client {
	return cutlistprovider.New(cutlistprovider.Options{})
}

func minRating(cfg config.Config) uint8 {
	if cfg.Cutting.MinCutlistRating != nil {
		return *cfg.Cutting.MinCutlistRating
	}
	return 0
}

func runDecode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	v := addVerboseFlag(fs)
	user := fs.String("u", "", "OTR user name (overrides the configuration file)")
	password := fs.String("p", "", "OTR password (overrides the configuration file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(int(*v))

	if fs.NArg() != 1 {
		return fmt.Errorf("decode requires exactly one video path")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	wd, err := workingDir(cfg)
	if err != nil {
		return err
	}

	enc, err := recording.FromPath(fs.Arg(0))
	if err != nil {
		return err
	}
	enc, err = recording.MoveToWorkingDir(wd, enc)
	if err != nil {
		return err
	}
	if enc.Status() != recording.Encoded {
		return fmt.Errorf("%s is not an encoded recording", enc.FileName())
	}

	dec, err := recording.DecodedFromEncoded(wd, enc)
	if err != nil {
		return err
	}

	creds := credentialsFromFlags(cfg, *user, *password)
	return decoder.Decode(ctx, enc.Path(), dec.Path(), creds)
}

func runCut(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cut", flag.ExitOnError)
	v := addVerboseFlag(fs)
	intervals := fs.String("cutlist", "", `cut list as an intervals string, e.g. "frames:[10,200]"`)
	file := fs.String("cutlist-file", "", "path to a cut list file in cutlist.at's INI format")
	id := fs.Uint64("cutlist-id", 0, "cutlist.at ID of a cut list to fetch")
	submit := fs.Bool("submit", false, "submit a manually supplied cut list back to cutlist.at")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(int(*v))

	if err := atMostOne(*intervals != "", *file != "", *id != 0); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("cut requires exactly one video path")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	wd, err := workingDir(cfg)
	if err != nil {
		return err
	}
	cacheDir, err := config.CacheDir()
	if err != nil {
		return err
	}

	dec, err := recording.FromPath(fs.Arg(0))
	if err != nil {
		return err
	}
	dec, err = recording.MoveToWorkingDir(wd, dec)
	if err != nil {
		return err
	}
	if dec.Status() != recording.Decoded {
		return fmt.Errorf("%s is not a decoded recording", dec.FileName())
	}

	cl, err := resolveCutlistFromFlags(ctx, cfg, dec, *intervals, *file, *id)
	if err != nil {
		return err
	}

	cutRec, err := recording.CutFromDecoded(wd, dec)
	if err != nil {
		return err
	}

	c := cutter.New(cacheDir)
	if err := c.Cut(ctx, dec.Path(), cutRec.Path(), cl); err != nil {
		return err
	}

	if _, err := recording.Archive(wd, dec); err != nil {
		return err
	}

	if *submit && *intervals != "" {
		return submitCutlist(ctx, cfg, cutRec, cl)
	}
	return nil
}

func atMostOne(flags ...bool) error {
	var n int
	for _, f := range flags {
		if f {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("only one of --cutlist, --cutlist-file, --cutlist-id may be given")
	}
	return nil
}

func resolveCutlistFromFlags(ctx context.Context, cfg config.Config, dec *recording.Recording, intervals, file string, id uint64) (*cutlist.Cutlist, error) {
	switch {
	case intervals != "":
		return cutlist.FromIntervalsString(intervals)

	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("could not open cut list file %q: %w", file, err)
		}
		defer f.Close()
		return cutlist.ParseINI(f)

	case id != 0:
		return newCutlistClient().ByID(ctx, id)

	default:
		client := newCutlistClient()
		headers, err := client.Headers(ctx, dec.FileName(), minRating(cfg))
		if err != nil {
			return nil, err
		}
		for i := len(headers) - 1; i >= 0; i-- {
			cl, err := client.ByID(ctx, headers[i].ID)
			if err != nil {
				continue
			}
			if err := cl.Validate(); err != nil {
				continue
			}
			return cl, nil
		}
		return nil, cutlistprovider.ErrNoCutlist
	}
}

func submitCutlist(ctx context.Context, cfg config.Config, cutRec *recording.Recording, cl *cutlist.Cutlist) error {
	if cfg.Cutting.CutlistAtAccessToken == "" {
		return fmt.Errorf("cannot submit cut list: no cutlist.at access token configured")
	}
	info, err := os.Stat(cutRec.Path())
	if err != nil {
		return err
	}
	ini := cl.ToINI(cutRec.FileName(), info.Size(), cfg.Cutting.CutlistRating)

	id, err := newCutlistClient().Submit(ctx, ini, cutRec.FileName(), cfg.Cutting.CutlistAtAccessToken)
	if err != nil {
		return err
	}
	log.WithComponent("cli").Info().Uint64("id", id).Msg("submitted cut list")
	return nil
}

func runProcess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	v := addVerboseFlag(fs)
	user := fs.String("u", "", "OTR user name (overrides the configuration file)")
	password := fs.String("p", "", "OTR password (overrides the configuration file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(int(*v))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	wd, err := workingDir(cfg)
	if err != nil {
		return err
	}
	cacheDir, err := config.CacheDir()
	if err != nil {
		return err
	}

	d := driver.New(driver.Options{
		WorkingDir:  wd,
		CacheDir:    cacheDir,
		Credentials: credentialsFromFlags(cfg, *user, *password),
		Provider:    newCutlistClient(),
		MinRating:   minRating(cfg),
	})

	results, runErr := d.Run(ctx, fs.Args())
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "otr: %s: %v\n", r.Key, r.Err)
		}
	}
	return runErr
}
