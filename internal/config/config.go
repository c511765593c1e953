// Package config loads otr's JSON configuration file. The file is optional:
// every field has a usable zero value, and callers are expected to let CLI
// flags override whatever the file provides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Decoding holds OTR account credentials used by the decoder's key-exchange
// protocol (spec §4.5).
type Decoding struct {
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
}

// Cutting holds defaults for cut-list selection and submission (spec §6).
type Cutting struct {
	MinCutlistRating     *uint8 `json:"min_cutlist_rating,omitempty"`
	CutlistRating        uint8  `json:"cutlist_rating,omitempty"`
	SubmitCutlists       bool   `json:"submit_cutlists,omitempty"`
	CutlistAtAccessToken string `json:"cutlist_at_access_token,omitempty"`
}

// Config is the full content of the JSON configuration file.
type Config struct {
	WorkingDir string   `json:"working_dir,omitempty"`
	Decoding   Decoding `json:"decoding,omitempty"`
	Cutting    Cutting  `json:"cutting,omitempty"`
}

var (
	once     sync.Once
	cfg      Config
	loadErr  error
	loadPath string
)

// Load reads and caches the configuration file. Subsequent calls return the
// cached result — the file is read exactly once per process, matching the
// source project's OnceCell-backed cfg_from_file. A missing file yields a
// zero-value Config and an error wrapping ErrNoConfigFile, which callers
// may ignore since every field defaults sensibly.
func Load() (Config, error) {
	once.Do(func() {
		path, err := FilePath()
		if err != nil {
			loadErr = err
			return
		}
		loadPath = path

		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				loadErr = fmt.Errorf("%w: %s", ErrNoConfigFile, path)
				return
			}
			loadErr = fmt.Errorf("open configuration file %q: %w", path, err)
			return
		}
		defer f.Close()

		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			loadErr = fmt.Errorf("parse configuration file %q: %w", path, err)
		}
	})
	return cfg, loadErr
}

// Path returns the path Load resolved the configuration file to, once Load
// has run. Empty before the first Load call.
func Path() string {
	return loadPath
}
