package config

import "errors"

var (
	// ErrNoConfigFile classifies a missing configuration file. Callers treat
	// this as "no configuration available" rather than a hard failure, since
	// every field has a usable zero value.
	ErrNoConfigFile = errors.New("config: no configuration file found")

	// ErrConfigDirUnavailable classifies a platform that offers no standard
	// config directory (os.UserConfigDir returned an error).
	ErrConfigDirUnavailable = errors.New("config: could not determine configuration directory")
)
