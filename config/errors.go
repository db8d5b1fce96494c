package config

import "errors"

var (
	errUnknownPreset = errors.New("unknown preset")

	errInitFailed = errors.New(
		"unable to initialise flowtime settings from the configuration file",
	)

	errInvalidDuration = errors.New(
		"preset durations must be between 1 minute and 6 hours",
	)
)
