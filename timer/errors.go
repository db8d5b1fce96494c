package timer

import "errors"

var (
	errAlreadyRunning = errors.New(
		"a session is already running: pause or stop it first",
	)

	errNotRunning = errors.New(
		"no session is currently running",
	)

	errNotIdle = errors.New(
		"presets can only be changed while the timer is idle",
	)
)
