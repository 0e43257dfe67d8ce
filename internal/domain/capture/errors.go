package capture

import "errors"

var (
	// ErrAlreadyRunning indicates a bulk job is already active.
	ErrAlreadyRunning = errors.New("bulk capture already running")
	// ErrNotRunning indicates there is no running bulk job to cancel.
	ErrNotRunning = errors.New("no bulk capture running")
	// ErrCaptureInFlight indicates a single capture is already in progress
	// for that website.
	ErrCaptureInFlight = errors.New("capture already in flight for website")
	// ErrUnknownWebsite indicates the target id is not in the registry.
	ErrUnknownWebsite = errors.New("website not found")
)
