package focus

import "errors"

var (
	// ErrSessionTooShort rejects a run shorter than MinSessionSeconds.
	// It is informational: nothing was persisted and nothing failed.
	ErrSessionTooShort = errors.New("focus session shorter than one minute")

	// ErrNoUser is returned by mutations attempted while signed out.
	ErrNoUser = errors.New("no user signed in")

	// ErrInvalidTransition is returned when the timer is asked to do
	// something its current state does not allow.
	ErrInvalidTransition = errors.New("invalid timer transition")

	// ErrClosed is returned by components used after Core.Close.
	ErrClosed = errors.New("focus core closed")
)
