package tomato

import "errors"

var (
	// ErrAuthRejected is returned when the router refuses the configured
	// credentials. Fatal for the scrape cycle.
	ErrAuthRejected = errors.New("tomato: authentication rejected")

	// ErrMalformedAuthResponse is returned when login succeeded at the
	// HTTP level but no session token could be located in the response
	// body. Usually an unsupported firmware build.
	ErrMalformedAuthResponse = errors.New("tomato: no session token in authentication response")

	// ErrUnauthorized is returned when a command is still rejected after
	// the session has been refreshed once.
	ErrUnauthorized = errors.New("tomato: session rejected as unauthorized")

	// ErrEmptyOutput is returned when a command executed but produced no
	// usable payload.
	ErrEmptyOutput = errors.New("tomato: command produced no output")
)
