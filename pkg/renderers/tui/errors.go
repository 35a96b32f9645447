package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyRounds is returned by Edit when list growth never settles.
	ErrTooManyRounds = errors.New("tui: edit did not settle")
)
