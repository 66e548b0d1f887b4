package volknob

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingAppName is returned when application mode is requested
	// without an application name.
	ErrMissingAppName = errors.New("application name is required in application mode")

	// ErrAppNotFound is returned when no running process matches the
	// requested application name.
	ErrAppNotFound = errors.New("no running process matches application name")

	// ErrAppNotPlaying is returned when the application's process exists
	// but owns no active audio client.
	ErrAppNotPlaying = errors.New("application has no active audio stream")

	// ErrUnsupportedOperation is returned for operations wpctl cannot
	// perform on the given sink kind (absolute get/set on process sinks).
	ErrUnsupportedOperation = errors.New("operation not supported for this sink")

	// ErrToolNotInstalled is returned when the wpctl executable can't be found.
	ErrToolNotInstalled = errors.New("wpctl executable not found")
)

// ParseError indicates wpctl ran successfully but its output didn't match
// the expected shape.
type ParseError struct {
	Output string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected wpctl output: %q", e.Output)
}

// ToolError indicates wpctl ran and failed. Diagnostic carries its captured
// stderr with known benign warnings already stripped.
type ToolError struct {
	Args       []string
	Diagnostic string
	Err        error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("wpctl %s failed", strings.Join(e.Args, " "))

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if e.Diagnostic != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Diagnostic)
	}

	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
