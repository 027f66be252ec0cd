package process

import (
	"fmt"
	"strings"
	"time"
)

// StopTimeoutError means the target app was still running after the quit
// request, the timeout, and one forced kill.
type StopTimeoutError struct {
	Timeout time.Duration
}

func (e *StopTimeoutError) Error() string {
	return fmt.Sprintf("target app still running after %s and a forced kill", e.Timeout)
}

// LaunchError means the target app could not be started.
type LaunchError struct {
	Err     error
	Command string
	Output  string
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("failed to launch target app (%s): %v", e.Command, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *LaunchError) Unwrap() error { return e.Err }
