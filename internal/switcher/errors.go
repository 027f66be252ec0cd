package switcher

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAccounts is returned when there is nothing to switch to.
	ErrNoAccounts = errors.New("no accounts configured")
	// ErrSwitchInProgress rejects a second switch while one is running.
	ErrSwitchInProgress = errors.New("a switch is already in progress")
	// ErrQueueFull is returned by Submit when the command queue is full.
	ErrQueueFull = errors.New("command queue is full")
)

// StageError reports the stage at which a switch stopped.
type StageError struct {
	Err   error
	Stage Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("switch failed while %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
