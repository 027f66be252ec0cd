package oauth

import (
	"errors"
	"fmt"
)

// ErrFlowInProgress is returned when Run is called while another
// authorization is still waiting for its callback.
var ErrFlowInProgress = errors.New("oauth flow already in progress")

// BindError means the callback address could not be bound.
type BindError struct {
	Err  error
	Addr string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind oauth callback on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// LaunchError means the browser could not be opened on the authorization URL.
type LaunchError struct {
	Err error
	URL string
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to open browser: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// CallbackParseError means the callback request carried no usable code.
type CallbackParseError struct {
	Err    error
	Reason string
}

func (e *CallbackParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code not found in callback: %s: %v", e.Reason, e.Err)
	}
	return "code not found in callback: " + e.Reason
}

func (e *CallbackParseError) Unwrap() error { return e.Err }

// ExchangeError means the token endpoint rejected the code or was unreachable.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("failed to exchange authorization code: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }
