package oauth

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// State is a step of the authorization flow.
type State int

// Flow states, in order.
const (
	StateIdle State = iota
	StateListenerBound
	StateBrowserOpened
	StateWaitingForCallback
	StateCodeReceived
	StateExchanging
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListenerBound:
		return "listener bound"
	case StateBrowserOpened:
		return "browser opened"
	case StateWaitingForCallback:
		return "waiting for callback"
	case StateCodeReceived:
		return "code received"
	case StateExchanging:
		return "exchanging"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Exchanger is the part of Client a Flow needs.
type Exchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.TokenData, error)
}

// Opener opens a URL in the user's browser.
type Opener func(url string) error

// Flow runs one authorization at a time.
type Flow struct {
	exchanger Exchanger
	open      Opener

	// OnState, when set, is called on every transition.
	OnState func(State)

	addr string
	mu   sync.Mutex
}

// NewFlow creates a flow that listens on addr. A nil opener uses the system
// browser.
func NewFlow(addr string, exchanger Exchanger, open Opener) *Flow {
	if open == nil {
		open = browser.OpenURL
	}
	return &Flow{addr: addr, exchanger: exchanger, open: open}
}

// Run binds the callback, opens the browser and blocks until the redirect
// arrives and the code is exchanged. Once the listener is bound there is no
// way to cancel the wait; ctx only bounds the exchange.
func (f *Flow) Run(ctx context.Context) (models.TokenData, error) {
	if !f.mu.TryLock() {
		return models.TokenData{}, ErrFlowInProgress
	}
	defer f.mu.Unlock()

	tok, err := f.run(ctx)
	if err != nil {
		f.transition(StateFailed)
		logger.Warn("oauth flow failed", "error", err)
		return models.TokenData{}, err
	}
	f.transition(StateComplete)
	return tok, nil
}

func (f *Flow) run(ctx context.Context) (models.TokenData, error) {
	ln, err := Listen(f.addr)
	if err != nil {
		return models.TokenData{}, err
	}
	defer func() {
		// Accept has already consumed the only connection we care about
		_ = ln.Close()
	}()
	f.transition(StateListenerBound)

	authURL := f.exchanger.AuthCodeURL(newState())
	if err := f.open(authURL); err != nil {
		return models.TokenData{}, &LaunchError{URL: authURL, Err: err}
	}
	f.transition(StateBrowserOpened)

	f.transition(StateWaitingForCallback)
	code, err := ln.Accept()
	if err != nil {
		return models.TokenData{}, err
	}
	f.transition(StateCodeReceived)

	f.transition(StateExchanging)
	return f.exchanger.Exchange(ctx, code)
}

func (f *Flow) transition(s State) {
	logger.Debug("oauth flow", "state", s.String())
	if f.OnState != nil {
		f.OnState(s)
	}
}

// newState returns a random state value. The callback does not check it.
func newState() string {
	return oauth2.GenerateVerifier()
}
