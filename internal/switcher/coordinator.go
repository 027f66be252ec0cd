// Package switcher orchestrates an account switch: stop the app, swap the
// active credential, start the app again and refresh the new account's
// quota.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/credential"
	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/process"
	"github.com/j-veylop/antigravity-switcher/internal/quota"
)

const (
	defaultStopTimeout = 20 * time.Second
	eventBufferSize    = 100
	commandBufferSize  = 16
)

// AccountStore is the part of the account store the coordinator needs.
type AccountStore interface {
	List() []models.Account
	Get(id string) (models.Account, error)
	CurrentID() string
	SetCurrent(id string) error
	UpdateQuota(id string, q *models.Quota) error
}

// Recorder keeps switch and quota history. Failures are logged only.
type Recorder interface {
	RecordSwitch(rec *models.SwitchRecord) error
	RecordQuota(snapshot *models.QuotaSnapshot) error
}

// Deps are the coordinator's collaborators. Recorder is optional.
type Deps struct {
	Store       AccountStore
	Controller  process.Controller
	Credentials credential.Writer
	Fetcher     quota.Fetcher
	Recorder    Recorder
	Policy      quota.Policy
	StopTimeout time.Duration
}

// Result describes a completed switch.
type Result struct {
	// RefreshErr is set when the best-effort quota refresh failed.
	RefreshErr error
	Quota      *models.Quota
	FromID     string
	Account    models.Account
}

// Coordinator runs switches one at a time.
type Coordinator struct {
	deps     Deps
	events   chan Event
	commands chan Command
	mu       sync.Mutex
	now      func() time.Time
}

// New creates a coordinator.
func New(deps Deps) *Coordinator {
	if deps.StopTimeout <= 0 {
		deps.StopTimeout = defaultStopTimeout
	}
	if deps.Policy.Attempts <= 0 {
		deps.Policy = quota.DefaultPolicy()
	}
	return &Coordinator{
		deps:     deps,
		events:   make(chan Event, eventBufferSize),
		commands: make(chan Command, commandBufferSize),
		now:      time.Now,
	}
}

// Events returns the channel coordinator events are sent on.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Submit queues a command for Run without blocking.
func (c *Coordinator) Submit(cmd Command) error {
	select {
	case c.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run executes queued commands until ctx is done. A switch that has begun
// runs to completion even if ctx is cancelled meanwhile.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, cmd Command) {
	logger.Debug("handling command", "command", cmd.Type, "account", cmd.AccountID)

	var err error
	switch cmd.Type {
	case CmdSwitchNext:
		_, err = c.SwitchNext(context.WithoutCancel(ctx))
	case CmdSwitchTo:
		_, err = c.SwitchTo(context.WithoutCancel(ctx), cmd.AccountID)
	case CmdRefreshCurrent:
		_, err = c.RefreshCurrent(ctx)
	case CmdStartApp:
		err = c.StartApp(ctx)
	case CmdStopApp:
		err = c.StopApp(ctx)
	default:
		err = fmt.Errorf("unknown command %d", cmd.Type)
	}
	if err != nil {
		logger.Warn("command failed", "command", cmd.Type, "error", err)
	}
}

// SwitchNext switches to the account after the current one.
func (c *Coordinator) SwitchNext(ctx context.Context) (Result, error) {
	if !c.mu.TryLock() {
		return Result{}, ErrSwitchInProgress
	}
	defer c.mu.Unlock()

	target, err := NextAccount(c.deps.Store.List(), c.deps.Store.CurrentID())
	if err != nil {
		c.sendEvent(Event{Type: EventSwitchFailed, Stage: StageIdle, Err: err})
		return Result{}, err
	}
	return c.switchTo(ctx, target)
}

// SwitchTo switches to the account with the given ID.
func (c *Coordinator) SwitchTo(ctx context.Context, id string) (Result, error) {
	if !c.mu.TryLock() {
		return Result{}, ErrSwitchInProgress
	}
	defer c.mu.Unlock()

	target, err := c.deps.Store.Get(id)
	if err != nil {
		c.sendEvent(Event{Type: EventSwitchFailed, Stage: StageIdle, AccountID: id, Err: err})
		return Result{}, err
	}
	return c.switchTo(ctx, target)
}

func (c *Coordinator) switchTo(ctx context.Context, target models.Account) (Result, error) {
	res := Result{FromID: c.deps.Store.CurrentID(), Account: target}
	logger.Info("switching account", "from", res.FromID, "to", target.ID)
	c.sendEvent(Event{Type: EventSwitchStarted, AccountID: target.ID})

	c.enter(StageStopping, target.ID)
	if err := c.deps.Controller.Stop(ctx, c.deps.StopTimeout); err != nil {
		return res, c.fail(res, StageStopping, err)
	}

	c.enter(StageSwapping, target.ID)
	if err := c.deps.Credentials.Write(ctx, target); err != nil {
		return res, c.fail(res, StageSwapping, err)
	}
	if err := c.deps.Store.SetCurrent(target.ID); err != nil {
		c.restoreCredential(ctx, res.FromID)
		return res, c.fail(res, StageSwapping, err)
	}

	c.enter(StageStarting, target.ID)
	if err := c.deps.Controller.Start(ctx); err != nil {
		return res, c.fail(res, StageStarting, err)
	}

	c.enter(StageRefreshing, target.ID)
	res.Quota, res.RefreshErr = c.refresh(ctx, target.ID)

	c.record(&models.SwitchRecord{
		Timestamp: c.now(),
		FromID:    res.FromID,
		ToID:      target.ID,
		ToEmail:   target.Email,
		Success:   true,
	})
	logger.Info("account switched", "account", target.ID, "email", target.Email)
	c.sendEvent(Event{Type: EventAccountSwitched, AccountID: target.ID, Quota: res.Quota, Err: res.RefreshErr, Stage: StageDone})
	return res, nil
}

// restoreCredential writes the previous account back after the store refused
// the new one, so the app and the store agree on who is active.
func (c *Coordinator) restoreCredential(ctx context.Context, fromID string) {
	if fromID == "" {
		return
	}
	prev, err := c.deps.Store.Get(fromID)
	if err != nil {
		logger.Error("failed to restore previous credential", "account", fromID, "error", err)
		return
	}
	if err := c.deps.Credentials.Write(ctx, prev); err != nil {
		logger.Error("failed to restore previous credential", "account", fromID, "error", err)
	}
}

func (c *Coordinator) enter(stage Stage, accountID string) {
	logger.Debug("switch stage", "stage", stage, "account", accountID)
	c.sendEvent(Event{Type: EventStageChanged, Stage: stage, AccountID: accountID})
}

func (c *Coordinator) fail(res Result, stage Stage, err error) error {
	serr := &StageError{Stage: stage, Err: err}
	logger.Error("switch failed", "stage", stage, "account", res.Account.ID, "error", err)
	c.record(&models.SwitchRecord{
		Timestamp: c.now(),
		FromID:    res.FromID,
		ToID:      res.Account.ID,
		ToEmail:   res.Account.Email,
		Stage:     stage.String(),
		Error:     err.Error(),
	})
	c.sendEvent(Event{Type: EventSwitchFailed, Stage: stage, AccountID: res.Account.ID, Err: serr})
	return serr
}

// RefreshCurrent fetches quota for the active account.
func (c *Coordinator) RefreshCurrent(ctx context.Context) (*models.Quota, error) {
	id := c.deps.Store.CurrentID()
	if id == "" {
		err := errors.New("no active account")
		c.sendEvent(Event{Type: EventQuotaFailed, Err: err})
		return nil, err
	}

	c.sendEvent(Event{Type: EventRefreshRequested, AccountID: id})
	return c.refresh(ctx, id)
}

// refresh fetches and stores quota for id, emitting the outcome.
func (c *Coordinator) refresh(ctx context.Context, id string) (*models.Quota, error) {
	// re-read so a token refreshed during the switch is used
	account, err := c.deps.Store.Get(id)
	if err != nil {
		c.sendEvent(Event{Type: EventQuotaFailed, AccountID: id, Err: err})
		return nil, err
	}

	q, err := quota.FetchWithRetry(ctx, c.deps.Fetcher, &account, c.deps.Policy)
	if err != nil {
		c.sendEvent(Event{Type: EventQuotaFailed, AccountID: id, Err: err})
		return nil, err
	}

	if err := c.deps.Store.UpdateQuota(id, q); err != nil {
		logger.Warn("failed to store quota", "account", id, "error", err)
	}
	if c.deps.Recorder != nil {
		account.Quota = q
		snapshot := models.SnapshotOf(&account)
		if err := c.deps.Recorder.RecordQuota(&snapshot); err != nil {
			logger.Warn("failed to record quota snapshot", "account", id, "error", err)
		}
	}

	c.sendEvent(Event{Type: EventQuotaRefreshed, AccountID: id, Quota: q})
	return q, nil
}

// StartApp starts the app, for example after a switch failed at StageStarting.
func (c *Coordinator) StartApp(ctx context.Context) error {
	if !c.mu.TryLock() {
		return ErrSwitchInProgress
	}
	defer c.mu.Unlock()

	if err := c.deps.Controller.Start(ctx); err != nil {
		c.sendEvent(Event{Type: EventAppFailed, Stage: StageStarting, Err: err})
		return err
	}
	c.sendEvent(Event{Type: EventAppStarted})
	return nil
}

// StopApp stops the app without switching.
func (c *Coordinator) StopApp(ctx context.Context) error {
	if !c.mu.TryLock() {
		return ErrSwitchInProgress
	}
	defer c.mu.Unlock()

	if err := c.deps.Controller.Stop(ctx, c.deps.StopTimeout); err != nil {
		c.sendEvent(Event{Type: EventAppFailed, Stage: StageStopping, Err: err})
		return err
	}
	c.sendEvent(Event{Type: EventAppStopped})
	return nil
}

func (c *Coordinator) record(rec *models.SwitchRecord) {
	if c.deps.Recorder == nil {
		return
	}
	if err := c.deps.Recorder.RecordSwitch(rec); err != nil {
		logger.Warn("failed to record switch", "error", err)
	}
}

// sendEvent sends without blocking, dropping the oldest event when full.
func (c *Coordinator) sendEvent(event Event) {
	select {
	case c.events <- event:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- event:
		default:
		}
	}
}
