// Package process detects, stops and launches the target desktop app. It
// keeps no state between calls; every question is answered from a fresh
// process listing.
package process

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultKillGrace    = time.Second
)

// Controller is the lifecycle contract shared by every platform.
type Controller interface {
	IsRunning(ctx context.Context) bool
	Stop(ctx context.Context, timeout time.Duration) error
	Start(ctx context.Context) error
	LocateExecutable(ctx context.Context) (string, bool)
}

// Options configures a PlatformController. Zero fields use the real OS.
type Options struct {
	Lister       Lister
	Runner       Runner
	Getenv       func(string) string
	HomeDir      func() (string, error)
	Exists       func(path string) bool
	Platform     *Platform
	PollInterval time.Duration
	KillGrace    time.Duration
}

// PlatformController implements Controller from a Platform table.
type PlatformController struct {
	lister       Lister
	runner       Runner
	getenv       func(string) string
	homeDir      func() (string, error)
	exists       func(string) bool
	platform     Platform
	pollInterval time.Duration
	killGrace    time.Duration
	selfPID      int32
}

var _ Controller = (*PlatformController)(nil)

// New creates a controller for opts.Platform, or the build's platform.
func New(opts Options) *PlatformController {
	c := &PlatformController{
		lister:       opts.Lister,
		runner:       opts.Runner,
		getenv:       opts.Getenv,
		homeDir:      opts.HomeDir,
		exists:       opts.Exists,
		pollInterval: opts.PollInterval,
		killGrace:    opts.KillGrace,
		selfPID:      int32(os.Getpid()),
	}
	if opts.Platform != nil {
		c.platform = *opts.Platform
	} else {
		c.platform = CurrentPlatform()
	}
	if c.lister == nil {
		c.lister = SystemLister{}
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if c.getenv == nil {
		c.getenv = os.Getenv
	}
	if c.homeDir == nil {
		c.homeDir = os.UserHomeDir
	}
	if c.exists == nil {
		c.exists = fileExists
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.killGrace <= 0 {
		c.killGrace = defaultKillGrace
	}
	return c
}

// Platform returns the table this controller runs with.
func (c *PlatformController) Platform() Platform {
	return c.platform
}

// IsRunning reports whether any process matches the target app. A failed
// listing counts as not running.
func (c *PlatformController) IsRunning(ctx context.Context) bool {
	running, err := c.running(ctx)
	if err != nil {
		logger.Warn("failed to check target app", "error", err)
		return false
	}
	return running
}

func (c *PlatformController) running(ctx context.Context) (bool, error) {
	procs, err := c.lister.Processes(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		if p.PID != c.selfPID && c.platform.Match(p) {
			return true, nil
		}
	}
	return false, nil
}

// Stop asks the app to quit and waits up to timeout for it to go away. After
// the timeout it kills it once and gives it a short grace period. Stopping an
// app that is not running succeeds immediately. A failed process listing is
// an error: the app may still be running.
func (c *PlatformController) Stop(ctx context.Context, timeout time.Duration) error {
	running, err := c.running(ctx)
	if err != nil {
		return fmt.Errorf("failed to check target app: %w", err)
	}
	if !running {
		return nil
	}
	logger.Info("stopping target app", "platform", c.platform.Name, "timeout", timeout)

	// Exit status is ignored: the poll below decides
	c.runQuiet(ctx, c.platform.Quit)
	if err := sleep(ctx, c.platform.SettleDelay); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		running, err := c.running(ctx)
		if err != nil {
			return fmt.Errorf("failed to check target app: %w", err)
		}
		if !running {
			logger.Info("target app stopped")
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		if err := sleep(ctx, c.pollInterval); err != nil {
			return err
		}
	}

	logger.Warn("target app did not quit in time, killing it", "timeout", timeout)
	c.runQuiet(ctx, c.platform.Kill)
	if err := sleep(ctx, c.killGrace); err != nil {
		return err
	}
	running, err = c.running(ctx)
	if err != nil {
		return fmt.Errorf("failed to check target app: %w", err)
	}
	if running {
		return &StopTimeoutError{Timeout: timeout}
	}
	logger.Info("target app stopped after kill")
	return nil
}

// Start launches the target app. It does not check whether an instance is
// already running.
func (c *PlatformController) Start(ctx context.Context) error {
	argv := c.platform.Launch
	if len(argv) == 0 {
		return &LaunchError{Command: "(none)", Err: fmt.Errorf("no launch command for %s", c.platform.Name)}
	}
	logger.Info("starting target app", "command", strings.Join(argv, " "))

	switch c.platform.LaunchMode {
	case LaunchWait:
		out, err := c.runner.Run(ctx, argv[0], argv[1:]...)
		if err != nil {
			return &LaunchError{Command: strings.Join(argv, " "), Output: string(out), Err: err}
		}
	case LaunchSpawn:
		if err := c.runner.Spawn(argv[0], argv[1:]...); err != nil {
			return &LaunchError{Command: strings.Join(argv, " "), Err: err}
		}
	case LaunchSpawnOrLocate:
		err := c.runner.Spawn(argv[0], argv[1:]...)
		if err == nil {
			break
		}
		path, ok := c.standardLocation()
		if !ok {
			return &LaunchError{Command: strings.Join(argv, " "), Err: err}
		}
		logger.Debug("launch from PATH failed, using standard location", "path", path, "error", err)
		if err := c.runner.Spawn(path); err != nil {
			return &LaunchError{Command: path, Err: err}
		}
	default:
		return &LaunchError{Command: strings.Join(argv, " "), Err: fmt.Errorf("unknown launch mode %d", c.platform.LaunchMode)}
	}

	logger.Info("target app launch requested")
	return nil
}

// LocateExecutable prefers the executable of a running instance, then the
// first standard install location that exists.
func (c *PlatformController) LocateExecutable(ctx context.Context) (string, bool) {
	procs, err := c.lister.Processes(ctx)
	if err != nil {
		logger.Warn("failed to list processes", "error", err)
	}
	for _, p := range procs {
		if p.PID != c.selfPID && p.Exe != "" && c.platform.Match(p) {
			return p.Exe, true
		}
	}
	return c.standardLocation()
}

func (c *PlatformController) standardLocation() (string, bool) {
	if c.platform.Locations == nil {
		return "", false
	}
	home, err := c.homeDir()
	if err != nil {
		home = ""
	}
	for _, path := range c.platform.Locations(c.getenv, home) {
		if c.exists(path) {
			return path, true
		}
	}
	return "", false
}

func (c *PlatformController) runQuiet(ctx context.Context, argv []string) {
	if len(argv) == 0 {
		return
	}
	if out, err := c.runner.Run(ctx, argv[0], argv[1:]...); err != nil {
		logger.Debug("command failed", "command", strings.Join(argv, " "), "output", strings.TrimSpace(string(out)), "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
