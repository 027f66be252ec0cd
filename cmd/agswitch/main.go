// Package main is the entry point for agswitch, the Antigravity account
// switcher. With no subcommand it runs the Bubble Tea TUI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"github.com/j-veylop/antigravity-switcher/internal/app"
	"github.com/j-veylop/antigravity-switcher/internal/config"
	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/process"
	"github.com/j-veylop/antigravity-switcher/internal/services"
	"github.com/j-veylop/antigravity-switcher/internal/switcher"
	"github.com/j-veylop/antigravity-switcher/internal/tray"
	"github.com/j-veylop/antigravity-switcher/internal/version"
)

const (
	loginTimeout = 5 * time.Minute
	probeTimeout = 5 * time.Second
)

type command struct {
	run   func(ctx context.Context, args []string) error
	name  string
	usage string
}

var errHelp = errors.New("help requested")

func commands() []command {
	return []command{
		{name: "tui", usage: "Run the interactive switcher (default)", run: runTUI},
		{name: "tray", usage: "Run the system tray icon", run: runTray},
		{name: "login", usage: "Add an account through the browser", run: runLogin},
		{name: "switch", usage: "Switch to the next account, or --to ID", run: runSwitch},
		{name: "start", usage: "Start Antigravity", run: runStart},
		{name: "stop", usage: "Stop Antigravity", run: runStop},
		{name: "status", usage: "Show accounts, quota and app state", run: runStatus},
		{name: "locate", usage: "Print the Antigravity executable path", run: runLocate},
		{name: "version", usage: "Show version information", run: runVersion},
		{name: "help", usage: "Show this help", run: runHelp},
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches to a subcommand, defaulting to the TUI.
func run(args []string) error {
	name, rest := splitCommand(args)
	switch name {
	case "-v", "--version":
		name = "version"
	case "-h", "--help":
		name = "help"
	}

	for _, c := range commands() {
		if c.name == name {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.run(ctx, rest)
		}
	}

	printUsage(os.Stderr)
	return fmt.Errorf("unknown command %q", name)
}

// splitCommand separates the subcommand name from its flags.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "tui", nil
	}
	first := args[0]
	if strings.HasPrefix(first, "-") && first != "-v" && first != "--version" && first != "-h" && first != "--help" {
		return "tui", args
	}
	return first, args[1:]
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// withManager loads configuration, points logging at the log file and runs
// fn with a started service manager.
func withManager(opts services.Options, fn func(*services.Manager) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	closer, err := logger.Setup(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	mgr, err := services.NewManagerWithOptions(cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	return fn(mgr)
}

func runTUI(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("tui"), args); err != nil {
		return err
	}

	return withManager(services.Options{}, func(mgr *services.Manager) error {
		p := tea.NewProgram(app.NewModel(mgr), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
}

func runTray(_ context.Context, args []string) error {
	if err := parseFlags(newFlagSet("tray"), args); err != nil {
		return err
	}
	return withManager(services.Options{}, tray.Run)
}

func runLogin(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("login"), args); err != nil {
		return err
	}

	return withManager(services.Options{}, func(mgr *services.Manager) error {
		ctx, cancel := context.WithTimeout(ctx, loginTimeout)
		defer cancel()

		fmt.Println("Opening the browser for Google sign-in...")
		account, err := mgr.Login(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", account.Email, account.ID)
		return nil
	})
}

func runSwitch(ctx context.Context, args []string) error {
	fs := newFlagSet("switch")
	to := fs.String("to", "", "account ID or email to switch to (default: next account)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withManager(services.Options{}, func(mgr *services.Manager) error {
		coord := mgr.Coordinator()

		var res switcher.Result
		var err error
		if *to == "" {
			res, err = coord.SwitchNext(ctx)
		} else {
			id, lookupErr := resolveAccount(mgr, *to)
			if lookupErr != nil {
				return lookupErr
			}
			res, err = coord.SwitchTo(ctx, id)
		}
		if err != nil {
			return err
		}
		if res.RefreshErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: quota refresh failed: %v\n", res.RefreshErr)
		}
		fmt.Printf("Switched to %s\n", res.Account.Email)
		return nil
	})
}

// resolveAccount accepts an account ID or email.
func resolveAccount(mgr *services.Manager, ref string) (string, error) {
	for _, a := range mgr.Accounts().List() {
		if a.ID == ref || strings.EqualFold(a.Email, ref) {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("no account matches %q", ref)
}

func runStart(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("start"), args); err != nil {
		return err
	}
	return withManager(services.Options{}, func(mgr *services.Manager) error {
		if err := mgr.Coordinator().StartApp(ctx); err != nil {
			return err
		}
		fmt.Println("Antigravity started")
		return nil
	})
}

func runStop(ctx context.Context, args []string) error {
	fs := newFlagSet("stop")
	timeout := fs.Duration("timeout", 0, "how long to wait before force killing (default from STOP_TIMEOUT)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withManager(services.Options{}, func(mgr *services.Manager) error {
		if *timeout > 0 {
			if err := mgr.Controller().Stop(ctx, *timeout); err != nil {
				return err
			}
		} else if err := mgr.Coordinator().StopApp(ctx); err != nil {
			return err
		}
		fmt.Println("Antigravity stopped")
		return nil
	})
}

func runStatus(ctx context.Context, args []string) error {
	fs := newFlagSet("status")
	asJSON := fs.Bool("json", false, "print machine readable JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withManager(services.Options{}, func(mgr *services.Manager) error {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		st := Status{
			AppRunning: mgr.AppRunning(probeCtx),
			Accounts:   mgr.GetAccountsWithQuota(),
		}
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		fmt.Println(renderStatus(st))
		return nil
	})
}

func runLocate(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("locate"), args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	path, ok := process.New(process.Options{}).LocateExecutable(ctx)
	if !ok {
		return errors.New("antigravity executable not found")
	}
	fmt.Println(path)
	return nil
}

func runVersion(_ context.Context, _ []string) error {
	fmt.Println(version.Info())
	return nil
}

func runHelp(_ context.Context, _ []string) error {
	printUsage(os.Stdout)
	return nil
}

// printUsage prints the command-line usage information.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, `agswitch - switch the account Antigravity is signed in with

Usage:
  agswitch [command] [flags]

Commands:`)
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w, `
Flags:
  switch --to ID      switch to a specific account (ID or email)
  stop --timeout 30s  wait this long before force killing
  status --json       print JSON

Environment Variables:
  ACCOUNTS_PATH           Accounts JSON file path
  DATABASE_PATH           History database path
  ANTIGRAVITY_STATE_DB    Antigravity state.vscdb path
  GOOGLE_CLIENT_ID        OAuth client ID
  GOOGLE_CLIENT_SECRET    OAuth client secret
  OAUTH_CALLBACK_ADDR     Loopback address for login (default: 127.0.0.1:8888)
  STOP_TIMEOUT            Graceful stop timeout (default: 20s)
  QUOTA_REFRESH_INTERVAL  Quota polling interval (default: 5m)
  LOG_LEVEL, LOG_PATH     Logging

Configuration:
  The first .env file found is loaded from:
  - Current directory
  - ~/.config/antigravity-switcher/.env
  - ~/.antigravity/.env`)
}
