// Package version reports build metadata for agswitch.
package version

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Name is the binary name shown in version output.
const Name = "agswitch"

// Set with -ldflags "-X" at release time; empty values are resolved lazily.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

var (
	resolveOnce sync.Once

	// gitOutput runs git in the working directory and returns trimmed stdout.
	gitOutput = runGit
)

const gitTimeout = 2 * time.Second

func runGit(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to run git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func resolve() {
	resolveOnce.Do(func() {
		if Date == "" {
			Date = time.Now().Format(time.DateOnly)
		}
		if Commit == "" {
			Commit = firstNonEmpty(gitCommit(), vcsRevision(), "unknown")
		}
		if Version == "" {
			Version = gitTag()
		}
	})
}

func gitCommit() string {
	out, err := gitOutput("describe", "--always", "--dirty")
	if err != nil {
		return ""
	}
	return out
}

func gitTag() string {
	out, err := gitOutput("describe", "--tags", "--abbrev=0")
	if err != nil || out == "" {
		return "dev"
	}
	return strings.TrimPrefix(out, "v")
}

// vcsRevision reads the revision the toolchain stamped into the binary.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Reset forgets resolved values. Tests use it between cases.
func Reset() {
	resolveOnce = sync.Once{}
	Version, Commit, Date = "", "", ""
}

// GetVersion returns the release version, "dev" outside a tagged checkout.
func GetVersion() string {
	resolve()
	return Version
}

// GetCommit returns the commit the binary was built from.
func GetCommit() string {
	resolve()
	return Commit
}

// GetDate returns the build date.
func GetDate() string {
	resolve()
	return Date
}

// Info returns a one-line description of the build.
func Info() string {
	resolve()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s/%s)",
		Name, Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
