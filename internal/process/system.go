package process

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// Lister enumerates live processes.
type Lister interface {
	Processes(ctx context.Context) ([]models.ProcessInfo, error)
}

// Runner executes platform commands.
type Runner interface {
	// Run waits for the command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Spawn starts the command without waiting for it.
	Spawn(name string, args ...string) error
}

// SystemLister lists processes through gopsutil.
type SystemLister struct{}

// Processes returns every process whose name could be read. Processes that
// exit mid-scan or deny access to their exe are still listed with what is
// known.
func (SystemLister) Processes(ctx context.Context) ([]models.ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	infos := make([]models.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		exe, err := p.ExeWithContext(ctx)
		if err != nil {
			exe = ""
		}
		infos = append(infos, models.ProcessInfo{PID: p.Pid, Name: name, Exe: exe})
	}
	return infos, nil
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and waits for it.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Spawn starts the command detached from our lifetime. The child is reaped
// in the background.
func (ExecRunner) Spawn(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("spawned command exited", "command", name, "error", err)
		}
	}()
	return nil
}
