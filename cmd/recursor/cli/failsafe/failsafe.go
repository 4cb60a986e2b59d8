// Package failsafe arms a detached check-idle run that brings the editor
// forward if a shell command never reports completion.
package failsafe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
)

// EnvVar is set to "1" in the environment of a spawned failsafe process.
const EnvVar = "RECURSOR_FAILSAFE"

// CheckIdleCommand is the subcommand a failsafe process runs.
const CheckIdleCommand = "check-idle"

// Spawner starts check-idle in a separate, detached process.
type Spawner struct {
	// Executable overrides os.Executable, mostly for tests.
	Executable string
	// ExtraEnv is appended to the inherited environment.
	ExtraEnv []string
}

// Schedule starts the failsafe for id and returns without waiting. The child
// sleeps delay itself.
func (s *Spawner) Schedule(ctx context.Context, id string, delay time.Duration) error {
	exe := s.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
	}

	cmd := exec.Command(exe, Args(id, delay)...) //nolint:gosec // our own binary with fixed args
	cmd.Env = append(os.Environ(), EnvVar+"=1")
	cmd.Env = append(cmd.Env, s.ExtraEnv...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start failsafe: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		logging.Debug(ctx, "failed to release failsafe process", slog.String("error", err.Error()))
	}
	logging.Debug(ctx, "failsafe scheduled",
		slog.Int("child_pid", pid),
		slog.Int64("delay_ms", delay.Milliseconds()),
	)
	return nil
}

// Args builds the check-idle argument list. The "--" keeps ids that start
// with a dash out of flag parsing.
func Args(id string, delay time.Duration) []string {
	return []string{CheckIdleCommand, "--delay", strconv.Itoa(Seconds(delay)), "--", id}
}

// Seconds rounds delay up to whole seconds, minimum 1.
func Seconds(delay time.Duration) int {
	secs := int((delay + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Wait sleeps for d or until ctx is done. It reports whether the full
// duration elapsed.
func Wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// InFailsafe reports whether the current process was started by Schedule.
func InFailsafe() bool {
	return os.Getenv(EnvVar) == "1"
}
