// Package recursor runs the recursor binary the way Cursor does: one process
// per hook, JSON on stdin, JSON on stdout.
package recursor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// BinEnvVar points at a prebuilt binary. When unset, BinPath builds one.
const BinEnvVar = "E2E_RECURSOR_BIN"

var (
	binOnce sync.Once
	binPath string
	binErr  error
)

// BinPath returns the binary under test, building it from source on first
// use when BinEnvVar is unset.
func BinPath() (string, error) {
	binOnce.Do(func() {
		if p := os.Getenv(BinEnvVar); p != "" {
			binPath = p
			return
		}
		_, file, _, _ := runtime.Caller(0)
		root := filepath.Join(filepath.Dir(file), "..", "..")
		dir, err := os.MkdirTemp("", "recursor-e2e-bin-")
		if err != nil {
			binErr = err
			return
		}
		out := filepath.Join(dir, "recursor")
		if runtime.GOOS == "windows" {
			out += ".exe"
		}
		cmd := exec.Command("go", "build", "-o", out, "./cmd/recursor")
		cmd.Dir = root
		if output, err := cmd.CombinedOutput(); err != nil {
			binErr = fmt.Errorf("build recursor: %w\n%s", err, output)
			return
		}
		binPath = out
	})
	return binPath, binErr
}

// Env is the process environment every invocation gets on top of the
// caller's.
type Env []string

// Hook runs a hook verb with payload on stdin and returns trimmed stdout.
func Hook(t *testing.T, env Env, verb, payload string) string {
	t.Helper()
	out, err := runStdin(env, payload, verb)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return out
}

// Run executes a subcommand and fails the test on error.
func Run(t *testing.T, env Env, args ...string) string {
	t.Helper()
	out, err := runStdin(env, "", args...)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return out
}

// RunErr executes a subcommand and returns its output and any error,
// for callers testing failure cases.
func RunErr(env Env, args ...string) (string, error) {
	return runStdin(env, "", args...)
}

func runStdin(env Env, stdin string, args ...string) (string, error) {
	bin, err := BinPath()
	if err != nil {
		return "", err
	}
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "RECURSOR_TEST_TTY=0")
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), &ExecError{
			Args:   args,
			Err:    err,
			Output: stdout.String() + stderr.String(),
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// ExecError wraps a recursor execution failure with its output.
type ExecError struct {
	Args   []string
	Err    error
	Output string
}

func (e *ExecError) Error() string {
	return "recursor " + strings.Join(e.Args, " ") + ": " + e.Err.Error() + "\n" + e.Output
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
