//go:build e2e

package tests

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/recursorhq/recursor/e2e/recursor"
	"github.com/recursorhq/recursor/e2e/testutil"
)

func TestMain(m *testing.M) {
	runDir := os.Getenv("E2E_ARTIFACT_DIR")
	if runDir == "" {
		_, file, _, _ := runtime.Caller(0)
		testutil.ArtifactRoot = filepath.Join(filepath.Dir(file), "..", "artifacts")
		runDir = testutil.ArtifactRunDir()
	}
	_ = os.MkdirAll(runDir, 0o755)
	testutil.SetRunDir(runDir)

	// Resolve the recursor binary (builds from source if E2E_RECURSOR_BIN is unset).
	bin, err := recursor.BinPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "preflight: %v\n", err)
		os.Exit(1)
	}

	version := "unknown"
	if out, err := exec.Command(bin, "version").Output(); err == nil {
		version = string(out)
		_ = os.WriteFile(filepath.Join(runDir, "recursor-version.txt"), out, 0o644)
	}

	fmt.Fprintf(os.Stderr, "recursor binary:  %s\n", bin)
	fmt.Fprintf(os.Stderr, "recursor version: %s\n", version)
	fmt.Fprintf(os.Stderr, "artifact dir:     %s\n", runDir)

	os.Exit(m.Run())
}
