package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
)

// ArtifactRoot is the absolute path to the artifact output directory.
// Must be set in TestMain before any tests run.
var ArtifactRoot string

// ArtifactTimestamp is the timestamp subdirectory for this test run.
var ArtifactTimestamp = time.Now().Format("2006-01-02T15-04-05")

var runDirOverride string

// SetRunDir overrides the artifact run directory (e.g. from E2E_ARTIFACT_DIR).
func SetRunDir(dir string) {
	runDirOverride = dir
}

// ArtifactRunDir returns the directory for the current test run.
func ArtifactRunDir() string {
	if runDirOverride != "" {
		return runDirOverride
	}
	return filepath.Join(ArtifactRoot, ArtifactTimestamp)
}

func artifactDir(t *testing.T) string {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "-")
	dir := filepath.Join(ArtifactRunDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Logf("warning: failed to create artifact dir: %v", err)
	}
	return dir
}

// CaptureArtifacts copies the state, status, settings, window script and
// log of a home into its artifact directory, plus a PASS or FAIL marker.
func CaptureArtifacts(t *testing.T, s *HomeState) {
	t.Helper()
	dir := s.ArtifactDir

	if t.Failed() {
		writeArtifact(t, dir, "FAIL", "")
	} else {
		writeArtifact(t, dir, "PASS", "")
	}

	for _, name := range []string{
		paths.StateFileName,
		paths.StatusFileName,
		paths.SettingsFileName,
		paths.HooksFileName,
		filepath.Base(s.Script),
		filepath.Join(paths.LogsDirName, paths.LogFileName),
	} {
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			continue
		}
		writeArtifact(t, dir, filepath.Base(name), string(data))
	}

	if os.Getenv("E2E_KEEP_HOMES") != "" {
		link := filepath.Join(dir, "home")
		if err := os.Symlink(s.Dir, link); err != nil {
			t.Logf("warning: failed to symlink home: %v", err)
		}
	}
}

func writeArtifact(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Logf("warning: failed to write artifact %s: %v", path, err)
	}
}
