package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
	"github.com/recursorhq/recursor/e2e/recursor"
)

// HomeState is one test's recursor home plus the scripted desktop every
// spawned process, the detached failsafe included, sees.
type HomeState struct {
	Dir         string
	Script      string
	ArtifactDir string
	ConsoleLog  *os.File
}

// Common windows used across scenarios.
var (
	Editor = window.Handle{PID: 100, WindowID: "100:1", AppName: "Cursor", Title: "main.go - recursor - Cursor"}
	Slack  = window.Handle{PID: 200, WindowID: "200:1", AppName: "Slack", Title: "general"}
	Chrome = window.Handle{PID: 300, WindowID: "300:1", AppName: "Google Chrome", Title: "Docs"}
)

// SetupHome creates a fresh recursor home whose desktop starts as script.
// Artifact capture is registered as a cleanup function.
//
// When E2E_KEEP_HOMES is set, the directory is left behind for inspection.
func SetupHome(t *testing.T, script window.Script) *HomeState {
	t.Helper()

	dir, err := os.MkdirTemp("", "e2e-recursor-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	if os.Getenv("E2E_KEEP_HOMES") != "" {
		t.Logf("E2E_KEEP_HOMES: home will be preserved at %s", dir)
	} else {
		t.Cleanup(func() { os.RemoveAll(dir) })
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	s := &HomeState{Dir: dir, Script: filepath.Join(dir, "windows.json")}
	s.SetDesktop(t, script)
	PatchSettings(t, dir, map[string]any{"log_level": "debug", "media_control": false})

	s.ArtifactDir = artifactDir(t)
	consoleLog, err := os.Create(filepath.Join(s.ArtifactDir, "console.log"))
	if err != nil {
		t.Fatalf("create console.log: %v", err)
	}
	s.ConsoleLog = consoleLog

	t.Cleanup(func() {
		_ = consoleLog.Close()
		CaptureArtifacts(t, s)
	})
	return s
}

// Env is the environment that pins recursor to this home and desktop.
func (s *HomeState) Env() recursor.Env {
	return recursor.Env{
		paths.HomeEnvVar + "=" + s.Dir,
		window.ScriptEnvVar + "=" + s.Script,
	}
}

// Hook runs one hook and records it in console.log.
func (s *HomeState) Hook(t *testing.T, verb, payload string) string {
	t.Helper()
	s.ConsoleLog.WriteString("> " + verb + " " + payload + "\n")
	out := recursor.Hook(t, s.Env(), verb, payload)
	s.ConsoleLog.WriteString(out + "\n")
	return out
}

// Run runs a recursor subcommand and records it in console.log.
func (s *HomeState) Run(t *testing.T, args ...string) string {
	t.Helper()
	s.ConsoleLog.WriteString("> recursor " + strings.Join(args, " ") + "\n")
	out := recursor.Run(t, s.Env(), args...)
	s.ConsoleLog.WriteString(out + "\n")
	return out
}

// SetDesktop replaces the scripted desktop.
func (s *HomeState) SetDesktop(t *testing.T, script window.Script) {
	t.Helper()
	if err := window.WriteScript(s.Script, &script); err != nil {
		t.Fatalf("write window script: %v", err)
	}
}

// Desktop reads the scripted desktop as recursor last left it.
func (s *HomeState) Desktop(t *testing.T) *window.Script {
	t.Helper()
	script, err := window.ReadScript(s.Script)
	if err != nil {
		t.Fatalf("read window script: %v", err)
	}
	return script
}

// PatchSettings merges extra keys into recursor.json under dir.
func PatchSettings(t *testing.T, dir string, extra map[string]any) {
	t.Helper()
	path := filepath.Join(dir, paths.SettingsFileName)
	settings := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &settings); err != nil {
			t.Fatalf("parse settings: %v", err)
		}
	}
	for k, v := range extra {
		settings[k] = v
	}
	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}
