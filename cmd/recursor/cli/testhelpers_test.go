package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/media"
	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

var (
	editorWin = window.Handle{PID: 10, WindowID: "10:1", AppName: "Cursor", Title: "main.go - recursor - Cursor"}
	slackWin  = window.Handle{PID: 20, WindowID: "20:1", AppName: "Slack", Title: "general"}
)

type scheduledRun struct {
	id    string
	delay time.Duration
}

// recordingScheduler stands in for the detached failsafe process, which
// would otherwise re-exec the test binary.
type recordingScheduler struct {
	mu   sync.Mutex
	runs []scheduledRun
}

func (s *recordingScheduler) Schedule(_ context.Context, id string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, scheduledRun{id: id, delay: delay})
	return nil
}

// testEnv is a recursor home with a scripted desktop.
type testEnv struct {
	home      string
	script    string
	scheduler *recordingScheduler
	app       *app
}

// newTestEnv points recursor at a fresh home. It uses t.Setenv, so callers
// must not run in parallel.
func newTestEnv(t *testing.T, script window.Script) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv(paths.HomeEnvVar, home)
	t.Setenv("RECURSOR_MEDIA_CONTROL", "false")
	t.Setenv(TestTTYEnvVar, "0")

	scriptPath := filepath.Join(home, "windows.json")
	if err := window.WriteScript(scriptPath, &script); err != nil {
		t.Fatalf("write window script: %v", err)
	}

	sched := &recordingScheduler{}
	return &testEnv{
		home:      home,
		script:    scriptPath,
		scheduler: sched,
		app: &app{
			provider:  window.NewScriptedProvider(scriptPath),
			scheduler: sched,
			media:     media.Disabled{},
		},
	}
}

// run executes one recursor command with stdin and returns stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmdWithApp(e.app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(t, stdin, args...)
	if err != nil {
		t.Fatalf("recursor %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func (e *testEnv) readScript(t *testing.T) *window.Script {
	t.Helper()
	s, err := window.ReadScript(e.script)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (e *testEnv) conversations(t *testing.T) map[string]state.ConversationState {
	t.Helper()
	all, err := state.NewStore(filepath.Join(e.home, paths.StateFileName)).ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return all
}

func (e *testEnv) writeSettings(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.home, paths.SettingsFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func ptrTo(h window.Handle) *window.Handle { return &h }
