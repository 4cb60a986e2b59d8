package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/settings"
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/status"
	"github.com/recursorhq/recursor/cmd/recursor/cli/validation"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

func editorWithSlackBehind() window.Script {
	return window.Script{
		Active:   ptrTo(editorWin),
		Previous: ptrTo(slackWin),
		Windows:  []window.Handle{editorWin, slackWin},
	}
}

func TestSaveThenRestore(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	out := env.mustRun(t, `{"conversation_id":"c1","prompt":"fix the tests"}`, "save")
	if out != "{\"continue\":true}\n" {
		t.Errorf("save output = %q", out)
	}

	if got := env.readScript(t).Active; got == nil || *got != slackWin {
		t.Fatalf("after save active = %v, want slack", got)
	}
	conv, ok := env.conversations(t)["c1"]
	if !ok {
		t.Fatal("save did not persist conversation c1")
	}
	if conv.SavedWindow != slackWin {
		t.Errorf("SavedWindow = %v, want slack", conv.SavedWindow)
	}
	if conv.EditorWindow == nil || *conv.EditorWindow != editorWin {
		t.Errorf("EditorWindow = %v, want editor", conv.EditorWindow)
	}

	out = env.mustRun(t, `{"conversation_id":"c1","status":"completed","loop_count":0}`, "restore")
	if out != "{}\n" {
		t.Errorf("restore output = %q", out)
	}
	if got := env.readScript(t).Active; got == nil || *got != editorWin {
		t.Errorf("after restore active = %v, want editor", got)
	}
	if _, ok := env.conversations(t)["c1"]; ok {
		t.Error("restore should forget c1")
	}
}

func TestSave_NoFocusFlag(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	env.mustRun(t, `{"conversation_id":"c1"}`, "save", "--no-focus")

	if got := env.readScript(t).Active; got == nil || *got != editorWin {
		t.Errorf("--no-focus moved focus to %v", got)
	}
	if _, ok := env.conversations(t)["c1"]; !ok {
		t.Error("--no-focus should still remember the window")
	}
}

func TestSave_MalformedInputUsesDefaultConversation(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	out := env.mustRun(t, `{not json`, "save")
	if out != "{\"continue\":true}\n" {
		t.Errorf("save output = %q", out)
	}
	if _, ok := env.conversations(t)["default"]; !ok {
		t.Error("malformed input should be saved under the default conversation")
	}
}

func TestSave_SessionIDFallback(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	env.mustRun(t, `{"session_id":"s-9"}`, "save", "--no-focus")

	if _, ok := env.conversations(t)["s-9"]; !ok {
		t.Errorf("conversations = %v, want s-9", env.conversations(t))
	}
}

func TestHooks_DisabledStillAnswer(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())
	env.writeSettings(t, `{"enabled": false}`)

	tests := []struct {
		verb string
		want string
	}{
		{"save", "{\"continue\":true}\n"},
		{"restore", "{}\n"},
		{"before-shell", "{\"permission\":\"allow\"}\n"},
		{"after-shell", "{}\n"},
	}
	for _, tt := range tests {
		out := env.mustRun(t, `{"conversation_id":"c1","command":"ls"}`, tt.verb)
		if out != tt.want {
			t.Errorf("%s output = %q, want %q", tt.verb, out, tt.want)
		}
	}

	if got := env.readScript(t).FocusLog; len(got) != 0 {
		t.Errorf("disabled hooks moved focus: %v", got)
	}
	if len(env.conversations(t)) != 0 {
		t.Error("disabled hooks should not write state")
	}
	if len(env.scheduler.runs) != 0 {
		t.Error("disabled hooks should not schedule the failsafe")
	}
}

func TestShellRoundTrip(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	out := env.mustRun(t, `{"conversation_id":"c1","command":"rm -rf build","cwd":"/tmp"}`, "before-shell")
	if out != "{\"permission\":\"allow\"}\n" {
		t.Errorf("before-shell output = %q", out)
	}
	if len(env.scheduler.runs) != 1 {
		t.Fatalf("scheduled %d failsafes, want 1", len(env.scheduler.runs))
	}
	if run := env.scheduler.runs[0]; run.id != "c1" || run.delay != settings.Default().FailsafeDelay() {
		t.Errorf("scheduled %+v", run)
	}
	shell, ok := env.conversations(t)[state.ShellKey("c1")]
	if !ok || shell.SavedWindow != slackWin {
		t.Fatalf("shell entry = %+v, %v; want slack", shell, ok)
	}

	payload, err := status.Read(filepath.Join(env.home, paths.StatusFileName))
	if err != nil {
		t.Fatal(err)
	}
	if payload.Status != status.Shell {
		t.Errorf("status = %q, want %q", payload.Status, status.Shell)
	}

	out = env.mustRun(t, `{"conversation_id":"c1","command":"rm -rf build","duration":120}`, "after-shell")
	if out != "{}\n" {
		t.Errorf("after-shell output = %q", out)
	}
	if got := env.readScript(t).Active; got == nil || *got != slackWin {
		t.Errorf("after-shell active = %v, want slack", got)
	}
	if _, ok := env.conversations(t)[state.ShellKey("c1")]; ok {
		t.Error("after-shell should clear the shell entry")
	}

	if out := env.mustRun(t, "", "check-idle", "--delay", "0", "--", "c1"); strings.TrimSpace(out) != "no_pending" {
		t.Errorf("check-idle after after-shell = %q, want no_pending", out)
	}
}

func TestBeforeShell_ConversationIDNearLimit(t *testing.T) {
	maxID := validation.MaxConversationIDLength - len(state.ShellSuffix)

	tests := []struct {
		name   string
		length int
		want   string
	}{
		{"shell key at limit", maxID, strings.Repeat("a", maxID)},
		{"shell key over limit", maxID + 1, "default"},
		{"id at limit", validation.MaxConversationIDLength, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, editorWithSlackBehind())
			id := strings.Repeat("a", tt.length)

			out := env.mustRun(t, `{"conversation_id":"`+id+`","command":"ls"}`, "before-shell")
			if out != "{\"permission\":\"allow\"}\n" {
				t.Errorf("before-shell output = %q", out)
			}
			if len(env.scheduler.runs) != 1 || env.scheduler.runs[0].id != tt.want {
				t.Fatalf("scheduled %+v, want one run for %d-byte id", env.scheduler.runs, len(tt.want))
			}
			if _, ok := env.conversations(t)[state.ShellKey(tt.want)]; !ok {
				t.Errorf("no shell entry under the %d-byte id", len(tt.want))
			}
		})
	}
}

func TestAfterShell_LargeOutputClearsShellEntry(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	env.mustRun(t, `{"conversation_id":"c1","command":"make"}`, "before-shell")
	if _, ok := env.conversations(t)[state.ShellKey("c1")]; !ok {
		t.Fatal("before-shell did not save a shell entry")
	}

	input := `{"conversation_id":"c1","command":"make","output":"` + strings.Repeat("x", 9<<20) + `","duration":40}`
	if out := env.mustRun(t, input, "after-shell"); out != "{}\n" {
		t.Errorf("after-shell output = %q", out)
	}
	if _, ok := env.conversations(t)[state.ShellKey("c1")]; ok {
		t.Error("after-shell with large output should clear c1_shell")
	}
	if _, ok := env.conversations(t)[state.ShellKey("default")]; ok {
		t.Error("large output must not fall back to the default conversation")
	}
}

func TestCheckIdle_RefocusesOnce(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	env.mustRun(t, `{"conversation_id":"c1","command":"make deploy"}`, "before-shell")

	out := env.mustRun(t, "", "check-idle", "--delay", "0", "--", "c1")
	if strings.TrimSpace(out) != "refocused" {
		t.Fatalf("check-idle = %q, want refocused", out)
	}
	if got := env.readScript(t).Active; got == nil || !got.IsEditor("cursor") {
		t.Errorf("active after failsafe = %v, want editor", got)
	}
	shell := env.conversations(t)[state.ShellKey("c1")]
	if shell.FailsafeFiredAt == nil {
		t.Error("failsafe should stamp the shell entry")
	}

	out = env.mustRun(t, "", "check-idle", "--delay", "0", "--", "c1")
	if strings.TrimSpace(out) != "already_fired" {
		t.Errorf("second check-idle = %q, want already_fired", out)
	}
}

func TestCheckIdle_RejectsNegativeDelay(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	if _, err := env.run(t, "", "check-idle", "--delay", "-1", "--", "c1"); err == nil {
		t.Fatal("expected error for negative delay")
	}
}

func TestCheckIdle_RequiresConversation(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())

	if _, err := env.run(t, "", "check-idle", "--delay", "0"); err == nil {
		t.Fatal("expected error without a conversation id")
	}
}

func TestHooks_StoreFailureExitsNonZero(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())
	// A directory where the state file should be makes every write fail.
	if err := os.MkdirAll(filepath.Join(env.home, paths.StateFileName), 0o750); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, `{"conversation_id":"c1"}`, "save")
	if err == nil {
		t.Fatal("expected save to fail when state cannot be written")
	}
	if out != "" {
		t.Errorf("failed hook should not answer, got %q", out)
	}
}

func TestHooks_WriteLogFile(t *testing.T) {
	env := newTestEnv(t, editorWithSlackBehind())
	env.writeSettings(t, `{"log_level": "debug"}`)

	env.mustRun(t, `{"conversation_id":"c1"}`, "save", "--no-focus")

	data, err := os.ReadFile(filepath.Join(env.home, paths.LogsDirName, paths.LogFileName))
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "save hook invoked") {
		t.Errorf("log missing invocation line:\n%s", data)
	}
}
