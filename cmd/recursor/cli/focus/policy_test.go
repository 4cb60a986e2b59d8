package focus

import (
	"testing"

	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

var (
	editorWin = window.Handle{PID: 1, WindowID: "1:1", AppName: "Cursor", Title: "main.go - recursor - Cursor"}
	chromeWin = window.Handle{PID: 2, WindowID: "2:1", AppName: "Google Chrome", Title: "YouTube"}
	slackWin  = window.Handle{PID: 3, WindowID: "3:1", AppName: "Slack", Title: "general"}
)

func ptr(h window.Handle) *window.Handle { return &h }

func TestSelectWindowToSave(t *testing.T) {
	t.Parallel()
	p := Policy{EditorToken: "cursor"}

	tests := []struct {
		name     string
		current  *window.Handle
		previous *window.Handle
		want     *window.Handle
	}{
		{"previous wins", ptr(editorWin), ptr(chromeWin), ptr(chromeWin)},
		{"current when no previous", ptr(slackWin), nil, ptr(slackWin)},
		{"nothing known", nil, nil, nil},
		{"previous only", nil, ptr(slackWin), ptr(slackWin)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.SelectWindowToSave(tt.current, tt.previous)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldForceRefocus(t *testing.T) {
	t.Parallel()
	p := Policy{EditorToken: "cursor"}
	conv := state.ConversationState{SavedWindow: chromeWin}

	tests := []struct {
		name    string
		conv    state.ConversationState
		current window.Handle
		want    bool
	}{
		{"user still in saved app", conv, chromeWin, true},
		{"other window of saved app", conv, window.Handle{AppName: "Google Chrome", Title: "Docs"}, true},
		{"user in editor", conv, editorWin, true},
		{"user moved elsewhere", conv, slackWin, false},
		{"user switched flag wins", state.ConversationState{SavedWindow: chromeWin, UserSwitched: true}, editorWin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.ShouldForceRefocus(tt.conv, tt.current); got != tt.want {
				t.Errorf("ShouldForceRefocus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSecondaryWindowForShell(t *testing.T) {
	t.Parallel()
	p := Policy{EditorToken: "cursor"}

	lookups := 0
	behind := func() *window.Handle {
		lookups++
		return ptr(chromeWin)
	}

	if got := p.SecondaryWindowForShell(ptr(editorWin), behind); got == nil || *got != chromeWin {
		t.Errorf("in editor: got %v, want chrome", got)
	}
	if got := p.SecondaryWindowForShell(ptr(slackWin), behind); got == nil || *got != slackWin {
		t.Errorf("in slack: got %v, want slack", got)
	}
	if got := p.SecondaryWindowForShell(nil, behind); got != nil {
		t.Errorf("unknown current: got %v, want nil", got)
	}
	if lookups != 1 {
		t.Errorf("behind called %d times, want 1", lookups)
	}

	none := func() *window.Handle { return nil }
	if got := p.SecondaryWindowForShell(ptr(editorWin), none); got != nil {
		t.Errorf("in editor with nothing behind: got %v, want nil", got)
	}
}
