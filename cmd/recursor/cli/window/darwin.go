//go:build darwin

package window

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
)

// macProvider uses AppleScript through osascript plus lsappinfo for the app
// activation order. System Events access requires the Accessibility
// permission for the terminal or editor that runs the hook.
type macProvider struct {
	editorApp string
	token     string
}

func newPlatformProvider(editorApp string) Provider {
	return &macProvider{editorApp: editorApp, token: editorTokenFor(editorApp)}
}

func runAppleScript(ctx context.Context, script string) (string, error) {
	return runCommand(ctx, "osascript", "-e", script)
}

const activeWindowScript = `
tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set appPID to unix id of frontApp
	set windowTitle to ""
	set windowIndex to 1
	try
		set frontWin to front window of frontApp
		set windowTitle to name of frontWin
		set windowIndex to index of frontWin
	end try
	return appName & "|" & appPID & "|" & windowTitle & "|" & windowIndex
end tell`

func (p *macProvider) ActiveWindow(ctx context.Context) (*Handle, error) {
	out, err := runAppleScript(ctx, activeWindowScript)
	if err != nil {
		return nil, err
	}
	return parseAppleScriptWindow(out)
}

// PreviousWindow walks lsappinfo's bring-forward order, skipping the
// frontmost app and any editor process (including helper processes whose
// parent is the editor).
func (p *macProvider) PreviousWindow(ctx context.Context) (*Handle, error) {
	out, err := runCommand(ctx, "lsappinfo", "metainfo")
	if err != nil {
		return nil, err
	}

	var order []asnEntry
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "bringForwardOrder") {
			order = parseBringForwardOrder(line)
			break
		}
	}

	for i, entry := range order {
		if i == 0 || strings.Contains(strings.ToLower(entry.app), p.token) {
			continue
		}
		if p.isEditorChild(ctx, entry.asn) {
			continue
		}
		h, err := p.appWindow(ctx, entry.app)
		if err != nil {
			logging.Debug(ctx, "could not describe app", slog.String("app", entry.app), slog.String("error", err.Error()))
			continue
		}
		return h, nil
	}
	return nil, nil //nolint:nilnil // nothing behind the frontmost app
}

func (p *macProvider) isEditorChild(ctx context.Context, asn string) bool {
	if asn == "" {
		return false
	}
	info, err := runCommand(ctx, "lsappinfo", "info", asn)
	if err != nil {
		return false
	}
	_, parent := parseASNInfo(info)
	if parent == "" || parent == "ASN:0x0-0x0:" {
		return false
	}
	parentInfo, err := runCommand(ctx, "lsappinfo", "info", parent)
	if err != nil {
		return false
	}
	return strings.Contains(parentInfo, p.editorApp)
}

func (p *macProvider) appWindow(ctx context.Context, appName string) (*Handle, error) {
	name := escapeAppleScript(appName)
	script := fmt.Sprintf(`
tell application "System Events"
	set targetProc to application process "%s"
	set appPID to unix id of targetProc
	set windowTitle to ""
	set windowIndex to 1
	try
		set frontWin to front window of targetProc
		set windowTitle to name of frontWin
		set windowIndex to index of frontWin
	end try
	return "%s" & "|" & appPID & "|" & windowTitle & "|" & windowIndex
end tell`, name, name)

	out, err := runAppleScript(ctx, script)
	if err != nil {
		return nil, err
	}
	return parseAppleScriptWindow(out)
}

func (p *macProvider) EditorWindows(ctx context.Context, _ string) ([]Handle, error) {
	name := escapeAppleScript(p.editorApp)
	script := fmt.Sprintf(`
tell application "System Events"
	set targetProc to application process "%s"
	set appPID to unix id of targetProc
	set output to ""
	set winIndex to 0
	repeat with win in (every window of targetProc)
		set winIndex to winIndex + 1
		set output to output & "%s" & "|" & appPID & "|" & (name of win) & "|" & winIndex & linefeed
	end repeat
	return output
end tell`, name, name)

	out, err := runAppleScript(ctx, script)
	if err != nil {
		return nil, err
	}
	return parseAppleScriptWindowList(out), nil
}

func (p *macProvider) Focus(ctx context.Context, h Handle) error {
	if h.AppName == "" {
		return fmt.Errorf("%w: no app name", ErrNotFound)
	}
	name := escapeAppleScript(h.AppName)
	if h.Title != "" {
		title := escapeAppleScript(h.Title)
		script := fmt.Sprintf(`
tell application "System Events"
	tell process "%s"
		set frontmost to true
		try
			set targetWindow to first window whose name contains "%s"
			perform action "AXRaise" of targetWindow
		end try
	end tell
end tell
tell application "%s" to activate`, name, title, name)
		if _, err := runAppleScript(ctx, script); err == nil {
			return nil
		}
	}
	return p.FocusApp(ctx, h.AppName)
}

func (p *macProvider) FocusApp(ctx context.Context, appName string) error {
	script := fmt.Sprintf(`tell application "%s" to activate`, escapeAppleScript(appName))
	if _, err := runAppleScript(ctx, script); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return nil
}
