//go:build linux

package window

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
)

// x11Provider drives X11 through xdotool, xprop and wmctrl. Wayland-only
// sessions have no portable way to query or raise other clients' windows.
type x11Provider struct {
	token string
}

func newPlatformProvider(editorApp string) Provider {
	return &x11Provider{token: editorTokenFor(editorApp)}
}

func (p *x11Provider) checkDisplay() error {
	if os.Getenv("DISPLAY") != "" {
		return nil
	}
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return fmt.Errorf("%w: Wayland session without XWayland DISPLAY", ErrUnsupported)
	}
	return fmt.Errorf("%w: no X11 display", ErrUnsupported)
}

func (p *x11Provider) ActiveWindow(ctx context.Context) (*Handle, error) {
	if err := p.checkDisplay(); err != nil {
		return nil, err
	}
	out, err := runCommand(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return nil, err
	}
	id, ok := parseX11ID(out)
	if !ok {
		return nil, fmt.Errorf("%w: xdotool returned %q", ErrNotFound, out)
	}
	return p.describe(ctx, id), nil
}

func (p *x11Provider) PreviousWindow(ctx context.Context) (*Handle, error) {
	if err := p.checkDisplay(); err != nil {
		return nil, err
	}
	out, err := runCommand(ctx, "xprop", "-root", "_NET_CLIENT_LIST_STACKING")
	if err != nil {
		return nil, err
	}
	ids := parseStackingList(out)

	activeID := ""
	if active, err := runCommand(ctx, "xdotool", "getactivewindow"); err == nil {
		activeID, _ = parseX11ID(active)
	}

	// Topmost first, skipping the active window and the editor itself.
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == activeID {
			continue
		}
		h := p.describe(ctx, ids[i])
		if h.AppName == "" || h.IsEditor(p.token) {
			continue
		}
		return h, nil
	}
	return nil, nil //nolint:nilnil // no other window open
}

func (p *x11Provider) EditorWindows(ctx context.Context, token string) ([]Handle, error) {
	if err := p.checkDisplay(); err != nil {
		return nil, err
	}
	out, err := runCommand(ctx, "wmctrl", "-l", "-p")
	if err != nil {
		return p.searchEditorWindows(ctx, token)
	}
	var handles []Handle
	for _, w := range parseWmctrlList(out) {
		h := Handle{PID: w.pid, WindowID: w.id, AppName: processName(w.pid), Title: w.title}
		if h.IsEditor(token) {
			handles = append(handles, h)
		}
	}
	return handles, nil
}

// searchEditorWindows is the xdotool fallback when wmctrl is missing.
func (p *x11Provider) searchEditorWindows(ctx context.Context, token string) ([]Handle, error) {
	out, err := runCommand(ctx, "xdotool", "search", "--onlyvisible", "--class", token)
	if err != nil {
		return nil, err
	}
	var handles []Handle
	for _, line := range strings.Split(out, "\n") {
		if id, ok := parseX11ID(line); ok {
			handles = append(handles, *p.describe(ctx, id))
		}
	}
	return handles, nil
}

func (p *x11Provider) Focus(ctx context.Context, h Handle) error {
	if err := p.checkDisplay(); err != nil {
		return err
	}
	if h.WindowID == "" {
		return fmt.Errorf("%w: no window id for %s", ErrNotFound, h.AppName)
	}
	_, err := runCommand(ctx, "xdotool", "windowactivate", "--sync", h.WindowID)
	if err == nil {
		return nil
	}
	logging.Debug(ctx, "xdotool windowactivate failed, trying wmctrl", slog.String("error", err.Error()))
	if _, wmErr := runCommand(ctx, "wmctrl", "-i", "-a", h.WindowID); wmErr != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return nil
}

func (p *x11Provider) FocusApp(ctx context.Context, appName string) error {
	if err := p.checkDisplay(); err != nil {
		return err
	}
	windows, err := p.EditorWindows(ctx, editorTokenFor(appName))
	if err == nil && len(windows) > 0 {
		return p.Focus(ctx, windows[0])
	}
	out, searchErr := runCommand(ctx, "xdotool", "search", "--onlyvisible", "--name", appName)
	if searchErr != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, appName)
	}
	first, _, _ := strings.Cut(out, "\n")
	id, ok := parseX11ID(first)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, appName)
	}
	return p.Focus(ctx, Handle{WindowID: id, AppName: appName})
}

// describe fills in title, pid and app name for a window id. Lookups that
// fail leave their field empty.
func (p *x11Provider) describe(ctx context.Context, id string) *Handle {
	h := &Handle{WindowID: id}
	if title, err := runCommand(ctx, "xdotool", "getwindowname", id); err == nil {
		h.Title = title
	}
	if out, err := runCommand(ctx, "xdotool", "getwindowpid", id); err == nil {
		if pid, err := strconv.Atoi(out); err == nil {
			h.PID = pid
		}
	}
	h.AppName = processName(h.PID)
	if h.AppName == "" {
		if out, err := runCommand(ctx, "xprop", "-id", id, "WM_CLASS"); err == nil {
			h.AppName = parseWMClass(out)
		}
	}
	return h
}

// processName reads the short command name from /proc.
func processName(pid int) string {
	if pid <= 0 {
		return ""
	}
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
