//go:build windows

package window

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procShowWindow           = user32.NewProc("ShowWindow")
	procIsIconic             = user32.NewProc("IsIconic")
)

const swRestore = 9

type win32Provider struct {
	token string
}

func newPlatformProvider(editorApp string) Provider {
	return &win32Provider{token: editorTokenFor(editorApp)}
}

func (p *win32Provider) ActiveWindow(_ context.Context) (*Handle, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return nil, ErrNotFound
	}
	return describeHWND(hwnd), nil
}

// PreviousWindow returns the first visible, titled, non-editor top-level
// window below the foreground one. EnumWindows yields windows in Z order.
func (p *win32Provider) PreviousWindow(_ context.Context) (*Handle, error) {
	fg := windows.GetForegroundWindow()
	for _, h := range topLevelWindows() {
		if h.WindowID == hwndString(fg) || h.IsEditor(p.token) {
			continue
		}
		return &h, nil
	}
	return nil, nil //nolint:nilnil // no other window open
}

func (p *win32Provider) EditorWindows(_ context.Context, token string) ([]Handle, error) {
	var out []Handle
	for _, h := range topLevelWindows() {
		if h.IsEditor(token) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (p *win32Provider) Focus(_ context.Context, h Handle) error {
	n, err := strconv.ParseUint(h.WindowID, 10, 64)
	if err != nil || n == 0 {
		return fmt.Errorf("%w: bad window id %q", ErrNotFound, h.WindowID)
	}
	hwnd := uintptr(n)
	if iconic, _, _ := procIsIconic.Call(hwnd); iconic != 0 {
		procShowWindow.Call(hwnd, swRestore) //nolint:errcheck // best effort
	}
	if ok, _, callErr := procSetForegroundWindow.Call(hwnd); ok == 0 {
		return fmt.Errorf("%w: SetForegroundWindow: %w", ErrNotFound, callErr)
	}
	return nil
}

func (p *win32Provider) FocusApp(ctx context.Context, appName string) error {
	token := editorTokenFor(appName)
	for _, h := range topLevelWindows() {
		if h.IsEditor(token) {
			return p.Focus(ctx, h)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, appName)
}

// topLevelWindows lists visible top-level windows that have a title.
func topLevelWindows() []Handle {
	var handles []Handle
	cb := windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if windows.IsWindowVisible(hwnd) && windowText(hwnd) != "" {
			handles = append(handles, *describeHWND(hwnd))
		}
		return 1
	})
	_ = windows.EnumWindows(cb, nil) //nolint:errcheck // partial results are fine
	return handles
}

func describeHWND(hwnd windows.HWND) *Handle {
	var pid uint32
	_, _ = windows.GetWindowThreadProcessId(hwnd, &pid) //nolint:errcheck // pid stays 0
	return &Handle{
		PID:      int(pid),
		WindowID: hwndString(hwnd),
		AppName:  processImageName(pid),
		Title:    windowText(hwnd),
	}
}

func hwndString(hwnd windows.HWND) string {
	return strconv.FormatUint(uint64(hwnd), 10)
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf))) //nolint:errcheck // empty on failure
	return windows.UTF16ToString(buf)
}

// processImageName returns the executable base name without .exe.
func processImageName(pid uint32) string {
	if pid == 0 {
		return ""
	}
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(proc) //nolint:errcheck // read-only handle

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return ""
	}
	name := filepath.Base(windows.UTF16ToString(buf[:size]))
	return strings.TrimSuffix(name, filepath.Ext(name))
}
