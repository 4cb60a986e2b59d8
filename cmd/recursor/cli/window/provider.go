package window

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
)

var (
	// ErrNotFound means the requested window is gone or could not be located.
	ErrNotFound = errors.New("window not found")
	// ErrUnsupported means this platform or session cannot do the operation.
	ErrUnsupported = errors.New("window operation not supported")
)

// Provider is the per-OS window capability. All methods are best-effort.
type Provider interface {
	// ActiveWindow returns the frontmost window.
	ActiveWindow(ctx context.Context) (*Handle, error)
	// PreviousWindow returns the most recent non-editor window behind the
	// frontmost one.
	PreviousWindow(ctx context.Context) (*Handle, error)
	// EditorWindows lists open windows whose app matches token.
	EditorWindows(ctx context.Context, token string) ([]Handle, error)
	// Focus raises h.
	Focus(ctx context.Context, h Handle) error
	// FocusApp raises any window of the named application.
	FocusApp(ctx context.Context, appName string) error
}

// ScriptEnvVar points at a JSON file that replaces the platform provider.
// End-to-end tests use it to run hooks on machines without a desktop.
const ScriptEnvVar = "RECURSOR_TEST_WINDOWS_FILE"

// NewProvider returns the scripted provider when ScriptEnvVar is set and the
// platform provider otherwise.
func NewProvider(editorApp string) Provider {
	if path := os.Getenv(ScriptEnvVar); path != "" {
		return NewScriptedProvider(path)
	}
	return newPlatformProvider(editorApp)
}

// Desktop is what the hook engine uses to observe and move focus.
type Desktop struct {
	provider  Provider
	editorApp string
	token     string
}

// NewDesktop wraps p. editorApp is the editor's application name ("Cursor").
func NewDesktop(p Provider, editorApp string) *Desktop {
	return &Desktop{
		provider:  p,
		editorApp: editorApp,
		token:     editorTokenFor(editorApp),
	}
}

func (d *Desktop) ActiveWindow(ctx context.Context) (*Handle, error) {
	h, err := d.provider.ActiveWindow(ctx)
	if err != nil {
		return nil, fmt.Errorf("active window: %w", err)
	}
	return h, nil
}

func (d *Desktop) PreviousWindow(ctx context.Context) (*Handle, error) {
	h, err := d.provider.PreviousWindow(ctx)
	if err != nil {
		return nil, fmt.Errorf("previous window: %w", err)
	}
	return h, nil
}

func (d *Desktop) Focus(ctx context.Context, h Handle) error {
	if err := d.provider.Focus(ctx, h); err != nil {
		return fmt.Errorf("focus %s: %w", h.AppName, err)
	}
	return nil
}

// FocusEditor raises the editor. With a remembered window it first looks for
// the best match among open editor windows, then tries the remembered handle
// as is, and finally falls back to activating the editor application.
func (d *Desktop) FocusEditor(ctx context.Context, remembered *Handle) error {
	if remembered != nil && !remembered.IsZero() {
		candidates, err := d.provider.EditorWindows(ctx, d.token)
		if err != nil {
			logging.Debug(ctx, "could not list editor windows", "error", err.Error())
		}
		if match := BestEditorMatch(candidates, *remembered); match != nil {
			if err := d.provider.Focus(ctx, *match); err == nil {
				return nil
			}
		} else if err := d.provider.Focus(ctx, *remembered); err == nil {
			return nil
		}
	}

	if err := d.provider.FocusApp(ctx, d.editorApp); err != nil {
		return fmt.Errorf("focus %s: %w", d.editorApp, err)
	}
	return nil
}

// Probe reports which capabilities work right now. Used by the permissions
// command.
func (d *Desktop) Probe(ctx context.Context) []ProbeResult {
	var results []ProbeResult

	active, err := d.provider.ActiveWindow(ctx)
	results = append(results, newProbeResult("active window", active, err))

	prev, err := d.provider.PreviousWindow(ctx)
	results = append(results, newProbeResult("previous window", prev, err))

	editors, err := d.provider.EditorWindows(ctx, d.token)
	r := ProbeResult{Name: "editor windows", OK: err == nil}
	if err != nil {
		r.Detail = err.Error()
	} else {
		r.Detail = fmt.Sprintf("%d found", len(editors))
	}
	results = append(results, r)

	return results
}

// ProbeResult is one line of the permissions report.
type ProbeResult struct {
	Name   string
	OK     bool
	Detail string
}

func newProbeResult(name string, h *Handle, err error) ProbeResult {
	switch {
	case err != nil:
		return ProbeResult{Name: name, Detail: err.Error()}
	case h == nil:
		return ProbeResult{Name: name, OK: true, Detail: "none"}
	default:
		return ProbeResult{Name: name, OK: true, Detail: h.String()}
	}
}

func editorTokenFor(editorApp string) string {
	token := strings.ToLower(strings.TrimSpace(editorApp))
	if token == "" {
		return DefaultEditorToken
	}
	return token
}
