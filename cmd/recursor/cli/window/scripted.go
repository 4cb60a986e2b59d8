package window

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/jsonutil"
)

// Script is the on-disk shape read and updated by ScriptedProvider.
type Script struct {
	Active   *Handle  `json:"active,omitempty"`
	Previous *Handle  `json:"previous,omitempty"`
	Windows  []Handle `json:"windows,omitempty"`
	// FocusLog records every window focused, in order.
	FocusLog []Handle `json:"focus_log,omitempty"`
	// Unavailable makes every query fail with ErrUnsupported.
	Unavailable bool `json:"unavailable,omitempty"`
}

// ScriptedProvider is a Provider backed by a JSON file instead of a desktop.
// Focus changes are written back so that a later process (for example a
// detached failsafe) observes them.
type ScriptedProvider struct {
	path string
}

func NewScriptedProvider(path string) *ScriptedProvider {
	return &ScriptedProvider{path: path}
}

// ReadScript loads the script file. A missing file is an empty script.
func ReadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path) //nolint:gosec // test fixture path from environment
	if err != nil {
		if os.IsNotExist(err) {
			return &Script{}, nil
		}
		return nil, fmt.Errorf("read window script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse window script: %w", err)
	}
	return &s, nil
}

// WriteScript replaces the script file atomically.
func WriteScript(path string, s *Script) error {
	return jsonutil.WriteJSONAtomic(path, s, 0o600) //nolint:wrapcheck // already descriptive
}

func (p *ScriptedProvider) load() (*Script, error) {
	s, err := ReadScript(p.path)
	if err != nil {
		return nil, err
	}
	if s.Unavailable {
		return nil, ErrUnsupported
	}
	return s, nil
}

func (p *ScriptedProvider) ActiveWindow(_ context.Context) (*Handle, error) {
	s, err := p.load()
	if err != nil {
		return nil, err
	}
	if s.Active == nil {
		return nil, ErrNotFound
	}
	h := *s.Active
	return &h, nil
}

func (p *ScriptedProvider) PreviousWindow(_ context.Context) (*Handle, error) {
	s, err := p.load()
	if err != nil {
		return nil, err
	}
	if s.Previous == nil {
		return nil, nil //nolint:nilnil // no previous window is a valid answer
	}
	h := *s.Previous
	return &h, nil
}

func (p *ScriptedProvider) EditorWindows(_ context.Context, token string) ([]Handle, error) {
	s, err := p.load()
	if err != nil {
		return nil, err
	}
	var out []Handle
	for _, w := range s.Windows {
		if w.IsEditor(token) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (p *ScriptedProvider) Focus(_ context.Context, h Handle) error {
	s, err := p.load()
	if err != nil {
		return err
	}
	if h.WindowID != "" && len(s.Windows) > 0 && !containsWindowID(s.Windows, h.WindowID) {
		return ErrNotFound
	}
	s.focus(h)
	return WriteScript(p.path, s)
}

func (p *ScriptedProvider) FocusApp(_ context.Context, appName string) error {
	s, err := p.load()
	if err != nil {
		return err
	}
	target := Handle{AppName: appName}
	for _, w := range s.Windows {
		if strings.EqualFold(w.AppName, appName) {
			target = w
			break
		}
	}
	s.focus(target)
	return WriteScript(p.path, s)
}

func (s *Script) focus(h Handle) {
	if s.Active != nil && *s.Active != h {
		prev := *s.Active
		s.Previous = &prev
	}
	s.Active = &h
	s.FocusLog = append(s.FocusLog, h)
}

func containsWindowID(windows []Handle, id string) bool {
	for _, w := range windows {
		if w.WindowID == id {
			return true
		}
	}
	return false
}
