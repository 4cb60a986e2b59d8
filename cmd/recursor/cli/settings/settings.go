// Package settings loads recursor configuration.
//
// Sources, later wins:
//  1. built-in defaults
//  2. <home>/recursor.json
//  3. <home>/recursor.local.json (machine-local overlay, key by key)
//  4. RECURSOR_* environment variables
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment overrides, e.g. RECURSOR_ENABLED.
const EnvPrefix = "recursor"

const (
	DefaultFailsafeDelaySeconds = 5
	MinFailsafeDelaySeconds     = 1
	MaxFailsafeDelaySeconds     = 300
	DefaultEditorApp            = "Cursor"
)

// DefaultMediaApps are app names whose windows may be playing media worth
// pausing when focus moves away from them.
var DefaultMediaApps = []string{"Google Chrome", "Chromium", "Firefox", "Safari", "Brave Browser"}

var ErrInvalid = errors.New("invalid settings")

// RecursorSettings is the on-disk settings shape.
//
//nolint:revive // RecursorSettings reads better than Settings at call sites
type RecursorSettings struct {
	// Enabled turns every hook into a no-op that still answers the editor
	// when false. Defaults to true.
	Enabled bool `json:"enabled"`

	LogLevel string `json:"log_level,omitempty"`

	// FailsafeDelaySeconds is how long check-idle waits after before-shell.
	FailsafeDelaySeconds int `json:"failsafe_delay_seconds,omitempty"`

	// NoAutofocus keeps state bookkeeping but never moves focus on save.
	NoAutofocus bool `json:"no_autofocus,omitempty"`

	// EditorApp is the editor application name. Its lowercase form is the
	// token that identifies editor windows.
	EditorApp string `json:"editor_app,omitempty"`

	MediaControl bool     `json:"media_control"`
	MediaApps    []string `json:"media_apps,omitempty"`

	// StatusFile controls publishing recursor_status.json.
	StatusFile bool `json:"status_file"`

	// AllowlistDB overrides the location of the editor's state.vscdb.
	AllowlistDB string `json:"allowlist_db,omitempty"`
}

// envOverrides are the RECURSOR_* variables. Pointers distinguish unset from
// false/zero.
type envOverrides struct {
	Enabled       *bool  `envconfig:"ENABLED"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	FailsafeDelay *int   `envconfig:"FAILSAFE_DELAY"`
	NoAutofocus   *bool  `envconfig:"NO_AUTOFOCUS"`
	EditorApp     string `envconfig:"EDITOR_APP"`
	MediaControl  *bool  `envconfig:"MEDIA_CONTROL"`
	StatusFile    *bool  `envconfig:"STATUS_FILE"`
}

// Default returns settings with every field at its default.
func Default() *RecursorSettings {
	return &RecursorSettings{
		Enabled:              true,
		LogLevel:             "info",
		FailsafeDelaySeconds: DefaultFailsafeDelaySeconds,
		EditorApp:            DefaultEditorApp,
		MediaControl:         true,
		MediaApps:            append([]string(nil), DefaultMediaApps...),
		StatusFile:           true,
	}
}

// Load reads settings from the recursor home directory and the environment.
// Missing files are not an error. Unknown keys are.
func Load(ctx context.Context) (*RecursorSettings, error) {
	s := Default()

	settingsFile, err := paths.SettingsFile()
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	localFile, err := paths.SettingsLocalFile()
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	for _, file := range []string{settingsFile, localFile} {
		if err := mergeFile(s, file); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(s); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	logging.Debug(ctx, "settings loaded",
		"enabled", s.Enabled,
		"failsafe_delay_seconds", s.FailsafeDelaySeconds,
		"editor_app", s.EditorApp,
	)
	return s, nil
}

// LoadOrDefault is Load for hook paths: a broken settings file must never
// stop the editor from getting its response, so errors are logged and the
// defaults (plus environment) are used instead.
func LoadOrDefault(ctx context.Context) *RecursorSettings {
	s, err := Load(ctx)
	if err == nil {
		return s
	}
	logging.Warn(ctx, "failed to load settings, using defaults", "error", err.Error())
	s = Default()
	if envErr := applyEnv(s); envErr != nil || s.Validate() != nil {
		return Default()
	}
	return s
}

// mergeFile decodes path into s. Keys absent from the file keep their
// current value, which is what gives the local overlay its key-by-key merge.
func mergeFile(s *RecursorSettings, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from paths package
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(s *RecursorSettings) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: environment: %w", ErrInvalid, err)
	}
	if env.Enabled != nil {
		s.Enabled = *env.Enabled
	}
	if env.LogLevel != "" {
		s.LogLevel = env.LogLevel
	}
	if env.FailsafeDelay != nil {
		s.FailsafeDelaySeconds = *env.FailsafeDelay
	}
	if env.NoAutofocus != nil {
		s.NoAutofocus = *env.NoAutofocus
	}
	if env.EditorApp != "" {
		s.EditorApp = env.EditorApp
	}
	if env.MediaControl != nil {
		s.MediaControl = *env.MediaControl
	}
	if env.StatusFile != nil {
		s.StatusFile = *env.StatusFile
	}
	return nil
}

// Validate checks ranges and enumerations.
func (s *RecursorSettings) Validate() error {
	if s.FailsafeDelaySeconds < MinFailsafeDelaySeconds || s.FailsafeDelaySeconds > MaxFailsafeDelaySeconds {
		return fmt.Errorf("%w: failsafe_delay_seconds must be between %d and %d, got %d",
			ErrInvalid, MinFailsafeDelaySeconds, MaxFailsafeDelaySeconds, s.FailsafeDelaySeconds)
	}
	if !logging.ValidLevel(s.LogLevel) {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, s.LogLevel)
	}
	if strings.TrimSpace(s.EditorApp) == "" {
		return fmt.Errorf("%w: editor_app must not be empty", ErrInvalid)
	}
	return nil
}

// FailsafeDelay returns the failsafe delay as a duration.
func (s *RecursorSettings) FailsafeDelay() time.Duration {
	return time.Duration(s.FailsafeDelaySeconds) * time.Second
}

// EditorToken is the case-insensitive token that identifies editor windows.
func (s *RecursorSettings) EditorToken() string {
	return strings.ToLower(strings.TrimSpace(s.EditorApp))
}
