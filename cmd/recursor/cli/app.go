package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/allowlist"
	"github.com/recursorhq/recursor/cmd/recursor/cli/failsafe"
	"github.com/recursorhq/recursor/cmd/recursor/cli/focus"
	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
	"github.com/recursorhq/recursor/cmd/recursor/cli/media"
	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/settings"
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/status"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

// app builds the engine and its adapters for one invocation. Nil fields use
// the real implementation; tests set them.
type app struct {
	provider  window.Provider
	scheduler focus.Scheduler
	media     media.Controller
	now       func() time.Time
}

func (a *app) clock() func() time.Time {
	if a.now != nil {
		return a.now
	}
	return time.Now
}

func (a *app) stateStore() (*state.Store, error) {
	path, err := paths.StateFile()
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	return state.NewStore(path, state.WithClock(a.clock())), nil
}

func (a *app) desktop(s *settings.RecursorSettings) *window.Desktop {
	p := a.provider
	if p == nil {
		p = window.NewProvider(s.EditorApp)
	}
	return window.NewDesktop(p, s.EditorApp)
}

func (a *app) statusPublisher(ctx context.Context, s *settings.RecursorSettings) focus.StatusPublisher {
	if !s.StatusFile {
		return status.Discard{}
	}
	path, err := paths.StatusFile()
	if err != nil {
		logging.Warn(ctx, "status file disabled", slog.String("error", err.Error()))
		return status.Discard{}
	}
	return status.NewFilePublisher(path)
}

// allowlistPath returns the configured or default editor state database.
func allowlistPath(s *settings.RecursorSettings) (string, error) {
	if s.AllowlistDB != "" {
		return s.AllowlistDB, nil
	}
	return allowlist.DefaultDBPath(s.EditorApp)
}

func (a *app) newEngine(ctx context.Context, s *settings.RecursorSettings) (*focus.Engine, error) {
	store, err := a.stateStore()
	if err != nil {
		return nil, err
	}

	deps := focus.Deps{
		Store:     store,
		Windows:   a.desktop(s),
		Media:     a.media,
		Status:    a.statusPublisher(ctx, s),
		Scheduler: a.scheduler,
	}
	if deps.Media == nil {
		deps.Media = media.New(s.MediaControl)
	}
	if deps.Scheduler == nil {
		deps.Scheduler = &failsafe.Spawner{}
	}
	if path, err := allowlistPath(s); err == nil {
		deps.Allowlist = allowlist.NewReader(path)
	}

	opts := focus.Options{
		EditorToken:   s.EditorToken(),
		NoAutofocus:   s.NoAutofocus,
		FailsafeDelay: s.FailsafeDelay(),
		Now:           a.clock(),
	}
	if s.MediaControl {
		opts.MediaApps = s.MediaApps
	}
	return focus.NewEngine(deps, opts), nil
}
