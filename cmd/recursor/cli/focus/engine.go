package focus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/status"
	"github.com/recursorhq/recursor/cmd/recursor/cli/validation"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

// Settle pauses between a focus change and the next step that depends on it.
const (
	saveSettle            = 50 * time.Millisecond
	saveMediaSettle       = 100 * time.Millisecond
	restoreSettle         = 100 * time.Millisecond
	afterShellSettle      = 100 * time.Millisecond
	afterShellMediaSettle = 150 * time.Millisecond
)

// StateStore is the subset of state.Store the engine needs.
type StateStore interface {
	Save(ctx context.Context, id string, saved window.Handle, editor *window.Handle) error
	Load(ctx context.Context, id string) (*state.ConversationState, error)
	Clear(ctx context.Context, id string) error
	MarkFailsafeFired(ctx context.Context, id string) error
}

// Windows observes and moves desktop focus.
type Windows interface {
	ActiveWindow(ctx context.Context) (*window.Handle, error)
	PreviousWindow(ctx context.Context) (*window.Handle, error)
	Focus(ctx context.Context, h window.Handle) error
	FocusEditor(ctx context.Context, remembered *window.Handle) error
}

// Media pauses and resumes playback in the app that owns h. Both report
// whether anything changed.
type Media interface {
	PauseIfPlaying(ctx context.Context, h window.Handle) bool
	Resume(ctx context.Context, h window.Handle) bool
}

// StatusPublisher reports progress to the menu-bar companion.
type StatusPublisher interface {
	Publish(ctx context.Context, u status.Update)
}

// Scheduler arranges for CheckIdle(id) to run after delay in another process.
type Scheduler interface {
	Schedule(ctx context.Context, id string, delay time.Duration) error
}

// Allowlist reports whether the editor will run a command without asking.
type Allowlist interface {
	IsAllowed(ctx context.Context, command string) (bool, error)
}

// Deps are the engine's collaborators. Media, Status, Scheduler and
// Allowlist may be nil.
type Deps struct {
	Store     StateStore
	Windows   Windows
	Media     Media
	Status    StatusPublisher
	Scheduler Scheduler
	Allowlist Allowlist
}

// Options tune engine behaviour.
type Options struct {
	EditorToken string
	// NoAutofocus records state on save but never moves focus.
	NoAutofocus   bool
	FailsafeDelay time.Duration
	// MediaApps are app names whose playback is paused and resumed around
	// focus changes. Empty disables media control.
	MediaApps []string

	Sleep func(ctx context.Context, d time.Duration)
	Now   func() time.Time
}

// Engine runs the hook handlers. Every method is one hook invocation.
type Engine struct {
	store     StateStore
	windows   Windows
	media     Media
	status    StatusPublisher
	scheduler Scheduler
	allowlist Allowlist
	policy    Policy
	opts      Options
}

func NewEngine(d Deps, opts Options) *Engine {
	e := &Engine{
		store:     d.Store,
		windows:   d.Windows,
		media:     d.Media,
		status:    d.Status,
		scheduler: d.Scheduler,
		allowlist: d.Allowlist,
		policy:    Policy{EditorToken: opts.EditorToken},
		opts:      opts,
	}
	if e.media == nil {
		e.media = noMedia{}
	}
	if e.status == nil {
		e.status = status.Discard{}
	}
	if e.scheduler == nil {
		e.scheduler = noScheduler{}
	}
	if e.opts.Sleep == nil {
		e.opts.Sleep = sleepContext
	}
	if e.opts.Now == nil {
		e.opts.Now = time.Now
	}
	return e
}

// Save remembers where the user was when a prompt was submitted and sends
// them back there while the agent works.
func (e *Engine) Save(ctx context.Context, id string, noFocus bool) error {
	current := e.activeWindow(ctx)
	previous := e.previousWindow(ctx)

	target := e.policy.SelectWindowToSave(current, previous)
	if target == nil {
		logging.Info(ctx, "no window to save")
		return nil
	}

	var editor *window.Handle
	if current != nil && current.IsEditor(e.opts.EditorToken) {
		editor = current
	}
	if saved, err := e.saveEntry(ctx, id, *target, editor); err != nil || !saved {
		return err
	}
	logging.Info(ctx, "saved window",
		slog.String("app", target.AppName),
		slog.String("title", target.Title),
		slog.Bool("editor_recorded", editor != nil),
	)

	update := status.Update{Status: status.Working, SecondaryApp: target.AppName, SecondaryTitle: target.Title}
	defer func() { e.status.Publish(ctx, update) }()

	if noFocus || e.opts.NoAutofocus {
		logging.Debug(ctx, "autofocus disabled, leaving focus alone")
		return nil
	}
	if current != nil && *current == *target {
		return nil
	}

	e.opts.Sleep(ctx, saveSettle)
	if err := e.windows.Focus(ctx, *target); err != nil {
		logging.Warn(ctx, "failed to focus saved window", slog.String("error", err.Error()))
		return nil
	}
	if e.isMediaApp(*target) {
		e.opts.Sleep(ctx, saveMediaSettle)
		if e.media.Resume(ctx, *target) {
			playing := true
			update.MediaPlaying = &playing
		}
	}
	return nil
}

// Restore brings the user back to the editor when the agent stops and
// forgets the conversation.
func (e *Engine) Restore(ctx context.Context, id string) error {
	conv, err := e.store.Load(ctx, id)
	if err != nil {
		return err //nolint:wrapcheck // store errors are descriptive
	}

	update := status.Update{Status: status.Idle}
	if current := e.activeWindow(ctx); current != nil && e.isMediaApp(*current) {
		if e.media.PauseIfPlaying(ctx, *current) {
			playing := false
			update.MediaPlaying = &playing
		}
	}

	e.opts.Sleep(ctx, restoreSettle)

	var remembered *window.Handle
	if conv != nil {
		remembered = conv.EditorWindow
	}
	if err := e.windows.FocusEditor(ctx, remembered); err != nil {
		logging.Warn(ctx, "failed to focus editor", slog.String("error", err.Error()))
	}
	e.status.Publish(ctx, update)

	if err := e.store.Clear(ctx, id); err != nil {
		return err //nolint:wrapcheck // store errors are descriptive
	}
	if err := e.store.Clear(ctx, state.ShellKey(id)); err != nil {
		return err //nolint:wrapcheck // store errors are descriptive
	}
	logging.Info(ctx, "restored editor", slog.Bool("had_state", conv != nil))
	return nil
}

// BeforeShell remembers the window to return to after the command and arms
// the failsafe in case the command is held for approval.
func (e *Engine) BeforeShell(ctx context.Context, id, command string) error {
	current := e.activeWindow(ctx)
	secondary := e.policy.SecondaryWindowForShell(current, func() *window.Handle {
		return e.previousWindow(ctx)
	})

	update := status.Update{Status: status.Shell, CursorState: e.classifyCommand(ctx, command)}
	key := state.ShellKey(id)
	if secondary == nil {
		// An entry left by an earlier command is re-stamped so the timer
		// armed below is the one measured against it.
		existing, err := e.store.Load(ctx, key)
		if err != nil {
			logging.Warn(ctx, "failed to load previous shell entry", slog.String("error", err.Error()))
		}
		if existing != nil {
			secondary = &existing.SavedWindow
			logging.Debug(ctx, "no secondary window, re-arming previous shell entry")
		}
	}
	if secondary != nil {
		saved, err := e.saveEntry(ctx, key, *secondary, nil)
		if err != nil {
			return err
		}
		if saved {
			update.SecondaryApp = secondary.AppName
			update.SecondaryTitle = secondary.Title
		} else {
			secondary = nil
		}
	}
	e.status.Publish(ctx, update)

	if err := e.scheduler.Schedule(ctx, id, e.opts.FailsafeDelay); err != nil {
		logging.Warn(ctx, "failed to schedule failsafe", slog.String("error", err.Error()))
	}
	logging.Info(ctx, "shell command pending",
		slog.Bool("secondary_saved", secondary != nil),
		slog.String("cursor_state", update.CursorState),
	)
	return nil
}

// saveEntry writes one state entry. A key the store refuses is logged and
// skipped so hooks keep answering; saved reports whether anything was written.
func (e *Engine) saveEntry(ctx context.Context, key string, saved window.Handle, editor *window.Handle) (bool, error) {
	err := e.store.Save(ctx, key, saved, editor)
	if errors.Is(err, validation.ErrInvalidConversationID) {
		logging.Warn(ctx, "state key rejected, not saving", slog.String("error", err.Error()))
		return false, nil
	}
	if err != nil {
		return false, err //nolint:wrapcheck // store errors are descriptive
	}
	return true, nil
}

// AfterShell returns the user to the window recorded by BeforeShell.
func (e *Engine) AfterShell(ctx context.Context, id string) error {
	key := state.ShellKey(id)
	conv, err := e.store.Load(ctx, key)
	if err != nil {
		return err //nolint:wrapcheck // store errors are descriptive
	}
	if conv == nil {
		logging.Debug(ctx, "no pending shell state")
		return nil
	}

	target := conv.SavedWindow
	update := status.Update{Status: status.Working, SecondaryApp: target.AppName, SecondaryTitle: target.Title}

	if current := e.activeWindow(ctx); current == nil || *current != target {
		e.opts.Sleep(ctx, afterShellSettle)
		if err := e.windows.Focus(ctx, target); err != nil {
			logging.Warn(ctx, "failed to return to window", slog.String("error", err.Error()))
		} else if e.isMediaApp(target) {
			e.opts.Sleep(ctx, afterShellMediaSettle)
			if e.media.Resume(ctx, target) {
				playing := true
				update.MediaPlaying = &playing
			}
		}
	}

	if err := e.store.Clear(ctx, key); err != nil {
		return err //nolint:wrapcheck // store errors are descriptive
	}
	e.status.Publish(ctx, update)
	return nil
}

// CheckIdleOutcome says what a failsafe run did.
type CheckIdleOutcome int

const (
	// NoPending means after-shell (or restore) already cleaned up.
	NoPending CheckIdleOutcome = iota
	// TooEarly means the shell entry was re-saved after this timer started.
	TooEarly
	// AlreadyFired means an earlier failsafe already handled the entry.
	AlreadyFired
	// UserElsewhere means the user moved to an unrelated app.
	UserElsewhere
	// Refocused means the editor was brought forward for approval.
	Refocused
)

func (o CheckIdleOutcome) String() string {
	switch o {
	case NoPending:
		return "no_pending"
	case TooEarly:
		return "too_early"
	case AlreadyFired:
		return "already_fired"
	case UserElsewhere:
		return "user_elsewhere"
	case Refocused:
		return "refocused"
	default:
		return "unknown"
	}
}

// CheckIdle runs in the detached failsafe process. If the shell entry for id
// is still there at least delay after it was saved, the command is assumed
// to be waiting for approval and the editor is brought forward. The refocus
// is skipped when the user has moved to an app that is neither the saved
// window's nor the editor; the entry is still stamped so no later run acts
// on it.
func (e *Engine) CheckIdle(ctx context.Context, id string, delay time.Duration) (CheckIdleOutcome, error) {
	key := state.ShellKey(id)
	shell, err := e.store.Load(ctx, key)
	if err != nil {
		return NoPending, err //nolint:wrapcheck // store errors are descriptive
	}
	if shell == nil {
		return NoPending, nil
	}
	if shell.FailsafeFiredAt != nil {
		return AlreadyFired, nil
	}
	if shell.Age(e.opts.Now()) < delay {
		return TooEarly, nil
	}

	if current := e.activeWindow(ctx); current != nil && !e.policy.ShouldForceRefocus(*shell, *current) {
		logging.Info(ctx, "user moved elsewhere, not refocusing", slog.String("current_app", current.AppName))
		if err := e.store.MarkFailsafeFired(ctx, key); err != nil {
			return UserElsewhere, err //nolint:wrapcheck // store errors are descriptive
		}
		return UserElsewhere, nil
	}

	update := status.Update{
		Status:         status.ApprovalNeeded,
		CursorState:    status.CursorWaiting,
		SecondaryApp:   shell.SavedWindow.AppName,
		SecondaryTitle: shell.SavedWindow.Title,
	}
	if e.isMediaApp(shell.SavedWindow) && e.media.PauseIfPlaying(ctx, shell.SavedWindow) {
		playing := false
		update.MediaPlaying = &playing
	}

	var remembered *window.Handle
	conv, err := e.store.Load(ctx, id)
	if err != nil {
		return NoPending, err //nolint:wrapcheck // store errors are descriptive
	}
	if conv != nil {
		remembered = conv.EditorWindow
	}
	if err := e.windows.FocusEditor(ctx, remembered); err != nil {
		logging.Warn(ctx, "failed to focus editor for approval", slog.String("error", err.Error()))
	}

	if err := e.store.MarkFailsafeFired(ctx, key); err != nil {
		return Refocused, err //nolint:wrapcheck // store errors are descriptive
	}
	e.status.Publish(ctx, update)
	logging.Info(ctx, "command appears to need approval, focused editor")
	return Refocused, nil
}

func (e *Engine) activeWindow(ctx context.Context) *window.Handle {
	h, err := e.windows.ActiveWindow(ctx)
	if err != nil {
		logging.Debug(ctx, "active window unavailable", slog.String("error", err.Error()))
		return nil
	}
	return h
}

func (e *Engine) previousWindow(ctx context.Context) *window.Handle {
	h, err := e.windows.PreviousWindow(ctx)
	if err != nil {
		logging.Debug(ctx, "previous window unavailable", slog.String("error", err.Error()))
		return nil
	}
	return h
}

func (e *Engine) isMediaApp(h window.Handle) bool {
	got := normalizeApp(h.AppName)
	if got == "" {
		return false
	}
	for _, app := range e.opts.MediaApps {
		want := normalizeApp(app)
		if want == "" {
			continue
		}
		// "Google Chrome" on macOS is "chrome" in /proc on Linux.
		if got == want || (len(got) >= minAppMatch && strings.Contains(want, got)) ||
			(len(want) >= minAppMatch && strings.Contains(got, want)) {
			return true
		}
	}
	return false
}

const minAppMatch = 4

func normalizeApp(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.':
			return -1
		}
		return unicode.ToLower(r)
	}, strings.TrimSuffix(strings.TrimSpace(name), ".exe"))
}

// classifyCommand labels a shell command using the editor's allowlist. The
// label is informational only.
func (e *Engine) classifyCommand(ctx context.Context, command string) string {
	if e.allowlist == nil || strings.TrimSpace(command) == "" {
		return ""
	}
	allowed, err := e.allowlist.IsAllowed(ctx, command)
	if err != nil {
		logging.Debug(ctx, "allowlist unavailable", slog.String("error", err.Error()))
		return ""
	}
	if allowed {
		return status.CursorAutoApproved
	}
	return status.CursorMayNeedApproval
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type noMedia struct{}

func (noMedia) PauseIfPlaying(context.Context, window.Handle) bool { return false }
func (noMedia) Resume(context.Context, window.Handle) bool         { return false }

type noScheduler struct{}

func (noScheduler) Schedule(context.Context, string, time.Duration) error { return nil }
