package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/agent/cursor"
	"github.com/recursorhq/recursor/cmd/recursor/cli/failsafe"
	"github.com/recursorhq/recursor/cmd/recursor/cli/focus"
	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/settings"
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/validation"

	"github.com/spf13/cobra"
)

// hookContext holds common state for one hook invocation.
type hookContext struct {
	app      *app
	hookName string
	ctx      context.Context
	start    time.Time
	settings *settings.RecursorSettings
	closeLog func()
}

// newHookContext loads settings and opens the log file. Settings problems
// never stop a hook; the defaults are used instead.
func (a *app) newHookContext(ctx context.Context, hookName string) *hookContext {
	ctx = logging.WithComponent(ctx, "hooks")
	ctx = logging.WithHook(ctx, hookName)
	s := settings.LoadOrDefault(ctx)
	return &hookContext{
		app:      a,
		hookName: hookName,
		ctx:      ctx,
		start:    time.Now(),
		settings: s,
		closeLog: initHookLogging(ctx, s),
	}
}

// initHookLogging routes logs to <home>/logs/recursor.log. Returns a cleanup
// function that should be deferred.
func initHookLogging(ctx context.Context, s *settings.RecursorSettings) func() {
	dir, err := paths.LogsDir()
	if err != nil {
		return func() {}
	}
	if err := logging.Init(ctx, dir, s.LogLevel); err != nil {
		// Init failed - logging will use stderr fallback
		return func() {}
	}
	return logging.Close
}

func (h *hookContext) close() {
	if h.closeLog != nil {
		h.closeLog()
	}
}

// conversation validates id, falling back to the default id for values that
// cannot be used as a state key, and tags the log context with it.
func (h *hookContext) conversation(id string) string {
	err := validation.ValidateConversationID(id)
	if err == nil {
		// The shell entry key must fit the same limits as the id.
		err = validation.ValidateConversationID(state.ShellKey(id))
	}
	if err != nil {
		logging.Warn(h.ctx, "unusable conversation id, using default", slog.String("error", err.Error()))
		id = cursor.DefaultConversationID
	}
	h.ctx = logging.WithConversation(h.ctx, id)
	return id
}

// logInvoked logs that the hook was invoked.
func (h *hookContext) logInvoked(extraAttrs ...any) {
	attrs := []any{
		slog.String("hook_type", "cursor"),
		slog.Bool("enabled", h.settings.Enabled),
	}
	logging.Debug(h.ctx, h.hookName+" hook invoked", append(attrs, extraAttrs...)...)
}

// logCompleted logs hook completion with duration at DEBUG level.
func (h *hookContext) logCompleted(err error, extraAttrs ...any) {
	attrs := []any{
		slog.String("hook_type", "cursor"),
		slog.Bool("success", err == nil),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logging.LogDuration(h.ctx, slog.LevelDebug, h.hookName+" hook completed", h.start, append(attrs, extraAttrs...)...)
}

// run builds the engine and calls fn, unless recursor is disabled.
func (h *hookContext) run(fn func(*focus.Engine) error) error {
	if !h.settings.Enabled {
		logging.Debug(h.ctx, "recursor disabled, skipping")
		return nil
	}
	engine, err := h.app.newEngine(h.ctx, h.settings)
	if err != nil {
		return err
	}
	return fn(engine)
}

func newSaveCmd(a *app) *cobra.Command {
	var noFocus bool
	cmd := &cobra.Command{
		Use:   cursor.HookNameSave,
		Short: "Handle beforeSubmitPrompt: remember where you were and send you there",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := a.newHookContext(cmd.Context(), cursor.HookNameSave)
			defer h.close()

			input := cursor.ReadHookInput[cursor.BeforeSubmitPromptInput](h.ctx, cmd.InOrStdin())
			id := h.conversation(input.GetConversationID())
			h.logInvoked(slog.Int("prompt_length", len(input.Prompt)), slog.Bool("no_focus", noFocus))

			hookErr := h.run(func(e *focus.Engine) error {
				return e.Save(h.ctx, id, noFocus)
			})
			h.logCompleted(hookErr)
			if hookErr != nil {
				return hookErr
			}
			return cursor.WriteOutput(cmd.OutOrStdout(), cursor.BeforeSubmitPromptOutput{Continue: true})
		},
	}
	cmd.Flags().BoolVar(&noFocus, "no-focus", false, "Remember the window but do not switch to it")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   cursor.HookNameRestore,
		Short: "Handle stop: bring the editor back and forget the conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := a.newHookContext(cmd.Context(), cursor.HookNameRestore)
			defer h.close()

			input := cursor.ReadHookInput[cursor.StopInput](h.ctx, cmd.InOrStdin())
			id := h.conversation(input.GetConversationID())
			h.logInvoked(slog.String("status", input.Status), slog.Int("loop_count", input.LoopCount))

			hookErr := h.run(func(e *focus.Engine) error {
				return e.Restore(h.ctx, id)
			})
			h.logCompleted(hookErr)
			if hookErr != nil {
				return hookErr
			}
			return cursor.WriteOutput(cmd.OutOrStdout(), cursor.StopOutput{})
		},
	}
}

func newBeforeShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   cursor.HookNameBeforeShell,
		Short: "Handle beforeShellExecution: arm the approval failsafe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := a.newHookContext(cmd.Context(), cursor.HookNameBeforeShell)
			defer h.close()

			input := cursor.ReadHookInput[cursor.BeforeShellInput](h.ctx, cmd.InOrStdin())
			id := h.conversation(input.GetConversationID())
			h.logInvoked(slog.String("cwd", input.Cwd))

			hookErr := h.run(func(e *focus.Engine) error {
				return e.BeforeShell(h.ctx, id, input.Command)
			})
			h.logCompleted(hookErr)
			if hookErr != nil {
				return hookErr
			}
			return cursor.WriteOutput(cmd.OutOrStdout(), cursor.ShellPermissionOutput{Permission: cursor.PermissionAllow})
		},
	}
}

func newAfterShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   cursor.HookNameAfterShell,
		Short: "Handle afterShellExecution: return to the window you were using",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := a.newHookContext(cmd.Context(), cursor.HookNameAfterShell)
			defer h.close()

			input := cursor.ReadHookInput[cursor.AfterShellInput](h.ctx, cmd.InOrStdin())
			id := h.conversation(input.GetConversationID())
			h.logInvoked(slog.Float64("duration", input.Duration))

			hookErr := h.run(func(e *focus.Engine) error {
				return e.AfterShell(h.ctx, id)
			})
			h.logCompleted(hookErr)
			if hookErr != nil {
				return hookErr
			}
			return cursor.WriteOutput(cmd.OutOrStdout(), cursor.EmptyOutput{})
		},
	}
}

func newCheckIdleCmd(a *app) *cobra.Command {
	var delaySeconds int
	cmd := &cobra.Command{
		Use:    failsafe.CheckIdleCommand + " [--delay seconds] -- <conversation-id>",
		Short:  "Failsafe: focus the editor if a shell command is still pending",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if delaySeconds < 0 {
				return fmt.Errorf("--delay must not be negative, got %d", delaySeconds)
			}
			h := a.newHookContext(cmd.Context(), failsafe.CheckIdleCommand)
			defer h.close()

			id := h.conversation(args[0])
			delay := time.Duration(delaySeconds) * time.Second
			h.logInvoked(slog.Int("delay_seconds", delaySeconds), slog.Bool("detached", failsafe.InFailsafe()))

			if !failsafe.Wait(h.ctx, delay) {
				h.logCompleted(h.ctx.Err())
				return nil
			}

			outcome := focus.NoPending
			hookErr := h.run(func(e *focus.Engine) error {
				var err error
				outcome, err = e.CheckIdle(h.ctx, id, delay)
				return err //nolint:wrapcheck // engine errors are descriptive
			})
			h.logCompleted(hookErr, slog.String("outcome", outcome.String()))
			if hookErr != nil {
				return hookErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
	cmd.Flags().IntVar(&delaySeconds, "delay", settings.DefaultFailsafeDelaySeconds, "Seconds to wait before checking")
	return cmd
}
