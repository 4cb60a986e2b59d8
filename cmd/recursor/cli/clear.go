package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/validation"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// TestTTYEnvVar forces interactive detection on or off ("1" / "0").
const TestTTYEnvVar = "RECURSOR_TEST_TTY"

// canPrompt reports whether stdin is a terminal a confirmation can be read
// from.
func canPrompt() bool {
	switch os.Getenv(TestTTYEnvVar) {
	case "0":
		return false
	case "1":
		return true
	}
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}

func newClearCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear [conversation-id]",
		Short: "Forget saved windows for one conversation, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.stateStore()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				id := args[0]
				if err := validation.ValidateConversationID(id); err != nil {
					return err //nolint:wrapcheck // already descriptive
				}
				for _, key := range []string{id, state.ShellKey(id)} {
					if err := store.Clear(ctx, key); err != nil {
						return err //nolint:wrapcheck // already descriptive
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation %s\n", id)
				return nil
			}

			if !force {
				if !canPrompt() {
					return errors.New("refusing to clear all state without a terminal; pass --force")
				}
				confirmed := false
				form := huh.NewConfirm().
					Title("Forget every saved window?").
					Affirmative("Clear").
					Negative("Cancel").
					Value(&confirmed)
				if err := form.Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return fmt.Errorf("confirmation failed: %w", err)
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing cleared.")
					return nil
				}
			}

			if err := store.ClearAll(ctx); err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared all conversations.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Clear everything without asking")
	return cmd
}
