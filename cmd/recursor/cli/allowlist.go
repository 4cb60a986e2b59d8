package cli

import (
	"fmt"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/allowlist"
	"github.com/recursorhq/recursor/cmd/recursor/cli/settings"

	"github.com/spf13/cobra"
)

func newAllowlistCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "allowlist [command...]",
		Short: "Show the editor's auto-run allowlist, or whether a command matches it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := settings.Load(ctx)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			path, err := allowlistPath(s)
			if err != nil {
				return err
			}
			list, err := allowlist.Load(ctx, path)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				if len(list) == 0 {
					fmt.Fprintln(w, "The allowlist is empty.")
					return nil
				}
				for _, entry := range list {
					fmt.Fprintln(w, entry)
				}
				return nil
			}

			command := strings.Join(args, " ")
			if entry, ok := allowlist.Match(command, list); ok {
				fmt.Fprintf(w, "allowed (matches %q)\n", entry)
			} else {
				fmt.Fprintln(w, "not allowed")
			}
			return nil
		},
	}
}
