package cli

import (
	"fmt"
	"os"

	"github.com/recursorhq/recursor/cmd/recursor/cli/agent/cursor"
	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"

	"github.com/spf13/cobra"
)

// hooksFilePath returns the project or user-level hooks.json.
func hooksFilePath(project bool) (string, error) {
	if !project {
		return paths.GlobalHooksFile() //nolint:wrapcheck // already descriptive
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return paths.ProjectHooksFile(cwd), nil
}

func newInstallCmd() *cobra.Command {
	var project, force bool
	var command string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register recursor's hooks with Cursor",
		Long: `Add recursor to Cursor's hooks.json.

By default the user-level file under the recursor home is updated. With
--project the hooks go into .cursor/hooks.json in the current directory.
Hooks belonging to other tools are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := hooksFilePath(project)
			if err != nil {
				return err
			}
			count, err := cursor.NewInstaller(path, command).Install(cmd.Context(), force)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			w := cmd.OutOrStdout()
			if count == 0 {
				fmt.Fprintf(w, "Hooks already installed in %s\n", path)
				return nil
			}
			fmt.Fprintf(w, "Installed %d hooks in %s\n", count, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Install into .cursor/hooks.json in the current directory")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace existing recursor hooks")
	cmd.Flags().StringVar(&command, "command", "", "Executable to run from the hooks (default \"recursor\" on PATH)")
	return cmd
}

func newUninstallCmd() *cobra.Command {
	var project bool
	var command string

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove recursor's hooks from Cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := hooksFilePath(project)
			if err != nil {
				return err
			}
			removed, err := cursor.NewInstaller(path, command).Uninstall(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			if removed == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No recursor hooks found in %s\n", path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d hooks from %s\n", removed, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Uninstall from .cursor/hooks.json in the current directory")
	cmd.Flags().StringVar(&command, "command", "", "Executable the hooks were installed with")
	return cmd
}
