// Package cli wires recursor's cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

const rootLong = `Recursor keeps you in flow while a Cursor agent works.

When you submit a prompt it sends you back to the window you were using.
When the agent stops, or a shell command is waiting for your approval, it
brings the editor forward again.

Run "recursor install" to register the hooks with Cursor.`

// NewRootCmd returns the recursor command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithApp(&app{})
}

func newRootCmdWithApp(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "recursor",
		Short:         "Focus orchestration for Cursor agent hooks",
		Long:          rootLong,
		Version:       versionString(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(newSaveCmd(a))
	cmd.AddCommand(newRestoreCmd(a))
	cmd.AddCommand(newBeforeShellCmd(a))
	cmd.AddCommand(newAfterShellCmd(a))
	cmd.AddCommand(newCheckIdleCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newClearCmd(a))
	cmd.AddCommand(newPermissionsCmd(a))
	cmd.AddCommand(newAllowlistCmd(a))
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
