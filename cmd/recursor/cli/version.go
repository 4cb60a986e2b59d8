package cli

import (
	"fmt"
	"runtime"

	"github.com/recursorhq/recursor/cmd/recursor/cli/versioninfo"

	"github.com/spf13/cobra"
)

func versionString() string {
	return fmt.Sprintf("recursor %s (%s)\nGo version: %s\nOS/Arch: %s/%s",
		versioninfo.Version, versioninfo.Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}
