package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/recursorhq/recursor/cmd/recursor/cli/agent/cursor"
	"github.com/recursorhq/recursor/cmd/recursor/cli/allowlist"
	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/settings"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"

	"github.com/spf13/cobra"
)

func newPermissionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions",
		Short: "Check that recursor can see and switch windows",
		Long: `Probe each capability recursor relies on and report whether it works.

On macOS, window access needs the Accessibility permission for the terminal
or editor that runs the hooks. On Linux, an X11 session with xdotool is
required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := settings.Load(ctx)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			w := cmd.OutOrStdout()

			results := a.desktop(s).Probe(ctx)
			results = append(results, probeAllowlist(cmd, s), probeHooks())
			writeProbeResults(w, results)

			for _, r := range results {
				if !r.OK {
					return errors.New("some capabilities are unavailable")
				}
			}
			return nil
		},
	}
}

func probeAllowlist(cmd *cobra.Command, s *settings.RecursorSettings) window.ProbeResult {
	r := window.ProbeResult{Name: "command allowlist"}
	path, err := allowlistPath(s)
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	list, err := allowlist.Load(cmd.Context(), path)
	switch {
	case errors.Is(err, allowlist.ErrNotFound):
		// Not fatal: the editor may simply never have run.
		r.OK = true
		r.Detail = "no editor database at " + path
	case err != nil:
		r.Detail = err.Error()
	default:
		r.OK = true
		r.Detail = fmt.Sprintf("%d entries", len(list))
	}
	return r
}

func probeHooks() window.ProbeResult {
	r := window.ProbeResult{Name: "hooks"}
	path, err := paths.GlobalHooksFile()
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	// Missing hooks are reported but do not fail the probe; project-level
	// installs live elsewhere.
	r.OK = true
	if cursor.NewInstaller(path, "").AreHooksInstalled() {
		r.Detail = "installed in " + path
	} else {
		r.Detail = "not installed in " + path + " (run recursor install)"
	}
	return r
}

func writeProbeResults(w io.Writer, results []window.ProbeResult) {
	for _, r := range results {
		mark := "ok  "
		if !r.OK {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %-16s %s\n", mark, r.Name, r.Detail)
	}
}
