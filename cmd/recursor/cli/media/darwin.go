//go:build darwin

package media

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

// browserController runs JavaScript in YouTube tabs through AppleScript.
// Only Chromium-family browsers expose that.
type browserController struct{}

func newPlatformController() Controller {
	return browserController{}
}

func (b browserController) PauseIfPlaying(ctx context.Context, h window.Handle) bool {
	return b.run(ctx, h, pauseJS, "paused")
}

func (b browserController) Resume(ctx context.Context, h window.Handle) bool {
	return b.run(ctx, h, resumeJS, "resumed")
}

func (browserController) run(ctx context.Context, h window.Handle, js, want string) bool {
	browser, ok := scriptableBrowser(h.AppName)
	if !ok {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "osascript", "-e", tabScript(browser, js, want)).Output()
	if err != nil {
		logging.Debug(ctx, "browser script failed",
			slog.String("app", browser),
			slog.String("error", err.Error()),
		)
		return false
	}
	return strings.TrimSpace(string(out)) == want
}
