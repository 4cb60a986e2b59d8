// Package media pauses and resumes playback in the app the user is being
// moved away from or back to. Every operation is best effort and reports
// only whether something changed.
package media

import (
	"context"
	"strings"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

// callTimeout bounds one pause or resume attempt.
const callTimeout = 2 * time.Second

// Controller pauses and resumes playback for the app owning a window.
type Controller interface {
	PauseIfPlaying(ctx context.Context, h window.Handle) bool
	Resume(ctx context.Context, h window.Handle) bool
}

// New returns the platform controller, or Disabled when enabled is false.
func New(enabled bool) Controller {
	if !enabled {
		return Disabled{}
	}
	return newPlatformController()
}

// Disabled never touches playback.
type Disabled struct{}

func (Disabled) PauseIfPlaying(context.Context, window.Handle) bool { return false }
func (Disabled) Resume(context.Context, window.Handle) bool         { return false }

// matchesPlayer reports whether an MPRIS player belongs to appName. Players
// are identified by their bus name suffix ("chromium.instance123") and
// their Identity property ("Mozilla Firefox").
func matchesPlayer(appName, busName, identity string) bool {
	app := squash(appName)
	return looseEqual(app, squash(identity)) || looseEqual(app, playerSegment(busName))
}

// looseEqual matches equal names, or names of at least four letters where
// one contains the other.
func looseEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return len(a) >= 4 && len(b) >= 4 && (strings.Contains(a, b) || strings.Contains(b, a))
}

// playerSegment returns the player part of an MPRIS bus name.
func playerSegment(busName string) string {
	rest, ok := strings.CutPrefix(busName, mprisPrefix)
	if !ok {
		return ""
	}
	if i := strings.Index(rest, "."); i >= 0 {
		rest = rest[:i]
	}
	return squash(rest)
}

const mprisPrefix = "org.mpris.MediaPlayer2."

func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// chromiumFamily are macOS browsers sharing Chrome's scripting dictionary,
// which can run JavaScript in a tab.
var chromiumFamily = []string{"Google Chrome", "Chromium", "Brave Browser", "Microsoft Edge"}

func scriptableBrowser(appName string) (string, bool) {
	for _, b := range chromiumFamily {
		if strings.EqualFold(b, strings.TrimSpace(appName)) {
			return b, true
		}
	}
	return "", false
}

// tabScript builds an AppleScript that runs js in every YouTube watch tab of
// browser and returns want if any tab reported it.
func tabScript(browser, js, want string) string {
	return `tell application "` + browser + `"
	repeat with win in (every window)
		set activeTab to active tab of win
		if (URL of activeTab) contains "youtube.com/watch" then
			try
				set jsResult to execute activeTab javascript "` + js + `"
				if jsResult is "` + want + `" then
					return "` + want + `"
				end if
			end try
		end if
	end repeat
	return "none"
end tell`
}

const (
	pauseJS  = `(function(){var v=document.querySelector('video');if(v&&!v.paused){v.pause();return 'paused';}return 'not_playing';})();`
	resumeJS = `(function(){var v=document.querySelector('video');if(v&&v.paused){v.play();return 'resumed';}return 'already_playing';})();`
)
