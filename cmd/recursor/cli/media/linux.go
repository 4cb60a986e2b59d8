//go:build linux

package media

import (
	"context"
	"log/slog"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPath           = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisIdentity       = "org.mpris.MediaPlayer2.Identity"
	mprisPlaybackStatus = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	mprisPause          = "org.mpris.MediaPlayer2.Player.Pause"
	mprisPlay           = "org.mpris.MediaPlayer2.Player.Play"
)

// mprisController drives players over the session bus.
type mprisController struct{}

func newPlatformController() Controller {
	return mprisController{}
}

func (m mprisController) PauseIfPlaying(ctx context.Context, h window.Handle) bool {
	return m.transition(ctx, h, "Playing", mprisPause)
}

func (m mprisController) Resume(ctx context.Context, h window.Handle) bool {
	return m.transition(ctx, h, "Paused", mprisPlay)
}

// transition calls method on the first player of h's app whose playback
// status is from.
func (mprisController) transition(ctx context.Context, h window.Handle, from, method string) bool {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		logging.Debug(ctx, "session bus unavailable", slog.String("error", err.Error()))
		return false
	}
	defer conn.Close()

	var names []string
	if err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		logging.Debug(ctx, "failed to list bus names", slog.String("error", err.Error()))
		return false
	}

	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		obj := conn.Object(name, mprisPath)
		if !matchesPlayer(h.AppName, name, stringProperty(obj, mprisIdentity)) {
			continue
		}
		if stringProperty(obj, mprisPlaybackStatus) != from {
			continue
		}
		if err := obj.CallWithContext(ctx, method, 0).Err; err != nil {
			logging.Debug(ctx, "media call failed",
				slog.String("player", name),
				slog.String("method", method),
				slog.String("error", err.Error()),
			)
			continue
		}
		logging.Debug(ctx, "media call succeeded", slog.String("player", name), slog.String("method", method))
		return true
	}
	return false
}

func stringProperty(obj dbus.BusObject, prop string) string {
	v, err := obj.GetProperty(prop)
	if err != nil {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}
