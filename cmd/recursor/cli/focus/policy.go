// Package focus decides where focus should go on each agent hook and drives
// the window, media, status and failsafe adapters to get it there.
package focus

import (
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

// Policy holds the pure focus decisions. It has no side effects.
type Policy struct {
	// EditorToken identifies editor windows, see window.Handle.IsEditor.
	EditorToken string
}

// SelectWindowToSave picks the window to remember when a prompt is
// submitted: the previous window if known, else the current one.
func (p Policy) SelectWindowToSave(current, previous *window.Handle) *window.Handle {
	if previous != nil {
		return previous
	}
	return current
}

// ShouldForceRefocus decides whether the failsafe may pull the user back to
// the editor. It never fights a user who moved to an unrelated app.
func (p Policy) ShouldForceRefocus(conv state.ConversationState, current window.Handle) bool {
	if conv.UserSwitched {
		return false
	}
	if current.IsEditor(p.EditorToken) {
		return true
	}
	if !current.SameApp(conv.SavedWindow) {
		return false
	}
	return true
}

// SecondaryWindowForShell picks the window to return to after a shell
// command. If the user is in the editor, behind supplies the window behind it.
func (p Policy) SecondaryWindowForShell(current *window.Handle, behind func() *window.Handle) *window.Handle {
	if current != nil && current.IsEditor(p.EditorToken) {
		return behind()
	}
	return current
}
