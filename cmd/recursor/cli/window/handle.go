// Package window describes desktop windows and moves focus between them.
//
// Handle is the platform-neutral snapshot of a window. Provider is the narrow
// per-OS capability (query active/previous window, list editor windows,
// focus). Desktop layers editor-window matching on top of a Provider and is
// what the hook engine talks to.
package window

import (
	"fmt"
	"strings"
)

// DefaultEditorToken identifies editor windows by app name.
const DefaultEditorToken = "cursor"

// Handle identifies a desktop window. Two handles are the same window iff
// all fields are equal.
type Handle struct {
	// PID of the owning process, 0 if unknown.
	PID int `json:"pid" yaml:"pid"`
	// WindowID is opaque and only meaningful to the provider that produced it.
	WindowID string `json:"window_id" yaml:"window_id"`
	AppName  string `json:"app_name" yaml:"app_name"`
	Title    string `json:"title" yaml:"title"`
}

// IsEditor reports whether the window belongs to the editor, by a
// case-insensitive substring match of token against the app name.
func (h Handle) IsEditor(token string) bool {
	if token == "" {
		token = DefaultEditorToken
	}
	return strings.Contains(strings.ToLower(h.AppName), strings.ToLower(token))
}

// IsZero reports whether h carries no information at all.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// SameApp reports whether h and other belong to the same application.
func (h Handle) SameApp(other Handle) bool {
	return h.AppName == other.AppName
}

func (h Handle) String() string {
	if h.Title == "" {
		return fmt.Sprintf("%s (pid %d)", h.AppName, h.PID)
	}
	return fmt.Sprintf("%s - %q (pid %d)", h.AppName, h.Title, h.PID)
}

// ProjectName extracts the workspace name from an editor title of the form
// "file - Project - Editor" or "Project - Editor". Returns "" when the title
// does not follow that shape.
func ProjectName(title string) string {
	parts := strings.Split(title, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch {
	case len(parts) >= 3:
		return parts[len(parts)-2]
	case len(parts) == 2:
		return strings.TrimPrefix(parts[0], "● ")
	default:
		return ""
	}
}

// BestEditorMatch picks the candidate that best corresponds to a remembered
// editor window. Tiers, first hit wins: exact window id, same project name,
// same full title. Within a tier the earliest candidate wins. Returns nil
// when nothing matches.
func BestEditorMatch(candidates []Handle, remembered Handle) *Handle {
	if remembered.WindowID != "" {
		for i := range candidates {
			if candidates[i].WindowID == remembered.WindowID {
				return &candidates[i]
			}
		}
	}

	if project := ProjectName(remembered.Title); project != "" {
		for i := range candidates {
			if ProjectName(candidates[i].Title) == project {
				return &candidates[i]
			}
		}
	}

	if remembered.Title != "" {
		for i := range candidates {
			if candidates[i].Title == remembered.Title {
				return &candidates[i]
			}
		}
	}

	return nil
}
