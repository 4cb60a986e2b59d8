// Package status publishes a small JSON file describing what recursor is
// doing. A menu-bar companion app polls it.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/jsonutil"
	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
)

// Status values.
const (
	Working        = "working"
	Idle           = "idle"
	Shell          = "shell"
	ApprovalNeeded = "approval_needed"
)

// Editor states reported alongside the status.
const (
	CursorAutoApproved    = "auto_approved"
	CursorMayNeedApproval = "may_need_approval"
	CursorWaiting         = "waiting_for_approval"
)

// Update is what a hook wants to report.
type Update struct {
	Status         string
	CursorState    string
	SecondaryApp   string
	SecondaryTitle string
	MediaPlaying   *bool
}

// Payload is the on-disk shape. Window duplicates SecondaryTitle for older
// readers.
type Payload struct {
	Status         string `json:"status" yaml:"status"`
	Timestamp      int64  `json:"timestamp" yaml:"timestamp"`
	CursorState    string `json:"cursor_state,omitempty" yaml:"cursor_state,omitempty"`
	SecondaryApp   string `json:"secondary_app,omitempty" yaml:"secondary_app,omitempty"`
	SecondaryTitle string `json:"secondary_title,omitempty" yaml:"secondary_title,omitempty"`
	Window         string `json:"window,omitempty" yaml:"window,omitempty"`
	MediaPlaying   *bool  `json:"media_playing,omitempty" yaml:"media_playing,omitempty"`
}

// BuildPayload turns an update into the file payload stamped with now.
func BuildPayload(u Update, now time.Time) Payload {
	return Payload{
		Status:         u.Status,
		Timestamp:      now.Unix(),
		CursorState:    u.CursorState,
		SecondaryApp:   u.SecondaryApp,
		SecondaryTitle: u.SecondaryTitle,
		Window:         u.SecondaryTitle,
		MediaPlaying:   u.MediaPlaying,
	}
}

// FilePublisher writes the status file atomically. Failures are logged and
// otherwise ignored.
type FilePublisher struct {
	path string
	now  func() time.Time
}

func NewFilePublisher(path string) *FilePublisher {
	return &FilePublisher{path: path, now: time.Now}
}

func (p *FilePublisher) Publish(ctx context.Context, u Update) {
	payload := BuildPayload(u, p.now())
	if err := jsonutil.WriteJSONAtomic(p.path, payload, 0o600); err != nil {
		logging.Warn(ctx, "failed to publish status",
			slog.String("status", u.Status),
			slog.String("error", err.Error()),
		)
		return
	}
	logging.Debug(ctx, "status published", slog.String("status", u.Status))
}

// Read loads the current status file.
func Read(path string) (*Payload, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from paths package
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse status file: %w", err)
	}
	return &p, nil
}

// Discard drops every update. Used when status publishing is disabled.
type Discard struct{}

func (Discard) Publish(context.Context, Update) {}
