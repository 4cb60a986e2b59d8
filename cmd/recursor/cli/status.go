package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/settings"
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/status"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// outputFormat is the --output flag value.
type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

var _ pflag.Value = (*outputFormat)(nil)

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(s string) error {
	switch v := outputFormat(strings.ToLower(s)); v {
	case formatText, formatJSON, formatYAML:
		*f = v
		return nil
	default:
		return fmt.Errorf("must be one of text, json, yaml; got %q", s)
	}
}

func (f *outputFormat) Type() string { return "format" }

// statusReport is what `recursor status` prints.
type statusReport struct {
	Enabled       bool                               `json:"enabled" yaml:"enabled"`
	Home          string                             `json:"home" yaml:"home"`
	Status        *status.Payload                    `json:"status,omitempty" yaml:"status,omitempty"`
	Conversations map[string]state.ConversationState `json:"conversations" yaml:"conversations"`
}

// statusDebounce coalesces the burst of events one atomic write produces.
const statusDebounce = 100 * time.Millisecond

func newStatusCmd(a *app) *cobra.Command {
	format := formatText
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what recursor is doing and the conversations it remembers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := settings.Load(ctx)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			render := func() error {
				report, err := a.buildStatusReport(ctx, s)
				if err != nil {
					return err
				}
				return writeStatusReport(cmd.OutOrStdout(), report, format, a.clock()())
			}
			if err := render(); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchHome(ctx, render)
		},
	}
	cmd.Flags().VarP(&format, "output", "o", "Output format: text, json or yaml")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Print again whenever the status or state file changes")
	return cmd
}

func (a *app) buildStatusReport(ctx context.Context, s *settings.RecursorSettings) (*statusReport, error) {
	home, err := paths.Home()
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	store, err := a.stateStore()
	if err != nil {
		return nil, err
	}
	conversations, err := store.ListAll(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	report := &statusReport{Enabled: s.Enabled, Home: home, Conversations: conversations}
	statusPath, err := paths.StatusFile()
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	if payload, err := status.Read(statusPath); err == nil {
		report.Status = payload
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	return report, nil
}

func writeStatusReport(w io.Writer, r *statusReport, format outputFormat, now time.Time) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r) //nolint:wrapcheck // writer errors are descriptive
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close() //nolint:wrapcheck // flush only
	default:
		writeStatusText(w, r, now)
		return nil
	}
}

func writeStatusText(w io.Writer, r *statusReport, now time.Time) {
	if !r.Enabled {
		fmt.Fprintln(w, "Recursor is disabled (enabled: false).")
	}

	if r.Status == nil {
		fmt.Fprintln(w, "Status: unknown (no hook has run yet)")
	} else {
		updated := time.Unix(r.Status.Timestamp, 0)
		fmt.Fprintf(w, "Status: %s (%s)\n", r.Status.Status, humanize.RelTime(updated, now, "ago", "from now"))
		if r.Status.CursorState != "" {
			fmt.Fprintf(w, "  editor: %s\n", r.Status.CursorState)
		}
		if r.Status.SecondaryApp != "" {
			fmt.Fprintf(w, "  window: %s %q\n", r.Status.SecondaryApp, r.Status.SecondaryTitle)
		}
		if r.Status.MediaPlaying != nil {
			fmt.Fprintf(w, "  media playing: %t\n", *r.Status.MediaPlaying)
		}
	}

	if len(r.Conversations) == 0 {
		fmt.Fprintln(w, "No remembered conversations.")
		return
	}
	ids := make([]string, 0, len(r.Conversations))
	for id := range r.Conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(w, "Conversations (%d):\n", len(ids))
	for _, id := range ids {
		c := r.Conversations[id]
		fmt.Fprintf(w, "  %s  saved %s  -> %s\n", id, humanize.RelTime(c.SavedAt, now, "ago", "from now"), c.SavedWindow)
		if c.EditorWindow != nil {
			fmt.Fprintf(w, "      editor: %s\n", c.EditorWindow)
		}
		if c.FailsafeFiredAt != nil {
			fmt.Fprintf(w, "      failsafe fired %s\n", humanize.RelTime(*c.FailsafeFiredAt, now, "ago", "from now"))
		}
	}
}

// watchHome calls fn whenever the state or status file changes, until ctx
// is cancelled.
func watchHome(ctx context.Context, fn func() error) error {
	home, err := paths.Home()
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	if err := os.MkdirAll(home, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory; both files are replaced by rename.
	if err := watcher.Add(home); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	watched := map[string]bool{paths.StateFileName: true, paths.StatusFileName: true}
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce = time.After(statusDebounce)
		case <-debounce:
			debounce = nil
			if err := fn(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", home, err)
		}
	}
}
