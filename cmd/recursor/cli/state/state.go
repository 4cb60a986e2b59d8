// Package state persists per-conversation focus snapshots.
//
// The whole table lives in one JSON file that every hook process reads in
// full and replaces atomically. There is no in-process locking: hook
// invocations are separate processes and the last rename wins.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/jsonutil"
	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
	"github.com/recursorhq/recursor/cmd/recursor/cli/validation"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"
)

// StaleAfter is the age at which an entry is discarded on load.
const StaleAfter = time.Hour

// ShellSuffix namespaces the shell-command entry of a conversation.
const ShellSuffix = "_shell"

// ShellKey returns the table key for the shell entry of conversation id.
func ShellKey(id string) string {
	return id + ShellSuffix
}

// ConversationState is the snapshot saved for one key.
type ConversationState struct {
	// SavedWindow is where to send the user while the agent works.
	SavedWindow window.Handle `json:"saved_window" yaml:"saved_window"`
	// EditorWindow is the editor window active at save time. Nil means any
	// editor window will do.
	EditorWindow *window.Handle `json:"editor_window,omitempty" yaml:"editor_window,omitempty"`
	SavedAt      time.Time      `json:"saved_at" yaml:"saved_at"`
	// UserSwitched is reserved. Nothing sets it yet, but ShouldForceRefocus
	// honours it so that detection can be added without a format change.
	UserSwitched bool `json:"user_switched" yaml:"user_switched"`
	// FailsafeFiredAt is set once check-idle has acted on this entry.
	FailsafeFiredAt *time.Time `json:"failsafe_fired_at,omitempty" yaml:"failsafe_fired_at,omitempty"`
}

// Age returns how long ago the entry was saved.
func (c ConversationState) Age(now time.Time) time.Duration {
	return now.Sub(c.SavedAt)
}

// IsStale reports whether the entry is at least StaleAfter old.
func (c ConversationState) IsStale(now time.Time) bool {
	return c.Age(now) >= StaleAfter
}

// fileFormat is the persisted layout.
type fileFormat struct {
	Conversations map[string]ConversationState `json:"conversations"`
}

// Store reads and writes the state table at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. Tests use it to control staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store backed by path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Save records a fresh snapshot for id, replacing any previous one.
func (s *Store) Save(ctx context.Context, id string, saved window.Handle, editor *window.Handle) error {
	if err := validation.ValidateConversationID(id); err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	table, err := s.loadAndSweep(ctx)
	if err != nil {
		return err
	}
	entry := ConversationState{
		SavedWindow: saved,
		SavedAt:     s.now().UTC(),
	}
	if editor != nil {
		e := *editor
		entry.EditorWindow = &e
	}
	table[id] = entry
	if err := s.write(table); err != nil {
		return fmt.Errorf("failed to save state for %s: %w", id, err)
	}
	logging.Debug(ctx, "state saved",
		slog.String("key", id),
		slog.String("app", saved.AppName),
	)
	return nil
}

// Load returns the live entry for id, or nil when absent or stale.
func (s *Store) Load(ctx context.Context, id string) (*ConversationState, error) {
	table, err := s.loadAndSweep(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := table[id]
	if !ok {
		return nil, nil //nolint:nilnil // absent is not an error
	}
	return &entry, nil
}

// Clear removes the entry for id. Absent ids are a no-op.
func (s *Store) Clear(ctx context.Context, id string) error {
	table, err := s.loadAndSweep(ctx)
	if err != nil {
		return err
	}
	if _, ok := table[id]; !ok {
		return nil
	}
	delete(table, id)
	if err := s.write(table); err != nil {
		return fmt.Errorf("failed to clear state for %s: %w", id, err)
	}
	return nil
}

// ClearAll deletes the backing file. A missing file is a no-op.
func (s *Store) ClearAll(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// ListAll returns every live entry.
func (s *Store) ListAll(ctx context.Context) (map[string]ConversationState, error) {
	return s.loadAndSweep(ctx)
}

// MarkFailsafeFired stamps the entry for id so later check-idle runs leave
// it alone. SavedAt is preserved. Absent ids are a no-op.
func (s *Store) MarkFailsafeFired(ctx context.Context, id string) error {
	table, err := s.loadAndSweep(ctx)
	if err != nil {
		return err
	}
	entry, ok := table[id]
	if !ok {
		return nil
	}
	firedAt := s.now().UTC()
	entry.FailsafeFiredAt = &firedAt
	table[id] = entry
	if err := s.write(table); err != nil {
		return fmt.Errorf("failed to mark failsafe for %s: %w", id, err)
	}
	return nil
}

// loadAndSweep reads the table and drops stale entries. Unreadable or
// corrupt files yield an empty table. If anything was dropped the pruned
// table is written back; a failed write is logged, not returned. The
// returned map is never nil.
func (s *Store) loadAndSweep(ctx context.Context) (map[string]ConversationState, error) {
	table := s.read(ctx)

	now := s.now()
	removed := 0
	for id, entry := range table {
		if entry.IsStale(now) {
			delete(table, id)
			removed++
		}
	}

	if removed > 0 {
		if err := s.write(table); err != nil {
			logging.Warn(ctx, "failed to persist swept state",
				slog.Int("removed", removed),
				slog.String("error", err.Error()),
			)
		} else {
			logging.Debug(ctx, "swept stale state entries", slog.Int("removed", removed))
		}
	}
	return table, nil
}

func (s *Store) read(ctx context.Context) map[string]ConversationState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Warn(ctx, "failed to read state file, starting empty",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		return make(map[string]ConversationState)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		logging.Warn(ctx, "state file is corrupt, starting empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return make(map[string]ConversationState)
	}
	if f.Conversations == nil {
		return make(map[string]ConversationState)
	}
	return f.Conversations
}

func (s *Store) write(table map[string]ConversationState) error {
	return jsonutil.WriteJSONAtomic(s.path, fileFormat{Conversations: table}, 0o600) //nolint:wrapcheck // callers wrap
}
