package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/recursorhq/recursor/cmd/recursor/cli/paths"
	"github.com/recursorhq/recursor/cmd/recursor/cli/state"
	"github.com/recursorhq/recursor/cmd/recursor/cli/status"
	"github.com/recursorhq/recursor/cmd/recursor/cli/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Conversations reads the live state table of s.
func Conversations(t *testing.T, s *HomeState) map[string]state.ConversationState {
	t.Helper()
	store := state.NewStore(filepath.Join(s.Dir, paths.StateFileName))
	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	return all
}

// Status reads the published status file of s.
func Status(t *testing.T, s *HomeState) *status.Payload {
	t.Helper()
	payload, err := status.Read(filepath.Join(s.Dir, paths.StatusFileName))
	require.NoError(t, err)
	return payload
}

// AssertActive asserts that want is the frontmost scripted window.
func AssertActive(t *testing.T, s *HomeState, want window.Handle) {
	t.Helper()
	active := s.Desktop(t).Active
	require.NotNil(t, active, "no active window")
	assert.Equal(t, want, *active)
}

// AssertConversation asserts that key exists and saved want.
func AssertConversation(t *testing.T, s *HomeState, key string, want window.Handle) state.ConversationState {
	t.Helper()
	all := Conversations(t, s)
	require.Contains(t, all, key)
	assert.Equal(t, want, all[key].SavedWindow)
	return all[key]
}

// AssertNoConversation asserts that key is absent from the state table.
func AssertNoConversation(t *testing.T, s *HomeState, key string) {
	t.Helper()
	assert.NotContains(t, Conversations(t, s), key)
}

// WaitForFailsafe polls until the shell entry for id is stamped by a
// detached check-idle run, or fails the test after timeout.
func WaitForFailsafe(t *testing.T, s *HomeState, id string, timeout time.Duration) state.ConversationState {
	t.Helper()
	key := state.ShellKey(id)
	deadline := time.Now().Add(timeout)
	for {
		if entry, ok := Conversations(t, s)[key]; ok && entry.FailsafeFiredAt != nil {
			return entry
		}
		if time.Now().After(deadline) {
			t.Fatalf("failsafe for %s did not fire within %s", id, timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// AssertFocusLogUnchangedFor waits d and asserts nothing moved focus in the
// meantime. Used to prove a failsafe stood down.
func AssertFocusLogUnchangedFor(t *testing.T, s *HomeState, d time.Duration) {
	t.Helper()
	before := len(s.Desktop(t).FocusLog)
	time.Sleep(d)
	after := s.Desktop(t).FocusLog
	assert.Len(t, after, before, "unexpected focus changes: %v", after[min(before, len(after)):])
}
