package window

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedProvider_FocusUpdatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "windows.json")
	editor := Handle{PID: 1, WindowID: "1", AppName: "Cursor", Title: "a.go - proj - Cursor"}
	slack := Handle{PID: 2, WindowID: "2", AppName: "Slack", Title: "general"}
	require.NoError(t, WriteScript(path, &Script{
		Active:   &editor,
		Previous: &slack,
		Windows:  []Handle{editor, slack},
	}))

	p := NewScriptedProvider(path)
	ctx := context.Background()

	active, err := p.ActiveWindow(ctx)
	require.NoError(t, err)
	assert.Equal(t, editor, *active)

	require.NoError(t, p.Focus(ctx, slack))

	s, err := ReadScript(path)
	require.NoError(t, err)
	assert.Equal(t, slack, *s.Active)
	assert.Equal(t, editor, *s.Previous)
	assert.Equal(t, []Handle{slack}, s.FocusLog)
}

func TestScriptedProvider_FocusUnknownWindow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "windows.json")
	editor := Handle{PID: 1, WindowID: "1", AppName: "Cursor"}
	require.NoError(t, WriteScript(path, &Script{Active: &editor, Windows: []Handle{editor}}))

	err := NewScriptedProvider(path).Focus(context.Background(), Handle{WindowID: "404", AppName: "Gone"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScriptedProvider_FocusApp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "windows.json")
	editor := Handle{PID: 1, WindowID: "1", AppName: "Cursor"}
	slack := Handle{PID: 2, WindowID: "2", AppName: "Slack"}
	require.NoError(t, WriteScript(path, &Script{Active: &slack, Windows: []Handle{slack, editor}}))

	p := NewScriptedProvider(path)
	require.NoError(t, p.FocusApp(context.Background(), "cursor"))

	active, err := p.ActiveWindow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, editor, *active)
}

func TestScriptedProvider_Unavailable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "windows.json")
	require.NoError(t, WriteScript(path, &Script{Unavailable: true}))

	_, err := NewScriptedProvider(path).ActiveWindow(context.Background())
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestScriptedProvider_MissingFile(t *testing.T) {
	t.Parallel()

	p := NewScriptedProvider(filepath.Join(t.TempDir(), "missing.json"))
	_, err := p.ActiveWindow(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	prev, err := p.PreviousWindow(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, prev)
}
