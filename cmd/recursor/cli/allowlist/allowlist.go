// Package allowlist reads the editor's auto-run command allowlist from its
// SQLite state database. Commands on the list run without asking the user,
// so a pending shell command that is not on it probably needs approval.
package allowlist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNotFound means the state database does not exist.
var ErrNotFound = errors.New("editor state database not found")

// StorageKey is the ItemTable row holding the editor's persisted user state.
const StorageKey = "src.vs.platform.reactivestorage.browser.reactiveStorageServiceImpl.persistentStorage.applicationUser"

// DBFileName is the editor's global state database.
const DBFileName = "state.vscdb"

// DefaultDBPath returns the state database location for editorApp under the
// user config directory (~/Library/Application Support on macOS,
// ~/.config on Linux, %AppData% on Windows).
func DefaultDBPath(editorApp string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, editorApp, "User", "globalStorage", DBFileName), nil
}

// Load reads the allowlist from the database at path. The database is opened
// read-only; the editor may hold it open.
func Load(ctx context.Context, path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var raw string
	err = db.QueryRowContext(ctx, "SELECT value FROM ItemTable WHERE key = ?", StorageKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read persistent storage: %w", err)
	}
	return parseStorage([]byte(raw))
}

// parseStorage extracts composerState.yoloCommandAllowlist. Non-string
// entries are skipped.
func parseStorage(raw []byte) ([]string, error) {
	var storage struct {
		ComposerState struct {
			YoloCommandAllowlist []json.RawMessage `json:"yoloCommandAllowlist"`
		} `json:"composerState"`
	}
	if err := json.Unmarshal(raw, &storage); err != nil {
		return nil, fmt.Errorf("failed to parse persistent storage: %w", err)
	}
	var out []string
	for _, entry := range storage.ComposerState.YoloCommandAllowlist {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// Match returns the allowlist entry that permits command. An entry matches
// the trimmed command exactly, or as a prefix followed by a space or tab,
// so "git commit" allows "git commit -m x" but not "git committed".
func Match(command string, list []string) (string, bool) {
	cmd := strings.TrimSpace(command)
	for _, allowed := range list {
		if allowed == "" {
			continue
		}
		if cmd == allowed {
			return allowed, true
		}
		if rest, ok := strings.CutPrefix(cmd, allowed); ok && (rest[0] == ' ' || rest[0] == '\t') {
			return allowed, true
		}
	}
	return "", false
}

// IsCommandAllowed reports whether any entry in list permits command.
func IsCommandAllowed(command string, list []string) bool {
	_, ok := Match(command, list)
	return ok
}

// Reader loads the allowlist on first use and caches it for the process.
type Reader struct {
	Path string

	once sync.Once
	list []string
	err  error
}

// NewReader returns a Reader for the database at path.
func NewReader(path string) *Reader {
	return &Reader{Path: path}
}

// IsAllowed reports whether command is on the allowlist.
func (r *Reader) IsAllowed(ctx context.Context, command string) (bool, error) {
	list, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	return IsCommandAllowed(command, list), nil
}

// List returns the cached allowlist, loading it on the first call.
func (r *Reader) List(ctx context.Context) ([]string, error) {
	r.once.Do(func() {
		r.list, r.err = Load(ctx, r.Path)
	})
	return r.list, r.err
}
