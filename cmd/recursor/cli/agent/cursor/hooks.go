// Package cursor speaks Cursor's hook protocol: it decodes hook payloads,
// encodes responses, and installs recursor into hooks.json.
package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/recursorhq/recursor/cmd/recursor/cli/jsonutil"
	"github.com/recursorhq/recursor/cmd/recursor/cli/logging"
)

// Hook verbs. These are recursor subcommands that Cursor invokes.
const (
	HookNameSave        = "save"
	HookNameRestore     = "restore"
	HookNameBeforeShell = "before-shell"
	HookNameAfterShell  = "after-shell"
)

// DefaultCommand is the binary name written into hooks.json.
const DefaultCommand = "recursor"

// hookBinding maps a Cursor hook type to the recursor verb that handles it.
type hookBinding struct {
	hookType string
	verb     string
}

var managedHooks = []hookBinding{
	{"beforeSubmitPrompt", HookNameSave},
	{"stop", HookNameRestore},
	{"beforeShellExecution", HookNameBeforeShell},
	{"afterShellExecution", HookNameAfterShell},
}

// HookNames returns the verbs recursor registers, in install order.
func HookNames() []string {
	names := make([]string, 0, len(managedHooks))
	for _, b := range managedHooks {
		names = append(names, b.verb)
	}
	return names
}

// Installer edits one hooks.json file.
type Installer struct {
	// Path is the hooks.json location.
	Path string
	// Command is the executable written before each verb. Empty means
	// DefaultCommand, resolved through PATH by Cursor.
	Command string
}

// NewInstaller returns an installer for the hooks file at path.
func NewInstaller(path, command string) *Installer {
	return &Installer{Path: path, Command: command}
}

func (i *Installer) command() string {
	if i.Command == "" {
		return DefaultCommand
	}
	return i.Command
}

// HookCommand returns the hooks.json command line for verb.
func (i *Installer) HookCommand(verb string) string {
	bin := i.command()
	if strings.ContainsAny(bin, " \t") {
		bin = `"` + bin + `"`
	}
	return bin + " " + verb
}

// Install adds recursor hooks to the file. If force is true, existing
// recursor hooks are removed first. Returns the number of hooks added.
// Unknown top-level fields and hook types are preserved on round-trip.
func (i *Installer) Install(ctx context.Context, force bool) (int, error) {
	rawFile, rawHooks, err := readHooksFile(i.Path)
	if err != nil {
		return 0, err
	}
	if _, ok := rawFile["version"]; !ok {
		rawFile["version"] = json.RawMessage(`1`)
	}

	count := 0
	for _, b := range managedHooks {
		var entries []HookEntry
		parseHookType(rawHooks, b.hookType, &entries)
		if force {
			entries = i.removeRecursorHooks(entries)
		}
		cmd := i.HookCommand(b.verb)
		if hookCommandExists(entries, cmd) {
			if force {
				marshalHookType(rawHooks, b.hookType, entries)
			}
			continue
		}
		entries = append(entries, HookEntry{Command: cmd})
		marshalHookType(rawHooks, b.hookType, entries)
		count++
	}

	if count == 0 {
		return 0, nil
	}
	if err := writeHooksFile(i.Path, rawFile, rawHooks); err != nil {
		return 0, err
	}
	logging.Info(ctx, "installed hooks", slog.String("path", i.Path), slog.Int("count", count))
	return count, nil
}

// Uninstall removes every recursor hook from the file and returns how many
// were removed. A missing file is a no-op.
func (i *Installer) Uninstall(ctx context.Context) (int, error) {
	if _, err := os.Stat(i.Path); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	rawFile, rawHooks, err := readHooksFile(i.Path)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range managedHooks {
		var entries []HookEntry
		parseHookType(rawHooks, b.hookType, &entries)
		kept := i.removeRecursorHooks(entries)
		removed += len(entries) - len(kept)
		if len(kept) != len(entries) {
			marshalHookType(rawHooks, b.hookType, kept)
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := writeHooksFile(i.Path, rawFile, rawHooks); err != nil {
		return 0, err
	}
	logging.Info(ctx, "uninstalled hooks", slog.String("path", i.Path), slog.Int("count", removed))
	return removed, nil
}

// AreHooksInstalled reports whether any recursor hook is present.
func (i *Installer) AreHooksInstalled() bool {
	data, err := os.ReadFile(i.Path)
	if err != nil {
		return false
	}
	var hooksFile HooksFile
	if err := json.Unmarshal(data, &hooksFile); err != nil {
		return false
	}
	return i.hasRecursorHook(hooksFile.Hooks.BeforeSubmitPrompt) ||
		i.hasRecursorHook(hooksFile.Hooks.Stop) ||
		i.hasRecursorHook(hooksFile.Hooks.BeforeShellExecution) ||
		i.hasRecursorHook(hooksFile.Hooks.AfterShellExecution)
}

// readHooksFile loads the file as raw maps. A missing file yields empty maps.
func readHooksFile(path string) (map[string]json.RawMessage, map[string]json.RawMessage, error) {
	rawFile := make(map[string]json.RawMessage)
	rawHooks := make(map[string]json.RawMessage)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rawFile, rawHooks, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return rawFile, rawHooks, nil
	}
	if err := json.Unmarshal(data, &rawFile); err != nil {
		return nil, nil, fmt.Errorf("failed to parse existing %s: %w", filepath.Base(path), err)
	}
	if rawFile == nil {
		rawFile = make(map[string]json.RawMessage)
	}
	if hooksRaw, ok := rawFile["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &rawHooks); err != nil {
			return nil, nil, fmt.Errorf("failed to parse hooks in %s: %w", filepath.Base(path), err)
		}
		if rawHooks == nil {
			rawHooks = make(map[string]json.RawMessage)
		}
	}
	return rawFile, rawHooks, nil
}

func writeHooksFile(path string, rawFile, rawHooks map[string]json.RawMessage) error {
	if len(rawHooks) > 0 {
		hooksJSON, err := json.Marshal(rawHooks)
		if err != nil {
			return fmt.Errorf("failed to marshal hooks: %w", err)
		}
		rawFile["hooks"] = hooksJSON
	} else {
		delete(rawFile, "hooks")
	}

	output, err := jsonutil.MarshalIndentWithNewline(rawFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := jsonutil.WriteFileAtomic(path, output, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// parseHookType parses a specific hook type from rawHooks into target.
// Parse errors leave target unchanged.
func parseHookType(rawHooks map[string]json.RawMessage, hookType string, target *[]HookEntry) {
	if data, ok := rawHooks[hookType]; ok {
		//nolint:errcheck,gosec // a foreign shape is left alone
		json.Unmarshal(data, target)
	}
}

// marshalHookType writes entries back into rawHooks, removing the key when
// there are none.
func marshalHookType(rawHooks map[string]json.RawMessage, hookType string, entries []HookEntry) {
	if len(entries) == 0 {
		delete(rawHooks, hookType)
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	rawHooks[hookType] = data
}

func hookCommandExists(entries []HookEntry, command string) bool {
	for _, entry := range entries {
		if entry.Command == command {
			return true
		}
	}
	return false
}

// isRecursorHook matches commands whose executable is recursor (any path)
// or the installer's configured command.
func (i *Installer) isRecursorHook(command string) bool {
	bin := commandBinary(command)
	if bin == "" {
		return false
	}
	if bin == i.command() {
		return true
	}
	base := strings.TrimSuffix(filepath.Base(filepath.ToSlash(bin)), ".exe")
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	return base == DefaultCommand
}

func (i *Installer) hasRecursorHook(entries []HookEntry) bool {
	for _, entry := range entries {
		if i.isRecursorHook(entry.Command) {
			return true
		}
	}
	return false
}

func (i *Installer) removeRecursorHooks(entries []HookEntry) []HookEntry {
	result := make([]HookEntry, 0, len(entries))
	for _, entry := range entries {
		if !i.isRecursorHook(entry.Command) {
			result = append(result, entry)
		}
	}
	return result
}

// commandBinary returns the first word of a hook command, honouring double
// quotes around a path with spaces.
func commandBinary(command string) string {
	command = strings.TrimSpace(command)
	if rest, ok := strings.CutPrefix(command, `"`); ok {
		if end := strings.Index(rest, `"`); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if fields := strings.Fields(command); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
