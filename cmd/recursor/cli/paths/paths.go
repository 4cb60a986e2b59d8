// Package paths resolves the on-disk locations recursor reads and writes.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the base directory. Used by tests and by users who
// keep their editor config somewhere other than ~/.cursor.
const HomeEnvVar = "RECURSOR_HOME"

const (
	CursorDirName         = ".cursor"
	StateFileName         = "recursor_state.json"
	StatusFileName        = "recursor_status.json"
	SettingsFileName      = "recursor.json"
	SettingsLocalFileName = "recursor.local.json"
	LogsDirName           = "logs"
	LogFileName           = "recursor.log"
	HooksFileName         = "hooks.json"
)

// Home returns the base directory for state, status, settings and logs.
func Home() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", HomeEnvVar, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	if userHome == "" {
		return "", errors.New("home directory is empty")
	}
	return filepath.Join(userHome, CursorDirName), nil
}

func inHome(name string) (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, name), nil
}

// StateFile is the conversation state table.
func StateFile() (string, error) { return inHome(StateFileName) }

// StatusFile is read by the menu-bar companion.
func StatusFile() (string, error) { return inHome(StatusFileName) }

// LogsDir holds recursor.log.
func LogsDir() (string, error) { return inHome(LogsDirName) }

// SettingsFile returns the shared settings file path.
func SettingsFile() (string, error) { return inHome(SettingsFileName) }

// SettingsLocalFile returns the machine-local overlay path.
func SettingsLocalFile() (string, error) { return inHome(SettingsLocalFileName) }

// GlobalHooksFile is the user-level Cursor hooks file.
func GlobalHooksFile() (string, error) { return inHome(HooksFileName) }

// ProjectHooksFile is the project-level Cursor hooks file under dir.
func ProjectHooksFile(dir string) string {
	return filepath.Join(dir, CursorDirName, HooksFileName)
}
