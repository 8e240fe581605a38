// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
)

// DBFileName is the sqlite file holding persisted job state.
const DBFileName = "livery.db"

// ResolveStateDir resolves the livery state directory from user input.
// It normalizes the input, accepting either a project directory or the
// .livery directory itself.
//
// Input normalization:
//   - "/path/to/project" -> "/path/to/project/.livery"
//   - "/path/to/project/.livery" -> "/path/to/project/.livery"
//   - "/path/to/state-data" (containing livery.db) -> "/path/to/state-data"
//   - "" -> XDG state dir (~/.local/state/livery)
func ResolveStateDir(path string) string {
	if path == "" {
		return defaultStateDir()
	}
	path = filepath.Clean(path)

	if filepath.Base(path) == ".livery" {
		return path
	}

	// A directory already holding the database is used as-is. This supports
	// LIVERY_STATE_DIR pointing straight at a data directory.
	if _, err := os.Stat(filepath.Join(path, DBFileName)); err == nil {
		return path
	}

	return filepath.Join(path, ".livery")
}

// DBPath returns the database file inside the resolved state directory.
func DBPath(stateDir string) string {
	return filepath.Join(ResolveStateDir(stateDir), DBFileName)
}

// ConfigDir returns the directory searched for config.yaml. XDG_CONFIG_HOME
// is honored; otherwise ~/.config/livery.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "livery")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".livery"
	}
	return filepath.Join(home, ".config", "livery")
}

// TraceFile returns the default trace output path under the config dir.
func TraceFile() string {
	return filepath.Join(ConfigDir(), "traces", "traces.jsonl")
}

func defaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "livery")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".livery"
	}
	return filepath.Join(home, ".local", "state", "livery")
}
