package paths

import (
	"os"
	"path/filepath"
)

// XDG fallbacks
const (
	DefaultDataDirs = "/usr/local/share:/usr/share"
	Applications    = "applications"
)

// DataHome returns $XDG_DATA_HOME, or ~/.local/share when unset.
// An empty string means no home directory could be determined.
func DataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" && filepath.IsAbs(dir) {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share")
}

// DataDirs returns $XDG_DATA_DIRS split into absolute directories
func DataDirs() []string {
	raw := os.Getenv("XDG_DATA_DIRS")
	if raw == "" {
		raw = DefaultDataDirs
	}

	var dirs []string
	for _, d := range filepath.SplitList(raw) {
		if d != "" && filepath.IsAbs(d) {
			dirs = append(dirs, filepath.Clean(d))
		}
	}
	return dirs
}

// ApplicationDirs returns the applications directories in precedence order,
// user data first. Duplicates are dropped.
func ApplicationDirs() []string {
	var bases []string
	if home := DataHome(); home != "" {
		bases = append(bases, home)
	}
	bases = append(bases, DataDirs()...)

	seen := make(map[string]bool, len(bases))
	dirs := make([]string, 0, len(bases))
	for _, b := range bases {
		dir := filepath.Join(b, Applications)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}
