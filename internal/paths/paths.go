// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome resolves a leading ~ to the user's home directory.
//
//   - "~" -> "/home/me"
//   - "~/.discussions/discussions.db" -> "/home/me/.discussions/discussions.db"
//   - "~other/x" and every other path -> unchanged
//
// The path is returned unchanged when the home directory is unknown.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
