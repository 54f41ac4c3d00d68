//go:build windows

package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// dirKey falls back to the link-free path; file IDs would need an extra open
// per directory
func dirKey(path string, info fs.FileInfo) any {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	return strings.ToLower(filepath.Clean(path))
}
