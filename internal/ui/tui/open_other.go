//go:build !darwin && !windows

package tui

import (
	"os/exec"
	"path/filepath"
)

func openFile(path string) error {
	return exec.Command("xdg-open", path).Start()
}

// reveal opens the containing directory; xdg-open cannot select an item
func reveal(path string) error {
	return exec.Command("xdg-open", filepath.Dir(path)).Start()
}
