//go:build windows

package tui

import "os/exec"

// openFile opens path with the Windows default viewer
func openFile(path string) error {
	return exec.Command("cmd", "/c", "start", "", path).Start()
}

// reveal opens the containing folder in Explorer with path selected
func reveal(path string) error {
	return exec.Command("explorer", "/select,"+path).Start()
}
