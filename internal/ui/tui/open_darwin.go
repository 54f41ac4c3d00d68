//go:build darwin

package tui

import "os/exec"

// openFile opens path in its default application
func openFile(path string) error {
	return exec.Command("open", path).Start()
}

// reveal shows path selected in Finder
func reveal(path string) error {
	return exec.Command("open", "-R", path).Start()
}
