//go:build !windows

package scanner

import (
	"io/fs"
	"syscall"
)

type devIno struct {
	dev uint64
	ino uint64
}

// dirKey identifies a directory by device and inode. info must come from a
// Stat that followed links.
func dirKey(path string, info fs.FileInfo) any {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return path
	}
	return devIno{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}
}
