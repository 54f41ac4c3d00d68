//go:build linux || darwin || freebsd

package model

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func getDiskSpace(path string) (DiskSpace, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return DiskSpace{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(stat.Bsize)
	return DiskSpace{
		TotalBytes: uint64(stat.Blocks) * bsize,
		FreeBytes:  uint64(stat.Bavail) * bsize,
	}, nil
}
