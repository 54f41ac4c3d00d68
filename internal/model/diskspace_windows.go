//go:build windows

package model

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func getDiskSpace(path string) (DiskSpace, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DiskSpace{}, err
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return DiskSpace{}, fmt.Errorf("GetDiskFreeSpaceEx %s: %w", path, err)
	}
	return DiskSpace{TotalBytes: totalBytes, FreeBytes: freeBytesAvailable}, nil
}
