//go:build !linux && !darwin && !freebsd && !windows

package model

import "errors"

func getDiskSpace(path string) (DiskSpace, error) {
	return DiskSpace{}, errors.New("disk space not supported on this platform")
}
