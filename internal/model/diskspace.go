package model

// DiskSpace describes the volume holding a path
type DiskSpace struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// UsedBytes returns bytes used on this volume
func (d DiskSpace) UsedBytes() uint64 {
	if d.FreeBytes > d.TotalBytes {
		return 0
	}
	return d.TotalBytes - d.FreeBytes
}

// UsedPercent returns percentage of the volume used
func (d DiskSpace) UsedPercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.UsedBytes()) / float64(d.TotalBytes) * 100
}

// GetDiskSpace returns space information for the volume holding path
func GetDiskSpace(path string) (DiskSpace, error) {
	return getDiskSpace(path)
}
