package metrics

import (
	"fmt"

	"github.com/shirou/gopsutil/disk"
)

// RegisterDiskUsage registers gauges for the filesystem that holds the given
// path. The gauges are labeled with the given name.
func RegisterDiskUsage(name, path string) {
	stat := func(get func(*disk.UsageStat) float64) func() float64 {
		return func() float64 {
			usage, err := disk.Usage(path)
			if err != nil {
				return 0
			}
			return get(usage)
		}
	}

	set.GetOrCreateGauge(fmt.Sprintf(`dbinit_disk_total_bytes{dir=%q}`, name), stat(func(u *disk.UsageStat) float64 {
		return float64(u.Total)
	}))
	set.GetOrCreateGauge(fmt.Sprintf(`dbinit_disk_free_bytes{dir=%q}`, name), stat(func(u *disk.UsageStat) float64 {
		return float64(u.Free)
	}))
	set.GetOrCreateGauge(fmt.Sprintf(`dbinit_disk_used_percent{dir=%q}`, name), stat(func(u *disk.UsageStat) float64 {
		return u.UsedPercent
	}))
}

// FilesystemOf returns the mountpoint and filesystem type of the partition
// that holds the given path. It returns empty strings if they cannot be
// determined.
func FilesystemOf(path string) (mountpoint, fstype string) {
	partitions, err := disk.Partitions(true)
	if err != nil {
		return "", ""
	}

	for _, p := range partitions {
		if len(p.Mountpoint) <= len(mountpoint) {
			continue
		}
		if path == p.Mountpoint || hasDirPrefix(path, p.Mountpoint) {
			mountpoint = p.Mountpoint
			fstype = p.Fstype
		}
	}
	return mountpoint, fstype
}

func hasDirPrefix(path, dir string) bool {
	if dir == "/" {
		return len(path) > 0 && path[0] == '/'
	}
	return len(path) > len(dir) && path[:len(dir)] == dir && path[len(dir)] == '/'
}
