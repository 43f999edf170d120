package sysinfo

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

var processStart = time.Now()

// Info is a snapshot of host metrics shown on the dashboard.
type Info struct {
	OS            string  `json:"os"`
	GoVersion     string  `json:"go_version"`
	CPUCount      int     `json:"cpu_count"`
	RAMTotalMB    int64   `json:"ram_total_mb"`
	RAMUsedMB     int64   `json:"ram_used_mb"`
	RAMPercent    float64 `json:"ram_percent"`
	DiskTotalGB   float64 `json:"disk_total_gb"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	DiskPercent   float64 `json:"disk_percent"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Collect gathers host metrics. Individual probes failing leave their
// fields at zero rather than failing the whole snapshot.
func Collect(diskPath string) Info {
	info := Info{
		OS:        fmt.Sprintf("%s (%s)", runtime.GOOS, runtime.GOARCH),
		GoVersion: runtime.Version(),
		CPUCount:  runtime.NumCPU(),
	}

	if diskPath == "" {
		diskPath, _ = os.Getwd()
	}

	var statfs unix.Statfs_t
	if err := unix.Statfs(diskPath, &statfs); err == nil {
		blockSize := uint64(statfs.Bsize)
		total := statfs.Blocks * blockSize
		free := statfs.Bavail * blockSize
		used := total - free

		info.DiskTotalGB = round2(float64(total) / (1 << 30))
		info.DiskUsedGB = round2(float64(used) / (1 << 30))
		if total > 0 {
			info.DiskPercent = round2(float64(used) / float64(total) * 100)
		}
	}

	var sysinfo unix.Sysinfo_t
	if err := unix.Sysinfo(&sysinfo); err == nil {
		unit := uint64(sysinfo.Unit)
		if unit == 0 {
			unit = 1
		}
		total := sysinfo.Totalram * unit
		free := sysinfo.Freeram * unit
		used := total - free

		info.RAMTotalMB = int64(total / (1 << 20))
		info.RAMUsedMB = int64(used / (1 << 20))
		if total > 0 {
			info.RAMPercent = round2(float64(used) / float64(total) * 100)
		}
		info.UptimeSeconds = sysinfo.Uptime
	} else {
		// Fall back to process uptime when the syscall is unavailable
		info.UptimeSeconds = int64(time.Since(processStart).Seconds())
	}

	return info
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
