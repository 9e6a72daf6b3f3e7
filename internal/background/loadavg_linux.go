//go:build linux

package background

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// LinuxLoadAverage reads /proc/loadavg's 1-minute figure, the
// platform-specific signal the CPU guard can use. The format is a
// single stable line owned by the kernel, so parsing it directly is
// simpler than reaching for a dependency for one file read.
func LinuxLoadAverage() (load1 float64, cpuCount int, ok bool) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, 0, false
	}
	load1, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, false
	}
	return load1, runtime.NumCPU(), true
}
