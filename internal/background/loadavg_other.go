//go:build !linux

package background

// LinuxLoadAverage is unavailable on this platform; the CPU guard treats
// an unavailable signal as "never skip".
func LinuxLoadAverage() (load1 float64, cpuCount int, ok bool) { return 0, 0, false }
