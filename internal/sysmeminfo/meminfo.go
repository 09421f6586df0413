// Package sysmeminfo reports the host's available memory, used by the
// capture buffer's "no config supplied" default-sizing path (spec §4.5).
package sysmeminfo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// MemAvailableBytes reports the kernel's MemAvailable estimate, in bytes.
// It reads /proc/meminfo first (the value the kernel itself computes,
// accounting for reclaimable caches) and falls back to unix.Sysinfo's
// Freeram+Bufferram when /proc/meminfo is unavailable (e.g. non-Linux or a
// restricted container).
func MemAvailableBytes() (uint64, error) {
	if b, err := readProcMeminfo("/proc/meminfo"); err == nil {
		return b, nil
	}
	return sysinfoFallback()
}

func readProcMeminfo(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("sysmeminfo: malformed MemAvailable line %q", line)
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("sysmeminfo: parse MemAvailable: %w", err)
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("sysmeminfo: MemAvailable not found in %s", path)
}

func sysinfoFallback() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysmeminfo: sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return (uint64(info.Freeram) + uint64(info.Bufferram)) * unit, nil
}
