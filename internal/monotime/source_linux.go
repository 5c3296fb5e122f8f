//go:build linux

package monotime

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Monotonic reads CLOCK_MONOTONIC_COARSE. The coarse clock is cheap and may
// report the same value for several consecutive reads.
func Monotonic() (Sample, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_COARSE, &ts); err != nil {
		return Sample{}, fmt.Errorf("clock_gettime: %w", err)
	}
	return Sample{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}, nil
}
