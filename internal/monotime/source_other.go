//go:build !linux

package monotime

import "time"

var processStart = time.Now()

// Monotonic returns the time elapsed since process start using the monotonic
// reading carried by time.Time.
func Monotonic() (Sample, error) {
	d := time.Since(processStart)
	return Sample{Sec: int64(d / time.Second), Nsec: int64(d % time.Second)}, nil
}
