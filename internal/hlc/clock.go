package hlc

import (
	"sync"

	"github.com/dishankoza/svcsync/internal/monotime"
)

// PhysicalSource supplies physical time to a Clock. *monotime.Sampler
// implements it; tests substitute a controllable fake.
type PhysicalSource interface {
	Load() monotime.Sample
}

// Clock implements a Hybrid Logical Clock (HLC).
type Clock struct {
	mu   sync.RWMutex
	src  PhysicalSource
	last Timestamp
}

// NewClock creates a new HLC clock seeded from the current physical sample.
func NewClock(src PhysicalSource) *Clock {
	pt := src.Load()
	return &Clock{
		src:  src,
		last: Timestamp{Sec: pt.Sec, Nsec: pt.Nsec},
	}
}

// Now returns a new timestamp for a local event. Timestamps from one clock
// are strictly increasing: the counter advances while the physical sample
// stays put and resets to zero when the sample moves ahead.
func (c *Clock) Now() Timestamp {
	pt := c.src.Load()

	c.mu.Lock()
	defer c.mu.Unlock()
	if pt.Compare(c.last.Physical()) > 0 {
		c.last = Timestamp{Sec: pt.Sec, Nsec: pt.Nsec}
	} else {
		// Equal sample, or a sample behind a physical pair adopted by Update.
		c.last.Counter++
	}
	return c.last
}

// Current returns the most recently issued or merged timestamp.
func (c *Clock) Current() Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Update merges a timestamp observed from another source. If the clock is
// already at or past remote it is returned unchanged. Otherwise the clock
// moves strictly past remote: to the local sample with counter 0 when the
// sample is ahead of remote's physical pair, else to remote's physical pair
// with remote's counter plus one. A remote with a negative component or a
// counter above MaxCounter is ignored.
func (c *Clock) Update(remote Timestamp) Timestamp {
	merged, _ := c.Observe(remote)
	return merged
}

// Observe is Update that reports a rejected remote timestamp. On error the
// clock is unchanged and its current timestamp is returned.
func (c *Clock) Observe(remote Timestamp) (Timestamp, error) {
	if err := remote.checkRemote(); err != nil {
		return c.Current(), err
	}
	pt := c.src.Load()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.Compare(remote) >= 0 {
		return c.last, nil
	}
	if pt.Compare(remote.Physical()) > 0 {
		c.last = Timestamp{Sec: pt.Sec, Nsec: pt.Nsec}
	} else {
		c.last = Timestamp{Sec: remote.Sec, Nsec: remote.Nsec, Counter: remote.Counter + 1}
	}
	return c.last, nil
}

// Merge merges the current timestamp of remote into c. The remote clock is
// read, not ticked.
func (c *Clock) Merge(remote *Clock) Timestamp {
	if remote == c {
		return c.Current()
	}
	return c.Update(remote.Current())
}

// Compare orders two clocks by their currently held timestamps.
func (c *Clock) Compare(other *Clock) int {
	if c == other {
		return 0
	}
	return c.Current().Compare(other.Current())
}

// Equal reports whether both clocks hold the same timestamp.
func (c *Clock) Equal(other *Clock) bool {
	return c.Compare(other) == 0
}
