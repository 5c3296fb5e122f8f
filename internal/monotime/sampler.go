package monotime

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultPeriod is the refresh period used when none is configured.
const DefaultPeriod = time.Second

// Sample is a single reading of the monotonic clock.
type Sample struct {
	Sec  int64
	Nsec int64
}

// Compare returns -1, 0 or 1 ordering s against o by seconds then nanoseconds.
func (s Sample) Compare(o Sample) int {
	switch {
	case s.Sec < o.Sec:
		return -1
	case s.Sec > o.Sec:
		return 1
	case s.Nsec < o.Nsec:
		return -1
	case s.Nsec > o.Nsec:
		return 1
	}
	return 0
}

// Duration converts the sample to a time.Duration since the clock's epoch.
func (s Sample) Duration() time.Duration {
	return time.Duration(s.Sec)*time.Second + time.Duration(s.Nsec)
}

// Source reads physical time. Monotonic is the production source.
type Source func() (Sample, error)

// Sampler publishes the most recent Sample read from its Source.
// Load may be called from any goroutine; Start must run in exactly one.
type Sampler struct {
	recent    atomic.Pointer[Sample]
	refreshes atomic.Uint64
	period    time.Duration
	source    Source
	log       *zap.Logger
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger used by the refresh loop.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSampler takes the initial sample and returns a Sampler that refreshes it
// every period once started.
func NewSampler(period time.Duration, source Source, opts ...Option) (*Sampler, error) {
	if period <= 0 {
		period = DefaultPeriod
	}
	if source == nil {
		source = Monotonic
	}
	s := &Sampler{
		period: period,
		source: source,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	initial, err := source()
	if err != nil {
		return nil, fmt.Errorf("monotime: initial sample: %w", err)
	}
	s.recent.Store(&initial)
	return s, nil
}

// Load returns the most recently published sample without blocking.
func (s *Sampler) Load() Sample {
	return *s.recent.Load()
}

// Period returns the refresh period.
func (s *Sampler) Period() time.Duration {
	return s.period
}

// Refreshes returns how many samples the loop has published since start.
func (s *Sampler) Refreshes() uint64 {
	return s.refreshes.Load()
}

// Start runs the refresh loop until ctx is done. Cancellation is observed once
// per period, before the next sleep, so shutdown takes up to one period.
// A failed clock read ends the loop with an error; there is no fallback source.
func (s *Sampler) Start(ctx context.Context) error {
	s.log.Debug("sampler loop started", zap.Duration("period", s.period))
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("sampler loop stopped")
			return nil
		default:
		}

		time.Sleep(s.period)

		sample, err := s.source()
		if err != nil {
			s.log.Error("monotonic clock read failed", zap.Error(err))
			return fmt.Errorf("monotime: refresh: %w", err)
		}
		s.recent.Store(&sample)
		s.refreshes.Add(1)
	}
}
