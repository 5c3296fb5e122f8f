package hlc

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dishankoza/svcsync/internal/monotime"
)

var (
	// ErrMalformedTimestamp is returned when decoding a timestamp fails.
	ErrMalformedTimestamp = errors.New("hlc: malformed timestamp")
	// ErrCounterRange is returned for a remote timestamp whose counter is
	// above MaxCounter.
	ErrCounterRange = errors.New("hlc: counter out of range")
)

// MaxCounter is the largest logical counter a clock merges from outside.
// Local ticks above it still fit the encoding.
const MaxCounter int64 = 1 << 62

const (
	secWidth     = 19
	nsecWidth    = 9
	counterWidth = 19
	encodedWidth = secWidth + nsecWidth + counterWidth
)

// Timestamp is an HLC timestamp: a physical (Sec, Nsec) pair plus a logical
// counter that orders events sharing the same physical pair.
type Timestamp struct {
	Sec     int64
	Nsec    int64
	Counter int64
}

// Compare orders timestamps by Sec, then Nsec, then Counter.
func (t Timestamp) Compare(o Timestamp) int {
	if c := t.Physical().Compare(o.Physical()); c != 0 {
		return c
	}
	switch {
	case t.Counter < o.Counter:
		return -1
	case t.Counter > o.Counter:
		return 1
	}
	return 0
}

// Less reports whether t orders strictly before o.
func (t Timestamp) Less(o Timestamp) bool { return t.Compare(o) < 0 }

// IsZero reports whether t is the zero version (0,0,0).
func (t Timestamp) IsZero() bool { return t == Timestamp{} }

// Physical returns the physical pair of t.
func (t Timestamp) Physical() monotime.Sample {
	return monotime.Sample{Sec: t.Sec, Nsec: t.Nsec}
}

func (t Timestamp) String() string {
	return fmt.Sprintf("(%d,%d,%d)", t.Sec, t.Nsec, t.Counter)
}

// Encode returns a fixed-width decimal form whose byte order matches the
// timestamp order for non-negative components.
// Format: <19-digit sec><9-digit nsec><19-digit counter>
func (t Timestamp) Encode() string {
	return fmt.Sprintf("%019d%09d%019d", t.Sec, t.Nsec, t.Counter)
}

// ParseTimestamp decodes the output of Encode. Only unsigned digits are
// accepted.
func ParseTimestamp(s string) (Timestamp, error) {
	if len(s) != encodedWidth {
		return Timestamp{}, fmt.Errorf("%w: length %d", ErrMalformedTimestamp, len(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Timestamp{}, fmt.Errorf("%w: non-digit %q at %d", ErrMalformedTimestamp, s[i], i)
		}
	}
	sec, err := strconv.ParseInt(s[:secWidth], 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: sec: %v", ErrMalformedTimestamp, err)
	}
	nsec, err := strconv.ParseInt(s[secWidth:secWidth+nsecWidth], 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: nsec: %v", ErrMalformedTimestamp, err)
	}
	counter, err := strconv.ParseInt(s[secWidth+nsecWidth:], 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: counter: %v", ErrMalformedTimestamp, err)
	}
	return Timestamp{Sec: sec, Nsec: nsec, Counter: counter}, nil
}

func (t Timestamp) checkRemote() error {
	if t.Sec < 0 || t.Nsec < 0 || t.Nsec >= 1e9 || t.Counter < 0 {
		return fmt.Errorf("%w: %s", ErrMalformedTimestamp, t)
	}
	if t.Counter > MaxCounter {
		return fmt.Errorf("%w: %d", ErrCounterRange, t.Counter)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler using Encode.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.Encode()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseTimestamp.
func (t *Timestamp) UnmarshalText(b []byte) error {
	ts, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*t = ts
	return nil
}
