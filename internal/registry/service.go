package registry

import (
	"time"

	"github.com/dishankoza/svcsync/internal/hlc"
)

// Backend is one upstream endpoint of a service.
type Backend struct {
	IP          string        `json:"ip"`
	Outstanding uint64        `json:"outstanding"`
	Total       uint64        `json:"total"`
	LastRTT     time.Duration `json:"last_rtt"`
	MeanRTT     time.Duration `json:"mean_rtt"`
}

// NewBackend returns a backend with no request history.
func NewBackend(ip string) Backend {
	return Backend{IP: ip}
}

// Begin records a request sent to the backend.
func (b *Backend) Begin() {
	b.Outstanding++
}

// Observe records a completed request and folds its round-trip time into the
// running mean.
func (b *Backend) Observe(rtt time.Duration) {
	if b.Outstanding > 0 {
		b.Outstanding--
	}
	b.Total++
	b.LastRTT = rtt
	b.MeanRTT += (rtt - b.MeanRTT) / time.Duration(b.Total)
}

// Service is the registry record for one named service. A Service with an
// empty Name is the lookup-miss sentinel and is never stored.
type Service struct {
	Name     string        `json:"name"`
	Backends []Backend     `json:"backends"`
	Version  hlc.Timestamp `json:"version"`
}

// NewService builds a Service at the zero version from a list of backend IPs.
func NewService(name string, ips []string) Service {
	backends := make([]Backend, 0, len(ips))
	for _, ip := range ips {
		backends = append(backends, NewBackend(ip))
	}
	return Service{Name: name, Backends: backends}
}

// IsSentinel reports whether s is the empty-name lookup-miss sentinel.
func (s Service) IsSentinel() bool {
	return s.Name == ""
}

// Clone returns a copy of s that shares no memory with it.
func (s Service) Clone() Service {
	c := s
	if s.Backends != nil {
		c.Backends = append([]Backend(nil), s.Backends...)
	}
	return c
}

// IPs returns the backend addresses in order.
func (s Service) IPs() []string {
	ips := make([]string, 0, len(s.Backends))
	for _, b := range s.Backends {
		ips = append(ips, b.IP)
	}
	return ips
}
