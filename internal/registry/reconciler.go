package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// TopicAccepted is the bus topic carrying every inserted or replaced Service.
// Handlers must have the signature func(Service).
const TopicAccepted = "registry:accepted"

// Discoverer resolves a service name to its backend addresses.
type Discoverer interface {
	Backends(ctx context.Context, name string) ([]string, error)
}

// Outcome is the result of reconciling one candidate update.
type Outcome int

const (
	// Inserted means the candidate created a new registry entry.
	Inserted Outcome = iota
	// Replaced means the candidate superseded an older entry.
	Replaced
	// Stale means the stored version was equal or newer; the candidate was dropped.
	Stale
	// Rejected means the candidate was the empty-name sentinel.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	case Stale:
		return "stale"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Accepted reports whether the outcome changed the registry.
func (o Outcome) Accepted() bool {
	return o == Inserted || o == Replaced
}

// Reconciler is the single writer of the registry. Run applies queued
// updates; Lookup, Get and Snapshot are safe to call from other goroutines
// while Run is active.
type Reconciler struct {
	mu       sync.RWMutex
	services map[string]Service

	discover Discoverer
	bus      evbus.Bus
	metrics  *Metrics
	log      *zap.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithBus publishes accepted updates on bus under TopicAccepted.
func WithBus(bus evbus.Bus) Option {
	return func(r *Reconciler) { r.bus = bus }
}

// WithMetrics records reconcile outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// NewReconciler creates an empty registry backed by discover for lookup misses.
func NewReconciler(discover Discoverer, opts ...Option) *Reconciler {
	r := &Reconciler{
		services: make(map[string]Service),
		discover: discover,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the stored record for name. On a miss it asks the
// discoverer once and returns a fresh Service at the zero version; the
// result is not inserted, only accepted updates change the registry.
func (r *Reconciler) Lookup(ctx context.Context, name string) (Service, error) {
	if svc, ok := r.Get(name); ok {
		return svc, nil
	}
	ips, err := r.discover.Backends(ctx, name)
	if err != nil {
		return Service{}, fmt.Errorf("discover %q: %w", name, err)
	}
	return NewService(name, ips), nil
}

// Get returns a copy of the stored record for name.
func (r *Reconciler) Get(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	if !ok {
		return Service{}, false
	}
	return svc.Clone(), true
}

// Len returns the number of stored services.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// Snapshot returns copies of all stored records ordered by name.
func (r *Reconciler) Snapshot() []Service {
	r.mu.RLock()
	out := make([]Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run applies updates from q until q is closed and drained. Closing the
// queue is the only way to stop it.
func (r *Reconciler) Run(q *Queue) {
	r.log.Debug("reconcile loop started", zap.Int("capacity", q.Cap()))
	for {
		svc, ok := q.Receive()
		if !ok {
			r.log.Debug("update queue closed, reconcile loop exiting")
			return
		}
		r.apply(svc)
	}
}

// Restore applies records through the same rule as Run. It is meant for
// warming the registry before Run starts.
func (r *Reconciler) Restore(svcs []Service) int {
	accepted := 0
	for _, svc := range svcs {
		if r.apply(svc).Accepted() {
			accepted++
		}
	}
	return accepted
}

func (r *Reconciler) apply(svc Service) Outcome {
	r.mu.Lock()
	outcome := Rejected
	existing, found := r.services[svc.Name]
	switch {
	case found && existing.Version.Less(svc.Version):
		r.services[svc.Name] = svc
		outcome = Replaced
	case found:
		outcome = Stale
	case !svc.IsSentinel():
		r.services[svc.Name] = svc
		outcome = Inserted
	}
	size := len(r.services)
	r.mu.Unlock()

	r.metrics.observeOutcome(outcome, size)
	if outcome.Accepted() {
		r.log.Debug("service updated",
			zap.String("service", svc.Name),
			zap.Stringer("version", svc.Version),
			zap.Stringer("outcome", outcome),
			zap.Int("backends", len(svc.Backends)))
		if r.bus != nil {
			r.bus.Publish(TopicAccepted, svc.Clone())
		}
	}
	return outcome
}
