// Package dispatch turns an inbound request for a service into a
// timestamped candidate update.
package dispatch

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/registry"
)

// ErrEmptyName is returned by Touch when no service name was given.
var ErrEmptyName = errors.New("dispatch: empty service name")

// Result describes one dispatched request.
type Result struct {
	Service registry.Service `json:"service"`
	Queued  bool             `json:"queued"`
}

// Looker resolves a service name to its current record.
type Looker interface {
	Lookup(ctx context.Context, name string) (registry.Service, error)
}

type Dispatcher struct {
	clock   *hlc.Clock
	lookup  Looker
	queue   *registry.Queue
	metrics *registry.Metrics
	touches *prometheus.CounterVec
	log     *zap.Logger
}

// New creates a Dispatcher. metrics and reg may be nil.
func New(clock *hlc.Clock, lookup Looker, q *registry.Queue, metrics *registry.Metrics, reg prometheus.Registerer, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		clock:   clock,
		lookup:  lookup,
		queue:   q,
		metrics: metrics,
		touches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svcsync_dispatch_requests_total",
			Help: "Requests dispatched to the registry, by result",
		}, []string{"result"}),
		log: log,
	}
	if reg != nil {
		reg.MustRegister(d.touches)
	}
	return d
}

// Touch stamps a request for name with the next local timestamp and offers
// the resulting record to the reconciler. A full or closed queue drops the
// candidate and reports Queued=false.
func (d *Dispatcher) Touch(ctx context.Context, name string) (Result, error) {
	if name == "" {
		d.touches.WithLabelValues("invalid").Inc()
		return Result{}, ErrEmptyName
	}

	ts := d.clock.Now()
	svc, err := d.lookup.Lookup(ctx, name)
	if err != nil {
		d.touches.WithLabelValues("error").Inc()
		return Result{}, err
	}
	svc.Version = ts

	err = d.queue.TrySubmit(svc)
	d.metrics.ObserveSubmit(err)
	if err != nil {
		d.touches.WithLabelValues("dropped").Inc()
		d.log.Debug("candidate dropped",
			zap.String("service", name),
			zap.Stringer("version", ts),
			zap.Error(err))
		return Result{Service: svc, Queued: false}, nil
	}
	d.touches.WithLabelValues("queued").Inc()
	return Result{Service: svc, Queued: true}, nil
}
