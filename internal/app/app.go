// Package app wires a registry node together and runs it until its context
// is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/hashicorp/raft"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/dishankoza/svcsync/internal/config"
	"github.com/dishankoza/svcsync/internal/discovery"
	"github.com/dishankoza/svcsync/internal/dispatch"
	"github.com/dishankoza/svcsync/internal/frontend"
	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/logging"
	"github.com/dishankoza/svcsync/internal/monotime"
	"github.com/dishankoza/svcsync/internal/raftstore"
	"github.com/dishankoza/svcsync/internal/registry"
	"github.com/dishankoza/svcsync/internal/rpc"
	"github.com/dishankoza/svcsync/internal/store"
)

// App is one running registry node.
type App struct {
	cfg *config.Config
	log *zap.Logger

	metrics    *prometheus.Registry
	bus        evbus.Bus
	sampler    *monotime.Sampler
	clock      *hlc.Clock
	queue      *registry.Queue
	reconciler *registry.Reconciler
	dispatcher *dispatch.Dispatcher

	store *store.Store
	raft  *raftstore.Store

	httpServer *http.Server
	httpLn     net.Listener
	grpcServer *grpc.Server
	grpcLn     net.Listener

	unsubscribe []func()
	reconciled  chan struct{}
}

// New builds every component named by cfg and binds the listeners. Nothing
// runs until Run is called.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg:        cfg,
		log:        log,
		metrics:    prometheus.NewRegistry(),
		bus:        evbus.New(),
		queue:      registry.NewQueue(cfg.Registry.QueueCapacity),
		reconciled: make(chan struct{}),
	}
	if err := a.build(); err != nil {
		a.release()
		for _, ln := range []net.Listener{a.httpLn, a.grpcLn} {
			if ln != nil {
				ln.Close()
			}
		}
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg, log := a.cfg, a.log
	a.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sampler, err := monotime.NewSampler(cfg.Clock.Period, nil, monotime.WithLogger(logging.Module(log, "monotime")))
	if err != nil {
		return err
	}
	a.sampler = sampler
	a.metrics.MustRegister(sampler.Collector())
	a.clock = hlc.NewClock(sampler)

	discover, err := newDiscoverer(cfg.Discovery, logging.Module(log, "discovery"))
	if err != nil {
		return err
	}
	regMetrics := registry.NewMetrics(a.metrics)
	a.reconciler = registry.NewReconciler(discover,
		registry.WithLogger(logging.Module(log, "registry")),
		registry.WithBus(a.bus),
		registry.WithMetrics(regMetrics))
	a.dispatcher = dispatch.New(a.clock, a.reconciler, a.queue, regMetrics, a.metrics, logging.Module(log, "dispatch"))

	if err := a.openStore(); err != nil {
		return err
	}
	if err := a.startRaft(); err != nil {
		return err
	}
	return a.bindServers()
}

func newDiscoverer(cfg config.DiscoveryConfig, log *zap.Logger) (registry.Discoverer, error) {
	switch cfg.Mode {
	case config.DiscoveryStatic:
		return discovery.NewStatic(cfg.Static), nil
	case config.DiscoveryDirectory:
		dir, err := discovery.OpenDirectory(cfg.File)
		if err != nil {
			return nil, err
		}
		return dir, nil
	case config.DiscoveryHTTP:
		return discovery.NewHTTP(cfg.URL, cfg.Timeout, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDiscoveryMode, cfg.Mode)
	}
}

func (a *App) openStore() error {
	if !a.cfg.Store.Enabled && !a.cfg.Raft.Enabled {
		return nil
	}
	st, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st

	svcs, err := st.All(context.Background())
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	for _, svc := range svcs {
		a.clock.Update(svc.Version)
	}
	restored := a.reconciler.Restore(svcs)
	a.log.Info("registry restored", zap.String("path", a.cfg.Store.Path), zap.Int("services", restored))

	stop, err := st.Follow(a.bus, logging.Module(a.log, "store"))
	if err != nil {
		return err
	}
	a.unsubscribe = append(a.unsubscribe, stop)
	return nil
}

func (a *App) startRaft() error {
	rc := a.cfg.Raft
	if !rc.Enabled {
		return nil
	}
	peers := make([]raft.Server, 0, len(rc.Peers))
	for _, p := range rc.Peers {
		peers = append(peers, raft.Server{
			ID:       raft.ServerID(p.ID),
			Address:  raft.ServerAddress(p.Address),
			Suffrage: raft.Voter,
		})
	}

	log := logging.Module(a.log, "raft")
	fsm := raftstore.NewFSM(a.clock, a.store, a.queue, a.reconciler, log)
	node, err := raftstore.NewRaftNode(raftstore.Config{
		NodeID:    a.cfg.Node.ID,
		DataDir:   filepath.Join(rc.DataDir, a.cfg.Node.ID),
		BindAddr:  rc.BindAddr,
		Advertise: rc.Addr,
		Peers:     peers,
		Timeout:   rc.Timeout,
		Logger:    logging.Raft(a.cfg.Log, nil),
	}, fsm, log)
	if err != nil {
		return fmt.Errorf("start raft: %w", err)
	}
	a.raft = node

	stop, err := node.Follow(a.bus)
	if err != nil {
		return err
	}
	a.unsubscribe = append(a.unsubscribe, stop)
	return nil
}

func (a *App) bindServers() error {
	if config.On(a.cfg.HTTP.Enabled) {
		ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		a.httpLn = ln
		front := frontend.New(a.dispatcher, a.reconciler, a.clock, a.metrics, logging.Module(a.log, "http"))
		a.httpServer = &http.Server{
			Handler:           front.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	if config.On(a.cfg.GRPC.Enabled) {
		ln, err := net.Listen("tcp", a.cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		a.grpcLn = ln
		a.grpcServer = rpc.NewServer(a.reconciler, a.dispatcher, a.clock, logging.Module(a.log, "grpc"))
	}
	return nil
}

// HTTPAddr returns the bound HTTP address, nil when HTTP is disabled.
func (a *App) HTTPAddr() net.Addr {
	if a.httpLn == nil {
		return nil
	}
	return a.httpLn.Addr()
}

// GRPCAddr returns the bound gRPC address, nil when gRPC is disabled.
func (a *App) GRPCAddr() net.Addr {
	if a.grpcLn == nil {
		return nil
	}
	return a.grpcLn.Addr()
}

// Run starts the sampler, the reconcile loop and the servers. It returns
// after ctx is cancelled and shutdown completes, or when the sampler fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.sampler.Start(gctx)
	})
	g.Go(func() error {
		defer close(a.reconciled)
		a.reconciler.Run(a.queue)
		return nil
	})
	if a.httpServer != nil {
		g.Go(func() error {
			a.log.Info("http listening", zap.Stringer("addr", a.httpLn.Addr()))
			if err := a.httpServer.Serve(a.httpLn); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
	}
	if a.grpcServer != nil {
		g.Go(func() error {
			a.log.Info("grpc listening", zap.Stringer("addr", a.grpcLn.Addr()))
			if err := a.grpcServer.Serve(a.grpcLn); err != nil {
				return fmt.Errorf("serve grpc: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	a.log.Info("node running", zap.String("node_id", a.cfg.Node.ID))
	return g.Wait()
}

// shutdown stops intake first, then drains the queue, then flushes
// subscribers before closing the journal and the store.
func (a *App) shutdown() error {
	grace := a.cfg.Shutdown.Grace
	a.log.Info("shutting down", zap.Duration("grace", grace))
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			a.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			a.grpcServer.Stop()
		}
	}

	a.queue.Close()
	select {
	case <-a.reconciled:
	case <-ctx.Done():
		errs = append(errs, errors.New("reconcile loop did not drain before the grace period"))
	}
	a.bus.WaitAsync()
	a.release()

	return errors.Join(errs...)
}

// release closes the journal and store. New also uses it to unwind a
// partially built App.
func (a *App) release() {
	for _, stop := range a.unsubscribe {
		stop()
	}
	a.unsubscribe = nil
	if a.raft != nil {
		if err := a.raft.Shutdown(); err != nil {
			a.log.Warn("raft shutdown", zap.Error(err))
		}
		a.raft = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close", zap.Error(err))
		}
		a.store = nil
	}
}
