package raftstore

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"go.uber.org/zap"

	"github.com/dishankoza/svcsync/internal/registry"
)

// ErrNotLeader is returned by Journal on a follower.
var ErrNotLeader = errors.New("raftstore: not the leader")

// Config describes one raft member.
type Config struct {
	NodeID    string
	DataDir   string
	BindAddr  string
	Advertise string
	Peers     []raft.Server
	Timeout   time.Duration
	Logger    hclog.Logger
}

// Store journals accepted registry records through raft.
type Store struct {
	raft    *raft.Raft
	closers []io.Closer
	timeout time.Duration
	log     *zap.Logger
}

func (s *Store) IsLeader() bool {
	return s.raft.State() == raft.Leader
}

// Leader returns the address of the current leader, empty if unknown.
func (s *Store) Leader() raft.ServerAddress {
	addr, _ := s.raft.LeaderWithID()
	return addr
}

// Journal appends svc to the raft log and waits until it is applied locally.
func (s *Store) Journal(svc registry.Service) (ApplyResult, error) {
	if !s.IsLeader() {
		return ApplyResult{}, ErrNotLeader
	}
	data, err := Command{Op: OpRecord, Service: svc}.Encode()
	if err != nil {
		return ApplyResult{}, err
	}
	f := s.raft.Apply(data, s.timeout)
	if err := f.Error(); err != nil {
		return ApplyResult{}, fmt.Errorf("journal %q: %w", svc.Name, err)
	}
	switch resp := f.Response().(type) {
	case error:
		return ApplyResult{}, resp
	case ApplyResult:
		return resp, nil
	default:
		return ApplyResult{}, nil
	}
}

// Follow journals every record published on registry.TopicAccepted while
// this node leads. Followers ignore the topic; their records arrive through
// the log. The returned func unsubscribes.
func (s *Store) Follow(bus evbus.Bus) (func(), error) {
	handler := func(svc registry.Service) {
		if !s.IsLeader() {
			return
		}
		if _, err := s.Journal(svc); err != nil {
			s.log.Warn("journal record", zap.String("service", svc.Name), zap.Error(err))
		}
	}
	if err := bus.SubscribeAsync(registry.TopicAccepted, handler, false); err != nil {
		return nil, err
	}
	return func() { _ = bus.Unsubscribe(registry.TopicAccepted, handler) }, nil
}

// Bootstrap seeds a fresh cluster with servers.
func (s *Store) Bootstrap(servers []raft.Server) error {
	return s.raft.BootstrapCluster(raft.Configuration{Servers: servers}).Error()
}

// Shutdown stops raft and releases its stores and transport.
func (s *Store) Shutdown() error {
	err := s.raft.Shutdown().Error()
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NewRaftNode starts a raft member on TCP with bolt log and stable stores
// under cfg.DataDir. A node without existing state bootstraps from
// cfg.Peers, or as a single-member cluster when no peers are given.
func NewRaftNode(cfg Config, fsm raft.FSM, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	hlog := cfg.Logger
	if hlog == nil {
		hlog = hclog.NewNullLogger()
	}
	if cfg.Advertise == "" {
		cfg.Advertise = cfg.BindAddr
	}

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(cfg.NodeID)
	raftConfig.Logger = hlog

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	advertise, err := net.ResolveTCPAddr("tcp", cfg.Advertise)
	if err != nil {
		return nil, err
	}
	transport, err := raft.NewTCPTransportWithLogger(cfg.BindAddr, advertise, 3, raftTimeout(cfg.Timeout), hlog)
	if err != nil {
		return nil, err
	}

	snapshots, err := raft.NewFileSnapshotStoreWithLogger(cfg.DataDir, 2, hlog)
	if err != nil {
		transport.Close()
		return nil, err
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.bolt"))
	if err != nil {
		transport.Close()
		return nil, err
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.bolt"))
	if err != nil {
		logStore.Close()
		transport.Close()
		return nil, err
	}

	r, err := raft.NewRaft(raftConfig, fsm, logStore, stableStore, snapshots, transport)
	if err != nil {
		stableStore.Close()
		logStore.Close()
		transport.Close()
		return nil, err
	}

	s := &Store{
		raft:    r,
		closers: []io.Closer{transport, logStore, stableStore},
		timeout: raftTimeout(cfg.Timeout),
		log:     log,
	}

	// Bootstrap the cluster if necessary
	hasState, err := raft.HasExistingState(logStore, stableStore, snapshots)
	if err != nil {
		s.Shutdown()
		return nil, err
	}
	if !hasState {
		peers := cfg.Peers
		if len(peers) == 0 {
			peers = []raft.Server{{
				ID:       raftConfig.LocalID,
				Address:  transport.LocalAddr(),
				Suffrage: raft.Voter,
			}}
		}
		if err := s.Bootstrap(peers); err != nil {
			log.Warn("raft bootstrap", zap.Error(err))
		}
	}
	log.Info("raft node started",
		zap.String("node_id", cfg.NodeID),
		zap.String("bind", cfg.BindAddr),
		zap.String("advertise", cfg.Advertise),
		zap.Int("peers", len(cfg.Peers)))
	return s, nil
}

// NewInmemNode starts a raft member on in-memory stores and transport with
// short timeouts. Connect transports of several nodes to form a cluster,
// then Bootstrap one of them.
func NewInmemNode(id string, fsm raft.FSM, log *zap.Logger) (*Store, *raft.InmemTransport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(id)
	raftConfig.Logger = hclog.NewNullLogger()
	raftConfig.HeartbeatTimeout = 50 * time.Millisecond
	raftConfig.ElectionTimeout = 50 * time.Millisecond
	raftConfig.LeaderLeaseTimeout = 50 * time.Millisecond
	raftConfig.CommitTimeout = 5 * time.Millisecond

	_, transport := raft.NewInmemTransport(raft.NewInmemAddr())
	r, err := raft.NewRaft(raftConfig, fsm, raft.NewInmemStore(), raft.NewInmemStore(), raft.NewInmemSnapshotStore(), transport)
	if err != nil {
		return nil, nil, err
	}
	return &Store{
		raft:    r,
		closers: []io.Closer{transport},
		timeout: raftTimeout(0),
		log:     log,
	}, transport, nil
}

func raftTimeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return 10 * time.Second
}
