package raftstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/raft"
	"go.uber.org/zap"

	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/registry"
	"github.com/dishankoza/svcsync/internal/store"
)

// OpRecord journals an accepted registry record.
const OpRecord = "record"

// Command represents a Raft log entry
type Command struct {
	Op      string
	Service registry.Service
}

// Encode gob-encodes c for the raft log.
func (c Command) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCommand reverses Command.Encode.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cmd); err != nil {
		return Command{}, fmt.Errorf("failed to decode command: %w", err)
	}
	return cmd, nil
}

// Registry is the local view the FSM feeds: it answers which version is
// already held and receives the records of an installed snapshot.
type Registry interface {
	Get(name string) (registry.Service, bool)
	Restore(svcs []registry.Service) int
}

// ApplyResult is returned from FSM.Apply for a record command.
type ApplyResult struct {
	Version hlc.Timestamp
	Stored  bool
	Queued  bool
}

// FSM applies journaled records on every node: it merges the record version
// into the local clock, persists the record and offers it to the local
// reconciler.
type FSM struct {
	clock    *hlc.Clock
	store    *store.Store
	queue    *registry.Queue
	local    Registry
	log      *zap.Logger
}

// NewFSM creates the state machine. local may be nil, in which case every
// record is queued and snapshot records are only persisted.
func NewFSM(clock *hlc.Clock, st *store.Store, q *registry.Queue, local Registry, log *zap.Logger) *FSM {
	if log == nil {
		log = zap.NewNop()
	}
	return &FSM{clock: clock, store: st, queue: q, local: local, log: log}
}

func (f *FSM) Apply(l *raft.Log) interface{} {
	cmd, err := DecodeCommand(l.Data)
	if err != nil {
		return err
	}
	if cmd.Op != OpRecord {
		return fmt.Errorf("unknown command %q at index %d", cmd.Op, l.Index)
	}
	svc := cmd.Service

	res := ApplyResult{Version: f.clock.Update(svc.Version)}
	if f.store != nil {
		stored, err := f.store.Upsert(context.Background(), svc)
		if err != nil {
			return err
		}
		res.Stored = stored
	}
	if f.held(svc) {
		// The leader journals records it already accepted.
		return res
	}
	if err := f.queue.TrySubmit(svc); err != nil {
		f.log.Debug("journaled record not queued",
			zap.String("service", svc.Name),
			zap.Uint64("index", l.Index),
			zap.Error(err))
	} else {
		res.Queued = true
	}
	return res
}

func (f *FSM) held(svc registry.Service) bool {
	if f.local == nil {
		return false
	}
	cur, ok := f.local.Get(svc.Name)
	return ok && cur.Version.Compare(svc.Version) >= 0
}

func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	if f.store == nil {
		return &fsmSnapshot{}, nil
	}
	svcs, err := f.store.All(context.Background())
	if err != nil {
		return nil, err
	}
	return &fsmSnapshot{services: svcs}, nil
}

func (f *FSM) Restore(snapshot io.ReadCloser) error {
	defer snapshot.Close()

	var svcs []registry.Service
	if err := json.NewDecoder(snapshot).Decode(&svcs); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	for _, svc := range svcs {
		f.clock.Update(svc.Version)
		if f.store != nil {
			if _, err := f.store.Upsert(context.Background(), svc); err != nil {
				return err
			}
		}
	}
	accepted := 0
	if f.local != nil {
		accepted = f.local.Restore(svcs)
	}
	f.log.Info("snapshot restored", zap.Int("records", len(svcs)), zap.Int("accepted", accepted))
	return nil
}

type fsmSnapshot struct {
	services []registry.Service
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	svcs := s.services
	if svcs == nil {
		svcs = []registry.Service{}
	}
	if err := json.NewEncoder(sink).Encode(svcs); err != nil {
		_ = sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
