package store_test

import (
	"context"
	"path/filepath"
	"testing"

	evbus "github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/registry"
	"github.com/dishankoza/svcsync/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "svcsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func service(name string, version hlc.Timestamp, ips ...string) registry.Service {
	svc := registry.NewService(name, ips)
	svc.Version = version
	return svc
}

func TestUpsertAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	svc := service("svc-a", hlc.Timestamp{Sec: 100, Nsec: 5, Counter: 2}, "10.0.0.1", "10.0.0.2")
	svc.Backends[0].Total = 3

	changed, err := s.Upsert(ctx, svc)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.Get(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, svc, got)
}

func TestUpsertKeepsNewestVersion(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, service("svc-a", hlc.Timestamp{Sec: 100}, "B1"))
	require.NoError(t, err)

	changed, err := s.Upsert(ctx, service("svc-a", hlc.Timestamp{Sec: 99, Counter: 5}, "B2"))
	require.NoError(t, err)
	assert.False(t, changed, "older version must not overwrite")

	changed, err = s.Upsert(ctx, service("svc-a", hlc.Timestamp{Sec: 100}, "B3"))
	require.NoError(t, err)
	assert.False(t, changed, "equal version must not overwrite")

	changed, err = s.Upsert(ctx, service("svc-a", hlc.Timestamp{Sec: 100, Counter: 1}, "B2"))
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.Get(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, hlc.Timestamp{Sec: 100, Counter: 1}, got.Version)
	assert.Equal(t, []string{"B2"}, got.IPs())
}

func TestUpsertIgnoresSentinel(t *testing.T) {
	s := openStore(t)
	changed, err := s.Upsert(context.Background(), registry.Service{})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAllOrderedByName(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for _, name := range []string{"svc-c", "svc-a", "svc-b"} {
		_, err := s.Upsert(ctx, service(name, hlc.Timestamp{Sec: 1}, "10.0.0.1"))
		require.NoError(t, err)
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "svc-a", all[0].Name)
	assert.Equal(t, "svc-b", all[1].Name)
	assert.Equal(t, "svc-c", all[2].Name)
}

func TestReopenRestoresIntoReconciler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcsync.db")
	ctx := context.Background()

	s, err := store.Open(path)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, service("svc-a", hlc.Timestamp{Sec: 7}, "10.0.0.1"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open(path)
	require.NoError(t, err)
	defer s.Close()
	all, err := s.All(ctx)
	require.NoError(t, err)

	r := registry.NewReconciler(nil)
	assert.Equal(t, 1, r.Restore(all))
	got, ok := r.Get("svc-a")
	require.True(t, ok)
	assert.Equal(t, hlc.Timestamp{Sec: 7}, got.Version)
}

func TestFollowPersistsAcceptedUpdates(t *testing.T) {
	s := openStore(t)
	bus := evbus.New()
	stop, err := s.Follow(bus, nil)
	require.NoError(t, err)

	r := registry.NewReconciler(nil, registry.WithBus(bus))
	r.Restore([]registry.Service{
		service("svc-a", hlc.Timestamp{Sec: 1}, "B1"),
		service("svc-a", hlc.Timestamp{Sec: 2}, "B2"),
		service("svc-a", hlc.Timestamp{Sec: 1, Counter: 9}, "B3"),
	})
	bus.WaitAsync()

	got, err := s.Get(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, hlc.Timestamp{Sec: 2}, got.Version)
	assert.Equal(t, []string{"B2"}, got.IPs())

	stop()
	r.Restore([]registry.Service{service("svc-b", hlc.Timestamp{Sec: 1}, "B1")})
	bus.WaitAsync()
	_, err = s.Get(context.Background(), "svc-b")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
